package model

// Wishlist is the per-user set of product ids, kept in insertion order.
type Wishlist struct {
	UserID     string   `json:"userId"`
	ProductIDs []string `json:"productIds"`
}

// Contains reports whether productID is in the set.
func (w *Wishlist) Contains(productID string) bool {
	for _, id := range w.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Add appends productID unless already present and reports whether the set changed.
func (w *Wishlist) Add(productID string) bool {
	if w.Contains(productID) {
		return false
	}
	w.ProductIDs = append(w.ProductIDs, productID)
	return true
}

// Remove drops productID and reports whether the set changed.
func (w *Wishlist) Remove(productID string) bool {
	for i, id := range w.ProductIDs {
		if id == productID {
			w.ProductIDs = append(w.ProductIDs[:i], w.ProductIDs[i+1:]...)
			return true
		}
	}
	return false
}
