package model

import (
	"time"
)

// Cart holds at most one row per user.
type Cart struct {
	ID        uint       `gorm:"primarykey" json:"-"`
	UserID    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"userId"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`
}

func (Cart) TableName() string {
	return "carts"
}

// NewEmptyCart returns the unsaved default cart reported for users without one.
func NewEmptyCart(userID string) *Cart {
	return &Cart{UserID: userID, Items: []CartItem{}}
}

// CartItem references a product weakly; the product may no longer exist.
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"-"`
	ProductID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_items_cart_product" json:"productId"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// FindItem returns the first line for productID, or nil.
func (c *Cart) FindItem(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}
