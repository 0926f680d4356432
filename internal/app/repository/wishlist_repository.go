package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/internal/kv"
	"github.com/ikkim/marketplace-backend/pkg/logger"
)

// WishlistRepository persists each user's wishlist as one JSON array blob.
type WishlistRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Wishlist, error)
	Save(ctx context.Context, wishlist *model.Wishlist) error
	Delete(ctx context.Context, userID string) error
}

type wishlistRepository struct {
	store kv.Store
}

func NewWishlistRepository(store kv.Store) WishlistRepository {
	return &wishlistRepository{store: store}
}

func wishlistKey(userID string) string {
	return "wishlist:" + userID
}

// FindByUserID returns an empty wishlist when nothing is stored.
func (r *wishlistRepository) FindByUserID(ctx context.Context, userID string) (*model.Wishlist, error) {
	logger.Debug("Finding wishlist by user ID in store", map[string]interface{}{
		"user_id": userID,
	})

	wishlist := &model.Wishlist{UserID: userID, ProductIDs: []string{}}
	raw, found, err := r.store.Get(ctx, wishlistKey(userID))
	if err != nil {
		logger.Error("Failed to read wishlist from store", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	if !found {
		return wishlist, nil
	}

	if err := json.Unmarshal(raw, &wishlist.ProductIDs); err != nil {
		logger.Error("Failed to decode stored wishlist", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("decode wishlist for %s: %w", userID, err)
	}
	if wishlist.ProductIDs == nil {
		wishlist.ProductIDs = []string{}
	}

	logger.Debug("Wishlist found in store", map[string]interface{}{
		"user_id": userID,
		"count":   len(wishlist.ProductIDs),
	})
	return wishlist, nil
}

func (r *wishlistRepository) Save(ctx context.Context, wishlist *model.Wishlist) error {
	ids := wishlist.ProductIDs
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	if err := r.store.Set(ctx, wishlistKey(wishlist.UserID), raw, 0); err != nil {
		logger.Error("Failed to save wishlist to store", err, map[string]interface{}{
			"user_id": wishlist.UserID,
		})
		return err
	}

	logger.Debug("Wishlist saved to store", map[string]interface{}{
		"user_id": wishlist.UserID,
		"count":   len(ids),
	})
	return nil
}

func (r *wishlistRepository) Delete(ctx context.Context, userID string) error {
	if err := r.store.Remove(ctx, wishlistKey(userID)); err != nil {
		logger.Error("Failed to delete wishlist from store", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}
