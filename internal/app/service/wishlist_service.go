package service

import (
	"context"
	"strings"

	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/internal/app/repository"
	"github.com/ikkim/marketplace-backend/pkg/logger"
)

type WishlistService interface {
	GetWishlist(ctx context.Context, userID string) (*model.Wishlist, error)
	GetWishlistProducts(ctx context.Context, userID string) ([]model.Product, error)
	AddToWishlist(ctx context.Context, userID, productID string) (*model.Wishlist, error)
	RemoveFromWishlist(ctx context.Context, userID, productID string) (*model.Wishlist, error)
	Contains(ctx context.Context, userID, productID string) (bool, error)
	ClearWishlist(ctx context.Context, userID string) error
}

type wishlistService struct {
	wishlistRepo repository.WishlistRepository
	productRepo  repository.ProductRepository
	locks        *keyedMutex
}

func NewWishlistService(
	wishlistRepo repository.WishlistRepository,
	productRepo repository.ProductRepository,
) WishlistService {
	return &wishlistService{
		wishlistRepo: wishlistRepo,
		productRepo:  productRepo,
		locks:        newKeyedMutex(),
	}
}

func (s *wishlistService) GetWishlist(ctx context.Context, userID string) (*model.Wishlist, error) {
	wishlist, err := s.wishlistRepo.FindByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to fetch user wishlist", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return wishlist, nil
}

// GetWishlistProducts resolves the stored ids, skipping products that no longer exist.
func (s *wishlistService) GetWishlistProducts(ctx context.Context, userID string) ([]model.Product, error) {
	wishlist, err := s.GetWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}

	products, err := s.productRepo.FindByIDs(wishlist.ProductIDs)
	if err != nil {
		logger.Error("Failed to resolve wishlist products", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Info("User wishlist fetched successfully", map[string]interface{}{
		"user_id": userID,
		"count":   len(products),
		"stale":   len(wishlist.ProductIDs) - len(products),
	})
	return products, nil
}

func (s *wishlistService) AddToWishlist(ctx context.Context, userID, productID string) (*model.Wishlist, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, newValidationError("productId", "is required")
	}
	return s.mutate(ctx, userID, productID, (*model.Wishlist).Add)
}

func (s *wishlistService) RemoveFromWishlist(ctx context.Context, userID, productID string) (*model.Wishlist, error) {
	return s.mutate(ctx, userID, productID, (*model.Wishlist).Remove)
}

// mutate runs a read-modify-write of the stored set under the user's lock and
// skips the write when nothing changed.
func (s *wishlistService) mutate(ctx context.Context, userID, productID string, op func(*model.Wishlist, string) bool) (*model.Wishlist, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	wishlist, err := s.GetWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !op(wishlist, productID) {
		return wishlist, nil
	}

	if err := s.wishlistRepo.Save(ctx, wishlist); err != nil {
		logger.Error("Failed to save wishlist", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	logger.Info("Wishlist updated", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"count":      len(wishlist.ProductIDs),
	})
	return wishlist, nil
}

func (s *wishlistService) Contains(ctx context.Context, userID, productID string) (bool, error) {
	wishlist, err := s.GetWishlist(ctx, userID)
	if err != nil {
		return false, err
	}
	return wishlist.Contains(productID), nil
}

// ClearWishlist drops the whole set in one store operation.
func (s *wishlistService) ClearWishlist(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.wishlistRepo.Delete(ctx, userID); err != nil {
		logger.Error("Failed to clear wishlist", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	logger.Info("Wishlist cleared", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}
