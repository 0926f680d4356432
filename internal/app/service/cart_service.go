package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/internal/app/repository"
	"github.com/ikkim/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
)

// MaxLineQuantity bounds the merged quantity of a single cart line.
const MaxLineQuantity = 9999

type CartService interface {
	GetCart(userID string) (*model.Cart, error)
	AddItem(userID, productID string, quantity int) (*model.Cart, error)
	RemoveItem(userID, productID string) (*model.Cart, error)
	ClearCart(userID string) error
}

type cartService struct {
	cartRepo repository.CartRepository
	locks    *keyedMutex
}

func NewCartService(cartRepo repository.CartRepository) CartService {
	return &cartService{
		cartRepo: cartRepo,
		locks:    newKeyedMutex(),
	}
}

// GetCart returns an unsaved empty cart when the user has none.
func (s *cartService) GetCart(userID string) (*model.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, newValidationError("userId", "is required")
	}

	cart, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.NewEmptyCart(userID), nil
		}
		logger.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Cart fetched", map[string]interface{}{
		"user_id": userID,
		"count":   len(cart.Items),
	})
	return cart, nil
}

// AddItem merges quantity into the existing line for productID or appends a new one.
func (s *cartService) AddItem(userID, productID string, quantity int) (*model.Cart, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	fields := fieldErrors{}
	fields.requireText("userId", userID)
	fields.requireText("productId", productID)
	switch {
	case quantity <= 0:
		fields["quantity"] = "must be a positive integer"
	case quantity > MaxLineQuantity:
		fields["quantity"] = fmt.Sprintf("must be at most %d", MaxLineQuantity)
	}
	if err := fields.err(); err != nil {
		logger.Warn("Cart item rejected by validation", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	current, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	if line := current.FindItem(productID); line != nil && line.Quantity > MaxLineQuantity-quantity {
		logger.Warn("Cart line quantity limit reached", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"quantity":   line.Quantity,
		})
		return nil, newValidationError("quantity", fmt.Sprintf("cart line may hold at most %d", MaxLineQuantity))
	}

	cart, err := s.cartRepo.AddItem(userID, productID, quantity)
	if err != nil {
		logger.Error("Failed to add item to cart", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	logger.Info("Item added to cart successfully", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"items":      len(cart.Items),
	})
	return cart, nil
}

func (s *cartService) RemoveItem(userID, productID string) (*model.Cart, error) {
	logger.Info("Removing item from cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	unlock := s.locks.Lock(userID)
	defer unlock()

	removed, err := s.cartRepo.RemoveItem(userID, productID)
	if err != nil {
		logger.Error("Failed to remove item from cart", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}
	if removed == 0 {
		logger.Warn("Cart item not found", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, ErrCartItemNotFound
	}

	return s.GetCart(userID)
}

// ClearCart removes every line. Clearing a missing cart succeeds.
func (s *cartService) ClearCart(userID string) error {
	logger.Info("Clearing cart", map[string]interface{}{
		"user_id": userID,
	})

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.cartRepo.DeleteByUserID(userID); err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}
