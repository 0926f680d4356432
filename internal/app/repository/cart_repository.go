package repository

import (
	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	FindByUserID(userID string) (*model.Cart, error)
	AddItem(userID, productID string, quantity int) (*model.Cart, error)
	RemoveItem(userID, productID string) (int64, error)
	DeleteByUserID(userID string) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func preloadCartItems(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// FindByUserID returns gorm.ErrRecordNotFound when the user has no cart.
func (r *cartRepository) FindByUserID(userID string) (*model.Cart, error) {
	logger.Debug("Finding cart by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	cart, err := findCart(r.db, userID)
	if err != nil {
		return nil, err
	}

	logger.Debug("Cart found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(cart.Items),
	})
	return cart, nil
}

func findCart(db *gorm.DB, userID string) (*model.Cart, error) {
	var cart model.Cart
	err := db.Preload("Items", preloadCartItems).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}
	return &cart, nil
}

// AddItem creates the cart on first use and merges quantity into an existing
// line. Both steps are upserts so concurrent writers never lose an increment.
func (r *cartRepository) AddItem(userID, productID string, quantity int) (*model.Cart, error) {
	logger.Debug("Adding item to cart in database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	var cart *model.Cart
	err := r.db.Transaction(func(tx *gorm.DB) error {
		newCart := &model.Cart{UserID: userID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(newCart).Error; err != nil {
			return err
		}

		var stored model.Cart
		if err := tx.Where("user_id = ?", userID).First(&stored).Error; err != nil {
			return err
		}

		item := &model.CartItem{CartID: stored.ID, ProductID: productID, Quantity: quantity}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).Create(item).Error; err != nil {
			return err
		}

		var err error
		cart, err = findCart(tx, userID)
		return err
	})
	if err != nil {
		logger.Error("Failed to add item to cart in database", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	logger.Debug("Item added to cart in database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"count":      len(cart.Items),
	})
	return cart, nil
}

// RemoveItem deletes the line for productID and returns the number of rows removed.
func (r *cartRepository) RemoveItem(userID, productID string) (int64, error) {
	logger.Debug("Removing item from cart in database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	result := r.db.
		Where("product_id = ? AND cart_id IN (?)", productID,
			r.db.Model(&model.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to remove item from cart in database", result.Error, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return 0, result.Error
	}

	logger.Debug("Item removed from cart in database", map[string]interface{}{
		"user_id":       userID,
		"product_id":    productID,
		"rows_affected": result.RowsAffected,
	})
	return result.RowsAffected, nil
}

// DeleteByUserID drops the cart and its lines. A missing cart is not an error.
func (r *cartRepository) DeleteByUserID(userID string) error {
	logger.Debug("Deleting cart by user ID from database", map[string]interface{}{
		"user_id": userID,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("cart_id IN (?)", tx.Model(&model.Cart{}).Select("id").Where("user_id = ?", userID)).
			Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&model.Cart{}).Error
	})
	if err != nil {
		logger.Error("Failed to delete cart by user ID from database", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	logger.Debug("Cart deleted from database", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}
