package repository

import (
	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductRepository interface {
	FindAll() ([]model.Product, error)
	FindByID(id string) (*model.Product, error)
	FindByIDs(ids []string) ([]model.Product, error)
	Create(product *model.Product) error
	Update(id string, patch model.ProductPatch) (*model.Product, error)
	Delete(id string) error
	IncrementClicks(id string) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func preloadReviews(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *productRepository) FindAll() ([]model.Product, error) {
	logger.Debug("Finding all products in database")

	var products []model.Product
	err := r.db.Preload("Reviews", preloadReviews).
		Order("created_at ASC, id ASC").
		Find(&products).Error
	if err != nil {
		logger.Error("Failed to find products in database", err)
		return nil, err
	}

	logger.Debug("Products found in database", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (r *productRepository) FindByID(id string) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	err := r.db.Preload("Reviews", preloadReviews).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	return &product, nil
}

// FindByIDs returns the existing products in the order of ids; unknown ids are skipped.
func (r *productRepository) FindByIDs(ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	var found []model.Product
	err := r.db.Preload("Reviews", preloadReviews).
		Where("id IN ?", ids).
		Find(&found).Error
	if err != nil {
		logger.Error("Failed to find products by IDs in database", err, map[string]interface{}{
			"count": len(ids),
		})
		return nil, err
	}

	byID := make(map[string]model.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	products := make([]model.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"title":    product.Title,
		"category": product.Category,
	})

	numberReviews(product.Reviews)
	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"title": product.Title,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

// Update applies the field mask in a single transaction. Supplying reviews
// replaces the whole review list.
func (r *productRepository) Update(id string, patch model.ProductPatch) (*model.Product, error) {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
			return err
		}

		columns := patch.Apply(&product)
		if len(columns) > 0 || patch.Reviews != nil {
			columns = append(columns, "updated_at")
			if err := tx.Model(&product).Select(columns).Updates(&product).Error; err != nil {
				return err
			}
		}

		if patch.Reviews != nil {
			if err := tx.Where("product_id = ?", product.ID).Delete(&model.Review{}).Error; err != nil {
				return err
			}
			reviews := make([]model.Review, len(*patch.Reviews))
			copy(reviews, *patch.Reviews)
			numberReviews(reviews)
			for i := range reviews {
				reviews[i].ProductID = product.ID
			}
			if len(reviews) > 0 {
				if err := tx.Create(&reviews).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	logger.Debug("Product updated in database", map[string]interface{}{
		"product_id": id,
	})
	return r.FindByID(id)
}

// Delete soft-deletes the product and removes its reviews. It returns
// gorm.ErrRecordNotFound when no live product has the id.
func (r *productRepository) Delete(id string) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&model.Product{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("product_id = ?", id).Delete(&model.Review{}).Error
	})
	if err != nil {
		logger.Error("Failed to delete product from database", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Debug("Product deleted from database", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

// IncrementClicks adds one to the counter in SQL and returns the number of rows touched.
func (r *productRepository) IncrementClicks(id string) (int64, error) {
	result := r.db.Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumn("clicks", gorm.Expr("clicks + ?", 1))
	if result.Error != nil {
		logger.Error("Failed to increment product clicks", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return 0, result.Error
	}

	logger.Debug("Product clicks incremented", map[string]interface{}{
		"product_id":    id,
		"rows_affected": result.RowsAffected,
	})
	return result.RowsAffected, nil
}

func numberReviews(reviews []model.Review) {
	for i := range reviews {
		reviews[i].Position = i
	}
}
