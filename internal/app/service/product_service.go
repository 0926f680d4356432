package service

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/internal/app/query"
	"github.com/ikkim/marketplace-backend/internal/app/repository"
	"github.com/ikkim/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// EventPublisher receives catalog changes, e.g. to push them to admin consoles.
type EventPublisher interface {
	PublishCatalogEvent(event model.CatalogEvent)
}

type CreateProductInput struct {
	Title       string
	Description string
	Price       *float64
	Images      []string
	Category    string
	InStock     bool
	BuyLink     string
	Reviews     []model.Review
}

type ProductService interface {
	ListProducts() ([]model.Product, error)
	FilterProducts(search, category string) ([]model.Product, error)
	ListCategories() ([]string, error)
	SearchProducts(term string) ([]model.Product, error)
	GetCatalogSummary(topN int) (query.Summary, error)
	GetProductByID(id string) (*model.Product, error)
	CreateProduct(input CreateProductInput) (*model.Product, error)
	UpdateProduct(id string, patch model.ProductPatch) (*model.Product, error)
	DeleteProduct(id string) error
	IncrementClicks(id string) error
}

type productService struct {
	productRepo repository.ProductRepository
	publisher   EventPublisher
}

// NewProductService builds the catalog service. publisher may be nil.
func NewProductService(productRepo repository.ProductRepository, publisher EventPublisher) ProductService {
	return &productService{
		productRepo: productRepo,
		publisher:   publisher,
	}
}

func (s *productService) publish(eventType model.CatalogEventType, productID string, product *model.Product) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishCatalogEvent(model.CatalogEvent{
		Type:       eventType,
		ProductID:  productID,
		Product:    product,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *productService) ListProducts() ([]model.Product, error) {
	products, err := s.productRepo.FindAll()
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, err
	}
	return products, nil
}

func (s *productService) FilterProducts(search, category string) ([]model.Product, error) {
	logger.Debug("Filtering products", map[string]interface{}{
		"search":   search,
		"category": category,
	})

	products, err := s.ListProducts()
	if err != nil {
		return nil, err
	}
	return query.Filter(products, search, category), nil
}

func (s *productService) ListCategories() ([]string, error) {
	products, err := s.ListProducts()
	if err != nil {
		return nil, err
	}
	return query.Categories(products), nil
}

func (s *productService) SearchProducts(term string) ([]model.Product, error) {
	products, err := s.ListProducts()
	if err != nil {
		return nil, err
	}
	return query.Search(products, term), nil
}

func (s *productService) GetCatalogSummary(topN int) (query.Summary, error) {
	products, err := s.ListProducts()
	if err != nil {
		return query.Summary{}, err
	}
	return query.Summarize(products, topN), nil
}

func (s *productService) GetProductByID(id string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return product, nil
}

func (s *productService) CreateProduct(input CreateProductInput) (*model.Product, error) {
	logger.Info("Creating product", map[string]interface{}{
		"title":    input.Title,
		"category": input.Category,
	})

	fields := fieldErrors{}
	fields.requireText("title", input.Title)
	fields.requireText("description", input.Description)
	fields.requireText("category", input.Category)
	if input.Price == nil {
		fields["price"] = "is required"
	} else {
		validatePrice(fields, *input.Price)
	}
	validateImages(fields, input.Images)
	reviews := prepareReviews(fields, input.Reviews)
	if err := fields.err(); err != nil {
		logger.Warn("Product rejected by validation", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	product := &model.Product{
		Title:       input.Title,
		Description: input.Description,
		Price:       *input.Price,
		Images:      input.Images,
		Category:    input.Category,
		InStock:     input.InStock,
		BuyLink:     input.BuyLink,
		Reviews:     reviews,
	}
	if err := s.productRepo.Create(product); err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"title": input.Title,
		})
		return nil, err
	}

	logger.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
	})
	s.publish(model.CatalogEventCreated, product.ID, product)
	return product, nil
}

func (s *productService) UpdateProduct(id string, patch model.ProductPatch) (*model.Product, error) {
	logger.Info("Updating product", map[string]interface{}{
		"product_id": id,
	})

	fields := fieldErrors{}
	if patch.Title != nil {
		fields.requireText("title", *patch.Title)
	}
	if patch.Description != nil {
		fields.requireText("description", *patch.Description)
	}
	if patch.Category != nil {
		fields.requireText("category", *patch.Category)
	}
	if patch.Price != nil {
		validatePrice(fields, *patch.Price)
	}
	if patch.Images != nil {
		validateImages(fields, *patch.Images)
	}
	if patch.Reviews != nil {
		reviews := prepareReviews(fields, *patch.Reviews)
		patch.Reviews = &reviews
	}
	if err := fields.err(); err != nil {
		logger.Warn("Product update rejected by validation", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}

	product, err := s.productRepo.Update(id, patch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot update product: not found", map[string]interface{}{
				"product_id": id,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	logger.Info("Product updated successfully", map[string]interface{}{
		"product_id": id,
	})
	s.publish(model.CatalogEventUpdated, id, product)
	return product, nil
}

func (s *productService) DeleteProduct(id string) error {
	logger.Info("Deleting product", map[string]interface{}{
		"product_id": id,
	})

	if err := s.productRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot delete product: not found", map[string]interface{}{
				"product_id": id,
			})
			return ErrProductNotFound
		}
		logger.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Info("Product deleted successfully", map[string]interface{}{
		"product_id": id,
	})
	s.publish(model.CatalogEventDeleted, id, nil)
	return nil
}

// IncrementClicks is a no-op for unknown ids.
func (s *productService) IncrementClicks(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return newValidationError("id", "must be a valid product id")
	}

	affected, err := s.productRepo.IncrementClicks(id)
	if err != nil {
		logger.Error("Failed to increment product clicks", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}
	if affected == 0 {
		logger.Debug("Click ignored for unknown product", map[string]interface{}{
			"product_id": id,
		})
		return nil
	}

	s.publish(model.CatalogEventClicked, id, nil)
	return nil
}

func validatePrice(fields fieldErrors, price float64) {
	if price < 0 {
		fields["price"] = "must not be negative"
	}
}

func validateImages(fields fieldErrors, images []string) {
	for _, image := range images {
		if strings.TrimSpace(image) == "" {
			fields["images"] = "must not contain blank entries"
			return
		}
	}
}

// prepareReviews validates reviews and fills in missing ids and dates.
func prepareReviews(fields fieldErrors, reviews []model.Review) []model.Review {
	if reviews == nil {
		return nil
	}

	prepared := make([]model.Review, len(reviews))
	seen := make(map[string]struct{}, len(reviews))
	for i, review := range reviews {
		if strings.TrimSpace(review.UserName) == "" {
			fields["reviews.userName"] = "is required"
		}
		if strings.TrimSpace(review.Comment) == "" {
			fields["reviews.comment"] = "is required"
		}
		if review.Rating < 1 || review.Rating > 5 {
			fields["reviews.rating"] = "must be between 1 and 5"
		}
		if review.ID == "" {
			review.ID = "review-" + uuid.NewString()
		}
		if _, dup := seen[review.ID]; dup {
			fields["reviews.id"] = "must be unique within a product"
		}
		seen[review.ID] = struct{}{}
		if review.Date == "" {
			review.Date = time.Now().UTC().Format("2006-01-02")
		}
		prepared[i] = review
	}
	return prepared
}
