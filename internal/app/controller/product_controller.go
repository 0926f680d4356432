package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/internal/app/service"
	"github.com/ikkim/marketplace-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type ReviewRequest struct {
	ID       string `json:"id"`
	UserName string `json:"userName" binding:"required"`
	Rating   int    `json:"rating" binding:"min=1,max=5"`
	Comment  string `json:"comment" binding:"required"`
	Date     string `json:"date"`
}

type CreateProductRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Price       *float64        `json:"price" binding:"required,gte=0"`
	Images      []string        `json:"images" binding:"omitempty,dive,required"`
	Category    string          `json:"category" binding:"required"`
	InStock     bool            `json:"inStock"`
	BuyLink     string          `json:"buyLink"`
	Reviews     []ReviewRequest `json:"reviews" binding:"omitempty,dive"`
}

// UpdateProductRequest is a field mask: omitted fields are left unchanged.
type UpdateProductRequest struct {
	Title       *string          `json:"title" binding:"omitempty,min=1"`
	Description *string          `json:"description" binding:"omitempty,min=1"`
	Price       *float64         `json:"price" binding:"omitempty,gte=0"`
	Images      *[]string        `json:"images" binding:"omitempty,dive,required"`
	Category    *string          `json:"category" binding:"omitempty,min=1"`
	InStock     *bool            `json:"inStock"`
	BuyLink     *string          `json:"buyLink"`
	Reviews     *[]ReviewRequest `json:"reviews" binding:"omitempty,dive"`
}

func (r UpdateProductRequest) patch() model.ProductPatch {
	patch := model.ProductPatch{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Images:      r.Images,
		Category:    r.Category,
		InStock:     r.InStock,
		BuyLink:     r.BuyLink,
	}
	if r.Reviews != nil {
		reviews := toReviews(*r.Reviews)
		patch.Reviews = &reviews
	}
	return patch
}

// toReviews keeps nil as nil and an empty list as empty.
func toReviews(reqs []ReviewRequest) []model.Review {
	if reqs == nil {
		return nil
	}
	reviews := make([]model.Review, len(reqs))
	for i, r := range reqs {
		reviews[i] = model.Review{
			ID:       r.ID,
			UserName: r.UserName,
			Rating:   r.Rating,
			Comment:  r.Comment,
			Date:     r.Date,
		}
	}
	return reviews
}

// ListProducts returns the catalog, optionally filtered
// GET /api/products?search=&category=
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	search := c.Query("search")
	category := c.Query("category")

	products, err := ctrl.productService.FilterProducts(search, category)
	if err != nil {
		respondServiceError(c, log, err, "fetch products", nil)
		return
	}

	log.Info("Products fetched successfully", map[string]interface{}{
		"count":    len(products),
		"search":   search,
		"category": category,
	})

	c.JSON(http.StatusOK, products)
}

// ListCategories returns "All" followed by the catalog's categories
// GET /api/products/categories
func (ctrl *ProductController) ListCategories(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	categories, err := ctrl.productService.ListCategories()
	if err != nil {
		respondServiceError(c, log, err, "fetch categories", nil)
		return
	}

	c.JSON(http.StatusOK, categories)
}

// GetProductByID returns a product by ID
// GET /api/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	product, err := ctrl.productService.GetProductByID(id)
	if err != nil {
		respondServiceError(c, log, err, "fetch product", map[string]interface{}{
			"product_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, product)
}

// CreateProduct creates a new product (Admin only)
// POST /api/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, log, err, "create product")
		return
	}

	log.Debug("Creating product", map[string]interface{}{
		"title":    req.Title,
		"category": req.Category,
	})

	product, err := ctrl.productService.CreateProduct(service.CreateProductInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		Category:    req.Category,
		InStock:     req.InStock,
		BuyLink:     req.BuyLink,
		Reviews:     toReviews(req.Reviews),
	})
	if err != nil {
		respondServiceError(c, log, err, "create product", map[string]interface{}{
			"title": req.Title,
		})
		return
	}

	log.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
		"title":      product.Title,
	})

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct applies a partial update (Admin only)
// PATCH /api/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, log, err, "update product")
		return
	}

	product, err := ctrl.productService.UpdateProduct(id, req.patch())
	if err != nil {
		respondServiceError(c, log, err, "update product", map[string]interface{}{
			"product_id": id,
		})
		return
	}

	log.Info("Product updated successfully", map[string]interface{}{
		"product_id": product.ID,
	})

	c.JSON(http.StatusOK, product)
}

// DeleteProduct deletes a product (Admin only)
// DELETE /api/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	if err := ctrl.productService.DeleteProduct(id); err != nil {
		respondServiceError(c, log, err, "delete product", map[string]interface{}{
			"product_id": id,
		})
		return
	}

	log.Info("Product deleted successfully", map[string]interface{}{
		"product_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}

// RecordClick counts a buy-link click
// POST /api/products/:id/clicks
func (ctrl *ProductController) RecordClick(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	if err := ctrl.productService.IncrementClicks(id); err != nil {
		respondServiceError(c, log, err, "record click", map[string]interface{}{
			"product_id": id,
		})
		return
	}

	c.Status(http.StatusNoContent)
}
