package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/marketplace-backend/internal/app/service"
	"github.com/ikkim/marketplace-backend/internal/middleware"
)

const dashboardTopProducts = 5

type AdminController struct {
	productService service.ProductService
}

func NewAdminController(productService service.ProductService) *AdminController {
	return &AdminController{
		productService: productService,
	}
}

// GetStats returns the dashboard summary
// GET /api/admin/stats
func (ctrl *AdminController) GetStats(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	summary, err := ctrl.productService.GetCatalogSummary(dashboardTopProducts)
	if err != nil {
		respondServiceError(c, log, err, "build dashboard stats", nil)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// SearchProducts lists products matching q by title, description or id
// GET /api/admin/products?q=
func (ctrl *AdminController) SearchProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	term := c.Query("q")

	products, err := ctrl.productService.SearchProducts(term)
	if err != nil {
		respondServiceError(c, log, err, "search products", map[string]interface{}{
			"term": term,
		})
		return
	}

	log.Info("Admin product search", map[string]interface{}{
		"term":  term,
		"count": len(products),
	})

	c.JSON(http.StatusOK, products)
}
