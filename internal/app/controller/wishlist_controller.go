package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/marketplace-backend/internal/app/service"
	apperrors "github.com/ikkim/marketplace-backend/internal/errors"
	"github.com/ikkim/marketplace-backend/internal/middleware"
)

type WishlistController struct {
	wishlistService service.WishlistService
}

func NewWishlistController(wishlistService service.WishlistService) *WishlistController {
	return &WishlistController{
		wishlistService: wishlistService,
	}
}

type AddToWishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

func currentUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == "" {
		middleware.GetLoggerFromContext(c).Warn("Unauthenticated wishlist access", nil)
		apperrors.Unauthorized(c, "User not authenticated")
		return "", false
	}
	return userID, true
}

// GetWishlist returns the caller's product ids in insertion order
// GET /api/wishlist
func (ctrl *WishlistController) GetWishlist(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	wishlist, err := ctrl.wishlistService.GetWishlist(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, log, err, "fetch wishlist", nil)
		return
	}

	c.JSON(http.StatusOK, wishlist)
}

// GetWishlistProducts returns the wishlisted products that still exist
// GET /api/wishlist/products
func (ctrl *WishlistController) GetWishlistProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	products, err := ctrl.wishlistService.GetWishlistProducts(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, log, err, "fetch wishlist products", nil)
		return
	}

	c.JSON(http.StatusOK, products)
}

// AddToWishlist adds a product id; adding twice is a no-op
// POST /api/wishlist
func (ctrl *WishlistController) AddToWishlist(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req AddToWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, log, err, "add to wishlist")
		return
	}

	wishlist, err := ctrl.wishlistService.AddToWishlist(c.Request.Context(), userID, req.ProductID)
	if err != nil {
		respondServiceError(c, log, err, "add to wishlist", map[string]interface{}{
			"product_id": req.ProductID,
		})
		return
	}

	log.Info("Added to wishlist", map[string]interface{}{
		"product_id": req.ProductID,
	})

	c.JSON(http.StatusOK, wishlist)
}

// CheckWishlist reports whether a product is wishlisted
// GET /api/wishlist/:productId
func (ctrl *WishlistController) CheckWishlist(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID := c.Param("productId")

	contains, err := ctrl.wishlistService.Contains(c.Request.Context(), userID, productID)
	if err != nil {
		respondServiceError(c, log, err, "check wishlist", map[string]interface{}{
			"product_id": productID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"productId":  productID,
		"inWishlist": contains,
	})
}

// RemoveFromWishlist removes a product id; removing a missing id is a no-op
// DELETE /api/wishlist/:productId
func (ctrl *WishlistController) RemoveFromWishlist(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID := c.Param("productId")

	wishlist, err := ctrl.wishlistService.RemoveFromWishlist(c.Request.Context(), userID, productID)
	if err != nil {
		respondServiceError(c, log, err, "remove from wishlist", map[string]interface{}{
			"product_id": productID,
		})
		return
	}

	c.JSON(http.StatusOK, wishlist)
}

// ClearWishlist removes every product id
// DELETE /api/wishlist
func (ctrl *WishlistController) ClearWishlist(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := ctrl.wishlistService.ClearWishlist(c.Request.Context(), userID); err != nil {
		respondServiceError(c, log, err, "clear wishlist", nil)
		return
	}

	log.Info("Wishlist cleared", nil)

	c.JSON(http.StatusOK, gin.H{
		"message": "Wishlist cleared successfully",
	})
}
