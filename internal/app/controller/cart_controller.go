package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/marketplace-backend/internal/app/service"
	apperrors "github.com/ikkim/marketplace-backend/internal/errors"
	"github.com/ikkim/marketplace-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	UserID    string `json:"userId" binding:"required"`
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// GetCart returns the user's cart, or an empty one
// GET /api/cart/:userId
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("userId")

	cart, err := ctrl.cartService.GetCart(userID)
	if err != nil {
		respondServiceError(c, log, err, "fetch cart", map[string]interface{}{
			"cart_user_id": userID,
		})
		return
	}

	log.Info("Cart fetched successfully", map[string]interface{}{
		"cart_user_id": userID,
		"count":        len(cart.Items),
	})

	c.JSON(http.StatusOK, cart)
}

// AddToCart merges a line into the user's cart
// POST /api/cart/add
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, log, err, "add to cart")
		return
	}

	if !middleware.IsSelfOrAdmin(c, req.UserID) {
		log.Warn("Cart access denied", map[string]interface{}{
			"cart_user_id": req.UserID,
		})
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzOwnerOnly, "You can only modify your own cart")
		return
	}

	cart, err := ctrl.cartService.AddItem(req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(c, log, err, "add item to cart", map[string]interface{}{
			"cart_user_id": req.UserID,
			"product_id":   req.ProductID,
		})
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"cart_user_id": req.UserID,
		"product_id":   req.ProductID,
		"quantity":     req.Quantity,
	})

	c.JSON(http.StatusOK, cart)
}

// RemoveFromCart drops one line
// DELETE /api/cart/:userId/items/:productId
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("userId")
	productID := c.Param("productId")

	cart, err := ctrl.cartService.RemoveItem(userID, productID)
	if err != nil {
		respondServiceError(c, log, err, "remove cart item", map[string]interface{}{
			"cart_user_id": userID,
			"product_id":   productID,
		})
		return
	}

	c.JSON(http.StatusOK, cart)
}

// ClearCart empties the user's cart
// DELETE /api/cart/:userId
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("userId")

	if err := ctrl.cartService.ClearCart(userID); err != nil {
		respondServiceError(c, log, err, "clear cart", map[string]interface{}{
			"cart_user_id": userID,
		})
		return
	}

	log.Info("Cart cleared successfully", map[string]interface{}{
		"cart_user_id": userID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}
