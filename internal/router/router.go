package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/marketplace-backend/config"
	"github.com/ikkim/marketplace-backend/internal/app/controller"
	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	authController     *controller.AuthController
	productController  *controller.ProductController
	cartController     *controller.CartController
	wishlistController *controller.WishlistController
	adminController    *controller.AdminController
	uploadController   *controller.UploadController
	eventsController   *controller.EventsController
	authMiddleware     *middleware.AuthMiddleware
	metrics            *middleware.Metrics
	gatherer           prometheus.Gatherer
	config             *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	wishlistController *controller.WishlistController,
	adminController *controller.AdminController,
	uploadController *controller.UploadController,
	eventsController *controller.EventsController,
	authMiddleware *middleware.AuthMiddleware,
	metrics *middleware.Metrics,
	gatherer prometheus.Gatherer,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:     authController,
		productController:  productController,
		cartController:     cartController,
		wishlistController: wishlistController,
		adminController:    adminController,
		uploadController:   uploadController,
		eventsController:   eventsController,
		authMiddleware:     authMiddleware,
		metrics:            metrics,
		gatherer:           gatherer,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(r.metrics.Middleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Marketplace API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	adminOnly := r.authMiddleware.RequireRole(model.RoleAdmin)

	api := router.Group("/api")
	{
		users := api.Group("/users")
		{
			users.POST("/register", r.authController.Register)
			users.POST("/login", r.authController.Login)
			users.POST("/refresh", r.authController.RefreshToken)
			users.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			users.PATCH("/me", r.authMiddleware.Authenticate(), r.authController.UpdateMe)
			users.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
		}

		products := api.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/categories", r.productController.ListCategories)
			products.GET("/:id", r.productController.GetProductByID)
			products.POST("/:id/clicks", r.productController.RecordClick)

			products.POST("",
				r.authMiddleware.Authenticate(),
				adminOnly,
				r.productController.CreateProduct,
			)
			products.PATCH("/:id",
				r.authMiddleware.Authenticate(),
				adminOnly,
				r.productController.UpdateProduct,
			)
			products.DELETE("/:id",
				r.authMiddleware.Authenticate(),
				adminOnly,
				r.productController.DeleteProduct,
			)
		}

		cart := api.Group("/cart")
		cart.Use(r.authMiddleware.Authenticate())
		{
			owner := r.authMiddleware.RequireSelfOrAdmin("userId")

			cart.POST("/add", r.cartController.AddToCart)
			cart.GET("/:userId", owner, r.cartController.GetCart)
			cart.DELETE("/:userId", owner, r.cartController.ClearCart)
			cart.DELETE("/:userId/items/:productId", owner, r.cartController.RemoveFromCart)
		}

		wishlist := api.Group("/wishlist")
		wishlist.Use(r.authMiddleware.Authenticate())
		{
			wishlist.GET("", r.wishlistController.GetWishlist)
			wishlist.GET("/products", r.wishlistController.GetWishlistProducts)
			wishlist.POST("", r.wishlistController.AddToWishlist)
			wishlist.DELETE("", r.wishlistController.ClearWishlist)
			wishlist.GET("/:productId", r.wishlistController.CheckWishlist)
			wishlist.DELETE("/:productId", r.wishlistController.RemoveFromWishlist)
		}

		admin := api.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), adminOnly)
		{
			admin.GET("/stats", r.adminController.GetStats)
			admin.GET("/products", r.adminController.SearchProducts)
			admin.POST("/uploads", r.uploadController.GeneratePresignedURL)
			admin.GET("/events", r.eventsController.StreamEvents)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, X-Request-ID, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
