package routes

import (
	"time"

	"github.com/lucifer-kj/naazbookdepot-19-sub003/firebase"
	"github.com/lucifer-kj/naazbookdepot-19-sub003/handlers"
	"github.com/lucifer-kj/naazbookdepot-19-sub003/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRoutes(r *gin.Engine, db *gorm.DB, storage firebase.StorageClient) {
	// Initialize handlers
	authHandler := &handlers.AuthHandler{DB: db}
	bookHandler := &handlers.BookHandler{DB: db, Storage: storage}
	categoryHandler := &handlers.CategoryHandler{DB: db}
	cartHandler := &handlers.CartHandler{DB: db}
	orderHandler := &handlers.OrderHandler{DB: db}
	promoHandler := &handlers.PromoCodeHandler{DB: db}
	reviewHandler := &handlers.ReviewHandler{DB: db}
	analyticsHandler := &handlers.AnalyticsHandler{DB: db}

	// Credential endpoints get a tighter rate limit than the rest of the API.
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Public routes
	api := r.Group("/api")
	{
		// Auth routes
		api.POST("/auth/register", authLimiter.Middleware(), authHandler.Register)
		api.POST("/auth/login", authLimiter.Middleware(), authHandler.Login)
		api.POST("/auth/refresh", authHandler.RefreshTokenHandler)
		api.POST("/auth/forgot-password", authLimiter.Middleware(), authHandler.ForgotPassword)
		api.POST("/auth/reset-password", authLimiter.Middleware(), authHandler.ResetPassword)

		// Public book routes
		api.GET("/books", bookHandler.GetBooks)
		api.GET("/books/:id", bookHandler.GetBook)
		api.GET("/books/:id/reviews", reviewHandler.GetBookReviews)

		// Public category routes
		api.GET("/categories", categoryHandler.GetCategories)
		api.GET("/categories/:id", categoryHandler.GetCategory)

		// Checkout preview
		api.POST("/promo-codes/validate", promoHandler.ValidatePromoCode)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		// User profile
		protected.GET("/auth/profile", authHandler.GetProfile)
		protected.PUT("/auth/profile", authHandler.UpdateProfile)
		protected.POST("/auth/change-password", authHandler.ChangePassword)

		// Cart routes
		protected.GET("/cart", cartHandler.GetCart)
		protected.POST("/cart", cartHandler.AddToCart)
		protected.PUT("/cart/:id", cartHandler.UpdateCartItem)
		protected.DELETE("/cart/:id", cartHandler.RemoveFromCart)
		protected.DELETE("/cart", cartHandler.ClearCart)

		// Order routes
		protected.POST("/orders", orderHandler.CreateOrder)
		protected.GET("/orders", orderHandler.GetOrders)
		protected.GET("/orders/:id", orderHandler.GetOrder)

		// Review routes
		protected.POST("/books/:id/reviews", reviewHandler.CreateReview)
		protected.DELETE("/reviews/:reviewId", reviewHandler.DeleteReview)
	}

	// Admin routes (require admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	{
		// Book management
		admin.POST("/books", bookHandler.CreateBook)
		admin.PUT("/books/:id", bookHandler.UpdateBook)
		admin.DELETE("/books/:id", bookHandler.DeleteBook)
		admin.GET("/books", bookHandler.GetBooksPaginated)
		admin.POST("/books/batch", bookHandler.BatchImportBooks)
		admin.GET("/books/batch/:id", bookHandler.GetBatchJobStatus)

		// Category management
		admin.POST("/categories", categoryHandler.CreateCategory)
		admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
		admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)

		// Order management
		admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)
		admin.GET("/orders/:id/transitions", orderHandler.GetOrderTransitions)

		// Promo code management
		admin.GET("/promo-codes", promoHandler.ListPromoCodes)
		admin.GET("/promo-codes/:id", promoHandler.GetPromoCode)
		admin.POST("/promo-codes", promoHandler.CreatePromoCode)
		admin.PUT("/promo-codes/:id", promoHandler.UpdatePromoCode)
		admin.DELETE("/promo-codes/:id", promoHandler.DeletePromoCode)

		// User management
		admin.GET("/users", authHandler.ListUsers)
		admin.PUT("/users/:id", authHandler.UpdateUser)

		// Analytics
		admin.GET("/analytics/dashboard", analyticsHandler.GetDashboard)
		admin.GET("/analytics/top-books", analyticsHandler.GetTopBooks)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
