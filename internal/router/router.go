// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aimodelmarket/marketplace-backend/internal/config"
	"github.com/aimodelmarket/marketplace-backend/internal/handlers"
	"github.com/aimodelmarket/marketplace-backend/internal/middleware"
	"github.com/aimodelmarket/marketplace-backend/internal/services"
	"github.com/aimodelmarket/marketplace-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	tokenService := services.NewTokenService(db, cfg)
	receiptService := services.NewReceiptService(db)
	storageService, _ := services.NewStorageService(cfg)

	authService := services.NewAuthService(db, cfg)
	ledgerService := services.NewLedgerService(db, tokenService, receiptService, cfg)
	paymentService := services.NewPaymentService(db, tokenService, cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	modelHandler := handlers.NewModelHandler(ledgerService)
	tokenHandler := handlers.NewTokenHandler(db, tokenService, cfg)
	paymentHandler := handlers.NewPaymentHandler(paymentService, receiptService)
	userHandler := handlers.NewUserHandler(db, storageService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// User routes
		users := v1.Group("/users")
		{
			users.GET("/:id/public", userHandler.GetPublicProfile)

			protected := users.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("/upload-avatar", middleware.UploadRateLimit(), userHandler.UploadAvatar)
			}
		}

		// Model listing routes. No batch listing endpoint: clients enumerate
		// ids 1..count and skip records with exists=false.
		models := v1.Group("/models")
		{
			models.GET("/count", modelHandler.GetModelCount)
			models.GET("/mine", middleware.AuthRequired(), modelHandler.GetMyModels)
			models.GET("/:id", modelHandler.GetModel)
			models.GET("/:id/rated", middleware.OptionalAuth(), modelHandler.HasRated)

			protected := models.Group("")
			protected.Use(middleware.AuthRequired(), middleware.MutationRateLimit())
			{
				protected.POST("", modelHandler.ListModel)
				protected.DELETE("/:id", modelHandler.DeleteModel)
				protected.POST("/:id/purchase", modelHandler.PurchaseModel)
				protected.POST("/:id/rate", modelHandler.RateModel)
			}
		}

		// Token ledger routes
		token := v1.Group("/token")
		token.Use(middleware.AuthRequired())
		{
			token.GET("/balance", tokenHandler.GetBalance)
			token.GET("/allowance", tokenHandler.GetAllowance)
			token.POST("/approve", tokenHandler.Approve)
			token.POST("/transfer", tokenHandler.Transfer)
			token.POST("/mint", middleware.AdminRequired(), tokenHandler.Mint)
		}

		// Payment routes (fiat top-up)
		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())
		{
			payments.POST("/intent", paymentHandler.CreatePaymentIntent)
			payments.POST("/confirm", paymentHandler.ConfirmPayment)
			payments.GET("/history", paymentHandler.GetPaymentHistory)
		}

		// Receipt verification (public)
		verify := v1.Group("/verify")
		{
			verify.GET("/:hash", paymentHandler.VerifyReceipt)
		}
	}

	return r
}
