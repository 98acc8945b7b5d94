// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/agentmarket-backend/internal/config"
	"github.com/javajoker/agentmarket-backend/internal/handlers"
	"github.com/javajoker/agentmarket-backend/internal/ledger"
	"github.com/javajoker/agentmarket-backend/internal/middleware"
	"github.com/javajoker/agentmarket-backend/internal/services"
	"github.com/javajoker/agentmarket-backend/internal/utils"
)

func Initialize(db *gorm.DB, chain *ledger.Ledger, follower *services.FollowerService, cfg *config.Config) *gin.Engine {
	// Initialize services
	projectionService := services.NewProjectionService(db)
	marketService := services.NewMarketService(chain)
	receiptService := services.NewReceiptService(db, chain, projectionService, cfg.Intake)
	catalogService := services.NewCatalogService(db)

	// Initialize handlers
	marketHandler := handlers.NewMarketHandler(marketService)
	receiptHandler := handlers.NewReceiptHandler(receiptService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	accountHandler := handlers.NewAccountHandler(marketService)

	// Set JWT parameters
	utils.SetJWTSecret(cfg.JWT.SecretKey)
	utils.SetJWTIssuer(cfg.JWT.Issuer)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check, including how far the mirror trails the ledger
	r.GET("/health", func(c *gin.Context) {
		lag, err := follower.Lag()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"error":  "mirror store unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       "healthy",
			"version":      "1.0.0",
			"follower_lag": lag,
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Product routes: canonical ledger state plus transitions
		products := v1.Group("/products")
		{
			products.GET("/:id", marketHandler.GetProduct)
			products.GET("/:id/rating", marketHandler.GetRating)

			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", marketHandler.ListProduct)
				protected.POST("/:id/purchase", marketHandler.PurchaseProduct)
				protected.POST("/:id/reviews", marketHandler.ReviewProduct)
				protected.DELETE("/:id", marketHandler.DeprecateProduct)
			}
		}

		// Receipt intake: buyer-presented confirmation of a settled purchase
		receipts := v1.Group("/receipts")
		receipts.Use(middleware.AuthRequired(), middleware.ReceiptRateLimit())
		{
			receipts.POST("/confirm", receiptHandler.ConfirmReceipt)
		}

		// Catalog routes: discovery queries answered from the mirror store
		catalog := v1.Group("/catalog")
		{
			catalog.GET("/products", catalogHandler.SearchProducts)
			catalog.GET("/products/top", catalogHandler.TopProducts)
			catalog.GET("/products/:id", catalogHandler.GetProductStats)
			catalog.GET("/purchases/:tx_ref", catalogHandler.GetPurchase)
			catalog.GET("/purchases", middleware.AuthRequired(), catalogHandler.MyPurchases)
		}

		// Account routes
		accounts := v1.Group("/accounts")
		accounts.Use(middleware.AuthRequired())
		{
			accounts.GET("/balance", accountHandler.GetBalance)
			accounts.POST("/credit", middleware.OperatorRequired(), accountHandler.CreditAccount)
		}
	}

	return r
}
