package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tradegate/config"
	"github.com/yourusername/tradegate/handlers"
	"github.com/yourusername/tradegate/middleware"
	"github.com/yourusername/tradegate/models"
	"github.com/yourusername/tradegate/repository"
	"github.com/yourusername/tradegate/services"
	"github.com/yourusername/tradegate/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Setup router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "tradegate-api",
		})
	})

	// One repository and one validation service shared by every handler, so
	// the per-invoice serialization lock and the tariff cache are
	// process-wide.
	repo := repository.NewInvoiceRepository(db)
	tariffClient := utils.NewTariffClient(cfg.TariffAPIBaseURL, time.Duration(cfg.TariffCacheTTLSeconds)*time.Second)
	fxClient := utils.NewFXClient(cfg.FXAPIBaseURL, cfg.FXAPIKey)
	validationService := services.NewValidationService(repo, tariffClient, fxClient)

	authHandler := handlers.NewAuthHandler(db, cfg)
	invoiceHandler := handlers.NewInvoiceHandler(repo, validationService)
	taskHandler := handlers.NewValidationTaskHandler(repo, validationService)
	upgradeHandler := handlers.NewUpgradeHandler(db, cfg)
	lookupHandler := handlers.NewLookupHandler(cfg)

	// API routes
	api := router.Group("/api/v1")
	{
		api.POST("/auth/refresh", authHandler.Refresh)

		authed := api.Group("")
		authed.Use(middleware.JwtAuthMiddleware(cfg))
		{
			// Invoice pipeline
			authed.GET("/invoices", invoiceHandler.ListInvoices)
			authed.GET("/invoices/drafts", invoiceHandler.ListDrafts)
			authed.POST("/invoices/drafts/:id/confirm", invoiceHandler.ConfirmDraft)
			authed.GET("/invoices/:id", invoiceHandler.GetInvoice)
			authed.POST("/invoices/:id/validate", invoiceHandler.ValidateInvoice)
			authed.POST("/invoices/:id/normalize-currency", invoiceHandler.NormalizeCurrency)

			// Validation tasks
			authed.POST("/validation-tasks/:id/resolve", taskHandler.ResolveTask)

			// Lookup proxies
			authed.POST("/tariff/search", lookupHandler.TariffSearch)
			authed.GET("/tariff/commodities/:code/children", lookupHandler.TariffChildren)
			authed.GET("/fx/quote", lookupHandler.FXQuote)

			// Account upgrades
			authed.GET("/upgrade/options", upgradeHandler.Options)
			authed.POST("/upgrade/uk-exporter/vat",
				middleware.RequireAccountType(models.AccountUKExporter), upgradeHandler.SubmitVAT)
			authed.POST("/upgrade/uk-exporter/eori",
				middleware.RequireAccountType(models.AccountUKExporter), upgradeHandler.SubmitEORI)
			authed.POST("/upgrade/eu-member/verify-vat", upgradeHandler.VerifyEUVAT)
		}
	}

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Tradegate API server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
