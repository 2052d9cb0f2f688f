package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/givehub/backend/docs"
	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/database"
	"github.com/givehub/backend/internal/handlers"
	mW "github.com/givehub/backend/internal/middleware"
	"github.com/givehub/backend/internal/processor"
	"github.com/givehub/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title GiveHub Ledger API
// @version 1.0
// @description API for the crowdfunding platform donation and payout ledger
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("stripe.secret_key", "STRIPE_SECRET_KEY")
	viper.BindEnv("stripe.webhook_secret", "STRIPE_WEBHOOK_SECRET")
	viper.BindEnv("notification.url", "NOTIFICATION_WEBHOOK_URL")
	viper.BindEnv("public.base_url", "PUBLIC_BASE_URL")

	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)
	viper.SetDefault("public.base_url", "http://localhost:8080")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Fee configuration is load-bearing: refuse to start on a bad schedule.
	feeSchedule := config.LoadFeeSchedule()
	if err := feeSchedule.Validate(); err != nil {
		log.Fatalf("Invalid fee schedule: %v", err)
	}
	payoutCfg := config.LoadPayoutConfig()
	if err := payoutCfg.Validate(); err != nil {
		log.Fatalf("Invalid payout configuration: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "GiveHub Ledger API"
	docs.SwaggerInfo.Description = "API for the crowdfunding platform donation and payout ledger"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	stripeProcessor := processor.NewStripeProcessor(
		viper.GetString("stripe.secret_key"),
		viper.GetString("stripe.webhook_secret"))

	notifier := services.NewNotificationService(viper.GetString("notification.url"))
	ledgerService := services.NewLedgerService(db, feeSchedule)
	donationService := services.NewDonationService(db, ledgerService, stripeProcessor, notifier, payoutCfg)
	payoutService := services.NewPayoutService(db, ledgerService, stripeProcessor, notifier, payoutCfg, feeSchedule)
	campaignService := services.NewCampaignService(db, redisClient, viper.GetString("public.base_url"))
	authService := services.NewAuthService(db, redisClient)
	bankService := services.NewBankService()
	disbursementService := services.NewDisbursementService(db, bankService, payoutCfg)
	webhookHandler := handlers.NewWebhookHandler(stripeProcessor, payoutService, donationService, redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for campaign images
	r.Handle("/static/campaign-images/*", http.StripPrefix("/static/campaign-images/",
		mW.StaticFileServer("./static/campaign-images")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		r.Get("/campaigns", campaignService.ListCampaigns)
		r.Get("/campaigns/{campaignId}", campaignService.GetCampaign)
		r.Get("/campaigns/{campaignId}/donations", donationService.ListDonations)
		r.Get("/campaigns/{campaignId}/balance", donationService.CampaignBalanceEnquiry)
		r.Get("/c/{code}", campaignService.ResolveShareCode)
		r.Get("/payout-banks", bankService.GetPayoutBanks)

		// Payment provider callbacks, authenticated by signature
		r.Post("/webhooks/stripe", webhookHandler.HandleStripeWebhook)
		r.Post("/donations/complete", donationService.CompleteDonation)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware(redisClient))

			r.Get("/auth/account", authService.GetUserAccount)

			r.Post("/campaigns", campaignService.CreateCampaign)
			r.Put("/campaigns/{campaignId}/payout-destination", campaignService.SetPayoutDestination)
			r.Post("/campaigns/{campaignId}/share", campaignService.GenerateShareCode)

			r.Post("/campaigns/{campaignId}/donations", donationService.CreateDonation)

			r.Post("/campaigns/{campaignId}/payouts", payoutService.RequestPayout)
			r.Get("/campaigns/{campaignId}/payouts", payoutService.ListPayouts)
			r.Get("/payouts/{payoutId}", payoutService.GetPayout)
			r.Get("/payouts/{payoutId}/instruction", disbursementService.GetDisbursementInstruction)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
