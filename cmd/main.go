package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/auth"
	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/events"
	"marketplace/internal/handlers"
	"marketplace/internal/jobs"
	"marketplace/internal/lock"
	"marketplace/internal/mailer"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	settings := repository.NewSettingsRepository(db, cfg.Affiliate.DefaultMinimumWithdrawal)
	if err := settings.EnsureDefaults(context.Background()); err != nil {
		log.Fatalf("Failed to initialise platform settings: %v", err)
	}

	// Redis backs cross-instance locks and the OTP request cap when configured
	rdb, err := database.ConnectRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	var otpLimiter services.OtpLimiter
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, "affiliate:lock:", 30*time.Second)
		otpLimiter = services.NewRedisOtpLimiter(rdb, cfg.Affiliate.OtpMaxRequestsPerHour, time.Hour)
	}

	var publisher events.Publisher = events.LogPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, nil)
		if err != nil {
			log.Fatalf("Failed to create kafka publisher: %v", err)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Printf("Publishing affiliate events to kafka topic %s", cfg.Kafka.Topic)
	}

	mail := mailer.New(cfg.Mail)

	// Initialize services
	referralService := services.NewReferralService(db, locker, publisher, cfg.Affiliate.ReferralCodePrefix)
	commissionService := services.NewCommissionService(db, referralService, publisher)
	balanceService := services.NewBalanceService(db, settings)
	withdrawalService := services.NewWithdrawalService(db, settings, locker, publisher, mail)
	paymentMethodService := services.NewPaymentMethodService(db, mail, otpLimiter, publisher, cfg.Affiliate.OtpTTL)

	// Initialize handlers
	affiliateHandler := handlers.NewAffiliateHandler(
		referralService,
		commissionService,
		balanceService,
		withdrawalService,
		paymentMethodService,
	)
	referralHandler := handlers.NewReferralHandler(referralService)
	orderHookHandler := handlers.NewOrderHookHandler(commissionService)
	adminHandler := handlers.NewAdminHandler(settings, commissionService, withdrawalService, paymentMethodService)

	clickLimiter := middleware.NewRateLimiter(cfg.Affiliate.ClickRatePerSecond, cfg.Affiliate.ClickBurst)
	stopCleanup := make(chan struct{})
	go clickLimiter.RunCleanup(time.Minute, stopCleanup)

	// Start background jobs
	jobCtx, stopJobs := context.WithCancel(context.Background())
	otpCleanup := jobs.NewOtpCleanupJob(paymentMethodService, 24*time.Hour)
	otpCleanup.Start(jobCtx, cfg.Affiliate.OtpCleanupInterval)
	log.Println("OTP cleanup job started")

	router := handlers.NewRouter(handlers.Router{
		Affiliate:      affiliateHandler,
		Referral:       referralHandler,
		OrderHooks:     orderHookHandler,
		Admin:          adminHandler,
		ClickLimiter:   clickLimiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopJobs()
	close(stopCleanup)

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
