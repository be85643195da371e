package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sn-foods/commerce-api/internal/auth"
	"github.com/sn-foods/commerce-api/internal/config"
	"github.com/sn-foods/commerce-api/internal/database"
	"github.com/sn-foods/commerce-api/internal/erp"
	"github.com/sn-foods/commerce-api/internal/http/handler"
	"github.com/sn-foods/commerce-api/internal/http/middleware"
	"github.com/sn-foods/commerce-api/internal/http/router"
	"github.com/sn-foods/commerce-api/internal/jobs"
	"github.com/sn-foods/commerce-api/internal/logger"
	"github.com/sn-foods/commerce-api/internal/notify"
	"github.com/sn-foods/commerce-api/internal/repository"
	"github.com/sn-foods/commerce-api/internal/service"
	"github.com/sn-foods/commerce-api/internal/storage"
	"go.uber.org/zap"
)

// @title SN Foods Commerce API
// @version 1.0
// @description Order, catalog and account management API for SN Foods distribution

// @contact.name API Support
// @contact.email support@snfoods.example

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Connect to database with retry logic
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize storage for product images
	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Initialize ERP connection (optional - for invoice status lookups)
	// The connection is read-only and the app continues without it
	var erpClient *erp.Client
	if cfg.ERP.Enabled {
		erpClient, err = erp.NewClient(&cfg.ERP, log)
		if err != nil {
			log.Warn("ERP connection failed, continuing without it",
				zap.Error(err),
			)
		} else if erpClient != nil {
			log.Info("ERP connected successfully",
				zap.Int("max_open_conns", cfg.ERP.MaxOpenConns),
				zap.Int("query_timeout_seconds", cfg.ERP.QueryTimeout),
			)
		}
	} else {
		log.Info("ERP not configured, skipping",
			zap.Bool("enabled", cfg.ERP.Enabled),
		)
	}

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	relationshipRepo := repository.NewRelationshipRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	historyRepo := repository.NewOrderStatusHistoryRepository(db)
	sequenceRepo := repository.NewOrderSequenceRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	// Initialize services
	mailer := notify.NewClient(&cfg.Email, log)

	sequenceService := service.NewSequenceService(sequenceRepo, log)
	profileService := service.NewProfileService(profileRepo, relationshipRepo, invitationRepo, mailer, log)
	accountService := service.NewAccountService(accountRepo, relationshipRepo, profileRepo, sequenceService, log)
	productService := service.NewProductService(productRepo, categoryRepo, fileStorage, log)
	notificationService := service.NewNotificationService(profileRepo, relationshipRepo, orderRepo, mailer, log)

	orderService := service.NewOrderService(
		orderRepo,
		historyRepo,
		productRepo,
		profileRepo,
		accountRepo,
		sequenceService,
		notificationService,
		log,
	)

	dashboardService := service.NewDashboardService(orderRepo, productRepo, accountRepo, profileRepo, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg, profileService, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	orderHandler := handler.NewOrderHandler(orderService, notificationService, erpClient, log)
	accountHandler := handler.NewAccountHandler(accountService, log)
	productHandler := handler.NewProductHandler(productService, cfg.Storage.MaxUploadSizeMB, log)
	profileHandler := handler.NewProfileHandler(profileService, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		erpClient,
		authMiddleware,
		rateLimiter,
		orderHandler,
		accountHandler,
		productHandler,
		profileHandler,
		dashboardHandler,
	)

	// Initialize and start scheduler for background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)

		maxAge := time.Duration(cfg.Jobs.PendingOrderMaxAgeHours) * time.Hour
		if err := jobs.RegisterPendingOrderReminderJob(
			scheduler,
			orderRepo,
			log,
			cfg.Jobs.PendingOrderReminderCron,
			maxAge,
			5*time.Minute,
		); err != nil {
			log.Error("Failed to register pending order reminder job", zap.Error(err))
		} else {
			log.Info("Registered pending order reminder job",
				zap.String("cron_expr", cfg.Jobs.PendingOrderReminderCron),
				zap.Duration("max_age", maxAge),
			)
		}

		// Invoice linking needs the MYOB mirror
		if erpClient.IsEnabled() {
			if err := jobs.RegisterInvoiceLinkJob(
				scheduler,
				orderRepo,
				erpClient,
				log,
				cfg.Jobs.InvoiceLinkCron,
				5*time.Minute,
			); err != nil {
				log.Error("Failed to register invoice link job", zap.Error(err))
			} else {
				log.Info("Registered invoice link job",
					zap.String("cron_expr", cfg.Jobs.InvoiceLinkCron),
				)
			}
		}

		scheduler.Start()
	} else {
		log.Info("Background jobs disabled")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Stop scheduler if running
		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Close ERP connection if initialized
		if erpClient != nil {
			if err := erpClient.Close(); err != nil {
				log.Warn("Error closing ERP connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
