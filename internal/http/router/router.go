package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sn-foods/commerce-api/internal/auth"
	"github.com/sn-foods/commerce-api/internal/config"
	"github.com/sn-foods/commerce-api/internal/database"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/erp"
	"github.com/sn-foods/commerce-api/internal/http/handler"
	"github.com/sn-foods/commerce-api/internal/http/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Router struct {
	cfg              *config.Config
	logger           *zap.Logger
	db               *gorm.DB
	erpClient        *erp.Client
	authMiddleware   *auth.Middleware
	rateLimiter      *middleware.RateLimiter
	orderHandler     *handler.OrderHandler
	accountHandler   *handler.AccountHandler
	productHandler   *handler.ProductHandler
	profileHandler   *handler.ProfileHandler
	dashboardHandler *handler.DashboardHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	erpClient *erp.Client,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	orderHandler *handler.OrderHandler,
	accountHandler *handler.AccountHandler,
	productHandler *handler.ProductHandler,
	profileHandler *handler.ProfileHandler,
	dashboardHandler *handler.DashboardHandler,
) *Router {
	return &Router{
		cfg:              cfg,
		logger:           logger,
		db:               db,
		erpClient:        erpClient,
		authMiddleware:   authMiddleware,
		rateLimiter:      rateLimiter,
		orderHandler:     orderHandler,
		accountHandler:   accountHandler,
		productHandler:   productHandler,
		profileHandler:   profileHandler,
		dashboardHandler: dashboardHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(r.Context(), rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
				"max_idle_closed":      stats.MaxIdleClosed,
				"max_lifetime_closed":  stats.MaxLifetimeClosed,
			},
		})
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		// Check database
		if err := database.HealthCheck(r.Context(), rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		// Check ERP mirror when configured; a degraded mirror does not
		// block readiness because order flow works without it
		if rt.erpClient.IsEnabled() {
			checks["erp"] = rt.erpClient.HealthCheck(r.Context())
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "healthy",
				"checks": checks,
			})
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"checks": checks,
			})
		}
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// All routes require authentication; the webhook caller and other
		// integrations authenticate with the admin API key
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)

			// Own profile
			r.Route("/profiles", func(r chi.Router) {
				r.Get("/me", rt.profileHandler.GetMe)
				r.Put("/me", rt.profileHandler.UpdateMe)
				r.Get("/me/accounts", rt.profileHandler.GetMyAccounts)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireStaff)
					r.Get("/{id}", rt.profileHandler.GetByID)
				})
				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireRole(domain.RoleAdmin))
					r.Put("/{id}/role", rt.profileHandler.SetRole)
					r.Post("/invitations", rt.profileHandler.Invite)
					r.Get("/invitations", rt.profileHandler.ListInvitations)
				})
			})

			// Catalog: browsing is open to every authenticated user,
			// mutation is back-office only
			r.Route("/products", func(r chi.Router) {
				r.Get("/", rt.productHandler.List)
				r.Get("/{id}", rt.productHandler.GetByID)
				r.Get("/{id}/image", rt.productHandler.DownloadImage)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireStaff)
					r.Post("/", rt.productHandler.Create)
					r.Put("/{id}", rt.productHandler.Update)
					r.Delete("/{id}", rt.productHandler.Deactivate)
					r.Post("/import", rt.productHandler.ImportCSV)
					r.Post("/{id}/image", rt.productHandler.UploadImage)
				})
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", rt.productHandler.ListCategories)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireStaff)
					r.Post("/", rt.productHandler.CreateCategory)
				})
			})

			// Orders
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", rt.orderHandler.List)
				r.Post("/", rt.orderHandler.Create)
				r.Get("/{id}", rt.orderHandler.GetByID)
				r.Get("/{id}/history", rt.orderHandler.GetHistory)
				r.Get("/{id}/invoice", rt.orderHandler.GetInvoice)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireStaff)
					r.Put("/{id}/status", rt.orderHandler.UpdateStatus)
				})
			})

			// Webhooks from internal automation
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireStaff)
				r.Post("/webhooks/order-approved", rt.orderHandler.OrderApprovedWebhook)
			})

			// Accounts (back-office only)
			r.Route("/accounts", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireStaff)
				r.Get("/", rt.accountHandler.List)
				r.Post("/", rt.accountHandler.Create)
				r.Get("/{id}", rt.accountHandler.GetByID)
				r.Put("/{id}", rt.accountHandler.Update)
				r.Delete("/{id}", rt.accountHandler.Deactivate)
				r.Get("/{id}/contacts", rt.accountHandler.ListContacts)
				r.Post("/{id}/contacts", rt.accountHandler.AddContact)
				r.Delete("/{id}/contacts/{relationshipId}", rt.accountHandler.RemoveContact)
			})

			// Dashboard
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireStaff)
				r.Get("/dashboard/stats", rt.dashboardHandler.GetStats)
			})
		})
	})

	return r
}
