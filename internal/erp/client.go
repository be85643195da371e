// Package erp provides read-only connectivity to the MS SQL Server mirror
// of the MYOB accounting system. Orders exported to MYOB carry an invoice
// reference; this package looks up the invoice's payment status.
package erp

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // MS SQL Server driver
	"github.com/sn-foods/commerce-api/internal/config"
	"github.com/sn-foods/commerce-api/internal/domain"
	"go.uber.org/zap"
)

const (
	// Default retry configuration for connection attempts
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultBackoffFactor  = 2.0

	// Default health check timeout
	defaultHealthCheckTimeout = 5 * time.Second
)

// Client provides read-only access to the MYOB mirror.
// It manages connection pooling and provides invoice lookups.
type Client struct {
	db           *sql.DB
	config       *config.ERPConfig
	logger       *zap.Logger
	queryTimeout time.Duration
}

// HealthStatus represents the health check result for the ERP connection
type HealthStatus struct {
	Status     string        `json:"status"`
	Latency    time.Duration `json:"latency_ms"`
	Error      string        `json:"error,omitempty"`
	MaxOpen    int           `json:"max_open_connections"`
	Open       int           `json:"open_connections"`
	InUse      int           `json:"in_use"`
	Idle       int           `json:"idle"`
	WaitCount  int64         `json:"wait_count"`
	WaitTimeMs int64         `json:"wait_time_ms"`
}

// NewClient creates a new ERP client with the given configuration.
// Returns nil if the ERP connection is not enabled or not configured.
// The client establishes a connection pool with retry logic for transient failures.
func NewClient(cfg *config.ERPConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("ERP connection disabled")
		return nil, nil
	}

	// Validate required configuration
	if cfg.URL == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("ERP enabled but missing credentials, skipping connection",
			zap.Bool("url_present", cfg.URL != ""),
			zap.Bool("user_present", cfg.User != ""),
			zap.Bool("password_present", cfg.Password != ""),
		)
		return nil, nil
	}

	logger.Info("Initializing ERP connection",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Int("conn_max_lifetime_seconds", cfg.ConnMaxLifetime),
		zap.Int("query_timeout_seconds", cfg.QueryTimeout),
	)

	// Build connection string
	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	// Attempt connection with retry logic
	var db *sql.DB
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		logger.Info("Attempting ERP connection",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", defaultMaxRetries),
		)

		db, err = sql.Open("sqlserver", connStr)
		if err != nil {
			logger.Warn("Failed to open ERP connection",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			if attempt < defaultMaxRetries {
				time.Sleep(backoff)
				backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
			}
			continue
		}

		// Configure connection pool
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

		// Test connection with ping
		ctx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
		err = db.PingContext(ctx)
		cancel()

		if err != nil {
			logger.Warn("ERP ping failed",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			_ = db.Close()
			if attempt < defaultMaxRetries {
				time.Sleep(backoff)
				backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
			}
			continue
		}

		// Connection successful
		logger.Info("ERP connection established successfully",
			zap.Int("attempts_taken", attempt),
		)

		return &Client{
			db:           db,
			config:       cfg,
			logger:       logger,
			queryTimeout: cfg.QueryTimeoutDuration(),
		}, nil
	}

	return nil, fmt.Errorf("failed to connect to ERP after %d attempts: %w", defaultMaxRetries, err)
}

// buildConnectionString constructs a SQL Server connection string from the config.
// URL format expected: host:port/database or host:port (uses default database)
func buildConnectionString(cfg *config.ERPConfig) (string, error) {
	// Parse URL format: host:port/database or host:port
	urlParts := strings.SplitN(cfg.URL, "/", 2)
	hostPort := urlParts[0]
	database := ""
	if len(urlParts) > 1 {
		database = urlParts[1]
	}

	// Parse host and port
	hostParts := strings.SplitN(hostPort, ":", 2)
	host := hostParts[0]
	port := "1433" // Default SQL Server port
	if len(hostParts) > 1 {
		port = hostParts[1]
	}

	// Build connection string using URL format
	query := url.Values{}
	query.Add("encrypt", "true")
	query.Add("TrustServerCertificate", "false")
	query.Add("connection timeout", "30")
	if database != "" {
		query.Add("database", database)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", host, port),
		RawQuery: query.Encode(),
	}

	return u.String(), nil
}

// Close gracefully closes the ERP connection.
// Should be called during application shutdown.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}

	c.logger.Info("Closing ERP connection")

	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close ERP connection", zap.Error(err))
		return fmt.Errorf("failed to close ERP connection: %w", err)
	}

	c.logger.Info("ERP connection closed successfully")
	return nil
}

// HealthCheck performs a health check on the ERP connection.
// Returns detailed status including connection pool statistics.
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if c == nil || c.db == nil {
		return &HealthStatus{
			Status: "disabled",
		}
	}

	start := time.Now()

	// Use provided context or create one with default timeout
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	stats := c.db.Stats()
	status := &HealthStatus{
		Latency:    latency,
		MaxOpen:    stats.MaxOpenConnections,
		Open:       stats.OpenConnections,
		InUse:      stats.InUse,
		Idle:       stats.Idle,
		WaitCount:  stats.WaitCount,
		WaitTimeMs: stats.WaitDuration.Milliseconds(),
	}

	if err != nil {
		c.logger.Warn("ERP health check failed",
			zap.Error(err),
			zap.Duration("latency", latency),
		)
		status.Status = "unhealthy"
		status.Error = err.Error()
	} else {
		status.Status = "healthy"
	}

	return status
}

// GetInvoice looks up an invoice in the MYOB mirror by its reference.
// Returns nil when the invoice does not exist (yet) in the mirror.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*domain.InvoiceStatus, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("ERP client not initialized")
	}

	// Apply default query timeout if context doesn't have a deadline
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	c.logger.Debug("Executing ERP invoice lookup",
		zap.String("invoice_id", invoiceID),
	)

	start := time.Now()

	const query = `SELECT invoice_number, status, amount_due, amount_paid, due_date, last_updated_at
FROM dbo.myob_invoice WHERE invoice_number = @p1`

	row := c.db.QueryRowContext(ctx, query, invoiceID)

	var inv domain.InvoiceStatus
	var dueDate, lastUpdated sql.NullTime
	err := row.Scan(&inv.InvoiceID, &inv.Status, &inv.AmountDue, &inv.AmountPaid, &dueDate, &lastUpdated)
	if err == sql.ErrNoRows {
		c.logger.Debug("ERP invoice not found",
			zap.String("invoice_id", invoiceID),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, nil
	}
	if err != nil {
		c.logger.Error("ERP invoice lookup failed",
			zap.Error(err),
			zap.String("invoice_id", invoiceID),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, fmt.Errorf("invoice lookup failed: %w", err)
	}

	if dueDate.Valid {
		inv.DueDate = &dueDate.Time
	}
	if lastUpdated.Valid {
		inv.LastUpdatedAt = &lastUpdated.Time
	}

	c.logger.Debug("ERP invoice lookup completed",
		zap.String("invoice_id", invoiceID),
		zap.Duration("duration", time.Since(start)),
	)

	return &inv, nil
}

// FindInvoiceByOrderNumber looks up the invoice raised for an order in the
// MYOB mirror. Orders are exported to MYOB with their generated number as
// the invoice reference, so this is how an order is first linked to its
// invoice. Returns nil when the order has not been invoiced yet.
func (c *Client) FindInvoiceByOrderNumber(ctx context.Context, orderNumber string) (*domain.InvoiceStatus, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("ERP client not initialized")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	const query = `SELECT TOP 1 invoice_number, status, amount_due, amount_paid, due_date, last_updated_at
FROM dbo.myob_invoice WHERE order_number = @p1 ORDER BY last_updated_at DESC`

	row := c.db.QueryRowContext(ctx, query, orderNumber)

	var inv domain.InvoiceStatus
	var dueDate, lastUpdated sql.NullTime
	err := row.Scan(&inv.InvoiceID, &inv.Status, &inv.AmountDue, &inv.AmountPaid, &dueDate, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("ERP invoice lookup by order number failed",
			zap.Error(err),
			zap.String("order_number", orderNumber),
		)
		return nil, fmt.Errorf("invoice lookup failed: %w", err)
	}

	if dueDate.Valid {
		inv.DueDate = &dueDate.Time
	}
	if lastUpdated.Valid {
		inv.LastUpdatedAt = &lastUpdated.Time
	}

	return &inv, nil
}

// IsEnabled returns true if the client is initialized and ready for queries.
func (c *Client) IsEnabled() bool {
	return c != nil && c.db != nil
}
