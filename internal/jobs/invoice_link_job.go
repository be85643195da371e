package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"go.uber.org/zap"
)

// InvoiceLinkJobName is the name of the ERP invoice link job
const InvoiceLinkJobName = "erp_invoice_link"

// invoiceLinkBatchSize caps how many orders one run tries to link
const invoiceLinkBatchSize = 50

// InvoiceSource finds the invoice raised for an order in the ERP mirror.
type InvoiceSource interface {
	FindInvoiceByOrderNumber(ctx context.Context, orderNumber string) (*domain.InvoiceStatus, error)
}

// InvoiceOrderStore lists orders awaiting an invoice reference and records
// the reference once found.
type InvoiceOrderStore interface {
	ApprovedWithoutInvoice(ctx context.Context, limit int) ([]domain.Order, error)
	SetInvoiceID(ctx context.Context, orderID uuid.UUID, invoiceID string) error
}

// InvoiceLinkJob matches approved orders against the MYOB mirror and stores
// the invoice reference on the order. The accounting export runs outside
// this system, so an order without a mirror invoice is simply retried on
// the next run.
type InvoiceLinkJob struct {
	orders   InvoiceOrderStore
	invoices InvoiceSource
	timeout  time.Duration
	logger   *zap.Logger
}

// NewInvoiceLinkJob creates a new invoice link job.
func NewInvoiceLinkJob(orders InvoiceOrderStore, invoices InvoiceSource, timeout time.Duration, logger *zap.Logger) *InvoiceLinkJob {
	return &InvoiceLinkJob{
		orders:   orders,
		invoices: invoices,
		timeout:  timeout,
		logger:   logger,
	}
}

// Run executes one linking pass.
// This is called by the scheduler according to the cron expression.
func (j *InvoiceLinkJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()

	pending, err := j.orders.ApprovedWithoutInvoice(ctx, invoiceLinkBatchSize)
	if err != nil {
		j.logger.Error("failed to list orders awaiting invoice",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}
	if len(pending) == 0 {
		return
	}

	linked := 0
	for _, order := range pending {
		invoice, err := j.invoices.FindInvoiceByOrderNumber(ctx, order.OrderNumber)
		if err != nil {
			j.logger.Warn("ERP invoice lookup failed",
				zap.String("order_id", order.ID.String()),
				zap.String("order_number", order.OrderNumber),
				zap.Error(err))
			continue
		}
		if invoice == nil {
			// Not exported to MYOB yet
			continue
		}

		if err := j.orders.SetInvoiceID(ctx, order.ID, invoice.InvoiceID); err != nil {
			j.logger.Error("failed to record invoice reference",
				zap.String("order_id", order.ID.String()),
				zap.String("invoice_id", invoice.InvoiceID),
				zap.Error(err))
			continue
		}

		linked++
		j.logger.Info("order linked to ERP invoice",
			zap.String("order_id", order.ID.String()),
			zap.String("order_number", order.OrderNumber),
			zap.String("invoice_id", invoice.InvoiceID))
	}

	j.logger.Info("invoice link pass completed",
		zap.Int("checked", len(pending)),
		zap.Int("linked", linked),
		zap.Duration("duration", time.Since(start)))
}

// RegisterInvoiceLinkJob registers the invoice link job with the scheduler.
func RegisterInvoiceLinkJob(scheduler *Scheduler, orders InvoiceOrderStore, invoices InvoiceSource, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewInvoiceLinkJob(orders, invoices, timeout, logger)
	return scheduler.AddJob(InvoiceLinkJobName, cronExpr, job.Run)
}
