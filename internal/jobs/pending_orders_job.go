package jobs

import (
	"context"
	"time"

	"github.com/sn-foods/commerce-api/internal/domain"
	"go.uber.org/zap"
)

// PendingOrderReminderJobName is the name of the pending order reminder job
const PendingOrderReminderJobName = "pending_order_reminder"

// PendingOrderSource lists orders waiting for a decision.
// This interface allows the job to call the repository without importing it directly.
type PendingOrderSource interface {
	PendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Order, error)
}

// PendingOrderReminderJob flags orders that have sat in pending longer than
// the configured maximum age so the sales team notices them. The job only
// reports; it never changes order state.
type PendingOrderReminderJob struct {
	orders  PendingOrderSource
	maxAge  time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

// NewPendingOrderReminderJob creates a new pending order reminder job.
func NewPendingOrderReminderJob(orders PendingOrderSource, maxAge, timeout time.Duration, logger *zap.Logger) *PendingOrderReminderJob {
	return &PendingOrderReminderJob{
		orders:  orders,
		maxAge:  maxAge,
		timeout: timeout,
		logger:  logger,
	}
}

// Run executes the reminder check.
// This is called by the scheduler according to the cron expression.
func (j *PendingOrderReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	cutoff := start.Add(-j.maxAge)

	overdue, err := j.orders.PendingOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("pending order reminder check failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if len(overdue) == 0 {
		j.logger.Debug("no overdue pending orders",
			zap.Duration("max_age", j.maxAge))
		return
	}

	for _, order := range overdue {
		j.logger.Warn("order awaiting decision past threshold",
			zap.String("order_id", order.ID.String()),
			zap.String("order_number", order.OrderNumber),
			zap.Float64("total_amount", order.TotalAmount),
			zap.Duration("age", start.Sub(order.CreatedAt)),
		)
	}

	j.logger.Info("pending order reminder check completed",
		zap.Int("overdue_count", len(overdue)),
		zap.Duration("max_age", j.maxAge),
		zap.Duration("duration", time.Since(start)))
}

// RegisterPendingOrderReminderJob registers the reminder job with the scheduler.
// The cronExpr should be a valid cron expression (e.g., "0 0 * * * *" for the top of every hour).
func RegisterPendingOrderReminderJob(scheduler *Scheduler, orders PendingOrderSource, logger *zap.Logger, cronExpr string, maxAge, timeout time.Duration) error {
	job := NewPendingOrderReminderJob(orders, maxAge, timeout, logger)
	return scheduler.AddJob(PendingOrderReminderJobName, cronExpr, job.Run)
}
