package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"gorm.io/gorm"
)

// OrderStatusHistoryRepository handles the append-only status audit trail.
// Rows are only ever inserted.
type OrderStatusHistoryRepository struct {
	db *gorm.DB
}

// NewOrderStatusHistoryRepository creates a new OrderStatusHistoryRepository
func NewOrderStatusHistoryRepository(db *gorm.DB) *OrderStatusHistoryRepository {
	return &OrderStatusHistoryRepository{db: db}
}

// GetByOrderID returns all status history for an order, newest first
func (r *OrderStatusHistoryRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]domain.OrderStatusHistory, error) {
	var history []domain.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at DESC").
		Find(&history).Error
	return history, err
}

// RecordTransition appends a status history record. When tx is non-nil the
// row joins the caller's transaction, so a failed transition never leaves a
// stray audit entry.
func (r *OrderStatusHistoryRepository) RecordTransition(
	ctx context.Context,
	tx *gorm.DB,
	orderID uuid.UUID,
	oldStatus *domain.OrderStatus,
	newStatus domain.OrderStatus,
	changedBy *uuid.UUID,
	changedByName string,
	notes string,
) error {
	if tx == nil {
		tx = r.db
	}
	history := &domain.OrderStatusHistory{
		OrderID:       orderID,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
		ChangedBy:     changedBy,
		ChangedByName: changedByName,
		Notes:         notes,
		ChangedAt:     time.Now(),
	}
	return tx.WithContext(ctx).Create(history).Error
}
