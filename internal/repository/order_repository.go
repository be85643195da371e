package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"gorm.io/gorm"
)

// OrderRepository handles database operations for orders
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// DB exposes the underlying connection for transaction composition
func (r *OrderRepository) DB() *gorm.DB {
	return r.db
}

// Create persists a new order. Items and the initial history row are
// written by the service inside the same transaction.
func (r *OrderRepository) Create(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(order).Error
}

// GetByID returns an order with its items, history and related parties
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at DESC")
		}).
		Preload("Customer").
		Preload("Account").
		Preload("OrderedByContact").
		Preload("Approver").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByOrderNumber returns an order by its generated number
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "order_number = ?", orderNumber).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns orders matching the filter, newest first
func (r *OrderRepository) List(ctx context.Context, filter *domain.OrderFilter) ([]domain.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Order{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var orders []domain.Order
	err := query.
		Preload("Items").
		Preload("Account").
		Preload("Customer").
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListVisibleTo returns orders the given profile may see: their own customer
// orders plus orders of accounts where they hold a can_view_orders
// relationship.
func (r *OrderRepository) ListVisibleTo(ctx context.Context, profileID uuid.UUID, filter *domain.OrderFilter) ([]domain.Order, int64, error) {
	accountIDs := r.db.Model(&domain.ContactAccountRelationship{}).
		Select("account_id").
		Where("contact_id = ? AND can_view_orders = ?", profileID, true)

	query := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("customer_id = ? OR account_id IN (?)", profileID, accountIDs)

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var orders []domain.Order
	err := query.
		Preload("Items").
		Preload("Account").
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatusIf performs a conditional status write: the row is updated
// only when it still holds the expected status. Returns the number of rows
// affected; zero means a concurrent writer won.
func (r *OrderRepository) UpdateStatusIf(
	ctx context.Context,
	tx *gorm.DB,
	orderID uuid.UUID,
	expected domain.OrderStatus,
	updates map[string]interface{},
) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", orderID, expected).
		Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update order status: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ApprovedWithoutInvoice returns approved orders that have no ERP invoice
// reference yet, oldest first
func (r *OrderRepository) ApprovedWithoutInvoice(ctx context.Context, limit int) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND (myob_invoice_id = '' OR myob_invoice_id IS NULL)", domain.OrderStatusApproved).
		Order("approved_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// SetInvoiceID records the ERP invoice reference on an order
func (r *OrderRepository) SetInvoiceID(ctx context.Context, orderID uuid.UUID, invoiceID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", orderID).
		Update("myob_invoice_id", invoiceID).Error
}

// CountByStatus returns order counts grouped by status
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	type row struct {
		Status domain.OrderStatus
		Count  int64
	}
	var rows []row

	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.OrderStatus]int64)
	for _, rr := range rows {
		counts[rr.Status] = rr.Count
	}
	return counts, nil
}

// SumTotalByStatus returns the summed total_amount of orders in a status
func (r *OrderRepository) SumTotalByStatus(ctx context.Context, status domain.OrderStatus) (float64, error) {
	var sum *float64
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Select("SUM(total_amount)").
		Where("status = ?", status).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

// PendingOlderThan returns orders that have sat pending since before the cutoff
func (r *OrderRepository) PendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// Exists reports whether an order with the given id exists
func (r *OrderRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Select("id").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
