package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/auth"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// validStatusTransitions defines the allowed order status transitions.
// Statuses not present here accept no transitions; the fulfilment statuses
// are reserved and currently unreachable.
var validStatusTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending: {
		domain.OrderStatusApproved,
		domain.OrderStatusRejected,
	},
}

// isValidTransition checks if a status transition is allowed
func isValidTransition(from, to domain.OrderStatus) bool {
	allowed, ok := validStatusTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApprovalNotifier dispatches the approval notification for an order.
// Dispatch is best-effort; errors are reported, never fatal.
type ApprovalNotifier interface {
	NotifyOrderApproved(ctx context.Context, order *domain.Order) error
}

// OrderService implements order placement and the status lifecycle
type OrderService struct {
	orderRepo   *repository.OrderRepository
	historyRepo *repository.OrderStatusHistoryRepository
	productRepo *repository.ProductRepository
	profileRepo *repository.ProfileRepository
	accountRepo *repository.AccountRepository
	sequences   *SequenceService
	notifier    ApprovalNotifier
	logger      *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo *repository.OrderRepository,
	historyRepo *repository.OrderStatusHistoryRepository,
	productRepo *repository.ProductRepository,
	profileRepo *repository.ProfileRepository,
	accountRepo *repository.AccountRepository,
	sequences *SequenceService,
	notifier ApprovalNotifier,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		historyRepo: historyRepo,
		productRepo: productRepo,
		profileRepo: profileRepo,
		accountRepo: accountRepo,
		sequences:   sequences,
		notifier:    notifier,
		logger:      logger,
	}
}

// Create places a new order from a cart. The order row, its items and the
// initial history entry are written in one transaction; nothing is
// persisted when any part fails.
func (s *OrderService) Create(ctx context.Context, req *domain.CreateOrderRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, line.ProductID)
		}
		if line.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidUnitPrice, line.ProductID)
		}
	}
	if err := s.validateOwnership(ctx, req); err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		product, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
			}
			return nil, fmt.Errorf("failed to load product: %w", err)
		}

		unit := line.Unit
		if unit == "" {
			unit = product.Unit
		}

		items = append(items, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Unit:        unit,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  domain.Round2(line.UnitPrice * float64(line.Quantity)),
		})
	}

	totals := domain.ComputeTotals(items)

	orderNumber, err := s.sequences.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		OrderNumber:        orderNumber,
		Status:             domain.OrderStatusPending,
		CustomerID:         req.CustomerID,
		AccountID:          req.AccountID,
		OrderedByContactID: req.OrderedByContactID,
		Subtotal:           totals.Subtotal,
		TaxAmount:          totals.TaxAmount,
		TotalAmount:        totals.TotalAmount,
		Notes:              req.Notes,
	}

	var changedBy *uuid.UUID
	changedByName := "System"
	if userCtx, ok := auth.FromContext(ctx); ok {
		id := userCtx.UserID
		changedBy = &id
		changedByName = userCtx.DisplayName
	}

	err = s.orderRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}

		err := s.historyRepo.RecordTransition(ctx, tx, order.ID, nil, domain.OrderStatusPending, changedBy, changedByName, "Order placed")
		if err != nil {
			return fmt.Errorf("failed to record order creation: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Items = items

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total_amount", order.TotalAmount),
		zap.Int("items", len(items)),
	)

	return order, nil
}

// validateOwnership enforces that exactly one of customer or account
// contact owns the order, and that the referenced parties exist.
func (s *OrderService) validateOwnership(ctx context.Context, req *domain.CreateOrderRequest) error {
	isCustomer := req.CustomerID != nil
	isAccount := req.AccountID != nil || req.OrderedByContactID != nil

	if isCustomer == isAccount {
		return ErrInvalidOrderContext
	}
	if isAccount && (req.AccountID == nil || req.OrderedByContactID == nil) {
		return ErrInvalidOrderContext
	}

	if isCustomer {
		if _, err := s.profileRepo.GetByID(ctx, *req.CustomerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: customer %s", ErrProfileNotFound, req.CustomerID)
			}
			return fmt.Errorf("failed to load customer: %w", err)
		}
		return nil
	}

	if _, err := s.accountRepo.GetByID(ctx, *req.AccountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: account %s", ErrAccountNotFound, req.AccountID)
		}
		return fmt.Errorf("failed to load account: %w", err)
	}
	if _, err := s.profileRepo.GetByID(ctx, *req.OrderedByContactID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: contact %s", ErrProfileNotFound, req.OrderedByContactID)
		}
		return fmt.Errorf("failed to load contact: %w", err)
	}
	return nil
}

// UpdateStatus applies a status transition to an order. The write is
// conditional on the status the caller saw, so a concurrent transition
// surfaces as ErrOrderStatusConflict instead of silently overwriting.
// Exactly one history row is recorded per successful transition.
//
// When the new status is approved, the approval notification is dispatched
// after the transaction commits. Dispatch failure is logged and reported in
// the result but never reverts the transition.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus domain.OrderStatus, notes string) (*domain.StatusUpdateResult, error) {
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, newStatus)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	oldStatus := order.Status
	if !isValidTransition(oldStatus, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, oldStatus, newStatus)
	}

	var changedBy *uuid.UUID
	changedByName := "System"
	if userCtx, ok := auth.FromContext(ctx); ok {
		id := userCtx.UserID
		changedBy = &id
		changedByName = userCtx.DisplayName
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     newStatus,
		"updated_at": now,
	}
	if newStatus == domain.OrderStatusApproved {
		updates["approved_by"] = changedBy
		updates["approved_at"] = now
	}

	err = s.orderRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.orderRepo.UpdateStatusIf(ctx, tx, orderID, oldStatus, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrOrderStatusConflict
		}

		from := oldStatus
		err = s.historyRepo.RecordTransition(ctx, tx, orderID, &from, newStatus, changedBy, changedByName, notes)
		if err != nil {
			return fmt.Errorf("failed to record status transition: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = newStatus
	if newStatus == domain.OrderStatusApproved {
		order.ApprovedBy = changedBy
		order.ApprovedAt = &now
	}

	s.logger.Info("order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(newStatus)),
		zap.String("changed_by", changedByName),
	)

	result := &domain.StatusUpdateResult{Order: order}

	if newStatus == domain.OrderStatusApproved && s.notifier != nil {
		if err := s.notifier.NotifyOrderApproved(ctx, order); err != nil {
			s.logger.Warn("approval notification failed",
				zap.String("order_id", orderID.String()),
				zap.String("order_number", order.OrderNumber),
				zap.Error(err),
			)
			result.NotificationError = err.Error()
		} else {
			result.NotificationSent = true
		}
	}

	return result, nil
}

// GetByID returns an order with items and history preloaded
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// List returns orders matching the filter. Non-staff callers only see
// their own orders and orders of accounts they can view.
func (s *OrderService) List(ctx context.Context, filter *domain.OrderFilter) ([]domain.Order, int64, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, 0, ErrUnauthorized
	}
	if userCtx.IsStaff() {
		return s.orderRepo.List(ctx, filter)
	}
	return s.orderRepo.ListVisibleTo(ctx, userCtx.UserID, filter)
}

// GetStatusHistory returns the append-only transition trail, newest first
func (s *OrderService) GetStatusHistory(ctx context.Context, orderID uuid.UUID) ([]domain.OrderStatusHistory, error) {
	exists, err := s.orderRepo.Exists(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrOrderNotFound
	}
	return s.historyRepo.GetByOrderID(ctx, orderID)
}
