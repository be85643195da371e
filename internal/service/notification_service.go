package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Mailer sends a formatted approval email to a resolved recipient
type Mailer interface {
	SendOrderApproval(ctx context.Context, recipient domain.Recipient, order *domain.Order) error
}

// NotificationService resolves who should be told about an order and
// dispatches the approval email through the configured mailer.
type NotificationService struct {
	profileRepo      *repository.ProfileRepository
	relationshipRepo *repository.RelationshipRepository
	orderRepo        *repository.OrderRepository
	mailer           Mailer
	logger           *zap.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	profileRepo *repository.ProfileRepository,
	relationshipRepo *repository.RelationshipRepository,
	orderRepo *repository.OrderRepository,
	mailer Mailer,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		profileRepo:      profileRepo,
		relationshipRepo: relationshipRepo,
		orderRepo:        orderRepo,
		mailer:           mailer,
		logger:           logger,
	}
}

// ResolveRecipient determines the notification target for an order.
// Precedence, first match wins:
//  1. the order's customer profile
//  2. the primary (or longest-standing) contact of the order's account
//
// Orders naming neither party resolve to ErrNoRecipient.
func (s *NotificationService) ResolveRecipient(ctx context.Context, order *domain.Order) (*domain.Recipient, error) {
	if order.CustomerID != nil {
		profile, err := s.profileRepo.GetByID(ctx, *order.CustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: customer %s", ErrProfileNotFound, order.CustomerID)
			}
			return nil, fmt.Errorf("failed to load customer profile: %w", err)
		}
		return &domain.Recipient{
			Email: profile.Email,
			Name:  profile.DisplayName(),
		}, nil
	}

	if order.AccountID != nil {
		rel, err := s.relationshipRepo.FindPrimaryForAccount(ctx, *order.AccountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: account %s has no contacts", ErrNoRecipient, order.AccountID)
			}
			return nil, fmt.Errorf("failed to load account contacts: %w", err)
		}
		if rel.Contact == nil {
			return nil, fmt.Errorf("%w: contact profile missing for relationship %s", ErrNoRecipient, rel.ID)
		}
		return &domain.Recipient{
			Email: rel.Contact.Email,
			Name:  rel.Contact.DisplayName(),
		}, nil
	}

	return nil, ErrNoRecipient
}

// NotifyOrderApproved resolves the recipient and sends the approval email
func (s *NotificationService) NotifyOrderApproved(ctx context.Context, order *domain.Order) error {
	recipient, err := s.ResolveRecipient(ctx, order)
	if err != nil {
		return err
	}

	if err := s.mailer.SendOrderApproval(ctx, *recipient, order); err != nil {
		return err
	}

	s.logger.Info("approval email dispatched",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("recipient", recipient.Email),
	)
	return nil
}

// HandleApprovalEvent processes an order-approved webhook event. The event
// only references the order, by row id or by generated number; the order is
// reloaded before dispatch so the email reflects stored values.
func (s *NotificationService) HandleApprovalEvent(ctx context.Context, event *domain.OrderApprovedEvent) error {
	var (
		order *domain.Order
		err   error
	)
	switch {
	case event.OrderID != uuid.Nil:
		order, err = s.orderRepo.GetByID(ctx, event.OrderID)
	case event.OrderNumber != "":
		order, err = s.orderRepo.GetByOrderNumber(ctx, event.OrderNumber)
	default:
		return fmt.Errorf("%w: event carries no order reference", ErrInvalidInput)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	return s.NotifyOrderApproved(ctx, order)
}
