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

// AccountService manages business accounts and their contact relationships
type AccountService struct {
	accountRepo      *repository.AccountRepository
	relationshipRepo *repository.RelationshipRepository
	profileRepo      *repository.ProfileRepository
	sequences        *SequenceService
	logger           *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(
	accountRepo *repository.AccountRepository,
	relationshipRepo *repository.RelationshipRepository,
	profileRepo *repository.ProfileRepository,
	sequences *SequenceService,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accountRepo:      accountRepo,
		relationshipRepo: relationshipRepo,
		profileRepo:      profileRepo,
		sequences:        sequences,
		logger:           logger,
	}
}

// Create creates a new account with a generated account number
func (s *AccountService) Create(ctx context.Context, req *domain.CreateAccountRequest) (*domain.Account, error) {
	accountType := req.AccountType
	if accountType == "" {
		accountType = domain.AccountTypeBusiness
	}
	if !accountType.IsValid() {
		return nil, fmt.Errorf("%w: unknown account type %q", ErrInvalidInput, req.AccountType)
	}

	accountNumber, err := s.sequences.GenerateAccountNumber(ctx)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		AccountNumber:    accountNumber,
		Name:             req.Name,
		AccountType:      accountType,
		Email:            req.Email,
		Phone:            req.Phone,
		BillingAddress:   req.BillingAddress,
		BillingCity:      req.BillingCity,
		BillingPostcode:  req.BillingPostcode,
		BillingState:     req.BillingState,
		ShippingAddress:  req.ShippingAddress,
		ShippingCity:     req.ShippingCity,
		ShippingPostcode: req.ShippingPostcode,
		ShippingState:    req.ShippingState,
		CreditLimit:      req.CreditLimit,
		PaymentTerms:     req.PaymentTerms,
		Notes:            req.Notes,
		IsActive:         true,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account created",
		zap.String("account_id", account.ID.String()),
		zap.String("account_number", account.AccountNumber),
		zap.String("name", account.Name),
	)

	return account, nil
}

// GetByID returns an account with its contacts
func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// List returns active accounts matching an optional name search
func (s *AccountService) List(ctx context.Context, search string, limit, offset int) ([]domain.Account, int64, error) {
	return s.accountRepo.List(ctx, search, limit, offset)
}

// Update applies partial changes to an account
func (s *AccountService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateAccountRequest) (*domain.Account, error) {
	account, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.AccountType != nil {
		if !req.AccountType.IsValid() {
			return nil, fmt.Errorf("%w: unknown account type %q", ErrInvalidInput, *req.AccountType)
		}
		account.AccountType = *req.AccountType
	}
	if req.Email != nil {
		account.Email = *req.Email
	}
	if req.Phone != nil {
		account.Phone = *req.Phone
	}
	if req.BillingAddress != nil {
		account.BillingAddress = *req.BillingAddress
	}
	if req.BillingCity != nil {
		account.BillingCity = *req.BillingCity
	}
	if req.BillingPostcode != nil {
		account.BillingPostcode = *req.BillingPostcode
	}
	if req.BillingState != nil {
		account.BillingState = *req.BillingState
	}
	if req.ShippingAddress != nil {
		account.ShippingAddress = *req.ShippingAddress
	}
	if req.ShippingCity != nil {
		account.ShippingCity = *req.ShippingCity
	}
	if req.ShippingPostcode != nil {
		account.ShippingPostcode = *req.ShippingPostcode
	}
	if req.ShippingState != nil {
		account.ShippingState = *req.ShippingState
	}
	if req.CreditLimit != nil {
		account.CreditLimit = *req.CreditLimit
	}
	if req.PaymentTerms != nil {
		account.PaymentTerms = *req.PaymentTerms
	}
	if req.Notes != nil {
		account.Notes = *req.Notes
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
	}

	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return account, nil
}

// Deactivate soft-deletes an account
func (s *AccountService) Deactivate(ctx context.Context, id uuid.UUID) error {
	err := s.accountRepo.Deactivate(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountNotFound
	}
	if err == nil {
		s.logger.Info("account deactivated", zap.String("account_id", id.String()))
	}
	return err
}

// AddContact links a profile to an account with capability flags
func (s *AccountService) AddContact(ctx context.Context, accountID uuid.UUID, req *domain.CreateRelationshipRequest) (*domain.ContactAccountRelationship, error) {
	if _, err := s.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	if _, err := s.profileRepo.GetByID(ctx, req.ContactID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	// A contact may be linked to an account only once
	if _, err := s.relationshipRepo.FindByAccountAndContact(ctx, accountID, req.ContactID); err == nil {
		return nil, fmt.Errorf("%w: contact already linked to account", ErrInvalidInput)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	relType := req.RelationshipType
	if relType == "" {
		relType = domain.RelationshipMember
	}
	if !relType.IsValid() {
		return nil, fmt.Errorf("%w: unknown relationship type %q", ErrInvalidInput, req.RelationshipType)
	}

	rel := &domain.ContactAccountRelationship{
		AccountID:        accountID,
		ContactID:        req.ContactID,
		RelationshipType: relType,
		CanPlaceOrders:   req.CanPlaceOrders,
		CanViewOrders:    req.CanViewOrders,
		CanManageAccount: req.CanManageAccount,
		IsPrimaryContact: req.IsPrimaryContact,
	}
	if err := s.relationshipRepo.Create(ctx, rel); err != nil {
		return nil, fmt.Errorf("failed to create relationship: %w", err)
	}

	s.logger.Info("contact linked to account",
		zap.String("account_id", accountID.String()),
		zap.String("contact_id", req.ContactID.String()),
		zap.String("relationship_type", string(relType)),
	)
	return rel, nil
}

// RemoveContact unlinks a contact from an account
func (s *AccountService) RemoveContact(ctx context.Context, relationshipID uuid.UUID) error {
	err := s.relationshipRepo.Delete(ctx, relationshipID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRelationshipNotFound
	}
	return err
}

// ListContacts returns an account's contact relationships
func (s *AccountService) ListContacts(ctx context.Context, accountID uuid.UUID) ([]domain.ContactAccountRelationship, error) {
	if _, err := s.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.relationshipRepo.ListByAccount(ctx, accountID)
}
