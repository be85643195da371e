package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"gorm.io/gorm"
)

// AccountRepository handles database operations for business accounts
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create persists a new account
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByID returns an account with its contact relationships preloaded
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).
		Preload("Relationships").
		Preload("Relationships.Contact").
		First(&account, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// List returns active accounts, optionally filtered by a name search
func (r *AccountRepository) List(ctx context.Context, search string, limit, offset int) ([]domain.Account, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Account{}).
		Where("is_active = ?", true)

	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR account_number LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var accounts []domain.Account
	err := query.
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&accounts).Error
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// Update persists account changes
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// Deactivate soft-deletes an account. Accounts are never hard-deleted so
// historical orders keep a valid reference.
func (r *AccountRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountActive returns the number of active accounts
func (r *AccountRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Account{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}
