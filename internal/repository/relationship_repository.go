package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"gorm.io/gorm"
)

// RelationshipRepository handles contact-account relationship operations
type RelationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository creates a new RelationshipRepository
func NewRelationshipRepository(db *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// Create persists a new relationship
func (r *RelationshipRepository) Create(ctx context.Context, rel *domain.ContactAccountRelationship) error {
	return r.db.WithContext(ctx).Create(rel).Error
}

// GetByID returns a relationship by its id
func (r *RelationshipRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContactAccountRelationship, error) {
	var rel domain.ContactAccountRelationship
	err := r.db.WithContext(ctx).
		Preload("Contact").
		First(&rel, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// ListByAccount returns all relationships for an account with contacts preloaded
func (r *RelationshipRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.ContactAccountRelationship, error) {
	var rels []domain.ContactAccountRelationship
	err := r.db.WithContext(ctx).
		Preload("Contact").
		Where("account_id = ?", accountID).
		Order("is_primary_contact DESC, created_at ASC").
		Find(&rels).Error
	return rels, err
}

// ListByContact returns all account memberships for a contact
func (r *RelationshipRepository) ListByContact(ctx context.Context, contactID uuid.UUID) ([]domain.ContactAccountRelationship, error) {
	var rels []domain.ContactAccountRelationship
	err := r.db.WithContext(ctx).
		Preload("Account").
		Where("contact_id = ?", contactID).
		Order("created_at ASC").
		Find(&rels).Error
	return rels, err
}

// FindPrimaryForAccount returns the notification contact for an account:
// the primary contact if one is flagged, otherwise the longest-standing
// relationship. The ordering is deterministic so repeated resolution for
// the same account always lands on the same contact.
func (r *RelationshipRepository) FindPrimaryForAccount(ctx context.Context, accountID uuid.UUID) (*domain.ContactAccountRelationship, error) {
	var rel domain.ContactAccountRelationship
	err := r.db.WithContext(ctx).
		Preload("Contact").
		Where("account_id = ?", accountID).
		Order("is_primary_contact DESC, created_at ASC").
		First(&rel).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// FindByAccountAndContact returns the relationship linking a contact to an account
func (r *RelationshipRepository) FindByAccountAndContact(ctx context.Context, accountID, contactID uuid.UUID) (*domain.ContactAccountRelationship, error) {
	var rel domain.ContactAccountRelationship
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND contact_id = ?", accountID, contactID).
		First(&rel).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// Update persists relationship changes
func (r *RelationshipRepository) Update(ctx context.Context, rel *domain.ContactAccountRelationship) error {
	return r.db.WithContext(ctx).Save(rel).Error
}

// Delete removes a relationship
func (r *RelationshipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&domain.ContactAccountRelationship{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
