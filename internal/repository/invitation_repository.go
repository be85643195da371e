package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"gorm.io/gorm"
)

// InvitationRepository handles database operations for user invitations
type InvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create persists a new invitation
func (r *InvitationRepository) Create(ctx context.Context, invitation *domain.UserInvitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

// GetByEmail returns the invitation for an email address
func (r *InvitationRepository) GetByEmail(ctx context.Context, email string) (*domain.UserInvitation, error) {
	var invitation domain.UserInvitation
	err := r.db.WithContext(ctx).First(&invitation, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// Update persists invitation changes
func (r *InvitationRepository) Update(ctx context.Context, invitation *domain.UserInvitation) error {
	return r.db.WithContext(ctx).Save(invitation).Error
}

// MarkAccepted stamps the invitation as accepted
func (r *InvitationRepository) MarkAccepted(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&domain.UserInvitation{}).
		Where("id = ?", id).
		Update("accepted_at", time.Now()).Error
}

// List returns all invitations, newest first
func (r *InvitationRepository) List(ctx context.Context) ([]domain.UserInvitation, error) {
	var invitations []domain.UserInvitation
	err := r.db.WithContext(ctx).
		Preload("Inviter").
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}
