package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"gorm.io/gorm"
)

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create persists a new profile
func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// GetByID returns a profile by its id
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByEmail returns a profile by email address
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).First(&profile, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update persists profile changes
func (r *ProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// Ensure returns the profile for an authenticated identity, creating it
// with the given role on first sight. The role only applies to newly
// created profiles; an existing profile keeps its role.
func (r *ProfileRepository) Ensure(ctx context.Context, id uuid.UUID, email, name string, role domain.UserRole) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	profile = domain.Profile{
		ID:       id,
		Email:    email,
		FullName: name,
		Role:     role,
		IsActive: true,
	}
	if err := r.db.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return &profile, nil
}

// Count returns the total number of profiles
func (r *ProfileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Profile{}).Count(&count).Error
	return count, err
}
