package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/auth"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InviteMailer sends the invitation email for an admin-issued invitation
type InviteMailer interface {
	SendUserInvite(ctx context.Context, invitation *domain.UserInvitation) error
}

// ProfileService manages person records tied to the auth identity
type ProfileService struct {
	profileRepo      *repository.ProfileRepository
	relationshipRepo *repository.RelationshipRepository
	invitationRepo   *repository.InvitationRepository
	mailer           InviteMailer
	logger           *zap.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(
	profileRepo *repository.ProfileRepository,
	relationshipRepo *repository.RelationshipRepository,
	invitationRepo *repository.InvitationRepository,
	mailer InviteMailer,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		profileRepo:      profileRepo,
		relationshipRepo: relationshipRepo,
		invitationRepo:   invitationRepo,
		mailer:           mailer,
		logger:           logger,
	}
}

// Ensure returns the profile for an authenticated identity, creating it on
// first sight. A pending invitation for the email determines the initial
// role; without one the profile starts as a customer.
// Implements auth.ProfileStore.
func (s *ProfileService) Ensure(ctx context.Context, id uuid.UUID, email, name string) (*domain.Profile, error) {
	role := domain.RoleCustomer

	invitation, err := s.invitationRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !invitation.IsAccepted() {
			role = invitation.Role
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// no invitation, sign up as customer
	default:
		// an invitation lookup failure must not block sign-in
		s.logger.Warn("invitation lookup failed during profile ensure",
			zap.String("email", email),
			zap.Error(err),
		)
		invitation = nil
	}

	profile, err := s.profileRepo.Ensure(ctx, id, email, name, role)
	if err != nil {
		return nil, err
	}

	if invitation != nil && !invitation.IsAccepted() {
		if err := s.invitationRepo.MarkAccepted(ctx, invitation.ID); err != nil {
			s.logger.Warn("failed to mark invitation accepted",
				zap.String("invitation_id", invitation.ID.String()),
				zap.Error(err),
			)
		} else {
			s.logger.Info("invitation accepted",
				zap.String("email", email),
				zap.String("role", string(invitation.Role)),
			)
		}
	}

	return profile, nil
}

// Invite records an admin-issued invitation and sends the invite email.
// Re-inviting the same email updates the stored role and name. The
// invitation is persisted even when dispatch fails, so the role still
// applies once the person signs in.
func (s *ProfileService) Invite(ctx context.Context, req *domain.InviteUserRequest) (*domain.UserInvitation, error) {
	if !req.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}

	_, err := s.profileRepo.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, ErrProfileExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check for existing profile: %w", err)
	}

	invitation, err := s.invitationRepo.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		invitation.Role = req.Role
		if req.FullName != "" {
			invitation.FullName = req.FullName
		}
		if err := s.invitationRepo.Update(ctx, invitation); err != nil {
			return nil, fmt.Errorf("failed to update invitation: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		invitation = &domain.UserInvitation{
			Email:    req.Email,
			FullName: req.FullName,
			Role:     req.Role,
		}
		if userCtx, ok := auth.FromContext(ctx); ok {
			invitation.InvitedBy = &userCtx.UserID
		}
		if err := s.invitationRepo.Create(ctx, invitation); err != nil {
			return nil, fmt.Errorf("failed to create invitation: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to look up invitation: %w", err)
	}

	s.logger.Info("user invited",
		zap.String("email", req.Email),
		zap.String("role", string(req.Role)),
	)

	if err := s.mailer.SendUserInvite(ctx, invitation); err != nil {
		s.logger.Error("invite email dispatch failed",
			zap.String("email", req.Email),
			zap.Error(err),
		)
		return invitation, fmt.Errorf("%w: %v", ErrEmailDispatchFailed, err)
	}

	return invitation, nil
}

// ListInvitations returns all invitations, newest first
func (s *ProfileService) ListInvitations(ctx context.Context) ([]domain.UserInvitation, error) {
	return s.invitationRepo.List(ctx)
}

// GetByID returns a profile by its id
func (s *ProfileService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// Update applies partial changes to a profile
func (s *ProfileService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	profile, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		profile.FullName = *req.FullName
	}
	if req.Phone != nil {
		profile.Phone = *req.Phone
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

// SetRole changes a profile's role, admin only
func (s *ProfileService) SetRole(ctx context.Context, id uuid.UUID, role domain.UserRole) (*domain.Profile, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	profile, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile.Role = role
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile role: %w", err)
	}

	s.logger.Info("profile role changed",
		zap.String("profile_id", id.String()),
		zap.String("role", string(role)),
	)
	return profile, nil
}

// ListAccountMemberships returns the accounts a profile belongs to
func (s *ProfileService) ListAccountMemberships(ctx context.Context, id uuid.UUID) ([]domain.ContactAccountRelationship, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.relationshipRepo.ListByContact(ctx, id)
}
