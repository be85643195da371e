package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/auth"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"github.com/sn-foods/commerce-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordingInviteMailer captures dispatched invitation emails
type recordingInviteMailer struct {
	sent []*domain.UserInvitation
	err  error
}

func (m *recordingInviteMailer) SendUserInvite(ctx context.Context, invitation *domain.UserInvitation) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, invitation)
	return nil
}

type profileFixture struct {
	db     *gorm.DB
	svc    *ProfileService
	mailer *recordingInviteMailer
}

func newProfileFixture(t *testing.T) *profileFixture {
	db := testutil.SetupTestDB(t)
	mailer := &recordingInviteMailer{}
	svc := NewProfileService(
		repository.NewProfileRepository(db),
		repository.NewRelationshipRepository(db),
		repository.NewInvitationRepository(db),
		mailer,
		zap.NewNop(),
	)
	return &profileFixture{db: db, svc: svc, mailer: mailer}
}

func adminContext(admin *domain.Profile) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      admin.ID,
		DisplayName: admin.FullName,
		Email:       admin.Email,
		Role:        admin.Role,
	})
}

func TestInviteCreatesInvitationAndSendsEmail(t *testing.T) {
	f := newProfileFixture(t)
	admin := testutil.CreateTestProfile(t, f.db, "Admin One", domain.RoleAdmin)

	invitation, err := f.svc.Invite(adminContext(admin), &domain.InviteUserRequest{
		Email:    "newhire@snfoods.example",
		FullName: "Sam Newhire",
		Role:     domain.RoleSalesAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSalesAdmin, invitation.Role)
	require.NotNil(t, invitation.InvitedBy)
	assert.Equal(t, admin.ID, *invitation.InvitedBy)
	assert.Nil(t, invitation.AcceptedAt)

	var stored domain.UserInvitation
	require.NoError(t, f.db.First(&stored, "email = ?", "newhire@snfoods.example").Error)
	assert.Equal(t, domain.RoleSalesAdmin, stored.Role)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "newhire@snfoods.example", f.mailer.sent[0].Email)
}

func TestInviteExistingProfileEmail(t *testing.T) {
	f := newProfileFixture(t)
	existing := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)

	_, err := f.svc.Invite(context.Background(), &domain.InviteUserRequest{
		Email: existing.Email,
		Role:  domain.RoleSalesAdmin,
	})
	assert.ErrorIs(t, err, ErrProfileExists)
	assert.Empty(t, f.mailer.sent)
}

func TestInviteInvalidRole(t *testing.T) {
	f := newProfileFixture(t)

	_, err := f.svc.Invite(context.Background(), &domain.InviteUserRequest{
		Email: "someone@snfoods.example",
		Role:  domain.UserRole("superuser"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReinviteUpdatesRole(t *testing.T) {
	f := newProfileFixture(t)

	_, err := f.svc.Invite(context.Background(), &domain.InviteUserRequest{
		Email: "newhire@snfoods.example",
		Role:  domain.RoleSalesAdmin,
	})
	require.NoError(t, err)

	updated, err := f.svc.Invite(context.Background(), &domain.InviteUserRequest{
		Email:    "newhire@snfoods.example",
		FullName: "Sam Newhire",
		Role:     domain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, updated.Role)
	assert.Equal(t, "Sam Newhire", updated.FullName)

	var count int64
	require.NoError(t, f.db.Model(&domain.UserInvitation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Len(t, f.mailer.sent, 2)
}

func TestInviteDispatchFailurePersistsInvitation(t *testing.T) {
	f := newProfileFixture(t)
	f.mailer.err = errors.New("provider rejected the request")

	invitation, err := f.svc.Invite(context.Background(), &domain.InviteUserRequest{
		Email: "newhire@snfoods.example",
		Role:  domain.RoleSalesAdmin,
	})
	assert.ErrorIs(t, err, ErrEmailDispatchFailed)
	require.NotNil(t, invitation)

	// The stored role still applies on first sign-in
	var stored domain.UserInvitation
	require.NoError(t, f.db.First(&stored, "email = ?", "newhire@snfoods.example").Error)
	assert.Equal(t, domain.RoleSalesAdmin, stored.Role)
}

func TestEnsureAppliesInvitedRole(t *testing.T) {
	f := newProfileFixture(t)

	invitation, err := f.svc.Invite(context.Background(), &domain.InviteUserRequest{
		Email: "newhire@snfoods.example",
		Role:  domain.RoleSalesAdmin,
	})
	require.NoError(t, err)

	id := uuid.New()
	profile, err := f.svc.Ensure(context.Background(), id, "newhire@snfoods.example", "Sam Newhire")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSalesAdmin, profile.Role)

	var accepted domain.UserInvitation
	require.NoError(t, f.db.First(&accepted, "id = ?", invitation.ID).Error)
	require.NotNil(t, accepted.AcceptedAt)
	assert.WithinDuration(t, time.Now(), *accepted.AcceptedAt, time.Minute)
}

func TestEnsureDefaultsToCustomer(t *testing.T) {
	f := newProfileFixture(t)

	profile, err := f.svc.Ensure(context.Background(), uuid.New(), "walkin@example.com", "Walk In")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, profile.Role)
}

func TestEnsureExistingProfileKeepsRole(t *testing.T) {
	f := newProfileFixture(t)
	staff := testutil.CreateTestProfile(t, f.db, "Alex Reid", domain.RoleSalesAdmin)

	profile, err := f.svc.Ensure(context.Background(), staff.ID, staff.Email, staff.FullName)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSalesAdmin, profile.Role)
}
