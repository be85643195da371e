package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"github.com/sn-foods/commerce-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordingMailer captures dispatched approval emails
type recordingMailer struct {
	sent []domain.Recipient
	err  error
}

func (m *recordingMailer) SendOrderApproval(ctx context.Context, recipient domain.Recipient, order *domain.Order) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, recipient)
	return nil
}

type notificationFixture struct {
	db     *gorm.DB
	svc    *NotificationService
	mailer *recordingMailer
}

func newNotificationFixture(t *testing.T) *notificationFixture {
	db := testutil.SetupTestDB(t)
	mailer := &recordingMailer{}
	svc := NewNotificationService(
		repository.NewProfileRepository(db),
		repository.NewRelationshipRepository(db),
		repository.NewOrderRepository(db),
		mailer,
		zap.NewNop(),
	)
	return &notificationFixture{db: db, svc: svc, mailer: mailer}
}

func TestResolveRecipientPrefersCustomer(t *testing.T) {
	f := newNotificationFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	account := testutil.CreateTestAccount(t, f.db, "cafe-north")
	primary := testutil.CreateTestProfile(t, f.db, "Alex Reid", domain.RoleCustomer)
	testutil.LinkContact(t, f.db, account, primary, true)

	// Even with account data present, a named customer wins
	order := &domain.Order{CustomerID: &customer.ID, AccountID: &account.ID}

	recipient, err := f.svc.ResolveRecipient(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, customer.Email, recipient.Email)
	assert.Equal(t, "Dana Wu", recipient.Name)
}

func TestResolveRecipientMissingCustomerProfile(t *testing.T) {
	f := newNotificationFixture(t)
	missing := uuid.New()
	order := &domain.Order{CustomerID: &missing}

	_, err := f.svc.ResolveRecipient(context.Background(), order)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestResolveRecipientPrimaryContactWins(t *testing.T) {
	f := newNotificationFixture(t)
	account := testutil.CreateTestAccount(t, f.db, "cafe-north")
	older := testutil.CreateTestProfile(t, f.db, "Alex Reid", domain.RoleCustomer)
	primary := testutil.CreateTestProfile(t, f.db, "Jo Park", domain.RoleCustomer)

	// The non-primary contact predates the primary; the flag still wins
	testutil.LinkContact(t, f.db, account, older, false)
	testutil.LinkContact(t, f.db, account, primary, true)

	order := &domain.Order{AccountID: &account.ID}

	recipient, err := f.svc.ResolveRecipient(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, primary.Email, recipient.Email)
}

func TestResolveRecipientFallsBackToOldestContact(t *testing.T) {
	f := newNotificationFixture(t)
	account := testutil.CreateTestAccount(t, f.db, "cafe-north")
	first := testutil.CreateTestProfile(t, f.db, "Alex Reid", domain.RoleCustomer)
	second := testutil.CreateTestProfile(t, f.db, "Jo Park", domain.RoleCustomer)

	relFirst := testutil.LinkContact(t, f.db, account, first, false)
	relSecond := testutil.LinkContact(t, f.db, account, second, false)

	// Make the ordering unambiguous regardless of insert timing
	require.NoError(t, f.db.Model(relFirst).Update("created_at", time.Now().Add(-time.Hour)).Error)
	require.NoError(t, f.db.Model(relSecond).Update("created_at", time.Now()).Error)

	order := &domain.Order{AccountID: &account.ID}

	recipient, err := f.svc.ResolveRecipient(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, first.Email, recipient.Email)
}

func TestResolveRecipientAccountWithoutContacts(t *testing.T) {
	f := newNotificationFixture(t)
	account := testutil.CreateTestAccount(t, f.db, "cafe-north")
	order := &domain.Order{AccountID: &account.ID}

	_, err := f.svc.ResolveRecipient(context.Background(), order)
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestResolveRecipientNoParties(t *testing.T) {
	f := newNotificationFixture(t)

	_, err := f.svc.ResolveRecipient(context.Background(), &domain.Order{})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestNotifyOrderApprovedDispatches(t *testing.T) {
	f := newNotificationFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	order := &domain.Order{CustomerID: &customer.ID, OrderNumber: "ORD-2026-00001"}

	require.NoError(t, f.svc.NotifyOrderApproved(context.Background(), order))
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, customer.Email, f.mailer.sent[0].Email)
}

func TestNotifyOrderApprovedMailerFailure(t *testing.T) {
	f := newNotificationFixture(t)
	f.mailer.err = errors.New("gateway timeout")
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	order := &domain.Order{CustomerID: &customer.ID}

	err := f.svc.NotifyOrderApproved(context.Background(), order)
	assert.ErrorContains(t, err, "gateway timeout")
}

func TestHandleApprovalEventReloadsOrder(t *testing.T) {
	f := newNotificationFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	order := testutil.CreateTestOrder(t, f.db, customer, milk, 2)

	// The event only needs to carry the id; everything else is read back
	// from storage before dispatch
	event := &domain.OrderApprovedEvent{OrderID: order.ID}

	require.NoError(t, f.svc.HandleApprovalEvent(context.Background(), event))
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, customer.Email, f.mailer.sent[0].Email)
}

func TestHandleApprovalEventResolvesByOrderNumber(t *testing.T) {
	f := newNotificationFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	order := testutil.CreateTestOrder(t, f.db, customer, milk, 2)

	event := &domain.OrderApprovedEvent{OrderNumber: order.OrderNumber}

	require.NoError(t, f.svc.HandleApprovalEvent(context.Background(), event))
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, customer.Email, f.mailer.sent[0].Email)

	err := f.svc.HandleApprovalEvent(context.Background(), &domain.OrderApprovedEvent{OrderNumber: "ORD-1999-99999"})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestHandleApprovalEventValidation(t *testing.T) {
	f := newNotificationFixture(t)

	err := f.svc.HandleApprovalEvent(context.Background(), &domain.OrderApprovedEvent{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	event := &domain.OrderApprovedEvent{OrderID: uuid.New()}
	err = f.svc.HandleApprovalEvent(context.Background(), event)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
