package service

import (
	"context"
	"errors"
	"testing"

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

// recordingNotifier captures approval notifications for assertions
type recordingNotifier struct {
	notified []uuid.UUID
	err      error
}

func (n *recordingNotifier) NotifyOrderApproved(ctx context.Context, order *domain.Order) error {
	if n.err != nil {
		return n.err
	}
	n.notified = append(n.notified, order.ID)
	return nil
}

type orderServiceFixture struct {
	db       *gorm.DB
	svc      *OrderService
	notifier *recordingNotifier
}

func newOrderServiceFixture(t *testing.T) *orderServiceFixture {
	db := testutil.SetupTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewOrderStatusHistoryRepository(db),
		repository.NewProductRepository(db),
		repository.NewProfileRepository(db),
		repository.NewAccountRepository(db),
		NewSequenceService(repository.NewOrderSequenceRepository(db), zap.NewNop()),
		notifier,
		zap.NewNop(),
	)
	return &orderServiceFixture{db: db, svc: svc, notifier: notifier}
}

func staffContext(profile *domain.Profile) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      profile.ID,
		DisplayName: profile.DisplayName(),
		Email:       profile.Email,
		Role:        profile.Role,
	})
}

func TestCreateOrderComputesStoredTotals(t *testing.T) {
	f := newOrderServiceFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	milk := testutil.CreateTestProduct(t, f.db, "Full Cream Milk 2L", 8.50)
	bread := testutil.CreateTestProduct(t, f.db, "Sourdough Loaf", 3.75)

	order, err := f.svc.Create(context.Background(), &domain.CreateOrderRequest{
		CustomerID: &customer.ID,
		Items: []domain.CartLine{
			{ProductID: milk.ID, Quantity: 12, UnitPrice: 8.50},
			{ProductID: bread.ID, Quantity: 48, UnitPrice: 3.75},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, 282.00, order.Subtotal)
	assert.Equal(t, 28.20, order.TaxAmount)
	assert.Equal(t, 310.20, order.TotalAmount)
	assert.Regexp(t, `^ORD-\d{4}-\d{5}$`, order.OrderNumber)
	assert.Len(t, order.Items, 2)

	// Item snapshots carry the catalog name and unit at order time
	assert.Equal(t, "Full Cream Milk 2L", order.Items[0].ProductName)
	assert.Equal(t, 102.00, order.Items[0].TotalPrice)

	// Creation writes the initial history entry with no prior status
	var history []domain.OrderStatusHistory
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].OldStatus)
	assert.Equal(t, domain.OrderStatusPending, history[0].NewStatus)
}

func TestCreateOrderEmptyCartPersistsNothing(t *testing.T) {
	f := newOrderServiceFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)

	_, err := f.svc.Create(context.Background(), &domain.CreateOrderRequest{
		CustomerID: &customer.ID,
		Items:      nil,
	})
	assert.ErrorIs(t, err, ErrEmptyCart)

	var count int64
	require.NoError(t, f.db.Model(&domain.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateOrderRejectsInvalidLines(t *testing.T) {
	f := newOrderServiceFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)

	_, err := f.svc.Create(context.Background(), &domain.CreateOrderRequest{
		CustomerID: &customer.ID,
		Items:      []domain.CartLine{{ProductID: milk.ID, Quantity: 0, UnitPrice: 8.50}},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.svc.Create(context.Background(), &domain.CreateOrderRequest{
		CustomerID: &customer.ID,
		Items:      []domain.CartLine{{ProductID: milk.ID, Quantity: 1, UnitPrice: -0.01}},
	})
	assert.ErrorIs(t, err, ErrInvalidUnitPrice)
}

func TestCreateOrderOwnershipIsExclusive(t *testing.T) {
	f := newOrderServiceFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	account := testutil.CreateTestAccount(t, f.db, "cafe-north")
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	items := []domain.CartLine{{ProductID: milk.ID, Quantity: 1, UnitPrice: 8.50}}

	// Neither party
	_, err := f.svc.Create(context.Background(), &domain.CreateOrderRequest{Items: items})
	assert.ErrorIs(t, err, ErrInvalidOrderContext)

	// Both parties
	_, err = f.svc.Create(context.Background(), &domain.CreateOrderRequest{
		Items:              items,
		CustomerID:         &customer.ID,
		AccountID:          &account.ID,
		OrderedByContactID: &customer.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidOrderContext)

	// Account without the ordering contact
	_, err = f.svc.Create(context.Background(), &domain.CreateOrderRequest{
		Items:     items,
		AccountID: &account.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidOrderContext)

	// Account with contact is valid
	order, err := f.svc.Create(context.Background(), &domain.CreateOrderRequest{
		Items:              items,
		AccountID:          &account.ID,
		OrderedByContactID: &customer.ID,
	})
	require.NoError(t, err)
	assert.True(t, order.IsAccountOrder())
}

func TestCreateOrderUnknownPartiesRejected(t *testing.T) {
	f := newOrderServiceFixture(t)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	items := []domain.CartLine{{ProductID: milk.ID, Quantity: 1, UnitPrice: 8.50}}
	missing := uuid.New()

	_, err := f.svc.Create(context.Background(), &domain.CreateOrderRequest{
		Items:      items,
		CustomerID: &missing,
	})
	assert.ErrorIs(t, err, ErrProfileNotFound)

	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	_, err = f.svc.Create(context.Background(), &domain.CreateOrderRequest{
		Items:              items,
		AccountID:          &missing,
		OrderedByContactID: &customer.ID,
	})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCreateOrderUnknownProductRejected(t *testing.T) {
	f := newOrderServiceFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)

	_, err := f.svc.Create(context.Background(), &domain.CreateOrderRequest{
		CustomerID: &customer.ID,
		Items:      []domain.CartLine{{ProductID: uuid.New(), Quantity: 1, UnitPrice: 5}},
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestApproveOrderRecordsApproverAndHistory(t *testing.T) {
	f := newOrderServiceFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	admin := testutil.CreateTestProfile(t, f.db, "Sam Ellis", domain.RoleSalesAdmin)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	order := testutil.CreateTestOrder(t, f.db, customer, milk, 2)

	result, err := f.svc.UpdateStatus(staffContext(admin), order.ID, domain.OrderStatusApproved, "Looks good")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusApproved, result.Order.Status)
	require.NotNil(t, result.Order.ApprovedBy)
	assert.Equal(t, admin.ID, *result.Order.ApprovedBy)
	assert.NotNil(t, result.Order.ApprovedAt)
	assert.True(t, result.NotificationSent)
	assert.Equal(t, []uuid.UUID{order.ID}, f.notifier.notified)

	var history []domain.OrderStatusHistory
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Order("changed_at ASC").Find(&history).Error)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].OldStatus)
	assert.Equal(t, domain.OrderStatusPending, *history[0].OldStatus)
	assert.Equal(t, domain.OrderStatusApproved, history[0].NewStatus)
	assert.Equal(t, "Sam Ellis", history[0].ChangedByName)
}

func TestRejectOrderSkipsNotification(t *testing.T) {
	f := newOrderServiceFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	admin := testutil.CreateTestProfile(t, f.db, "Sam Ellis", domain.RoleSalesAdmin)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	order := testutil.CreateTestOrder(t, f.db, customer, milk, 2)

	result, err := f.svc.UpdateStatus(staffContext(admin), order.ID, domain.OrderStatusRejected, "Out of stock")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusRejected, result.Order.Status)
	assert.Nil(t, result.Order.ApprovedBy)
	assert.False(t, result.NotificationSent)
	assert.Empty(t, f.notifier.notified)
}

func TestUpdateStatusInvalidTransitions(t *testing.T) {
	f := newOrderServiceFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	admin := testutil.CreateTestProfile(t, f.db, "Sam Ellis", domain.RoleSalesAdmin)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	order := testutil.CreateTestOrder(t, f.db, customer, milk, 2)

	// Unknown status value
	_, err := f.svc.UpdateStatus(staffContext(admin), order.ID, domain.OrderStatus("archived"), "")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	// Terminal states accept no further transitions
	_, err = f.svc.UpdateStatus(staffContext(admin), order.ID, domain.OrderStatusRejected, "")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(staffContext(admin), order.ID, domain.OrderStatusApproved, "")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = f.svc.UpdateStatus(staffContext(admin), order.ID, domain.OrderStatusPending, "")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	f := newOrderServiceFixture(t)
	admin := testutil.CreateTestProfile(t, f.db, "Sam Ellis", domain.RoleSalesAdmin)

	_, err := f.svc.UpdateStatus(staffContext(admin), uuid.New(), domain.OrderStatusApproved, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestNotificationFailureDoesNotRevertApproval(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.notifier.err = errors.New("smtp unreachable")
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	admin := testutil.CreateTestProfile(t, f.db, "Sam Ellis", domain.RoleSalesAdmin)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	order := testutil.CreateTestOrder(t, f.db, customer, milk, 2)

	result, err := f.svc.UpdateStatus(staffContext(admin), order.ID, domain.OrderStatusApproved, "")
	require.NoError(t, err)

	assert.False(t, result.NotificationSent)
	assert.Contains(t, result.NotificationError, "smtp unreachable")

	// The transition is committed regardless of the dispatch failure
	reloaded, err := f.svc.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusApproved, reloaded.Status)
}

func TestConditionalStatusWriteDetectsConcurrentChange(t *testing.T) {
	f := newOrderServiceFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	order := testutil.CreateTestOrder(t, f.db, customer, milk, 2)

	repo := repository.NewOrderRepository(f.db)

	// A writer that saw pending loses to one that already transitioned
	affected, err := repo.UpdateStatusIf(context.Background(), f.db, order.ID, domain.OrderStatusApproved,
		map[string]interface{}{"status": domain.OrderStatusRejected})
	require.NoError(t, err)
	assert.Zero(t, affected)

	affected, err = repo.UpdateStatusIf(context.Background(), f.db, order.ID, domain.OrderStatusPending,
		map[string]interface{}{"status": domain.OrderStatusApproved})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
}

func TestGetStatusHistoryNewestFirst(t *testing.T) {
	f := newOrderServiceFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	admin := testutil.CreateTestProfile(t, f.db, "Sam Ellis", domain.RoleSalesAdmin)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)

	order, err := f.svc.Create(staffContext(admin), &domain.CreateOrderRequest{
		CustomerID: &customer.ID,
		Items:      []domain.CartLine{{ProductID: milk.ID, Quantity: 2, UnitPrice: 8.50}},
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(staffContext(admin), order.ID, domain.OrderStatusApproved, "")
	require.NoError(t, err)

	history, err := f.svc.GetStatusHistory(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.OrderStatusApproved, history[0].NewStatus)
	assert.Equal(t, domain.OrderStatusPending, history[1].NewStatus)

	_, err = f.svc.GetStatusHistory(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
