package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"github.com/sn-foods/commerce-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeInvoiceSource serves invoice lookups from a map keyed by order number.
type fakeInvoiceSource struct {
	invoices map[string]*domain.InvoiceStatus
	err      error
	lookups  []string
}

func (f *fakeInvoiceSource) FindInvoiceByOrderNumber(_ context.Context, orderNumber string) (*domain.InvoiceStatus, error) {
	f.lookups = append(f.lookups, orderNumber)
	if f.err != nil {
		return nil, f.err
	}
	return f.invoices[orderNumber], nil
}

func approveOrder(t *testing.T, db *gorm.DB, order *domain.Order) {
	t.Helper()
	now := time.Now()
	require.NoError(t, db.Model(&domain.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":      domain.OrderStatusApproved,
			"approved_at": now,
		}).Error)
}

func TestInvoiceLinkJobLinksApprovedOrders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	orderRepo := repository.NewOrderRepository(db)

	customer := testutil.CreateTestProfile(t, db, "Dana Customer", domain.RoleCustomer)
	product := testutil.CreateTestProduct(t, db, "Basmati Rice 5kg", 18.50)

	exported := testutil.CreateTestOrder(t, db, customer, product, 2)
	approveOrder(t, db, exported)

	notExported := testutil.CreateTestOrder(t, db, customer, product, 1)
	approveOrder(t, db, notExported)

	stillPending := testutil.CreateTestOrder(t, db, customer, product, 3)

	source := &fakeInvoiceSource{
		invoices: map[string]*domain.InvoiceStatus{
			exported.OrderNumber: {InvoiceID: "INV-00042", Status: "Open", AmountDue: 37.00},
		},
	}

	job := NewInvoiceLinkJob(orderRepo, source, 5*time.Second, zap.NewNop())
	job.Run()

	var linked domain.Order
	require.NoError(t, db.First(&linked, "id = ?", exported.ID).Error)
	assert.Equal(t, "INV-00042", linked.MYOBInvoiceID)

	var waiting domain.Order
	require.NoError(t, db.First(&waiting, "id = ?", notExported.ID).Error)
	assert.Empty(t, waiting.MYOBInvoiceID)

	// Pending orders are never matched against the mirror
	assert.NotContains(t, source.lookups, stillPending.OrderNumber)
}

func TestInvoiceLinkJobSkipsAlreadyLinkedOrders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	orderRepo := repository.NewOrderRepository(db)

	customer := testutil.CreateTestProfile(t, db, "Dana Customer", domain.RoleCustomer)
	product := testutil.CreateTestProduct(t, db, "Jasmine Rice 5kg", 16.00)

	order := testutil.CreateTestOrder(t, db, customer, product, 1)
	approveOrder(t, db, order)
	require.NoError(t, orderRepo.SetInvoiceID(context.Background(), order.ID, "INV-00001"))

	source := &fakeInvoiceSource{invoices: map[string]*domain.InvoiceStatus{}}
	job := NewInvoiceLinkJob(orderRepo, source, 5*time.Second, zap.NewNop())
	job.Run()

	assert.Empty(t, source.lookups)
}

func TestInvoiceLinkJobContinuesPastLookupErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	orderRepo := repository.NewOrderRepository(db)

	customer := testutil.CreateTestProfile(t, db, "Dana Customer", domain.RoleCustomer)
	product := testutil.CreateTestProduct(t, db, "Soy Sauce 1L", 7.25)

	order := testutil.CreateTestOrder(t, db, customer, product, 1)
	approveOrder(t, db, order)

	source := &fakeInvoiceSource{err: errors.New("mirror unavailable")}
	job := NewInvoiceLinkJob(orderRepo, source, 5*time.Second, zap.NewNop())
	job.Run()

	var unchanged domain.Order
	require.NoError(t, db.First(&unchanged, "id = ?", order.ID).Error)
	assert.Empty(t, unchanged.MYOBInvoiceID)
}
