package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/auth"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"github.com/sn-foods/commerce-api/internal/service"
	"github.com/sn-foods/commerce-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// noopMailer satisfies the notification dispatch without sending anything
type noopMailer struct{}

func (noopMailer) SendOrderApproval(ctx context.Context, recipient domain.Recipient, order *domain.Order) error {
	return nil
}

type orderHandlerFixture struct {
	db     *gorm.DB
	router *chi.Mux
	admin  *domain.Profile
}

// newOrderHandlerFixture wires the order routes on real services backed by
// an in-memory database, with every request running as the given admin.
func newOrderHandlerFixture(t *testing.T) *orderHandlerFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	orderRepo := repository.NewOrderRepository(db)
	historyRepo := repository.NewOrderStatusHistoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	relationshipRepo := repository.NewRelationshipRepository(db)
	sequenceRepo := repository.NewOrderSequenceRepository(db)

	sequences := service.NewSequenceService(sequenceRepo, logger)
	notifications := service.NewNotificationService(profileRepo, relationshipRepo, orderRepo, noopMailer{}, logger)
	orders := service.NewOrderService(orderRepo, historyRepo, productRepo, profileRepo, accountRepo, sequences, notifications, logger)

	handler := NewOrderHandler(orders, notifications, nil, logger)
	admin := testutil.CreateTestProfile(t, db, "Sam Ellis", domain.RoleAdmin)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.WithUserContext(r.Context(), &auth.UserContext{
				UserID:      admin.ID,
				DisplayName: admin.FullName,
				Email:       admin.Email,
				Role:        admin.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Get("/orders", handler.List)
	router.Post("/orders", handler.Create)
	router.Get("/orders/{id}", handler.GetByID)
	router.Put("/orders/{id}/status", handler.UpdateStatus)
	router.Get("/orders/{id}/history", handler.GetHistory)
	router.Post("/webhooks/order-approved", handler.OrderApprovedWebhook)

	return &orderHandlerFixture{db: db, router: router, admin: admin}
}

func (f *orderHandlerFixture) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestOrderHandlerCreate(t *testing.T) {
	f := newOrderHandlerFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	milk := testutil.CreateTestProduct(t, f.db, "Full Cream Milk 2L", 8.50)

	rec := f.do(t, http.MethodPost, "/orders", domain.CreateOrderRequest{
		Items:      []domain.CartLine{{ProductID: milk.ID, Quantity: 12}},
		CustomerID: &customer.ID,
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var order domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, 102.00, order.Subtotal)
	assert.Equal(t, 10.20, order.TaxAmount)
	assert.Equal(t, 112.20, order.TotalAmount)
	assert.Equal(t, "/api/v1/orders/"+order.ID.String(), rec.Header().Get("Location"))
}

func TestOrderHandlerCreateValidation(t *testing.T) {
	f := newOrderHandlerFixture(t)

	// Missing items fails request validation before the service runs
	rec := f.do(t, http.MethodPost, "/orders", domain.CreateOrderRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "Validation Error", apiErr.Title)
	assert.Contains(t, apiErr.Errors, "items")
}

func TestOrderHandlerCreateUnknownProduct(t *testing.T) {
	f := newOrderHandlerFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)

	rec := f.do(t, http.MethodPost, "/orders", domain.CreateOrderRequest{
		Items:      []domain.CartLine{{ProductID: uuid.New(), Quantity: 1}},
		CustomerID: &customer.ID,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderHandlerList(t *testing.T) {
	f := newOrderHandlerFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	pending := testutil.CreateTestOrder(t, f.db, customer, milk, 2)
	approved := testutil.CreateTestOrder(t, f.db, customer, milk, 3)
	require.NoError(t, f.db.Model(approved).Update("status", domain.OrderStatusApproved).Error)

	rec := f.do(t, http.MethodGet, "/orders?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Data  []domain.Order `json:"data"`
		Total int64          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, pending.ID, page.Data[0].ID)
	assert.EqualValues(t, 1, page.Total)
}

func TestOrderHandlerListRejectsUnknownStatus(t *testing.T) {
	f := newOrderHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/orders?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderHandlerUpdateStatus(t *testing.T) {
	f := newOrderHandlerFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	order := testutil.CreateTestOrder(t, f.db, customer, milk, 2)

	rec := f.do(t, http.MethodPut, fmt.Sprintf("/orders/%s/status", order.ID), domain.UpdateOrderStatusRequest{
		Status: domain.OrderStatusApproved,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.StatusUpdateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.Order)
	assert.Equal(t, domain.OrderStatusApproved, result.Order.Status)
	assert.True(t, result.NotificationSent)

	// The transition is terminal, a second approval attempt conflicts
	rec = f.do(t, http.MethodPut, fmt.Sprintf("/orders/%s/status", order.ID), domain.UpdateOrderStatusRequest{
		Status: domain.OrderStatusApproved,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOrderHandlerUpdateStatusUnknownOrder(t *testing.T) {
	f := newOrderHandlerFixture(t)

	rec := f.do(t, http.MethodPut, fmt.Sprintf("/orders/%s/status", uuid.New()), domain.UpdateOrderStatusRequest{
		Status: domain.OrderStatusRejected,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, "/orders/not-a-uuid/status", domain.UpdateOrderStatusRequest{
		Status: domain.OrderStatusRejected,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderHandlerHistory(t *testing.T) {
	f := newOrderHandlerFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	order := testutil.CreateTestOrder(t, f.db, customer, milk, 2)

	rec := f.do(t, http.MethodPut, fmt.Sprintf("/orders/%s/status", order.ID), domain.UpdateOrderStatusRequest{
		Status: domain.OrderStatusRejected,
		Notes:  "out of stock",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/orders/%s/history", order.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrderHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, domain.OrderStatusRejected, resp.History[0].NewStatus)
	assert.Equal(t, "out of stock", resp.History[0].Notes)
	assert.Equal(t, "Sam Ellis", resp.History[0].ChangedByName)
}

func TestOrderHandlerWebhook(t *testing.T) {
	f := newOrderHandlerFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	order := testutil.CreateTestOrder(t, f.db, customer, milk, 2)

	body := map[string]interface{}{
		"record": map[string]interface{}{"id": order.ID.String()},
	}
	rec := f.do(t, http.MethodPost, "/webhooks/order-approved", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.True(t, resp.NotificationSent)
}

func TestOrderHandlerWebhookByOrderNumber(t *testing.T) {
	f := newOrderHandlerFixture(t)
	customer := testutil.CreateTestProfile(t, f.db, "Dana Wu", domain.RoleCustomer)
	milk := testutil.CreateTestProduct(t, f.db, "Milk", 8.50)
	order := testutil.CreateTestOrder(t, f.db, customer, milk, 2)

	body := map[string]interface{}{
		"record": map[string]interface{}{"order_number": order.OrderNumber},
	}
	rec := f.do(t, http.MethodPost, "/webhooks/order-approved", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.NotificationSent)
}

func TestOrderHandlerWebhookValidation(t *testing.T) {
	f := newOrderHandlerFixture(t)

	// An envelope with no order id is rejected
	rec := f.do(t, http.MethodPost, "/webhooks/order-approved", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := map[string]interface{}{
		"order": map[string]interface{}{"id": uuid.New().String()},
	}
	rec = f.do(t, http.MethodPost, "/webhooks/order-approved", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
