package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/erp"
	"github.com/sn-foods/commerce-api/internal/service"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService        *service.OrderService
	notificationService *service.NotificationService
	erpClient           *erp.Client
	logger              *zap.Logger
}

func NewOrderHandler(
	orderService *service.OrderService,
	notificationService *service.NotificationService,
	erpClient *erp.Client,
	logger *zap.Logger,
) *OrderHandler {
	return &OrderHandler{
		orderService:        orderService,
		notificationService: notificationService,
		erpClient:           erpClient,
		logger:              logger,
	}
}

// @Summary List orders
// @Description List orders with optional filters. Customers see only their own orders.
// @Tags Orders
// @Produce json
// @Param status query string false "Filter by status (pending, approved, rejected)"
// @Param accountId query string false "Filter by account ID"
// @Param customerId query string false "Filter by customer ID"
// @Param dateFrom query string false "Created after date (YYYY-MM-DD)"
// @Param dateTo query string false "Created before date (YYYY-MM-DD)"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /orders [get]
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := &domain.OrderFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.OrderStatus(s)
		if !status.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filter.Status = &status
	}
	if aid := r.URL.Query().Get("accountId"); aid != "" {
		if id, err := uuid.Parse(aid); err == nil {
			filter.AccountID = &id
		}
	}
	if cid := r.URL.Query().Get("customerId"); cid != "" {
		if id, err := uuid.Parse(cid); err == nil {
			filter.CustomerID = &id
		}
	}
	if df := r.URL.Query().Get("dateFrom"); df != "" {
		if t, err := time.Parse("2006-01-02", df); err == nil {
			filter.DateFrom = &t
		}
	}
	if dt := r.URL.Query().Get("dateTo"); dt != "" {
		if t, err := time.Parse("2006-01-02", dt); err == nil {
			filter.DateTo = &t
		}
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	orders, total, err := h.orderService.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		h.logger.Error("failed to list orders", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	respondJSON(w, http.StatusOK, domain.PaginatedResponse{
		Data:   orders,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// @Summary Place order
// @Description Place a new order from a cart, as a customer or on behalf of an account
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body domain.CreateOrderRequest true "Order data"
// @Success 201 {object} domain.Order
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /orders [post]
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	order, err := h.orderService.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInvalidUnitPrice),
			errors.Is(err, service.ErrInvalidOrderContext):
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, service.ErrProductNotFound),
			errors.Is(err, service.ErrProfileNotFound),
			errors.Is(err, service.ErrAccountNotFound):
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to create order", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	w.Header().Set("Location", "/api/v1/orders/"+order.ID.String())
	respondJSON(w, http.StatusCreated, order)
}

// @Summary Get order
// @Description Get an order by ID with items and status history
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /orders/{id} [get]
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID: must be a valid UUID")
		return
	}

	order, err := h.orderService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("failed to get order", zap.Error(err), zap.String("order_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get order")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// @Summary Update order status
// @Description Apply a status transition (pending to approved or rejected). Approval dispatches the notification email.
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body domain.UpdateOrderStatusRequest true "Target status and optional notes"
// @Success 200 {object} domain.StatusUpdateResult
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID: must be a valid UUID")
		return
	}

	var req domain.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.orderService.UpdateStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		case errors.Is(err, service.ErrInvalidStatusTransition):
			respondWithError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, service.ErrOrderStatusConflict):
			respondWithError(w, http.StatusConflict, "Order status was changed by another request, reload and retry")
			return
		}
		h.logger.Error("failed to update order status", zap.Error(err), zap.String("order_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to update order status")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Get order status history
// @Description Get the append-only status transition trail for an order, newest first
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} OrderHistoryResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /orders/{id}/history [get]
func (h *OrderHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID: must be a valid UUID")
		return
	}

	history, err := h.orderService.GetStatusHistory(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("failed to get order history", zap.Error(err), zap.String("order_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get order history")
		return
	}

	respondJSON(w, http.StatusOK, OrderHistoryResponse{History: history})
}

// OrderHistoryResponse wraps the status transition trail
type OrderHistoryResponse struct {
	History []domain.OrderStatusHistory `json:"history"`
}

// @Summary Order approved webhook
// @Description Receive an order-approved event and dispatch the approval notification. Accepts both {"record": {...}} and {"order": {...}} envelopes; the order is referenced by id or order_number.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body domain.OrderApprovedEvent true "Approval event"
// @Success 202 {object} WebhookResponse
// @Security ApiKeyAuth
// @Router /webhooks/order-approved [post]
func (h *OrderHandler) OrderApprovedWebhook(w http.ResponseWriter, r *http.Request) {
	var event domain.OrderApprovedEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	err := h.notificationService.HandleApprovalEvent(r.Context(), &event)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, service.ErrOrderNotFound):
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		case errors.Is(err, service.ErrNoRecipient), errors.Is(err, service.ErrProfileNotFound):
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		// Dispatch failures are reported but the event is acknowledged;
		// the transition itself already happened upstream.
		h.logger.Warn("webhook notification dispatch failed", zap.Error(err))
		respondJSON(w, http.StatusAccepted, WebhookResponse{
			Accepted:          true,
			NotificationSent:  false,
			NotificationError: err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusAccepted, WebhookResponse{
		Accepted:         true,
		NotificationSent: true,
	})
}

// WebhookResponse reports the outcome of an event delivery
type WebhookResponse struct {
	Accepted          bool   `json:"accepted"`
	NotificationSent  bool   `json:"notification_sent"`
	NotificationError string `json:"notification_error,omitempty"`
}

// @Summary Get order invoice status
// @Description Look up the order's invoice in the MYOB mirror
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.InvoiceStatus
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /orders/{id}/invoice [get]
func (h *OrderHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID: must be a valid UUID")
		return
	}

	if !h.erpClient.IsEnabled() {
		respondWithError(w, http.StatusServiceUnavailable, "ERP integration is not enabled")
		return
	}

	order, err := h.orderService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("failed to get order", zap.Error(err), zap.String("order_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get order")
		return
	}
	if order.MYOBInvoiceID == "" {
		respondWithError(w, http.StatusNotFound, "Order has not been invoiced")
		return
	}

	invoice, err := h.erpClient.GetInvoice(r.Context(), order.MYOBInvoiceID)
	if err != nil {
		h.logger.Error("failed to look up invoice", zap.Error(err), zap.String("order_id", id.String()))
		respondWithError(w, http.StatusBadGateway, "Failed to look up invoice")
		return
	}
	if invoice == nil {
		respondWithError(w, http.StatusNotFound, "Invoice not found in ERP")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}
