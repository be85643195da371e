package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CartLine is a single line of a cart at order time
type CartLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64   `json:"unit_price" validate:"gte=0"`
	Unit      string    `json:"unit,omitempty"`
}

// CreateOrderRequest is the payload for placing an order. Exactly one of
// CustomerID or (AccountID + OrderedByContactID) must be set.
type CreateOrderRequest struct {
	Items              []CartLine `json:"items" validate:"required,min=1,dive"`
	CustomerID         *uuid.UUID `json:"customer_id,omitempty"`
	AccountID          *uuid.UUID `json:"account_id,omitempty"`
	OrderedByContactID *uuid.UUID `json:"ordered_by_contact_id,omitempty"`
	Notes              string     `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateOrderStatusRequest is the payload for a status transition
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required"`
	Notes  string      `json:"notes,omitempty" validate:"max=2000"`
}

// StatusUpdateResult is returned from a status transition. NotificationSent
// and NotificationError report the best-effort approval email dispatch; a
// dispatch failure never reverts the transition.
type StatusUpdateResult struct {
	Order             *Order `json:"order"`
	NotificationSent  bool   `json:"notification_sent"`
	NotificationError string `json:"notification_error,omitempty"`
}

// Recipient is a resolved notification target
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// OrderApprovedEvent is the webhook payload announcing an approved order.
// Upstream emitters disagree on the envelope key, so both {"record": {...}}
// and {"order": {...}} are accepted and normalized here. Only the order
// reference is trusted; the order is reloaded before dispatch.
type OrderApprovedEvent struct {
	OrderID     uuid.UUID
	OrderNumber string
}

// UnmarshalJSON accepts either envelope shape. Emitters send the row id,
// the generated order number, or both.
func (e *OrderApprovedEvent) UnmarshalJSON(data []byte) error {
	type orderRef struct {
		ID          uuid.UUID `json:"id"`
		OrderNumber string    `json:"order_number"`
	}
	var envelope struct {
		Record *orderRef `json:"record"`
		Order  *orderRef `json:"order"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	ref := envelope.Record
	if ref == nil {
		ref = envelope.Order
	}
	if ref != nil {
		e.OrderID = ref.ID
		e.OrderNumber = ref.OrderNumber
	}
	return nil
}

// CreateAccountRequest is the payload for creating a business account
type CreateAccountRequest struct {
	Name             string      `json:"name" validate:"required,max=200"`
	AccountType      AccountType `json:"account_type,omitempty"`
	Email            string      `json:"email,omitempty" validate:"omitempty,email"`
	Phone            string      `json:"phone,omitempty" validate:"max=50"`
	BillingAddress   string      `json:"billing_address,omitempty" validate:"max=500"`
	BillingCity      string      `json:"billing_city,omitempty" validate:"max=100"`
	BillingPostcode  string      `json:"billing_postcode,omitempty" validate:"max=20"`
	BillingState     string      `json:"billing_state,omitempty" validate:"max=100"`
	ShippingAddress  string      `json:"shipping_address,omitempty" validate:"max=500"`
	ShippingCity     string      `json:"shipping_city,omitempty" validate:"max=100"`
	ShippingPostcode string      `json:"shipping_postcode,omitempty" validate:"max=20"`
	ShippingState    string      `json:"shipping_state,omitempty" validate:"max=100"`
	CreditLimit      float64     `json:"credit_limit,omitempty" validate:"gte=0"`
	PaymentTerms     string      `json:"payment_terms,omitempty" validate:"max=100"`
	Notes            string      `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateAccountRequest is the payload for updating an account.
// Nil pointers leave the corresponding field unchanged.
type UpdateAccountRequest struct {
	Name             *string      `json:"name,omitempty" validate:"omitempty,max=200"`
	AccountType      *AccountType `json:"account_type,omitempty"`
	Email            *string      `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string      `json:"phone,omitempty" validate:"omitempty,max=50"`
	BillingAddress   *string      `json:"billing_address,omitempty" validate:"omitempty,max=500"`
	BillingCity      *string      `json:"billing_city,omitempty" validate:"omitempty,max=100"`
	BillingPostcode  *string      `json:"billing_postcode,omitempty" validate:"omitempty,max=20"`
	BillingState     *string      `json:"billing_state,omitempty" validate:"omitempty,max=100"`
	ShippingAddress  *string      `json:"shipping_address,omitempty" validate:"omitempty,max=500"`
	ShippingCity     *string      `json:"shipping_city,omitempty" validate:"omitempty,max=100"`
	ShippingPostcode *string      `json:"shipping_postcode,omitempty" validate:"omitempty,max=20"`
	ShippingState    *string      `json:"shipping_state,omitempty" validate:"omitempty,max=100"`
	CreditLimit      *float64     `json:"credit_limit,omitempty" validate:"omitempty,gte=0"`
	PaymentTerms     *string      `json:"payment_terms,omitempty" validate:"omitempty,max=100"`
	Notes            *string      `json:"notes,omitempty" validate:"omitempty,max=2000"`
	IsActive         *bool        `json:"is_active,omitempty"`
}

// CreateRelationshipRequest links a contact profile to an account
type CreateRelationshipRequest struct {
	ContactID        uuid.UUID        `json:"contact_id" validate:"required"`
	RelationshipType RelationshipType `json:"relationship_type,omitempty"`
	CanPlaceOrders   bool             `json:"can_place_orders"`
	CanViewOrders    bool             `json:"can_view_orders"`
	CanManageAccount bool             `json:"can_manage_account"`
	IsPrimaryContact bool             `json:"is_primary_contact"`
}

// CreateProductRequest is the payload for adding a catalog product
type CreateProductRequest struct {
	SKU              string     `json:"sku,omitempty" validate:"max=50"`
	Name             string     `json:"name" validate:"required,max=200"`
	Brand            string     `json:"brand,omitempty" validate:"max=200"`
	Description      string     `json:"description,omitempty"`
	CategoryID       *uuid.UUID `json:"category_id,omitempty"`
	Unit             string     `json:"unit,omitempty" validate:"max=50"`
	Price            float64    `json:"price" validate:"gte=0"`
	MinOrderQuantity int        `json:"min_order_quantity,omitempty" validate:"omitempty,gt=0"`
	StockQuantity    int        `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
	DietaryTags      []string   `json:"dietary_tags,omitempty"`
}

// UpdateProductRequest is the payload for updating a catalog product
type UpdateProductRequest struct {
	SKU              *string    `json:"sku,omitempty" validate:"omitempty,max=50"`
	Name             *string    `json:"name,omitempty" validate:"omitempty,max=200"`
	Brand            *string    `json:"brand,omitempty" validate:"omitempty,max=200"`
	Description      *string    `json:"description,omitempty"`
	CategoryID       *uuid.UUID `json:"category_id,omitempty"`
	Unit             *string    `json:"unit,omitempty" validate:"omitempty,max=50"`
	Price            *float64   `json:"price,omitempty" validate:"omitempty,gte=0"`
	MinOrderQuantity *int       `json:"min_order_quantity,omitempty" validate:"omitempty,gt=0"`
	StockQuantity    *int       `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
	DietaryTags      []string   `json:"dietary_tags,omitempty"`
	IsActive         *bool      `json:"is_active,omitempty"`
}

// CreateCategoryRequest is the payload for adding a product category
type CreateCategoryRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Description  string `json:"description,omitempty"`
	DisplayOrder int    `json:"display_order,omitempty"`
}

// InviteUserRequest is the admin payload for inviting a person with a role
type InviteUserRequest struct {
	Email    string   `json:"email" validate:"required,email,max=255"`
	FullName string   `json:"full_name,omitempty" validate:"max=200"`
	Role     UserRole `json:"role" validate:"required"`
}

// UpdateProfileRequest is the payload for updating the caller's own profile
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

// OrderFilter collects the supported order list query parameters
type OrderFilter struct {
	Status     *OrderStatus
	AccountID  *uuid.UUID
	CustomerID *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

// ProductFilter collects the supported product list query parameters
type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// PaginatedResponse wraps a list payload with paging metadata
type PaginatedResponse struct {
	Data   interface{} `json:"data"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// DashboardStats aggregates the back-office landing page counters
type DashboardStats struct {
	OrdersByStatus     map[OrderStatus]int64 `json:"orders_by_status"`
	PendingOrdersValue float64               `json:"pending_orders_value"`
	TotalProducts      int64                 `json:"total_products"`
	TotalAccounts      int64                 `json:"total_accounts"`
	TotalProfiles      int64                 `json:"total_profiles"`
}

// InvoiceStatus is the ERP view of an exported order's invoice
type InvoiceStatus struct {
	InvoiceID     string     `json:"invoice_id"`
	Status        string     `json:"status"`
	AmountDue     float64    `json:"amount_due"`
	AmountPaid    float64    `json:"amount_paid"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	LastUpdatedAt *time.Time `json:"last_updated_at,omitempty"`
}

// ProductImportResult summarizes a CSV bulk import
type ProductImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
