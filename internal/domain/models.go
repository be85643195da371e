package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the database default is not available
// (e.g. sqlite in tests).
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// UserRole represents the role of a profile in the system
type UserRole string

const (
	RoleCustomer   UserRole = "customer"
	RoleSalesAdmin UserRole = "sales_admin"
	RoleAdmin      UserRole = "admin"
)

// IsValid checks if the UserRole is a valid enum value
func (r UserRole) IsValid() bool {
	switch r {
	case RoleCustomer, RoleSalesAdmin, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role grants back-office access
func (r UserRole) IsStaff() bool {
	return r == RoleSalesAdmin || r == RoleAdmin
}

// Profile represents a person record keyed to an authentication identity.
// Profiles are created lazily on a user's first authenticated request.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	FullName  string    `gorm:"type:varchar(200);column:full_name"`
	Phone     string    `gorm:"type:varchar(50)"`
	Role      UserRole  `gorm:"type:varchar(50);not null;default:'customer';index"`
	IsActive  bool      `gorm:"not null;default:true;column:is_active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// DisplayName returns the profile's name, falling back to the email address
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

// UserInvitation is an admin-issued invitation to join with a given role.
// Profiles are keyed by the auth provider's subject id, which is unknown
// until the person first signs in, so the invitation records the intended
// role and is applied when the matching profile is first created.
type UserInvitation struct {
	BaseModel
	Email      string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	FullName   string     `gorm:"type:varchar(200);column:full_name"`
	Role       UserRole   `gorm:"type:varchar(50);not null;default:'customer'"`
	InvitedBy  *uuid.UUID `gorm:"type:uuid;column:invited_by"`
	Inviter    *Profile   `gorm:"foreignKey:InvitedBy"`
	AcceptedAt *time.Time `gorm:"column:accepted_at"`
}

// IsAccepted reports whether the invited person has signed in
func (i *UserInvitation) IsAccepted() bool {
	return i.AcceptedAt != nil
}

// TableName overrides the default table name to match the migration
func (UserInvitation) TableName() string {
	return "user_invitations"
}

// AccountType classifies the kind of entity behind a business account
type AccountType string

const (
	AccountTypeBusiness   AccountType = "business"
	AccountTypeIndividual AccountType = "individual"
	AccountTypeGovernment AccountType = "government"
)

// IsValid checks if the AccountType is a valid enum value
func (at AccountType) IsValid() bool {
	switch at {
	case AccountTypeBusiness, AccountTypeIndividual, AccountTypeGovernment:
		return true
	}
	return false
}

// Account represents a business entity that can place orders collectively.
// Accounts are never hard-deleted; deactivation sets is_active = false.
type Account struct {
	BaseModel
	AccountNumber    string      `gorm:"type:varchar(50);unique;index;column:account_number"`
	Name             string      `gorm:"type:varchar(200);not null;index"`
	AccountType      AccountType `gorm:"type:varchar(50);not null;default:'business';column:account_type;index"`
	Email            string      `gorm:"type:varchar(255)"`
	Phone            string      `gorm:"type:varchar(50)"`
	BillingAddress   string      `gorm:"type:varchar(500);column:billing_address"`
	BillingCity      string      `gorm:"type:varchar(100);column:billing_city"`
	BillingPostcode  string      `gorm:"type:varchar(20);column:billing_postcode"`
	BillingState     string      `gorm:"type:varchar(100);column:billing_state"`
	ShippingAddress  string      `gorm:"type:varchar(500);column:shipping_address"`
	ShippingCity     string      `gorm:"type:varchar(100);column:shipping_city"`
	ShippingPostcode string      `gorm:"type:varchar(20);column:shipping_postcode"`
	ShippingState    string      `gorm:"type:varchar(100);column:shipping_state"`
	CreditLimit      float64     `gorm:"type:decimal(15,2);not null;default:0;column:credit_limit"`
	PaymentTerms     string      `gorm:"type:varchar(100);column:payment_terms"`
	Notes            string      `gorm:"type:text"`
	IsActive         bool        `gorm:"not null;default:true;column:is_active;index"`

	Relationships []ContactAccountRelationship `gorm:"foreignKey:AccountID"`
}

// RelationshipType represents the role a contact holds within an account
type RelationshipType string

const (
	RelationshipOwner  RelationshipType = "owner"
	RelationshipAdmin  RelationshipType = "admin"
	RelationshipMember RelationshipType = "member"
	RelationshipViewer RelationshipType = "viewer"
)

// IsValid checks if the RelationshipType is a valid enum value
func (rt RelationshipType) IsValid() bool {
	switch rt {
	case RelationshipOwner, RelationshipAdmin, RelationshipMember, RelationshipViewer:
		return true
	}
	return false
}

// ContactAccountRelationship links a person (Profile) to an Account with
// per-account capability flags. A person may belong to multiple accounts
// with different capabilities on each.
type ContactAccountRelationship struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key"`
	AccountID        uuid.UUID        `gorm:"type:uuid;not null;index;column:account_id"`
	Account          *Account         `gorm:"foreignKey:AccountID"`
	ContactID        uuid.UUID        `gorm:"type:uuid;not null;index;column:contact_id"`
	Contact          *Profile         `gorm:"foreignKey:ContactID"`
	RelationshipType RelationshipType `gorm:"type:varchar(50);not null;default:'member';column:relationship_type"`
	CanPlaceOrders   bool             `gorm:"not null;default:false;column:can_place_orders"`
	CanViewOrders    bool             `gorm:"not null;default:true;column:can_view_orders"`
	CanManageAccount bool             `gorm:"not null;default:false;column:can_manage_account"`
	IsPrimaryContact bool             `gorm:"not null;default:false;column:is_primary_contact"`
	CreatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the database default is not available
func (r *ContactAccountRelationship) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default table name to match the migration
func (ContactAccountRelationship) TableName() string {
	return "contact_account_relationships"
}

// Category groups products in the catalog
type Category struct {
	BaseModel
	Name         string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Description  string `gorm:"type:text"`
	DisplayOrder int    `gorm:"not null;default:0;column:display_order"`
	IsActive     bool   `gorm:"not null;default:true;column:is_active"`
}

// Product represents an item in the food catalog
type Product struct {
	BaseModel
	SKU              string         `gorm:"type:varchar(50);unique;index;column:sku"`
	Name             string         `gorm:"type:varchar(200);not null;index"`
	Brand            string         `gorm:"type:varchar(200);index"`
	Description      string         `gorm:"type:text"`
	CategoryID       *uuid.UUID     `gorm:"type:uuid;index;column:category_id"`
	Category         *Category      `gorm:"foreignKey:CategoryID"`
	Unit             string         `gorm:"type:varchar(50);not null;default:'each'"`
	Price            float64        `gorm:"type:decimal(15,2);not null;default:0"`
	MinOrderQuantity int            `gorm:"not null;default:1;column:min_order_quantity"`
	StockQuantity    int            `gorm:"not null;default:0;column:stock_quantity"`
	DietaryTags      pq.StringArray `gorm:"type:text[];column:dietary_tags"`
	ImagePath        string         `gorm:"type:varchar(500);column:image_path"`
	IsActive         bool           `gorm:"not null;default:true;column:is_active;index"`
}

// OrderStatus represents the status of an order in its lifecycle.
// Only pending, approved and rejected carry transition logic; the remaining
// statuses are reserved for the fulfilment workflow.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusApproved OrderStatus = "approved"
	OrderStatusRejected OrderStatus = "rejected"

	// Reserved fulfilment statuses, no transitions defined.
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid checks if the OrderStatus is a valid enum value
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected,
		OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order represents a priced collection of line items placed either by an
// individual customer or by a contact acting on behalf of an account.
// Exactly one of CustomerID or (AccountID + OrderedByContactID) is set.
type Order struct {
	BaseModel
	OrderNumber string      `gorm:"type:varchar(50);not null;unique;index;column:order_number"`
	Status      OrderStatus `gorm:"type:varchar(50);not null;default:'pending';index"`

	CustomerID *uuid.UUID `gorm:"type:uuid;index;column:customer_id"`
	Customer   *Profile   `gorm:"foreignKey:CustomerID"`

	AccountID          *uuid.UUID `gorm:"type:uuid;index;column:account_id"`
	Account            *Account   `gorm:"foreignKey:AccountID"`
	OrderedByContactID *uuid.UUID `gorm:"type:uuid;column:ordered_by_contact_id"`
	OrderedByContact   *Profile   `gorm:"foreignKey:OrderedByContactID"`

	Subtotal    float64 `gorm:"type:decimal(15,2);not null;default:0"`
	TaxAmount   float64 `gorm:"type:decimal(15,2);not null;default:0;column:tax_amount"`
	TotalAmount float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_amount"`

	Notes string `gorm:"type:text"`

	ApprovedBy *uuid.UUID `gorm:"type:uuid;column:approved_by"`
	Approver   *Profile   `gorm:"foreignKey:ApprovedBy"`
	ApprovedAt *time.Time `gorm:"column:approved_at"`

	// Invoice reference in the MYOB ERP, set once the order is exported.
	MYOBInvoiceID string `gorm:"type:varchar(100);column:myob_invoice_id"`

	Items   []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History []OrderStatusHistory `gorm:"foreignKey:OrderID"`
}

// IsAccountOrder reports whether the order was placed on behalf of an account
func (o *Order) IsAccountOrder() bool {
	return o.AccountID != nil
}

// OrderItem is a line item snapshot taken at order time. Items are immutable
// once created; they are superseded only by a new order.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index;column:order_id"`
	Order       *Order    `gorm:"foreignKey:OrderID"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index;column:product_id"`
	Product     *Product  `gorm:"foreignKey:ProductID"`
	ProductName string    `gorm:"type:varchar(200);not null;column:product_name"`
	Unit        string    `gorm:"type:varchar(50);not null;default:'each'"`
	Quantity    int       `gorm:"not null"`
	UnitPrice   float64   `gorm:"type:decimal(15,2);not null;column:unit_price"`
	TotalPrice  float64   `gorm:"type:decimal(15,2);not null;column:total_price"`
}

// OrderStatusHistory is the append-only audit trail of status transitions.
// Rows are never updated or deleted. OldStatus is null only for the entry
// written at order creation.
type OrderStatusHistory struct {
	ID            uuid.UUID    `gorm:"type:uuid;primary_key"`
	OrderID       uuid.UUID    `gorm:"type:uuid;not null;index;column:order_id"`
	Order         *Order       `gorm:"foreignKey:OrderID"`
	OldStatus     *OrderStatus `gorm:"type:varchar(50);column:old_status"`
	NewStatus     OrderStatus  `gorm:"type:varchar(50);not null;column:new_status"`
	ChangedBy     *uuid.UUID   `gorm:"type:uuid;column:changed_by"`
	ChangedByName string       `gorm:"type:varchar(200);column:changed_by_name"`
	Notes         string       `gorm:"type:text"`
	ChangedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;column:changed_at"`
}

// BeforeCreate assigns an ID when the database default is not available
func (h *OrderStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default table name to match the migration
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

// SequenceScope identifies which numbering series a sequence row belongs to
type SequenceScope string

const (
	SequenceScopeOrder   SequenceScope = "order"
	SequenceScopeAccount SequenceScope = "account"
)

// OrderSequence holds the per-scope, per-year counter behind generated
// order and account numbers.
type OrderSequence struct {
	ID           uuid.UUID     `gorm:"type:uuid;primary_key"`
	Scope        SequenceScope `gorm:"type:varchar(50);not null;uniqueIndex:idx_sequence_scope_year"`
	Year         int           `gorm:"not null;uniqueIndex:idx_sequence_scope_year"`
	LastSequence int           `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the database default is not available
func (s *OrderSequence) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default table name to match the migration
func (OrderSequence) TableName() string {
	return "order_sequences"
}
