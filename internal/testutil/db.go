// Package testutil provides shared helpers for package tests: an isolated
// in-memory database and seed data constructors.
package testutil

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an isolated in-memory database with the full schema.
// Each call returns a fresh database, so tests never share state.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open test database")

	err = db.AutoMigrate(
		&domain.Profile{},
		&domain.Account{},
		&domain.ContactAccountRelationship{},
		&domain.Category{},
		&domain.Product{},
		&domain.Order{},
		&domain.OrderItem{},
		&domain.OrderStatusHistory{},
		&domain.OrderSequence{},
		&domain.UserInvitation{},
	)
	require.NoError(t, err, "Failed to migrate test database")

	return db
}

// CreateTestProfile creates a profile with the given role
func CreateTestProfile(t *testing.T, db *gorm.DB, name string, role domain.UserRole) *domain.Profile {
	t.Helper()

	profile := &domain.Profile{
		ID:       uuid.New(),
		Email:    fmt.Sprintf("%s-%06d@example.com", role, rand.Intn(1000000)),
		FullName: name,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

// CreateTestAccount creates an active business account
func CreateTestAccount(t *testing.T, db *gorm.DB, name string) *domain.Account {
	t.Helper()

	account := &domain.Account{
		AccountNumber: fmt.Sprintf("ACC-2026-%04d", rand.Intn(10000)),
		Name:          name,
		AccountType:   domain.AccountTypeBusiness,
		Email:         "orders@" + name + ".example.com",
		IsActive:      true,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

// LinkContact links a profile to an account with the given flags
func LinkContact(t *testing.T, db *gorm.DB, account *domain.Account, contact *domain.Profile, isPrimary bool) *domain.ContactAccountRelationship {
	t.Helper()

	rel := &domain.ContactAccountRelationship{
		AccountID:        account.ID,
		ContactID:        contact.ID,
		RelationshipType: domain.RelationshipMember,
		CanPlaceOrders:   true,
		CanViewOrders:    true,
		IsPrimaryContact: isPrimary,
	}
	require.NoError(t, db.Create(rel).Error)
	return rel
}

// CreateTestProduct creates an active catalog product
func CreateTestProduct(t *testing.T, db *gorm.DB, name string, price float64) *domain.Product {
	t.Helper()

	product := &domain.Product{
		SKU:              fmt.Sprintf("SKU-%06d", rand.Intn(1000000)),
		Name:             name,
		Unit:             "each",
		Price:            price,
		MinOrderQuantity: 1,
		IsActive:         true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// CreateTestOrder creates a pending customer order with a single item
func CreateTestOrder(t *testing.T, db *gorm.DB, customer *domain.Profile, product *domain.Product, quantity int) *domain.Order {
	t.Helper()

	totals := domain.ComputeTotals([]domain.OrderItem{
		{Quantity: quantity, UnitPrice: product.Price, TotalPrice: domain.Round2(float64(quantity) * product.Price)},
	})

	order := &domain.Order{
		OrderNumber: fmt.Sprintf("ORD-2026-%05d", rand.Intn(100000)),
		Status:      domain.OrderStatusPending,
		CustomerID:  &customer.ID,
		Subtotal:    totals.Subtotal,
		TaxAmount:   totals.TaxAmount,
		TotalAmount: totals.TotalAmount,
		Items: []domain.OrderItem{
			{
				ProductID:   product.ID,
				ProductName: product.Name,
				Unit:        product.Unit,
				Quantity:    quantity,
				UnitPrice:   product.Price,
				TotalPrice:  domain.Round2(float64(quantity) * product.Price),
			},
		},
	}
	require.NoError(t, db.Create(order).Error)
	return order
}
