package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"github.com/sn-foods/commerce-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newProductService(t *testing.T) (*ProductService, *gorm.DB) {
	db := testutil.SetupTestDB(t)
	svc := NewProductService(
		repository.NewProductRepository(db),
		repository.NewCategoryRepository(db),
		nil,
		zap.NewNop(),
	)
	return svc, db
}

func TestImportCSV(t *testing.T) {
	svc, db := newProductService(t)

	csvData := strings.Join([]string{
		"sku,name,brand,category,unit,price,min_order_quantity,stock_quantity,dietary_tags",
		"MLK-001,Full Cream Milk 2L,Dairy Co,Dairy,each,8.50,1,120,",
		"CHS-002,Tasty Cheese 1kg,Dairy Co,Dairy,block,14.90,2,40,gluten_free",
		"BRD-003,Sourdough Loaf,Bakehouse,Bakery,each,3.75,,,",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Zero(t, result.Skipped)
	assert.Empty(t, result.Errors)

	// Categories are created on first reference and reused after
	var categories []domain.Category
	require.NoError(t, db.Order("name ASC").Find(&categories).Error)
	require.Len(t, categories, 2)
	assert.Equal(t, "Bakery", categories[0].Name)
	assert.Equal(t, "Dairy", categories[1].Name)

	var products []domain.Product
	require.NoError(t, db.Order("sku ASC").Find(&products).Error)
	require.Len(t, products, 3)
	assert.Equal(t, "Sourdough Loaf", products[0].Name)
	assert.Equal(t, 1, products[0].MinOrderQuantity)
	assert.Equal(t, "each", products[0].Unit)
	assert.Equal(t, 14.90, products[1].Price)
}

func TestImportCSVSkipsBadRows(t *testing.T) {
	svc, db := newProductService(t)

	csvData := strings.Join([]string{
		"sku,name,brand,category,unit,price,min_order_quantity,stock_quantity,dietary_tags",
		"MLK-001,Full Cream Milk 2L,Dairy Co,Dairy,each,8.50,1,120,",
		"BAD-001,Broken Price,Brand,,each,not-a-number,1,0,",
		"BAD-002,,Brand,,each,5.00,1,0,",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "invalid price")
	assert.Contains(t, result.Errors[1], "missing name")

	var count int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestImportCSVRejectsShortHeader(t *testing.T) {
	svc, _ := newProductService(t)

	_, err := svc.ImportCSV(context.Background(), strings.NewReader("sku,name\nA,B"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProductLifecycle(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateProductRequest{
		SKU:   "MLK-001",
		Name:  "Full Cream Milk 2L",
		Price: 8.50,
	})
	require.NoError(t, err)
	assert.Equal(t, "each", created.Unit)
	assert.Equal(t, 1, created.MinOrderQuantity)
	assert.True(t, created.IsActive)

	newPrice := 8.90
	updated, err := svc.Update(ctx, created.ID, &domain.UpdateProductRequest{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, 8.90, updated.Price)

	require.NoError(t, svc.Deactivate(ctx, created.ID))

	// Deactivated products drop out of the default listing
	products, total, err := svc.List(ctx, &domain.ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, products)

	// But stay loadable for order item references
	reloaded, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
}

func TestCreateProductUnknownCategory(t *testing.T) {
	svc, db := newProductService(t)

	category := &domain.Category{Name: "Dairy", IsActive: true}
	require.NoError(t, db.Create(category).Error)

	created, err := svc.Create(context.Background(), &domain.CreateProductRequest{
		Name:       "Milk",
		Price:      8.50,
		CategoryID: &category.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, category.ID, *created.CategoryID)

	missing := uuid.New()
	_, err = svc.Create(context.Background(), &domain.CreateProductRequest{
		Name:       "Cheese",
		Price:      14.90,
		CategoryID: &missing,
	})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestUploadImageRejectsNonImage(t *testing.T) {
	svc, db := newProductService(t)
	product := testutil.CreateTestProduct(t, db, "Olive Oil 4L", 42.00)

	// Rejected before any storage call, so the nil storage is never touched
	_, err := svc.UploadImage(context.Background(), product.ID, "catalog.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UploadImage(context.Background(), product.ID, "script.sh", "", strings.NewReader("#!/bin/sh"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
