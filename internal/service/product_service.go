package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"github.com/sn-foods/commerce-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductService manages the catalog: products, categories, CSV import
// and product images.
type ProductService struct {
	productRepo  *repository.ProductRepository
	categoryRepo *repository.CategoryRepository
	storage      storage.Storage
	logger       *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo *repository.ProductRepository,
	categoryRepo *repository.CategoryRepository,
	store storage.Storage,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		storage:      store,
		logger:       logger,
	}
}

// Create adds a product to the catalog
func (s *ProductService) Create(ctx context.Context, req *domain.CreateProductRequest) (*domain.Product, error) {
	if req.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
	}

	unit := req.Unit
	if unit == "" {
		unit = "each"
	}
	minQty := req.MinOrderQuantity
	if minQty <= 0 {
		minQty = 1
	}

	product := &domain.Product{
		SKU:              req.SKU,
		Name:             req.Name,
		Brand:            req.Brand,
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		Unit:             unit,
		Price:            req.Price,
		MinOrderQuantity: minQty,
		StockQuantity:    req.StockQuantity,
		DietaryTags:      pq.StringArray(req.DietaryTags),
		IsActive:         true,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
		zap.String("name", product.Name),
	)
	return product, nil
}

// GetByID returns a product by its id
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// List returns products matching the filter
func (s *ProductService) List(ctx context.Context, filter *domain.ProductFilter) ([]domain.Product, int64, error) {
	return s.productRepo.List(ctx, filter)
}

// Update applies partial changes to a product
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateProductRequest) (*domain.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.SKU != nil {
		product.SKU = *req.SKU
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Brand != nil {
		product.Brand = *req.Brand
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
		product.CategoryID = req.CategoryID
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.MinOrderQuantity != nil {
		product.MinOrderQuantity = *req.MinOrderQuantity
	}
	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}
	if req.DietaryTags != nil {
		product.DietaryTags = pq.StringArray(req.DietaryTags)
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// Deactivate soft-deletes a product
func (s *ProductService) Deactivate(ctx context.Context, id uuid.UUID) error {
	err := s.productRepo.Deactivate(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProductNotFound
	}
	return err
}

// csvHeader is the expected column order for product import files
var csvHeader = []string{"sku", "name", "brand", "category", "unit", "price", "min_order_quantity", "stock_quantity", "dietary_tags"}

// ImportCSV bulk-imports products from a CSV stream. Rows that fail to
// parse are skipped and reported; valid rows are inserted in one batch.
// Categories are created on first reference.
func (s *ProductService) ImportCSV(ctx context.Context, r io.Reader) (*domain.ProductImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", ErrInvalidInput, err)
	}
	if len(header) < len(csvHeader) {
		return nil, fmt.Errorf("%w: expected columns %s", ErrInvalidInput, strings.Join(csvHeader, ","))
	}

	result := &domain.ProductImportResult{}
	categories := map[string]uuid.UUID{}
	var products []domain.Product

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
		if err != nil || price < 0 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid price %q", line, record[5]))
			continue
		}

		minQty := 1
		if v := strings.TrimSpace(record[6]); v != "" {
			if minQty, err = strconv.Atoi(v); err != nil || minQty <= 0 {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid min_order_quantity %q", line, record[6]))
				continue
			}
		}

		stockQty := 0
		if v := strings.TrimSpace(record[7]); v != "" {
			if stockQty, err = strconv.Atoi(v); err != nil || stockQty < 0 {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid stock_quantity %q", line, record[7]))
				continue
			}
		}

		name := strings.TrimSpace(record[1])
		if name == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: missing name", line))
			continue
		}

		var categoryID *uuid.UUID
		if categoryName := strings.TrimSpace(record[3]); categoryName != "" {
			id, err := s.ensureCategory(ctx, categoryName, categories)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
				continue
			}
			categoryID = &id
		}

		unit := strings.TrimSpace(record[4])
		if unit == "" {
			unit = "each"
		}

		var tags pq.StringArray
		if raw := strings.TrimSpace(record[8]); raw != "" {
			for _, tag := range strings.Split(raw, ";") {
				if tag = strings.TrimSpace(tag); tag != "" {
					tags = append(tags, tag)
				}
			}
		}

		products = append(products, domain.Product{
			SKU:              strings.TrimSpace(record[0]),
			Name:             name,
			Brand:            strings.TrimSpace(record[2]),
			CategoryID:       categoryID,
			Unit:             unit,
			Price:            price,
			MinOrderQuantity: minQty,
			StockQuantity:    stockQty,
			DietaryTags:      tags,
			IsActive:         true,
		})
	}

	if err := s.productRepo.BulkCreate(ctx, products); err != nil {
		return nil, fmt.Errorf("failed to import products: %w", err)
	}
	result.Imported = len(products)

	s.logger.Info("product import finished",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *ProductService) ensureCategory(ctx context.Context, name string, cache map[string]uuid.UUID) (uuid.UUID, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}

	category, err := s.categoryRepo.GetByName(ctx, name)
	if err == nil {
		cache[name] = category.ID
		return category.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, err
	}

	category = &domain.Category{Name: name, IsActive: true}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	cache[name] = category.ID
	return category.ID, nil
}

// imageExtensions are the file types accepted for product images
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadImage stores a product image and records its path on the product
func (s *ProductService) UploadImage(ctx context.Context, id uuid.UUID, filename, contentType string, data io.Reader) (*domain.Product, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExtensions[ext] {
		return nil, fmt.Errorf("%w: unsupported image type %q", ErrInvalidInput, ext)
	}

	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	path, size, err := s.storage.Upload(ctx, filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store product image: %w", err)
	}

	// Replace any previous image
	if product.ImagePath != "" {
		if err := s.storage.Delete(ctx, product.ImagePath); err != nil {
			s.logger.Warn("failed to delete previous product image",
				zap.String("product_id", id.String()),
				zap.String("path", product.ImagePath),
				zap.Error(err),
			)
		}
	}

	product.ImagePath = path
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product image path: %w", err)
	}

	s.logger.Info("product image uploaded",
		zap.String("product_id", id.String()),
		zap.String("path", path),
		zap.Int64("size", size),
	)
	return product, nil
}

// DownloadImage streams a product's stored image
func (s *ProductService) DownloadImage(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.ImagePath == "" {
		return nil, fmt.Errorf("%w: product has no image", ErrProductNotFound)
	}
	return s.storage.Download(ctx, product.ImagePath)
}

// CreateCategory adds a product category
func (s *ProductService) CreateCategory(ctx context.Context, req *domain.CreateCategoryRequest) (*domain.Category, error) {
	category := &domain.Category{
		Name:         req.Name,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
		IsActive:     true,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// ListCategories returns all active categories
func (s *ProductService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categoryRepo.List(ctx)
}
