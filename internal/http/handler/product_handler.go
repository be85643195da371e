package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/service"
	"go.uber.org/zap"
)

type ProductHandler struct {
	productService *service.ProductService
	maxUploadMB    int64
	logger         *zap.Logger
}

func NewProductHandler(productService *service.ProductService, maxUploadMB int64, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		maxUploadMB:    maxUploadMB,
		logger:         logger,
	}
}

// @Summary List products
// @Description List catalog products with optional filters
// @Tags Products
// @Produce json
// @Param q query string false "Search by name, SKU or brand"
// @Param categoryId query string false "Filter by category"
// @Param includeInactive query bool false "Include deactivated products"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := &domain.ProductFilter{
		Search:     r.URL.Query().Get("q"),
		ActiveOnly: r.URL.Query().Get("includeInactive") != "true",
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	if cid := r.URL.Query().Get("categoryId"); cid != "" {
		id, err := uuid.Parse(cid)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid categoryId: must be a valid UUID")
			return
		}
		filter.CategoryID = &id
	}

	products, total, err := h.productService.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	respondJSON(w, http.StatusOK, domain.PaginatedResponse{
		Data:   products,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// @Summary Create product
// @Description Add a product to the catalog
// @Tags Products
// @Accept json
// @Produce json
// @Param request body domain.CreateProductRequest true "Product data"
// @Success 201 {object} domain.Product
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	product, err := h.productService.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, "Category not found")
			return
		}
		h.logger.Error("failed to create product", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	w.Header().Set("Location", "/api/v1/products/"+product.ID.String())
	respondJSON(w, http.StatusCreated, product)
}

// @Summary Get product
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /products/{id} [get]
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID: must be a valid UUID")
		return
	}

	product, err := h.productService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.Error("failed to get product", zap.Error(err), zap.String("product_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// @Summary Update product
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body domain.UpdateProductRequest true "Product data"
// @Success 200 {object} domain.Product
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /products/{id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID: must be a valid UUID")
		return
	}

	var req domain.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	product, err := h.productService.Update(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		case errors.Is(err, service.ErrCategoryNotFound):
			respondWithError(w, http.StatusNotFound, "Category not found")
			return
		}
		h.logger.Error("failed to update product", zap.Error(err), zap.String("product_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// @Summary Deactivate product
// @Description Soft-delete a product; existing order items keep their snapshot
// @Tags Products
// @Param id path string true "Product ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /products/{id} [delete]
func (h *ProductHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID: must be a valid UUID")
		return
	}

	if err := h.productService.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.Error("failed to deactivate product", zap.Error(err), zap.String("product_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to deactivate product")
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// @Summary Import products from CSV
// @Description Bulk-import products; rows that fail to parse are skipped and reported
// @Tags Products
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file (sku,name,brand,category,unit,price,min_order_quantity,stock_quantity,dietary_tags)"
// @Success 200 {object} domain.ProductImportResult
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /products/import [post]
func (h *ProductHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(h.maxUploadMB * 1024 * 1024); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	result, err := h.productService.ImportCSV(r.Context(), file)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to import products", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to import products")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Upload product image
// @Tags Products
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Product ID"
// @Param file formData file true "Image file"
// @Success 200 {object} domain.Product
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /products/{id}/image [post]
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID: must be a valid UUID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(h.maxUploadMB * 1024 * 1024); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	product, err := h.productService.UploadImage(r.Context(), id, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to upload product image", zap.Error(err), zap.String("product_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to upload product image")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// @Summary Download product image
// @Tags Products
// @Produce application/octet-stream
// @Param id path string true "Product ID"
// @Success 200
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /products/{id}/image [get]
func (h *ProductHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID: must be a valid UUID")
		return
	}

	reader, err := h.productService.DownloadImage(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product image not found")
			return
		}
		h.logger.Error("failed to download product image", zap.Error(err), zap.String("product_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to download product image")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = io.Copy(w, reader)
}

// @Summary List categories
// @Tags Products
// @Produce json
// @Success 200 {object} CategoryListResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /categories [get]
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("failed to list categories", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	respondJSON(w, http.StatusOK, CategoryListResponse{Categories: categories})
}

// CategoryListResponse wraps the category list
type CategoryListResponse struct {
	Categories []domain.Category `json:"categories"`
}

// @Summary Create category
// @Tags Products
// @Accept json
// @Produce json
// @Param request body domain.CreateCategoryRequest true "Category data"
// @Success 201 {object} domain.Category
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /categories [post]
func (h *ProductHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	category, err := h.productService.CreateCategory(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create category", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	respondJSON(w, http.StatusCreated, category)
}
