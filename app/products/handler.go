package products

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/donjersey/shop-api/app/api"
	"github.com/donjersey/shop-api/models"
)

// ProductStore is the slice of the catalog store the admin surface mutates.
type ProductStore interface {
	GetByID(id uint) (*models.Product, error)
	CreateProduct(product *models.Product) error
	SaveProduct(product *models.Product) error
	DeleteProduct(id uint) error
	GetVariant(productID, variantID uint) (*models.ProductVariant, error)
	CreateVariant(variant *models.ProductVariant) error
	SaveVariant(variant *models.ProductVariant) error
}

type ProductsHandler struct {
	repo ProductStore
}

func NewProductsHandler(r ProductStore) *ProductsHandler {
	return &ProductsHandler{repo: r}
}

type variantInput struct {
	ID       *uint   `json:"id"`
	Size     *string `json:"size"`
	Edition  *string `json:"edition"`
	Stock    *int    `json:"stock"`
	Badge    *string `json:"badge"`
	FontType *string `json:"font_type"`
}

type createProductInput struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Price       *float64       `json:"price"`
	CategoryID  *uint          `json:"category_id"`
	ImageURL    *string        `json:"image_url"`
	SizeType    *string        `json:"size_type"`
	Variants    []variantInput `json:"variants"`
}

func (h *ProductsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input createProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	required := []struct {
		field string
		ok    bool
	}{
		{"name", input.Name != nil && *input.Name != ""},
		{"description", input.Description != nil},
		{"price", input.Price != nil},
		{"category_id", input.CategoryID != nil},
		{"image_url", input.ImageURL != nil && *input.ImageURL != ""},
	}
	for _, req := range required {
		if !req.ok {
			api.Error(w, http.StatusBadRequest, fmt.Sprintf("'%s' is required.", req.field))
			return
		}
	}

	if len(input.Variants) == 0 {
		api.Error(w, http.StatusBadRequest, "'variants' must be a non-empty list.")
		return
	}

	variants := make([]models.ProductVariant, len(input.Variants))
	for i, v := range input.Variants {
		if v.Size == nil || v.Edition == nil || v.Stock == nil {
			api.Error(w, http.StatusBadRequest, "Each variant must include 'size', 'edition', and 'stock'.")
			return
		}
		if *v.Stock < 0 {
			api.Error(w, http.StatusBadRequest, "Variant 'stock' must be a non-negative integer.")
			return
		}
		variants[i] = models.ProductVariant{
			Size:     *v.Size,
			Edition:  *v.Edition,
			Stock:    *v.Stock,
			Badge:    v.Badge,
			FontType: v.FontType,
		}
	}

	sizeType := models.SizeTypeStandard
	if input.SizeType != nil && *input.SizeType != "" {
		sizeType = *input.SizeType
	}

	product := &models.Product{
		Name:        *input.Name,
		Description: *input.Description,
		Price:       decimal.NewFromFloat(*input.Price),
		CategoryID:  *input.CategoryID,
		ImageURL:    *input.ImageURL,
		SizeType:    sizeType,
		Variants:    variants,
	}

	if err := h.repo.CreateProduct(product); err != nil {
		if errors.Is(err, models.ErrVariantExists) {
			api.Error(w, http.StatusConflict, "Duplicate variant for this product")
			return
		}
		api.Error(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	api.JSON(w, http.StatusCreated, map[string]any{
		"message":    "Product added successfully!",
		"product_id": product.ID,
	})
}

func (h *ProductsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		api.Error(w, http.StatusNotFound, "Product not found")
		return
	}

	product, err := h.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			api.Error(w, http.StatusNotFound, "Product not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	var input createProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		product.Price = decimal.NewFromFloat(*input.Price)
	}
	if input.CategoryID != nil {
		product.CategoryID = *input.CategoryID
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
	}
	if input.SizeType != nil {
		product.SizeType = *input.SizeType
	}

	if err := h.repo.SaveProduct(product); err != nil {
		api.Error(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	for _, v := range input.Variants {
		if v.ID != nil {
			if ok := h.updateVariant(w, product.ID, v); !ok {
				return
			}
			continue
		}
		if v.Size == nil || v.Edition == nil || v.Stock == nil {
			api.Error(w, http.StatusBadRequest, "New variants must include 'size', 'edition', and 'stock'.")
			return
		}
		if *v.Stock < 0 {
			api.Error(w, http.StatusBadRequest, "Variant 'stock' must be a non-negative integer.")
			return
		}
		variant := &models.ProductVariant{
			ProductID: product.ID,
			Size:      *v.Size,
			Edition:   *v.Edition,
			Stock:     *v.Stock,
			Badge:     v.Badge,
			FontType:  v.FontType,
		}
		if err := h.repo.CreateVariant(variant); err != nil {
			if errors.Is(err, models.ErrVariantExists) {
				api.Error(w, http.StatusConflict, "Duplicate variant for this product")
				return
			}
			api.Error(w, http.StatusInternalServerError, "Failed to create variant")
			return
		}
	}

	api.JSON(w, http.StatusOK, map[string]string{
		"message": "Product updated successfully!",
	})
}

// updateVariant applies a partial update to one existing variant. It writes
// the error response itself and reports whether the caller may continue.
func (h *ProductsHandler) updateVariant(w http.ResponseWriter, productID uint, v variantInput) bool {
	variant, err := h.repo.GetVariant(productID, *v.ID)
	if err != nil {
		if errors.Is(err, models.ErrVariantNotFound) {
			api.Error(w, http.StatusNotFound,
				fmt.Sprintf("Variant with ID %d not found for this product.", *v.ID))
			return false
		}
		api.Error(w, http.StatusInternalServerError, "Failed to retrieve variant")
		return false
	}

	if v.Size != nil {
		variant.Size = *v.Size
	}
	if v.Edition != nil {
		variant.Edition = *v.Edition
	}
	if v.Stock != nil {
		if *v.Stock < 0 {
			api.Error(w, http.StatusBadRequest, "Variant 'stock' must be a non-negative integer.")
			return false
		}
		variant.Stock = *v.Stock
	}
	if v.Badge != nil {
		variant.Badge = v.Badge
	}
	if v.FontType != nil {
		variant.FontType = v.FontType
	}

	if err := h.repo.SaveVariant(variant); err != nil {
		api.Error(w, http.StatusInternalServerError, "Failed to update variant")
		return false
	}
	return true
}

func (h *ProductsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		api.Error(w, http.StatusNotFound, "Product not found")
		return
	}

	if err := h.repo.DeleteProduct(id); err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			api.Error(w, http.StatusNotFound, "Product not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	api.JSON(w, http.StatusOK, map[string]string{
		"message": "Product and its variants deleted successfully!",
	})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
