package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/donjersey/shop-api/app/api"
	"github.com/donjersey/shop-api/models"
)

type Variant struct {
	ID       uint    `json:"id"`
	Size     string  `json:"size"`
	Edition  string  `json:"edition"`
	Stock    int     `json:"stock"`
	Badge    *string `json:"badge,omitempty"`
	FontType *string `json:"font_type,omitempty"`
}

type Category struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CategoryID  uint      `json:"category_id"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	SizeType    string    `json:"size_type"`
	CreatedAt   string    `json:"created_at"`
	SoldOut     bool      `json:"sold_out"`
	Variants    []Variant `json:"variants"`
}

type ProductProvider interface {
	GetProducts(filters models.ProductFilters) ([]models.Product, error)
	GetByID(id uint) (*models.Product, error)
	VariantsForProduct(productID uint) ([]models.ProductVariant, error)
	CountByCategory() ([]models.CategoryProductCount, error)
}

type CatalogHandler struct {
	repo ProductProvider
}

func NewCatalogHandler(r ProductProvider) *CatalogHandler {
	return &CatalogHandler{
		repo: r,
	}
}

// HandleGet lists products, optionally filtered by category and limited,
// sorted by creation time (descending unless sort=created_at_asc).
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	filters := models.ProductFilters{
		Sort: parseSort(r.URL.Query().Get("sort")),
	}

	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil && l > 0 {
			filters.Limit = l
		}
	}

	if cStr := r.URL.Query().Get("category_id"); cStr != "" {
		if c, err := strconv.ParseUint(cStr, 10, 32); err == nil {
			filters.CategoryID = uint(c)
		}
	}

	res, err := h.repo.GetProducts(filters)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to get products")
		return
	}

	products := make([]Product, len(res))
	for i, p := range res {
		products[i] = toProduct(p)
	}
	api.JSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		api.Error(w, http.StatusNotFound, "Product not found")
		return
	}

	product, err := h.repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			api.Error(w, http.StatusNotFound, "Product not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	response := struct {
		ID          uint      `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Price       float64   `json:"price"`
		Category    Category  `json:"category"`
		ImageURL    string    `json:"image_url"`
		SizeType    string    `json:"size_type"`
		CreatedAt   string    `json:"created_at"`
		SoldOut     bool      `json:"sold_out"`
		Variants    []Variant `json:"variants"`
	}{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.InexactFloat64(),
		Category: Category{
			ID:   product.Category.ID,
			Name: product.Category.Name,
		},
		ImageURL:  product.ImageURL,
		SizeType:  product.SizeType,
		CreatedAt: product.CreatedAt.UTC().Format(time.RFC3339),
		SoldOut:   product.SoldOut(),
		Variants:  toVariants(product.Variants),
	}

	api.JSON(w, http.StatusOK, response)
}

func (h *CatalogHandler) HandleGetVariants(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		api.Error(w, http.StatusNotFound, "Product not found")
		return
	}

	variants, err := h.repo.VariantsForProduct(uint(id))
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			api.Error(w, http.StatusNotFound, "Product not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to get variants")
		return
	}

	api.JSON(w, http.StatusOK, toVariants(variants))
}

func (h *CatalogHandler) HandleCountByCategory(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.CountByCategory()
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to count products")
		return
	}
	api.JSON(w, http.StatusOK, counts)
}

func toProduct(p models.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		CategoryID:  p.CategoryID,
		Category:    p.Category.Name,
		ImageURL:    p.ImageURL,
		SizeType:    p.SizeType,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		SoldOut:     p.SoldOut(),
		Variants:    toVariants(p.Variants),
	}
}

func toVariants(variants []models.ProductVariant) []Variant {
	out := make([]Variant, len(variants))
	for i, v := range variants {
		out[i] = Variant{
			ID:       v.ID,
			Size:     v.Size,
			Edition:  v.Edition,
			Stock:    v.Stock,
			Badge:    v.Badge,
			FontType: v.FontType,
		}
	}
	return out
}

func parseSort(raw string) string {
	if raw == models.SortCreatedAsc {
		return models.SortCreatedAsc
	}
	return models.SortCreatedDesc
}
