package models

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type ProductsRepository struct {
	db *gorm.DB
}

// ErrProductNotFound is returned when a product is not found.
var ErrProductNotFound = errors.New("product not found")

// ErrVariantNotFound is returned when no variant matches the requested
// (product, size, edition) combination.
var ErrVariantNotFound = errors.New("product variant not found")

// ErrVariantExists is returned when a variant with the same
// (product, size, edition) already exists.
var ErrVariantExists = errors.New("product variant already exists")

// Sort orders accepted by the catalog listing.
const (
	SortCreatedAsc  = "created_at_asc"
	SortCreatedDesc = "created_at_desc"
)

type ProductFilters struct {
	CategoryID uint
	Limit      int
	Sort       string
}

func NewProductsRepository(db *gorm.DB) *ProductsRepository {
	return &ProductsRepository{
		db: db,
	}
}

func (r *ProductsRepository) GetProducts(filters ProductFilters) ([]Product, error) {
	query := r.db.
		Preload("Variants").
		Preload("Category")

	if filters.CategoryID != 0 {
		query = query.Where("category_id = ?", filters.CategoryID)
	}

	if filters.Sort == SortCreatedAsc {
		query = query.Order("created_at ASC")
	} else {
		query = query.Order("created_at DESC")
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	var products []Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductsRepository) GetByID(id uint) (*Product, error) {
	var product Product
	if err := r.db.
		Preload("Variants").
		Preload("Category").
		First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err // Other DB error
	}
	return &product, nil
}

// CreateProduct inserts the product together with its variants.
func (r *ProductsRepository) CreateProduct(product *Product) error {
	if err := r.db.Create(product).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrVariantExists
		}
		return err
	}
	return nil
}

// SaveProduct persists field updates on an existing product.
func (r *ProductsRepository) SaveProduct(product *Product) error {
	return r.db.Omit("Variants", "Category").Save(product).Error
}

// DeleteProduct removes a product and all of its variants.
func (r *ProductsRepository) DeleteProduct(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&ProductVariant{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProductNotFound
		}
		return nil
	})
}

func (r *ProductsRepository) VariantsForProduct(productID uint) ([]ProductVariant, error) {
	if _, err := r.GetByID(productID); err != nil {
		return nil, err
	}
	var variants []ProductVariant
	if err := r.db.
		Where("product_id = ?", productID).
		Order("id").
		Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *ProductsRepository) GetVariant(productID, variantID uint) (*ProductVariant, error) {
	var variant ProductVariant
	if err := r.db.
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&variant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	return &variant, nil
}

func (r *ProductsRepository) CreateVariant(variant *ProductVariant) error {
	if err := r.db.Create(variant).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrVariantExists
		}
		return err
	}
	return nil
}

func (r *ProductsRepository) SaveVariant(variant *ProductVariant) error {
	return r.db.Save(variant).Error
}

// CategoryProductCount is one row of the per-category product tally.
type CategoryProductCount struct {
	CategoryID   uint   `json:"category_id"`
	CategoryName string `json:"category_name"`
	Count        int64  `json:"count"`
}

// CountByCategory tallies products per category, including empty categories.
func (r *ProductsRepository) CountByCategory() ([]CategoryProductCount, error) {
	var counts []CategoryProductCount
	if err := r.db.Model(&Category{}).
		Select("categories.id AS category_id, categories.name AS category_name, COUNT(products.id) AS count").
		Joins("LEFT JOIN products ON products.category_id = categories.id").
		Group("categories.id, categories.name").
		Order("categories.id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
