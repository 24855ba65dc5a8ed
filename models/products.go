package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Size types supported by the storefront. Standard sizes are letters (S, M, L),
// number sizes are shoe sizes (38, 39, 40).
const (
	SizeTypeStandard = "standard"
	SizeTypeNumber   = "number"
)

// Product represents a product in the catalog.
// It includes a price, category, image reference and a list of size/edition variants.
type Product struct {
	ID          uint             `gorm:"primaryKey"`
	Name        string           `gorm:"size:255;not null"`
	Description string           `gorm:"type:text;not null"`
	Price       decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	CategoryID  uint             `gorm:"not null"`
	Category    Category         `gorm:"foreignKey:CategoryID"`
	ImageURL    string           `gorm:"size:255"`
	SizeType    string           `gorm:"size:50;not null;default:standard"`
	CreatedAt   time.Time
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (p *Product) TableName() string {
	return "products"
}

// SoldOut reports whether every variant of the product is out of stock.
// A product with no variants is not considered sold out. Always derived,
// never persisted.
func (p *Product) SoldOut() bool {
	if len(p.Variants) == 0 {
		return false
	}
	for _, v := range p.Variants {
		if v.Stock > 0 {
			return false
		}
	}
	return true
}

// ProductVariant is one purchasable size/edition combination of a product,
// carrying its own stock count. The (product, size, edition) tuple is a real
// unique constraint, so variant lookup is an indexed query.
type ProductVariant struct {
	ID        uint    `gorm:"primaryKey"`
	ProductID uint    `gorm:"not null;uniqueIndex:idx_variants_product_size_edition"`
	Size      string  `gorm:"size:20;not null;uniqueIndex:idx_variants_product_size_edition"`
	Edition   string  `gorm:"size:50;not null;uniqueIndex:idx_variants_product_size_edition"`
	Stock     int     `gorm:"not null;check:stock >= 0"`
	Badge     *string `gorm:"size:50"`
	FontType  *string `gorm:"size:50"`
	CreatedAt time.Time
}

func (v *ProductVariant) TableName() string {
	return "product_variants"
}
