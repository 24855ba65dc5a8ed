package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks the lifecycle of the mobile-money charge attached to
// an order. Orders start Pending and are moved by the gateway callback.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentFailed    PaymentStatus = "Failed"
)

// Order is one checkout: shipping details, the client-supplied total and the
// purchased items. Orders are created once and never structurally modified,
// only payment_status transitions afterwards.
type Order struct {
	ID                uint            `gorm:"primaryKey"`
	UserID            *uint           `gorm:"index"`
	User              *User           `gorm:"foreignKey:UserID"`
	Name              string          `gorm:"size:255;not null"`
	Phone             string          `gorm:"size:20;not null"`
	Location          string          `gorm:"size:255;not null"`
	Region            string          `gorm:"size:255;not null"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PaymentStatus     PaymentStatus   `gorm:"size:50;not null;default:Pending"`
	CheckoutRequestID *string         `gorm:"size:100;index"`
	CreatedAt         time.Time
	Items             []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (o *Order) TableName() string {
	return "orders"
}

// OrderItem snapshots one cart line at checkout time. Price, size and edition
// are copied so later catalog edits do not rewrite order history.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey"`
	OrderID      uint            `gorm:"not null;index"`
	ProductID    uint            `gorm:"not null"`
	Product      Product         `gorm:"foreignKey:ProductID"`
	Quantity     int             `gorm:"not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Size         string          `gorm:"size:20;not null"`
	Edition      string          `gorm:"size:50;not null"`
	CustomName   *string         `gorm:"size:50"`
	CustomNumber *int
	Badge        *string `gorm:"size:50"`
	FontType     *string `gorm:"size:50"`
}

func (i *OrderItem) TableName() string {
	return "order_items"
}
