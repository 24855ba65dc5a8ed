package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrOrderNotFound is returned when an order is not found.
var ErrOrderNotFound = errors.New("order not found")

// CheckoutTx is the slice of the datastore visible inside one checkout
// transaction. Every call operates on the same transaction; if the callback
// passed to Checkout returns an error, everything done through the CheckoutTx
// is rolled back.
type CheckoutTx interface {
	// ProductByName resolves a product by exact name match.
	ProductByName(name string) (*Product, error)
	// Variant resolves a variant by the (product, size, edition) tuple.
	Variant(productID uint, size, edition string) (*ProductVariant, error)
	// DecrementStock atomically subtracts quantity from the variant's stock,
	// guarded by stock >= quantity. It reports false when the guard fails,
	// so stock can never go negative.
	DecrementStock(variantID uint, quantity int) (bool, error)
	// CreateOrder inserts the order header and fills in its ID.
	CreateOrder(order *Order) error
	// CreateOrderItems inserts the item snapshots.
	CreateOrderItems(items []OrderItem) error
}

type OrdersRepository struct {
	db *gorm.DB
}

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{
		db: db,
	}
}

// Checkout runs fn inside a single database transaction. Validation, stock
// decrements and inserts all share it; any error aborts the whole order.
func (r *OrdersRepository) Checkout(ctx context.Context, fn func(tx CheckoutTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&checkoutTx{db: tx})
	})
}

type checkoutTx struct {
	db *gorm.DB
}

func (t *checkoutTx) ProductByName(name string) (*Product, error) {
	var product Product
	if err := t.db.Where("name = ?", name).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (t *checkoutTx) Variant(productID uint, size, edition string) (*ProductVariant, error) {
	var variant ProductVariant
	if err := t.db.
		Where("product_id = ? AND size = ? AND edition = ?", productID, size, edition).
		First(&variant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	return &variant, nil
}

func (t *checkoutTx) DecrementStock(variantID uint, quantity int) (bool, error) {
	res := t.db.Model(&ProductVariant{}).
		Where("id = ? AND stock >= ?", variantID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *checkoutTx) CreateOrder(order *Order) error {
	return t.db.Create(order).Error
}

func (t *checkoutTx) CreateOrderItems(items []OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return t.db.Create(&items).Error
}

// GetAllOrders returns every order with items, products and buyer preloaded,
// oldest first. Used by the admin listing.
func (r *OrdersRepository) GetAllOrders() ([]Order, error) {
	var orders []Order
	if err := r.db.
		Preload("Items.Product").
		Preload("User").
		Order("id").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrdersRepository) GetOrderByID(id uint) (*Order, error) {
	var order Order
	if err := r.db.
		Preload("Items.Product").
		Preload("User").
		First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// DeleteOrder removes an order together with its items.
func (r *OrdersRepository) DeleteOrder(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&OrderItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Order{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
}

// AttachCheckoutRequest stores the gateway's request identifier on the order
// so the asynchronous callback can be correlated later.
func (r *OrdersRepository) AttachCheckoutRequest(orderID uint, checkoutRequestID string) error {
	res := r.db.Model(&Order{}).
		Where("id = ?", orderID).
		Update("checkout_request_id", checkoutRequestID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ResolvePayment moves the payment status of the order identified by the
// gateway's checkout request id. Best effort: callers decide what a missing
// order means.
func (r *OrdersRepository) ResolvePayment(checkoutRequestID string, status PaymentStatus) error {
	res := r.db.Model(&Order{}).
		Where("checkout_request_id = ?", checkoutRequestID).
		Update("payment_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
