package orders

import (
	"errors"
	"fmt"

	"github.com/donjersey/shop-api/models"
)

// ErrInvalidTotalPrice is returned when the client-supplied total is not a
// positive number.
var ErrInvalidTotalPrice = errors.New("total_price must be a positive number")

// MissingFieldError reports a required checkout field that was absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("'%s' is required", e.Field)
}

// InsufficientStockError reports a cart line asking for more units than the
// variant has left. The order it belongs to is rolled back entirely.
type InsufficientStockError struct {
	Product   string
	Size      string
	Edition   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s Size %s Edition %s (requested %d, available %d)",
		e.Product, e.Size, e.Edition, e.Requested, e.Available)
}

// FailureReason classifies a checkout error for metrics labels.
func FailureReason(err error) string {
	var missing *MissingFieldError
	var stock *InsufficientStockError
	switch {
	case errors.As(err, &missing):
		return "missing_field"
	case errors.Is(err, ErrInvalidTotalPrice):
		return "invalid_total_price"
	case errors.Is(err, models.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, models.ErrVariantNotFound):
		return "variant_not_found"
	case errors.As(err, &stock):
		return "insufficient_stock"
	default:
		return "internal"
	}
}
