package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/donjersey/shop-api/app/api"
	"github.com/donjersey/shop-api/models"
)

// CartLine is one entry of a checkout request. Product, size and edition
// identify the variant; unit price is snapshotted as supplied.
type CartLine struct {
	ProductName  string
	Size         string
	Edition      string
	Quantity     int
	UnitPrice    decimal.Decimal
	CustomName   *string
	CustomNumber *int
	Badge        *string
	FontType     *string
}

// ShippingDetails is where the order goes.
type ShippingDetails struct {
	Name     string
	Phone    string
	Location string
	Region   string
}

// CheckoutRequest is a parsed POST /orders body.
type CheckoutRequest struct {
	Cart       []CartLine
	Shipping   ShippingDetails
	TotalPrice decimal.Decimal
	UserID     *uint
}

// CheckoutStore runs a function within one datastore transaction.
type CheckoutStore interface {
	Checkout(ctx context.Context, fn func(tx models.CheckoutTx) error) error
}

// Service implements order placement: validate the cart, reserve stock and
// write the order records as one atomic unit.
type Service struct {
	store   CheckoutStore
	logger  *zap.Logger
	metrics *api.Metrics
}

func NewService(store CheckoutStore, logger *zap.Logger, metrics *api.Metrics) *Service {
	return &Service{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// PlaceOrder creates one order with its items while decrementing matching
// variant stock. All line items plus the order header commit in a single
// transaction; any failure discards every partial decrement and insert.
func (s *Service) PlaceOrder(ctx context.Context, req CheckoutRequest) (uint, error) {
	start := time.Now()

	orderID, err := s.placeOrder(ctx, req)
	if err != nil {
		s.metrics.CheckoutFailures.WithLabelValues(FailureReason(err)).Inc()
		return 0, err
	}

	s.metrics.OrdersCreated.Inc()
	s.metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("order_created",
		zap.Uint("order_id", orderID),
		zap.Int("items", len(req.Cart)),
		zap.String("total_price", req.TotalPrice.String()),
	)
	return orderID, nil
}

func (s *Service) placeOrder(ctx context.Context, req CheckoutRequest) (uint, error) {
	if err := validate(req); err != nil {
		return 0, err
	}

	var orderID uint
	err := s.store.Checkout(ctx, func(tx models.CheckoutTx) error {
		order := &models.Order{
			UserID:        req.UserID,
			Name:          req.Shipping.Name,
			Phone:         req.Shipping.Phone,
			Location:      req.Shipping.Location,
			Region:        req.Shipping.Region,
			TotalPrice:    req.TotalPrice,
			PaymentStatus: models.PaymentPending,
		}
		if err := tx.CreateOrder(order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		items := make([]models.OrderItem, 0, len(req.Cart))
		for _, line := range req.Cart {
			product, err := tx.ProductByName(line.ProductName)
			if err != nil {
				return err
			}

			variant, err := tx.Variant(product.ID, line.Size, line.Edition)
			if err != nil {
				return err
			}

			if variant.Stock < line.Quantity {
				return &InsufficientStockError{
					Product:   product.Name,
					Size:      line.Size,
					Edition:   line.Edition,
					Requested: line.Quantity,
					Available: variant.Stock,
				}
			}

			// The decrement is conditional on stock >= quantity, so a
			// concurrent checkout that drained the variant in between
			// surfaces here instead of committing a negative count.
			ok, err := tx.DecrementStock(variant.ID, line.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				return &InsufficientStockError{
					Product:   product.Name,
					Size:      line.Size,
					Edition:   line.Edition,
					Requested: line.Quantity,
					Available: variant.Stock,
				}
			}

			items = append(items, models.OrderItem{
				OrderID:      order.ID,
				ProductID:    product.ID,
				Quantity:     line.Quantity,
				UnitPrice:    line.UnitPrice,
				Size:         line.Size,
				Edition:      line.Edition,
				CustomName:   line.CustomName,
				CustomNumber: line.CustomNumber,
				Badge:        line.Badge,
				FontType:     line.FontType,
			})
		}

		if err := tx.CreateOrderItems(items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

func validate(req CheckoutRequest) error {
	if len(req.Cart) == 0 {
		return &MissingFieldError{Field: "cart"}
	}
	switch {
	case req.Shipping.Name == "":
		return &MissingFieldError{Field: "name"}
	case req.Shipping.Phone == "":
		return &MissingFieldError{Field: "phone"}
	case req.Shipping.Location == "":
		return &MissingFieldError{Field: "location"}
	case req.Shipping.Region == "":
		return &MissingFieldError{Field: "region"}
	}
	if !req.TotalPrice.IsPositive() {
		return ErrInvalidTotalPrice
	}
	for _, line := range req.Cart {
		switch {
		case line.ProductName == "":
			return &MissingFieldError{Field: "name"}
		case line.Size == "":
			return &MissingFieldError{Field: "size"}
		case line.Edition == "":
			return &MissingFieldError{Field: "edition"}
		case line.Quantity <= 0:
			return &MissingFieldError{Field: "quantity"}
		case !line.UnitPrice.IsPositive():
			return &MissingFieldError{Field: "price"}
		}
	}
	return nil
}
