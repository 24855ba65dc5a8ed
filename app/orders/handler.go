package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donjersey/shop-api/app/api"
	"github.com/donjersey/shop-api/models"
)

// OrderPlacer runs the checkout workflow.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req CheckoutRequest) (uint, error)
}

// OrderProvider reads and removes stored orders.
type OrderProvider interface {
	GetAllOrders() ([]models.Order, error)
	GetOrderByID(id uint) (*models.Order, error)
	DeleteOrder(id uint) error
}

type OrdersHandler struct {
	service OrderPlacer
	repo    OrderProvider
}

func NewOrdersHandler(service OrderPlacer, repo OrderProvider) *OrdersHandler {
	return &OrdersHandler{
		service: service,
		repo:    repo,
	}
}

type cartLineInput struct {
	Name         string  `json:"name"`
	Size         string  `json:"size"`
	Edition      string  `json:"edition"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	CustomName   *string `json:"custom_name"`
	CustomNumber *int    `json:"custom_number"`
	Badge        *string `json:"badge"`
	FontType     *string `json:"font_type"`
}

type createOrderInput struct {
	Cart            []cartLineInput `json:"cart"`
	ShippingDetails struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Location string `json:"location"`
		Region   string `json:"region"`
	} `json:"shipping_details"`
	TotalPrice float64 `json:"total_price"`
	UserID     *uint   `json:"user_id"`
}

func (h *OrdersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input createOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	req := CheckoutRequest{
		Shipping: ShippingDetails{
			Name:     input.ShippingDetails.Name,
			Phone:    input.ShippingDetails.Phone,
			Location: input.ShippingDetails.Location,
			Region:   input.ShippingDetails.Region,
		},
		TotalPrice: decimal.NewFromFloat(input.TotalPrice),
		UserID:     input.UserID,
	}
	for _, line := range input.Cart {
		req.Cart = append(req.Cart, CartLine{
			ProductName:  line.Name,
			Size:         line.Size,
			Edition:      line.Edition,
			Quantity:     line.Quantity,
			UnitPrice:    decimal.NewFromFloat(line.Price),
			CustomName:   line.CustomName,
			CustomNumber: line.CustomNumber,
			Badge:        line.Badge,
			FontType:     line.FontType,
		})
	}

	orderID, err := h.service.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	api.JSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"order_id": orderID,
	})
}

func (h *OrdersHandler) writeCheckoutError(w http.ResponseWriter, err error) {
	var missing *MissingFieldError
	var stock *InsufficientStockError
	switch {
	case errors.As(err, &missing), errors.Is(err, ErrInvalidTotalPrice):
		api.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrProductNotFound), errors.Is(err, models.ErrVariantNotFound):
		api.Fail(w, http.StatusNotFound, err.Error())
	case errors.As(err, &stock):
		api.Fail(w, http.StatusBadRequest, err.Error())
	default:
		api.Fail(w, http.StatusInternalServerError, "Failed to create order")
	}
}

type orderItemJSON struct {
	ProductName    string  `json:"product_name"`
	Description    string  `json:"description"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	Size           string  `json:"size"`
	Edition        string  `json:"edition"`
	CustomName     *string `json:"custom_name,omitempty"`
	CustomNumber   *int    `json:"custom_number,omitempty"`
	TotalItemPrice float64 `json:"total_item_price"`
}

type orderUserJSON struct {
	Username string `json:"username"`
}

type orderJSON struct {
	ID            uint            `json:"id"`
	User          orderUserJSON   `json:"user"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Location      string          `json:"location"`
	Region        string          `json:"region"`
	TotalPrice    float64         `json:"total_price"`
	OrderDate     string          `json:"order_date"`
	PaymentStatus string          `json:"payment_status"`
	OrderItems    []orderItemJSON `json:"order_items"`
}

func toOrderJSON(o models.Order) orderJSON {
	user := orderUserJSON{Username: "Guest"}
	if o.User != nil {
		user.Username = o.User.Username
	}

	items := make([]orderItemJSON, len(o.Items))
	for i, item := range o.Items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items[i] = orderItemJSON{
			ProductName:    item.Product.Name,
			Description:    item.Product.Description,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice.InexactFloat64(),
			Size:           item.Size,
			Edition:        item.Edition,
			CustomName:     item.CustomName,
			CustomNumber:   item.CustomNumber,
			TotalItemPrice: lineTotal.InexactFloat64(),
		}
	}

	return orderJSON{
		ID:            o.ID,
		User:          user,
		Name:          o.Name,
		Phone:         o.Phone,
		Location:      o.Location,
		Region:        o.Region,
		TotalPrice:    o.TotalPrice.InexactFloat64(),
		OrderDate:     o.CreatedAt.UTC().Format(time.RFC3339),
		PaymentStatus: string(o.PaymentStatus),
		OrderItems:    items,
	}
}

func (h *OrdersHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.GetAllOrders()
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to fetch orders")
		return
	}

	response := make([]orderJSON, len(orders))
	for i, o := range orders {
		response[i] = toOrderJSON(o)
	}
	api.JSON(w, http.StatusOK, response)
}

func (h *OrdersHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		api.Error(w, http.StatusNotFound, "Order not found")
		return
	}

	order, err := h.repo.GetOrderByID(id)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			api.Error(w, http.StatusNotFound, "Order not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to fetch order")
		return
	}

	api.JSON(w, http.StatusOK, toOrderJSON(*order))
}

func (h *OrdersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		api.Error(w, http.StatusNotFound, "Order not found")
		return
	}

	if err := h.repo.DeleteOrder(id); err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			api.Error(w, http.StatusNotFound, "Order not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to delete order")
		return
	}

	api.JSON(w, http.StatusOK, map[string]string{
		"message": "Order deleted successfully",
	})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
