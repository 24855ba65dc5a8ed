package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/donjersey/shop-api/app/api"
	"github.com/donjersey/shop-api/models"
)

// Charger initiates a one-shot charge and returns the gateway's request id.
type Charger interface {
	STKPush(ctx context.Context, phone string, amount decimal.Decimal) (string, error)
}

// OrderResolver correlates gateway activity with stored orders.
type OrderResolver interface {
	AttachCheckoutRequest(orderID uint, checkoutRequestID string) error
	ResolvePayment(checkoutRequestID string, status models.PaymentStatus) error
}

type PaymentsHandler struct {
	gateway Charger
	orders  OrderResolver
	logger  *zap.Logger
	metrics *api.Metrics
}

func NewPaymentsHandler(gateway Charger, orders OrderResolver, logger *zap.Logger, metrics *api.Metrics) *PaymentsHandler {
	return &PaymentsHandler{
		gateway: gateway,
		orders:  orders,
		logger:  logger,
		metrics: metrics,
	}
}

type payInput struct {
	PhoneNumber string  `json:"phone_number"`
	Amount      float64 `json:"amount"`
	OrderID     uint    `json:"order_id"`
}

func (h *PaymentsHandler) HandlePay(w http.ResponseWriter, r *http.Request) {
	var input payInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	checkoutRequestID, err := h.gateway.STKPush(r.Context(), input.PhoneNumber, decimal.NewFromFloat(input.Amount))
	if err != nil {
		h.writePaymentError(w, err)
		return
	}
	h.metrics.PaymentRequests.WithLabelValues("success").Inc()

	// Correlating the charge with an order is best effort: the charge is
	// already in flight, so a failed lookup only costs callback matching.
	if input.OrderID != 0 {
		if err := h.orders.AttachCheckoutRequest(input.OrderID, checkoutRequestID); err != nil {
			h.logger.Warn("attach_checkout_request_failed",
				zap.Uint("order_id", input.OrderID),
				zap.String("checkout_request_id", checkoutRequestID),
				zap.Error(err),
			)
		}
	}

	api.JSON(w, http.StatusOK, map[string]any{
		"success":             true,
		"message":             "STK Push sent successfully",
		"checkout_request_id": checkoutRequestID,
	})
}

func (h *PaymentsHandler) writePaymentError(w http.ResponseWriter, err error) {
	var gatewayErr *GatewayError
	switch {
	case errors.Is(err, ErrInvalidPhoneNumber), errors.Is(err, ErrInvalidAmount):
		h.metrics.PaymentRequests.WithLabelValues("rejected").Inc()
		api.Fail(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &gatewayErr):
		h.metrics.PaymentRequests.WithLabelValues("gateway_error").Inc()
		h.logger.Error("stk_push_rejected", zap.Error(err))
		api.Fail(w, http.StatusBadGateway, "STK Push request failed")
	default:
		h.metrics.PaymentRequests.WithLabelValues("error").Inc()
		h.logger.Error("stk_push_failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "Payment initiation failed")
	}
}

type stkCallbackInput struct {
	Body struct {
		StkCallback struct {
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// HandleCallback receives the gateway's asynchronous payment result and moves
// the matching order's payment status. There is no retry or reconciliation if
// the callback never arrives.
func (h *PaymentsHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var input stkCallbackInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	callback := input.Body.StkCallback
	status := models.PaymentCompleted
	if callback.ResultCode != 0 {
		status = models.PaymentFailed
	}

	if err := h.orders.ResolvePayment(callback.CheckoutRequestID, status); err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			api.Fail(w, http.StatusNotFound, "Order not found.")
			return
		}
		h.logger.Error("payment_callback_failed",
			zap.String("checkout_request_id", callback.CheckoutRequestID),
			zap.Error(err),
		)
		api.Fail(w, http.StatusInternalServerError, "Failed to record payment result")
		return
	}

	h.logger.Info("payment_resolved",
		zap.String("checkout_request_id", callback.CheckoutRequestID),
		zap.String("status", string(status)),
	)

	if callback.ResultCode == 0 {
		api.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Payment successful.",
		})
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{
		"success": false,
		"message": "Payment failed: " + callback.ResultDesc + ".",
	})
}
