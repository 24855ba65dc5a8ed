package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/donjersey/shop-api/app/api"
	"github.com/donjersey/shop-api/models"
)

// --- Mocks ---

type MockCharger struct {
	CheckoutRequestID string
	Err               error

	lastPhone  string
	lastAmount decimal.Decimal
}

func (m *MockCharger) STKPush(ctx context.Context, phone string, amount decimal.Decimal) (string, error) {
	m.lastPhone = phone
	m.lastAmount = amount
	if m.Err != nil {
		return "", m.Err
	}
	return m.CheckoutRequestID, nil
}

type MockOrderResolver struct {
	AttachErr  error
	ResolveErr error

	attachedOrderID    uint
	attachedCheckoutID string
	resolvedCheckoutID string
	resolvedStatus     models.PaymentStatus
	resolveCalled      bool
}

func (m *MockOrderResolver) AttachCheckoutRequest(orderID uint, checkoutRequestID string) error {
	m.attachedOrderID = orderID
	m.attachedCheckoutID = checkoutRequestID
	return m.AttachErr
}

func (m *MockOrderResolver) ResolvePayment(checkoutRequestID string, status models.PaymentStatus) error {
	m.resolveCalled = true
	m.resolvedCheckoutID = checkoutRequestID
	m.resolvedStatus = status
	return m.ResolveErr
}

func newTestHandler(gateway *MockCharger, orders *MockOrderResolver) *PaymentsHandler {
	metrics := api.NewMetrics(prometheus.NewRegistry())
	return NewPaymentsHandler(gateway, orders, zap.NewNop(), metrics)
}

// --- Tests: POST /pay ---

func TestHandlePay(t *testing.T) {
	t.Run("Success with order attach", func(t *testing.T) {
		gateway := &MockCharger{CheckoutRequestID: "ws_CO_1"}
		orders := &MockOrderResolver{}
		handler := newTestHandler(gateway, orders)

		body := `{"phone_number": "0712345678", "amount": 4500, "order_id": 7}`
		req := httptest.NewRequest("POST", "/pay", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandlePay(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "STK Push sent successfully", resp["message"])
		assert.Equal(t, "ws_CO_1", resp["checkout_request_id"])

		assert.Equal(t, "0712345678", gateway.lastPhone)
		assert.True(t, gateway.lastAmount.Equal(decimal.NewFromInt(4500)))
		assert.Equal(t, uint(7), orders.attachedOrderID)
		assert.Equal(t, "ws_CO_1", orders.attachedCheckoutID)
	})

	t.Run("Success without order id skips attach", func(t *testing.T) {
		gateway := &MockCharger{CheckoutRequestID: "ws_CO_2"}
		orders := &MockOrderResolver{}
		handler := newTestHandler(gateway, orders)

		body := `{"phone_number": "0712345678", "amount": 100}`
		req := httptest.NewRequest("POST", "/pay", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandlePay(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, orders.attachedOrderID)
	})

	t.Run("Attach failure does not fail the charge", func(t *testing.T) {
		gateway := &MockCharger{CheckoutRequestID: "ws_CO_3"}
		orders := &MockOrderResolver{AttachErr: models.ErrOrderNotFound}
		handler := newTestHandler(gateway, orders)

		body := `{"phone_number": "0712345678", "amount": 100, "order_id": 99}`
		req := httptest.NewRequest("POST", "/pay", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandlePay(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Invalid JSON body", func(t *testing.T) {
		handler := newTestHandler(&MockCharger{}, &MockOrderResolver{})

		req := httptest.NewRequest("POST", "/pay", strings.NewReader(`{bad`))
		rec := httptest.NewRecorder()
		handler.HandlePay(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Invalid phone number", func(t *testing.T) {
		gateway := &MockCharger{Err: ErrInvalidPhoneNumber}
		handler := newTestHandler(gateway, &MockOrderResolver{})

		body := `{"phone_number": "12345", "amount": 100}`
		req := httptest.NewRequest("POST", "/pay", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandlePay(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp map[string]any
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "invalid phone number", resp["message"])
	})

	t.Run("Non-positive amount", func(t *testing.T) {
		gateway := &MockCharger{Err: ErrInvalidAmount}
		handler := newTestHandler(gateway, &MockOrderResolver{})

		body := `{"phone_number": "0712345678", "amount": 0}`
		req := httptest.NewRequest("POST", "/pay", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandlePay(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Gateway rejection", func(t *testing.T) {
		gateway := &MockCharger{Err: &GatewayError{Status: 400, Message: "Invalid Timestamp"}}
		handler := newTestHandler(gateway, &MockOrderResolver{})

		body := `{"phone_number": "0712345678", "amount": 100}`
		req := httptest.NewRequest("POST", "/pay", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandlePay(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		var resp map[string]any
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "STK Push request failed", resp["message"])
	})

	t.Run("Transport failure", func(t *testing.T) {
		gateway := &MockCharger{Err: errors.New("connection refused")}
		handler := newTestHandler(gateway, &MockOrderResolver{})

		body := `{"phone_number": "0712345678", "amount": 100}`
		req := httptest.NewRequest("POST", "/pay", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandlePay(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

// --- Tests: POST /mpesa/callback ---

func TestHandleCallback(t *testing.T) {
	callbackBody := func(resultCode int, resultDesc string) string {
		return `{
			"Body": {
				"stkCallback": {
					"ResultCode": ` + jsonInt(resultCode) + `,
					"ResultDesc": "` + resultDesc + `",
					"CheckoutRequestID": "ws_CO_1"
				}
			}
		}`
	}

	t.Run("Successful payment", func(t *testing.T) {
		orders := &MockOrderResolver{}
		handler := newTestHandler(&MockCharger{}, orders)

		req := httptest.NewRequest("POST", "/mpesa/callback",
			strings.NewReader(callbackBody(0, "The service request is processed successfully.")))
		rec := httptest.NewRecorder()
		handler.HandleCallback(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ws_CO_1", orders.resolvedCheckoutID)
		assert.Equal(t, models.PaymentCompleted, orders.resolvedStatus)

		var resp map[string]any
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "Payment successful.", resp["message"])
	})

	t.Run("Cancelled payment", func(t *testing.T) {
		orders := &MockOrderResolver{}
		handler := newTestHandler(&MockCharger{}, orders)

		req := httptest.NewRequest("POST", "/mpesa/callback",
			strings.NewReader(callbackBody(1032, "Request cancelled by user")))
		rec := httptest.NewRecorder()
		handler.HandleCallback(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.PaymentFailed, orders.resolvedStatus)

		var resp map[string]any
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "Payment failed: Request cancelled by user.", resp["message"])
	})

	t.Run("Unknown checkout request id", func(t *testing.T) {
		orders := &MockOrderResolver{ResolveErr: models.ErrOrderNotFound}
		handler := newTestHandler(&MockCharger{}, orders)

		req := httptest.NewRequest("POST", "/mpesa/callback",
			strings.NewReader(callbackBody(0, "ok")))
		rec := httptest.NewRecorder()
		handler.HandleCallback(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var resp map[string]any
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Order not found.", resp["message"])
	})

	t.Run("Store failure", func(t *testing.T) {
		orders := &MockOrderResolver{ResolveErr: errors.New("db down")}
		handler := newTestHandler(&MockCharger{}, orders)

		req := httptest.NewRequest("POST", "/mpesa/callback",
			strings.NewReader(callbackBody(0, "ok")))
		rec := httptest.NewRecorder()
		handler.HandleCallback(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("Invalid JSON body", func(t *testing.T) {
		orders := &MockOrderResolver{}
		handler := newTestHandler(&MockCharger{}, orders)

		req := httptest.NewRequest("POST", "/mpesa/callback", strings.NewReader(`{bad`))
		rec := httptest.NewRecorder()
		handler.HandleCallback(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, orders.resolveCalled)
	})
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
