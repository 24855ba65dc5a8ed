package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	testCases := []struct {
		name     string
		phone    string
		expected string
		wantErr  bool
	}{
		{name: "Local format", phone: "0712345678", expected: "254712345678"},
		{name: "Already international", phone: "254712345678", expected: "254712345678"},
		{name: "Whitespace trimmed", phone: "  0712345678 ", expected: "254712345678"},
		{name: "Empty", phone: "", wantErr: true},
		{name: "Plus sign", phone: "+254712345678", wantErr: true},
		{name: "Letters", phone: "07abc45678", wantErr: true},
		{name: "Foreign prefix", phone: "447912345678", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.phone, "254")
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhoneNumber)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

// fakeGateway stands in for the sandbox: it serves the OAuth token endpoint
// and records the STK Push payload it receives.
type fakeGateway struct {
	server *httptest.Server

	tokenStatus  int
	pushStatus   int
	pushResponse stkPushResponse

	authHeader  string
	lastPush    stkPushRequest
	pushedToken string
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{
		tokenStatus: http.StatusOK,
		pushStatus:  http.StatusOK,
		pushResponse: stkPushResponse{
			ResponseCode:      "0",
			CheckoutRequestID: "ws_CO_27082026",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		g.authHeader = r.Header.Get("Authorization")
		w.WriteHeader(g.tokenStatus)
		json.NewEncoder(w).Encode(accessTokenResponse{AccessToken: "test-token"})
	})
	mux.HandleFunc("POST /mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		g.pushedToken = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&g.lastPush)
		w.WriteHeader(g.pushStatus)
		json.NewEncoder(w).Encode(g.pushResponse)
	})

	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g
}

func newTestClient(g *fakeGateway) *MpesaClient {
	c := NewMpesaClient(Config{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		BaseURL:        g.server.URL,
		CallbackURL:    "https://shop.example.com/mpesa/callback",
		CountryPrefix:  "254",
	})
	c.now = func() time.Time {
		return time.Date(2026, 8, 27, 15, 4, 5, 0, time.UTC)
	}
	return c
}

func TestAccessToken(t *testing.T) {
	t.Run("Success uses basic auth", func(t *testing.T) {
		gateway := newFakeGateway(t)
		client := newTestClient(gateway)

		token, err := client.AccessToken(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, "test-token", token)
		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
		assert.Equal(t, expected, gateway.authHeader)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		gateway := newFakeGateway(t)
		gateway.tokenStatus = http.StatusUnauthorized
		client := newTestClient(gateway)

		_, err := client.AccessToken(context.Background())

		var gatewayErr *GatewayError
		assert.ErrorAs(t, err, &gatewayErr)
		assert.Equal(t, http.StatusUnauthorized, gatewayErr.Status)
	})
}

func TestSTKPush(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		gateway := newFakeGateway(t)
		client := newTestClient(gateway)

		checkoutID, err := client.STKPush(context.Background(), "0712345678", decimal.NewFromInt(4500))

		assert.NoError(t, err)
		assert.Equal(t, "ws_CO_27082026", checkoutID)
		assert.Equal(t, "Bearer test-token", gateway.pushedToken)

		push := gateway.lastPush
		assert.Equal(t, "254712345678", push.PhoneNumber)
		assert.Equal(t, "254712345678", push.PartyA)
		assert.Equal(t, "174379", push.BusinessShortCode)
		assert.Equal(t, "174379", push.PartyB)
		assert.Equal(t, int64(4500), push.Amount)
		assert.Equal(t, "CustomerPayBillOnline", push.TransactionType)
		assert.Equal(t, "https://shop.example.com/mpesa/callback", push.CallBackURL)

		assert.Equal(t, "20260827150405", push.Timestamp)
		expectedPassword := base64.StdEncoding.EncodeToString(
			[]byte("174379" + "passkey" + "20260827150405"))
		assert.Equal(t, expectedPassword, push.Password)
	})

	t.Run("Fractional amount is rounded to whole units", func(t *testing.T) {
		gateway := newFakeGateway(t)
		client := newTestClient(gateway)

		_, err := client.STKPush(context.Background(), "0712345678", decimal.NewFromFloat(99.60))

		assert.NoError(t, err)
		assert.Equal(t, int64(100), gateway.lastPush.Amount)
	})

	t.Run("Invalid phone fails before any gateway call", func(t *testing.T) {
		gateway := newFakeGateway(t)
		client := newTestClient(gateway)

		_, err := client.STKPush(context.Background(), "12345", decimal.NewFromInt(100))

		assert.ErrorIs(t, err, ErrInvalidPhoneNumber)
		assert.Empty(t, gateway.authHeader, "no token request expected")
	})

	t.Run("Zero amount", func(t *testing.T) {
		gateway := newFakeGateway(t)
		client := newTestClient(gateway)

		_, err := client.STKPush(context.Background(), "0712345678", decimal.Zero)

		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("Negative amount", func(t *testing.T) {
		gateway := newFakeGateway(t)
		client := newTestClient(gateway)

		_, err := client.STKPush(context.Background(), "0712345678", decimal.NewFromInt(-5))

		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("Gateway declines with non-zero response code", func(t *testing.T) {
		gateway := newFakeGateway(t)
		gateway.pushResponse = stkPushResponse{
			ResponseCode:        "1",
			ResponseDescription: "Insufficient funds",
		}
		client := newTestClient(gateway)

		_, err := client.STKPush(context.Background(), "0712345678", decimal.NewFromInt(100))

		var gatewayErr *GatewayError
		assert.ErrorAs(t, err, &gatewayErr)
		assert.Equal(t, "Insufficient funds", gatewayErr.Message)
	})

	t.Run("Gateway HTTP error with errorMessage", func(t *testing.T) {
		gateway := newFakeGateway(t)
		gateway.pushStatus = http.StatusBadRequest
		gateway.pushResponse = stkPushResponse{ErrorMessage: "Invalid Timestamp"}
		client := newTestClient(gateway)

		_, err := client.STKPush(context.Background(), "0712345678", decimal.NewFromInt(100))

		var gatewayErr *GatewayError
		assert.ErrorAs(t, err, &gatewayErr)
		assert.Equal(t, http.StatusBadRequest, gatewayErr.Status)
		assert.Equal(t, "Invalid Timestamp", gatewayErr.Message)
	})

	t.Run("Token failure aborts the push", func(t *testing.T) {
		gateway := newFakeGateway(t)
		gateway.tokenStatus = http.StatusForbidden
		client := newTestClient(gateway)

		_, err := client.STKPush(context.Background(), "0712345678", decimal.NewFromInt(100))

		assert.Error(t, err)
		assert.Empty(t, gateway.pushedToken, "push endpoint should not be reached")
	})

	t.Run("Unreachable gateway", func(t *testing.T) {
		gateway := newFakeGateway(t)
		client := newTestClient(gateway)
		gateway.server.Close()

		_, err := client.STKPush(context.Background(), "0712345678", decimal.NewFromInt(100))

		assert.Error(t, err)
		var gatewayErr *GatewayError
		assert.False(t, errors.As(err, &gatewayErr), "transport failures are not gateway errors")
	})
}
