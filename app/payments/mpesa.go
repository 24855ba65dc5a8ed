package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidPhoneNumber is returned for numbers that are neither local
// ("07...") nor already in international format.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

// ErrInvalidAmount is returned when the charge amount is not positive.
var ErrInvalidAmount = errors.New("amount must be a positive number")

// GatewayError carries a failure reported by the payment gateway itself.
type GatewayError struct {
	Status  int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %s (status %d)", e.Message, e.Status)
}

// Config holds the Lipa Na M-Pesa Online (STK Push) settings.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	BaseURL        string
	CallbackURL    string
	CountryPrefix  string
	Timeout        time.Duration
}

// MpesaClient sends one-shot STK Push charge requests. It keeps no payment
// state of its own; the gateway's synchronous acknowledgment is relayed as-is
// and the asynchronous callback lands elsewhere.
type MpesaClient struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

func NewMpesaClient(cfg Config) *MpesaClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &MpesaClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

// NormalizePhone rewrites a local number ("0712345678") to international
// format using the country prefix. Numbers already carrying the prefix pass
// through unchanged; anything else fails.
func NormalizePhone(phone, prefix string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrInvalidPhoneNumber
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhoneNumber
		}
	}
	switch {
	case strings.HasPrefix(phone, "0"):
		return prefix + phone[1:], nil
	case strings.HasPrefix(phone, prefix):
		return phone, nil
	default:
		return "", ErrInvalidPhoneNumber
	}
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// AccessToken fetches an OAuth token from the gateway using basic auth.
func (c *MpesaClient) AccessToken(ctx context.Context) (string, error) {
	url := c.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build access token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &GatewayError{Status: resp.StatusCode, Message: "access token request failed"}
	}

	var parsed accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode access token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", &GatewayError{Status: resp.StatusCode, Message: "empty access token"}
	}
	return parsed.AccessToken, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ErrorMessage        string `json:"errorMessage"`
}

// STKPush sends a charge request for amount to the given phone number and
// returns the gateway's CheckoutRequestID. The call is bounded by the
// client's timeout; its failure never affects an already-committed order.
func (c *MpesaClient) STKPush(ctx context.Context, phone string, amount decimal.Decimal) (string, error) {
	normalized, err := NormalizePhone(phone, c.cfg.CountryPrefix)
	if err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	timestamp := c.now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))

	body := stkPushRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount.Round(0).IntPart(),
		PartyA:            normalized,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       normalized,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  "Order Payment",
		TransactionDesc:   "Payment for Order",
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode stk push request: %w", err)
	}

	url := c.cfg.BaseURL + "/mpesa/stkpush/v1/processrequest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build stk push request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send stk push request: %w", err)
	}
	defer resp.Body.Close()

	var parsed stkPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode stk push response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || parsed.ResponseCode != "0" {
		message := parsed.ErrorMessage
		if message == "" {
			message = parsed.ResponseDescription
		}
		if message == "" {
			message = "STK Push request failed"
		}
		return "", &GatewayError{Status: resp.StatusCode, Message: message}
	}

	return parsed.CheckoutRequestID, nil
}
