package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Service identity constants.
const (
	ServiceName    = "shop-api"
	ServiceVersion = "0.1.0"
)

// GatewayTimeout bounds every outbound call to the payment gateway.
const GatewayTimeout = 10 * time.Second

// Config holds environment-specific configuration.
type Config struct {
	Env         string
	Addr        string
	DatabaseURL string

	// Lipa Na M-Pesa Online (STK Push) settings.
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaShortcode      string
	MpesaPasskey        string
	MpesaBaseURL        string
	MpesaCallbackURL    string
	// Country prefix used to normalise phone numbers ("0712..." -> "254712...").
	MpesaCountryPrefix string
}

// Load reads configuration from the environment, with a .env file as a
// convenience for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                 getEnvOrDefault("ENV", "dev"),
		Addr:                getEnvOrDefault("ADDR", ":8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		MpesaConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		MpesaConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		MpesaShortcode:      getEnvOrDefault("MPESA_SHORTCODE", "174379"),
		MpesaPasskey:        os.Getenv("MPESA_PASSKEY"),
		MpesaBaseURL:        getEnvOrDefault("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		MpesaCallbackURL:    getEnvOrDefault("MPESA_CALLBACK_URL", "http://localhost:8080/mpesa/callback"),
		MpesaCountryPrefix:  getEnvOrDefault("MPESA_COUNTRY_PREFIX", "254"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL cannot be empty")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
