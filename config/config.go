package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	ServiceName  string
	Port         string
	OTELEndpoint string

	// Third-party endpoints
	GeoProviderURL  string
	ExchangeAPIBase string
	ExchangeAPIKey  string
	WidgetBaseURL   string

	// Checkout constants. Amount is fixed for the whole deployment and is
	// only ever echoed into outbound URLs, never computed.
	Amount          decimal.Decimal
	SourceCurrency  string
	TargetCurrency  string
	WalletAddress   string
	PaymentProvider string

	// Region detection
	DefaultCountry string
	GeoTimeout     time.Duration

	// Exchange creation
	ExchangeTimeout time.Duration
	ExchangeRetries int
	RetryBackoff    time.Duration

	// Rate limiting
	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration
}

// Load loads configuration from environment variables. A .env file in the
// working directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:  "checkout-service",
		Port:         getEnv("PORT", "8080"),
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		GeoProviderURL:  getEnv("GEO_PROVIDER_URL", "https://ipapi.co"),
		ExchangeAPIBase: getEnv("EXCHANGE_API_BASE", "https://api.simpleswap.io"),
		ExchangeAPIKey:  getEnv("EXCHANGE_API_KEY", ""),
		WidgetBaseURL:   getEnv("WIDGET_BASE_URL", "https://simpleswap.io"),

		Amount:          getDecimal("CHECKOUT_AMOUNT", "19.50"),
		SourceCurrency:  getEnv("SOURCE_CURRENCY", "eur"),
		TargetCurrency:  getEnv("TARGET_CURRENCY", "btc"),
		WalletAddress:   getEnv("WALLET_ADDRESS", ""),
		PaymentProvider: getEnv("PAYMENT_PROVIDER", "mercuryo"),

		DefaultCountry: getEnv("DEFAULT_COUNTRY", "US"),
		GeoTimeout:     getDuration("GEO_TIMEOUT", 5*time.Second),

		ExchangeTimeout: getDuration("EXCHANGE_TIMEOUT", 10*time.Second),
		ExchangeRetries: getInt("EXCHANGE_RETRIES", 3),
		RetryBackoff:    getDuration("EXCHANGE_RETRY_BACKOFF", 500*time.Millisecond),

		CheckoutRateLimit:  getInt("CHECKOUT_RATE_LIMIT", 10),
		CheckoutRateWindow: getDuration("CHECKOUT_RATE_WINDOW", time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultValue)
}
