package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	OrderServiceURL   string
	VoucherServiceURL string
	AddressServiceURL string
	UpstreamTimeout   time.Duration

	MoMoPartnerCode string
	MoMoAccessKey   string
	MoMoSecretKey   string
	MoMoEndpoint    string
	MoMoReturnURL   string
	MoMoNotifyURL   string

	CartTTL               time.Duration
	IdempotencyTTL        time.Duration
	CheckoutRateMax       int
	CheckoutRateWindow    time.Duration
	FreeShippingThreshold int64
	ShippingFlatFee       int64
	TaxRateBps            int
	CurrencyCode          string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		OrderServiceURL:   strings.TrimSpace(k.String("ORDER_SERVICE_URL")),
		VoucherServiceURL: strings.TrimSpace(k.String("VOUCHER_SERVICE_URL")),
		AddressServiceURL: strings.TrimSpace(k.String("ADDRESS_SERVICE_URL")),
		UpstreamTimeout:   parseDuration(k.String("UPSTREAM_TIMEOUT"), "10s"),

		MoMoPartnerCode: strings.TrimSpace(k.String("MOMO_PARTNER_CODE")),
		MoMoAccessKey:   strings.TrimSpace(k.String("MOMO_ACCESS_KEY")),
		MoMoSecretKey:   strings.TrimSpace(k.String("MOMO_SECRET_KEY")),
		MoMoEndpoint:    strings.TrimSpace(k.String("MOMO_ENDPOINT")),
		MoMoReturnURL:   strings.TrimSpace(k.String("MOMO_RETURN_URL")),
		MoMoNotifyURL:   strings.TrimSpace(k.String("MOMO_NOTIFY_URL")),

		CartTTL:               parseDuration(k.String("CART_TTL"), "168h"),
		IdempotencyTTL:        parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutRateMax:       parseInt(k.String("CHECKOUT_RATE_MAX"), 10),
		CheckoutRateWindow:    parseDuration(k.String("CHECKOUT_RATE_WINDOW"), "1m"),
		FreeShippingThreshold: parseInt64(k.String("PRICING_FREE_SHIPPING_THRESHOLD"), 500_000),
		ShippingFlatFee:       parseInt64(k.String("PRICING_SHIPPING_FLAT_FEE"), 30_000),
		TaxRateBps:            parseInt(k.String("PRICING_TAX_RATE_BPS"), 1000),
		CurrencyCode:          valueOrDefault(k.String("CURRENCY_CODE"), "VND"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.OrderServiceURL == "" {
		return nil, errors.New("ORDER_SERVICE_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// WalletConfigured reports whether the wallet payment collaborator is usable.
func (c *Config) WalletConfigured() bool {
	return c.MoMoPartnerCode != "" && c.MoMoAccessKey != "" && c.MoMoSecretKey != "" && c.MoMoEndpoint != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(envVars map[string]string) (*Config, error) {
	original := make(map[string]string, len(envVars))
	for key := range envVars {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, envVars[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
