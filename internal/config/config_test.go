package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"REDIS_URL":         "redis://localhost:6379/0",
		"ORDER_SERVICE_URL": "https://orders.internal",
		"APP_ENV":           "",
		"PORT":              "",
		"CART_TTL":          "",
	})
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 7*24*time.Hour, cfg.CartTTL)
	require.Equal(t, int64(500_000), cfg.FreeShippingThreshold)
	require.Equal(t, int64(30_000), cfg.ShippingFlatFee)
	require.Equal(t, 1000, cfg.TaxRateBps)
	require.Equal(t, "VND", cfg.CurrencyCode)
	require.False(t, cfg.WalletConfigured())
}

func TestLoadRequiresOrderService(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"REDIS_URL":         "redis://localhost:6379/0",
		"ORDER_SERVICE_URL": "",
	})
	require.Error(t, err)
}

func TestWalletConfigured(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"REDIS_URL":         "redis://localhost:6379/0",
		"ORDER_SERVICE_URL": "https://orders.internal",
		"MOMO_PARTNER_CODE": "PARTNER",
		"MOMO_ACCESS_KEY":   "access",
		"MOMO_SECRET_KEY":   "secret",
		"MOMO_ENDPOINT":     "https://test-payment.momo.vn",
	})
	require.NoError(t, err)
	require.True(t, cfg.WalletConfigured())
}
