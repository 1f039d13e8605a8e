package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/currency"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("PRICING_BASE_URL", "https://tickets.example.com/")

	cfg, err := Load(zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "https://tickets.example.com", cfg.Pricing.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Pricing.Timeout)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Throttle.Window)
	assert.Equal(t, "registration", cfg.Billing.Profile)
	assert.Equal(t, "Salty Jitterbugs Ltd.", cfg.Billing.MerchantName)
	assert.Equal(t, "s3cret", cfg.Session.HandleSecret, "handle secret falls back to the session secret")
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTimeout)
	assert.Empty(t, cfg.Admin.Token)
	assert.Greater(t, cfg.SlowRequestThreshold(), cfg.Throttle.Window)

	unit, err := cfg.Currency()
	require.NoError(t, err)
	assert.Equal(t, currency.GBP, unit)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("HANDLE_SECRET", "handles")
	t.Setenv("THROTTLE_WINDOW", "250ms")
	t.Setenv("EVENT_PROFILE", "workshops")
	t.Setenv("BILLING_CURRENCY", "eur")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("ADMIN_API_TOKEN", "ops-token")

	cfg, err := Load(zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "handles", cfg.Session.HandleSecret)
	assert.Equal(t, 250*time.Millisecond, cfg.Throttle.Window)
	assert.Equal(t, "workshops", cfg.Billing.Profile)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "ops-token", cfg.Admin.Token)
	assert.Equal(t, 750*time.Millisecond, cfg.SlowRequestThreshold())

	unit, err := cfg.Currency()
	require.NoError(t, err)
	assert.Equal(t, currency.EUR, unit)
}

func TestValidate(t *testing.T) {
	t.Run("requires session secret", func(t *testing.T) {
		cfg := &Config{Throttle: ThrottleConfig{Window: time.Second}, Billing: BillingConfig{Currency: "gbp"}}
		assert.ErrorContains(t, cfg.Validate(), "SESSION_SECRET")
	})

	t.Run("rejects non-positive window", func(t *testing.T) {
		cfg := &Config{Session: SessionConfig{Secret: "x"}, Billing: BillingConfig{Currency: "gbp"}}
		assert.ErrorContains(t, cfg.Validate(), "THROTTLE_WINDOW")
	})

	t.Run("rejects unknown currency", func(t *testing.T) {
		cfg := &Config{
			Session:  SessionConfig{Secret: "x"},
			Throttle: ThrottleConfig{Window: time.Second},
			Billing:  BillingConfig{Currency: "zzz"},
		}
		assert.ErrorContains(t, cfg.Validate(), "BILLING_CURRENCY")
	})
}
