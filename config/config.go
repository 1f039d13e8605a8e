package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

type Config struct {
	Pricing  PricingConfig
	Server   ServerConfig
	Session  SessionConfig
	Billing  BillingConfig
	Redis    RedisConfig
	Throttle ThrottleConfig
	Admin    AdminConfig
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// PricingConfig points at the remote pricing/registration service.
type PricingConfig struct {
	BaseURL string        `env:"PRICING_BASE_URL" envDefault:"http://localhost:5000"`
	Timeout time.Duration `env:"PRICING_TIMEOUT" envDefault:"30s"`
}

type ServerConfig struct {
	Port           string   `env:"SERVER_PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

type SessionConfig struct {
	Secret       string        `env:"SESSION_SECRET"`
	Domain       string        `env:"SESSION_DOMAIN"`
	MaxAge       int           `env:"SESSION_MAX_AGE" envDefault:"86400"`
	Secure       bool          `env:"SESSION_SECURE" envDefault:"true"`
	IdleTimeout  time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2h"`
	SweepEvery   time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	HandleSecret string        `env:"HANDLE_SECRET"`
}

// BillingConfig is the fixed billing context handed to the payment widget.
type BillingConfig struct {
	Profile      string `env:"EVENT_PROFILE" envDefault:"registration"`
	MerchantName string `env:"MERCHANT_NAME" envDefault:"Salty Jitterbugs Ltd."`
	Currency     string `env:"BILLING_CURRENCY" envDefault:"gbp"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

// AdminConfig guards the operator routes. An empty token disables them.
type AdminConfig struct {
	Token string `env:"ADMIN_API_TOKEN"`
}

type ThrottleConfig struct {
	Window time.Duration `env:"THROTTLE_WINDOW" envDefault:"1s"`
}

// Load reads .env (if present) and the process environment.
func Load(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", zap.Error(err))
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("configuration loaded",
		zap.String("pricing_base_url", cfg.Pricing.BaseURL),
		zap.String("port", cfg.Server.Port),
		zap.String("profile", cfg.Billing.Profile),
		zap.Duration("throttle_window", cfg.Throttle.Window),
		zap.Bool("redis", cfg.Redis.URL != ""),
		zap.Bool("admin_routes", cfg.Admin.Token != ""),
	)
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.Session.HandleSecret == "" {
		c.Session.HandleSecret = c.Session.Secret
	}
	if c.Throttle.Window <= 0 {
		return fmt.Errorf("THROTTLE_WINDOW must be positive, got %v", c.Throttle.Window)
	}
	if _, err := c.Currency(); err != nil {
		return err
	}
	c.Pricing.BaseURL = strings.TrimRight(c.Pricing.BaseURL, "/")
	return nil
}

// SlowRequestThreshold is when a request counts as slow in the access log.
// Price and checkout requests always wait out the debounce window first.
func (c *Config) SlowRequestThreshold() time.Duration {
	return c.Throttle.Window + 500*time.Millisecond
}

// Currency parses the configured ISO 4217 billing currency.
func (c *Config) Currency() (currency.Unit, error) {
	unit, err := currency.ParseISO(strings.ToUpper(c.Billing.Currency))
	if err != nil {
		return currency.Unit{}, fmt.Errorf("invalid BILLING_CURRENCY %q: %w", c.Billing.Currency, err)
	}
	return unit, nil
}
