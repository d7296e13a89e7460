package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds the application settings that are not connection strings.
// Database and Redis settings are read by the database package.
type Config struct {
	Server    ServerConfig
	Stripe    StripeConfig
	Payments  PaymentsConfig
	Escrow    EscrowConfig
	Webhook   WebhookConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// PaymentsConfig controls how charge amounts are sent to the processor.
type PaymentsConfig struct {
	Currency string
	// MinChargeAmount is substituted for any smaller requested amount.
	// It exists for the processor's sandbox minimum; set it to 0 in production.
	MinChargeAmount decimal.Decimal
}

// EscrowConfig holds the split between the platform and the landlord.
type EscrowConfig struct {
	PlatformFeePercent decimal.Decimal
}

type WebhookConfig struct {
	DedupeTTL    time.Duration
	MaxBodyBytes int64
}

type JWTConfig struct {
	SecretKey string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ReadEnvFile loads .env into viper. A missing file is not an error.
func ReadEnvFile(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	return nil
}

func bindEnv() {
	viper.BindEnv("server.port", "PORT")

	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("stripe.secret_key", "STRIPE_SECRET_KEY")
	viper.BindEnv("stripe.webhook_secret", "STRIPE_WEBHOOK_SECRET")

	viper.BindEnv("payments.currency", "PAYMENTS_CURRENCY")
	viper.BindEnv("payments.min_charge_amount", "PAYMENTS_MIN_CHARGE_AMOUNT")
	viper.BindEnv("escrow.platform_fee_percent", "ESCROW_PLATFORM_FEE_PERCENT")
	viper.BindEnv("webhook.dedupe_ttl", "WEBHOOK_DEDUPE_TTL")
	viper.BindEnv("webhook.max_body_bytes", "WEBHOOK_MAX_BODY_BYTES")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")

	viper.BindEnv("rate_limit.rps", "RATE_LIMIT_RPS")
	viper.BindEnv("rate_limit.burst", "RATE_LIMIT_BURST")
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)

	viper.SetDefault("payments.currency", "ngn")
	viper.SetDefault("payments.min_charge_amount", "5000")
	viper.SetDefault("escrow.platform_fee_percent", "0")
	viper.SetDefault("webhook.dedupe_ttl", 72*time.Hour)
	viper.SetDefault("webhook.max_body_bytes", 65536)

	viper.SetDefault("rate_limit.rps", 10)
	viper.SetDefault("rate_limit.burst", 20)
}

// Load builds a Config from viper, applying defaults for anything unset.
func Load() (*Config, error) {
	bindEnv()
	setDefaults()

	minCharge, err := decimal.NewFromString(viper.GetString("payments.min_charge_amount"))
	if err != nil {
		return nil, fmt.Errorf("invalid payments.min_charge_amount: %w", err)
	}
	if minCharge.IsNegative() {
		return nil, errors.New("payments.min_charge_amount must not be negative")
	}

	feePercent, err := decimal.NewFromString(viper.GetString("escrow.platform_fee_percent"))
	if err != nil {
		return nil, fmt.Errorf("invalid escrow.platform_fee_percent: %w", err)
	}
	if feePercent.IsNegative() || feePercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil, errors.New("escrow.platform_fee_percent must be in [0, 100)")
	}

	return &Config{
		Server: ServerConfig{
			Port:            viper.GetString("server.port"),
			ReadTimeout:     viper.GetDuration("server.read_timeout"),
			WriteTimeout:    viper.GetDuration("server.write_timeout"),
			IdleTimeout:     viper.GetDuration("server.idle_timeout"),
			ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
		},
		Stripe: StripeConfig{
			SecretKey:     viper.GetString("stripe.secret_key"),
			WebhookSecret: viper.GetString("stripe.webhook_secret"),
		},
		Payments: PaymentsConfig{
			Currency:        viper.GetString("payments.currency"),
			MinChargeAmount: minCharge,
		},
		Escrow: EscrowConfig{
			PlatformFeePercent: feePercent,
		},
		Webhook: WebhookConfig{
			DedupeTTL:    viper.GetDuration("webhook.dedupe_ttl"),
			MaxBodyBytes: viper.GetInt64("webhook.max_body_bytes"),
		},
		JWT: JWTConfig{
			SecretKey: viper.GetString("jwt.secret_key"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: viper.GetFloat64("rate_limit.rps"),
			Burst:             viper.GetInt("rate_limit.burst"),
		},
	}, nil
}
