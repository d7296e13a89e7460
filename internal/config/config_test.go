package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		viper.Reset()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "ngn", cfg.Payments.Currency)
		assert.True(t, cfg.Payments.MinChargeAmount.Equal(decimal.NewFromInt(5000)))
		assert.True(t, cfg.Escrow.PlatformFeePercent.IsZero())
		assert.Equal(t, 72*time.Hour, cfg.Webhook.DedupeTTL)
		assert.Equal(t, int64(65536), cfg.Webhook.MaxBodyBytes)
		assert.Equal(t, 20, cfg.RateLimit.Burst)
	})

	t.Run("environment overrides", func(t *testing.T) {
		viper.Reset()
		t.Setenv("PAYMENTS_MIN_CHARGE_AMOUNT", "0")
		t.Setenv("ESCROW_PLATFORM_FEE_PERCENT", "2.5")
		t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

		cfg, err := Load()
		require.NoError(t, err)

		assert.True(t, cfg.Payments.MinChargeAmount.IsZero())
		assert.True(t, cfg.Escrow.PlatformFeePercent.Equal(decimal.RequireFromString("2.5")))
		assert.Equal(t, "whsec_test", cfg.Stripe.WebhookSecret)
	})

	t.Run("invalid fee percent", func(t *testing.T) {
		viper.Reset()
		viper.Set("escrow.platform_fee_percent", "100")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "platform_fee_percent")
	})

	t.Run("negative floor", func(t *testing.T) {
		viper.Reset()
		viper.Set("payments.min_charge_amount", "-1")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestReadEnvFile_Missing(t *testing.T) {
	viper.Reset()
	assert.NoError(t, ReadEnvFile(t.TempDir()+"/.env"))
}
