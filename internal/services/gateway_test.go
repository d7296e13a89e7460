package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func testStripeBackends(t *testing.T, handler http.HandlerFunc) *stripe.Backends {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
}

func TestApplyChargeFloor(t *testing.T) {
	floor := decimal.NewFromInt(5000)

	tests := []struct {
		name   string
		amount decimal.Decimal
		want   decimal.Decimal
	}{
		{"below floor", decimal.NewFromInt(100), floor},
		{"just below floor", decimal.RequireFromString("4999.99"), floor},
		{"at floor", floor, floor},
		{"above floor", decimal.NewFromInt(500000), decimal.NewFromInt(500000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(ApplyChargeFloor(tt.amount, floor)))
		})
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(50000000), ToMinorUnits(decimal.NewFromInt(500000)))
	assert.Equal(t, int64(1050), ToMinorUnits(decimal.RequireFromString("10.5")))
	assert.Equal(t, int64(1001), ToMinorUnits(decimal.RequireFromString("10.005")))
	assert.True(t, decimal.RequireFromString("10.5").Equal(FromMinorUnits(1050)))
}

func TestStripeGateway_CreateIntent(t *testing.T) {
	t.Run("applies floor and sends minor units", func(t *testing.T) {
		var form map[string]string
		var idemKey string
		backends := testStripeBackends(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/payment_intents", r.URL.Path)
			require.NoError(t, r.ParseForm())
			form = map[string]string{}
			for k := range r.PostForm {
				form[k] = r.PostForm.Get(k)
			}
			idemKey = r.Header.Get("Idempotency-Key")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"pi_123","object":"payment_intent","client_secret":"pi_123_secret_abc","amount":500000,"currency":"ngn"}`))
		})

		gw := NewStripeGateway("sk_test_123", decimal.NewFromInt(5000), backends)
		res, err := gw.CreateIntent(context.Background(), IntentRequest{
			Amount:         decimal.NewFromInt(100),
			Currency:       "NGN",
			Metadata:       map[string]string{"type": "escrow_payment"},
			IdempotencyKey: "escrow-abc",
		})

		require.NoError(t, err)
		assert.Equal(t, "pi_123", res.ID)
		assert.Equal(t, "pi_123_secret_abc", res.ClientSecret)
		assert.True(t, decimal.NewFromInt(5000).Equal(res.Amount))

		assert.Equal(t, "500000", form["amount"])
		assert.Equal(t, "ngn", form["currency"])
		assert.Equal(t, "true", form["automatic_payment_methods[enabled]"])
		assert.Equal(t, "escrow_payment", form["metadata[type]"])
		assert.Equal(t, "100", form["metadata[originalAmount]"])
		assert.Equal(t, "5000", form["metadata[chargedAmount]"])
		assert.Equal(t, "escrow-abc", idemKey)
	})

	t.Run("processor rejection becomes GatewayError", func(t *testing.T) {
		backends := testStripeBackends(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
		})

		gw := NewStripeGateway("sk_test_123", decimal.NewFromInt(5000), backends)
		res, err := gw.CreateIntent(context.Background(), IntentRequest{
			Amount:   decimal.NewFromInt(500000),
			Currency: "ngn",
		})

		assert.Nil(t, res)
		var gwErr *GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, "card_declined", gwErr.Code)
		assert.Equal(t, "Your card was declined.", gwErr.Message)
		assert.Equal(t, http.StatusPaymentRequired, gwErr.StatusCode)
	})

	t.Run("missing secret key", func(t *testing.T) {
		gw := NewStripeGateway("", decimal.NewFromInt(5000), nil)
		_, err := gw.CreateIntent(context.Background(), IntentRequest{Amount: decimal.NewFromInt(1)})

		var gwErr *GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, "not_configured", gwErr.Code)
	})
}
