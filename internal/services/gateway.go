package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// IntentRequest describes a charge to open with the card processor.
// Amount is in major currency units.
type IntentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// IntentResult carries what the client needs to confirm the payment.
// Amount is the amount actually charged, after the floor was applied.
type IntentResult struct {
	ID           string
	ClientSecret string
	Amount       decimal.Decimal
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*IntentResult, error)
}

// ApplyChargeFloor raises amounts below floor to floor.
func ApplyChargeFloor(amount, floor decimal.Decimal) decimal.Decimal {
	if amount.LessThan(floor) {
		return floor
	}
	return amount
}

// ToMinorUnits converts a major-unit amount to the processor's integer unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// StripeGateway opens payment intents through the Stripe API. The client is
// built on first use so a missing key only fails payment calls.
type StripeGateway struct {
	secretKey string
	backends  *stripe.Backends
	minCharge decimal.Decimal

	once    sync.Once
	api     *client.API
	initErr error
}

// NewStripeGateway returns a gateway using secretKey. backends may be nil to
// use the default Stripe endpoints.
func NewStripeGateway(secretKey string, minCharge decimal.Decimal, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{
		secretKey: secretKey,
		backends:  backends,
		minCharge: minCharge,
	}
}

func (g *StripeGateway) client() (*client.API, error) {
	g.once.Do(func() {
		if g.secretKey == "" {
			g.initErr = errors.New("stripe secret key is not configured")
			return
		}
		g.api = client.New(g.secretKey, g.backends)
	})
	return g.api, g.initErr
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*IntentResult, error) {
	api, err := g.client()
	if err != nil {
		return nil, &GatewayError{Code: "not_configured", Message: err.Error(), Err: err}
	}

	charged := ApplyChargeFloor(req.Amount, g.minCharge)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(charged)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddMetadata("originalAmount", req.Amount.String())
	params.AddMetadata("chargedAmount", charged.String())
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := api.PaymentIntents.New(params)
	if err != nil {
		return nil, newGatewayError(err)
	}

	return &IntentResult{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       charged,
	}, nil
}
