package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EscrowStatus string

const (
	EscrowStatusPending   EscrowStatus = "pending"
	EscrowStatusCompleted EscrowStatus = "completed"
	EscrowStatusCancelled EscrowStatus = "cancelled"
)

// EscrowTransaction holds a tenant's captured rent until the tenant releases it.
type EscrowTransaction struct {
	ID              string          `json:"id" db:"id"`
	PropertyID      string          `json:"property_id" db:"property_id"`
	TenantID        string          `json:"tenant_id" db:"tenant_id"`
	LandlordID      string          `json:"landlord_id" db:"landlord_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	LandlordAmount  decimal.Decimal `json:"landlord_amount" db:"landlord_amount"`
	Status          EscrowStatus    `json:"status" db:"status"`
	PaymentIntentID string          `json:"stripe_payment_intent_id" db:"stripe_payment_intent_id"`
	TransactionID   string          `json:"transaction_id" db:"transaction_id"`
	ReleaseNotes    *string         `json:"release_notes,omitempty" db:"release_notes"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}
