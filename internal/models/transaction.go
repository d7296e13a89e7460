package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "deposit"
	TransactionTypeRentPayment TransactionType = "rent_payment"
	TransactionTypeWithdrawal  TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is one row of the append-only money movement ledger.
type Transaction struct {
	ID              string            `json:"id" db:"id"`
	UserID          string            `json:"user_id" db:"user_id"`
	Type            TransactionType   `json:"type" db:"type"`
	Amount          decimal.Decimal   `json:"amount" db:"amount"`
	Currency        string            `json:"currency" db:"currency"`
	Status          TransactionStatus `json:"status" db:"status"`
	Description     string            `json:"description" db:"description"`
	PaymentIntentID string            `json:"stripe_payment_intent_id" db:"stripe_payment_intent_id"`
	PropertyID      *string           `json:"property_id,omitempty" db:"property_id"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}
