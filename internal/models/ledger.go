package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserBalance struct {
	UserID    string          `json:"user_id" db:"user_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Property is the slice of a listing the payment flows need.
type Property struct {
	ID         string  `json:"id" db:"id"`
	LandlordID *string `json:"landlord_id" db:"landlord_id"`
	Title      string  `json:"title" db:"title"`
}
