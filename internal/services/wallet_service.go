package services

import (
	"context"
	"database/sql"

	"github.com/rentease/backend/internal/models"
	"github.com/shopspring/decimal"
)

type DepositRequest struct {
	UserID         string
	Amount         decimal.Decimal
	PropertyID     string
	CustomerEmail  string
	IdempotencyKey string
}

type DepositResult struct {
	ClientSecret  string          `json:"clientSecret"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
}

// WalletService funds user wallets. The balance is credited only when the
// processor confirms the charge.
type WalletService struct {
	db       *sql.DB
	gateway  PaymentGateway
	ledger   *LedgerService
	currency string
}

func NewWalletService(db *sql.DB, gateway PaymentGateway, ledger *LedgerService, currency string) *WalletService {
	return &WalletService{db: db, gateway: gateway, ledger: ledger, currency: currency}
}

func (s *WalletService) Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	metadata := map[string]string{
		"type":   PaymentTypeWalletDeposit,
		"userId": req.UserID,
	}
	var propertyID *string
	if req.PropertyID != "" {
		metadata["propertyId"] = req.PropertyID
		propertyID = &req.PropertyID
	}
	if req.CustomerEmail != "" {
		metadata["customerEmail"] = req.CustomerEmail
	}

	intent, err := s.gateway.CreateIntent(ctx, IntentRequest{
		Amount:         req.Amount,
		Currency:       s.currency,
		Metadata:       metadata,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	tx, err := s.ledger.Record(ctx, s.db, RecordParams{
		UserID:          req.UserID,
		Type:            models.TransactionTypeDeposit,
		Amount:          intent.Amount,
		Currency:        s.currency,
		Description:     "Wallet deposit",
		PaymentIntentID: intent.ID,
		PropertyID:      propertyID,
	})
	if err != nil {
		return nil, err
	}

	return &DepositResult{
		ClientSecret:  intent.ClientSecret,
		Amount:        intent.Amount,
		TransactionID: tx.ID,
	}, nil
}
