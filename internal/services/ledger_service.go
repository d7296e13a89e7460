package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rentease/backend/internal/audit"
	"github.com/rentease/backend/internal/models"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, user_id, type, amount, currency, status, description,
	stripe_payment_intent_id, property_id, created_at, updated_at`

// RecordParams describes a new pending ledger row.
type RecordParams struct {
	UserID          string
	Type            models.TransactionType
	Amount          decimal.Decimal
	Currency        string
	Description     string
	PaymentIntentID string
	PropertyID      *string
}

// LedgerService owns the transactions table and user balances. Status only
// ever moves pending -> completed or pending -> failed.
type LedgerService struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewLedgerService(db *sql.DB, auditLog *audit.Logger) *LedgerService {
	return &LedgerService{db: db, audit: auditLog}
}

// ledgerTx is a database transaction whose audit lines are held back until
// Commit succeeds. A rollback discards them.
type ledgerTx struct {
	*sql.Tx
	trail *audit.Trail
}

func (s *LedgerService) begin(ctx context.Context) (*ledgerTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &ledgerTx{Tx: tx, trail: s.audit.NewTrail()}, nil
}

func (t *ledgerTx) Commit() error {
	if err := t.Tx.Commit(); err != nil {
		return err
	}
	t.trail.Flush()
	return nil
}

// logTransition writes event now, or after commit when q is a ledgerTx.
func (s *LedgerService) logTransition(q Querier, event audit.Event) {
	if tx, ok := q.(*ledgerTx); ok {
		tx.trail.LogTransition(event)
		return
	}
	s.audit.LogTransition(event)
}

// Record inserts a pending transaction through q, which may be a ledgerTx.
func (s *LedgerService) Record(ctx context.Context, q Querier, p RecordParams) (*models.Transaction, error) {
	tx := &models.Transaction{
		UserID:          p.UserID,
		Type:            p.Type,
		Amount:          p.Amount,
		Currency:        p.Currency,
		Status:          models.TransactionStatusPending,
		Description:     p.Description,
		PaymentIntentID: p.PaymentIntentID,
		PropertyID:      p.PropertyID,
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO transactions (user_id, type, amount, currency, status, description, stripe_payment_intent_id, property_id)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		p.UserID, string(p.Type), p.Amount, p.Currency, p.Description, p.PaymentIntentID, p.PropertyID,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	s.logTransition(q, audit.Event{
		EventType:       audit.EventLedgerRecorded,
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		PaymentIntentID: tx.PaymentIntentID,
		Amount:          tx.Amount,
		Status:          string(tx.Status),
		Details:         map[string]string{"type": string(tx.Type)},
	})

	return tx, nil
}

// MarkCompleted moves the pending transaction for paymentIntentID to completed.
// It returns ErrNoPendingTransaction when there is nothing left to complete.
func (s *LedgerService) MarkCompleted(ctx context.Context, q Querier, paymentIntentID string) (*models.Transaction, error) {
	return s.transition(ctx, q, paymentIntentID, models.TransactionStatusCompleted)
}

func (s *LedgerService) MarkFailed(ctx context.Context, q Querier, paymentIntentID string) (*models.Transaction, error) {
	return s.transition(ctx, q, paymentIntentID, models.TransactionStatusFailed)
}

func (s *LedgerService) transition(ctx context.Context, q Querier, paymentIntentID string, to models.TransactionStatus) (*models.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		UPDATE transactions
		SET status = $2, updated_at = NOW()
		WHERE stripe_payment_intent_id = $1 AND status = 'pending'
		RETURNING `+transactionColumns,
		paymentIntentID, string(to))

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoPendingTransaction
	}
	if err != nil {
		return nil, fmt.Errorf("mark transaction %s: %w", to, err)
	}

	eventType := audit.EventLedgerCompleted
	if to == models.TransactionStatusFailed {
		eventType = audit.EventLedgerFailed
	}
	s.logTransition(q, audit.Event{
		EventType:       eventType,
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		PaymentIntentID: paymentIntentID,
		Amount:          tx.Amount,
		Status:          string(to),
	})

	return tx, nil
}

// CompleteDeposit completes a wallet deposit and credits the owner's balance
// in one database transaction, so a replayed confirmation cannot credit twice.
func (s *LedgerService) CompleteDeposit(ctx context.Context, paymentIntentID string) (*models.Transaction, error) {
	dbTx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback()

	tx, err := s.MarkCompleted(ctx, dbTx, paymentIntentID)
	if err != nil {
		return nil, err
	}

	if err := s.CreditBalance(ctx, dbTx, tx.UserID, tx.Amount); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, err
	}
	return tx, nil
}

// CreditBalance adds amount to userID's balance, creating the row if needed.
func (s *LedgerService) CreditBalance(ctx context.Context, q Querier, userID string, amount decimal.Decimal) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET balance = user_balances.balance + EXCLUDED.balance, updated_at = NOW()`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	s.logTransition(q, audit.Event{
		EventType: audit.EventBalanceCredited,
		UserID:    userID,
		Amount:    amount,
		Status:    "credited",
	})
	return nil
}

// GetBalance returns zero for users that have never been credited.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (*models.UserBalance, error) {
	b := &models.UserBalance{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT balance, updated_at FROM user_balances WHERE user_id = $1`, userID,
	).Scan(&b.Balance, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return b, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *LedgerService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var txType, status string
	var propertyID sql.NullString
	err := row.Scan(&tx.ID, &tx.UserID, &txType, &tx.Amount, &tx.Currency, &status,
		&tx.Description, &tx.PaymentIntentID, &propertyID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tx.Type = models.TransactionType(txType)
	tx.Status = models.TransactionStatus(status)
	if propertyID.Valid {
		tx.PropertyID = &propertyID.String
	}
	return &tx, nil
}
