package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rentease/backend/internal/audit"
	"github.com/rentease/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactionRowColumns = []string{
	"id", "user_id", "type", "amount", "currency", "status", "description",
	"stripe_payment_intent_id", "property_id", "created_at", "updated_at",
}

func newTestAudit() *audit.Logger {
	return audit.NewLogger(zerolog.Nop())
}

func newLedgerMock(t *testing.T) (*LedgerService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLedgerService(db, newTestAudit()), mock
}

func TestLedgerService_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts pending row", func(t *testing.T) {
		ledger, mock := newLedgerMock(t)
		now := time.Now()
		propertyID := "prop-1"

		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs("user-1", "deposit", decimal.NewFromInt(500000), "ngn",
				"Escrow payment for property #prop-1", "pi_1", &propertyID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("tx-1", now, now))

		tx, err := ledger.Record(ctx, ledger.db, RecordParams{
			UserID:          "user-1",
			Type:            models.TransactionTypeDeposit,
			Amount:          decimal.NewFromInt(500000),
			Currency:        "ngn",
			Description:     "Escrow payment for property #prop-1",
			PaymentIntentID: "pi_1",
			PropertyID:      &propertyID,
		})

		require.NoError(t, err)
		assert.Equal(t, "tx-1", tx.ID)
		assert.Equal(t, models.TransactionStatusPending, tx.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert error is wrapped", func(t *testing.T) {
		ledger, mock := newLedgerMock(t)
		mock.ExpectQuery("INSERT INTO transactions").WillReturnError(errors.New("duplicate key"))

		_, err := ledger.Record(ctx, ledger.db, RecordParams{UserID: "user-1", Amount: decimal.NewFromInt(1)})

		assert.ErrorContains(t, err, "record transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_MarkCompleted(t *testing.T) {
	ctx := context.Background()

	t.Run("pending row completes", func(t *testing.T) {
		ledger, mock := newLedgerMock(t)
		now := time.Now()

		mock.ExpectQuery("UPDATE transactions SET status = \\$2, updated_at = NOW\\(\\) WHERE stripe_payment_intent_id = \\$1 AND status = 'pending'").
			WithArgs("pi_1", "completed").
			WillReturnRows(sqlmock.NewRows(transactionRowColumns).
				AddRow("tx-1", "user-1", "deposit", "500000", "ngn", "completed", "", "pi_1", nil, now, now))

		tx, err := ledger.MarkCompleted(ctx, ledger.db, "pi_1")

		require.NoError(t, err)
		assert.Equal(t, models.TransactionStatusCompleted, tx.Status)
		assert.True(t, decimal.NewFromInt(500000).Equal(tx.Amount))
		assert.Nil(t, tx.PropertyID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already settled row reports no pending transaction", func(t *testing.T) {
		ledger, mock := newLedgerMock(t)

		mock.ExpectQuery("UPDATE transactions").
			WithArgs("pi_1", "completed").
			WillReturnRows(sqlmock.NewRows(transactionRowColumns))

		_, err := ledger.MarkCompleted(ctx, ledger.db, "pi_1")

		assert.ErrorIs(t, err, ErrNoPendingTransaction)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_MarkFailed(t *testing.T) {
	ledger, mock := newLedgerMock(t)
	now := time.Now()

	mock.ExpectQuery("UPDATE transactions").
		WithArgs("pi_2", "failed").
		WillReturnRows(sqlmock.NewRows(transactionRowColumns).
			AddRow("tx-2", "user-1", "deposit", "7000", "ngn", "failed", "", "pi_2", "prop-1", now, now))

	tx, err := ledger.MarkFailed(context.Background(), ledger.db, "pi_2")

	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, tx.Status)
	require.NotNil(t, tx.PropertyID)
	assert.Equal(t, "prop-1", *tx.PropertyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_CompleteDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("completes and credits once", func(t *testing.T) {
		ledger, mock := newLedgerMock(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE transactions").
			WithArgs("pi_1", "completed").
			WillReturnRows(sqlmock.NewRows(transactionRowColumns).
				AddRow("tx-1", "user-1", "deposit", "25000", "ngn", "completed", "", "pi_1", nil, now, now))
		mock.ExpectExec("INSERT INTO user_balances").
			WithArgs("user-1", decimal.NewFromInt(25000)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := ledger.CompleteDeposit(ctx, "pi_1")

		require.NoError(t, err)
		assert.Equal(t, "user-1", tx.UserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replay does not credit", func(t *testing.T) {
		ledger, mock := newLedgerMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE transactions").
			WithArgs("pi_1", "completed").
			WillReturnRows(sqlmock.NewRows(transactionRowColumns))
		mock.ExpectRollback()

		_, err := ledger.CompleteDeposit(ctx, "pi_1")

		assert.ErrorIs(t, err, ErrNoPendingTransaction)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credit failure rolls back completion", func(t *testing.T) {
		ledger, mock := newLedgerMock(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE transactions").
			WillReturnRows(sqlmock.NewRows(transactionRowColumns).
				AddRow("tx-1", "user-1", "deposit", "25000", "ngn", "completed", "", "pi_1", nil, now, now))
		mock.ExpectExec("INSERT INTO user_balances").WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := ledger.CompleteDeposit(ctx, "pi_1")

		assert.ErrorContains(t, err, "credit balance")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_CompleteDeposit_AuditAfterCommit(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	completedRow := func() *sqlmock.Rows {
		return sqlmock.NewRows(transactionRowColumns).
			AddRow("tx-1", "user-1", "deposit", "25000", "ngn", "completed", "", "pi_1", nil, now, now)
	}
	newAuditedLedger := func(t *testing.T) (*LedgerService, sqlmock.Sqlmock, *bytes.Buffer) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		buf := &bytes.Buffer{}
		return NewLedgerService(db, audit.NewLogger(zerolog.New(buf))), mock, buf
	}

	t.Run("rolled back credit writes no audit lines", func(t *testing.T) {
		ledger, mock, buf := newAuditedLedger(t)
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE transactions").WillReturnRows(completedRow())
		mock.ExpectExec("INSERT INTO user_balances").WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := ledger.CompleteDeposit(ctx, "pi_1")

		require.Error(t, err)
		assert.NotContains(t, buf.String(), audit.EventLedgerCompleted)
		assert.NotContains(t, buf.String(), audit.EventBalanceCredited)
	})

	t.Run("failed commit writes no audit lines", func(t *testing.T) {
		ledger, mock, buf := newAuditedLedger(t)
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE transactions").WillReturnRows(completedRow())
		mock.ExpectExec("INSERT INTO user_balances").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		_, err := ledger.CompleteDeposit(ctx, "pi_1")

		require.Error(t, err)
		assert.Zero(t, buf.Len())
	})

	t.Run("commit writes completion then credit", func(t *testing.T) {
		ledger, mock, buf := newAuditedLedger(t)
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE transactions").WillReturnRows(completedRow())
		mock.ExpectExec("INSERT INTO user_balances").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err := ledger.CompleteDeposit(ctx, "pi_1")

		require.NoError(t, err)
		completed := strings.Index(buf.String(), audit.EventLedgerCompleted)
		credited := strings.Index(buf.String(), audit.EventBalanceCredited)
		require.GreaterOrEqual(t, completed, 0)
		assert.Greater(t, credited, completed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_GetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("existing balance", func(t *testing.T) {
		ledger, mock := newLedgerMock(t)
		mock.ExpectQuery("SELECT balance, updated_at FROM user_balances WHERE user_id = \\$1").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance", "updated_at"}).AddRow("1200.50", time.Now()))

		b, err := ledger.GetBalance(ctx, "user-1")

		require.NoError(t, err)
		assert.Equal(t, "1200.5", b.Balance.String())
	})

	t.Run("never credited user has zero balance", func(t *testing.T) {
		ledger, mock := newLedgerMock(t)
		mock.ExpectQuery("SELECT balance").
			WithArgs("user-2").
			WillReturnRows(sqlmock.NewRows([]string{"balance", "updated_at"}))

		b, err := ledger.GetBalance(ctx, "user-2")

		require.NoError(t, err)
		assert.True(t, b.Balance.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_ListForUser(t *testing.T) {
	ledger, mock := newLedgerMock(t)
	now := time.Now()

	mock.ExpectQuery("FROM transactions WHERE user_id = \\$1 ORDER BY created_at DESC LIMIT \\$2").
		WithArgs("user-1", 50).
		WillReturnRows(sqlmock.NewRows(transactionRowColumns).
			AddRow("tx-2", "user-1", "deposit", "100", "ngn", "pending", "", "pi_2", nil, now, now).
			AddRow("tx-1", "user-1", "deposit", "500000", "ngn", "completed", "", "pi_1", "prop-1", now, now))

	txs, err := ledger.ListForUser(context.Background(), "user-1", 50)

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "tx-2", txs[0].ID)
	assert.Equal(t, models.TransactionStatusCompleted, txs[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
