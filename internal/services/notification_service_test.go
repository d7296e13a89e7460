package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/rentease/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_Emit(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := models.Notification{
		UserID:  "landlord-1",
		Type:    models.NotificationEscrowPending,
		Title:   "Payment in Escrow",
		Message: "₦500,000 is held in escrow",
		Data:    models.Metadata{"escrowId": "esc-1"},
	}

	t.Run("stores and publishes", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		redisClient, redisMock := redismock.NewClientMock()

		mock.ExpectQuery("INSERT INTO notifications").
			WithArgs("landlord-1", models.NotificationEscrowPending, "Payment in Escrow", "₦500,000 is held in escrow", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("n-1", createdAt))

		published := base
		published.ID = "n-1"
		published.CreatedAt = createdAt
		payload, _ := json.Marshal(published)
		redisMock.ExpectPublish("notifications:landlord-1", string(payload)).SetVal(1)

		svc := NewNotificationService(db, redisClient, zerolog.Nop())
		svc.Emit(context.Background(), base)

		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("store failure skips publish", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		redisClient, redisMock := redismock.NewClientMock()

		mock.ExpectQuery("INSERT INTO notifications").WillReturnError(errors.New("relation does not exist"))

		svc := NewNotificationService(db, redisClient, zerolog.Nop())
		assert.NotPanics(t, func() { svc.Emit(context.Background(), base) })

		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("works without redis", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("INSERT INTO notifications").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("n-1", createdAt))

		svc := NewNotificationService(db, nil, zerolog.Nop())
		svc.Emit(context.Background(), base)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled request context still stores", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("INSERT INTO notifications").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("n-1", createdAt))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		NewNotificationService(db, nil, zerolog.Nop()).Emit(ctx, base)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNotificationService_ListForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM notifications WHERE user_id = \\$1 ORDER BY created_at DESC LIMIT \\$2").
		WithArgs("user-1", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "data", "read", "created_at"}).
			AddRow("n-2", "user-1", "payment_received", "Payment Received", "msg", []byte(`{"escrowId":"esc-1"}`), false, time.Now()).
			AddRow("n-1", "user-1", "escrow_created", "Escrow Created", "msg", nil, true, time.Now()))

	svc := NewNotificationService(db, nil, zerolog.Nop())
	list, err := svc.ListForUser(context.Background(), "user-1", 20)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "esc-1", list[0].Data["escrowId"])
	assert.True(t, list[1].Read)
	assert.Nil(t, list[1].Data)
}

func TestNotificationService_MarkRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	svc := NewNotificationService(db, nil, zerolog.Nop())

	t.Run("own notification", func(t *testing.T) {
		mock.ExpectExec("UPDATE notifications SET read = TRUE WHERE id = \\$1 AND user_id = \\$2").
			WithArgs("n-1", "user-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, svc.MarkRead(context.Background(), "n-1", "user-1"))
	})

	t.Run("someone else's notification", func(t *testing.T) {
		mock.ExpectExec("UPDATE notifications").
			WithArgs("n-1", "user-2").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, svc.MarkRead(context.Background(), "n-1", "user-2"), ErrNotificationNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "₦500,000", FormatAmount("ngn", decimal.NewFromInt(500000)))
	assert.Equal(t, "$1,234.50", FormatAmount("usd", decimal.RequireFromString("1234.5")))
	assert.Equal(t, "KES 900", FormatAmount("KES", decimal.NewFromInt(900)))
}
