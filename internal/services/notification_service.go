package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rentease/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const emitTimeout = 5 * time.Second

// Notifier delivers user-facing notifications. Emit never returns an error:
// a failed notification must not undo the money movement that caused it.
type Notifier interface {
	Emit(ctx context.Context, n models.Notification)
}

// NotificationService stores notifications and fans them out on the
// notifications:<userID> Redis channel when Redis is available.
type NotificationService struct {
	db    *sql.DB
	redis *redis.Client
	log   zerolog.Logger
}

func NewNotificationService(db *sql.DB, rdb *redis.Client, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		db:    db,
		redis: rdb,
		log:   log.With().Str("component", "notifications").Logger(),
	}
}

func NotificationChannel(userID string) string {
	return "notifications:" + userID
}

func (s *NotificationService) Emit(ctx context.Context, n models.Notification) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
	defer cancel()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		n.UserID, n.Type, n.Title, n.Message, n.Data,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", n.UserID).Str("type", n.Type).Msg("failed to store notification")
		return
	}

	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		s.log.Error().Err(err).Str("notification_id", n.ID).Msg("failed to encode notification")
		return
	}
	if err := s.redis.Publish(ctx, NotificationChannel(n.UserID), string(payload)).Err(); err != nil {
		s.log.Warn().Err(err).Str("notification_id", n.ID).Msg("failed to publish notification")
	}
}

func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, message, data, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Data, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders amount for notification text, e.g. ₦500,000.
func FormatAmount(currency string, amount decimal.Decimal) string {
	symbol := currencySymbol(currency)
	if amount.Equal(amount.Truncate(0)) {
		return amountPrinter.Sprintf("%s%d", symbol, amount.IntPart())
	}
	return amountPrinter.Sprintf("%s%.2f", symbol, amount.InexactFloat64())
}

func currencySymbol(currency string) string {
	switch currency {
	case "ngn", "NGN":
		return "₦"
	case "usd", "USD":
		return "$"
	case "gbp", "GBP":
		return "£"
	case "eur", "EUR":
		return "€"
	}
	return fmt.Sprintf("%s ", currency)
}
