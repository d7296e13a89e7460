package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rentease/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

var ErrInvalidSignature = errors.New("webhook signature verification failed")

type WebhookOptions struct {
	Secret    string
	DedupeTTL time.Duration
}

// WebhookService verifies processor callbacks and applies them to the ledger.
// Every state change it makes is conditional on the current state, so
// duplicated or reordered deliveries are harmless.
type WebhookService struct {
	ledger   *LedgerService
	escrow   *EscrowService
	notifier Notifier
	redis    *redis.Client
	opts     WebhookOptions
	log      zerolog.Logger
}

func NewWebhookService(ledger *LedgerService, escrow *EscrowService, notifier Notifier, rdb *redis.Client,
	log zerolog.Logger, opts WebhookOptions) *WebhookService {
	return &WebhookService{
		ledger:   ledger,
		escrow:   escrow,
		notifier: notifier,
		redis:    rdb,
		opts:     opts,
		log:      log.With().Str("component", "webhook").Logger(),
	}
}

// VerifyEvent checks the signature header against the raw payload.
func (s *WebhookService) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	if s.opts.Secret == "" {
		return stripe.Event{}, fmt.Errorf("%w: webhook secret is not configured", ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.opts.Secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

// Dispatch applies a verified event. Failures are logged, never returned:
// the processor has already been told the event was received.
func (s *WebhookService) Dispatch(ctx context.Context, event stripe.Event) {
	log := s.log.With().Str("event_id", event.ID).Str("event_type", string(event.Type)).Logger()

	if s.seen(ctx, event.ID) {
		log.Info().Msg("duplicate webhook event ignored")
		return
	}

	switch string(event.Type) {
	case EventPaymentSucceeded, EventPaymentFailed:
	default:
		log.Debug().Msg("unhandled webhook event type")
		return
	}

	if event.Data == nil {
		log.Warn().Msg("webhook event has no data")
		return
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Error().Err(err).Msg("failed to decode payment intent")
		return
	}
	log = log.With().Str("payment_intent_id", pi.ID).Logger()

	var err error
	if string(event.Type) == EventPaymentSucceeded {
		err = s.handleSucceeded(ctx, &pi, log)
	} else {
		err = s.handleFailed(ctx, &pi)
	}

	switch {
	case errors.Is(err, ErrNoPendingTransaction):
		log.Info().Msg("no pending transaction, already processed or not ours")
	case err != nil:
		log.Error().Err(err).Msg("failed to apply webhook event")
		return
	default:
		log.Info().Msg("webhook event applied")
	}

	s.markSeen(ctx, event.ID)
}

func (s *WebhookService) handleSucceeded(ctx context.Context, pi *stripe.PaymentIntent, log zerolog.Logger) error {
	meta, err := ParsePaymentMetadata(pi.Metadata)
	if err != nil {
		log.Warn().Err(err).Msg("unusable payment metadata")
	}

	switch m := meta.(type) {
	case WalletDepositMetadata:
		tx, err := s.ledger.CompleteDeposit(ctx, pi.ID)
		if err != nil {
			return err
		}
		s.notifier.Emit(ctx, models.Notification{
			UserID:  tx.UserID,
			Type:    models.NotificationDepositReceived,
			Title:   "Wallet Funded",
			Message: fmt.Sprintf("%s has been added to your wallet.", FormatAmount(tx.Currency, tx.Amount)),
			Data:    models.Metadata{"transactionId": tx.ID, "paymentIntentId": pi.ID},
		})
		return nil
	case EscrowPaymentMetadata:
		return s.escrow.ConfirmCapture(ctx, pi.ID, m)
	default:
		_, err := s.ledger.MarkCompleted(ctx, s.ledger.db, pi.ID)
		return err
	}
}

// handleFailed only touches the ledger row. A pending escrow whose payment
// failed stays pending; release requires a completed payment.
func (s *WebhookService) handleFailed(ctx context.Context, pi *stripe.PaymentIntent) error {
	_, err := s.ledger.MarkFailed(ctx, s.ledger.db, pi.ID)
	return err
}

func eventKey(id string) string {
	return "webhook:event:" + id
}

func (s *WebhookService) seen(ctx context.Context, eventID string) bool {
	if s.redis == nil || eventID == "" {
		return false
	}
	n, err := s.redis.Exists(ctx, eventKey(eventID)).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID).Msg("webhook dedupe lookup failed")
		return false
	}
	return n > 0
}

func (s *WebhookService) markSeen(ctx context.Context, eventID string) {
	if s.redis == nil || eventID == "" {
		return
	}
	if err := s.redis.Set(ctx, eventKey(eventID), 1, s.opts.DedupeTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID).Msg("failed to record webhook event")
	}
}
