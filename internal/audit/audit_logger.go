package audit

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Event types recorded for money movement.
const (
	EventLedgerRecorded  = "LEDGER_RECORDED"
	EventLedgerCompleted = "LEDGER_COMPLETED"
	EventLedgerFailed    = "LEDGER_FAILED"
	EventBalanceCredited = "BALANCE_CREDITED"
	EventEscrowOpened    = "ESCROW_OPENED"
	EventEscrowReleased  = "ESCROW_RELEASED"
	EventEscrowCancelled = "ESCROW_CANCELLED"
	EventError           = "ERROR"
)

type Event struct {
	Timestamp       time.Time
	EventType       string
	TransactionID   string
	EscrowID        string
	UserID          string
	PaymentIntentID string
	Amount          decimal.Decimal
	Status          string
	Details         map[string]string
}

// Logger writes one structured audit line per financial state change.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Str("component", "audit").Logger()}
}

func (a *Logger) LogTransition(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	e := a.log.Info().
		Time("at", event.Timestamp).
		Str("event_type", event.EventType).
		Str("status", event.Status)

	if event.TransactionID != "" {
		e = e.Str("transaction_id", event.TransactionID)
	}
	if event.EscrowID != "" {
		e = e.Str("escrow_id", event.EscrowID)
	}
	if event.UserID != "" {
		e = e.Str("user_id", event.UserID)
	}
	if event.PaymentIntentID != "" {
		e = e.Str("payment_intent_id", event.PaymentIntentID)
	}
	if !event.Amount.IsZero() {
		e = e.Str("amount", event.Amount.String())
	}
	for k, v := range event.Details {
		e = e.Str(k, v)
	}

	e.Msg("AUDIT")
}

func (a *Logger) LogError(operation, reference string, err error) {
	a.log.Error().
		Time("at", time.Now()).
		Str("event_type", EventError).
		Str("operation", operation).
		Str("reference", reference).
		Str("status", "FAILED").
		Err(err).
		Msg("AUDIT")
}

// Trail holds events for work done inside a database transaction. Nothing is
// written until Flush, which callers invoke only after the commit succeeds.
type Trail struct {
	logger *Logger
	events []Event
}

func (a *Logger) NewTrail() *Trail {
	return &Trail{logger: a}
}

func (t *Trail) LogTransition(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	t.events = append(t.events, event)
}

func (t *Trail) Flush() {
	for _, event := range t.events {
		t.logger.LogTransition(event)
	}
	t.events = nil
}
