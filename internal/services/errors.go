package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
)

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrNoLandlord       = errors.New("property has no landlord assigned")
	ErrSelfDeal         = errors.New("tenant cannot pay into escrow for their own property")

	// ErrNotAuthorizedOrNotFound covers a wrong tenant, an already settled escrow
	// and a missing escrow alike, so callers cannot probe for existence.
	ErrNotAuthorizedOrNotFound = errors.New("escrow not found or you are not authorized to release it")

	ErrNoPendingTransaction = errors.New("no pending transaction for payment intent")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotParticipant       = errors.New("user is not a participant in this conversation")
	ErrMessageBlocked       = errors.New("message contains too much contact information")
)

// GatewayError is returned when the card processor rejects a request.
type GatewayError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment gateway error: %s", e.Message)
	}
	return fmt.Sprintf("payment gateway error (%s): %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func newGatewayError(err error) *GatewayError {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &GatewayError{
			Code:       string(se.Code),
			Message:    se.Msg,
			StatusCode: se.HTTPStatusCode,
			Err:        err,
		}
	}
	return &GatewayError{Message: err.Error(), Err: err}
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
