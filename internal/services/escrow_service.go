package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rentease/backend/internal/audit"
	"github.com/rentease/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var escrowColumnNames = []string{
	"id", "property_id", "tenant_id", "landlord_id", "amount", "landlord_amount", "status",
	"stripe_payment_intent_id", "transaction_id", "release_notes", "created_at", "updated_at", "completed_at",
}

var escrowColumns = columnList("", escrowColumnNames)

var hundred = decimal.NewFromInt(100)

// LandlordShare is the part of amount paid out to the landlord after the
// platform fee, rounded to two decimal places.
func LandlordShare(amount, platformFeePercent decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Sub(platformFeePercent.Div(hundred))).Round(2)
}

type EscrowOptions struct {
	Currency           string
	PlatformFeePercent decimal.Decimal
}

// OpenEscrowRequest is what a tenant submits to pay rent into escrow.
type OpenEscrowRequest struct {
	PropertyID    string
	TenantID      string
	Amount        decimal.Decimal
	CustomerEmail string
	// IdempotencyKey is forwarded to the processor so a retried request
	// does not open a second intent.
	IdempotencyKey string
}

// OpenEscrowResult is returned to the client to complete card entry.
type OpenEscrowResult struct {
	ClientSecret  string          `json:"clientSecret"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	EscrowID      string          `json:"escrowId"`
}

// EscrowService opens, confirms, releases and cancels rent escrows.
type EscrowService struct {
	db       *sql.DB
	gateway  PaymentGateway
	ledger   *LedgerService
	notifier Notifier
	audit    *audit.Logger
	log      zerolog.Logger
	opts     EscrowOptions
}

func NewEscrowService(db *sql.DB, gateway PaymentGateway, ledger *LedgerService, notifier Notifier,
	auditLog *audit.Logger, log zerolog.Logger, opts EscrowOptions) *EscrowService {
	return &EscrowService{
		db:       db,
		gateway:  gateway,
		ledger:   ledger,
		notifier: notifier,
		audit:    auditLog,
		log:      log.With().Str("component", "escrow").Logger(),
		opts:     opts,
	}
}

// Open resolves the landlord, opens a payment intent and records the pending
// ledger row and escrow together. Nothing is written if any step fails.
func (s *EscrowService) Open(ctx context.Context, req OpenEscrowRequest) (*OpenEscrowResult, error) {
	property, err := s.getProperty(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.LandlordID == nil || *property.LandlordID == "" {
		return nil, ErrNoLandlord
	}
	landlordID := *property.LandlordID
	if landlordID == req.TenantID {
		return nil, ErrSelfDeal
	}

	metadata := map[string]string{
		"type":       PaymentTypeEscrow,
		"propertyId": req.PropertyID,
		"tenantId":   req.TenantID,
		"landlordId": landlordID,
	}
	if req.CustomerEmail != "" {
		metadata["customerEmail"] = req.CustomerEmail
	}

	intent, err := s.gateway.CreateIntent(ctx, IntentRequest{
		Amount:         req.Amount,
		Currency:       s.opts.Currency,
		Metadata:       metadata,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		s.audit.LogError("open_escrow", req.PropertyID, err)
		return nil, err
	}

	dbTx, err := s.ledger.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback()

	propertyID := req.PropertyID
	tx, err := s.ledger.Record(ctx, dbTx, RecordParams{
		UserID:          req.TenantID,
		Type:            models.TransactionTypeDeposit,
		Amount:          intent.Amount,
		Currency:        s.opts.Currency,
		Description:     fmt.Sprintf("Escrow payment for property #%s", req.PropertyID),
		PaymentIntentID: intent.ID,
		PropertyID:      &propertyID,
	})
	if err != nil {
		return nil, err
	}

	landlordAmount := LandlordShare(intent.Amount, s.opts.PlatformFeePercent)
	var escrowID string
	err = dbTx.QueryRowContext(ctx, `
		INSERT INTO escrow_transactions (property_id, tenant_id, landlord_id, amount, landlord_amount, status, stripe_payment_intent_id, transaction_id)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7)
		RETURNING id`,
		req.PropertyID, req.TenantID, landlordID, intent.Amount, landlordAmount, intent.ID, tx.ID,
	).Scan(&escrowID)
	if err != nil {
		return nil, fmt.Errorf("create escrow: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogTransition(audit.Event{
		EventType:       audit.EventEscrowOpened,
		TransactionID:   tx.ID,
		EscrowID:        escrowID,
		UserID:          req.TenantID,
		PaymentIntentID: intent.ID,
		Amount:          intent.Amount,
		Status:          string(models.EscrowStatusPending),
		Details:         map[string]string{"landlord_id": landlordID, "landlord_amount": landlordAmount.String()},
	})

	return &OpenEscrowResult{
		ClientSecret:  intent.ClientSecret,
		Amount:        intent.Amount,
		TransactionID: tx.ID,
		EscrowID:      escrowID,
	}, nil
}

// ConfirmCapture completes the escrow's ledger row once the processor reports
// the charge captured, then tells both parties.
func (s *EscrowService) ConfirmCapture(ctx context.Context, paymentIntentID string, meta EscrowPaymentMetadata) error {
	tx, err := s.ledger.MarkCompleted(ctx, s.db, paymentIntentID)
	if err != nil {
		return err
	}

	amount := FormatAmount(tx.Currency, tx.Amount)
	data := models.Metadata{
		"propertyId":      meta.PropertyID,
		"transactionId":   tx.ID,
		"paymentIntentId": paymentIntentID,
	}

	s.notifier.Emit(ctx, models.Notification{
		UserID:  meta.TenantID,
		Type:    models.NotificationEscrowCreated,
		Title:   "Escrow Payment Successful",
		Message: fmt.Sprintf("Your payment of %s is now held in escrow. Release it once you have moved in.", amount),
		Data:    data,
	})
	s.notifier.Emit(ctx, models.Notification{
		UserID:  meta.LandlordID,
		Type:    models.NotificationEscrowPending,
		Title:   "Payment in Escrow",
		Message: fmt.Sprintf("A tenant has paid %s into escrow for your property. It will be released to you once they confirm move-in.", amount),
		Data:    data,
	})
	return nil
}

// Release pays a captured escrow out to the landlord. Only the escrow's tenant
// can release it, only once, and only after its ledger row has completed.
func (s *EscrowService) Release(ctx context.Context, escrowID, userID string, notes *string) (*models.EscrowTransaction, error) {
	dbTx, err := s.ledger.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback()

	row := dbTx.QueryRowContext(ctx, `
		UPDATE escrow_transactions e
		SET status = 'completed', completed_at = NOW(), updated_at = NOW(), release_notes = $3
		FROM transactions t
		WHERE e.id = $1 AND e.tenant_id = $2 AND e.status = 'pending'
			AND t.id = e.transaction_id AND t.status = 'completed'
		RETURNING `+columnList("e.", escrowColumnNames),
		escrowID, userID, notes)

	escrow, err := scanEscrow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotAuthorizedOrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("release escrow: %w", err)
	}

	if err := s.ledger.CreditBalance(ctx, dbTx, escrow.LandlordID, escrow.LandlordAmount); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogTransition(audit.Event{
		EventType:       audit.EventEscrowReleased,
		TransactionID:   escrow.TransactionID,
		EscrowID:        escrow.ID,
		UserID:          userID,
		PaymentIntentID: escrow.PaymentIntentID,
		Amount:          escrow.Amount,
		Status:          string(escrow.Status),
		Details:         map[string]string{"landlord_id": escrow.LandlordID, "landlord_amount": escrow.LandlordAmount.String()},
	})

	s.notifier.Emit(ctx, models.Notification{
		UserID:  escrow.LandlordID,
		Type:    models.NotificationPaymentReceived,
		Title:   "Payment Received",
		Message: fmt.Sprintf("%s has been released from escrow to your wallet.", FormatAmount(s.opts.Currency, escrow.LandlordAmount)),
		Data: models.Metadata{
			"escrowId":   escrow.ID,
			"propertyId": escrow.PropertyID,
			"amount":     escrow.LandlordAmount.String(),
		},
	})

	return escrow, nil
}

// Cancel voids a pending escrow. Captured funds are not refunded here.
func (s *EscrowService) Cancel(ctx context.Context, escrowID string, notes *string) (*models.EscrowTransaction, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE escrow_transactions
		SET status = 'cancelled', updated_at = NOW(), release_notes = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING `+escrowColumns,
		escrowID, notes)

	escrow, err := scanEscrow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotAuthorizedOrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cancel escrow: %w", err)
	}

	s.audit.LogTransition(audit.Event{
		EventType:       audit.EventEscrowCancelled,
		TransactionID:   escrow.TransactionID,
		EscrowID:        escrow.ID,
		UserID:          escrow.TenantID,
		PaymentIntentID: escrow.PaymentIntentID,
		Amount:          escrow.Amount,
		Status:          string(escrow.Status),
	})

	s.notifier.Emit(ctx, models.Notification{
		UserID:  escrow.TenantID,
		Type:    models.NotificationEscrowCancelled,
		Title:   "Escrow Cancelled",
		Message: fmt.Sprintf("Your escrow of %s has been cancelled.", FormatAmount(s.opts.Currency, escrow.Amount)),
		Data:    models.Metadata{"escrowId": escrow.ID, "propertyId": escrow.PropertyID},
	})

	return escrow, nil
}

// Get returns the escrow if userID is its tenant or landlord.
func (s *EscrowService) Get(ctx context.Context, escrowID, userID string) (*models.EscrowTransaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+escrowColumns+`
		FROM escrow_transactions
		WHERE id = $1 AND (tenant_id = $2 OR landlord_id = $2)`,
		escrowID, userID)

	escrow, err := scanEscrow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotAuthorizedOrNotFound
	}
	return escrow, err
}

func (s *EscrowService) ListForUser(ctx context.Context, userID string) ([]models.EscrowTransaction, error) {
	return s.list(ctx, `
		SELECT `+escrowColumns+`
		FROM escrow_transactions
		WHERE tenant_id = $1 OR landlord_id = $1
		ORDER BY created_at DESC`, userID)
}

// ListDangling returns pending escrows whose payment failed. They can never
// be released and are left for reconciliation.
func (s *EscrowService) ListDangling(ctx context.Context) ([]models.EscrowTransaction, error) {
	return s.list(ctx, `
		SELECT `+columnList("e.", escrowColumnNames)+`
		FROM escrow_transactions e
		JOIN transactions t ON t.id = e.transaction_id
		WHERE e.status = 'pending' AND t.status = 'failed'
		ORDER BY e.created_at`)
}

func (s *EscrowService) list(ctx context.Context, query string, args ...any) ([]models.EscrowTransaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	escrows := []models.EscrowTransaction{}
	for rows.Next() {
		escrow, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		escrows = append(escrows, *escrow)
	}
	return escrows, rows.Err()
}

func (s *EscrowService) getProperty(ctx context.Context, propertyID string) (*models.Property, error) {
	var p models.Property
	var landlordID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, landlord_id, title FROM properties WHERE id = $1`, propertyID,
	).Scan(&p.ID, &landlordID, &p.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}
	if landlordID.Valid {
		p.LandlordID = &landlordID.String
	}
	return &p, nil
}

func scanEscrow(row rowScanner) (*models.EscrowTransaction, error) {
	var e models.EscrowTransaction
	var status string
	var notes sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&e.ID, &e.PropertyID, &e.TenantID, &e.LandlordID, &e.Amount, &e.LandlordAmount, &status,
		&e.PaymentIntentID, &e.TransactionID, &notes, &e.CreatedAt, &e.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	e.Status = models.EscrowStatus(status)
	if notes.Valid {
		e.ReleaseNotes = &notes.String
	}
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Time
	}
	return &e, nil
}

func columnList(prefix string, columns []string) string {
	qualified := make([]string, len(columns))
	for i, c := range columns {
		qualified[i] = prefix + c
	}
	return strings.Join(qualified, ", ")
}
