package models

import "time"

const (
	NotificationEscrowCreated   = "escrow_created"
	NotificationEscrowPending   = "escrow_pending"
	NotificationPaymentReceived = "payment_received"
	NotificationDepositReceived = "deposit_received"
	NotificationEscrowCancelled = "escrow_cancelled"
	NotificationNewMessage      = "new_message"
)

type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Type      string    `json:"type" db:"type"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Data      Metadata  `json:"data" db:"data"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
