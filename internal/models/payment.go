package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentPending  = "pending"
	PaymentCaptured = "captured"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Payment carries the frozen settlement split for one session. Amount fields
// never change after capture except through the single refund mutation.
type Payment struct {
	ID            uuid.UUID        `json:"id"`
	SessionID     uuid.UUID        `json:"session_id"`
	Amount        decimal.Decimal  `json:"amount"`
	Commission    decimal.Decimal  `json:"commission"`
	MentorPayout  decimal.Decimal  `json:"mentor_payout"`
	Provider      string           `json:"provider"`
	Status        string           `json:"status"`
	ProviderTxnID *string          `json:"provider_txn_id,omitempty"`
	RefundAmount  *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundedAt    *time.Time       `json:"refunded_at,omitempty"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
