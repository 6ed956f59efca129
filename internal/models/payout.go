package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PayoutRequestPending    = "pending"
	PayoutRequestProcessing = "processing"
	PayoutRequestCompleted  = "completed"
	PayoutRequestFailed     = "failed"
	PayoutRequestCancelled  = "cancelled"
)

// PayoutRequest is a mentor-initiated withdrawal of released earnings. It is
// distinct from the per-session payout amount held on a Payment.
type PayoutRequest struct {
	ID          uuid.UUID       `json:"id"`
	MentorID    uuid.UUID       `json:"mentor_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	AdminNotes  *string         `json:"admin_notes,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

const (
	PayoutHoldHeld     = "held"
	PayoutHoldReleased = "released"
	PayoutHoldDeferred = "deferred"
)

// PayoutSchedule is a durable release timer: one row per captured payment,
// due 72 hours after session completion. The release worker polls due rows
// rather than keeping timers in memory, so holds survive restarts.
type PayoutSchedule struct {
	ID         uuid.UUID       `json:"id"`
	PaymentID  uuid.UUID       `json:"payment_id"`
	SessionID  uuid.UUID       `json:"session_id"`
	MentorID   uuid.UUID       `json:"mentor_id"`
	Amount     decimal.Decimal `json:"amount"`
	DueAt      time.Time       `json:"due_at"`
	Status     string          `json:"status"`
	ReleasedAt *time.Time      `json:"released_at,omitempty"`
}
