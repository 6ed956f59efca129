package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SessionPending           = "pending"
	SessionConfirmed         = "confirmed"
	SessionInProgress        = "in_progress"
	SessionCompleted         = "completed"
	SessionCancelled         = "cancelled"
	SessionNoShow            = "no_show"
	SessionPendingReschedule = "pending_reschedule"

	SessionTypeOneOnOne = "one_on_one"
	SessionTypeGroup    = "group"
)

type Session struct {
	ID                  uuid.UUID       `json:"id"`
	MenteeID            uuid.UUID       `json:"mentee_id"`
	MentorID            uuid.UUID       `json:"mentor_id"`
	SlotID              uuid.UUID       `json:"slot_id"`
	SessionType         string          `json:"session_type"`
	DurationMin         int             `json:"duration_min"`
	ScheduledStart      time.Time       `json:"scheduled_start"`
	ScheduledEnd        time.Time       `json:"scheduled_end"`
	Status              string          `json:"status"`
	Price               decimal.Decimal `json:"price"`
	MeetingLink         *string         `json:"meeting_link,omitempty"`
	PaymentID           *uuid.UUID      `json:"payment_id,omitempty"`
	RescheduleRequestID *uuid.UUID      `json:"reschedule_request_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
}

// IsParty reports whether the given user is the mentee or mentor of the session.
func (s *Session) IsParty(userID uuid.UUID) bool {
	return s.MenteeID == userID || s.MentorID == userID
}

// Counterparty returns the other side of the session relative to userID.
func (s *Session) Counterparty(userID uuid.UUID) uuid.UUID {
	if s.MenteeID == userID {
		return s.MentorID
	}
	return s.MenteeID
}

type SessionDetail struct {
	Session
	Payment *Payment `json:"payment,omitempty"`
}
