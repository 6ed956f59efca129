package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReschedulePending  = "pending"
	RescheduleApproved = "approved"
	RescheduleRejected = "rejected"
)

type RescheduleRequest struct {
	ID            uuid.UUID  `json:"id"`
	SessionID     uuid.UUID  `json:"session_id"`
	RequestedBy   uuid.UUID  `json:"requested_by"`
	RequesterRole string     `json:"requester_role"`
	ProposedStart time.Time  `json:"proposed_start"`
	Reason        string     `json:"reason"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}
