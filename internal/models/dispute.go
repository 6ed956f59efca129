package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DisputeOpen     = "open"
	DisputeResolved = "resolved"
	DisputeRejected = "rejected"
)

type Dispute struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  uuid.UUID  `json:"session_id"`
	RaisedBy   uuid.UUID  `json:"raised_by"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
