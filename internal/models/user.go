package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleMentee = "mentee"
	RoleMentor = "mentor"
	RoleAdmin  = "admin"
)

type User struct {
	ID               uuid.UUID        `json:"id"`
	Email            string           `json:"email"`
	PasswordHash     string           `json:"-"`
	FullName         string           `json:"full_name"`
	Role             string           `json:"role"`
	HourlyRate       *decimal.Decimal `json:"hourly_rate,omitempty"`
	AvailableBalance decimal.Decimal  `json:"available_balance"`
	PendingBalance   decimal.Decimal  `json:"pending_balance"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
