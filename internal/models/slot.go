package models

import (
	"time"

	"github.com/google/uuid"
)

// TimeSlot is a mentor-published bookable window. A booked slot always carries
// the session that claimed it; an open slot never does.
type TimeSlot struct {
	ID          uuid.UUID  `json:"id"`
	MentorID    uuid.UUID  `json:"mentor_id"`
	StartTime   time.Time  `json:"start_time"`
	DurationMin int        `json:"duration_min"`
	IsBooked    bool       `json:"is_booked"`
	SessionID   *uuid.UUID `json:"session_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (s *TimeSlot) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMin) * time.Minute)
}
