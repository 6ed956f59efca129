package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arman-d/MentorAppBack/internal/models"
)

type CreateSlotInput struct {
	MentorID    uuid.UUID
	StartTime   time.Time
	DurationMin int
}

type SlotRepository struct {
	db DBTX
}

func NewSlotRepository(db DBTX) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, mentor_id, start_time, duration_min, is_booked, session_id, created_at`

func scanSlot(row pgx.Row) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	err := row.Scan(
		&slot.ID,
		&slot.MentorID,
		&slot.StartTime,
		&slot.DurationMin,
		&slot.IsBooked,
		&slot.SessionID,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *SlotRepository) Create(ctx context.Context, input CreateSlotInput) (*models.TimeSlot, error) {
	query := `
		INSERT INTO time_slots (mentor_id, start_time, duration_min)
		VALUES ($1, $2, $3)
		RETURNING ` + slotColumns
	return scanSlot(r.db.QueryRow(ctx, query, input.MentorID, input.StartTime.UTC(), input.DurationMin))
}

func (r *SlotRepository) GetByID(ctx context.Context, slotID uuid.UUID) (*models.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = $1`
	return scanSlot(r.db.QueryRow(ctx, query, slotID))
}

func (r *SlotRepository) ListOpenByMentor(ctx context.Context, mentorID uuid.UUID) ([]models.TimeSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM time_slots
		WHERE mentor_id = $1 AND is_booked = FALSE AND start_time > NOW()
		ORDER BY start_time ASC
	`
	rows, err := r.db.Query(ctx, query, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]models.TimeSlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

// Claim flips the booking flag with a single compare-and-set so that at most
// one session ever binds to a slot. Returns pgx.ErrNoRows when the slot is
// missing or the claim was lost; callers disambiguate with GetByID.
func (r *SlotRepository) Claim(ctx context.Context, slotID, sessionID uuid.UUID) (*models.TimeSlot, error) {
	query := `
		UPDATE time_slots
		SET is_booked = TRUE, session_id = $2
		WHERE id = $1 AND is_booked = FALSE
		RETURNING ` + slotColumns
	return scanSlot(r.db.QueryRow(ctx, query, slotID, sessionID))
}

// Release clears a claim. Idempotent: releasing an already-open slot is a no-op.
func (r *SlotRepository) Release(ctx context.Context, slotID uuid.UUID) error {
	query := `
		UPDATE time_slots
		SET is_booked = FALSE, session_id = NULL
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, slotID)
	return err
}

// Delete removes an unbooked slot. Returns false when the slot was booked or absent.
func (r *SlotRepository) Delete(ctx context.Context, slotID uuid.UUID) (bool, error) {
	query := `DELETE FROM time_slots WHERE id = $1 AND is_booked = FALSE`
	tag, err := r.db.Exec(ctx, query, slotID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
