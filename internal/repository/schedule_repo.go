package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/arman-d/MentorAppBack/internal/models"
)

type CreateScheduleInput struct {
	PaymentID uuid.UUID
	SessionID uuid.UUID
	MentorID  uuid.UUID
	Amount    decimal.Decimal
	DueAt     time.Time
}

// ScheduleRepository persists payout-hold timers as due-time rows. The release
// worker polls these instead of holding in-process timers.
type ScheduleRepository struct {
	db DBTX
}

func NewScheduleRepository(db DBTX) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, payment_id, session_id, mentor_id, amount, due_at, status, released_at`

func scanSchedule(row pgx.Row) (*models.PayoutSchedule, error) {
	var schedule models.PayoutSchedule
	err := row.Scan(
		&schedule.ID,
		&schedule.PaymentID,
		&schedule.SessionID,
		&schedule.MentorID,
		&schedule.Amount,
		&schedule.DueAt,
		&schedule.Status,
		&schedule.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *ScheduleRepository) Create(ctx context.Context, input CreateScheduleInput) (*models.PayoutSchedule, error) {
	query := `
		INSERT INTO payout_schedules (payment_id, session_id, mentor_id, amount, due_at, status)
		VALUES ($1, $2, $3, $4, $5, 'held')
		RETURNING ` + scheduleColumns
	return scanSchedule(r.db.QueryRow(
		ctx,
		query,
		input.PaymentID,
		input.SessionID,
		input.MentorID,
		input.Amount,
		input.DueAt.UTC(),
	))
}

func (r *ScheduleRepository) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.PayoutSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM payout_schedules WHERE payment_id = $1`
	return scanSchedule(r.db.QueryRow(ctx, query, paymentID))
}

// GetByPaymentIDForUpdate locks the hold row so callers deciding on its status
// serialize against the release worker's row locks.
func (r *ScheduleRepository) GetByPaymentIDForUpdate(ctx context.Context, paymentID uuid.UUID) (*models.PayoutSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM payout_schedules WHERE payment_id = $1 FOR UPDATE`
	return scanSchedule(r.db.QueryRow(ctx, query, paymentID))
}

// ListDue returns held and deferred rows whose due time has passed, locked for
// this worker so a second worker instance skips them.
func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.PayoutSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM payout_schedules
		WHERE status IN ('held', 'deferred') AND due_at <= $1
		ORDER BY due_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.Query(ctx, query, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]models.PayoutSchedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *ScheduleRepository) MarkReleased(ctx context.Context, scheduleID uuid.UUID) (*models.PayoutSchedule, error) {
	query := `
		UPDATE payout_schedules
		SET status = 'released', released_at = NOW()
		WHERE id = $1 AND status IN ('held', 'deferred')
		RETURNING ` + scheduleColumns
	return scanSchedule(r.db.QueryRow(ctx, query, scheduleID))
}

func (r *ScheduleRepository) MarkDeferred(ctx context.Context, scheduleID uuid.UUID) error {
	query := `
		UPDATE payout_schedules
		SET status = 'deferred'
		WHERE id = $1 AND status = 'held'
	`
	_, err := r.db.Exec(ctx, query, scheduleID)
	return err
}

func (r *ScheduleRepository) Cancel(ctx context.Context, paymentID uuid.UUID) error {
	query := `DELETE FROM payout_schedules WHERE payment_id = $1 AND status IN ('held', 'deferred')`
	_, err := r.db.Exec(ctx, query, paymentID)
	return err
}
