package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/arman-d/MentorAppBack/internal/models"
)

type CreateSessionInput struct {
	MenteeID       uuid.UUID
	MentorID       uuid.UUID
	SlotID         uuid.UUID
	SessionType    string
	DurationMin    int
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	Price          decimal.Decimal
}

type SessionListFilter struct {
	ActorID   uuid.UUID
	Role      string
	Status    string
	Timeframe string
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, mentee_id, mentor_id, slot_id, session_type, duration_min,
		scheduled_start, scheduled_end, status, price, meeting_link, payment_id,
		reschedule_request_id, created_at, updated_at, completed_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.MenteeID,
		&session.MentorID,
		&session.SlotID,
		&session.SessionType,
		&session.DurationMin,
		&session.ScheduledStart,
		&session.ScheduledEnd,
		&session.Status,
		&session.Price,
		&session.MeetingLink,
		&session.PaymentID,
		&session.RescheduleRequestID,
		&session.CreatedAt,
		&session.UpdatedAt,
		&session.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	query := `
		INSERT INTO sessions (mentee_id, mentor_id, slot_id, session_type, duration_min,
			scheduled_start, scheduled_end, status, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(
		ctx,
		query,
		input.MenteeID,
		input.MentorID,
		input.SlotID,
		input.SessionType,
		input.DurationMin,
		input.ScheduledStart.UTC(),
		input.ScheduledEnd.UTC(),
		input.Price,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) List(ctx context.Context, filter SessionListFilter) ([]models.Session, error) {
	actorColumn := "mentee_id"
	if filter.Role == models.RoleMentor {
		actorColumn = "mentor_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "scheduled_end > NOW()")
	case "past":
		whereParts = append(whereParts, "scheduled_end <= NOW()")
	}

	query := fmt.Sprintf(`
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE %s
		ORDER BY scheduled_start ASC, id ASC
	`, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateStatusIfCurrent is the optimistic transition primitive: the update only
// lands when the session is still in the expected state, so two concurrent
// mutations can never both succeed.
func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID uuid.UUID,
	currentStatus string,
	nextStatus string,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus, nextStatus))
}

// Confirm moves a pending session to confirmed and assigns its meeting link in
// one statement so a retried payment callback cannot regenerate the link.
func (r *SessionRepository) Confirm(ctx context.Context, sessionID uuid.UUID, meetingLink string, paymentID uuid.UUID) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'confirmed', meeting_link = $2, payment_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, meetingLink, paymentID))
}

func (r *SessionRepository) CompleteIfCurrent(ctx context.Context, sessionID uuid.UUID, currentStatus string) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus))
}

func (r *SessionRepository) UpdateSchedule(ctx context.Context, sessionID uuid.UUID, start, end time.Time) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET scheduled_start = $2, scheduled_end = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, start.UTC(), end.UTC()))
}

func (r *SessionRepository) SetRescheduleRequest(ctx context.Context, sessionID uuid.UUID, requestID *uuid.UUID) error {
	query := `
		UPDATE sessions
		SET reschedule_request_id = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, sessionID, requestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
