package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arman-d/MentorAppBack/internal/models"
)

type CreateRescheduleInput struct {
	SessionID     uuid.UUID
	RequestedBy   uuid.UUID
	RequesterRole string
	ProposedStart time.Time
	Reason        string
}

type RescheduleRepository struct {
	db DBTX
}

func NewRescheduleRepository(db DBTX) *RescheduleRepository {
	return &RescheduleRepository{db: db}
}

const rescheduleColumns = `id, session_id, requested_by, requester_role, proposed_start, reason, status, created_at, resolved_at`

func scanReschedule(row pgx.Row) (*models.RescheduleRequest, error) {
	var request models.RescheduleRequest
	err := row.Scan(
		&request.ID,
		&request.SessionID,
		&request.RequestedBy,
		&request.RequesterRole,
		&request.ProposedStart,
		&request.Reason,
		&request.Status,
		&request.CreatedAt,
		&request.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *RescheduleRepository) Create(ctx context.Context, input CreateRescheduleInput) (*models.RescheduleRequest, error) {
	query := `
		INSERT INTO reschedule_requests (session_id, requested_by, requester_role, proposed_start, reason, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING ` + rescheduleColumns
	return scanReschedule(r.db.QueryRow(
		ctx,
		query,
		input.SessionID,
		input.RequestedBy,
		input.RequesterRole,
		input.ProposedStart.UTC(),
		input.Reason,
	))
}

func (r *RescheduleRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*models.RescheduleRequest, error) {
	query := `SELECT ` + rescheduleColumns + ` FROM reschedule_requests WHERE id = $1`
	return scanReschedule(r.db.QueryRow(ctx, query, requestID))
}

func (r *RescheduleRepository) GetByIDForUpdate(ctx context.Context, requestID uuid.UUID) (*models.RescheduleRequest, error) {
	query := `SELECT ` + rescheduleColumns + ` FROM reschedule_requests WHERE id = $1 FOR UPDATE`
	return scanReschedule(r.db.QueryRow(ctx, query, requestID))
}

func (r *RescheduleRepository) GetPendingBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.RescheduleRequest, error) {
	query := `SELECT ` + rescheduleColumns + ` FROM reschedule_requests WHERE session_id = $1 AND status = 'pending'`
	return scanReschedule(r.db.QueryRow(ctx, query, sessionID))
}

// Resolve marks a pending request approved or rejected. The status guard keeps
// a request from being resolved twice.
func (r *RescheduleRepository) Resolve(ctx context.Context, requestID uuid.UUID, status string) (*models.RescheduleRequest, error) {
	query := `
		UPDATE reschedule_requests
		SET status = $2, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + rescheduleColumns
	return scanReschedule(r.db.QueryRow(ctx, query, requestID, status))
}
