package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arman-d/MentorAppBack/internal/models"
)

type DisputeRepository struct {
	db DBTX
}

func NewDisputeRepository(db DBTX) *DisputeRepository {
	return &DisputeRepository{db: db}
}

const disputeColumns = `id, session_id, raised_by, reason, status, created_at, resolved_at`

func scanDispute(row pgx.Row) (*models.Dispute, error) {
	var dispute models.Dispute
	err := row.Scan(
		&dispute.ID,
		&dispute.SessionID,
		&dispute.RaisedBy,
		&dispute.Reason,
		&dispute.Status,
		&dispute.CreatedAt,
		&dispute.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *DisputeRepository) Create(ctx context.Context, sessionID, raisedBy uuid.UUID, reason string) (*models.Dispute, error) {
	query := `
		INSERT INTO disputes (session_id, raised_by, reason, status)
		VALUES ($1, $2, $3, 'open')
		RETURNING ` + disputeColumns
	return scanDispute(r.db.QueryRow(ctx, query, sessionID, raisedBy, reason))
}

func (r *DisputeRepository) GetByID(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	return scanDispute(r.db.QueryRow(ctx, query, disputeID))
}

// HasOpenBySessionID is the question the release worker asks before moving
// money: an open dispute blocks the payout.
func (r *DisputeRepository) HasOpenBySessionID(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM disputes WHERE session_id = $1 AND status = 'open')`
	var hasOpen bool
	if err := r.db.QueryRow(ctx, query, sessionID).Scan(&hasOpen); err != nil {
		return false, err
	}
	return hasOpen, nil
}

func (r *DisputeRepository) Resolve(ctx context.Context, disputeID uuid.UUID, status string) (*models.Dispute, error) {
	query := `
		UPDATE disputes
		SET status = $2, resolved_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING ` + disputeColumns
	return scanDispute(r.db.QueryRow(ctx, query, disputeID, status))
}
