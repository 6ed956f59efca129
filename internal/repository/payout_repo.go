package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/arman-d/MentorAppBack/internal/models"
)

type PayoutRepository struct {
	db DBTX
}

func NewPayoutRepository(db DBTX) *PayoutRepository {
	return &PayoutRepository{db: db}
}

const payoutColumns = `id, mentor_id, amount, status, admin_notes, requested_at, processed_at, completed_at`

func scanPayout(row pgx.Row) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	err := row.Scan(
		&payout.ID,
		&payout.MentorID,
		&payout.Amount,
		&payout.Status,
		&payout.AdminNotes,
		&payout.RequestedAt,
		&payout.ProcessedAt,
		&payout.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) Create(ctx context.Context, mentorID uuid.UUID, amount decimal.Decimal) (*models.PayoutRequest, error) {
	query := `
		INSERT INTO payout_requests (mentor_id, amount, status, requested_at)
		VALUES ($1, $2, 'pending', NOW())
		RETURNING ` + payoutColumns
	return scanPayout(r.db.QueryRow(ctx, query, mentorID, amount))
}

func (r *PayoutRepository) GetByID(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`
	return scanPayout(r.db.QueryRow(ctx, query, payoutID))
}

func (r *PayoutRepository) GetByIDForUpdate(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1 FOR UPDATE`
	return scanPayout(r.db.QueryRow(ctx, query, payoutID))
}

func (r *PayoutRepository) ListByMentor(ctx context.Context, mentorID uuid.UUID) ([]models.PayoutRequest, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payout_requests
		WHERE mentor_id = $1
		ORDER BY requested_at DESC
	`
	rows, err := r.db.Query(ctx, query, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payouts := make([]models.PayoutRequest, 0)
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *payout)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *PayoutRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	payoutID uuid.UUID,
	currentStatus string,
	nextStatus string,
	adminNotes *string,
) (*models.PayoutRequest, error) {
	query := `
		UPDATE payout_requests
		SET status = $3,
		    admin_notes = COALESCE($4, admin_notes),
		    processed_at = CASE WHEN $3 = 'processing' THEN NOW() ELSE processed_at END,
		    completed_at = CASE WHEN $3 IN ('completed', 'failed', 'cancelled') THEN NOW() ELSE completed_at END
		WHERE id = $1 AND status = $2
		RETURNING ` + payoutColumns
	return scanPayout(r.db.QueryRow(ctx, query, payoutID, currentStatus, nextStatus, adminNotes))
}
