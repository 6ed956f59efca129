package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/arman-d/MentorAppBack/internal/models"
)

type CreatePaymentInput struct {
	SessionID    uuid.UUID
	Amount       decimal.Decimal
	Commission   decimal.Decimal
	MentorPayout decimal.Decimal
	Provider     string
	IntentID     *string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, session_id, amount, commission, mentor_payout, provider, status,
		provider_txn_id, refund_amount, refunded_at, paid_at, created_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var payment models.Payment
	err := row.Scan(
		&payment.ID,
		&payment.SessionID,
		&payment.Amount,
		&payment.Commission,
		&payment.MentorPayout,
		&payment.Provider,
		&payment.Status,
		&payment.ProviderTxnID,
		&payment.RefundAmount,
		&payment.RefundedAt,
		&payment.PaidAt,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (session_id, amount, commission, mentor_payout, provider, status, provider_txn_id)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(
		ctx,
		query,
		input.SessionID,
		input.Amount,
		input.Commission,
		input.MentorPayout,
		input.Provider,
		input.IntentID,
	))
}

func (r *PaymentRepository) GetByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(r.db.QueryRow(ctx, query, paymentID))
}

func (r *PaymentRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = $1`
	return scanPayment(r.db.QueryRow(ctx, query, sessionID))
}

func (r *PaymentRepository) GetBySessionIDForUpdate(ctx context.Context, sessionID uuid.UUID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = $1 FOR UPDATE`
	return scanPayment(r.db.QueryRow(ctx, query, sessionID))
}

func (r *PaymentRepository) ListBySessionIDs(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]models.Payment, error) {
	payments := make(map[uuid.UUID]models.Payment, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return payments, nil
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = ANY($1)`
	rows, err := r.db.Query(ctx, query, sessionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments[payment.SessionID] = *payment
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// Capture freezes the split and records the provider transaction. The status
// guard makes retried provider callbacks a no-op at the row level.
func (r *PaymentRepository) Capture(ctx context.Context, paymentID uuid.UUID, providerTxnID string) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = 'captured', provider_txn_id = $2, paid_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(ctx, query, paymentID, providerTxnID))
}

// MarkRefunded applies the single legal amount mutation after capture.
func (r *PaymentRepository) MarkRefunded(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = 'refunded', refund_amount = $2, refunded_at = NOW()
		WHERE id = $1 AND status = 'captured'
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(ctx, query, paymentID, amount))
}
