package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/arman-d/MentorAppBack/internal/models"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository can
// run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, full_name, role, hourly_rate, available_balance, pending_balance, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Role,
		&user.HourlyRate,
		&user.AvailableBalance,
		&user.PendingBalance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, full_name, role, hourly_rate)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, available_balance, pending_balance, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, user.Email, user.PasswordHash, user.FullName, user.Role, user.HourlyRate).
		Scan(&user.ID, &user.AvailableBalance, &user.PendingBalance, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// AddPendingBalance credits payout held from a completed session.
func (r *UserRepository) AddPendingBalance(ctx context.Context, mentorID uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE users
		SET pending_balance = pending_balance + $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, mentorID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MovePendingToAvailable releases a held payout into withdrawable funds.
func (r *UserRepository) MovePendingToAvailable(ctx context.Context, mentorID uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE users
		SET pending_balance = pending_balance - $2,
		    available_balance = available_balance + $2,
		    updated_at = NOW()
		WHERE id = $1 AND pending_balance >= $2
	`
	tag, err := r.db.Exec(ctx, query, mentorID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DebitAvailable withdraws from the released balance. The balance guard is in
// the WHERE clause so a concurrent withdrawal can never overdraw.
func (r *UserRepository) DebitAvailable(ctx context.Context, mentorID uuid.UUID, amount decimal.Decimal) (bool, error) {
	query := `
		UPDATE users
		SET available_balance = available_balance - $2, updated_at = NOW()
		WHERE id = $1 AND available_balance >= $2
	`
	tag, err := r.db.Exec(ctx, query, mentorID, amount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UserRepository) CreditAvailable(ctx context.Context, mentorID uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE users
		SET available_balance = available_balance + $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, mentorID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
