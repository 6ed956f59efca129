package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arman-d/MentorAppBack/internal/models"
	"github.com/arman-d/MentorAppBack/internal/repository"
)

// DisputeService lets a mentee contest a completed session before its payout
// hold matures. An open dispute keeps the matching hold from releasing; the
// worker re-checks deferred holds every pass, so resolving the dispute is
// enough to let the money through.
type DisputeService struct {
	db           *pgxpool.Pool
	disputeRepo  *repository.DisputeRepository
	sessionRepo  *repository.SessionRepository
	paymentRepo  *repository.PaymentRepository
	scheduleRepo *repository.ScheduleRepository
}

func NewDisputeService(
	db *pgxpool.Pool,
	disputeRepo *repository.DisputeRepository,
	sessionRepo *repository.SessionRepository,
	paymentRepo *repository.PaymentRepository,
	scheduleRepo *repository.ScheduleRepository,
) *DisputeService {
	return &DisputeService{
		db:           db,
		disputeRepo:  disputeRepo,
		sessionRepo:  sessionRepo,
		paymentRepo:  paymentRepo,
		scheduleRepo: scheduleRepo,
	}
}

func (s *DisputeService) Open(ctx context.Context, raisedBy uuid.UUID, sessionID uuid.UUID, reason string) (*models.Dispute, error) {
	if err := validateReason(reason); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)
	txScheduleRepo := repository.NewScheduleRepository(tx)
	txDisputeRepo := repository.NewDisputeRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if session.MenteeID != raisedBy {
		return nil, ErrForbidden
	}
	if session.Status != models.SessionCompleted {
		return nil, ErrConflict
	}

	// Once the hold has been released the money is already in the mentor's
	// available balance; the dispute window is over. The row lock keeps a
	// concurrent release pass from flipping the hold after this check.
	payment, err := txPaymentRepo.GetBySessionID(ctx, sessionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if payment != nil {
		schedule, err := txScheduleRepo.GetByPaymentIDForUpdate(ctx, payment.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if schedule != nil && schedule.Status == models.PayoutHoldReleased {
			return nil, ErrGone
		}
	}

	open, err := txDisputeRepo.HasOpenBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrConflict
	}

	dispute, err := txDisputeRepo.Create(ctx, sessionID, raisedBy, reason)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return dispute, nil
}

// Resolve closes a dispute in the mentee's favor or against it. Either way the
// deferred hold becomes eligible again on the next worker pass; a resolution
// in the mentee's favor is expected to be paired with an admin refund outside
// this flow.
func (s *DisputeService) Resolve(ctx context.Context, role string, disputeID uuid.UUID, outcome string) (*models.Dispute, error) {
	if role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if outcome != models.DisputeResolved && outcome != models.DisputeRejected {
		return nil, ErrValidation
	}

	dispute, err := s.disputeRepo.Resolve(ctx, disputeID, outcome)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return dispute, nil
}

func (s *DisputeService) Get(ctx context.Context, actorID uuid.UUID, role string, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.disputeRepo.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if role != models.RoleAdmin && dispute.RaisedBy != actorID {
		session, err := s.sessionRepo.GetByID(ctx, dispute.SessionID)
		if err != nil {
			return nil, err
		}
		if session.MentorID != actorID {
			return nil, ErrForbidden
		}
	}
	return dispute, nil
}
