package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arman-d/MentorAppBack/internal/events"
	"github.com/arman-d/MentorAppBack/internal/metrics"
	"github.com/arman-d/MentorAppBack/internal/models"
	"github.com/arman-d/MentorAppBack/internal/repository"
)

// releaseBatchSize bounds one polling pass so a backlog drains in chunks
// instead of one giant transaction.
const releaseBatchSize = 100

// SettlementService moves mentor earnings through the hold pipeline and
// handles withdrawal requests against the available balance.
type SettlementService struct {
	db           *pgxpool.Pool
	scheduleRepo *repository.ScheduleRepository
	userRepo     *repository.UserRepository
	payoutRepo   *repository.PayoutRepository
	disputeRepo  *repository.DisputeRepository
	sink         events.Sink
	minPayout    decimal.Decimal
	log          *slog.Logger
}

func NewSettlementService(
	db *pgxpool.Pool,
	scheduleRepo *repository.ScheduleRepository,
	userRepo *repository.UserRepository,
	payoutRepo *repository.PayoutRepository,
	disputeRepo *repository.DisputeRepository,
	sink events.Sink,
	minPayout decimal.Decimal,
	log *slog.Logger,
) *SettlementService {
	return &SettlementService{
		db:           db,
		scheduleRepo: scheduleRepo,
		userRepo:     userRepo,
		payoutRepo:   payoutRepo,
		disputeRepo:  disputeRepo,
		sink:         sink,
		minPayout:    minPayout,
		log:          log,
	}
}

// ReleaseDuePayouts processes one batch of matured holds. Holds on disputed
// sessions are deferred and stay in the due set until the dispute resolves.
// Returns counts of released and deferred holds.
func (s *SettlementService) ReleaseDuePayouts(ctx context.Context) (released, deferred int, err error) {
	start := time.Now()
	defer func() {
		metrics.ReleaseBatchDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txScheduleRepo := repository.NewScheduleRepository(tx)
	txUserRepo := repository.NewUserRepository(tx)
	txDisputeRepo := repository.NewDisputeRepository(tx)

	due, err := txScheduleRepo.ListDue(ctx, time.Now().UTC(), releaseBatchSize)
	if err != nil {
		return 0, 0, err
	}

	var releasedHolds []models.PayoutSchedule

	for _, schedule := range due {
		disputed, err := txDisputeRepo.HasOpenBySessionID(ctx, schedule.SessionID)
		if err != nil {
			return 0, 0, err
		}
		if disputed {
			if schedule.Status == models.PayoutHoldHeld {
				if err := txScheduleRepo.MarkDeferred(ctx, schedule.ID); err != nil {
					return 0, 0, err
				}
				metrics.PayoutsDeferred.Inc()
			}
			deferred++
			continue
		}

		if err := txUserRepo.MovePendingToAvailable(ctx, schedule.MentorID, schedule.Amount); err != nil {
			return 0, 0, err
		}
		if _, err := txScheduleRepo.MarkReleased(ctx, schedule.ID); err != nil {
			return 0, 0, err
		}
		metrics.PayoutsReleased.Inc()
		released++
		releasedHolds = append(releasedHolds, schedule)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}

	for _, hold := range releasedHolds {
		s.sink.Publish(ctx, events.Event{
			Type:      events.PayoutReleased,
			SessionID: hold.SessionID,
			MentorID:  hold.MentorID,
			MenteeID:  uuid.Nil,
			Payload: map[string]any{
				"amount": hold.Amount.StringFixed(2),
			},
			OccurredAt: time.Now().UTC(),
		})
	}

	if released > 0 || deferred > 0 {
		s.log.Info("payout release batch",
			slog.Int("released", released),
			slog.Int("deferred", deferred),
		)
	}
	return released, deferred, nil
}

// RequestWithdrawal debits the mentor's available balance and opens a payout
// request for operators to process.
func (s *SettlementService) RequestWithdrawal(ctx context.Context, mentorID uuid.UUID, amount decimal.Decimal) (*models.PayoutRequest, error) {
	if !amount.IsPositive() {
		return nil, ErrValidation
	}
	if amount.LessThan(s.minPayout) {
		return nil, ErrBelowMinimum
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txUserRepo := repository.NewUserRepository(tx)
	txPayoutRepo := repository.NewPayoutRepository(tx)

	user, err := txUserRepo.GetByIDForUpdate(ctx, mentorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.Role != models.RoleMentor {
		return nil, ErrForbidden
	}

	debited, err := txUserRepo.DebitAvailable(ctx, mentorID, amount)
	if err != nil {
		return nil, err
	}
	if !debited {
		return nil, ErrInsufficientBalance
	}

	payout, err := txPayoutRepo.Create(ctx, mentorID, amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return payout, nil
}

// withdrawalTransitions enumerates the legal status moves for payout requests.
var withdrawalTransitions = map[string][]string{
	models.PayoutRequestPending:    {models.PayoutRequestProcessing, models.PayoutRequestCancelled},
	models.PayoutRequestProcessing: {models.PayoutRequestCompleted, models.PayoutRequestFailed, models.PayoutRequestCancelled},
}

func withdrawalTransitionAllowed(from, to string) bool {
	for _, allowed := range withdrawalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// UpdateWithdrawalStatus is the operator's lever over a payout request.
// Cancelled and failed requests credit the debited amount back.
func (s *SettlementService) UpdateWithdrawalStatus(
	ctx context.Context,
	role string,
	payoutID uuid.UUID,
	newStatus string,
	adminNotes *string,
) (*models.PayoutRequest, error) {
	if role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPayoutRepo := repository.NewPayoutRepository(tx)
	txUserRepo := repository.NewUserRepository(tx)

	payout, err := txPayoutRepo.GetByIDForUpdate(ctx, payoutID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !withdrawalTransitionAllowed(payout.Status, newStatus) {
		return nil, ErrConflict
	}

	updated, err := txPayoutRepo.UpdateStatusIfCurrent(ctx, payoutID, payout.Status, newStatus, adminNotes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if newStatus == models.PayoutRequestCancelled || newStatus == models.PayoutRequestFailed {
		if err := txUserRepo.CreditAvailable(ctx, payout.MentorID, payout.Amount); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SettlementService) ListWithdrawals(ctx context.Context, mentorID uuid.UUID) ([]models.PayoutRequest, error) {
	return s.payoutRepo.ListByMentor(ctx, mentorID)
}

// Balance reports the mentor's pending and available funds.
func (s *SettlementService) Balance(ctx context.Context, userID uuid.UUID) (pending, available decimal.Decimal, err error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, decimal.Zero, ErrNotFound
		}
		return decimal.Zero, decimal.Zero, err
	}
	return user.PendingBalance, user.AvailableBalance, nil
}
