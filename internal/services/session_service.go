package services

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arman-d/MentorAppBack/internal/events"
	"github.com/arman-d/MentorAppBack/internal/metrics"
	"github.com/arman-d/MentorAppBack/internal/models"
	"github.com/arman-d/MentorAppBack/internal/repository"
)

const (
	// joinGrace is how far outside the scheduled window a join is tolerated.
	joinGrace = 15 * time.Minute
	// minReasonLen and maxReasonLen bound free-text reasons on cancellation
	// and reschedule requests.
	minReasonLen = 10
	maxReasonLen = 500
)

type sessionUserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionService owns the session lifecycle. Every transition runs as a short
// transaction with the session row locked, so two concurrent mutations on one
// session can never both succeed.
type SessionService struct {
	db          *pgxpool.Pool
	sessionRepo *repository.SessionRepository
	paymentRepo *repository.PaymentRepository
	userRepo    sessionUserReader
	gateway     PaymentGateway
	sink        events.Sink
	payoutHold  time.Duration
}

func NewSessionService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	paymentRepo *repository.PaymentRepository,
	userRepo sessionUserReader,
	gateway PaymentGateway,
	sink events.Sink,
	payoutHold time.Duration,
) *SessionService {
	return &SessionService{
		db:          db,
		sessionRepo: sessionRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		sink:        sink,
		payoutHold:  payoutHold,
	}
}

type BookSessionInput struct {
	SlotID      uuid.UUID
	SessionType string
	Provider    string
}

// BookSession claims the slot and materializes the session and its pending
// payment as one atomic unit. A failed claim rolls everything back, so a
// booked slot without a session cannot exist.
func (s *SessionService) BookSession(ctx context.Context, menteeID uuid.UUID, input BookSessionInput) (*models.SessionDetail, error) {
	sessionType := input.SessionType
	if sessionType == "" {
		sessionType = models.SessionTypeOneOnOne
	}
	if sessionType != models.SessionTypeOneOnOne && sessionType != models.SessionTypeGroup {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSlotRepo := repository.NewSlotRepository(tx)
	txSessionRepo := repository.NewSessionRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	slot, err := txSlotRepo.GetByID(ctx, input.SlotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if slot.IsBooked {
		return nil, ErrConflict
	}
	now := time.Now().UTC()
	if slot.StartTime.Before(now.Add(minSlotNotice)) {
		return nil, ErrTooSoon
	}
	if slot.MentorID == menteeID {
		return nil, ErrInvalidInput
	}

	mentor, err := s.userRepo.GetByID(ctx, slot.MentorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if mentor.Role != models.RoleMentor || mentor.HourlyRate == nil || !mentor.HourlyRate.IsPositive() {
		return nil, ErrInvalidInput
	}

	// Price is copied from the mentor's rate now and never recalculated.
	price := SessionPrice(*mentor.HourlyRate, slot.DurationMin)
	commission, payout := Split(price)

	session, err := txSessionRepo.Create(ctx, repository.CreateSessionInput{
		MenteeID:       menteeID,
		MentorID:       slot.MentorID,
		SlotID:         slot.ID,
		SessionType:    sessionType,
		DurationMin:    slot.DurationMin,
		ScheduledStart: slot.StartTime,
		ScheduledEnd:   slot.EndTime(),
		Price:          price,
	})
	if err != nil {
		return nil, err
	}

	if _, err := txSlotRepo.Claim(ctx, slot.ID, session.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Another booking won the compare-and-set.
			return nil, ErrConflict
		}
		return nil, err
	}

	intentID, err := s.gateway.CreateIntent(ctx, price)
	if err != nil {
		return nil, ErrPaymentFailed
	}

	payment, err := txPaymentRepo.Create(ctx, repository.CreatePaymentInput{
		SessionID:    session.ID,
		Amount:       price,
		Commission:   commission,
		MentorPayout: payout,
		Provider:     input.Provider,
		IntentID:     &intentID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.SessionsBooked.Inc()
	s.sink.Publish(ctx, events.Event{
		Type:       events.SessionBooked,
		SessionID:  session.ID,
		ActorID:    menteeID,
		MenteeID:   session.MenteeID,
		MentorID:   session.MentorID,
		OccurredAt: now,
	})

	return &models.SessionDetail{Session: *session, Payment: payment}, nil
}

// ConfirmPayment applies a provider confirmation. Idempotent: a retried
// callback for an already-captured payment returns the current state without
// re-running the split or the transition.
func (s *SessionService) ConfirmPayment(ctx context.Context, actorID uuid.UUID, role string, sessionID uuid.UUID) (*models.SessionDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if role != models.RoleAdmin && session.MenteeID != actorID {
		return nil, ErrForbidden
	}

	payment, err := txPaymentRepo.GetBySessionIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if payment.Status == models.PaymentCaptured && session.Status != models.SessionPending {
		return &models.SessionDetail{Session: *session, Payment: payment}, nil
	}
	if session.Status != models.SessionPending {
		return nil, ErrConflict
	}

	txnID := ""
	if payment.ProviderTxnID != nil {
		txnID = *payment.ProviderTxnID
	}
	result, err := s.gateway.Confirm(ctx, txnID, payment.Amount)
	if err != nil || result.Status != gatewayStatusSucceeded {
		// Rollback leaves the payment pending and the session untouched, so
		// the mentee can retry.
		return nil, ErrPaymentFailed
	}

	captured, err := txPaymentRepo.Capture(ctx, payment.ID, result.TransactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}

	confirmed, err := txSessionRepo.Confirm(ctx, sessionID, newMeetingLink(), captured.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.sink.Publish(ctx, events.Event{
		Type:       events.SessionConfirmed,
		SessionID:  confirmed.ID,
		ActorID:    actorID,
		MenteeID:   confirmed.MenteeID,
		MentorID:   confirmed.MentorID,
		OccurredAt: time.Now().UTC(),
	})

	return &models.SessionDetail{Session: *confirmed, Payment: captured}, nil
}

// RequestJoin hands out the meeting link inside the join window. The first
// successful join moves the session to in_progress.
func (s *SessionService) RequestJoin(ctx context.Context, actorID uuid.UUID, sessionID uuid.UUID) (string, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !session.IsParty(actorID) {
		return "", ErrForbidden
	}

	// Join is blocked while a reschedule is pending: the scheduled time is in
	// question, so handing out the link would be misleading.
	if session.Status == models.SessionPendingReschedule {
		return "", ErrConflict
	}
	if session.Status != models.SessionConfirmed && session.Status != models.SessionInProgress {
		return "", ErrConflict
	}

	if err := checkJoinWindow(time.Now().UTC(), session.ScheduledStart, session.ScheduledEnd); err != nil {
		return "", err
	}

	if session.Status == models.SessionConfirmed {
		if _, err := s.sessionRepo.UpdateStatusIfCurrent(ctx, sessionID, models.SessionConfirmed, models.SessionInProgress); err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return "", err
			}
			// Lost the transition race; only fine if another join got there first.
			current, readErr := s.sessionRepo.GetByID(ctx, sessionID)
			if readErr != nil {
				return "", readErr
			}
			if current.Status != models.SessionInProgress {
				return "", ErrConflict
			}
		}
	}

	if session.MeetingLink == nil {
		return "", ErrConflict
	}
	return *session.MeetingLink, nil
}

// Complete finishes a session and starts the payout hold. A mentor may mark a
// confirmed session complete without an explicit join event; that is a
// deliberate choice so sessions held off-platform still settle.
func (s *SessionService) Complete(ctx context.Context, actorID uuid.UUID, role string, sessionID uuid.UUID) (*models.SessionDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)
	txUserRepo := repository.NewUserRepository(tx)
	txScheduleRepo := repository.NewScheduleRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if role != models.RoleAdmin && !(role == models.RoleMentor && session.MentorID == actorID) {
		return nil, ErrForbidden
	}
	if session.Status != models.SessionInProgress && session.Status != models.SessionConfirmed {
		return nil, ErrConflict
	}

	completed, err := txSessionRepo.CompleteIfCurrent(ctx, sessionID, session.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}

	payment, err := txPaymentRepo.GetBySessionIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if payment.Status != models.PaymentCaptured {
		return nil, ErrConflict
	}

	completedAt := time.Now().UTC()
	if completed.CompletedAt != nil {
		completedAt = *completed.CompletedAt
	}

	if err := txUserRepo.AddPendingBalance(ctx, session.MentorID, payment.MentorPayout); err != nil {
		return nil, err
	}
	if _, err := txScheduleRepo.Create(ctx, repository.CreateScheduleInput{
		PaymentID: payment.ID,
		SessionID: session.ID,
		MentorID:  session.MentorID,
		Amount:    payment.MentorPayout,
		DueAt:     completedAt.Add(s.payoutHold),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.sink.Publish(ctx, events.Event{
		Type:       events.SessionCompleted,
		SessionID:  completed.ID,
		ActorID:    actorID,
		MenteeID:   completed.MenteeID,
		MentorID:   completed.MentorID,
		OccurredAt: time.Now().UTC(),
	})

	return &models.SessionDetail{Session: *completed, Payment: payment}, nil
}

// Cancel ends a session before completion. The refund tier is evaluated
// against the clock at the moment of the request, the bound slot is released,
// and any pending reschedule request dies with the session.
func (s *SessionService) Cancel(ctx context.Context, actorID uuid.UUID, role string, sessionID uuid.UUID, reason string) (*models.SessionDetail, error) {
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
	txSlotRepo := repository.NewSlotRepository(tx)
	txRescheduleRepo := repository.NewRescheduleRepository(tx)
	txScheduleRepo := repository.NewScheduleRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if role != models.RoleAdmin && !session.IsParty(actorID) {
		return nil, ErrForbidden
	}
	if !cancellable(session.Status) {
		return nil, ErrConflict
	}

	now := time.Now().UTC()
	tier := RefundTier(hoursUntil(session.ScheduledStart, now))

	cancelled, err := txSessionRepo.UpdateStatusIfCurrent(ctx, sessionID, session.Status, models.SessionCancelled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if pending, err := txRescheduleRepo.GetPendingBySessionID(ctx, sessionID); err == nil {
		if _, err := txRescheduleRepo.Resolve(ctx, pending.ID, models.RescheduleRejected); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if err := txSessionRepo.SetRescheduleRequest(ctx, sessionID, nil); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if err := txSlotRepo.Release(ctx, session.SlotID); err != nil {
		return nil, err
	}

	var payment *models.Payment
	payment, err = txPaymentRepo.GetBySessionIDForUpdate(ctx, sessionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	refund := decimal.Zero
	if payment != nil && payment.Status == models.PaymentCaptured {
		if err := txScheduleRepo.Cancel(ctx, payment.ID); err != nil {
			return nil, err
		}
		if tier > 0 {
			refund = RefundAmount(session.Price, tier)
			refunded, err := txPaymentRepo.MarkRefunded(ctx, payment.ID, refund)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, ErrConflict
				}
				return nil, err
			}
			payment = refunded
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.SessionsCancelled.Inc()
	s.sink.Publish(ctx, events.Event{
		Type:      events.SessionCancelled,
		SessionID: cancelled.ID,
		ActorID:   actorID,
		MenteeID:  cancelled.MenteeID,
		MentorID:  cancelled.MentorID,
		Payload: map[string]any{
			"reason":        reason,
			"refund_tier":   tier,
			"refund_amount": refund.StringFixed(2),
		},
		OccurredAt: now,
	})

	return &models.SessionDetail{Session: *cancelled, Payment: payment}, nil
}

// MarkNoShow is an administrative terminal marking, treated as a cancellation
// with zero refund.
func (s *SessionService) MarkNoShow(ctx context.Context, actorID uuid.UUID, role string, sessionID uuid.UUID) (*models.SessionDetail, error) {
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

	txSessionRepo := repository.NewSessionRepository(tx)
	txSlotRepo := repository.NewSlotRepository(tx)
	txRescheduleRepo := repository.NewRescheduleRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	switch session.Status {
	case models.SessionCompleted, models.SessionCancelled, models.SessionNoShow:
		return nil, ErrConflict
	}

	marked, err := txSessionRepo.UpdateStatusIfCurrent(ctx, sessionID, session.Status, models.SessionNoShow)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if pending, err := txRescheduleRepo.GetPendingBySessionID(ctx, sessionID); err == nil {
		if _, err := txRescheduleRepo.Resolve(ctx, pending.ID, models.RescheduleRejected); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if err := txSlotRepo.Release(ctx, session.SlotID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &models.SessionDetail{Session: *marked}, nil
}

func (s *SessionService) GetSession(ctx context.Context, actorID uuid.UUID, role string, sessionID uuid.UUID) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if role != models.RoleAdmin && !session.IsParty(actorID) {
		return nil, ErrForbidden
	}

	detail := &models.SessionDetail{Session: *session}
	payment, err := s.paymentRepo.GetBySessionID(ctx, sessionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		detail.Payment = payment
	}
	return detail, nil
}

func (s *SessionService) ListSessions(ctx context.Context, actorID uuid.UUID, role string, filter repository.SessionListFilter) ([]models.SessionDetail, error) {
	sessions, err := s.sessionRepo.List(ctx, repository.SessionListFilter{
		ActorID:   actorID,
		Role:      role,
		Status:    filter.Status,
		Timeframe: filter.Timeframe,
	})
	if err != nil {
		return nil, err
	}

	sessionIDs := make([]uuid.UUID, 0, len(sessions))
	for _, session := range sessions {
		sessionIDs = append(sessionIDs, session.ID)
	}

	paymentsBySession, err := s.paymentRepo.ListBySessionIDs(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	details := make([]models.SessionDetail, 0, len(sessions))
	for _, session := range sessions {
		detail := models.SessionDetail{Session: session}
		if payment, ok := paymentsBySession[session.ID]; ok {
			paymentCopy := payment
			detail.Payment = &paymentCopy
		}
		details = append(details, detail)
	}
	return details, nil
}

// checkJoinWindow enforces the [start-15m, end+15m] window. A request one
// second outside fails; there is no grace beyond the window itself.
func checkJoinWindow(now, start, end time.Time) error {
	if now.Before(start.Add(-joinGrace)) {
		return ErrTooSoon
	}
	if now.After(end.Add(joinGrace)) {
		return ErrGone
	}
	return nil
}

func cancellable(status string) bool {
	switch status {
	case models.SessionPending, models.SessionConfirmed, models.SessionPendingReschedule:
		return true
	}
	return false
}

func validateReason(reason string) error {
	// Length is in characters so the check agrees with char_length in the
	// database constraints.
	n := utf8.RuneCountInString(reason)
	if n < minReasonLen || n > maxReasonLen {
		return ErrValidation
	}
	return nil
}

func newMeetingLink() string {
	return "https://meet.mentorapp.io/" + uuid.NewString()
}
