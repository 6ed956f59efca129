package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arman-d/MentorAppBack/internal/events"
	"github.com/arman-d/MentorAppBack/internal/models"
	"github.com/arman-d/MentorAppBack/internal/repository"
)

const (
	// rescheduleNotice guards both ends: the proposed time must be at least
	// this far out, and the existing start must still be at least this far
	// away when the request is made.
	rescheduleNotice = 24 * time.Hour
	// rescheduleTTL is how long an unaddressed request stays actionable
	// before IsExpired reports it stale.
	rescheduleTTL = 48 * time.Hour
)

// RescheduleService runs the mutual-consent time-change sub-process. Approving
// a request rewrites the session's scheduled start and end; the original slot
// binding is left untouched (the slot was consumed by the booking and no
// longer drives the session time).
type RescheduleService struct {
	db             *pgxpool.Pool
	sessionRepo    *repository.SessionRepository
	rescheduleRepo *repository.RescheduleRepository
	sink           events.Sink
}

func NewRescheduleService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	rescheduleRepo *repository.RescheduleRepository,
	sink events.Sink,
) *RescheduleService {
	return &RescheduleService{
		db:             db,
		sessionRepo:    sessionRepo,
		rescheduleRepo: rescheduleRepo,
		sink:           sink,
	}
}

func (s *RescheduleService) Propose(
	ctx context.Context,
	requesterID uuid.UUID,
	sessionID uuid.UUID,
	newStart time.Time,
	reason string,
) (*models.RescheduleRequest, error) {
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
	txRescheduleRepo := repository.NewRescheduleRepository(tx)

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !session.IsParty(requesterID) {
		return nil, ErrForbidden
	}
	if session.Status != models.SessionConfirmed {
		return nil, ErrConflict
	}

	now := time.Now().UTC()
	if err := checkRescheduleTiming(now, session.ScheduledStart, newStart); err != nil {
		return nil, err
	}

	if _, err := txRescheduleRepo.GetPendingBySessionID(ctx, sessionID); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	requesterRole := models.RoleMentee
	if session.MentorID == requesterID {
		requesterRole = models.RoleMentor
	}

	request, err := txRescheduleRepo.Create(ctx, repository.CreateRescheduleInput{
		SessionID:     sessionID,
		RequestedBy:   requesterID,
		RequesterRole: requesterRole,
		ProposedStart: newStart,
		Reason:        reason,
	})
	if err != nil {
		return nil, err
	}

	if _, err := txSessionRepo.UpdateStatusIfCurrent(ctx, sessionID, models.SessionConfirmed, models.SessionPendingReschedule); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if err := txSessionRepo.SetRescheduleRequest(ctx, sessionID, &request.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.sink.Publish(ctx, events.Event{
		Type:      events.RescheduleRequested,
		SessionID: sessionID,
		ActorID:   requesterID,
		MenteeID:  session.MenteeID,
		MentorID:  session.MentorID,
		Payload: map[string]any{
			"proposed_start": newStart.UTC().Format(time.RFC3339),
			"reason":         reason,
		},
		OccurredAt: now,
	})

	return request, nil
}

// Approve moves the session to the proposed time. Only the counterparty of
// the requester, or an admin, may approve.
func (s *RescheduleService) Approve(ctx context.Context, approverID uuid.UUID, role string, requestID uuid.UUID) (*models.Session, error) {
	return s.resolve(ctx, approverID, role, requestID, models.RescheduleApproved)
}

// Reject returns the session to confirmed with its schedule unchanged.
func (s *RescheduleService) Reject(ctx context.Context, approverID uuid.UUID, role string, requestID uuid.UUID) (*models.Session, error) {
	return s.resolve(ctx, approverID, role, requestID, models.RescheduleRejected)
}

func (s *RescheduleService) resolve(
	ctx context.Context,
	approverID uuid.UUID,
	role string,
	requestID uuid.UUID,
	outcome string,
) (*models.Session, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txRescheduleRepo := repository.NewRescheduleRepository(tx)

	request, err := txRescheduleRepo.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if request.Status != models.ReschedulePending {
		return nil, ErrConflict
	}
	// An expired request can still be rejected to unblock the session, but
	// approving it would rewrite the schedule off a stale proposal.
	if outcome == models.RescheduleApproved && IsExpired(request, time.Now().UTC()) {
		return nil, ErrGone
	}

	session, err := txSessionRepo.GetByIDForUpdate(ctx, request.SessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// The requester cannot approve their own request; the counterparty or an
	// admin must act.
	if role != models.RoleAdmin {
		if !session.IsParty(approverID) || approverID == request.RequestedBy {
			return nil, ErrForbidden
		}
	}
	if session.Status != models.SessionPendingReschedule {
		return nil, ErrConflict
	}

	if _, err := txRescheduleRepo.Resolve(ctx, requestID, outcome); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if outcome == models.RescheduleApproved {
		newEnd := request.ProposedStart.Add(time.Duration(session.DurationMin) * time.Minute)
		if _, err := txSessionRepo.UpdateSchedule(ctx, session.ID, request.ProposedStart, newEnd); err != nil {
			return nil, err
		}
	}

	updated, err := txSessionRepo.UpdateStatusIfCurrent(ctx, session.ID, models.SessionPendingReschedule, models.SessionConfirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if err := txSessionRepo.SetRescheduleRequest(ctx, session.ID, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	eventType := events.RescheduleApproved
	if outcome == models.RescheduleRejected {
		eventType = events.RescheduleRejected
	}
	s.sink.Publish(ctx, events.Event{
		Type:       eventType,
		SessionID:  session.ID,
		ActorID:    approverID,
		MenteeID:   session.MenteeID,
		MentorID:   session.MentorID,
		OccurredAt: time.Now().UTC(),
	})

	return updated, nil
}

func (s *RescheduleService) GetRequest(ctx context.Context, actorID uuid.UUID, role string, requestID uuid.UUID) (*models.RescheduleRequest, error) {
	request, err := s.rescheduleRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if role != models.RoleAdmin {
		session, err := s.sessionRepo.GetByID(ctx, request.SessionID)
		if err != nil {
			return nil, err
		}
		if !session.IsParty(actorID) {
			return nil, ErrForbidden
		}
	}
	return request, nil
}

// IsExpired reports whether a pending request has gone unaddressed past its
// window. Expiry never auto-rejects; an explicit actor must still resolve it.
func IsExpired(request *models.RescheduleRequest, now time.Time) bool {
	return request.Status == models.ReschedulePending && now.Sub(request.CreatedAt) > rescheduleTTL
}

func checkRescheduleTiming(now, currentStart, proposedStart time.Time) error {
	if proposedStart.Before(now.Add(rescheduleNotice)) {
		return ErrTooSoon
	}
	if currentStart.Sub(now) < rescheduleNotice {
		return ErrTooSoon
	}
	return nil
}
