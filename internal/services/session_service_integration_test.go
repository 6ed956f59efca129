package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/arman-d/MentorAppBack/internal/events"
	"github.com/arman-d/MentorAppBack/internal/models"
	"github.com/arman-d/MentorAppBack/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

// newIntegrationSessionService uses a zero payout hold so schedule rows are
// due the moment a session completes.
func newIntegrationSessionService(pool *pgxpool.Pool) *SessionService {
	return NewSessionService(
		pool,
		repository.NewSessionRepository(pool),
		repository.NewPaymentRepository(pool),
		repository.NewUserRepository(pool),
		NewOfflinePaymentGateway(),
		events.NopSink{},
		0,
	)
}

func newIntegrationSettlementService(pool *pgxpool.Pool) *SettlementService {
	return NewSettlementService(
		pool,
		repository.NewScheduleRepository(pool),
		repository.NewUserRepository(pool),
		repository.NewPayoutRepository(pool),
		repository.NewDisputeRepository(pool),
		events.NopSink{},
		decimal.NewFromInt(250),
		testLogger(),
	)
}

func createTestUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role, hourlyRate string) uuid.UUID {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("lifecycle-test-%s-%s@example.com", role, uuid.NewString()),
		PasswordHash: "test-hash",
		FullName:     "Lifecycle Test " + role,
		Role:         role,
	}
	if hourlyRate != "" {
		rate := decimal.RequireFromString(hourlyRate)
		user.HourlyRate = &rate
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}
	return user.ID
}

func createOpenSlot(t *testing.T, ctx context.Context, pool *pgxpool.Pool, mentorID uuid.UUID, start time.Time, durationMin int) uuid.UUID {
	t.Helper()

	slotRepo := repository.NewSlotRepository(pool)
	slot, err := slotRepo.Create(ctx, repository.CreateSlotInput{
		MentorID:    mentorID,
		StartTime:   start,
		DurationMin: durationMin,
	})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return slot.ID
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...uuid.UUID) {
	t.Helper()

	statements := []string{
		`DELETE FROM payout_schedules WHERE mentor_id = ANY($1)`,
		`DELETE FROM payout_requests WHERE mentor_id = ANY($1)`,
		`DELETE FROM disputes WHERE session_id IN (SELECT id FROM sessions WHERE mentee_id = ANY($1) OR mentor_id = ANY($1))`,
		`DELETE FROM reschedule_requests WHERE session_id IN (SELECT id FROM sessions WHERE mentee_id = ANY($1) OR mentor_id = ANY($1))`,
		`DELETE FROM payments WHERE session_id IN (SELECT id FROM sessions WHERE mentee_id = ANY($1) OR mentor_id = ANY($1))`,
		`UPDATE time_slots SET session_id = NULL, is_booked = FALSE WHERE mentor_id = ANY($1)`,
		`DELETE FROM sessions WHERE mentee_id = ANY($1) OR mentor_id = ANY($1)`,
		`DELETE FROM time_slots WHERE mentor_id = ANY($1)`,
		`DELETE FROM users WHERE id = ANY($1)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt, userIDs); err != nil {
			t.Errorf("cleanup %q: %v", stmt, err)
		}
	}
}

func TestSessionLifecycleBookConfirmCompleteRelease(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	sessionService := newIntegrationSessionService(pool)
	settlementService := newIntegrationSettlementService(pool)
	userRepo := repository.NewUserRepository(pool)

	menteeID := createTestUser(t, ctx, pool, models.RoleMentee, "")
	mentorID := createTestUser(t, ctx, pool, models.RoleMentor, "120.00")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, menteeID, mentorID) })

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Minute)
	slotID := createOpenSlot(t, ctx, pool, mentorID, start, 30)

	booked, err := sessionService.BookSession(ctx, menteeID, BookSessionInput{SlotID: slotID})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if booked.Status != models.SessionPending {
		t.Fatalf("expected pending session, got %q", booked.Status)
	}
	if booked.Payment == nil || booked.Payment.Status != models.PaymentPending {
		t.Fatalf("expected pending payment, got %+v", booked.Payment)
	}
	if booked.Payment.Amount.StringFixed(2) != "60.00" {
		t.Fatalf("expected price 60.00, got %s", booked.Payment.Amount.StringFixed(2))
	}
	if booked.Payment.Commission.StringFixed(2) != "9.00" || booked.Payment.MentorPayout.StringFixed(2) != "51.00" {
		t.Fatalf("unexpected split: commission %s payout %s",
			booked.Payment.Commission.StringFixed(2), booked.Payment.MentorPayout.StringFixed(2))
	}

	confirmed, err := sessionService.ConfirmPayment(ctx, menteeID, models.RoleMentee, booked.ID)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if confirmed.Status != models.SessionConfirmed {
		t.Fatalf("expected confirmed session, got %q", confirmed.Status)
	}
	if confirmed.MeetingLink == nil || *confirmed.MeetingLink == "" {
		t.Fatal("expected a meeting link after confirmation")
	}
	if confirmed.Payment == nil || confirmed.Payment.Status != models.PaymentCaptured {
		t.Fatalf("expected captured payment, got %+v", confirmed.Payment)
	}

	// Confirming again must not regenerate the link or double-capture.
	again, err := sessionService.ConfirmPayment(ctx, menteeID, models.RoleMentee, booked.ID)
	if err != nil {
		t.Fatalf("second ConfirmPayment: %v", err)
	}
	if *again.MeetingLink != *confirmed.MeetingLink {
		t.Fatal("meeting link changed on repeated confirmation")
	}

	completed, err := sessionService.Complete(ctx, mentorID, models.RoleMentor, booked.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.Status != models.SessionCompleted {
		t.Fatalf("expected completed session, got %q", completed.Status)
	}

	mentor, err := userRepo.GetByID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByID mentor: %v", err)
	}
	if mentor.PendingBalance.StringFixed(2) != "51.00" {
		t.Fatalf("expected pending balance 51.00, got %s", mentor.PendingBalance.StringFixed(2))
	}

	released, deferred, err := settlementService.ReleaseDuePayouts(ctx)
	if err != nil {
		t.Fatalf("ReleaseDuePayouts: %v", err)
	}
	if released != 1 || deferred != 0 {
		t.Fatalf("expected 1 released 0 deferred, got %d/%d", released, deferred)
	}

	mentor, err = userRepo.GetByID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByID mentor after release: %v", err)
	}
	if mentor.AvailableBalance.StringFixed(2) != "51.00" || !mentor.PendingBalance.IsZero() {
		t.Fatalf("expected 51.00 available and zero pending, got %s/%s",
			mentor.AvailableBalance.StringFixed(2), mentor.PendingBalance.StringFixed(2))
	}
}

func TestConcurrentBookingHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSessionService(pool)

	firstMentee := createTestUser(t, ctx, pool, models.RoleMentee, "")
	secondMentee := createTestUser(t, ctx, pool, models.RoleMentee, "")
	mentorID := createTestUser(t, ctx, pool, models.RoleMentor, "80.00")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, firstMentee, secondMentee, mentorID) })

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Minute)
	slotID := createOpenSlot(t, ctx, pool, mentorID, start, 60)

	type result struct {
		err error
	}
	results := make(chan result, 2)
	for _, menteeID := range []uuid.UUID{firstMentee, secondMentee} {
		go func(id uuid.UUID) {
			_, err := service.BookSession(ctx, id, BookSessionInput{SlotID: slotID})
			results <- result{err: err}
		}(menteeID)
	}

	var wins, conflicts int
	for i := 0; i < 2; i++ {
		r := <-results
		switch r.err {
		case nil:
			wins++
		case ErrConflict:
			conflicts++
		default:
			t.Fatalf("unexpected booking error: %v", r.err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner, got %d wins %d conflicts", wins, conflicts)
	}
}

func TestCancelBeyondTwoDaysRefundsInFull(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSessionService(pool)

	menteeID := createTestUser(t, ctx, pool, models.RoleMentee, "")
	mentorID := createTestUser(t, ctx, pool, models.RoleMentor, "100.00")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, menteeID, mentorID) })

	start := time.Now().UTC().Add(96 * time.Hour).Truncate(time.Minute)
	slotID := createOpenSlot(t, ctx, pool, mentorID, start, 60)

	booked, err := service.BookSession(ctx, menteeID, BookSessionInput{SlotID: slotID})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := service.ConfirmPayment(ctx, menteeID, models.RoleMentee, booked.ID); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	cancelled, err := service.Cancel(ctx, menteeID, models.RoleMentee, booked.ID, "plans changed, travelling that whole week")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.SessionCancelled {
		t.Fatalf("expected cancelled session, got %q", cancelled.Status)
	}
	if cancelled.Payment == nil || cancelled.Payment.Status != models.PaymentRefunded {
		t.Fatalf("expected refunded payment, got %+v", cancelled.Payment)
	}
	if cancelled.Payment.RefundAmount == nil || cancelled.Payment.RefundAmount.StringFixed(2) != "100.00" {
		t.Fatalf("expected full refund, got %+v", cancelled.Payment.RefundAmount)
	}

	slot, err := repository.NewSlotRepository(pool).GetByID(ctx, slotID)
	if err != nil {
		t.Fatalf("GetByID slot: %v", err)
	}
	if slot.IsBooked || slot.SessionID != nil {
		t.Fatalf("expected slot to reopen, got %+v", slot)
	}
}

func TestWithdrawalFloorsAndBalanceGuards(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	settlementService := newIntegrationSettlementService(pool)
	userRepo := repository.NewUserRepository(pool)

	mentorID := createTestUser(t, ctx, pool, models.RoleMentor, "100.00")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, mentorID) })

	if err := userRepo.CreditAvailable(ctx, mentorID, decimal.RequireFromString("400.00")); err != nil {
		t.Fatalf("CreditAvailable: %v", err)
	}

	if _, err := settlementService.RequestWithdrawal(ctx, mentorID, decimal.RequireFromString("100.00")); err != ErrBelowMinimum {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	if _, err := settlementService.RequestWithdrawal(ctx, mentorID, decimal.RequireFromString("500.00")); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	payout, err := settlementService.RequestWithdrawal(ctx, mentorID, decimal.RequireFromString("300.00"))
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}
	if payout.Status != models.PayoutRequestPending {
		t.Fatalf("expected pending payout request, got %q", payout.Status)
	}

	mentor, err := userRepo.GetByID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if mentor.AvailableBalance.StringFixed(2) != "100.00" {
		t.Fatalf("expected 100.00 available after withdrawal, got %s", mentor.AvailableBalance.StringFixed(2))
	}

	// Cancelling the request puts the money back.
	if _, err := settlementService.UpdateWithdrawalStatus(ctx, models.RoleAdmin, payout.ID, models.PayoutRequestCancelled, nil); err != nil {
		t.Fatalf("UpdateWithdrawalStatus: %v", err)
	}
	mentor, err = userRepo.GetByID(ctx, mentorID)
	if err != nil {
		t.Fatalf("GetByID after cancel: %v", err)
	}
	if mentor.AvailableBalance.StringFixed(2) != "400.00" {
		t.Fatalf("expected 400.00 available after cancel, got %s", mentor.AvailableBalance.StringFixed(2))
	}
}

func newIntegrationRescheduleService(pool *pgxpool.Pool) *RescheduleService {
	return NewRescheduleService(
		pool,
		repository.NewSessionRepository(pool),
		repository.NewRescheduleRepository(pool),
		events.NopSink{},
	)
}

// bookConfirmedSession drives a booking through confirmation so reschedule
// tests start from a confirmed session.
func bookConfirmedSession(t *testing.T, ctx context.Context, pool *pgxpool.Pool, menteeID, mentorID uuid.UUID, start time.Time) uuid.UUID {
	t.Helper()

	sessionService := newIntegrationSessionService(pool)
	slotID := createOpenSlot(t, ctx, pool, mentorID, start, 60)
	booked, err := sessionService.BookSession(ctx, menteeID, BookSessionInput{SlotID: slotID})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := sessionService.ConfirmPayment(ctx, menteeID, models.RoleMentee, booked.ID); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	return booked.ID
}

func TestRescheduleApprovalRewritesSchedule(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	rescheduleService := newIntegrationRescheduleService(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	menteeID := createTestUser(t, ctx, pool, models.RoleMentee, "")
	mentorID := createTestUser(t, ctx, pool, models.RoleMentor, "110.00")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, menteeID, mentorID) })

	start := time.Now().UTC().Add(96 * time.Hour).Truncate(time.Minute)
	sessionID := bookConfirmedSession(t, ctx, pool, menteeID, mentorID, start)

	proposed := start.Add(24 * time.Hour)
	request, err := rescheduleService.Propose(ctx, menteeID, sessionID, proposed, "work trip moved onto the original date")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}

	session, err := sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if session.Status != models.SessionPendingReschedule {
		t.Fatalf("expected pending_reschedule, got %q", session.Status)
	}

	// The requester cannot approve their own proposal.
	if _, err := rescheduleService.Approve(ctx, menteeID, models.RoleMentee, request.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for self-approval, got %v", err)
	}

	approved, err := rescheduleService.Approve(ctx, mentorID, models.RoleMentor, request.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != models.SessionConfirmed {
		t.Fatalf("expected confirmed after approval, got %q", approved.Status)
	}
	if !approved.ScheduledStart.Equal(proposed) {
		t.Fatalf("expected start %s, got %s", proposed, approved.ScheduledStart)
	}
	wantEnd := proposed.Add(time.Duration(approved.DurationMin) * time.Minute)
	if !approved.ScheduledEnd.Equal(wantEnd) {
		t.Fatalf("expected end %s, got %s", wantEnd, approved.ScheduledEnd)
	}

	// Approval consumes the request; a second resolution conflicts.
	if _, err := rescheduleService.Approve(ctx, mentorID, models.RoleMentor, request.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on re-approval, got %v", err)
	}
}

func TestExpiredRescheduleCannotBeApproved(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	rescheduleService := newIntegrationRescheduleService(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	menteeID := createTestUser(t, ctx, pool, models.RoleMentee, "")
	mentorID := createTestUser(t, ctx, pool, models.RoleMentor, "95.00")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, menteeID, mentorID) })

	start := time.Now().UTC().Add(120 * time.Hour).Truncate(time.Minute)
	sessionID := bookConfirmedSession(t, ctx, pool, menteeID, mentorID, start)

	request, err := rescheduleService.Propose(ctx, menteeID, sessionID, start.Add(24*time.Hour), "clashes with a rescheduled exam date")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}

	// Age the request past its window.
	if _, err := pool.Exec(ctx, `UPDATE reschedule_requests SET created_at = NOW() - INTERVAL '49 hours' WHERE id = $1`, request.ID); err != nil {
		t.Fatalf("backdate request: %v", err)
	}

	if _, err := rescheduleService.Approve(ctx, mentorID, models.RoleMentor, request.ID); !errors.Is(err, ErrGone) {
		t.Fatalf("expected ErrGone for expired approval, got %v", err)
	}

	// Rejection still works so the session is not stuck in pending_reschedule.
	rejected, err := rescheduleService.Reject(ctx, mentorID, models.RoleMentor, request.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != models.SessionConfirmed {
		t.Fatalf("expected confirmed after rejection, got %q", rejected.Status)
	}
	session, err := sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !session.ScheduledStart.Equal(start) {
		t.Fatalf("expected schedule unchanged at %s, got %s", start, session.ScheduledStart)
	}
}

func TestOpenDisputeDefersPayoutRelease(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	sessionService := newIntegrationSessionService(pool)
	settlementService := newIntegrationSettlementService(pool)
	disputeService := NewDisputeService(
		pool,
		repository.NewDisputeRepository(pool),
		repository.NewSessionRepository(pool),
		repository.NewPaymentRepository(pool),
		repository.NewScheduleRepository(pool),
	)

	menteeID := createTestUser(t, ctx, pool, models.RoleMentee, "")
	mentorID := createTestUser(t, ctx, pool, models.RoleMentor, "90.00")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, menteeID, mentorID) })

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Minute)
	slotID := createOpenSlot(t, ctx, pool, mentorID, start, 60)

	booked, err := sessionService.BookSession(ctx, menteeID, BookSessionInput{SlotID: slotID})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := sessionService.ConfirmPayment(ctx, menteeID, models.RoleMentee, booked.ID); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if _, err := sessionService.Complete(ctx, mentorID, models.RoleMentor, booked.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	dispute, err := disputeService.Open(ctx, menteeID, booked.ID, "mentor left halfway through the session")
	if err != nil {
		t.Fatalf("Open dispute: %v", err)
	}

	released, deferred, err := settlementService.ReleaseDuePayouts(ctx)
	if err != nil {
		t.Fatalf("ReleaseDuePayouts: %v", err)
	}
	if released != 0 || deferred != 1 {
		t.Fatalf("expected 0 released 1 deferred, got %d/%d", released, deferred)
	}

	if _, err := disputeService.Resolve(ctx, models.RoleAdmin, dispute.ID, models.DisputeRejected); err != nil {
		t.Fatalf("Resolve dispute: %v", err)
	}

	released, deferred, err = settlementService.ReleaseDuePayouts(ctx)
	if err != nil {
		t.Fatalf("ReleaseDuePayouts after resolution: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected release after dispute resolution, got %d released %d deferred", released, deferred)
	}
}

func TestDisputeOpenWaitsForInFlightRelease(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	sessionService := newIntegrationSessionService(pool)
	disputeService := NewDisputeService(
		pool,
		repository.NewDisputeRepository(pool),
		repository.NewSessionRepository(pool),
		repository.NewPaymentRepository(pool),
		repository.NewScheduleRepository(pool),
	)

	menteeID := createTestUser(t, ctx, pool, models.RoleMentee, "")
	mentorID := createTestUser(t, ctx, pool, models.RoleMentor, "85.00")
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, menteeID, mentorID) })

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Minute)
	slotID := createOpenSlot(t, ctx, pool, mentorID, start, 60)

	booked, err := sessionService.BookSession(ctx, menteeID, BookSessionInput{SlotID: slotID})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := sessionService.ConfirmPayment(ctx, menteeID, models.RoleMentee, booked.ID); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if _, err := sessionService.Complete(ctx, mentorID, models.RoleMentor, booked.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	payment, err := repository.NewPaymentRepository(pool).GetBySessionID(ctx, booked.ID)
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}

	// Simulate a release pass mid-flight: lock the hold rows and flip this one
	// to released, but hold the transaction open.
	releaseTx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer func() { _ = releaseTx.Rollback(ctx) }()
	txScheduleRepo := repository.NewScheduleRepository(releaseTx)
	due, err := txScheduleRepo.ListDue(ctx, time.Now().UTC(), 100)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	var scheduleID uuid.UUID
	for _, row := range due {
		if row.PaymentID == payment.ID {
			scheduleID = row.ID
		}
	}
	if scheduleID == uuid.Nil {
		t.Fatal("expected the hold row to be due")
	}
	if _, err := txScheduleRepo.MarkReleased(ctx, scheduleID); err != nil {
		t.Fatalf("MarkReleased: %v", err)
	}

	results := make(chan error, 1)
	go func() {
		_, err := disputeService.Open(ctx, menteeID, booked.ID, "mentor never turned up for the call")
		results <- err
	}()

	// Open must sit on the row lock rather than read the stale held status.
	select {
	case err := <-results:
		t.Fatalf("dispute open did not wait for the release transaction: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	if err := releaseTx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	select {
	case err := <-results:
		if !errors.Is(err, ErrGone) {
			t.Fatalf("expected ErrGone after release committed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dispute open never returned after release committed")
	}
}
