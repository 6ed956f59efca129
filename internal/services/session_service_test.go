package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arman-d/MentorAppBack/internal/models"
)

func TestCheckJoinWindow(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	cases := []struct {
		name string
		now  time.Time
		want error
	}{
		{"exactly at window open", start.Add(-joinGrace), nil},
		{"one second too early", start.Add(-joinGrace).Add(-time.Second), ErrTooSoon},
		{"mid session", start.Add(30 * time.Minute), nil},
		{"exactly at window close", end.Add(joinGrace), nil},
		{"one second too late", end.Add(joinGrace).Add(time.Second), ErrGone},
	}

	for _, tc := range cases {
		if got := checkJoinWindow(tc.now, start, end); !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestCancellable(t *testing.T) {
	allowed := []string{models.SessionPending, models.SessionConfirmed, models.SessionPendingReschedule}
	for _, status := range allowed {
		if !cancellable(status) {
			t.Fatalf("expected %q to be cancellable", status)
		}
	}

	denied := []string{models.SessionInProgress, models.SessionCompleted, models.SessionCancelled, models.SessionNoShow}
	for _, status := range denied {
		if cancellable(status) {
			t.Fatalf("expected %q to not be cancellable", status)
		}
	}
}

func TestValidateReason(t *testing.T) {
	if err := validateReason("too short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for short reason, got %v", err)
	}
	if err := validateReason(strings.Repeat("x", 501)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for long reason, got %v", err)
	}
	if err := validateReason("a perfectly reasonable explanation"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := validateReason(strings.Repeat("x", 500)); err != nil {
		t.Fatalf("expected 500 chars to pass, got %v", err)
	}
	if err := validateReason(strings.Repeat("x", 10)); err != nil {
		t.Fatalf("expected 10 chars to pass, got %v", err)
	}

	// Multibyte text counts characters, not bytes, matching char_length in
	// the database constraints.
	if err := validateReason(strings.Repeat("ف", 9)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected 9 multibyte chars to fail, got %v", err)
	}
	if err := validateReason(strings.Repeat("ف", 10)); err != nil {
		t.Fatalf("expected 10 multibyte chars to pass, got %v", err)
	}
	if err := validateReason(strings.Repeat("ф", 501)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected 501 multibyte chars to fail, got %v", err)
	}
}

func TestValidSlotDuration(t *testing.T) {
	if !ValidSlotDuration(30) || !ValidSlotDuration(60) {
		t.Fatal("expected 30 and 60 to be valid durations")
	}
	for _, d := range []int{0, 15, 45, 90, -30} {
		if ValidSlotDuration(d) {
			t.Fatalf("expected %d to be invalid", d)
		}
	}
}

func TestCheckRescheduleTiming(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	farStart := now.Add(96 * time.Hour)

	if err := checkRescheduleTiming(now, farStart, now.Add(48*time.Hour)); err != nil {
		t.Fatalf("expected valid proposal, got %v", err)
	}
	if err := checkRescheduleTiming(now, farStart, now.Add(12*time.Hour)); !errors.Is(err, ErrTooSoon) {
		t.Fatalf("expected ErrTooSoon for near proposal, got %v", err)
	}
	if err := checkRescheduleTiming(now, now.Add(12*time.Hour), now.Add(72*time.Hour)); !errors.Is(err, ErrTooSoon) {
		t.Fatalf("expected ErrTooSoon when current start is close, got %v", err)
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 9, 3, 12, 0, 0, 0, time.UTC)

	fresh := &models.RescheduleRequest{Status: models.ReschedulePending, CreatedAt: now.Add(-47 * time.Hour)}
	if IsExpired(fresh, now) {
		t.Fatal("expected pending request inside the window to be live")
	}

	stale := &models.RescheduleRequest{Status: models.ReschedulePending, CreatedAt: now.Add(-49 * time.Hour)}
	if !IsExpired(stale, now) {
		t.Fatal("expected pending request past the window to be expired")
	}

	resolved := &models.RescheduleRequest{Status: models.RescheduleApproved, CreatedAt: now.Add(-100 * time.Hour)}
	if IsExpired(resolved, now) {
		t.Fatal("resolved requests never expire")
	}
}

func TestWithdrawalTransitions(t *testing.T) {
	allowed := [][2]string{
		{models.PayoutRequestPending, models.PayoutRequestProcessing},
		{models.PayoutRequestPending, models.PayoutRequestCancelled},
		{models.PayoutRequestProcessing, models.PayoutRequestCompleted},
		{models.PayoutRequestProcessing, models.PayoutRequestFailed},
		{models.PayoutRequestProcessing, models.PayoutRequestCancelled},
	}
	for _, pair := range allowed {
		if !withdrawalTransitionAllowed(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be allowed", pair[0], pair[1])
		}
	}

	denied := [][2]string{
		{models.PayoutRequestPending, models.PayoutRequestCompleted},
		{models.PayoutRequestCompleted, models.PayoutRequestPending},
		{models.PayoutRequestCancelled, models.PayoutRequestProcessing},
		{models.PayoutRequestFailed, models.PayoutRequestCompleted},
	}
	for _, pair := range denied {
		if withdrawalTransitionAllowed(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be rejected", pair[0], pair[1])
		}
	}
}
