package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
)

type stubRunner struct {
	calls    atomic.Int32
	failures int32
}

func (s *stubRunner) ReleaseDuePayouts(_ context.Context) (int, int, error) {
	call := s.calls.Add(1)
	if call <= s.failures {
		return 0, 0, errors.New("transient database error")
	}
	return 2, 0, nil
}

func TestRunOnceRetriesTransientFailures(t *testing.T) {
	runner := &stubRunner{failures: 2}
	job := NewPayoutReleaseJob(runner, "@every 1h", slog.New(slog.NewTextHandler(io.Discard, nil)))

	job.runOnce(context.Background())

	if got := runner.calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestRunOnceGivesUpAfterMaxAttempts(t *testing.T) {
	runner := &stubRunner{failures: 10}
	job := NewPayoutReleaseJob(runner, "@every 1h", slog.New(slog.NewTextHandler(io.Discard, nil)))

	job.runOnce(context.Background())

	if got := runner.calls.Load(); got != 3 {
		t.Fatalf("expected exactly 3 attempts before giving up, got %d", got)
	}
}
