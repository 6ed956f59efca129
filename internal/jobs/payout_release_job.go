// Package jobs hosts the background workers that run alongside the HTTP
// server.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"github.com/robfig/cron/v3"
)

// ReleaseRunner is the slice of the settlement service the worker needs.
type ReleaseRunner interface {
	ReleaseDuePayouts(ctx context.Context) (released, deferred int, err error)
}

// PayoutReleaseJob polls the payout schedule table on a cron cadence and
// releases matured holds. The schedule rows are durable, so a missed tick or
// a restart only delays release until the next pass.
type PayoutReleaseJob struct {
	runner ReleaseRunner
	cron   *cron.Cron
	spec   string
	log    *slog.Logger
}

func NewPayoutReleaseJob(runner ReleaseRunner, spec string, log *slog.Logger) *PayoutReleaseJob {
	return &PayoutReleaseJob{
		runner: runner,
		cron:   cron.New(),
		spec:   spec,
		log:    log,
	}
}

// Start registers the cron entry and launches the scheduler. An immediate
// first pass drains anything that matured while the process was down.
func (j *PayoutReleaseJob) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.spec, func() {
		j.runOnce(ctx)
	}); err != nil {
		return err
	}
	j.cron.Start()
	go j.runOnce(ctx)
	return nil
}

// Stop halts the scheduler and waits for an in-flight pass to finish.
func (j *PayoutReleaseJob) Stop() {
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
}

func (j *PayoutReleaseJob) runOnce(ctx context.Context) {
	err := retry.Do(
		func() error {
			_, _, err := j.runner.ReleaseDuePayouts(ctx)
			return err
		},
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			j.log.Warn("payout release pass failed, retrying",
				slog.Uint64("attempt", uint64(n+1)),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		j.log.Error("payout release pass gave up", slog.String("error", err.Error()))
	}
}
