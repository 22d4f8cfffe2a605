package orgs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepScheduler runs a Sweeper on a cron schedule. A run that is still in
// progress when the next tick fires causes that tick to be skipped.
type SweepScheduler struct {
	cron       *cron.Cron
	sweeper    *Sweeper
	runTimeout time.Duration
	baseCtx    context.Context
	cancel     context.CancelFunc
}

// NewSweepScheduler creates a scheduler. runTimeout bounds each run; zero
// means unbounded.
func NewSweepScheduler(sweeper *Sweeper, schedule string, runTimeout time.Duration, logger cron.Logger) (*SweepScheduler, error) {
	if logger == nil {
		logger = cron.DiscardLogger
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &SweepScheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		sweeper:    sweeper,
		runTimeout: runTimeout,
		baseCtx:    ctx,
		cancel:     cancel,
	}

	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule freeze sweep %q: %w", schedule, err)
	}
	return s, nil
}

func (s *SweepScheduler) runOnce() {
	ctx := s.baseCtx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}
	// errors are logged and counted by the sweeper
	_, _ = s.sweeper.Run(ctx)
}

// Start begins scheduling in the background
func (s *SweepScheduler) Start() {
	s.cron.Start()
}

// Stop prevents further runs, cancels a run in progress and waits for it
// to return or for ctx to end.
func (s *SweepScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled run time, zero when not started
func (s *SweepScheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
