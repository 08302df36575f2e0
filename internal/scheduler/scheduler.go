package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Job is invoked once per aligned slot with the slot's start time.
type Job func(ctx context.Context, slot time.Time) error

// Options tune a Scheduler.
type Options struct {
	Name     string
	Interval time.Duration
	// RunAtStart fires the job once before waiting for the first slot.
	RunAtStart bool
}

// Scheduler runs one maintenance job on wall-clock aligned slots.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Scheduler. The interval must be positive.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("scheduler interval must be positive")
	}
	if opts.Name == "" {
		opts.Name = "job"
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Str("job", opts.Name).Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run blocks until ctx is cancelled. Job failures are logged and do not stop
// the schedule.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	if s.opts.RunAtStart {
		s.fire(ctx, job, s.now())
	}

	for {
		next := NextSlot(s.now(), s.opts.Interval)
		timer := time.NewTimer(time.Until(next))
		s.logger.Debug().Time("next_slot", next).Msg("waiting for next slot")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.fire(ctx, job, next)
	}
}

func (s *Scheduler) fire(ctx context.Context, job Job, slot time.Time) {
	started := time.Now()
	if err := job(ctx, slot); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().Err(err).Time("slot", slot).Msg("scheduled job failed")
		return
	}
	s.logger.Debug().Time("slot", slot).Dur("took", time.Since(started)).Msg("scheduled job finished")
}

// NextSlot returns the first interval boundary strictly after now.
func NextSlot(now time.Time, interval time.Duration) time.Time {
	slot := now.Truncate(interval)
	if !slot.After(now) {
		slot = slot.Add(interval)
	}
	return slot
}
