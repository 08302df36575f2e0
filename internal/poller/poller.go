package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FetchFunc is invoked on every tick. It must be idempotent: ticks may overlap.
type FetchFunc func(ctx context.Context) error

// Options tune poller behaviour.
type Options struct {
	Name     string
	Interval time.Duration
}

// Subscription is a running poll schedule.
type Subscription struct {
	name     string
	interval time.Duration
	fetch    FetchFunc
	logger   zerolog.Logger

	cancel   context.CancelFunc
	once     sync.Once
	done     chan struct{}
	inflight sync.WaitGroup
}

// Start invokes fetch immediately and then every opts.Interval until the returned
// subscription is cancelled or ctx ends. Ticks follow a fixed schedule regardless of
// fetch duration; each invocation runs on its own goroutine.
func Start(ctx context.Context, fetch FetchFunc, opts Options, logger zerolog.Logger) *Subscription {
	if opts.Interval <= 0 {
		panic("poller interval must be positive")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		name:     opts.Name,
		interval: opts.Interval,
		fetch:    fetch,
		logger:   logger.With().Str("component", "poller").Str("resource", opts.Name).Logger(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	// In-flight fetches outlive cancellation; only future ticks are suppressed.
	fetchCtx := context.WithoutCancel(ctx)

	s.tick(fetchCtx)
	go s.run(loopCtx, fetchCtx)
	return s
}

func (s *Subscription) run(loopCtx, fetchCtx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			s.logger.Debug().Msg("polling stopped")
			return
		case <-ticker.C:
			// A tick that races with cancellation must not fire.
			if loopCtx.Err() != nil {
				return
			}
			s.tick(fetchCtx)
		}
	}
}

func (s *Subscription) tick(ctx context.Context) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.fetch(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("poll tick failed")
		}
	}()
}

// Cancel stops all future ticks. It is safe to call repeatedly and concurrently.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Done is closed once the schedule loop has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the schedule loop and every in-flight fetch have returned.
func (s *Subscription) Wait() {
	<-s.done
	s.inflight.Wait()
}
