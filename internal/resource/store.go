// Package resource keeps one canonical snapshot per backend resource and swaps in a
// placeholder snapshot while the backend is unreachable.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"aegis-sync/internal/alerting"
	"aegis-sync/internal/poller"
)

// ErrStopped is returned by Refresh once the store has been stopped.
var ErrStopped = errors.New("resource store stopped")

// Kind describes how to obtain one resource.
type Kind[T any] struct {
	Name string
	// Fetch loads the live value. Any error, transport or HTTP, counts as a failure.
	Fetch func(ctx context.Context) (T, error)
	// Fallback builds the placeholder value. It is called once per store.
	Fallback func() T
	// Clone copies a value so callers never share backing arrays with the store.
	// A nil Clone means plain assignment is a copy.
	Clone func(T) T
}

// Event reports one applied fetch outcome.
type Event struct {
	Resource string
	Degraded bool
	Err      error
	Duration time.Duration
	At       time.Time
}

// Observer receives applied outcomes. Observe must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Status summarises a store without its snapshot.
type Status struct {
	Resource  string    `json:"resource"`
	Degraded  bool      `json:"degraded"`
	Loaded    bool      `json:"loaded"`
	LastError string    `json:"lastError,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is the LIVE/DEGRADED state machine for one resource kind.
type Store[T any] struct {
	kind     Kind[T]
	notifier alerting.Notifier
	logger   zerolog.Logger

	mu        sync.RWMutex
	snapshot  T
	fallback  T
	degraded  bool
	loaded    bool
	lastErr   error
	updatedAt time.Time
	stopped   bool
	// epoch increments on every Start; results from an older epoch are dropped.
	epoch     uint64
	sub       *poller.Subscription
	last      *poller.Subscription
	observers []Observer
}

// New builds a store in the LIVE state with a zero snapshot.
func New[T any](kind Kind[T], notifier alerting.Notifier, logger zerolog.Logger) *Store[T] {
	if kind.Fetch == nil {
		panic("resource " + kind.Name + ": fetch is required")
	}
	if notifier == nil {
		notifier = alerting.Discard
	}
	s := &Store[T]{
		kind:     kind,
		notifier: notifier,
		logger:   logger.With().Str("component", "resource_store").Str("resource", kind.Name).Logger(),
	}
	if kind.Fallback != nil {
		s.fallback = kind.Fallback()
	}
	return s
}

// Name returns the resource kind name.
func (s *Store[T]) Name() string {
	return s.kind.Name
}

// Snapshot returns a copy of the visible snapshot.
func (s *Store[T]) Snapshot() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clone(s.snapshot)
}

// Degraded reports whether the last fetch failed.
func (s *Store[T]) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Status returns the store's flag and bookkeeping.
func (s *Store[T]) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Resource:  s.kind.Name,
		Degraded:  s.degraded,
		Loaded:    s.loaded,
		UpdatedAt: s.updatedAt,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Fallback returns a copy of the current placeholder snapshot.
func (s *Store[T]) Fallback() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clone(s.fallback)
}

// Observe registers an observer for applied outcomes.
func (s *Store[T]) Observe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Refresh fetches once and applies the outcome. The fetch error is returned after
// the store has switched to its fallback. A stopped store does not fetch and
// returns ErrStopped.
func (s *Store[T]) Refresh(ctx context.Context) error {
	s.mu.RLock()
	stopped, epoch := s.stopped, s.epoch
	s.mu.RUnlock()
	if stopped {
		return fmt.Errorf("%s: %w", s.kind.Name, ErrStopped)
	}
	return s.refresh(ctx, epoch)
}

func (s *Store[T]) refresh(ctx context.Context, epoch uint64) error {
	start := time.Now()
	value, err := s.kind.Fetch(ctx)
	if !s.apply(ctx, epoch, value, err, time.Since(start)) && err == nil {
		return fmt.Errorf("%s: %w", s.kind.Name, ErrStopped)
	}
	return err
}

// Start polls the resource every interval until Stop or ctx ends. A stopped
// store can be started again.
func (s *Store[T]) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return
	}
	s.stopped = false
	s.epoch++
	epoch := s.epoch

	// poller.Start never fetches inline.
	s.sub = poller.Start(ctx, func(ctx context.Context) error {
		// Failures are already surfaced by apply.
		_ = s.refresh(ctx, epoch)
		return nil
	}, poller.Options{Name: s.kind.Name, Interval: interval}, s.logger)
	s.last = s.sub
}

// Stop cancels polling. Fetches still in flight are allowed to finish but their
// results are discarded.
func (s *Store[T]) Stop() {
	s.mu.Lock()
	s.stopped = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

// Wait blocks until the most recent polling run and its in-flight fetches have
// exited.
func (s *Store[T]) Wait() {
	s.mu.RLock()
	sub := s.last
	s.mu.RUnlock()
	if sub != nil {
		sub.Wait()
	}
}

// MutateFallback edits the placeholder snapshot. While DEGRADED the edit is
// visible immediately.
func (s *Store[T]) MutateFallback(fn func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = fn(s.clone(s.fallback))
	if s.degraded {
		s.snapshot = s.clone(s.fallback)
	}
	return s.clone(s.fallback)
}

// apply reports whether the outcome was applied. Outcomes that land after Stop,
// or that belong to an earlier polling run, are discarded.
func (s *Store[T]) apply(ctx context.Context, epoch uint64, value T, fetchErr error, elapsed time.Duration) bool {
	now := time.Now().UTC()

	s.mu.Lock()
	if s.stopped || epoch != s.epoch {
		s.mu.Unlock()
		s.logger.Debug().Msg("discarding result after stop")
		return false
	}
	if fetchErr != nil {
		s.snapshot = s.clone(s.fallback)
		s.degraded = true
		s.lastErr = fetchErr
	} else {
		s.snapshot = s.clone(value)
		s.degraded = false
		s.lastErr = nil
	}
	s.loaded = true
	s.updatedAt = now
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	event := Event{Resource: s.kind.Name, Degraded: fetchErr != nil, Err: fetchErr, Duration: elapsed, At: now}

	if fetchErr != nil {
		s.logger.Warn().Err(fetchErr).Dur("elapsed", elapsed).Msg("fetch failed; serving placeholder data")
		note := alerting.Notification{
			Level:    alerting.LevelWarning,
			Title:    "Backend unavailable",
			Message:  fmt.Sprintf("could not load %s (%v); showing placeholder data", s.kind.Name, fetchErr),
			Resource: s.kind.Name,
			Time:     now,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Msg("failed to deliver notification")
		}
	} else {
		s.logger.Debug().Dur("elapsed", elapsed).Msg("snapshot refreshed")
	}

	for _, o := range observers {
		o.Observe(event)
	}
	return true
}

func (s *Store[T]) clone(v T) T {
	if s.kind.Clone == nil {
		return v
	}
	return s.kind.Clone(v)
}
