package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"aegis-sync/internal/alerting"
	"aegis-sync/internal/resource"
)

const (
	defaultJournalBuffer = 256
	journalWriteTimeout  = 5 * time.Second
)

// Journal records poll outcomes and notifications in the background. It plugs
// into the dashboard as a resource.Observer and an alerting.Notifier; callers are
// never blocked by the database, and writes beyond the buffer are dropped.
type Journal struct {
	events PollEventStore
	notes  NotificationStore
	logger zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan func(context.Context) error
	done    chan struct{}
	dropped atomic.Int64
}

// NewJournal starts the writer goroutine. Either store may be nil to skip that
// table.
func NewJournal(events PollEventStore, notes NotificationStore, buffer int, logger zerolog.Logger) *Journal {
	if buffer <= 0 {
		buffer = defaultJournalBuffer
	}
	j := &Journal{
		events: events,
		notes:  notes,
		logger: logger.With().Str("component", "journal").Logger(),
		queue:  make(chan func(context.Context) error, buffer),
		done:   make(chan struct{}),
	}
	go j.run()
	return j
}

// Observe implements resource.Observer.
func (j *Journal) Observe(e resource.Event) {
	if j.events == nil {
		return
	}
	event := PollEvent{
		Resource:   e.Resource,
		Degraded:   e.Degraded,
		DurationMS: e.Duration.Milliseconds(),
		ObservedAt: e.At,
	}
	if e.Err != nil {
		msg := e.Err.Error()
		event.Error = &msg
	}
	j.enqueue(func(ctx context.Context) error {
		return j.events.InsertPollEvent(ctx, event)
	})
}

// Notify implements alerting.Notifier.
func (j *Journal) Notify(_ context.Context, n alerting.Notification) error {
	if j.notes == nil {
		return nil
	}
	rec := NotificationRecord{
		Level:     string(n.Level),
		Title:     n.Title,
		Message:   n.Message,
		Resource:  n.Resource,
		CreatedAt: n.Time,
	}
	j.enqueue(func(ctx context.Context) error {
		_, err := j.notes.InsertNotification(ctx, rec)
		return err
	})
	return nil
}

// Dropped reports how many writes were discarded because the buffer was full.
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Close stops accepting writes and waits for the queue to drain.
func (j *Journal) Close() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		<-j.done
		return
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()
	<-j.done
}

func (j *Journal) enqueue(write func(context.Context) error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.queue <- write:
	default:
		if n := j.dropped.Add(1); n == 1 || n%100 == 0 {
			j.logger.Warn().Int64("dropped", n).Msg("journal buffer full; dropping writes")
		}
	}
}

func (j *Journal) run() {
	defer close(j.done)
	for write := range j.queue {
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		if err := write(ctx); err != nil {
			j.logger.Error().Err(err).Msg("journal write failed")
		}
		cancel()
	}
}

var (
	_ resource.Observer = (*Journal)(nil)
	_ alerting.Notifier = (*Journal)(nil)
)
