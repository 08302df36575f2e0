package alerting

import (
	"context"
	"sync"
)

// Recorder keeps notifications in memory, in delivery order.
type Recorder struct {
	mu    sync.Mutex
	notes []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

// All returns a copy of every recorded notification.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

// Count returns how many notifications were recorded at level.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Level == level {
			n++
		}
	}
	return n
}

// Drain returns and clears the recorded notifications.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notes
	r.notes = nil
	return out
}

var _ Notifier = (*Recorder)(nil)
