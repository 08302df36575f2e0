package storage

import "time"

// PollEvent is one applied fetch outcome for a resource.
type PollEvent struct {
	ID         int64
	Resource   string
	Degraded   bool
	Error      *string
	DurationMS int64
	ObservedAt time.Time
	CreatedAt  time.Time
}

// NotificationRecord captures a delivered user-visible notification.
type NotificationRecord struct {
	ID        int64
	Level     string
	Title     string
	Message   string
	Resource  string
	CreatedAt time.Time
}

// Availability aggregates poll outcomes for one resource over a window.
type Availability struct {
	Resource      string
	Polls         int64
	DegradedPolls int64
	AvgDurationMS float64
	LastPolledAt  time.Time
}
