package alerting

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Level grades a user-visible notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

func (l Level) rank() int {
	switch l {
	case LevelError:
		return 3
	case LevelWarning:
		return 2
	case LevelSuccess:
		return 1
	default:
		return 0
	}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelSuccess:
		return LevelSuccess
	case LevelWarning, "warn":
		return LevelWarning
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Notification is a transient message surfaced to the operator.
type Notification struct {
	Level    Level
	Title    string
	Message  string
	Resource string
	Time     time.Time
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, notification Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, n Notification) error {
	if n.Time.IsZero() {
		n.Time = time.Now().UTC()
	}
	var errs []error
	for _, notifier := range f {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AtLeast forwards only notifications at or above min.
func AtLeast(min Level, next Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) error {
		if n.Level.rank() < min.rank() {
			return nil
		}
		return next.Notify(ctx, n)
	})
}

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(context.Context, Notification) error { return nil })

var _ Notifier = Fanout(nil)
