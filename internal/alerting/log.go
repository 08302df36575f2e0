package alerting

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	var event *zerolog.Event
	switch note.Level {
	case LevelError:
		event = n.logger.Error()
	case LevelWarning:
		event = n.logger.Warn()
	default:
		event = n.logger.Info()
	}
	event.Str("level_tag", string(note.Level)).
		Str("resource", note.Resource).
		Str("detail", note.Message).
		Msg(note.Title)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
