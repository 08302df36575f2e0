package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aegis-sync/internal/alerting"
)

// SimulateNotification sends one notification through every configured channel.
func (a *App) SimulateNotification(ctx context.Context, level alerting.Level, title, message string) error {
	if !a.Config.Notify.Log && !a.Config.Notify.Telegram.Enabled {
		return errors.New("no notification channel configured")
	}
	if title == "" {
		title = "Test notification"
	}

	note := alerting.Notification{
		Level:    level,
		Title:    title,
		Message:  message,
		Resource: "notify-test",
		Time:     time.Now().UTC(),
	}
	if err := a.newNotifier().Notify(ctx, note); err != nil {
		return fmt.Errorf("deliver test notification: %w", err)
	}
	fmt.Fprintf(a.Out, "%s notification sent\n", level)
	return nil
}
