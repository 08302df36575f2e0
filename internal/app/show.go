package app

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"aegis-sync/internal/storage"
)

var hundred = decimal.NewFromInt(100)

// Show prints per-resource availability from the poll journal followed by the
// most recent polls and notifications.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	defer closeStore()

	window := opts.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	since := time.Now().UTC().Add(-window)

	summary, err := store.Availability(ctx, since)
	if err != nil {
		return err
	}
	polls, err := store.ListRecentPollEvents(ctx, opts.Limit)
	if err != nil {
		return err
	}
	notes, err := store.ListRecentNotifications(ctx, opts.Limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Availability since %s\n", since.Format(time.RFC3339))
	if len(summary) == 0 {
		fmt.Fprintln(a.Out, "no polls recorded")
	} else {
		writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Resource\tPolls\tDegraded\tAvailable%\tAvg ms\tLast poll (UTC)")
		for _, row := range summary {
			fmt.Fprintf(writer, "%s\t%d\t%d\t%s\t%s\t%s\n",
				row.Resource,
				row.Polls,
				row.DegradedPolls,
				availabilityPct(row).StringFixed(2),
				decimal.NewFromFloat(row.AvgDurationMS).StringFixed(1),
				row.LastPolledAt.UTC().Format(time.RFC3339),
			)
		}
		writer.Flush()
	}

	fmt.Fprintln(a.Out)
	fmt.Fprintln(a.Out, "Recent polls")
	if len(polls) == 0 {
		fmt.Fprintln(a.Out, "no polls recorded")
	} else {
		writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Time (UTC)\tResource\tState\tms\tError")
		for _, p := range polls {
			state, reason := "live", ""
			if p.Degraded {
				state = "degraded"
			}
			if p.Error != nil {
				reason = sanitizeInline(*p.Error)
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\n",
				p.ObservedAt.UTC().Format(time.RFC3339),
				p.Resource,
				state,
				p.DurationMS,
				reason,
			)
		}
		writer.Flush()
	}

	fmt.Fprintln(a.Out)
	fmt.Fprintln(a.Out, "Recent notifications")
	if len(notes) == 0 {
		fmt.Fprintln(a.Out, "no notifications recorded")
		return nil
	}
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tLevel\tResource\tTitle\tMessage")
	for _, n := range notes {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			n.CreatedAt.UTC().Format(time.RFC3339),
			n.Level,
			n.Resource,
			sanitizeInline(n.Title),
			sanitizeInline(n.Message),
		)
	}
	writer.Flush()
	return nil
}

// availabilityPct is the share of polls that returned live data.
func availabilityPct(a storage.Availability) decimal.Decimal {
	if a.Polls <= 0 {
		return decimal.Zero
	}
	live := decimal.NewFromInt(a.Polls - a.DegradedPolls)
	return live.Mul(hundred).Div(decimal.NewFromInt(a.Polls))
}
