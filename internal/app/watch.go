package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"aegis-sync/internal/alerting"
	"aegis-sync/internal/feed"
	"aegis-sync/internal/metrics"
	"aegis-sync/internal/scheduler"
	"aegis-sync/internal/service"
	"aegis-sync/internal/storage"
)

// journalLockKey serialises journal writers sharing one database.
const journalLockKey int64 = 0x61656769

// Watch polls the backend until interrupted, journaling outcomes and serving
// the state feed when enabled.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	journal, prune, closeJournal, err := a.openJournal(ctx)
	if err != nil {
		return err
	}
	defer closeJournal()

	exporter := metrics.NewExporter(a.Config.Metrics)
	extra := []alerting.Notifier{exporter}
	if journal != nil {
		extra = append(extra, journal)
	}
	dash := a.newDashboard(a.newNotifier(extra...), a.logsScope(opts.LogsContractID))

	deps := service.Deps{Dashboard: dash, Metrics: exporter, Journal: journal}
	if prune != nil {
		sched, err := scheduler.New(scheduler.Options{
			Name:       "journal-retention",
			Interval:   a.Config.Database.PruneInterval,
			RunAtStart: true,
		}, a.Logger)
		if err != nil {
			return err
		}
		deps.Maintenance = sched
		deps.MaintenanceJob = prune
	}
	if opts.Feed || a.Config.Feed.Enabled {
		listen := opts.Listen
		if listen == "" {
			listen = a.Config.Feed.Listen
		}
		deps.Feed = feed.NewServer(dash, exporter.Handler(), a.Logger)
		deps.FeedListen = listen
	}

	svc := service.New(deps, a.Logger)
	svc.OnBanner(func(down bool) {
		stamp := time.Now().Format(time.Kitchen)
		if down {
			fmt.Fprintf(a.Out, "%s  backend unavailable; showing placeholder data\n", stamp)
			return
		}
		fmt.Fprintf(a.Out, "%s  backend reachable; %d contract(s) tracked\n", stamp, len(dash.Contracts()))
	})

	a.Logger.Info().Str("backend", a.Config.Backend.BaseURL).Msg("starting watch")
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}
	return nil
}

// openJournal opens the poll journal when a database is configured. Only one
// watcher journals per database; others run without it. prune is nil when
// retention is disabled.
func (a *App) openJournal(ctx context.Context) (*storage.Journal, scheduler.Job, func(), error) {
	noop := func() {}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, noop, err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; poll journal disabled")
		return nil, nil, noop, nil
	}

	unlock, acquired, err := store.TryAdvisoryLock(ctx, journalLockKey)
	if err != nil {
		closeStore()
		return nil, nil, noop, err
	}
	if !acquired {
		a.Logger.Warn().Msg("another watcher owns the poll journal; journaling disabled")
		closeStore()
		return nil, nil, noop, nil
	}

	var prune scheduler.Job
	if retention := a.Config.Database.Retention; retention > 0 {
		prune = func(ctx context.Context, slot time.Time) error {
			return pruneJournal(ctx, store, slot.Add(-retention))
		}
	}

	journal := storage.NewJournal(store, store, 0, a.Logger)
	closer := func() {
		journal.Close()
		unlock()
		closeStore()
	}
	return journal, prune, closer, nil
}

func pruneJournal(ctx context.Context, store *storage.Store, cutoff time.Time) error {
	if err := store.DeletePollEventsBefore(ctx, cutoff); err != nil {
		return fmt.Errorf("prune poll events: %w", err)
	}
	if err := store.DeleteNotificationsBefore(ctx, cutoff); err != nil {
		return fmt.Errorf("prune notifications: %w", err)
	}
	return nil
}
