// Package dashboard bundles the per-resource stores behind one handle and owns the
// mutation paths that keep them consistent with or without the backend.
package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"aegis-sync/internal/alerting"
	"aegis-sync/internal/backend"
	"aegis-sync/internal/logview"
	"aegis-sync/internal/resource"
)

// Backend is the subset of the backend client the dashboard needs.
type Backend interface {
	ListContracts(ctx context.Context) ([]backend.Contract, error)
	CreateContract(ctx context.Context, in backend.NewContract) (backend.CreateResult, error)
	DeleteContract(ctx context.Context, id int64) error
	ListLogs(ctx context.Context, contractID *int64) ([]backend.LogEntry, error)
	Stats(ctx context.Context) (backend.Stats, error)
	AlertSettings(ctx context.Context) (backend.AlertSettings, error)
	MonitorStatus(ctx context.Context) (backend.MonitorStatus, error)
	StartMonitor(ctx context.Context) (backend.ControlResult, error)
	StopMonitor(ctx context.Context) (backend.ControlResult, error)
}

// Options tune polling.
type Options struct {
	ResourcesInterval time.Duration
	MonitorInterval   time.Duration
	// LogsContractID scopes the log stream to one contract.
	LogsContractID *int64
}

// Dashboard owns one store per resource kind.
type Dashboard struct {
	client   Backend
	opts     Options
	notifier alerting.Notifier
	logger   zerolog.Logger

	contracts *resource.Store[[]backend.Contract]
	stats     *resource.Store[backend.Stats]
	settings  *resource.Store[backend.AlertSettings]
	logs      *resource.Store[[]backend.LogEntry]
	monitor   *resource.Store[backend.MonitorStatus]

	classifier *logview.Classifier
	disclosure *logview.Disclosure
}

// New wires the five stores. Nothing is fetched until Start or Refresh.
func New(client Backend, opts Options, notifier alerting.Notifier, logger zerolog.Logger) *Dashboard {
	if opts.ResourcesInterval <= 0 {
		opts.ResourcesInterval = 5 * time.Second
	}
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = 5 * time.Second
	}
	if notifier == nil {
		notifier = alerting.Discard
	}

	d := &Dashboard{
		client:     client,
		opts:       opts,
		notifier:   notifier,
		logger:     logger.With().Str("component", "dashboard").Logger(),
		classifier: logview.NewClassifier(nil),
		disclosure: logview.NewDisclosure(),
	}

	d.contracts = resource.New(resource.Kind[[]backend.Contract]{
		Name:     resource.Contracts,
		Fetch:    client.ListContracts,
		Fallback: resource.FallbackContracts,
		Clone:    resource.CloneContracts,
	}, notifier, logger)
	d.stats = resource.New(resource.Kind[backend.Stats]{
		Name:     resource.Stats,
		Fetch:    client.Stats,
		Fallback: resource.FallbackStats,
	}, notifier, logger)
	d.settings = resource.New(resource.Kind[backend.AlertSettings]{
		Name:     resource.AlertSettings,
		Fetch:    client.AlertSettings,
		Fallback: resource.FallbackAlertSettings,
		Clone:    resource.CloneAlertSettings,
	}, notifier, logger)
	d.logs = resource.New(resource.Kind[[]backend.LogEntry]{
		Name: resource.Logs,
		Fetch: func(ctx context.Context) ([]backend.LogEntry, error) {
			return client.ListLogs(ctx, opts.LogsContractID)
		},
		Fallback: resource.FallbackLogs,
		Clone:    resource.CloneLogs,
	}, notifier, logger)
	d.monitor = resource.New(resource.Kind[backend.MonitorStatus]{
		Name:     resource.MonitorStatus,
		Fetch:    client.MonitorStatus,
		Fallback: resource.FallbackMonitorStatus,
	}, notifier, logger)

	return d
}

type store interface {
	Name() string
	Status() resource.Status
	Observe(resource.Observer)
	Refresh(ctx context.Context) error
	Start(ctx context.Context, interval time.Duration)
	Stop()
	Wait()
}

func (d *Dashboard) stores() []store {
	return []store{d.contracts, d.stats, d.settings, d.logs, d.monitor}
}

// Observe registers o on every store.
func (d *Dashboard) Observe(o resource.Observer) {
	for _, s := range d.stores() {
		s.Observe(o)
	}
}

// Start begins polling every resource. Polling ends with ctx or Close.
func (d *Dashboard) Start(ctx context.Context) {
	for _, s := range d.stores() {
		interval := d.opts.ResourcesInterval
		if s.Name() == resource.MonitorStatus {
			interval = d.opts.MonitorInterval
		}
		s.Start(ctx, interval)
	}
	d.logger.Info().
		Dur("resources_interval", d.opts.ResourcesInterval).
		Dur("monitor_interval", d.opts.MonitorInterval).
		Msg("polling started")
}

// Close stops polling, waits for in-flight fetches, and drops view state.
func (d *Dashboard) Close() {
	for _, s := range d.stores() {
		s.Stop()
	}
	for _, s := range d.stores() {
		s.Wait()
	}
	d.disclosure.Reset()
	d.logger.Info().Msg("polling stopped")
}

// Refresh re-polls every resource now, outside the timer schedule. Each store
// still applies its own outcome; the joined fetch errors are returned.
func (d *Dashboard) Refresh(ctx context.Context) error {
	stores := d.stores()
	errs := make([]error, len(stores))

	var g errgroup.Group
	for i, s := range stores {
		g.Go(func() error {
			errs[i] = s.Refresh(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// BackendDown is the banner flag: any of contracts, stats, or alert settings degraded.
func (d *Dashboard) BackendDown() bool {
	return d.contracts.Degraded() || d.stats.Degraded() || d.settings.Degraded()
}

// Contracts returns the visible contract list.
func (d *Dashboard) Contracts() []backend.Contract { return d.contracts.Snapshot() }

// Stats returns the visible stats.
func (d *Dashboard) Stats() backend.Stats { return d.stats.Snapshot() }

// AlertSettings returns the visible alert settings.
func (d *Dashboard) AlertSettings() backend.AlertSettings { return d.settings.Snapshot() }

// Logs returns the visible log stream.
func (d *Dashboard) Logs() []backend.LogEntry { return d.logs.Snapshot() }

// MonitorStatus returns the visible monitor status.
func (d *Dashboard) MonitorStatus() backend.MonitorStatus { return d.monitor.Snapshot() }

// Statuses returns the flag of every store, in a fixed order.
func (d *Dashboard) Statuses() []resource.Status {
	stores := d.stores()
	out := make([]resource.Status, 0, len(stores))
	for _, s := range stores {
		out = append(out, s.Status())
	}
	return out
}

// LogViews classifies the visible logs and applies the expand flags.
func (d *Dashboard) LogViews() []logview.EntryView {
	return d.disclosure.Views(d.classifier, d.logs.Snapshot())
}

// ToggleLog flips the expand flag of one entry.
func (d *Dashboard) ToggleLog(id int64) bool {
	return d.disclosure.Toggle(id)
}

// ExpandLog forces an entry open.
func (d *Dashboard) ExpandLog(id int64) {
	d.disclosure.SetExpanded(id, true)
}

// Degraded reports the flag of one resource by name.
func (d *Dashboard) Degraded(name string) bool {
	for _, s := range d.stores() {
		if s.Name() == name {
			return s.Status().Degraded
		}
	}
	return false
}
