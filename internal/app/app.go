package app

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aegis-sync/internal/alerting"
	"aegis-sync/internal/backend"
	"aegis-sync/internal/config"
	"aegis-sync/internal/dashboard"
	"aegis-sync/internal/logging"
	"aegis-sync/internal/storage"
	"aegis-sync/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives command output; logs go to the logger.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app"), Out: os.Stdout}
}

func (a *App) newClient() *backend.Client {
	userAgent := strings.TrimSpace(a.Config.Backend.UserAgent)
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	return backend.NewClient(backend.Options{
		BaseURL:   a.Config.Backend.BaseURL,
		Timeout:   a.Config.Backend.RequestTimeout,
		UserAgent: userAgent,
	}, a.Logger)
}

// logsScope resolves the contract a log stream is scoped to. A positive override
// wins over polling.logs_contract_id; zero means the global stream.
func (a *App) logsScope(override int64) *int64 {
	id := a.Config.Polling.LogsContractID
	if override > 0 {
		id = override
	}
	if id <= 0 {
		return nil
	}
	return &id
}

func (a *App) newDashboard(notifier alerting.Notifier, logsContractID *int64) *dashboard.Dashboard {
	return dashboard.New(a.newClient(), dashboard.Options{
		ResourcesInterval: a.Config.Polling.ResourcesInterval,
		MonitorInterval:   a.Config.Polling.MonitorInterval,
		LogsContractID:    logsContractID,
	}, notifier, a.Logger)
}

// newNotifier fans notifications out to the configured channels plus extra.
// Telegram only receives notifications at or above notify.min_level.
func (a *App) newNotifier(extra ...alerting.Notifier) alerting.Notifier {
	var fanout alerting.Fanout
	if a.Config.Notify.Log {
		fanout = append(fanout, alerting.NewLogNotifier(a.Logger))
	}
	if a.Config.Notify.Telegram.Enabled {
		cfg := a.Config.Notify.Telegram
		telegram := alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
		fanout = append(fanout, alerting.AtLeast(alerting.ParseLevel(a.Config.Notify.MinLevel), telegram))
	}
	fanout = append(fanout, extra...)
	return fanout
}

// openStore returns a nil store when no journal database is configured.
func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	store, err := storage.Open(ctx, a.Config.Database)
	if errors.Is(err, storage.ErrNoDSN) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// oneShot builds a dashboard for a single command and primes every store.
// Fetch failures are expected while the backend is down and are not returned.
func (a *App) oneShot(ctx context.Context, logsContractID *int64) *dashboard.Dashboard {
	dash := a.newDashboard(a.newNotifier(), logsContractID)
	if err := dash.Refresh(ctx); err != nil {
		a.Logger.Debug().Err(err).Msg("refresh completed with failures")
	}
	return dash
}

// ExportOptions hold parameters for exporting the poll journal.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	Resource  string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Window time.Duration
}

// WatchOptions configure a watch run.
type WatchOptions struct {
	// Feed forces the state feed on regardless of feed.enabled.
	Feed   bool
	Listen string
	// LogsContractID overrides polling.logs_contract_id when positive.
	LogsContractID int64
}

// LogsOptions configure the logs command.
type LogsOptions struct {
	ContractID int64
	Expand     []int64
	ExpandAll  bool
	JSON       bool
}
