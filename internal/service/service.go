package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"aegis-sync/internal/dashboard"
	"aegis-sync/internal/feed"
	"aegis-sync/internal/metrics"
	"aegis-sync/internal/resource"
	"aegis-sync/internal/scheduler"
	"aegis-sync/internal/storage"
)

// Deps are the collaborators of a watch run. Only Dashboard is required.
type Deps struct {
	Dashboard *dashboard.Dashboard
	Metrics   *metrics.Exporter
	Journal   *storage.Journal
	Feed      *feed.Server
	// FeedListen is the address the feed binds. Empty keeps the feed unserved.
	FeedListen string
	// Maintenance runs MaintenanceJob alongside polling when both are set.
	Maintenance    *scheduler.Scheduler
	MaintenanceJob scheduler.Job
}

// Service keeps the dashboard polling and fans its events out to observers.
type Service struct {
	deps   Deps
	logger zerolog.Logger

	mu          sync.Mutex
	backendDown bool
	seen        bool
	onBanner    []func(down bool)
}

// New constructs the watch service.
func New(deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		deps:   deps,
		logger: logger.With().Str("component", "service").Logger(),
	}
}

// OnBanner registers a callback fired whenever the backend-down banner flips,
// and once for the first observed state.
func (s *Service) OnBanner(fn func(down bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onBanner = append(s.onBanner, fn)
}

// Run polls until ctx ends, then tears the dashboard down.
func (s *Service) Run(ctx context.Context) error {
	dash := s.deps.Dashboard
	if dash == nil {
		return fmt.Errorf("dashboard not configured")
	}

	if s.deps.Metrics != nil {
		dash.Observe(s.deps.Metrics)
	}
	if s.deps.Journal != nil {
		dash.Observe(s.deps.Journal)
	}
	if s.deps.Feed != nil {
		dash.Observe(s.deps.Feed)
	}
	dash.Observe(resource.ObserverFunc(s.trackBanner))

	g, gctx := errgroup.WithContext(ctx)

	if s.deps.Feed != nil {
		s.deps.Feed.Start(gctx)
		if s.deps.FeedListen != "" {
			g.Go(func() error {
				return s.deps.Feed.ListenAndServe(gctx, s.deps.FeedListen)
			})
		}
	}

	if s.deps.Maintenance != nil && s.deps.MaintenanceJob != nil {
		g.Go(func() error {
			return s.deps.Maintenance.Run(gctx, s.deps.MaintenanceJob)
		})
	}

	dash.Start(gctx)
	s.logger.Info().Msg("watching backend")

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	err := g.Wait()

	dash.Close()
	if s.deps.Journal != nil {
		s.deps.Journal.Close()
		if dropped := s.deps.Journal.Dropped(); dropped > 0 {
			s.logger.Warn().Int64("dropped", dropped).Msg("journal dropped writes during run")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info().Msg("watch stopped")
	return nil
}

// BackendDown reports the last banner state seen by the service.
func (s *Service) BackendDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backendDown
}

func (s *Service) trackBanner(ev resource.Event) {
	dash := s.deps.Dashboard
	down := dash.BackendDown()

	if s.deps.Metrics != nil {
		s.deps.Metrics.SetBackendDown(down)
		if ev.Resource == resource.MonitorStatus {
			status := dash.MonitorStatus()
			s.deps.Metrics.SetMonitor(status.Running, status.ThreadAlive)
		}
	}

	s.mu.Lock()
	changed := !s.seen || s.backendDown != down
	s.seen = true
	s.backendDown = down
	callbacks := append([]func(bool){}, s.onBanner...)
	s.mu.Unlock()

	if !changed {
		return
	}
	if down {
		s.logger.Warn().Str("resource", ev.Resource).Msg("backend unavailable; serving placeholder data")
	} else {
		s.logger.Info().Msg("backend reachable")
	}
	for _, fn := range callbacks {
		fn(down)
	}
}
