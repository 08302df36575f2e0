package dashboard

import (
	"context"

	"aegis-sync/internal/alerting"
	"aegis-sync/internal/backend"
	"aegis-sync/internal/resource"
)

// OutcomeKind separates applied control calls from operational warnings.
type OutcomeKind string

const (
	OutcomeApplied OutcomeKind = "applied"
	OutcomeWarning OutcomeKind = "warning"
)

// ControlOutcome is the result of a structurally valid start/stop response.
type ControlOutcome struct {
	Action  string
	Kind    OutcomeKind
	Message string
	// Status is the monitor status observed by the refresh that follows every call.
	Status backend.MonitorStatus
}

// StartMonitor asks the backend to start monitoring.
func (d *Dashboard) StartMonitor(ctx context.Context) (ControlOutcome, error) {
	return d.control(ctx, "start", "Monitoring started successfully", "Failed to start monitoring", d.client.StartMonitor)
}

// StopMonitor asks the backend to stop monitoring.
func (d *Dashboard) StopMonitor(ctx context.Context) (ControlOutcome, error) {
	return d.control(ctx, "stop", "Monitoring stopped successfully", "Failed to stop monitoring", d.client.StopMonitor)
}

// control issues one call. success:false is a warning carrying the backend message,
// not an error. Status is refreshed on every outcome so running/thread_alive show
// what the backend reports rather than what was requested.
func (d *Dashboard) control(
	ctx context.Context,
	action, appliedTitle, failedTitle string,
	call func(context.Context) (backend.ControlResult, error),
) (ControlOutcome, error) {
	res, err := call(ctx)
	if err != nil {
		d.logger.Error().Err(err).Str("action", action).Msg("monitor control failed")
		d.notify(ctx, resource.MonitorStatus, alerting.LevelError, failedTitle, err.Error())
		_ = d.monitor.Refresh(ctx)
		return ControlOutcome{}, &MonitorError{Action: action, Err: err}
	}

	outcome := ControlOutcome{Action: action, Kind: OutcomeApplied, Message: res.Message}
	if res.Success {
		d.notify(ctx, resource.MonitorStatus, alerting.LevelSuccess, appliedTitle, res.Message)
	} else {
		outcome.Kind = OutcomeWarning
		outcome.Message = firstNonEmpty(res.Message, "monitor "+action+" was not applied")
		d.logger.Warn().Str("action", action).Str("message", outcome.Message).Msg("monitor control declined")
		d.notify(ctx, resource.MonitorStatus, alerting.LevelWarning, outcome.Message, "")
	}

	_ = d.monitor.Refresh(ctx)
	outcome.Status = d.monitor.Snapshot()
	return outcome, nil
}

// RefreshMonitor re-polls the monitor status only.
func (d *Dashboard) RefreshMonitor(ctx context.Context) (backend.MonitorStatus, error) {
	err := d.monitor.Refresh(ctx)
	return d.monitor.Snapshot(), err
}
