package app

import (
	"context"
	"fmt"

	"aegis-sync/internal/backend"
	"aegis-sync/internal/dashboard"
	"aegis-sync/internal/resource"
)

// MonitorAction selects the monitor command.
type MonitorAction string

const (
	MonitorStart  MonitorAction = "start"
	MonitorStop   MonitorAction = "stop"
	MonitorStatus MonitorAction = "status"
)

// Monitor starts, stops, or reports the backend monitor. A declined start or
// stop prints the backend's message and is not an error.
func (a *App) Monitor(ctx context.Context, action MonitorAction) error {
	dash := a.newDashboard(a.newNotifier(), nil)
	defer dash.Close()

	var (
		outcome dashboard.ControlOutcome
		err     error
	)
	switch action {
	case MonitorStart:
		outcome, err = dash.StartMonitor(ctx)
	case MonitorStop:
		outcome, err = dash.StopMonitor(ctx)
	case MonitorStatus:
		status, refreshErr := dash.RefreshMonitor(ctx)
		if refreshErr != nil {
			fmt.Fprintln(a.Out, "monitor status unavailable; showing placeholder status")
		}
		a.printMonitor(status)
		return nil
	default:
		return fmt.Errorf("unknown monitor action %q", action)
	}
	if err != nil {
		return err
	}

	switch outcome.Kind {
	case dashboard.OutcomeWarning:
		fmt.Fprintf(a.Out, "warning: %s\n", outcome.Message)
	default:
		fmt.Fprintf(a.Out, "monitor %s: %s\n", outcome.Action, firstNonBlank(outcome.Message, "ok"))
	}
	if dash.Degraded(resource.MonitorStatus) {
		fmt.Fprintln(a.Out, "monitor status unavailable; showing placeholder status")
	}
	a.printMonitor(outcome.Status)
	return nil
}

func (a *App) printMonitor(status backend.MonitorStatus) {
	fmt.Fprintf(a.Out, "running: %t\nthread alive: %t\n", status.Running, status.ThreadAlive)
	if status.Diverged() {
		fmt.Fprintln(a.Out, "monitor is marked running but its worker is not alive")
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
