package dashboard

import (
	"time"

	"aegis-sync/internal/backend"
	"aegis-sync/internal/logview"
	"aegis-sync/internal/resource"
)

// State is a read-only view of everything a renderer shows.
type State struct {
	BackendDown     bool                  `json:"backendDown"`
	Contracts       []backend.Contract    `json:"contracts"`
	Stats           backend.Stats         `json:"stats"`
	AlertSettings   backend.AlertSettings `json:"alertSettings"`
	Logs            []logview.EntryView   `json:"logs"`
	Monitor         backend.MonitorStatus `json:"monitor"`
	MonitorDiverged bool                  `json:"monitorDiverged"`
	Resources       []resource.Status     `json:"resources"`
	GeneratedAt     time.Time             `json:"generatedAt"`
}

// State assembles the current snapshots. Each store is read independently.
func (d *Dashboard) State() State {
	contracts := d.Contracts()
	if contracts == nil {
		contracts = []backend.Contract{}
	}
	monitor := d.MonitorStatus()
	return State{
		BackendDown:     d.BackendDown(),
		Contracts:       contracts,
		Stats:           d.Stats(),
		AlertSettings:   d.AlertSettings(),
		Logs:            d.LogViews(),
		Monitor:         monitor,
		MonitorDiverged: monitor.Diverged(),
		Resources:       d.Statuses(),
		GeneratedAt:     time.Now().UTC(),
	}
}
