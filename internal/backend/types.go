package backend

import (
	"strings"
	"time"
)

// Contract health values reported by the backend.
const (
	StatusHealthy  = "Healthy"
	StatusWarning  = "Warning"
	StatusCritical = "Critical"

	ThreatLow    = "Low"
	ThreatMedium = "Medium"
	ThreatHigh   = "High"
)

// Log levels with dedicated handling; the set is open.
const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// Contract is a tracked smart contract as listed by GET /api/contracts.
type Contract struct {
	ID                  int64   `json:"id"`
	Network             string  `json:"network"`
	Address             string  `json:"address"`
	Description         *string `json:"description,omitempty"`
	SubgraphURL         *string `json:"subgraphUrl,omitempty"`
	Status              string  `json:"status"`
	ThreatLevel         string  `json:"threatLevel"`
	MonitoringFrequency string  `json:"monitoringFrequency,omitempty"`
}

// NewContract is the create payload for POST /api/contracts.
type NewContract struct {
	ContractAddress     string   `json:"contractAddress" validate:"required,eth_addr"`
	Network             string   `json:"network" validate:"required"`
	EmergencyFunction   string   `json:"emergencyFunction" validate:"required"`
	Emails              []string `json:"emails" validate:"required,min=1,dive,required,email"`
	Description         string   `json:"description,omitempty"`
	AlertThreshold      string   `json:"alertThreshold,omitempty"`
	MonitoringFrequency string   `json:"monitoringFrequency,omitempty"`
	SubgraphURL         string   `json:"subgraphUrl,omitempty" validate:"omitempty,url"`
}

// CreateResult is a 2xx reply to POST /api/contracts: either an ack
// (`{success, message, contractId}`) or the created contract itself.
type CreateResult struct {
	Success    *bool  `json:"success,omitempty"`
	Message    string `json:"message,omitempty"`
	ContractID int64  `json:"contractId,omitempty"`
	ID         int64  `json:"id,omitempty"`
}

// Rejected reports an explicit `success: false`. A reply without the field is
// an acceptance.
func (r CreateResult) Rejected() bool {
	return r.Success != nil && !*r.Success
}

// AssignedID is the server-assigned contract id from either reply shape.
func (r CreateResult) AssignedID() int64 {
	if r.ContractID != 0 {
		return r.ContractID
	}
	return r.ID
}

// Stats aggregates dashboard counters.
type Stats struct {
	ContractsMonitored int `json:"contractsMonitored"`
	AlertsToday        int `json:"alertsToday"`
	ActiveThreats      int `json:"activeThreats"`
}

// AlertSettings mirrors the backend notification configuration.
type AlertSettings struct {
	EmailNotifications bool     `json:"emailNotifications"`
	ConfiguredEmails   []string `json:"configuredEmails"`
	AlertTypes         []string `json:"alertTypes"`
}

// LogEntry is one monitoring log line.
type LogEntry struct {
	ID         int64  `json:"id"`
	Timestamp  string `json:"timestamp"`
	Level      string `json:"level"`
	Source     string `json:"source"`
	Message    string `json:"message"`
	ContractID *int64 `json:"contract_id,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Time parses the entry timestamp. Timestamps without zone are taken as UTC.
func (e LogEntry) Time() (time.Time, bool) {
	raw := strings.TrimSpace(e.Timestamp)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// MonitorStatus reports the backend monitor loop.
type MonitorStatus struct {
	// Running is the operator intent.
	Running bool `json:"running"`
	// ThreadAlive is the observed liveness of the worker.
	ThreadAlive bool `json:"thread_alive"`
}

// Diverged reports a monitor that should run but whose worker is not alive.
func (s MonitorStatus) Diverged() bool {
	return s.Running && !s.ThreadAlive
}

// ControlResult is returned by POST /api/monitor/start and /stop.
type ControlResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type contractsEnvelope struct {
	Contracts []Contract `json:"contracts"`
}

type logsEnvelope struct {
	Logs []LogEntry `json:"logs"`
}
