package resource

import (
	"slices"

	"aegis-sync/internal/backend"
)

// Resource names shared by stores, metrics, and the poll journal.
const (
	Contracts     = "contracts"
	Stats         = "stats"
	AlertSettings = "alert_settings"
	Logs          = "logs"
	MonitorStatus = "monitor_status"
)

// FallbackContracts is the placeholder contract list shown while degraded.
func FallbackContracts() []backend.Contract {
	lending := "Placeholder: lending pool"
	bridge := "Placeholder: bridge escrow"
	return []backend.Contract{
		{
			ID:                  1,
			Network:             "ethereum",
			Address:             "0x1234567890123456789012345678901234567890",
			Description:         &lending,
			Status:              backend.StatusHealthy,
			ThreatLevel:         backend.ThreatLow,
			MonitoringFrequency: "5min",
		},
		{
			ID:                  2,
			Network:             "base",
			Address:             "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01",
			Description:         &bridge,
			Status:              backend.StatusWarning,
			ThreatLevel:         backend.ThreatMedium,
			MonitoringFrequency: "5min",
		},
	}
}

// FallbackStats matches FallbackContracts.
func FallbackStats() backend.Stats {
	return backend.Stats{ContractsMonitored: 2, AlertsToday: 5, ActiveThreats: 1}
}

// FallbackAlertSettings is the placeholder notification configuration.
func FallbackAlertSettings() backend.AlertSettings {
	return backend.AlertSettings{
		EmailNotifications: true,
		ConfiguredEmails:   []string{"alerts@example.com"},
		AlertTypes:         []string{"flash_loan", "reentrancy", "oracle_manipulation"},
	}
}

// FallbackLogs is a short placeholder stream, most recent first.
func FallbackLogs() []backend.LogEntry {
	one, two := int64(1), int64(2)
	return []backend.LogEntry{
		{ID: 4, Timestamp: "2024-01-01T00:03:00Z", Level: backend.LevelInfo, Source: "agent", Message: "✅ Completed Threat Analysis for contract 0x1234567890123456789012345678901234567890", ContractID: &one},
		{ID: 3, Timestamp: "2024-01-01T00:02:00Z", Level: backend.LevelWarning, Source: "agent", Message: "🟡 Unusual withdrawal pattern observed on bridge escrow", ContractID: &two},
		{ID: 2, Timestamp: "2024-01-01T00:01:00Z", Level: backend.LevelInfo, Source: "agent", Message: "🛠️ get_last_transactions returned 12 transactions", ContractID: &one},
		{ID: 1, Timestamp: "2024-01-01T00:00:00Z", Level: backend.LevelInfo, Source: "agent", Message: "🔍 Starting Threat Analysis for contract 0x1234567890123456789012345678901234567890", ContractID: &one},
	}
}

// FallbackMonitorStatus reports a stopped monitor.
func FallbackMonitorStatus() backend.MonitorStatus {
	return backend.MonitorStatus{Running: false, ThreadAlive: false}
}

// CloneContracts deep-copies a contract list.
func CloneContracts(in []backend.Contract) []backend.Contract {
	if in == nil {
		return nil
	}
	out := make([]backend.Contract, len(in))
	for i, c := range in {
		out[i] = c
		if c.Description != nil {
			d := *c.Description
			out[i].Description = &d
		}
		if c.SubgraphURL != nil {
			u := *c.SubgraphURL
			out[i].SubgraphURL = &u
		}
	}
	return out
}

// CloneLogs deep-copies a log stream.
func CloneLogs(in []backend.LogEntry) []backend.LogEntry {
	if in == nil {
		return nil
	}
	out := make([]backend.LogEntry, len(in))
	for i, e := range in {
		out[i] = e
		if e.ContractID != nil {
			id := *e.ContractID
			out[i].ContractID = &id
		}
	}
	return out
}

// CloneAlertSettings copies the slices inside AlertSettings.
func CloneAlertSettings(in backend.AlertSettings) backend.AlertSettings {
	in.ConfiguredEmails = slices.Clone(in.ConfiguredEmails)
	in.AlertTypes = slices.Clone(in.AlertTypes)
	return in
}
