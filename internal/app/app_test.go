package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"aegis-sync/internal/alerting"
	"aegis-sync/internal/backend"
	"aegis-sync/internal/backend/backendtest"
	"aegis-sync/internal/config"
	"aegis-sync/internal/logview"
	"aegis-sync/internal/storage"
)

const testAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

func newTestApp(t *testing.T, srv *backendtest.Server) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		Backend: config.BackendConfig{BaseURL: srv.URL, RequestTimeout: time.Second},
		Polling: config.PollingConfig{ResourcesInterval: time.Hour, MonitorInterval: time.Hour},
		Chain:   config.ChainConfig{RPCURLs: map[string]string{"arbitrum": "http://127.0.0.1:8545"}},
		Export:  config.ExportConfig{MaxDataPoints: 10},
	}
	out := &bytes.Buffer{}
	a := NewApp(cfg, zerolog.Nop())
	a.Out = out
	return a, out
}

func validInput() backend.NewContract {
	return backend.NewContract{
		ContractAddress:   " " + testAddress + " ",
		Network:           "BASE",
		EmergencyFunction: "pause()",
		Emails:            []string{"ops@example.com", " "},
	}
}

func TestContractValidatorNormalisesInput(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	a, _ := newTestApp(t, srv)

	in := validInput()
	require.NoError(t, newContractValidator(a.Config).Check(&in))
	require.Equal(t, testAddress, in.ContractAddress)
	require.Equal(t, "base", in.Network)
	require.Equal(t, []string{"ops@example.com"}, in.Emails)
}

func TestContractValidatorAcceptsConfiguredNetwork(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	a, _ := newTestApp(t, srv)

	in := validInput()
	in.Network = "arbitrum"
	require.NoError(t, newContractValidator(a.Config).Check(&in))
}

func TestContractValidatorReportsEveryProblem(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	a, _ := newTestApp(t, srv)

	in := backend.NewContract{
		ContractAddress: "0x1234",
		Network:         "solana",
		Emails:          []string{"not-an-email"},
		SubgraphURL:     "nope",
	}
	err := newContractValidator(a.Config).Check(&in)
	require.Error(t, err)

	msg := err.Error()
	require.Contains(t, msg, "emergencyFunction is required")
	require.Contains(t, msg, `"not-an-email" is not a valid email`)
	require.Contains(t, msg, `network "solana" is not supported`)
	require.Contains(t, msg, "subgraphUrl must be a URL")
	require.Equal(t, 1, strings.Count(msg, "contractAddress must be"))
}

func TestListContractsShowsPlaceholderBannerWhenDown(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.SetDown(true)
	a, out := newTestApp(t, srv)

	require.NoError(t, a.ListContracts(context.Background()))
	require.Contains(t, out.String(), placeholderBanner)
	require.Contains(t, out.String(), "Placeholder: lending pool")
}

func TestListContractsLive(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.SetContracts([]backend.Contract{{ID: 3, Network: "base", Address: testAddress, Status: backend.StatusHealthy, ThreatLevel: backend.ThreatLow}})
	a, out := newTestApp(t, srv)

	require.NoError(t, a.ListContracts(context.Background()))
	require.NotContains(t, out.String(), placeholderBanner)
	require.Contains(t, out.String(), testAddress)
}

func TestAddContractLive(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	a, out := newTestApp(t, srv)

	created, err := a.AddContract(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, int64(101), created.ID)
	require.Contains(t, out.String(), "contract #101 added")

	sent := srv.Created()
	require.Len(t, sent, 1)
	require.Equal(t, "base", sent[0].Network)
}

func TestAddContractRejectsInvalidInputWithoutCallingBackend(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	a, _ := newTestApp(t, srv)

	in := validInput()
	in.EmergencyFunction = ""
	_, err := a.AddContract(context.Background(), in)
	require.Error(t, err)
	require.Zero(t, srv.Calls("POST /api/contracts"))
}

func TestAddContractOfflineKeepsLocalCopy(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.SetDown(true)
	a, out := newTestApp(t, srv)

	created, err := a.AddContract(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, testAddress, created.Address)
	require.Contains(t, out.String(), "kept locally for this session only")
	require.Empty(t, srv.Created())
}

func TestDeleteContractNotFound(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	a, _ := newTestApp(t, srv)

	err := a.DeleteContract(context.Background(), 42)
	require.Error(t, err)
	require.True(t, backend.IsNotFound(err))
}

func longLog(id int64) backend.LogEntry {
	words := strings.Repeat("word ", 35)
	return backend.LogEntry{ID: id, Timestamp: "2024-05-01T10:00:00Z", Level: "info", Source: "monitor", Message: words}
}

func TestLogsCollapsesUntilExpanded(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.SetLogs([]backend.LogEntry{longLog(7)})

	a, out := newTestApp(t, srv)
	require.NoError(t, a.Logs(context.Background(), LogsOptions{}))
	require.Contains(t, out.String(), "expand with --expand 7")

	a, out = newTestApp(t, srv)
	require.NoError(t, a.Logs(context.Background(), LogsOptions{Expand: []int64{7}}))
	require.NotContains(t, out.String(), "expand with --expand")
}

func TestLogsJSON(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.SetLogs([]backend.LogEntry{longLog(7), {ID: 8, Level: "error", Source: "monitor", Message: "❌ call reverted"}})
	a, out := newTestApp(t, srv)

	require.NoError(t, a.Logs(context.Background(), LogsOptions{JSON: true, ExpandAll: true}))

	var views []logview.EntryView
	require.NoError(t, json.Unmarshal(out.Bytes(), &views))
	require.Len(t, views, 2)
	require.True(t, views[0].Expanded)
	require.Zero(t, views[0].HiddenLines)
	require.Equal(t, int64(8), views[1].Entry.ID)
}

func TestLogsScope(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	a, _ := newTestApp(t, srv)

	require.Nil(t, a.logsScope(0))

	a.Config.Polling.LogsContractID = 4
	require.Equal(t, int64(4), *a.logsScope(0))
	require.Equal(t, int64(9), *a.logsScope(9))
}

func TestMonitorDeclinedStartIsWarning(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.SetMonitorStatus(backend.MonitorStatus{Running: true, ThreadAlive: true})
	srv.SetControlResults(
		backend.ControlResult{Success: false, Message: "Monitor already running"},
		backend.ControlResult{Success: true, Message: "Monitor stopped"},
	)
	a, out := newTestApp(t, srv)

	require.NoError(t, a.Monitor(context.Background(), MonitorStart))
	require.Contains(t, out.String(), "warning: Monitor already running")
	require.Contains(t, out.String(), "running: true")
}

func TestMonitorStatusReportsDivergence(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.SetMonitorStatus(backend.MonitorStatus{Running: true, ThreadAlive: false})
	a, out := newTestApp(t, srv)

	require.NoError(t, a.Monitor(context.Background(), MonitorStatus))
	require.Contains(t, out.String(), "worker is not alive")
}

func TestMonitorRejectsUnknownAction(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	a, _ := newTestApp(t, srv)

	require.Error(t, a.Monitor(context.Background(), MonitorAction("restart")))
}

func TestSimulateNotification(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	a, out := newTestApp(t, srv)

	require.Error(t, a.SimulateNotification(context.Background(), alerting.LevelInfo, "", "hi"))

	a.Config.Notify.Log = true
	require.NoError(t, a.SimulateNotification(context.Background(), alerting.LevelWarning, "", "hi"))
	require.Contains(t, out.String(), "warning notification sent")
}

func TestExportRequiresOutput(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	a, _ := newTestApp(t, srv)

	require.Error(t, a.Export(context.Background(), ExportOptions{}))
}

func pollEvents(n int, start time.Time) []storage.PollEvent {
	events := make([]storage.PollEvent, n)
	for i := range events {
		events[i] = storage.PollEvent{
			Resource:   "contracts",
			DurationMS: int64(10 + i),
			ObservedAt: start.Add(time.Duration(i) * time.Minute),
		}
	}
	return events
}

func TestDownsampleEventsKeepsEndpoints(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	events := pollEvents(100, start)

	out := downsampleEvents(events, 10)
	require.Len(t, out, 10)
	require.Equal(t, events[0], out[0])
	require.Equal(t, events[99], out[9])

	require.Len(t, downsampleEvents(events[:5], 10), 5)
	require.Equal(t, events[99], downsampleEvents(events, 1)[0])
}

func TestWriteEventsCSV(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	events := pollEvents(2, start)
	reason := "backend unavailable"
	events = append(events, storage.PollEvent{Resource: "stats", Degraded: true, Error: &reason, DurationMS: 3, ObservedAt: start})

	path := filepath.Join(t.TempDir(), "nested", "events.csv")
	require.NoError(t, writeEventsCSV(path, groupByResource(events)))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, []string{"observed_at", "resource", "degraded", "duration_ms", "error"}, rows[0])
	require.Equal(t, "contracts", rows[1][1])
	require.Equal(t, []string{"2024-05-01T00:00:00Z", "stats", "true", "3", reason}, rows[3])
}

func TestWriteLatencyPNGNeedsTwoPoints(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	dir := t.TempDir()

	require.Error(t, writeLatencyPNG(filepath.Join(dir, "one.png"), groupByResource(pollEvents(1, start))))

	path := filepath.Join(dir, "chart.png")
	require.NoError(t, writeLatencyPNG(path, groupByResource(pollEvents(5, start))))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestAvailabilityPct(t *testing.T) {
	require.Equal(t, "75.00", availabilityPct(storage.Availability{Polls: 8, DegradedPolls: 2}).StringFixed(2))
	require.Equal(t, "0.00", availabilityPct(storage.Availability{}).StringFixed(2))
}
