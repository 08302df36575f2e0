package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"aegis-sync/internal/backend"
	"aegis-sync/internal/backend/backendtest"
)

func newClient(url string) *backend.Client {
	return backend.NewClient(backend.Options{BaseURL: url + "/", Timeout: time.Second, UserAgent: "test"}, zerolog.Nop())
}

func TestListContracts(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	desc := "vault"
	srv.SetContracts([]backend.Contract{{ID: 1, Network: "base", Address: "0xAbC", Description: &desc, Status: "Warning", ThreatLevel: "Medium"}})

	contracts, err := newClient(srv.URL).ListContracts(context.Background())
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	require.Equal(t, "0xAbC", contracts[0].Address, "address must not be normalised")
	require.Equal(t, "vault", *contracts[0].Description)
	require.Equal(t, "Medium", contracts[0].ThreatLevel)
}

func TestListContractsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	contracts, err := newClient(srv.URL).ListContracts(context.Background())
	require.NoError(t, err)
	require.NotNil(t, contracts)
	require.Empty(t, contracts)
}

func TestHTTPErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to fetch stats"})
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Stats(context.Background())
	require.Error(t, err)

	var httpErr *backend.HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, http.StatusInternalServerError, httpErr.Status)
	require.Equal(t, "Failed to fetch stats", httpErr.Message)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(url).AlertSettings(context.Background())
	require.Error(t, err)
	var httpErr *backend.HTTPError
	require.False(t, errors.As(err, &httpErr))
}

func TestCreateAndDeleteContract(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	client := newClient(srv.URL)

	res, err := client.CreateContract(context.Background(), backend.NewContract{
		ContractAddress:   "0x1111111111111111111111111111111111111111",
		Network:           "ethereum",
		EmergencyFunction: "pause",
		Emails:            []string{"a@example.com"},
	})
	require.NoError(t, err)
	require.False(t, res.Rejected())
	require.NotZero(t, res.AssignedID())
	require.Len(t, srv.Created(), 1)
	require.Equal(t, "pause", srv.Created()[0].EmergencyFunction)

	require.NoError(t, client.DeleteContract(context.Background(), res.AssignedID()))

	err = client.DeleteContract(context.Background(), res.AssignedID())
	require.True(t, backend.IsNotFound(err))
}

func TestListLogsScoped(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	one, two := int64(1), int64(2)
	srv.SetLogs([]backend.LogEntry{
		{ID: 3, Level: "INFO", Message: "a", ContractID: &one},
		{ID: 2, Level: "INFO", Message: "b", ContractID: &two},
		{ID: 1, Level: "INFO", Message: "c"},
	})
	client := newClient(srv.URL)

	all, err := client.ListLogs(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 3)

	scoped, err := client.ListLogs(context.Background(), &two)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.EqualValues(t, 2, scoped[0].ID)
	require.Equal(t, 1, srv.Calls("GET /api/contracts/2/logs"))
}

func TestMonitorControl(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	client := newClient(srv.URL)

	srv.SetControlResults(backend.ControlResult{Success: false, Message: "already running"}, backend.ControlResult{Success: true})

	res, err := client.StartMonitor(context.Background())
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "already running", res.Message)

	res, err = client.StopMonitor(context.Background())
	require.NoError(t, err)
	require.True(t, res.Success)

	status, err := client.MonitorStatus(context.Background())
	require.NoError(t, err)
	require.False(t, status.Running)
}

func TestMonitorStatusDiverged(t *testing.T) {
	require.True(t, backend.MonitorStatus{Running: true}.Diverged())
	require.False(t, backend.MonitorStatus{Running: true, ThreadAlive: true}.Diverged())
	require.False(t, backend.MonitorStatus{ThreadAlive: true}.Diverged())
}

func TestLogEntryTime(t *testing.T) {
	ts, ok := backend.LogEntry{Timestamp: "2024-05-01T10:20:30.123456"}.Time()
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 5, 1, 10, 20, 30, 123456000, time.UTC), ts)

	_, ok = backend.LogEntry{Timestamp: "yesterday"}.Time()
	require.False(t, ok)
}

func TestCreateContractReplyShapes(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		rejected bool
		id       int64
	}{
		{name: "ack", status: http.StatusOK, body: `{"success":true,"message":"ok","contractId":9}`, id: 9},
		{name: "created contract", status: http.StatusCreated, body: `{"id":7,"network":"base","address":"0xabc","status":"Healthy","threatLevel":"Low"}`, id: 7},
		{name: "empty body", status: http.StatusCreated, body: ``},
		{name: "explicit rejection", status: http.StatusOK, body: `{"success":false,"message":"duplicate"}`, rejected: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			res, err := newClient(srv.URL).CreateContract(context.Background(), backend.NewContract{})
			require.NoError(t, err)
			require.Equal(t, tc.rejected, res.Rejected())
			require.Equal(t, tc.id, res.AssignedID())
		})
	}
}
