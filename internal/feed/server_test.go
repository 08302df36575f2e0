package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"aegis-sync/internal/backend"
	"aegis-sync/internal/dashboard"
	"aegis-sync/internal/resource"
)

type fakeSource struct {
	mu      sync.Mutex
	state   dashboard.State
	toggled []int64
}

func (f *fakeSource) State() dashboard.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSource) ToggleLog(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggled = append(f.toggled, id)
	return len(f.toggled)%2 == 1
}

func (f *fakeSource) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.BackendDown = down
}

func newFeed(t *testing.T, metrics http.Handler) (*fakeSource, *Server, *httptest.Server) {
	t.Helper()
	src := &fakeSource{state: dashboard.State{
		Contracts: []backend.Contract{{ID: 1, Network: "ethereum", Address: "0xabc", Status: backend.StatusHealthy, ThreatLevel: backend.ThreatLow}},
		Stats:     backend.Stats{ContractsMonitored: 1},
	}}
	s := NewServer(src, metrics, zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return src, s, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) dashboard.State {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "state", msg.Type)
	require.NotNil(t, msg.State)
	return *msg.State
}

func TestStateEndpoint(t *testing.T) {
	_, _, srv := newFeed(t, nil)

	resp, err := srv.Client().Get(srv.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state dashboard.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	require.Len(t, state.Contracts, 1)
	require.EqualValues(t, 1, state.Stats.ContractsMonitored)

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToggleEndpoint(t *testing.T) {
	src, _, srv := newFeed(t, nil)

	resp, err := srv.Client().Post(srv.URL+"/api/logs/4/toggle", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		ID       int64 `json:"id"`
		Expanded bool  `json:"expanded"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.EqualValues(t, 4, body.ID)
	require.True(t, body.Expanded)
	require.Equal(t, []int64{4}, src.toggled)

	resp, err = srv.Client().Post(srv.URL+"/api/logs/abc/toggle", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebsocketPushesOnEvents(t *testing.T) {
	src, s, srv := newFeed(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	conn := dial(t, srv)
	initial := readState(t, conn)
	require.False(t, initial.BackendDown)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	src.setDown(true)
	s.Observe(resource.Event{Resource: resource.Stats, Degraded: true})
	pushed := readState(t, conn)
	require.True(t, pushed.BackendDown)
}

func TestDisconnectedClientsAreDropped(t *testing.T) {
	_, s, srv := newFeed(t, nil)

	conn := dial(t, srv)
	readState(t, conn)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("aegis_backend_down 0\n"))
	})
	_, _, srv := newFeed(t, metrics)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
