// Package backendtest provides an in-memory monitoring backend for tests.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"aegis-sync/internal/backend"
)

// Server fakes the backend HTTP contract on top of httptest.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	down      bool
	failPaths map[string]int
	contracts []backend.Contract
	logs      []backend.LogEntry
	stats     backend.Stats
	settings  backend.AlertSettings
	status    backend.MonitorStatus
	start     backend.ControlResult
	stop      backend.ControlResult
	nextID    int64
	calls     map[string]int
	created   []backend.NewContract

	// createStatus, when set, answers creates with that status and the contract body.
	createStatus int
}

// New starts a fake backend that answers every route successfully.
func New() *Server {
	s := &Server{
		failPaths: make(map[string]int),
		calls:     make(map[string]int),
		contracts: []backend.Contract{},
		logs:      []backend.LogEntry{},
		settings: backend.AlertSettings{
			EmailNotifications: true,
			ConfiguredEmails:   []string{"ops@example.com"},
			AlertTypes:         []string{"reentrancy"},
		},
		start:  backend.ControlResult{Success: true, Message: "Monitor started"},
		stop:   backend.ControlResult{Success: true, Message: "Monitor stopped"},
		nextID: 100,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetDown makes every route answer 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// FailPath makes the given "METHOD /path" answer status until cleared with 0.
func (s *Server) FailPath(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failPaths, route)
		return
	}
	s.failPaths[route] = status
}

// SetContracts replaces the live contract list.
func (s *Server) SetContracts(contracts []backend.Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts = append([]backend.Contract{}, contracts...)
}

// SetLogs replaces the live log stream.
func (s *Server) SetLogs(logs []backend.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append([]backend.LogEntry{}, logs...)
}

// SetStats replaces the live stats.
func (s *Server) SetStats(stats backend.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

// SetMonitorStatus replaces the reported monitor status.
func (s *Server) SetMonitorStatus(status backend.MonitorStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// SetControlResults sets the payloads returned by start and stop.
func (s *Server) SetControlResults(start, stop backend.ControlResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = start
	s.stop = stop
}

// ReplyToCreateWithContract makes creates answer status with the created
// contract instead of the ack envelope. Zero restores the ack.
func (s *Server) ReplyToCreateWithContract(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createStatus = status
}

// Calls returns how often "METHOD /path" was requested.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Created returns every accepted create payload.
func (s *Server) Created() []backend.NewContract {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.NewContract{}, s.created...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	route := r.Method + " " + r.URL.Path
	s.calls[route]++

	if s.down {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backend unavailable"})
		return
	}
	if status, ok := s.failPaths[route]; ok {
		writeJSON(w, status, map[string]string{"error": "injected failure"})
		return
	}

	switch {
	case route == "GET /api/contracts":
		writeJSON(w, http.StatusOK, map[string]any{"contracts": s.contracts})
	case route == "POST /api/contracts":
		var in backend.NewContract
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad payload"})
			return
		}
		s.nextID++
		s.created = append(s.created, in)
		c := backend.Contract{
			ID:          s.nextID,
			Network:     in.Network,
			Address:     in.ContractAddress,
			Status:      backend.StatusHealthy,
			ThreatLevel: backend.ThreatLow,
		}
		s.contracts = append(s.contracts, c)
		if s.createStatus != 0 {
			writeJSON(w, s.createStatus, c)
			return
		}
		ok := true
		writeJSON(w, http.StatusOK, backend.CreateResult{Success: &ok, Message: "Contract added successfully", ContractID: c.ID})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/contracts/"):
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/contracts/"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
			return
		}
		kept := s.contracts[:0]
		found := false
		for _, c := range s.contracts {
			if c.ID == id {
				found = true
				continue
			}
			kept = append(kept, c)
		}
		s.contracts = kept
		if !found {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Contract not found"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/contracts/") && strings.HasSuffix(r.URL.Path, "/logs"):
		raw := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/contracts/"), "/logs")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
			return
		}
		scoped := []backend.LogEntry{}
		for _, entry := range s.logs {
			if entry.ContractID != nil && *entry.ContractID == id {
				scoped = append(scoped, entry)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"logs": scoped})
	case route == "GET /api/logs":
		writeJSON(w, http.StatusOK, map[string]any{"logs": s.logs})
	case route == "GET /api/stats":
		writeJSON(w, http.StatusOK, s.stats)
	case route == "GET /api/alerts/settings":
		writeJSON(w, http.StatusOK, s.settings)
	case route == "GET /api/monitor/status":
		writeJSON(w, http.StatusOK, s.status)
	case route == "POST /api/monitor/start":
		if s.start.Success {
			s.status = backend.MonitorStatus{Running: true, ThreadAlive: true}
		}
		writeJSON(w, http.StatusOK, s.start)
	case route == "POST /api/monitor/stop":
		if s.stop.Success {
			s.status = backend.MonitorStatus{}
		}
		writeJSON(w, http.StatusOK, s.stop)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
