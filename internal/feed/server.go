// Package feed serves dashboard state to external renderers over HTTP and
// websocket.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"aegis-sync/internal/dashboard"
	"aegis-sync/internal/resource"
)

const writeTimeout = 5 * time.Second

// Source provides the state to publish and accepts view toggles.
type Source interface {
	State() dashboard.State
	ToggleLog(id int64) bool
}

// Message is one websocket frame.
type Message struct {
	Type  string           `json:"type"`
	State *dashboard.State `json:"state,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Server publishes state snapshots.
type Server struct {
	source  Source
	metrics http.Handler
	logger  zerolog.Logger

	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*client]struct{}
	dirty    chan struct{}
}

// NewServer builds a feed. metrics may be nil to omit /metrics.
func NewServer(source Source, metrics http.Handler, logger zerolog.Logger) *Server {
	return &Server{
		source:  source,
		metrics: metrics,
		logger:  logger.With().Str("component", "feed").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		dirty:   make(chan struct{}, 1),
	}
}

// Handler routes the feed endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/logs/{id}/toggle", s.handleToggle)
	mux.HandleFunc("GET /ws", s.handleConnections)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Observe implements resource.Observer by scheduling a broadcast. Bursts of
// events collapse into one push.
func (s *Server) Observe(resource.Event) {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// Start pushes state to websocket clients after each observed event until ctx
// ends.
func (s *Server) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				s.closeClients()
				return
			case <-s.dirty:
				s.Broadcast()
			}
		}
	}()
}

// ListenAndServe serves Handler on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", addr).Msg("feed listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info().Msg("feed stopped")
	return nil
}

// Broadcast sends the current state to every connected client.
func (s *Server) Broadcast() {
	payload, err := s.stateMessage()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal state")
		return
	}

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.write(payload); err != nil {
			s.logger.Debug().Err(err).Msg("dropping websocket client")
			s.remove(c)
		}
	}
}

// Clients reports the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) stateMessage() ([]byte, error) {
	state := s.source.State()
	return json.Marshal(Message{Type: "state", State: &state})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.source.State())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid log id"})
		return
	}
	expanded := s.source.ToggleLog(id)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "expanded": expanded})
	s.Observe(resource.Event{})
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	if payload, err := s.stateMessage(); err == nil {
		if err := c.write(payload); err != nil {
			s.remove(c)
			return
		}
	}

	// Clients never send anything meaningful; reading detects disconnects.
	go func() {
		defer s.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()
	for c := range clients {
		_ = c.conn.Close()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var _ resource.Observer = (*Server)(nil)
