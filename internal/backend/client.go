package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	contractsPath     = "/api/contracts"
	logsPath          = "/api/logs"
	statsPath         = "/api/stats"
	alertSettingsPath = "/api/alerts/settings"
	monitorStatusPath = "/api/monitor/status"
	monitorStartPath  = "/api/monitor/start"
	monitorStopPath   = "/api/monitor/stop"
)

// Options parameterise the backend client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the contract monitoring backend.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a backend client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:5000"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "backend_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// BaseURL returns the normalised backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListContracts fetches every tracked contract.
func (c *Client) ListContracts(ctx context.Context) ([]Contract, error) {
	var env contractsEnvelope
	if err := c.do(ctx, http.MethodGet, contractsPath, nil, &env); err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	if env.Contracts == nil {
		env.Contracts = []Contract{}
	}
	return env.Contracts, nil
}

// CreateContract registers a contract for monitoring.
func (c *Client) CreateContract(ctx context.Context, in NewContract) (CreateResult, error) {
	var res CreateResult
	if err := c.do(ctx, http.MethodPost, contractsPath, in, &res); err != nil {
		return CreateResult{}, fmt.Errorf("create contract: %w", err)
	}
	return res, nil
}

// DeleteContract stops tracking a contract. Any 2xx counts as success.
func (c *Client) DeleteContract(ctx context.Context, id int64) error {
	path := contractsPath + "/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete contract %d: %w", id, err)
	}
	return nil
}

// ListLogs fetches the log stream, scoped to one contract when contractID is set.
func (c *Client) ListLogs(ctx context.Context, contractID *int64) ([]LogEntry, error) {
	path := logsPath
	if contractID != nil {
		path = contractsPath + "/" + strconv.FormatInt(*contractID, 10) + "/logs"
	}

	var env logsEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	if env.Logs == nil {
		env.Logs = []LogEntry{}
	}
	return env.Logs, nil
}

// Stats fetches aggregate counters.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, statsPath, nil, &stats); err != nil {
		return Stats{}, fmt.Errorf("fetch stats: %w", err)
	}
	return stats, nil
}

// AlertSettings fetches notification settings.
func (c *Client) AlertSettings(ctx context.Context) (AlertSettings, error) {
	var settings AlertSettings
	if err := c.do(ctx, http.MethodGet, alertSettingsPath, nil, &settings); err != nil {
		return AlertSettings{}, fmt.Errorf("fetch alert settings: %w", err)
	}
	return settings, nil
}

// MonitorStatus fetches the monitor loop state.
func (c *Client) MonitorStatus(ctx context.Context) (MonitorStatus, error) {
	var status MonitorStatus
	if err := c.do(ctx, http.MethodGet, monitorStatusPath, nil, &status); err != nil {
		return MonitorStatus{}, fmt.Errorf("fetch monitor status: %w", err)
	}
	return status, nil
}

// StartMonitor asks the backend to start its monitor loop.
func (c *Client) StartMonitor(ctx context.Context) (ControlResult, error) {
	var res ControlResult
	if err := c.do(ctx, http.MethodPost, monitorStartPath, nil, &res); err != nil {
		return ControlResult{}, fmt.Errorf("start monitor: %w", err)
	}
	return res, nil
}

// StopMonitor asks the backend to stop its monitor loop.
func (c *Client) StopMonitor(ctx context.Context) (ControlResult, error) {
	var res ControlResult
	if err := c.do(ctx, http.MethodPost, monitorStopPath, nil, &res); err != nil {
		return ControlResult{}, fmt.Errorf("stop monitor: %w", err)
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "aegis-sync/1.0")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseHTTPError(resp.StatusCode, payload)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
