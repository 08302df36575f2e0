package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:5000", cfg.Backend.BaseURL)
	require.Equal(t, 5*time.Second, cfg.Polling.ResourcesInterval)
	require.Equal(t, 5*time.Second, cfg.Polling.MonitorInterval)
	require.Equal(t, 10*time.Second, cfg.Backend.RequestTimeout)
	require.Equal(t, 720*time.Hour, cfg.Database.Retention)
	require.Equal(t, time.Hour, cfg.Database.PruneInterval)
	require.False(t, cfg.Feed.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aegis.yaml")
	body := []byte(`
backend:
  base_url: http://backend.internal:5000
polling:
  resources_interval: 2s
  logs_contract_id: 7
chain:
  rpc_urls:
    Base: https://base.example
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("AEGIS_POLLING_MONITOR_INTERVAL", "1s")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://backend.internal:5000", cfg.Backend.BaseURL)
	require.Equal(t, 2*time.Second, cfg.Polling.ResourcesInterval)
	require.Equal(t, time.Second, cfg.Polling.MonitorInterval)
	require.EqualValues(t, 7, cfg.Polling.LogsContractID)
	require.Equal(t, "https://base.example", cfg.RPCURL(" BASE "))
	require.Empty(t, cfg.RPCURL("ethereum"))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Backend: BackendConfig{BaseURL: "http://localhost"},
			Polling: PollingConfig{ResourcesInterval: time.Second, MonitorInterval: time.Second},
			Export:  ExportConfig{MaxDataPoints: 10},
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Polling.ResourcesInterval = 0
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Backend.BaseURL = " "
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Notify.Telegram.Enabled = true
	cfg.Notify.Telegram.BotToken = "token"
	require.Error(t, cfg.Validate(), "chat id missing")

	cfg = valid()
	cfg.Feed.Enabled = true
	require.Error(t, cfg.Validate())
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 50}}
	require.Equal(t, 50, cfg.ResolveMaxPoints(0))
	require.Equal(t, 5, cfg.ResolveMaxPoints(5))
}
