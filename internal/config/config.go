package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"aegis-sync/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Polling  PollingConfig  `mapstructure:"polling"`
	Database DatabaseConfig `mapstructure:"database"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// BackendConfig locates the monitoring backend.
type BackendConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// PollingConfig governs refresh cadence per resource group.
type PollingConfig struct {
	ResourcesInterval time.Duration `mapstructure:"resources_interval"`
	MonitorInterval   time.Duration `mapstructure:"monitor_interval"`
	// LogsContractID scopes the log stream to one contract when non-zero.
	LogsContractID int64 `mapstructure:"logs_contract_id"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the poll journal.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	EnsureSchema    bool          `mapstructure:"ensure_schema"`
	// Retention prunes journal rows older than this at watch startup and every
	// PruneInterval after. Zero keeps everything.
	Retention     time.Duration `mapstructure:"retention"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// NotifyConfig routes user-visible notifications.
type NotifyConfig struct {
	Log      bool           `mapstructure:"log"`
	MinLevel string         `mapstructure:"min_level"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// FeedConfig exposes dashboard state to external renderers.
type FeedConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// MetricsConfig names exported Prometheus series.
type MetricsConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// ChainConfig covers on-chain probes of tracked contracts.
type ChainConfig struct {
	RPCURLs        map[string]string `mapstructure:"rpc_urls"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AEGIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "aegis-sync")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("backend.base_url", "http://127.0.0.1:5000")
	v.SetDefault("backend.request_timeout", "10s")

	v.SetDefault("polling.resources_interval", "5s")
	v.SetDefault("polling.monitor_interval", "5s")
	v.SetDefault("polling.logs_contract_id", 0)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.ensure_schema", true)
	v.SetDefault("database.retention", "720h")
	v.SetDefault("database.prune_interval", "1h")

	v.SetDefault("notify.log", true)
	v.SetDefault("notify.min_level", "warning")
	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("notify.telegram.timeout", "10s")

	v.SetDefault("feed.enabled", false)
	v.SetDefault("feed.listen", "127.0.0.1:8089")

	v.SetDefault("metrics.prefix", "aegis")

	v.SetDefault("chain.request_timeout", "10s")

	v.SetDefault("export.max_data_points", 10000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Polling.ResourcesInterval <= 0 {
		return fmt.Errorf("polling.resources_interval must be greater than zero")
	}
	if c.Polling.MonitorInterval <= 0 {
		return fmt.Errorf("polling.monitor_interval must be greater than zero")
	}
	if c.Polling.LogsContractID < 0 {
		return fmt.Errorf("polling.logs_contract_id cannot be negative")
	}
	if c.Database.Retention < 0 {
		return fmt.Errorf("database.retention cannot be negative")
	}
	if c.Database.Retention > 0 && c.Database.PruneInterval <= 0 {
		return fmt.Errorf("database.prune_interval must be positive when retention is set")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.BotToken == "" {
			return fmt.Errorf("notify.telegram.bot_token is required when telegram is enabled")
		}
		if c.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Feed.Enabled && strings.TrimSpace(c.Feed.Listen) == "" {
		return fmt.Errorf("feed.listen is required when the feed is enabled")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// RPCURL returns the configured RPC endpoint for a network, if any.
func (c *Config) RPCURL(network string) string {
	if c.Chain.RPCURLs == nil {
		return ""
	}
	return c.Chain.RPCURLs[strings.ToLower(strings.TrimSpace(network))]
}
