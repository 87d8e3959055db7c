package infra

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"quote_dash/internal/domain"
)

// DefaultConfigPath is where LoadConfig looks when no path is given.
const DefaultConfigPath = "configs/config.yaml"

// Config holds every setting of the dashboard and the feed simulator.
// LoadConfig fills it from YAML, then lets environment variables override it.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		URL                string `yaml:"url"`
		Action             string `yaml:"action"`
		HandshakeTimeoutMS int    `yaml:"handshake_timeout_ms"`
		ReadTimeoutMS      int    `yaml:"read_timeout_ms"` // 0 disables the per-read deadline
		Reconnect          struct {
			MaxAttempts int `yaml:"max_attempts"` // 0 keeps the fail-fast behavior
			BaseDelayMS int `yaml:"base_delay_ms"`
			MaxDelayMS  int `yaml:"max_delay_ms"`
		} `yaml:"reconnect"`
	} `yaml:"feed"`

	Pipeline struct {
		InboxSize int `yaml:"inbox_size"`
	} `yaml:"pipeline"`

	UI struct {
		HistorySize    int `yaml:"history_size"`
		PollIntervalMS int `yaml:"poll_interval_ms"`
	} `yaml:"ui"`

	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"` // Empty resolves to the user config dir
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
		File  string `yaml:"file"`
	} `yaml:"logging"`

	Sim struct {
		Addr       string  `yaml:"addr"`
		IntervalMS int     `yaml:"interval_ms"`
		Symbol     string  `yaml:"symbol"`
		SymbolID   int64   `yaml:"symbol_id"`
		StartPrice float64 `yaml:"start_price"`
		TickSize   float64 `yaml:"tick_size"`
		Seed       int64   `yaml:"seed"`
	} `yaml:"sim"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// LoadConfig reads an optional .env file and the YAML config at path.
// A missing YAML file is not an error: defaults apply.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", slog.Any("error", err))
	}

	if path == "" {
		path = DefaultConfigPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	overrideWithEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "quote-dash"
	}
	if cfg.Feed.URL == "" {
		cfg.Feed.URL = "ws://localhost:8765"
	}
	if cfg.Feed.Action == "" {
		cfg.Feed.Action = domain.ActionLevel1
	}
	if cfg.Feed.HandshakeTimeoutMS == 0 {
		cfg.Feed.HandshakeTimeoutMS = 10_000
	}
	if cfg.Feed.Reconnect.BaseDelayMS == 0 {
		cfg.Feed.Reconnect.BaseDelayMS = 1_000
	}
	if cfg.Feed.Reconnect.MaxDelayMS == 0 {
		cfg.Feed.Reconnect.MaxDelayMS = 60_000
	}
	if cfg.Pipeline.InboxSize == 0 {
		cfg.Pipeline.InboxSize = 5
	}
	if cfg.UI.HistorySize == 0 {
		cfg.UI.HistorySize = 100
	}
	if cfg.UI.PollIntervalMS == 0 {
		cfg.UI.PollIntervalMS = 16
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = "dashboard.log"
	}
	if cfg.Sim.Addr == "" {
		cfg.Sim.Addr = "localhost:8765"
	}
	if cfg.Sim.IntervalMS == 0 {
		cfg.Sim.IntervalMS = 250
	}
	if cfg.Sim.Symbol == "" {
		cfg.Sim.Symbol = "BTCCAD"
	}
	if cfg.Sim.SymbolID == 0 {
		cfg.Sim.SymbolID = 1
	}
	if cfg.Sim.StartPrice == 0 {
		cfg.Sim.StartPrice = 95000
	}
	if cfg.Sim.TickSize == 0 {
		cfg.Sim.TickSize = 0.5
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		return &domain.ConfigError{Field: "feed.url", Err: fmt.Errorf("not a websocket url: %q", c.Feed.URL)}
	}
	if c.Feed.HandshakeTimeoutMS < 0 || c.Feed.ReadTimeoutMS < 0 {
		return &domain.ConfigError{Field: "feed", Err: errors.New("timeouts must not be negative")}
	}
	if c.Feed.Reconnect.MaxAttempts < 0 {
		return &domain.ConfigError{Field: "feed.reconnect.max_attempts", Err: errors.New("must not be negative")}
	}
	if c.Pipeline.InboxSize < 1 {
		return &domain.ConfigError{Field: "pipeline.inbox_size", Err: errors.New("must be positive")}
	}
	// One slot is the current tick; the table needs at least one prior to compare against.
	if c.UI.HistorySize < 2 {
		return &domain.ConfigError{Field: "ui.history_size", Err: errors.New("must be at least 2")}
	}
	if c.UI.PollIntervalMS <= 0 {
		return &domain.ConfigError{Field: "ui.poll_interval_ms", Err: errors.New("must be positive")}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}
	if c.Sim.IntervalMS <= 0 || c.Sim.TickSize <= 0 {
		return &domain.ConfigError{Field: "sim", Err: errors.New("interval and tick size must be positive")}
	}
	return nil
}

// HandshakeTimeout returns the websocket dial timeout.
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Feed.HandshakeTimeoutMS) * time.Millisecond
}

// ReadTimeout returns the per-frame read deadline, zero when disabled.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Feed.ReadTimeoutMS) * time.Millisecond
}

// PollInterval returns the keyboard/inbox poll period of the dashboard.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.UI.PollIntervalMS) * time.Millisecond
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("DASH_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("DASH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("DASH_HISTORY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.UI.HistorySize = n
		}
	}
	if v := os.Getenv("DASH_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("DASH_STORAGE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Storage.Enabled = b
		}
	}
	if v := os.Getenv("DASH_SIM_ADDR"); v != "" {
		cfg.Sim.Addr = v
	}
}
