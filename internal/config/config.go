package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything ordersync reads from its config file.
type Config struct {
	APIBase        string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	MaxBackoff     time.Duration
	Jitter         float64
	Orders         []string
	LogFile        string
	LogLevel       string
	RelayBind      string
}

const (
	defaultConfigPath     = "~/.config/ordersync/config.toml"
	defaultAPIBase        = "127.0.0.1:8080"
	defaultPollInterval   = 30 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultMaxBackoff     = 5 * time.Minute
	defaultJitter         = 0.1
	defaultLogFile        = "~/.local/state/ordersync/ordersync.log"
	defaultLogLevel       = "info"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBase:        defaultAPIBase,
		PollInterval:   defaultPollInterval,
		RequestTimeout: defaultRequestTimeout,
		MaxBackoff:     defaultMaxBackoff,
		Jitter:         defaultJitter,
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
	}
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() string {
	return defaultConfigPath
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBase        string   `toml:"api_base"`
		PollInterval   string   `toml:"poll_interval"`
		RequestTimeout string   `toml:"request_timeout"`
		MaxBackoff     string   `toml:"max_backoff"`
		Jitter         *float64 `toml:"jitter"`
		Orders         []string `toml:"orders"`
		LogFile        string   `toml:"log_file"`
		LogLevel       string   `toml:"log_level"`
		RelayBind      string   `toml:"relay_bind"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBase); v != "" {
		cfg.APIBase = v
	}
	if cfg.PollInterval, err = parseDuration("poll_interval", raw.PollInterval, cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout, cfg.RequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxBackoff, err = parseDuration("max_backoff", raw.MaxBackoff, cfg.MaxBackoff); err != nil {
		return Config{}, err
	}
	if raw.Jitter != nil {
		cfg.Jitter = *raw.Jitter
	}
	cfg.Orders = NormalizeOrders(raw.Orders)
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.RelayBind = strings.TrimSpace(raw.RelayBind)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.APIBase) == "":
		return fmt.Errorf("api_base is empty")
	case c.PollInterval <= 0:
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	case c.MaxBackoff < c.PollInterval:
		return fmt.Errorf("max_backoff %s is shorter than poll_interval %s", c.MaxBackoff, c.PollInterval)
	case c.Jitter < 0 || c.Jitter > 1:
		return fmt.Errorf("jitter must be between 0 and 1, got %g", c.Jitter)
	}
	for _, lvl := range logLevels {
		if c.LogLevel == lvl {
			return nil
		}
	}
	return fmt.Errorf("log_level %q is not one of %s", c.LogLevel, strings.Join(logLevels, ", "))
}

// NormalizeOrders trims ids and drops blanks and duplicates, keeping the
// first occurrence.
func NormalizeOrders(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
