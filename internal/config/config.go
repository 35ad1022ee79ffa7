package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// UpstreamConfig configures the bahn.de client.
type UpstreamConfig struct {
	BaseURL        string `yaml:"base_url" validate:"required,url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=1,lte=60"`
}

// Timeout returns the request timeout as a duration.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// BoardConfig holds board defaults applied when a query omits them.
type BoardConfig struct {
	TimeWindowMinutes int `yaml:"time_window_minutes" validate:"gte=1,lte=720"`
	MaxResults        int `yaml:"max_results" validate:"gte=1,lte=100"`
}

// WatchConfig configures the background departure watcher.
type WatchConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes" validate:"gte=1,lte=60"`
}

// Interval returns the polling interval as a duration.
func (w WatchConfig) Interval() time.Duration {
	return time.Duration(w.IntervalMinutes) * time.Minute
}

type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Board    BoardConfig    `yaml:"board"`
	Watch    WatchConfig    `yaml:"watch"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:        "https://www.bahn.de/web/api",
			TimeoutSeconds: 15,
		},
		Board: BoardConfig{
			TimeWindowMinutes: 60,
			MaxResults:        20,
		},
		Watch: WatchConfig{
			Enabled:         true,
			IntervalMinutes: 2,
		},
	}
}

// Load reads a YAML config file over the defaults and validates the
// result. An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c.Upstream); err != nil {
		return fmt.Errorf("upstream: %w", err)
	}
	if err := v.Struct(c.Board); err != nil {
		return fmt.Errorf("board: %w", err)
	}
	if err := v.Struct(c.Watch); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
