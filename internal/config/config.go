// Package config loads and validates jobscout configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/seekwell/jobscout/internal/ratelimit"
)

// Config captures every service knob loaded from file and environment.
type Config struct {
	Logging    LoggingConfig             `mapstructure:"logging"`
	HTTP       HTTPConfig                `mapstructure:"http"`
	Fetch      FetchConfig               `mapstructure:"fetch"`
	State      StateConfig               `mapstructure:"state"`
	RateLimits map[string][]WindowConfig `mapstructure:"rate_limits"`
	// RateLimitAliases maps a source name onto a shared quota bucket, for
	// sources that hit the same upstream API. Unlisted sources get their own
	// bucket under their own name.
	RateLimitAliases map[string]string `mapstructure:"rate_limit_aliases"`
	Sources          SourcesConfig     `mapstructure:"sources"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HTTPConfig tunes the shared retrying HTTP client.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// FetchConfig governs the orchestrator pool.
type FetchConfig struct {
	Workers   int    `mapstructure:"workers"`
	UserAgent string `mapstructure:"user_agent"`
}

// StateConfig locates the durable cross-run state files.
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// RateLimitPath returns the sqlite event-log location.
func (s StateConfig) RateLimitPath() string {
	return filepath.Join(s.Dir, "ratelimit.db")
}

// TrackerPath returns the seen-postings state location.
func (s StateConfig) TrackerPath() string {
	return filepath.Join(s.Dir, "tracker.json")
}

// WindowConfig is one rolling-window override for a backend.
type WindowConfig struct {
	Limit int           `mapstructure:"limit"`
	Span  time.Duration `mapstructure:"span"`
}

// SourcesConfig carries per-source credentials. Missing credentials are
// not an error; the affected source degrades to zero results at run time.
type SourcesConfig struct {
	USAJobsKey   string `mapstructure:"usajobs_key"`
	USAJobsEmail string `mapstructure:"usajobs_email"`
	AdzunaAppID  string `mapstructure:"adzuna_app_id"`
	AdzunaAppKey string `mapstructure:"adzuna_app_key"`
	JoobleKey    string `mapstructure:"jooble_key"`
}

// Load builds a Config from an optional file plus JOBSCOUT_* environment
// variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("fetch.workers", 4)
	v.SetDefault("fetch.user_agent", "jobscout/1.0")
	v.SetDefault("state.dir", defaultStateDir())
}

// Validate enforces structural constraints. Per-backend rate-limit
// overrides are deliberately not validated here: the limiter validates
// them itself and falls back to defaults with a warning, never a hard
// failure.
func (c *Config) Validate() error {
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be positive, got %d", c.Fetch.Workers)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be positive, got %d", c.HTTP.TimeoutSeconds)
	}
	if c.State.Dir == "" {
		return fmt.Errorf("state.dir must be set")
	}
	return nil
}

// RateLimitOverrides converts configured windows into limiter form.
func (c *Config) RateLimitOverrides() map[string][]ratelimit.Window {
	if len(c.RateLimits) == 0 {
		return nil
	}
	out := make(map[string][]ratelimit.Window, len(c.RateLimits))
	for backend, windows := range c.RateLimits {
		converted := make([]ratelimit.Window, 0, len(windows))
		for _, w := range windows {
			converted = append(converted, ratelimit.Window{Limit: w.Limit, Span: w.Span})
		}
		out[backend] = converted
	}
	return out
}

func defaultStateDir() string {
	return filepath.Join(".", ".jobscout")
}
