// Package config loads bizcoach configuration.
//
// Configuration is layered, highest priority first:
//  1. Environment variables (BIZCOACH_*)
//  2. Project config (.bizcoach/config.yaml in cwd, or BIZCOACH_CONFIG)
//  3. Home config (~/.bizcoach/config.yaml)
//  4. Defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/bizcoach/internal/challenge"
	"github.com/HendryAvila/bizcoach/internal/routing"
)

// Config holds all bizcoach configuration.
type Config struct {
	// DataDir holds the SQLite database (default: ~/.bizcoach).
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Timezone is the IANA zone used for challenge deadlines and streaks
	// when a profile has none. Empty means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	Log        LogConfig        `yaml:"log" json:"log"`
	Selector   SelectorConfig   `yaml:"selector" json:"selector"`
	Routing    RoutingConfig    `yaml:"routing" json:"routing"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" json:"scheduler"`
	Onboarding OnboardingConfig `yaml:"onboarding" json:"onboarding"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	// Mode is "dev" (console) or "prod" (JSON).
	Mode     string `yaml:"mode" json:"mode"`
	Level    string `yaml:"level" json:"level"`
	HashSalt string `yaml:"hash_salt" json:"-"`
}

// SelectorConfig tunes daily challenge selection. Windows are Go
// duration strings ("168h").
//
// UniformStreakThreshold and DecayFloor are pointers because zero is a
// meaningful setting for both; nil keeps the selector default.
type SelectorConfig struct {
	UniformStreakThreshold *int     `yaml:"uniform_streak_threshold" json:"uniform_streak_threshold"`
	HistoryWindow          string   `yaml:"history_window" json:"history_window"`
	DecayWindow            string   `yaml:"decay_window" json:"decay_window"`
	DecayFactor            float64  `yaml:"decay_factor" json:"decay_factor"`
	DecayFloor             *float64 `yaml:"decay_floor" json:"decay_floor"`
}

// RoutingConfig holds the route score thresholds.
type RoutingConfig struct {
	HighThreshold int `yaml:"high_threshold" json:"high_threshold"`
	MidThreshold  int `yaml:"mid_threshold" json:"mid_threshold"`
}

// SchedulerConfig controls the daily challenge pre-generation job.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Spec is a standard five-field cron expression.
	Spec string `yaml:"spec" json:"spec"`
}

// OnboardingConfig bounds the in-memory state kept between score previews.
type OnboardingConfig struct {
	// MaxSessions caps how many users can be mid-onboarding at once.
	MaxSessions int `yaml:"max_sessions" json:"max_sessions"`
	// SessionTTL is a Go duration; an idle session older than this starts over.
	SessionTTL string `yaml:"session_ttl" json:"session_ttl"`
}

// Default onboarding bounds.
const (
	DefaultMaxSessions = 1024
	DefaultSessionTTL  = 24 * time.Hour
)

// DefaultSchedule runs five minutes after local midnight.
const DefaultSchedule = "5 0 * * *"

// userHomeDir and getwd are package-level vars for testability.
var (
	userHomeDir = os.UserHomeDir
	getwd       = os.Getwd
)

// Default returns the default configuration.
func Default() *Config {
	home, _ := userHomeDir()
	sel := challenge.DefaultConfig()
	return &Config{
		DataDir: filepath.Join(home, ".bizcoach"),
		Log:     LogConfig{Mode: "dev", Level: "info"},
		Selector: SelectorConfig{
			UniformStreakThreshold: &sel.UniformStreakThreshold,
			HistoryWindow:          sel.HistoryWindow.String(),
			DecayWindow:            sel.DecayWindow.String(),
			DecayFactor:            sel.DecayFactor,
			DecayFloor:             &sel.DecayFloor,
		},
		Routing: RoutingConfig{
			HighThreshold: routing.DefaultHighThreshold,
			MidThreshold:  routing.DefaultMidThreshold,
		},
		Scheduler: SchedulerConfig{Spec: DefaultSchedule},
		Onboarding: OnboardingConfig{
			MaxSessions: DefaultMaxSessions,
			SessionTTL:  DefaultSessionTTL.String(),
		},
	}
}

// Load loads configuration with proper precedence and validates it.
func Load() (*Config, error) {
	cfg := Default()
	for _, path := range []string{homeConfigPath(), projectConfigPath()} {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func homeConfigPath() string {
	home, err := userHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bizcoach", "config.yaml")
}

func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("BIZCOACH_CONFIG")); override != "" {
		return override
	}
	cwd, err := getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".bizcoach", "config.yaml")
}

// overlay decodes the YAML file at path on top of c. Keys absent from the
// file keep their current values. A missing file is not an error.
func (c *Config) overlay(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// applyEnv applies environment variable overrides. Unparseable numbers and
// booleans are ignored.
func applyEnv(cfg *Config) {
	if v := os.Getenv("BIZCOACH_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("BIZCOACH_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("BIZCOACH_LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
	if v := os.Getenv("BIZCOACH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BIZCOACH_LOG_HASH_SALT"); v != "" {
		cfg.Log.HashSalt = v
	}
	if v, ok := envInt("BIZCOACH_ROUTE_HIGH"); ok {
		cfg.Routing.HighThreshold = v
	}
	if v, ok := envInt("BIZCOACH_ROUTE_MID"); ok {
		cfg.Routing.MidThreshold = v
	}
	if v, ok := envInt("BIZCOACH_UNIFORM_STREAK"); ok {
		cfg.Selector.UniformStreakThreshold = &v
	}
	if v, err := strconv.ParseBool(os.Getenv("BIZCOACH_SCHEDULER")); err == nil {
		cfg.Scheduler.Enabled = v
	}
	if v := os.Getenv("BIZCOACH_SCHEDULE"); v != "" {
		cfg.Scheduler.Spec = v
	}
}

func envInt(key string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate normalizes values that have a safe interpretation and rejects
// the rest. Route thresholds are clamped to 0..100, an empty log mode or
// schedule gets its default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: data_dir is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.SelectorConfig(); err != nil {
		return err
	}
	if _, _, err := c.Sessions(); err != nil {
		return err
	}

	c.Routing.HighThreshold = clampPercent(c.Routing.HighThreshold)
	c.Routing.MidThreshold = clampPercent(c.Routing.MidThreshold)

	switch strings.ToLower(c.Log.Mode) {
	case "":
		c.Log.Mode = "dev"
	case "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("config: invalid log mode %q (use dev or prod)", c.Log.Mode)
	}
	if strings.TrimSpace(c.Scheduler.Spec) == "" {
		c.Scheduler.Spec = DefaultSchedule
	}
	return nil
}

// Location resolves Timezone. Empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SelectorConfig converts the YAML form into a challenge.Config. Empty
// windows, a zero decay factor and nil pointers keep the selector defaults.
func (c *Config) SelectorConfig() (challenge.Config, error) {
	out := challenge.DefaultConfig()
	s := c.Selector
	if s.UniformStreakThreshold != nil {
		if *s.UniformStreakThreshold < 0 {
			return out, fmt.Errorf("config: uniform_streak_threshold must not be negative, got %d", *s.UniformStreakThreshold)
		}
		out.UniformStreakThreshold = *s.UniformStreakThreshold
	}
	var err error
	if out.HistoryWindow, err = parseWindow("history_window", s.HistoryWindow, out.HistoryWindow); err != nil {
		return out, err
	}
	if out.DecayWindow, err = parseWindow("decay_window", s.DecayWindow, out.DecayWindow); err != nil {
		return out, err
	}
	if s.DecayFactor != 0 {
		if s.DecayFactor <= 0 || s.DecayFactor >= 1 {
			return out, fmt.Errorf("config: decay_factor must be between 0 and 1, got %v", s.DecayFactor)
		}
		out.DecayFactor = s.DecayFactor
	}
	if s.DecayFloor != nil {
		if *s.DecayFloor < 0 || *s.DecayFloor > 1 {
			return out, fmt.Errorf("config: decay_floor must be between 0 and 1, got %v", *s.DecayFloor)
		}
		out.DecayFloor = *s.DecayFloor
	}
	return out, nil
}

// Sessions returns the onboarding session cap and idle TTL. Zero values
// keep the defaults.
func (c *Config) Sessions() (int, time.Duration, error) {
	limit := c.Onboarding.MaxSessions
	if limit < 0 {
		return 0, 0, fmt.Errorf("config: max_sessions must not be negative, got %d", limit)
	}
	if limit == 0 {
		limit = DefaultMaxSessions
	}
	ttl, err := parseWindow("session_ttl", c.Onboarding.SessionTTL, DefaultSessionTTL)
	if err != nil {
		return 0, 0, err
	}
	return limit, ttl, nil
}

// Resolver builds the route resolver from the configured thresholds.
func (c *Config) Resolver() *routing.Resolver {
	return routing.NewResolver(c.Routing.HighThreshold, c.Routing.MidThreshold)
}

func parseWindow(name, raw string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %s", name, raw)
	}
	return d, nil
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
