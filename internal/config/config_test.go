package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/bizcoach/internal/challenge"
)

// isolate points home and cwd at temp dirs and clears BIZCOACH_* vars.
func isolate(t *testing.T) (home, cwd string) {
	t.Helper()
	home, cwd = t.TempDir(), t.TempDir()

	origHome, origWd := userHomeDir, getwd
	userHomeDir = func() (string, error) { return home, nil }
	getwd = func() (string, error) { return cwd, nil }
	t.Cleanup(func() { userHomeDir, getwd = origHome, origWd })

	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, "BIZCOACH_") {
			t.Setenv(k, "")
		}
	}
	return home, cwd
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ".bizcoach", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- Defaults ---

func TestDefault(t *testing.T) {
	home, _ := isolate(t)
	cfg := Default()

	if cfg.DataDir != filepath.Join(home, ".bizcoach") {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.Routing.HighThreshold != 80 || cfg.Routing.MidThreshold != 40 {
		t.Errorf("Routing = %+v, want 80/40", cfg.Routing)
	}
	if cfg.Scheduler.Enabled {
		t.Error("scheduler should be off by default")
	}
	if cfg.Scheduler.Spec != DefaultSchedule {
		t.Errorf("Spec = %q", cfg.Scheduler.Spec)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestDefault_SelectorRoundTrips(t *testing.T) {
	isolate(t)
	got, err := Default().SelectorConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got != challenge.DefaultConfig() {
		t.Errorf("SelectorConfig = %+v, want %+v", got, challenge.DefaultConfig())
	}
}

// --- Layering ---

func TestLoad_NoFiles(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Log.Mode != "dev" {
		t.Errorf("Log.Mode = %s, want dev", cfg.Log.Mode)
	}
}

func TestLoad_ProjectOverridesHome(t *testing.T) {
	home, cwd := isolate(t)
	writeConfig(t, home, "timezone: America/New_York\nrouting:\n  high_threshold: 90\n  mid_threshold: 30\n")
	writeConfig(t, cwd, "routing:\n  high_threshold: 70\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Routing.HighThreshold != 70 {
		t.Errorf("HighThreshold = %d, want project value 70", cfg.Routing.HighThreshold)
	}
	if cfg.Routing.MidThreshold != 30 {
		t.Errorf("MidThreshold = %d, want home value 30", cfg.Routing.MidThreshold)
	}
	if cfg.Timezone != "America/New_York" {
		t.Errorf("Timezone = %s, want home value", cfg.Timezone)
	}
}

func TestLoad_ConfigPathOverride(t *testing.T) {
	_, cwd := isolate(t)
	path := filepath.Join(cwd, "custom.yaml")
	if err := os.WriteFile(path, []byte("data_dir: /srv/coach\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BIZCOACH_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != "/srv/coach" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
}

func TestLoad_EnvWins(t *testing.T) {
	_, cwd := isolate(t)
	writeConfig(t, cwd, "scheduler:\n  enabled: false\nrouting:\n  high_threshold: 70\n")
	t.Setenv("BIZCOACH_SCHEDULER", "true")
	t.Setenv("BIZCOACH_ROUTE_HIGH", "85")
	t.Setenv("BIZCOACH_ROUTE_MID", "not-a-number")
	t.Setenv("BIZCOACH_LOG_MODE", "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Scheduler.Enabled {
		t.Error("BIZCOACH_SCHEDULER should enable the scheduler")
	}
	if cfg.Routing.HighThreshold != 85 {
		t.Errorf("HighThreshold = %d, want 85", cfg.Routing.HighThreshold)
	}
	if cfg.Routing.MidThreshold != 40 {
		t.Errorf("MidThreshold = %d, bad env value should be ignored", cfg.Routing.MidThreshold)
	}
	if cfg.Log.Mode != "prod" {
		t.Errorf("Log.Mode = %s", cfg.Log.Mode)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, cwd := isolate(t)
	writeConfig(t, cwd, "routing: [unclosed\n")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

// --- Validate ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
		check   func(*testing.T, *Config)
	}{
		{
			name:   "thresholds clamped",
			mutate: func(c *Config) { c.Routing.HighThreshold = 150; c.Routing.MidThreshold = -3 },
			check: func(t *testing.T, c *Config) {
				if c.Routing.HighThreshold != 100 || c.Routing.MidThreshold != 0 {
					t.Errorf("Routing = %+v", c.Routing)
				}
			},
		},
		{
			name:   "empty schedule defaulted",
			mutate: func(c *Config) { c.Scheduler.Spec = " " },
			check: func(t *testing.T, c *Config) {
				if c.Scheduler.Spec != DefaultSchedule {
					t.Errorf("Spec = %q", c.Scheduler.Spec)
				}
			},
		},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
		{name: "bad log mode", mutate: func(c *Config) { c.Log.Mode = "loud" }, wantErr: "log mode"},
		{name: "empty data dir", mutate: func(c *Config) { c.DataDir = "" }, wantErr: "data_dir"},
		{name: "bad window", mutate: func(c *Config) { c.Selector.DecayWindow = "a week" }, wantErr: "decay_window"},
		{name: "negative window", mutate: func(c *Config) { c.Selector.HistoryWindow = "-1h" }, wantErr: "positive"},
		{name: "decay factor of one", mutate: func(c *Config) { c.Selector.DecayFactor = 1 }, wantErr: "decay_factor"},
		{name: "decay floor above one", mutate: func(c *Config) { c.Selector.DecayFloor = ptr(1.5) }, wantErr: "decay_floor"},
		{name: "negative uniform threshold", mutate: func(c *Config) { c.Selector.UniformStreakThreshold = ptr(-1) }, wantErr: "uniform_streak_threshold"},
		{name: "negative max sessions", mutate: func(c *Config) { c.Onboarding.MaxSessions = -5 }, wantErr: "max_sessions"},
		{name: "bad session ttl", mutate: func(c *Config) { c.Onboarding.SessionTTL = "forever" }, wantErr: "session_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

// --- Derived values ---

func TestSelectorConfig_Overrides(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Selector = SelectorConfig{UniformStreakThreshold: ptr(10), DecayWindow: "72h", DecayFactor: 0.5}

	got, err := cfg.SelectorConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got.UniformStreakThreshold != 10 || got.DecayWindow != 72*time.Hour || got.DecayFactor != 0.5 {
		t.Errorf("SelectorConfig = %+v", got)
	}
	if got.DecayFloor != challenge.DefaultDecayFloor || got.HistoryWindow != challenge.DefaultHistoryWindow {
		t.Errorf("unset fields should keep defaults: %+v", got)
	}
}

func TestLoad_ExplicitZeroSelectorValues(t *testing.T) {
	_, cwd := isolate(t)
	writeConfig(t, cwd, "selector:\n  uniform_streak_threshold: 0\n  decay_floor: 0\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	got, err := cfg.SelectorConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got.UniformStreakThreshold != 0 {
		t.Errorf("UniformStreakThreshold = %d, want explicit 0", got.UniformStreakThreshold)
	}
	if got.DecayFloor != 0 {
		t.Errorf("DecayFloor = %v, want explicit 0", got.DecayFloor)
	}
}

func TestSessions(t *testing.T) {
	isolate(t)
	cfg := Default()
	limit, ttl, err := cfg.Sessions()
	if err != nil {
		t.Fatal(err)
	}
	if limit != DefaultMaxSessions || ttl != DefaultSessionTTL {
		t.Errorf("defaults = %d, %s", limit, ttl)
	}

	cfg.Onboarding = OnboardingConfig{MaxSessions: 10, SessionTTL: "30m"}
	if limit, ttl, _ = cfg.Sessions(); limit != 10 || ttl != 30*time.Minute {
		t.Errorf("overrides = %d, %s", limit, ttl)
	}
}

func ptr[T any](v T) *T { return &v }

func TestLocation(t *testing.T) {
	isolate(t)
	cfg := Default()
	if loc, err := cfg.Location(); err != nil || loc != time.Local {
		t.Errorf("empty timezone: got %v, %v", loc, err)
	}
	cfg.Timezone = "Europe/Madrid"
	loc, err := cfg.Location()
	if err != nil {
		t.Fatal(err)
	}
	if loc.String() != "Europe/Madrid" {
		t.Errorf("Location = %s", loc)
	}
}

func TestResolver(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Routing.HighThreshold = 60
	if r := cfg.Resolver(); r.HighThreshold != 60 {
		t.Errorf("Resolver.HighThreshold = %d", r.HighThreshold)
	}
}
