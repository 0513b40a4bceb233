package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/HendryAvila/bizcoach/internal/config"
	"github.com/HendryAvila/bizcoach/internal/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Timezone = "UTC"
	return cfg
}

// call sends one JSON-RPC message and returns the raw JSON response.
func call(t *testing.T, s *server.MCPServer, msg string) string {
	t.Helper()
	resp := s.HandleMessage(context.Background(), json.RawMessage(msg))
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return string(data)
}

func initialize(t *testing.T, s *server.MCPServer) {
	t.Helper()
	call(t, s, `{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`)
}

func TestNew_RegistersEverything(t *testing.T) {
	s, cleanup, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()
	initialize(t, s)

	toolList := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	for _, name := range []string{
		"coach_preview_score",
		"coach_assess",
		"coach_classify_constraint",
		"coach_recommend_route",
		"coach_profile",
		"coach_daily_challenge",
		"coach_complete_challenge",
		"coach_challenge_history",
		"coach_stats",
	} {
		if !strings.Contains(toolList, `"`+name+`"`) {
			t.Errorf("tool %s not registered", name)
		}
	}

	if got := call(t, s, `{"jsonrpc":"2.0","id":2,"method":"prompts/list"}`); !strings.Contains(got, "coach-onboarding") {
		t.Errorf("prompt not registered: %s", got)
	}

	got := call(t, s, `{"jsonrpc":"2.0","id":3,"method":"resources/list"}`)
	for _, uri := range []string{"coach://rules", "coach://challenges/catalog"} {
		if !strings.Contains(got, uri) {
			t.Errorf("resource %s not registered", uri)
		}
	}
}

func TestNew_ToolCallRoundTrip(t *testing.T) {
	s, cleanup, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()
	initialize(t, s)

	got := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"coach_recommend_route","arguments":{"score":85}}}`)
	if !strings.Contains(got, "workspace_selection") {
		t.Errorf("unexpected tool response: %s", got)
	}
}

func TestNew_Scheduler(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"valid spec", "5 0 * * *"},
		{"bad spec keeps serving", "every midnight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Scheduler.Enabled = true
			cfg.Scheduler.Spec = tt.spec

			s, cleanup, err := New(cfg, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if s == nil {
				t.Fatal("server is nil")
			}
			cleanup()
		})
	}
}

func TestNew_SchedulerStatusInStats(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := testConfig(t)
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.Spec = "5 0 * * *"

	s, cleanup, err := New(cfg, logger.FromZap(zap.New(core)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()
	initialize(t, s)

	if n := logs.FilterMessage("scheduler started").Len(); n != 1 {
		t.Errorf("scheduler started logged %d times, want 1", n)
	}

	got := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"coach_stats","arguments":{}}}`)
	for _, want := range []string{"5 0 * * *", "Last run**: never"} {
		if !strings.Contains(got, want) {
			t.Errorf("stats missing %q: %s", want, got)
		}
	}
}

func TestNew_SchedulerDisabledInStats(t *testing.T) {
	s, cleanup, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()
	initialize(t, s)

	got := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"coach_stats","arguments":{}}}`)
	if !strings.Contains(got, "Scheduler disabled") {
		t.Errorf("stats should report the disabled scheduler: %s", got)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad timezone", func(c *config.Config) { c.Timezone = "Nowhere/Land" }},
		{"bad selector window", func(c *config.Config) { c.Selector.DecayWindow = "soon" }},
		{"bad session ttl", func(c *config.Config) { c.Onboarding.SessionTTL = "forever" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, cleanup, err := New(cfg, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if cleanup == nil {
				t.Fatal("cleanup must be non-nil")
			}
			cleanup()
		})
	}
}

func TestServerInstructions_MentionTools(t *testing.T) {
	text := serverInstructions()
	for _, want := range []string{"coach_assess", "coach_daily_challenge", "coach_profile", "coach-onboarding", "coach://rules"} {
		if !strings.Contains(text, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}

func TestPregenerate_EmptyStore(t *testing.T) {
	n, err := Pregenerate(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("Pregenerate: %v", err)
	}
	if n != 0 {
		t.Errorf("served = %d, want 0 with no profiles", n)
	}
}
