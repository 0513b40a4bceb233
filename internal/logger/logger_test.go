package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(t *testing.T) (*Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return FromZap(zap.New(core)), logs
}

func TestLogger_HashesUserIDs(t *testing.T) {
	l, logs := observed(t)
	l.Info("assessment saved", "user_id", "alice", "score", 42)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	got, _ := fields["user_id"].(string)
	if !strings.HasPrefix(got, "hash:") || strings.Contains(got, "alice") {
		t.Errorf("user_id = %q, want hashed value", got)
	}
	if fields["score"] != int64(42) {
		t.Errorf("score = %v, want 42", fields["score"])
	}
}

func TestLogger_RedactsFreeText(t *testing.T) {
	l, logs := observed(t)
	l.Warn("bad input", "business_description", "we sell to Acme for $40k", "stage", "growth")

	fields := logs.All()[0].ContextMap()
	if fields["business_description"] != "[REDACTED]" {
		t.Errorf("business_description = %v, want redacted", fields["business_description"])
	}
	if fields["stage"] != "growth" {
		t.Errorf("stage = %v, want growth", fields["stage"])
	}
}

func TestLogger_WithKeepsSanitizing(t *testing.T) {
	l, logs := observed(t)
	l.With("user_id", "bob").Error("boom")

	got, _ := logs.All()[0].ContextMap()["user_id"].(string)
	if !strings.HasPrefix(got, "hash:") {
		t.Errorf("user_id = %q, want hashed value", got)
	}
}

func TestLogger_OddKeyValues(t *testing.T) {
	l, logs := observed(t)
	l.Debug("dangling", "only-key")
	if logs.FilterMessage("dangling").Len() != 1 {
		t.Fatal("message with a dangling key was not logged")
	}
}

func TestHashValue_Salted(t *testing.T) {
	a := hashValue("", "alice")
	b := hashValue("pepper", "alice")
	if a == b {
		t.Error("salt should change the hash")
	}
	if hashValue("", "") != "" {
		t.Error("empty value should hash to empty")
	}
}

func TestNew_RejectsBadLevel(t *testing.T) {
	if _, err := New("dev", Options{Level: "chatty"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("nothing", "user_id", "x")
	l.Sync()
}
