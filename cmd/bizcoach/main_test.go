package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/HendryAvila/bizcoach/internal/coach"
	"github.com/HendryAvila/bizcoach/internal/constraint"
	"github.com/HendryAvila/bizcoach/internal/routing"
	"github.com/HendryAvila/bizcoach/internal/scoring"
)

// isolateConfig keeps config.Load away from the developer's files.
func isolateConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("BIZCOACH_CONFIG", dir+"/none.yaml")
	t.Setenv("BIZCOACH_DATA_DIR", dir)
	t.Setenv("BIZCOACH_ROUTE_HIGH", "")
	t.Setenv("BIZCOACH_ROUTE_MID", "")
}

func TestRunAssess(t *testing.T) {
	isolateConfig(t)

	in := `{"revenue_bucket":"$10K-$100K","cac":100,"ltv":900,"gross_margin":40,"constraint":"delivery"}`
	var out bytes.Buffer
	if err := runAssess(strings.NewReader(in), &out); err != nil {
		t.Fatalf("runAssess: %v", err)
	}

	var d coach.Decision
	if err := json.Unmarshal(out.Bytes(), &d); err != nil {
		t.Fatalf("output is not a decision: %v\n%s", err, out.String())
	}
	if d.Score.Total != 45 {
		t.Errorf("Total = %d, want 45", d.Score.Total)
	}
	if d.Level != scoring.LevelGrowth {
		t.Errorf("Level = %s", d.Level)
	}
	if d.Constraint.Value != constraint.Delivery {
		t.Errorf("Constraint = %+v", d.Constraint)
	}
	if d.Route != routing.RouteImplementation {
		t.Errorf("Route = %s", d.Route)
	}
}

func TestRunAssess_BadInput(t *testing.T) {
	isolateConfig(t)

	tests := []struct {
		name string
		in   string
	}{
		{"not json", "revenue: lots"},
		{"unknown field", `{"revenue":1000}`},
		{"wrong type", `{"cac":"cheap"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := runAssess(strings.NewReader(tt.in), &out); err == nil {
				t.Errorf("expected error, got output %s", out.String())
			}
		})
	}
}
