package tools

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/bizcoach/internal/challenge"
	"github.com/HendryAvila/bizcoach/internal/coach"
	"github.com/HendryAvila/bizcoach/internal/routing"
	"github.com/HendryAvila/bizcoach/internal/scheduler"
	"github.com/HendryAvila/bizcoach/internal/scoring"
	"github.com/HendryAvila/bizcoach/internal/store"
)

// newTestCoach builds a real service over a temp SQLite store.
func newTestCoach(t *testing.T) *coach.Service {
	t.Helper()
	st, err := store.New(store.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	n := 0
	sel := challenge.NewSelector(challenge.DefaultConfig(), rand.NewPCG(7, 8),
		challenge.WithIDGenerator(func() string { n++; return "ch-" + strconv.Itoa(n) }))
	return coach.New(st, sel, coach.WithLocation(time.UTC))
}

func callTool(t *testing.T, handle func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handle(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

// isErrorResult checks if a CallToolResult is an error result.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func assertContains(t *testing.T, text string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}
}

// advancedArgs scores 90: enterprise level, workspace selection route.
func advancedArgs(userID string) map[string]interface{} {
	return map[string]interface{}{
		"user_id":              userID,
		"business_description": "B2B SaaS with a repeatable sales process and strong retention",
		"experience":           "Scaled a previous company to 50 people",
		"monthly_revenue":      float64(200000),
		"cac":                  float64(800),
		"ltv":                  float64(9600),
		"churn_rate":           float64(2),
		"gross_margin":         float64(78),
	}
}

// --- inputFromRequest ---

func TestInputFromRequest(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{
		"stage":           "launched",
		"revenue_bucket":  "$1K-$10K",
		"cac":             float64(120),
		"churn_rate":      "five", // not a number
		"monthly_revenue": float64(0),
	}
	in := inputFromRequest(req)

	if in.Stage != "launched" || in.RevenueBucket != "$1K-$10K" {
		t.Errorf("text fields = %+v", in)
	}
	if in.CAC == nil || *in.CAC != 120 {
		t.Errorf("CAC = %v, want 120", in.CAC)
	}
	if in.ChurnRate != nil {
		t.Error("non-numeric churn_rate should be treated as missing")
	}
	if in.MonthlyRevenue == nil || *in.MonthlyRevenue != 0 {
		t.Error("explicit zero revenue should be kept")
	}
	if in.LTV != nil {
		t.Error("absent ltv should be nil")
	}
}

// --- PreviewScoreTool ---

func TestPreviewScoreTool_NothingSaved(t *testing.T) {
	svc := newTestCoach(t)
	tool := NewPreviewScoreTool(svc)

	result := callTool(t, tool.Handle, advancedArgs("u1"))
	if isErrorResult(result) {
		t.Fatalf("unexpected error result: %s", getResultText(result))
	}
	assertContains(t, getResultText(result),
		"## Score Preview", "**Sophistication score**: 90/100", "enterprise", "Nothing was saved")

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalAssessments != 0 || stats.TotalProfiles != 0 {
		t.Errorf("preview persisted data: %+v", stats)
	}
}

func TestPreviewScoreTool_Anonymous(t *testing.T) {
	tool := NewPreviewScoreTool(newTestCoach(t))
	result := callTool(t, tool.Handle, map[string]interface{}{})
	assertContains(t, getResultText(result), "**Sophistication score**: 0/100", "beginner", "none yet")
}

// --- AssessTool ---

func TestAssessTool(t *testing.T) {
	tool := NewAssessTool(newTestCoach(t))

	tests := []struct {
		name      string
		args      map[string]interface{}
		wantErr   bool
		wantTexts []string
	}{
		{
			name:      "missing user",
			args:      map[string]interface{}{"stage": "idea"},
			wantErr:   true,
			wantTexts: []string{"user_id"},
		},
		{
			name:      "bad timezone",
			args:      map[string]interface{}{"user_id": "u1", "timezone": "Mars/Olympus"},
			wantErr:   true,
			wantTexts: []string{"invalid timezone", "IANA"},
		},
		{
			name: "advanced operator",
			args: func() map[string]interface{} {
				a := advancedArgs("u1")
				a["constraint"] = "sales"
				a["timezone"] = "America/Bogota"
				a["preferred_difficulty"] = "hard"
				return a
			}(),
			wantTexts: []string{
				"## Assessment for u1",
				"**Sophistication score**: 90/100",
				"`workspace_selection`",
				"sales (confidence 85%, explicit)",
				"America/Bogota",
				"**Preferred difficulty**: hard",
				"coach_daily_challenge",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, tool.Handle, tt.args)
			if isErrorResult(result) != tt.wantErr {
				t.Fatalf("IsError = %v, want %v: %s", isErrorResult(result), tt.wantErr, getResultText(result))
			}
			assertContains(t, getResultText(result), tt.wantTexts...)
		})
	}
}

// --- ClassifyConstraintTool ---

func TestClassifyConstraintTool(t *testing.T) {
	tool := NewClassifyConstraintTool()
	tests := []struct {
		choice    string
		wantTexts []string
	}{
		{"lead generation", []string{"**Value**: leads", "85%", "`constraint_workspace`"}},
		{"Margins", []string{"**Value**: profit", "`financial_workspace`"}},
		{"unsure", []string{"**Value**: unknown", "50%", "explicit"}},
		{"", []string{"**Value**: unknown", "0%", "No explicit choice", "leads, sales, delivery, profit, unsure"}},
		{"we need more money", []string{"**Value**: unknown", "No explicit choice"}},
	}
	for _, tt := range tests {
		t.Run(tt.choice, func(t *testing.T) {
			result := callTool(t, tool.Handle, map[string]interface{}{"choice": tt.choice})
			if isErrorResult(result) {
				t.Fatalf("unexpected error result: %s", getResultText(result))
			}
			assertContains(t, getResultText(result), tt.wantTexts...)
		})
	}
}

// --- RecommendRouteTool ---

func TestRecommendRouteTool(t *testing.T) {
	tool := NewRecommendRouteTool(nil)
	tests := []struct {
		name      string
		args      map[string]interface{}
		wantErr   bool
		wantTexts []string
	}{
		{"missing score", map[string]interface{}{"constraint": "sales"}, true, []string{"score"}},
		{"high score", map[string]interface{}{"score": float64(85)}, false, []string{"`workspace_selection`", "enterprise"}},
		{"mid with constraint", map[string]interface{}{"score": float64(50), "constraint": "sales"}, false, []string{"`offer_workspace`"}},
		{"mid without constraint", map[string]interface{}{"score": float64(50)}, false, []string{"`guided_conversation`"}},
		{"mid unsure", map[string]interface{}{"score": float64(60), "constraint": "unsure"}, false, []string{"`guided_conversation`"}},
		{"clamped", map[string]interface{}{"score": float64(150)}, false, []string{"**Score**: 100", "`workspace_selection`"}},
		{"huge score clamps high", map[string]interface{}{"score": 1e20}, false, []string{"**Score**: 100", "`workspace_selection`", "enterprise"}},
		{"huge negative clamps low", map[string]interface{}{"score": -1e20}, false, []string{"**Score**: 0", "`guided_conversation`", "beginner"}},
		{"level override", map[string]interface{}{"score": float64(10), "level": "scale"}, false, []string{"**Level**: scale", "`guided_conversation`"}},
		{"rules listed", map[string]interface{}{"score": float64(0)}, false, []string{"1. score >= 80", "3. otherwise"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, tool.Handle, tt.args)
			if isErrorResult(result) != tt.wantErr {
				t.Fatalf("IsError = %v, want %v: %s", isErrorResult(result), tt.wantErr, getResultText(result))
			}
			assertContains(t, getResultText(result), tt.wantTexts...)
		})
	}
}

func TestRecommendRouteTool_CustomThresholds(t *testing.T) {
	tool := NewRecommendRouteTool(routing.NewResolver(95, 20))
	result := callTool(t, tool.Handle, map[string]interface{}{"score": float64(85), "constraint": "delivery"})
	assertContains(t, getResultText(result), "`implementation_workspace`", "score >= 95")
}

// --- DailyChallengeTool ---

func TestDailyChallengeTool(t *testing.T) {
	svc := newTestCoach(t)
	tool := NewDailyChallengeTool(svc)

	result := callTool(t, tool.Handle, map[string]interface{}{})
	if !isErrorResult(result) {
		t.Fatal("expected error for missing user_id")
	}

	first := getResultText(callTool(t, tool.Handle, map[string]interface{}{"user_id": "u1"}))
	assertContains(t, first, "## Today's Challenge", "`ch-1`", "**Streak**: 0 days", "coach_complete_challenge")

	second := getResultText(callTool(t, tool.Handle, map[string]interface{}{"user_id": "u1"}))
	assertContains(t, second, "`ch-1`")
	if strings.Contains(second, "ch-2") {
		t.Error("second call the same day should return the stored challenge")
	}
}

// --- CompleteChallengeTool ---

func TestCompleteChallengeTool(t *testing.T) {
	svc := newTestCoach(t)
	tool := NewCompleteChallengeTool(svc)

	daily, err := svc.DailyChallenge(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	id := daily.Challenge.ID

	tests := []struct {
		name      string
		args      map[string]interface{}
		wantErr   bool
		wantTexts []string
	}{
		{"missing challenge id", map[string]interface{}{"user_id": "u1"}, true, []string{"challenge_id"}},
		{"unknown challenge", map[string]interface{}{"user_id": "u1", "challenge_id": "nope"}, true, []string{"not found"}},
		{"other user's challenge", map[string]interface{}{"user_id": "u2", "challenge_id": id}, true, []string{"not found"}},
		{"complete", map[string]interface{}{"user_id": "u1", "challenge_id": id}, false, []string{
			"## Challenge Completed",
			"**XP earned**: " + strconv.Itoa(daily.Challenge.XPReward),
			"**Streak**: 1 day",
		}},
		{"repeat", map[string]interface{}{"user_id": "u1", "challenge_id": id}, true, []string{"already completed"}},
	}
	// Cases run in order; "repeat" depends on "complete".
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, tool.Handle, tt.args)
			if isErrorResult(result) != tt.wantErr {
				t.Fatalf("IsError = %v, want %v: %s", isErrorResult(result), tt.wantErr, getResultText(result))
			}
			assertContains(t, getResultText(result), tt.wantTexts...)
		})
	}
}

// --- ChallengeHistoryTool ---

func TestChallengeHistoryTool(t *testing.T) {
	svc := newTestCoach(t)
	tool := NewChallengeHistoryTool(svc)

	empty := getResultText(callTool(t, tool.Handle, map[string]interface{}{"user_id": "u1"}))
	assertContains(t, empty, "No challenges yet")

	if _, err := svc.DailyChallenge(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	text := getResultText(callTool(t, tool.Handle, map[string]interface{}{"user_id": "u1", "limit": float64(5)}))
	assertContains(t, text, "`ch-1`", "**Completed**: 0 of 1", "| no |")

	huge := getResultText(callTool(t, tool.Handle, map[string]interface{}{"user_id": "u1", "limit": 1e20}))
	assertContains(t, huge, "`ch-1`")
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		name string
		val  interface{}
		want int
	}{
		{"missing", nil, 10},
		{"not a number", "five", 10},
		{"plain", float64(5), 5},
		{"huge", 1e20, math.MaxInt32},
		{"huge negative", -1e20, math.MinInt32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.CallToolRequest{}
			req.Params.Arguments = map[string]interface{}{}
			if tt.val != nil {
				req.Params.Arguments = map[string]interface{}{"limit": tt.val}
			}
			if got := intArg(req, "limit", 10); got != tt.want {
				t.Errorf("intArg = %d, want %d", got, tt.want)
			}
		})
	}
}

// --- ProfileTool ---

func TestProfileTool(t *testing.T) {
	svc := newTestCoach(t)
	tool := NewProfileTool(svc)

	if result := callTool(t, tool.Handle, map[string]interface{}{}); !isErrorResult(result) {
		t.Error("expected error for missing user_id")
	}

	before := callTool(t, tool.Handle, map[string]interface{}{"user_id": "u1"})
	if isErrorResult(before) {
		t.Fatalf("no assessment is not an error: %s", getResultText(before))
	}
	assertContains(t, getResultText(before), "No assessment saved for u1", "coach_assess")

	args := advancedArgs("u1")
	args["constraint"] = "sales"
	if r := callTool(t, NewAssessTool(svc).Handle, args); isErrorResult(r) {
		t.Fatalf("assess: %s", getResultText(r))
	}

	after := getResultText(callTool(t, tool.Handle, map[string]interface{}{"user_id": "u1"}))
	assertContains(t, after,
		"## Profile for u1",
		"**Sophistication score**: 90/100",
		"enterprise",
		"level4",
		"sales (confidence 85%, explicit)",
		"`workspace_selection`",
	)
}

// --- StatsTool ---

func TestStatsTool(t *testing.T) {
	svc := newTestCoach(t)
	tool := NewStatsTool(svc, nil)

	assertContains(t, getResultText(callTool(t, tool.Handle, nil)), "**Profiles**: 0", "**Levels**: none", "Scheduler disabled")

	if _, err := svc.Assess(context.Background(), coach.AssessRequest{UserID: "u1", Input: scoring.Input{}}); err != nil {
		t.Fatal(err)
	}
	text := getResultText(callTool(t, tool.Handle, nil))
	assertContains(t, text, "**Profiles**: 1", "**Assessments**: 1", "beginner 1", "guided_conversation 1")
}

type fixedSchedule scheduler.Status

func (f fixedSchedule) Status() scheduler.Status { return scheduler.Status(f) }

func TestStatsTool_Schedule(t *testing.T) {
	next := time.Date(2026, 6, 2, 0, 5, 0, 0, time.UTC)
	tests := []struct {
		name      string
		status    scheduler.Status
		wantTexts []string
	}{
		{
			name:      "never ran",
			status:    scheduler.Status{Schedule: "5 0 * * *", NextRun: next},
			wantTexts: []string{"`5 0 * * *`", "Tue, 02 Jun 2026 00:05:00 UTC", "**Last run**: never"},
		},
		{
			name: "last run failed",
			status: scheduler.Status{
				Schedule: "5 0 * * *", NextRun: next,
				LastRun: next.Add(-24 * time.Hour), Served: 3, Error: "db locked",
			},
			wantTexts: []string{"3 users", "**Last error**: db locked"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := NewStatsTool(newTestCoach(t), fixedSchedule(tt.status))
			assertContains(t, getResultText(callTool(t, tool.Handle, nil)), tt.wantTexts...)
		})
	}
}

// --- Internal failures ---

// brokenCoach fails the calls it overrides; the rest are never reached.
type brokenCoach struct{ Coach }

var errDisk = errors.New("disk full")

func (brokenCoach) DailyChallenge(context.Context, string) (*coach.DailyResult, error) {
	return nil, errDisk
}

func (brokenCoach) Stats(context.Context) (*store.Stats, error) { return nil, errDisk }

func TestInternalErrorsPropagate(t *testing.T) {
	b := brokenCoach{}

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"user_id": "u1"}
	if _, err := NewDailyChallengeTool(b).Handle(context.Background(), req); !errors.Is(err, errDisk) {
		t.Errorf("err = %v, want internal error passed through", err)
	}

	result, err := NewStatsTool(b, nil).Handle(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("stats should report failures as a tool error, got %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "disk full") {
		t.Errorf("result = %s", getResultText(result))
	}
}
