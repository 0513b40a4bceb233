// Package tools implements the MCP tool handlers for the business coach.
//
// Each tool is a struct that receives its dependencies through the
// constructor and exposes Definition and Handle for registration with
// mcp-go. Handlers return markdown for the host model to read.
//
// Design principles:
// - SRP: each file = one tool
// - DIP: tools depend on the Coach interface, not on *coach.Service
package tools

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/bizcoach/internal/coach"
	"github.com/HendryAvila/bizcoach/internal/scoring"
	"github.com/HendryAvila/bizcoach/internal/store"
)

// Coach is the application service the tools call into.
// *coach.Service satisfies it.
type Coach interface {
	Preview(userID string, in scoring.Input, constraintChoice string) coach.Decision
	Assess(ctx context.Context, req coach.AssessRequest) (*coach.AssessResult, error)
	LatestAssessment(ctx context.Context, userID string) (*store.Assessment, error)
	DailyChallenge(ctx context.Context, userID string) (*coach.DailyResult, error)
	CompleteChallenge(ctx context.Context, userID, challengeID string) (*coach.CompletionResult, error)
	History(ctx context.Context, userID string, limit int) (*coach.HistoryResult, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

// intArg extracts an integer argument from an MCP request.
// JSON numbers arrive as float64; values beyond int32 are clamped before
// conversion so huge inputs cannot wrap around to negatives.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok || math.IsNaN(v) {
		return defaultVal
	}
	return int(math.Max(math.MinInt32, math.Min(math.MaxInt32, v)))
}

// floatArg extracts an optional number. A missing or non-numeric value
// returns nil so "not provided" stays distinct from zero.
func floatArg(req mcp.CallToolRequest, key string) *float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil
	}
	return &v
}

// inputOptions are the onboarding answer parameters shared by
// coach_preview_score and coach_assess.
func inputOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("business_description",
			mcp.Description("What the business sells and to whom, in the user's words"),
		),
		mcp.WithString("biggest_challenge",
			mcp.Description("The user's biggest challenge right now, in their words"),
		),
		mcp.WithString("experience",
			mcp.Description("The user's prior business experience, in their words"),
		),
		mcp.WithString("stage",
			mcp.Description("Business stage as the user describes it (idea, launched, growing...)"),
		),
		mcp.WithString("industry",
			mcp.Description("Industry or market"),
		),
		mcp.WithString("revenue_bucket",
			mcp.Description("Monthly revenue band when the exact figure is unknown"),
			mcp.Enum("$0-$1K", "$1K-$10K", "$10K-$100K", "$100K-$1M", "$1M+"),
		),
		mcp.WithString("team_size",
			mcp.Description("Team size as the user describes it"),
		),
		mcp.WithNumber("monthly_revenue",
			mcp.Description("Exact monthly revenue. Wins over revenue_bucket when both are given."),
		),
		mcp.WithNumber("cac",
			mcp.Description("Customer acquisition cost, if the user knows it"),
		),
		mcp.WithNumber("ltv",
			mcp.Description("Customer lifetime value, if the user knows it"),
		),
		mcp.WithNumber("churn_rate",
			mcp.Description("Monthly churn as a percentage (5 = 5%) or ratio (0.05)"),
		),
		mcp.WithNumber("gross_margin",
			mcp.Description("Gross margin as a percentage (60 = 60%) or ratio (0.6)"),
		),
		mcp.WithString("constraint",
			mcp.Description("The constraint the user picked as their main bottleneck. Leave empty if they did not pick one."),
			mcp.Enum("leads", "sales", "delivery", "profit", "unsure"),
		),
	}
}

// inputFromRequest reads the onboarding answers. Every field is optional.
func inputFromRequest(req mcp.CallToolRequest) scoring.Input {
	return scoring.Input{
		BusinessDescription: req.GetString("business_description", ""),
		BiggestChallenge:    req.GetString("biggest_challenge", ""),
		Experience:          req.GetString("experience", ""),
		Stage:               req.GetString("stage", ""),
		Industry:            req.GetString("industry", ""),
		RevenueBucket:       req.GetString("revenue_bucket", ""),
		TeamSize:            req.GetString("team_size", ""),
		MonthlyRevenue:      floatArg(req, "monthly_revenue"),
		CAC:                 floatArg(req, "cac"),
		LTV:                 floatArg(req, "ltv"),
		ChurnRate:           floatArg(req, "churn_rate"),
		GrossMargin:         floatArg(req, "gross_margin"),
	}
}

// requireUser returns the trimmed user_id or a tool error result.
func requireUser(req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	userID := strings.TrimSpace(req.GetString("user_id", ""))
	if userID == "" {
		return "", mcp.NewToolResultError("'user_id' is required")
	}
	return userID, nil
}

// serviceError turns caller mistakes into tool errors and passes
// everything else through as an internal failure.
func serviceError(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, coach.ErrInvalidUser):
		return mcp.NewToolResultError("'user_id' is required"), nil
	case errors.Is(err, coach.ErrInvalidTimezone):
		return mcp.NewToolResultError(err.Error() + ". Use an IANA zone name such as America/Bogota."), nil
	case errors.Is(err, store.ErrNotFound):
		return mcp.NewToolResultError("challenge not found for this user. Call coach_challenge_history to list challenge IDs."), nil
	case errors.Is(err, store.ErrAlreadyCompleted):
		return mcp.NewToolResultError("challenge is already completed"), nil
	}
	return nil, err
}
