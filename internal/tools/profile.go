package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/bizcoach/internal/challenge"
	"github.com/HendryAvila/bizcoach/internal/coach"
	"github.com/HendryAvila/bizcoach/internal/store"
)

// ProfileTool handles the coach_profile MCP tool.
type ProfileTool struct {
	coach Coach
}

// NewProfileTool creates a ProfileTool.
func NewProfileTool(c Coach) *ProfileTool {
	return &ProfileTool{coach: c}
}

// Definition returns the MCP tool definition for coach_profile.
func (t *ProfileTool) Definition() mcp.Tool {
	return mcp.NewTool("coach_profile",
		mcp.WithDescription(
			"Show the user's most recent saved assessment: score breakdown, level, constraint, route and signals. "+
				"Use it at the start of a session to pick up where the user left off instead of re-assessing.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Stable identifier for the user"),
		),
	)
}

// Handle processes the coach_profile tool call.
func (t *ProfileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, errResult := requireUser(req)
	if errResult != nil {
		return errResult, nil
	}

	a, err := t.coach.LatestAssessment(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultText(fmt.Sprintf(
			"No assessment saved for %s yet. Run the onboarding and call `coach_assess` first.", userID)), nil
	}
	if err != nil {
		return serviceError(err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Profile for %s\n\n", userID))
	sb.WriteString(fmt.Sprintf("Last assessed %s (`%s`).\n\n", a.CreatedAt.Format(time.RFC1123), a.ID))
	writeDecision(&sb, coach.Decision{
		Signals:    a.Signals,
		Score:      a.Score,
		Level:      a.Level,
		Constraint: a.Constraint,
		Route:      a.Route,
		Tier:       challenge.TierFromScore(a.Score.Total),
	})
	return mcp.NewToolResultText(sb.String()), nil
}
