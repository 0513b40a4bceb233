package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/bizcoach/internal/coach"
)

// AssessTool handles the coach_assess MCP tool.
type AssessTool struct {
	coach Coach
}

// NewAssessTool creates an AssessTool.
func NewAssessTool(c Coach) *AssessTool {
	return &AssessTool{coach: c}
}

// Definition returns the MCP tool definition for coach_assess.
func (t *AssessTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Classify a business owner from their onboarding answers and save the result. " +
				"Returns the sophistication score, business level, main constraint and the recommended route. " +
				"The saved profile drives daily challenges.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Stable identifier of the user being assessed"),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA time zone for challenge deadlines (e.g. America/Bogota). Keeps the saved value when empty."),
		),
		mcp.WithString("preferred_difficulty",
			mcp.Description("Pin daily challenges to one difficulty. Keeps the saved value when empty."),
			mcp.Enum("easy", "medium", "hard"),
		),
	}
	return mcp.NewTool("coach_assess", append(opts, inputOptions()...)...)
}

// Handle processes the coach_assess tool call.
func (t *AssessTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, errResult := requireUser(req)
	if errResult != nil {
		return errResult, nil
	}

	res, err := t.coach.Assess(ctx, coach.AssessRequest{
		UserID:              userID,
		Input:               inputFromRequest(req),
		ConstraintChoice:    req.GetString("constraint", ""),
		Timezone:            strings.TrimSpace(req.GetString("timezone", "")),
		PreferredDifficulty: req.GetString("preferred_difficulty", ""),
	})
	if err != nil {
		return serviceError(err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Assessment for %s\n\n", userID))
	writeDecision(&sb, res.Decision)
	sb.WriteString(fmt.Sprintf("\n- **Assessment ID**: `%s`\n", res.AssessmentID))
	if res.Profile != nil {
		if res.Profile.Timezone != "" {
			sb.WriteString(fmt.Sprintf("- **Timezone**: %s\n", res.Profile.Timezone))
		}
		if res.Profile.PreferredDifficulty != "" {
			sb.WriteString(fmt.Sprintf("- **Preferred difficulty**: %s\n", res.Profile.PreferredDifficulty))
		}
	}
	sb.WriteString("\nNext: call `coach_daily_challenge` to give the user their first challenge.\n")
	return mcp.NewToolResultText(sb.String()), nil
}
