package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// DailyChallengeTool handles the coach_daily_challenge MCP tool.
type DailyChallengeTool struct {
	coach Coach
}

// NewDailyChallengeTool creates a DailyChallengeTool.
func NewDailyChallengeTool(c Coach) *DailyChallengeTool {
	return &DailyChallengeTool{coach: c}
}

// Definition returns the MCP tool definition for coach_daily_challenge.
func (t *DailyChallengeTool) Definition() mcp.Tool {
	return mcp.NewTool("coach_daily_challenge",
		mcp.WithDescription(
			"Get today's challenge for a user. The first call of the day generates one from the user's "+
				"tier, constraint, streak and recent history; later calls the same day return the same challenge.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The user to fetch the challenge for"),
		),
	)
}

// Handle processes the coach_daily_challenge tool call.
func (t *DailyChallengeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, errResult := requireUser(req)
	if errResult != nil {
		return errResult, nil
	}

	res, err := t.coach.DailyChallenge(ctx, userID)
	if err != nil {
		return serviceError(err)
	}

	var sb strings.Builder
	sb.WriteString("## Today's Challenge\n\n")
	writeChallenge(&sb, res.Challenge)
	sb.WriteString(fmt.Sprintf("\n**Streak**: %s\n", plural(res.Streak, "day")))
	if res.Challenge.Completed() {
		sb.WriteString("\nAlready completed today. Come back tomorrow for a new one.\n")
	} else {
		sb.WriteString(fmt.Sprintf("\nWhen the user finishes, call `coach_complete_challenge` with challenge_id `%s`.\n", res.Challenge.ID))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
