package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// CompleteChallengeTool handles the coach_complete_challenge MCP tool.
type CompleteChallengeTool struct {
	coach Coach
}

// NewCompleteChallengeTool creates a CompleteChallengeTool.
func NewCompleteChallengeTool(c Coach) *CompleteChallengeTool {
	return &CompleteChallengeTool{coach: c}
}

// Definition returns the MCP tool definition for coach_complete_challenge.
func (t *CompleteChallengeTool) Definition() mcp.Tool {
	return mcp.NewTool("coach_complete_challenge",
		mcp.WithDescription(
			"Mark one of the user's challenges as done. Awards its XP and updates the streak. "+
				"A challenge can only be completed once.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The user who completed the challenge"),
		),
		mcp.WithString("challenge_id",
			mcp.Required(),
			mcp.Description("ID returned by coach_daily_challenge"),
		),
	)
}

// Handle processes the coach_complete_challenge tool call.
func (t *CompleteChallengeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, errResult := requireUser(req)
	if errResult != nil {
		return errResult, nil
	}
	challengeID := strings.TrimSpace(req.GetString("challenge_id", ""))
	if challengeID == "" {
		return mcp.NewToolResultError("'challenge_id' is required"), nil
	}

	res, err := t.coach.CompleteChallenge(ctx, userID, challengeID)
	if err != nil {
		return serviceError(err)
	}

	var sb strings.Builder
	sb.WriteString("## Challenge Completed\n\n")
	sb.WriteString(fmt.Sprintf("- **Challenge**: %s\n", res.Challenge.Title))
	sb.WriteString(fmt.Sprintf("- **XP earned**: %d\n", res.XPEarned))
	sb.WriteString(fmt.Sprintf("- **Streak**: %s\n", plural(res.Streak, "day")))
	if res.Late {
		sb.WriteString("\nFinished after the deadline. It still counts.\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
