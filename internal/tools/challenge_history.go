package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// defaultHistoryLimit is how many challenges are listed when no limit is given.
const defaultHistoryLimit = 10

// ChallengeHistoryTool handles the coach_challenge_history MCP tool.
type ChallengeHistoryTool struct {
	coach Coach
}

// NewChallengeHistoryTool creates a ChallengeHistoryTool.
func NewChallengeHistoryTool(c Coach) *ChallengeHistoryTool {
	return &ChallengeHistoryTool{coach: c}
}

// Definition returns the MCP tool definition for coach_challenge_history.
func (t *ChallengeHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("coach_challenge_history",
		mcp.WithDescription(
			"List a user's recent challenges, newest first, with completion status and the current streak.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The user whose history to list"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of challenges (default: 10)"),
		),
	)
}

// Handle processes the coach_challenge_history tool call.
func (t *ChallengeHistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, errResult := requireUser(req)
	if errResult != nil {
		return errResult, nil
	}
	limit := intArg(req, "limit", defaultHistoryLimit)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	res, err := t.coach.History(ctx, userID, limit)
	if err != nil {
		return serviceError(err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Challenge History for %s\n\n", userID))
	if len(res.Challenges) == 0 {
		sb.WriteString("No challenges yet. Call `coach_daily_challenge` to generate the first one.\n")
		return mcp.NewToolResultText(sb.String()), nil
	}

	sb.WriteString(fmt.Sprintf("**Streak**: %s · **Completed**: %d of %d\n\n",
		plural(res.Streak, "day"), res.Completed, len(res.Challenges)))
	sb.WriteString("| Date | ID | Title | Category | Difficulty | XP | Done |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, ch := range res.Challenges {
		done := "no"
		if ch.Completed() {
			done = "yes"
		}
		sb.WriteString(fmt.Sprintf("| %s | `%s` | %s | %s | %s | %d | %s |\n",
			ch.Deadline.Format("2006-01-02"), ch.ID, ch.Title, ch.Category, ch.Difficulty, ch.XPReward, done))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
