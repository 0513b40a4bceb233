package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// PreviewScoreTool handles the coach_preview_score MCP tool.
type PreviewScoreTool struct {
	coach Coach
}

// NewPreviewScoreTool creates a PreviewScoreTool.
func NewPreviewScoreTool(c Coach) *PreviewScoreTool {
	return &PreviewScoreTool{coach: c}
}

// Definition returns the MCP tool definition for coach_preview_score.
func (t *PreviewScoreTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Live preview of the sophistication score while the user is still answering onboarding questions. " +
				"Nothing is saved. Pass user_id to keep signals found in earlier answers; " +
				"call coach_assess once the user is done.",
		),
		mcp.WithString("user_id",
			mcp.Description("Optional user ID. With it, signals accumulate across calls until coach_assess."),
		),
	}
	return mcp.NewTool("coach_preview_score", append(opts, inputOptions()...)...)
}

// Handle processes the coach_preview_score tool call.
func (t *PreviewScoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := t.coach.Preview(
		strings.TrimSpace(req.GetString("user_id", "")),
		inputFromRequest(req),
		req.GetString("constraint", ""),
	)

	var sb strings.Builder
	sb.WriteString("## Score Preview\n\n")
	writeDecision(&sb, d)
	sb.WriteString("\n_Preview only. Nothing was saved._\n")
	return mcp.NewToolResultText(sb.String()), nil
}
