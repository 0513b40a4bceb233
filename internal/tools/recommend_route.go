package tools

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/bizcoach/internal/constraint"
	"github.com/HendryAvila/bizcoach/internal/routing"
	"github.com/HendryAvila/bizcoach/internal/scoring"
	"github.com/HendryAvila/bizcoach/internal/signals"
)

// RecommendRouteTool handles the coach_recommend_route MCP tool.
type RecommendRouteTool struct {
	resolver *routing.Resolver
}

// NewRecommendRouteTool creates a RecommendRouteTool. A nil resolver uses
// the default thresholds.
func NewRecommendRouteTool(r *routing.Resolver) *RecommendRouteTool {
	if r == nil {
		r = routing.DefaultResolver()
	}
	return &RecommendRouteTool{resolver: r}
}

// Definition returns the MCP tool definition for coach_recommend_route.
func (t *RecommendRouteTool) Definition() mcp.Tool {
	return mcp.NewTool("coach_recommend_route",
		mcp.WithDescription(
			"Recommend where to send the user next from an existing score and constraint, without re-running the assessment. "+
				"High scores go to workspace selection, mid scores with a concrete constraint go to that constraint's workspace, "+
				"everything else goes to the guided conversation.",
		),
		mcp.WithNumber("score",
			mcp.Required(),
			mcp.Description("Sophistication score, 0-100. Out-of-range values are clamped."),
		),
		mcp.WithString("constraint",
			mcp.Description("The user's explicit constraint choice. Empty means none."),
		),
		mcp.WithString("level",
			mcp.Description("Business level. Derived from the score when empty."),
			mcp.Enum("beginner", "growth", "scale", "enterprise"),
		),
	)
}

// Handle processes the coach_recommend_route tool call.
func (t *RecommendRouteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := floatArg(req, "score")
	if raw == nil {
		return mcp.NewToolResultError("'score' is required"), nil
	}
	// Clamp as a float: converting 1e20 straight to int overflows.
	score := int(math.Max(0, math.Min(scoring.MaxScore, *raw)))

	level := scoring.ClassifyLevel(score)
	if l := strings.TrimSpace(req.GetString("level", "")); l != "" {
		level = scoring.ParseLevel(l)
	}
	c := constraint.Classify(req.GetString("constraint", ""), signals.SignalSet{})
	route := t.resolver.Recommend(level, c, score)

	var sb strings.Builder
	sb.WriteString("## Route\n\n")
	sb.WriteString(fmt.Sprintf("- **Route**: `%s`\n", route))
	sb.WriteString(fmt.Sprintf("- **Score**: %d\n", score))
	sb.WriteString(fmt.Sprintf("- **Level**: %s\n", level))
	sb.WriteString(fmt.Sprintf("- **Constraint**: %s\n\n", c.Value))
	sb.WriteString("Rules, first match wins:\n")
	for _, r := range t.resolver.Rules() {
		sb.WriteString(fmt.Sprintf("%d. %s → %s\n", r.Order, r.Condition, r.Route))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
