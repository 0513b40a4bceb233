package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/bizcoach/internal/constraint"
	"github.com/HendryAvila/bizcoach/internal/routing"
	"github.com/HendryAvila/bizcoach/internal/signals"
)

// ClassifyConstraintTool handles the coach_classify_constraint MCP tool.
// It is stateless.
type ClassifyConstraintTool struct{}

// NewClassifyConstraintTool creates a ClassifyConstraintTool.
func NewClassifyConstraintTool() *ClassifyConstraintTool {
	return &ClassifyConstraintTool{}
}

// Definition returns the MCP tool definition for coach_classify_constraint.
func (t *ClassifyConstraintTool) Definition() mcp.Tool {
	return mcp.NewTool("coach_classify_constraint",
		mcp.WithDescription(
			"Map the user's own words for their main bottleneck onto the constraint taxonomy "+
				"(leads, sales, delivery, profit, unknown). Only an explicit choice produces a concrete constraint; "+
				"the tool never guesses from free text.",
		),
		mcp.WithString("choice",
			mcp.Description("What the user picked, e.g. 'lead generation', 'closing', 'margins', 'unsure'"),
		),
	)
}

// Handle processes the coach_classify_constraint tool call.
func (t *ClassifyConstraintTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	choice := req.GetString("choice", "")
	c := constraint.Classify(choice, signals.SignalSet{})

	var sb strings.Builder
	sb.WriteString("## Constraint\n\n")
	sb.WriteString(fmt.Sprintf("- **Value**: %s\n", c.Value))
	sb.WriteString(fmt.Sprintf("- **Confidence**: %d%%\n", c.Confidence))
	sb.WriteString(fmt.Sprintf("- **Source**: %s\n", c.Source))
	sb.WriteString(fmt.Sprintf("- **Workspace**: `%s`\n", routing.WorkspaceFor(c.Value)))
	if c.Source == constraint.SourceNone {
		sb.WriteString(fmt.Sprintf("\nNo explicit choice recognized. Ask the user to pick one of: %s.\n",
			strings.Join(constraint.Choices(), ", ")))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
