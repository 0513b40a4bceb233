package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/bizcoach/internal/scheduler"
)

// ScheduleReporter reports the pre-generation job. *scheduler.Scheduler
// satisfies it.
type ScheduleReporter interface {
	Status() scheduler.Status
}

// StatsTool handles the coach_stats MCP tool.
type StatsTool struct {
	coach Coach
	sched ScheduleReporter
}

// NewStatsTool creates a StatsTool. A nil sched means the scheduler is
// not running.
func NewStatsTool(c Coach, sched ScheduleReporter) *StatsTool {
	return &StatsTool{coach: c, sched: sched}
}

// Definition returns the MCP tool definition for coach_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("coach_stats",
		mcp.WithDescription(
			"Show coaching statistics: profiles, assessments, challenges, completions, XP awarded, "+
				"how users are spread across levels and routes, and the daily pre-generation job.",
		),
	)
}

// Handle processes the coach_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.coach.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("## Coaching Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- **Profiles**: %d\n", stats.TotalProfiles))
	sb.WriteString(fmt.Sprintf("- **Assessments**: %d\n", stats.TotalAssessments))
	sb.WriteString(fmt.Sprintf("- **Challenges**: %d\n", stats.TotalChallenges))
	sb.WriteString(fmt.Sprintf("- **Completions**: %d\n", stats.TotalCompletions))
	sb.WriteString(fmt.Sprintf("- **XP awarded**: %d\n", stats.TotalXP))
	writeCounts(&sb, "Levels", stats.Levels)
	writeCounts(&sb, "Routes", stats.Routes)
	writeSchedule(&sb, t.sched)
	return mcp.NewToolResultText(sb.String()), nil
}

func writeSchedule(sb *strings.Builder, sched ScheduleReporter) {
	sb.WriteString("\n### Pre-generation\n\n")
	if sched == nil {
		sb.WriteString("Scheduler disabled. Challenges are generated on first request.\n")
		return
	}
	st := sched.Status()
	sb.WriteString(fmt.Sprintf("- **Schedule**: `%s`\n", st.Schedule))
	sb.WriteString(fmt.Sprintf("- **Next run**: %s\n", st.NextRun.Format(time.RFC1123)))
	if st.LastRun.IsZero() {
		sb.WriteString("- **Last run**: never\n")
		return
	}
	sb.WriteString(fmt.Sprintf("- **Last run**: %s, %s\n", st.LastRun.Format(time.RFC1123), plural(st.Served, "user")))
	if st.Error != "" {
		sb.WriteString(fmt.Sprintf("- **Last error**: %s\n", st.Error))
	}
}

func writeCounts(sb *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		sb.WriteString(fmt.Sprintf("- **%s**: none\n", title))
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
	}
	sb.WriteString(fmt.Sprintf("- **%s**: %s\n", title, strings.Join(parts, ", ")))
}
