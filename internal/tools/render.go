package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/bizcoach/internal/challenge"
	"github.com/HendryAvila/bizcoach/internal/coach"
	"github.com/HendryAvila/bizcoach/internal/scoring"
)

// writeDecision renders a classification as markdown sections.
func writeDecision(sb *strings.Builder, d coach.Decision) {
	sb.WriteString(fmt.Sprintf("**Sophistication score**: %d/%d\n\n", d.Score.Total, scoring.MaxScore))
	sb.WriteString("| Component | Points |\n|---|---|\n")
	sb.WriteString(fmt.Sprintf("| Revenue | %d |\n", d.Score.Breakdown.Revenue))
	sb.WriteString(fmt.Sprintf("| Metrics knowledge | %d |\n", d.Score.Breakdown.Metrics))
	sb.WriteString(fmt.Sprintf("| Business language | %d |\n\n", d.Score.Breakdown.Language))

	sb.WriteString(fmt.Sprintf("- **Level**: %s\n", d.Level))
	sb.WriteString(fmt.Sprintf("- **Challenge tier**: %s\n", d.Tier))
	sb.WriteString(fmt.Sprintf("- **Constraint**: %s (confidence %d%%, %s)\n",
		d.Constraint.Value, d.Constraint.Confidence, d.Constraint.Source))
	sb.WriteString(fmt.Sprintf("- **Route**: `%s`\n", d.Route))

	if found := signalNames(d); len(found) > 0 {
		sb.WriteString(fmt.Sprintf("- **Signals**: %s\n", strings.Join(found, ", ")))
	} else {
		sb.WriteString("- **Signals**: none yet\n")
	}
}

func signalNames(d coach.Decision) []string {
	s := d.Signals
	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}
	add(s.UsesBusinessTerms, "business terms")
	add(s.HasSystemicApproach, "systemic approach")
	add(s.HasScalingExperience, "scaling experience")
	add(s.KnowsCAC, "knows CAC")
	add(s.KnowsLTV, "knows LTV")
	add(s.KnowsChurn, "knows churn")
	add(s.KnowsMargin, "knows margin")
	return out
}

// writeChallenge renders one challenge card.
func writeChallenge(sb *strings.Builder, ch challenge.Challenge) {
	sb.WriteString(fmt.Sprintf("### %s\n\n", ch.Title))
	sb.WriteString(ch.Description + "\n\n")
	sb.WriteString(fmt.Sprintf("- **ID**: `%s`\n", ch.ID))
	sb.WriteString(fmt.Sprintf("- **Category**: %s\n", ch.Category))
	sb.WriteString(fmt.Sprintf("- **Difficulty**: %s\n", ch.Difficulty))
	sb.WriteString(fmt.Sprintf("- **Success criteria**: %s\n", ch.SuccessCriteria))
	sb.WriteString(fmt.Sprintf("- **XP**: %d\n", ch.XPReward))
	sb.WriteString(fmt.Sprintf("- **Deadline**: %s\n", ch.Deadline.Format(time.RFC1123)))
	if ch.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("- **Completed**: %s\n", ch.CompletedAt.Format(time.RFC1123)))
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
