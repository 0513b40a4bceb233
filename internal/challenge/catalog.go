package challenge

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"
)

// Level is the numeric configuration of a template at one difficulty.
type Level struct {
	Target float64 `json:"target"`
	Unit   string  `json:"unit"`
	XP     int     `json:"xp"`
}

// Template is a challenge blueprint. Title, Description and
// SuccessCriteria are text/template sources rendered with the chosen
// Level, so "{{money .Target}}" becomes "$500".
type Template struct {
	ID              string               `json:"id"`
	Category        Category             `json:"category"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	SuccessCriteria string               `json:"success_criteria"`
	Levels          map[Difficulty]Level `json:"levels"`
}

// Catalog holds templates grouped by category.
type Catalog struct {
	byCategory map[Category][]Template
}

// NewCatalog groups templates by category, preserving their order.
func NewCatalog(templates []Template) *Catalog {
	c := &Catalog{byCategory: make(map[Category][]Template)}
	for _, t := range templates {
		c.byCategory[t.Category] = append(c.byCategory[t.Category], t)
	}
	return c
}

// DefaultCatalog returns the built-in templates.
func DefaultCatalog() *Catalog {
	return NewCatalog(builtinTemplates())
}

// Variants returns the templates for a category.
func (c *Catalog) Variants(cat Category) []Template {
	if c == nil {
		return nil
	}
	return c.byCategory[cat]
}

// Validate checks that every category has at least one template and that
// every template renders at every difficulty. It is used by tests and at
// startup; Select masks the same problems with the default challenge.
func (c *Catalog) Validate() error {
	for _, cat := range Categories {
		variants := c.Variants(cat)
		if len(variants) == 0 {
			return fmt.Errorf("category %s has no templates", cat)
		}
		for _, t := range variants {
			for _, d := range Difficulties {
				lvl, ok := t.Levels[d]
				if !ok {
					return fmt.Errorf("template %s: missing %s level", t.ID, d)
				}
				if lvl.XP <= 0 {
					return fmt.Errorf("template %s: %s level has no XP reward", t.ID, d)
				}
				if _, err := renderTemplate(t, lvl); err != nil {
					return fmt.Errorf("template %s (%s): %w", t.ID, d, err)
				}
			}
		}
	}
	return nil
}

// rendered is the text of a template resolved at one level.
type rendered struct {
	Title           string
	Description     string
	SuccessCriteria string
}

var textFuncs = template.FuncMap{
	"num":   formatNumber,
	"money": formatMoney,
	"pct":   formatPercent,
}

func renderTemplate(t Template, lvl Level) (rendered, error) {
	var out rendered
	var err error
	if out.Title, err = renderText(t.ID+".title", t.Title, lvl); err != nil {
		return rendered{}, err
	}
	if out.Description, err = renderText(t.ID+".description", t.Description, lvl); err != nil {
		return rendered{}, err
	}
	if out.SuccessCriteria, err = renderText(t.ID+".success", t.SuccessCriteria, lvl); err != nil {
		return rendered{}, err
	}
	if strings.TrimSpace(out.Title) == "" {
		return rendered{}, fmt.Errorf("empty title")
	}
	return out, nil
}

func renderText(name, src string, lvl Level) (string, error) {
	tmpl, err := template.New(name).Funcs(textFuncs).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, lvl); err != nil {
		return "", fmt.Errorf("executing %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// formatMoney groups whole dollars in thousands. The sign goes before the
// dollar symbol: -$1,500.
func formatMoney(v float64) string {
	sign := ""
	if math.Round(v) < 0 {
		sign = "-"
	}
	whole := strconv.FormatFloat(math.Round(math.Abs(v)), 'f', 0, 64)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String()
}

func formatPercent(v float64) string {
	return formatNumber(v) + "%"
}

// --- Built-in templates ---

func levels(easy, medium, hard Level) map[Difficulty]Level {
	return map[Difficulty]Level{
		DifficultyEasy:   easy,
		DifficultyMedium: medium,
		DifficultyHard:   hard,
	}
}

func builtinTemplates() []Template {
	return []Template{
		// revenue
		{
			ID:              "revenue-beat-yesterday",
			Category:        CategoryRevenue,
			Title:           "Beat Yesterday",
			Description:     "Bring in at least {{pct .Target}} more revenue than you did yesterday.",
			SuccessCriteria: "Today's revenue is {{pct .Target}} above yesterday's.",
			Levels: levels(
				Level{Target: 5, Unit: "percent", XP: 50},
				Level{Target: 10, Unit: "percent", XP: 100},
				Level{Target: 20, Unit: "percent", XP: 200},
			),
		},
		{
			ID:              "revenue-close-deals",
			Category:        CategoryRevenue,
			Title:           "Close {{num .Target}} Deals",
			Description:     "Close {{num .Target}} paying customers before the day ends.",
			SuccessCriteria: "{{num .Target}} new payments received today.",
			Levels: levels(
				Level{Target: 1, Unit: "deals", XP: 60},
				Level{Target: 3, Unit: "deals", XP: 120},
				Level{Target: 5, Unit: "deals", XP: 220},
			),
		},
		{
			ID:              "revenue-upsell",
			Category:        CategoryRevenue,
			Title:           "Upsell Sprint",
			Description:     "Offer an upgrade to existing customers and add {{money .Target}} in expansion revenue.",
			SuccessCriteria: "At least {{money .Target}} of upsell revenue booked today.",
			Levels: levels(
				Level{Target: 100, Unit: "usd", XP: 60},
				Level{Target: 500, Unit: "usd", XP: 130},
				Level{Target: 2000, Unit: "usd", XP: 250},
			),
		},
		// framework
		{
			ID:              "framework-value-equation",
			Category:        CategoryFramework,
			Title:           "Run the Value Equation",
			Description:     "Score your core offer on dream outcome, likelihood, time delay and effort, then write {{num .Target}} improvements.",
			SuccessCriteria: "{{num .Target}} concrete offer improvements written down.",
			Levels: levels(
				Level{Target: 1, Unit: "improvements", XP: 40},
				Level{Target: 3, Unit: "improvements", XP: 90},
				Level{Target: 5, Unit: "improvements", XP: 160},
			),
		},
		{
			ID:              "framework-money-model",
			Category:        CategoryFramework,
			Title:           "Sketch Your Money Model",
			Description:     "Map your attraction, upsell and continuity offers and price {{num .Target}} of them.",
			SuccessCriteria: "{{num .Target}} offers priced in your money model.",
			Levels: levels(
				Level{Target: 1, Unit: "offers", XP: 40},
				Level{Target: 2, Unit: "offers", XP: 90},
				Level{Target: 3, Unit: "offers", XP: 150},
			),
		},
		// habit
		{
			ID:              "habit-numbers-review",
			Category:        CategoryHabit,
			Title:           "Know Your Numbers",
			Description:     "Spend {{num .Target}} minutes reviewing yesterday's leads, sales and cash.",
			SuccessCriteria: "{{num .Target}} minute numbers review logged.",
			Levels: levels(
				Level{Target: 10, Unit: "minutes", XP: 30},
				Level{Target: 20, Unit: "minutes", XP: 60},
				Level{Target: 45, Unit: "minutes", XP: 110},
			),
		},
		{
			ID:              "habit-deep-work",
			Category:        CategoryHabit,
			Title:           "Deep Work Block",
			Description:     "Block {{num .Target}} focused minutes on the one task that moves revenue.",
			SuccessCriteria: "{{num .Target}} uninterrupted minutes completed.",
			Levels: levels(
				Level{Target: 30, Unit: "minutes", XP: 30},
				Level{Target: 60, Unit: "minutes", XP: 70},
				Level{Target: 120, Unit: "minutes", XP: 120},
			),
		},
		// constraint
		{
			ID:              "constraint-outreach",
			Category:        CategoryConstraint,
			Title:           "Attack the Bottleneck",
			Description:     "Make {{num .Target}} direct outreach attempts aimed at your primary constraint.",
			SuccessCriteria: "{{num .Target}} outreach attempts logged.",
			Levels: levels(
				Level{Target: 10, Unit: "attempts", XP: 50},
				Level{Target: 25, Unit: "attempts", XP: 110},
				Level{Target: 50, Unit: "attempts", XP: 200},
			),
		},
		{
			ID:              "constraint-fix-one-leak",
			Category:        CategoryConstraint,
			Title:           "Fix One Leak",
			Description:     "Find the step where you lose the most customers and improve it by {{pct .Target}}.",
			SuccessCriteria: "Leak identified and a {{pct .Target}} improvement measured.",
			Levels: levels(
				Level{Target: 5, Unit: "percent", XP: 60},
				Level{Target: 10, Unit: "percent", XP: 120},
				Level{Target: 25, Unit: "percent", XP: 220},
			),
		},
		// team
		{
			ID:              "team-delegate",
			Category:        CategoryTeam,
			Title:           "Delegate It",
			Description:     "Hand off {{num .Target}} recurring tasks with a written SOP.",
			SuccessCriteria: "{{num .Target}} tasks delegated with documentation.",
			Levels: levels(
				Level{Target: 1, Unit: "tasks", XP: 50},
				Level{Target: 2, Unit: "tasks", XP: 100},
				Level{Target: 4, Unit: "tasks", XP: 180},
			),
		},
		{
			ID:              "team-one-on-ones",
			Category:        CategoryTeam,
			Title:           "Team Check-ins",
			Description:     "Hold {{num .Target}} one-on-ones focused on each person's top metric.",
			SuccessCriteria: "{{num .Target}} one-on-ones completed with action items.",
			Levels: levels(
				Level{Target: 1, Unit: "meetings", XP: 40},
				Level{Target: 3, Unit: "meetings", XP: 90},
				Level{Target: 5, Unit: "meetings", XP: 150},
			),
		},
		// learning
		{
			ID:              "learning-study",
			Category:        CategoryLearning,
			Title:           "Study Session",
			Description:     "Study one business concept for {{num .Target}} minutes and write down how it applies to you.",
			SuccessCriteria: "{{num .Target}} minutes studied and one takeaway recorded.",
			Levels: levels(
				Level{Target: 15, Unit: "minutes", XP: 30},
				Level{Target: 30, Unit: "minutes", XP: 60},
				Level{Target: 60, Unit: "minutes", XP: 100},
			),
		},
		{
			ID:              "learning-teardown",
			Category:        CategoryLearning,
			Title:           "Competitor Teardown",
			Description:     "Break down {{num .Target}} competitor offers: price, promise and guarantee.",
			SuccessCriteria: "{{num .Target}} competitor teardowns written.",
			Levels: levels(
				Level{Target: 1, Unit: "teardowns", XP: 40},
				Level{Target: 2, Unit: "teardowns", XP: 80},
				Level{Target: 3, Unit: "teardowns", XP: 130},
			),
		},
	}
}

// --- Fallback ---

// DefaultTemplateID identifies the fallback challenge.
const DefaultTemplateID = "revenue-beat-yesterday"

// defaultChallenge is built from constants only, so it cannot fail.
func defaultChallenge() Challenge {
	return Challenge{
		Category:        CategoryRevenue,
		Difficulty:      DifficultyEasy,
		TemplateID:      DefaultTemplateID,
		Title:           "Beat Yesterday",
		Description:     "Bring in at least 5% more revenue than you did yesterday.",
		SuccessCriteria: "Today's revenue is 5% above yesterday's.",
		Target:          5,
		Unit:            "percent",
		XPReward:        50,
	}
}
