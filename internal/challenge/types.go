// Package challenge generates gamified daily challenges.
//
// Selection is two-stage weighted random: a category is drawn from weights
// shaped by tier, constraint and recent history, then a difficulty is drawn
// from a streak-based ramp. The random source is injected so tests can pin
// exact outcomes. Select never fails: anything that goes wrong while
// building a challenge yields the fixed "beat yesterday" default.
package challenge

import (
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/bizcoach/internal/constraint"
)

// --- Category enum ---

// Category groups challenge templates by theme.
type Category string

const (
	CategoryRevenue    Category = "revenue"
	CategoryFramework  Category = "framework"
	CategoryHabit      Category = "habit"
	CategoryConstraint Category = "constraint"
	CategoryTeam       Category = "team"
	CategoryLearning   Category = "learning"
)

// Categories lists every category in a stable order. Weighted draws walk
// this order, so changing it changes seeded outcomes.
var Categories = []Category{
	CategoryRevenue,
	CategoryFramework,
	CategoryHabit,
	CategoryConstraint,
	CategoryTeam,
	CategoryLearning,
}

// ValidateCategory returns an error if c is not a known category.
func ValidateCategory(c Category) error {
	for _, v := range Categories {
		if v == c {
			return nil
		}
	}
	return fmt.Errorf("invalid challenge category %q", c)
}

// --- Difficulty enum ---

// Difficulty controls a challenge's target and reward.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists every difficulty from easiest to hardest.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty normalizes external input. Unknown or empty values return
// "" which means "no preference".
func ParseDifficulty(s string) Difficulty {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Difficulties {
		if v == d {
			return d
		}
	}
	return ""
}

// --- Tier enum ---

// Tier is the challenge-facing business tier, level0 (newest) to level4.
type Tier string

const (
	Tier0 Tier = "level0"
	Tier1 Tier = "level1"
	Tier2 Tier = "level2"
	Tier3 Tier = "level3"
	Tier4 Tier = "level4"
)

// Tiers lists every tier in ascending order.
var Tiers = []Tier{Tier0, Tier1, Tier2, Tier3, Tier4}

// ParseTier normalizes external input. Unrecognized values map to level0.
func ParseTier(s string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Tiers {
		if v == t {
			return t
		}
	}
	return Tier0
}

// TierFromScore maps a 0-100 sophistication score onto five equal-width
// tiers. Out-of-range scores are clamped.
func TierFromScore(score int) Tier {
	if score < 0 {
		score = 0
	}
	idx := score / 20
	if idx >= len(Tiers) {
		idx = len(Tiers) - 1
	}
	return Tiers[idx]
}

func (t Tier) isAdvanced() bool { return t == Tier3 || t == Tier4 }

// --- Records ---

// Challenge is one generated daily task.
type Challenge struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id,omitempty"`
	Category        Category   `json:"category"`
	Difficulty      Difficulty `json:"difficulty"`
	TemplateID      string     `json:"template_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	SuccessCriteria string     `json:"success_criteria"`
	Target          float64    `json:"target"`
	Unit            string     `json:"unit,omitempty"`
	XPReward        int        `json:"xp_reward"`
	Deadline        time.Time  `json:"deadline"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Completed reports whether a completion has been recorded.
func (c Challenge) Completed() bool { return c.CompletedAt != nil }

// Completion is one finished challenge in a user's history.
type Completion struct {
	ChallengeID string    `json:"challenge_id"`
	Category    Category  `json:"category"`
	TemplateID  string    `json:"template_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Preferences are the user's optional challenge settings.
type Preferences struct {
	// Difficulty, when set, is used unconditionally.
	Difficulty Difficulty `json:"difficulty,omitempty"`
}

// Context is the read-only snapshot a Selector works from. It is supplied
// by the caller and never modified.
type Context struct {
	UserID        string           `json:"user_id,omitempty"`
	Tier          Tier             `json:"tier"`
	Constraint    constraint.Value `json:"constraint"`
	CurrentStreak int              `json:"current_streak"`
	History       []Completion     `json:"history,omitempty"`
	Preferences   Preferences      `json:"preferences"`

	// Location is the user's time zone; nil uses Now's location.
	Location *time.Location `json:"-"`
	// Now is the generation instant; zero uses the current time.
	Now time.Time `json:"-"`
}

// EndOfDay returns 23:59:59.999 on t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = t.Location()
	}
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
}
