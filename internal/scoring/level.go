package scoring

import (
	"fmt"
	"strings"
)

// BusinessLevel is the coaching-maturity bucket derived from a score.
type BusinessLevel string

const (
	LevelBeginner   BusinessLevel = "beginner"
	LevelGrowth     BusinessLevel = "growth"
	LevelScale      BusinessLevel = "scale"
	LevelEnterprise BusinessLevel = "enterprise"
)

// Levels lists every level in ascending order.
var Levels = []BusinessLevel{LevelBeginner, LevelGrowth, LevelScale, LevelEnterprise}

// LevelBand is one rung of the level ladder. Min is inclusive.
type LevelBand struct {
	Level BusinessLevel `json:"level"`
	Min   int           `json:"min"`
}

// LevelBands returns the ladder evaluated top-down, first match wins.
// Bands are contiguous and the last one starts at zero, so every clamped
// score lands in exactly one band.
func LevelBands() []LevelBand {
	return []LevelBand{
		{Level: LevelEnterprise, Min: 75},
		{Level: LevelScale, Min: 50},
		{Level: LevelGrowth, Min: 25},
		{Level: LevelBeginner, Min: 0},
	}
}

// ClassifyLevel maps a score to a level. Out-of-range scores are clamped.
func ClassifyLevel(score int) BusinessLevel {
	score = ClampScore(score)
	for _, b := range LevelBands() {
		if score >= b.Min {
			return b.Level
		}
	}
	return LevelBeginner
}

// ClampScore forces a score into 0..100.
func ClampScore(score int) int {
	return clamp(score, 0, MaxScore)
}

// ParseLevel converts external input into a level. Unrecognized values
// fall back to beginner, the most conservative level.
func ParseLevel(s string) BusinessLevel {
	l := BusinessLevel(strings.ToLower(strings.TrimSpace(s)))
	if err := ValidateLevel(l); err != nil {
		return LevelBeginner
	}
	return l
}

// ValidateLevel returns an error if the level is not recognized.
func ValidateLevel(l BusinessLevel) error {
	for _, v := range Levels {
		if v == l {
			return nil
		}
	}
	return fmt.Errorf("invalid business level %q: must be one of: beginner, growth, scale, enterprise", l)
}
