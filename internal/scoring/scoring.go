// Package scoring - sophistication scoring and level classification.
//
// The sophistication score estimates how experienced and data-driven a
// business owner is, on a 0-100 scale. It is the sum of three independently
// capped components (revenue, metrics knowledge, language) and drives the
// business level, the challenge tier, and the recommended workspace.
//
// Everything here is a pure function: identical input always yields
// identical output.
package scoring

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/HendryAvila/bizcoach/internal/signals"
)

// Component caps. The three caps add up to MaxScore.
const (
	MaxRevenuePoints  = 40
	MaxMetricsPoints  = 30
	MaxLanguagePoints = 30
	MaxScore          = 100
)

// Metrics component weights.
const (
	unitEconomicsPoints = 15 // CAC and LTV both known
	churnPoints         = 5
	marginPoints        = 10
	languageSignalPts   = 10 // per true language signal
)

// Input is the raw onboarding answer set. It has no identity and lives only
// for one classification run.
type Input struct {
	BusinessDescription string `json:"business_description,omitempty"`
	BiggestChallenge    string `json:"biggest_challenge,omitempty"`
	Experience          string `json:"experience,omitempty"`

	Stage         string `json:"stage,omitempty"`
	Industry      string `json:"industry,omitempty"`
	RevenueBucket string `json:"revenue_bucket,omitempty"`
	TeamSize      string `json:"team_size,omitempty"`

	// MonthlyRevenue takes precedence over RevenueBucket when set.
	MonthlyRevenue *float64 `json:"monthly_revenue,omitempty"`

	CAC         *float64 `json:"cac,omitempty"`
	LTV         *float64 `json:"ltv,omitempty"`
	ChurnRate   *float64 `json:"churn_rate,omitempty"`
	GrossMargin *float64 `json:"gross_margin,omitempty"`
}

// Text returns the free-text fields for signal extraction.
func (in Input) Text() signals.Text {
	return signals.Text{
		BusinessDescription: in.BusinessDescription,
		BiggestChallenge:    in.BiggestChallenge,
		Experience:          in.Experience,
	}
}

// Metrics returns the numeric metrics for signal extraction.
func (in Input) Metrics() signals.Metrics {
	return signals.Metrics{
		CAC:         in.CAC,
		LTV:         in.LTV,
		ChurnRate:   in.ChurnRate,
		GrossMargin: in.GrossMargin,
	}
}

// Breakdown holds the per-component points behind a score.
type Breakdown struct {
	Revenue  int `json:"revenue"`
	Metrics  int `json:"metrics"`
	Language int `json:"language"`
}

// SophisticationScore is a 0-100 score with its explanation.
// Total always equals the sum of the breakdown components.
type SophisticationScore struct {
	Total     int       `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
}

// Score combines revenue, metrics knowledge and language signals.
func Score(in Input, s signals.SignalSet) SophisticationScore {
	b := Breakdown{
		Revenue:  clamp(RevenuePoints(in), 0, MaxRevenuePoints),
		Metrics:  clamp(MetricsPoints(s), 0, MaxMetricsPoints),
		Language: clamp(LanguagePoints(s), 0, MaxLanguagePoints),
	}
	return SophisticationScore{
		Total:     clamp(b.Revenue+b.Metrics+b.Language, 0, MaxScore),
		Breakdown: b,
	}
}

// MetricsPoints awards +15 when both CAC and LTV are known, +5 for churn
// and +10 for gross margin.
func MetricsPoints(s signals.SignalSet) int {
	pts := 0
	if s.KnowsCAC && s.KnowsLTV {
		pts += unitEconomicsPoints
	}
	if s.KnowsChurn {
		pts += churnPoints
	}
	if s.KnowsMargin {
		pts += marginPoints
	}
	return pts
}

// LanguagePoints awards 10 points per true language signal.
func LanguagePoints(s signals.SignalSet) int {
	return s.LanguageSignals() * languageSignalPts
}

// --- Revenue bands ---

// RevenueBand is one step of the revenue ladder. Min is an inclusive lower
// bound on monthly revenue.
type RevenueBand struct {
	Label  string  `json:"label"`
	Min    float64 `json:"min"`
	Points int     `json:"points"`
}

// RevenueBands returns the revenue ladder, highest band first.
func RevenueBands() []RevenueBand {
	return []RevenueBand{
		{Label: "$1M+", Min: 1_000_000, Points: 40},
		{Label: "$100K-$1M", Min: 100_000, Points: 30},
		{Label: "$10K-$100K", Min: 10_000, Points: 20},
		{Label: "$1K-$10K", Min: 1_000, Points: 10},
		{Label: "$0-$1K", Min: 0, Points: 0},
	}
}

// bucketAliases maps normalized bucket labels to a band's lower bound.
var bucketAliases = map[string]float64{
	"0-1k":        0,
	"1k-10k":      1_000,
	"10k-100k":    10_000,
	"100k-1m":     100_000,
	"1m+":         1_000_000,
	"pre-revenue": 0,
	"none":        0,
}

// RevenuePoints resolves the revenue component. An explicit monthly revenue
// wins over the bucket label; an unknown label scores zero.
func RevenuePoints(in Input) int {
	if in.MonthlyRevenue != nil {
		return pointsFor(*in.MonthlyRevenue)
	}
	if min, ok := ParseRevenueBucket(in.RevenueBucket); ok {
		return pointsFor(min)
	}
	return 0
}

// ParseRevenueBucket returns the lower bound for a bucket label such as
// "$10K-$100K" or "10k-100k".
func ParseRevenueBucket(label string) (float64, bool) {
	key := normalizeBucket(label)
	if key == "" {
		return 0, false
	}
	min, ok := bucketAliases[key]
	return min, ok
}

func normalizeBucket(label string) string {
	v := strings.ToLower(strings.TrimSpace(label))
	v = strings.NewReplacer("$", "", " ", "", ",", "", "–", "-", "—", "-", "to", "-").Replace(v)
	v = strings.TrimSuffix(v, "/mo")
	v = strings.TrimSuffix(v, "/month")
	return bucketNumber.ReplaceAllStringFunc(v, shortAmount)
}

var bucketNumber = regexp.MustCompile(`\d+`)

// shortAmount rewrites "10000" as "10k" and "1000000" as "1m".
func shortAmount(n string) string {
	v, err := strconv.Atoi(n)
	if err != nil || v == 0 {
		return n
	}
	switch {
	case v%1_000_000 == 0:
		return strconv.Itoa(v/1_000_000) + "m"
	case v%1_000 == 0:
		return strconv.Itoa(v/1_000) + "k"
	}
	return n
}

func pointsFor(monthly float64) int {
	for _, b := range RevenueBands() {
		if monthly >= b.Min {
			return b.Points
		}
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
