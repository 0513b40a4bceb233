// Package signals derives boolean and categorical signals from raw
// onboarding answers.
//
// The extractor is deliberately naive: case-insensitive substring
// containment against three fixed keyword lists. It sits behind the
// Extractor interface so the scorer never depends on how signals are found.
package signals

import "strings"

// SignalSet holds everything the scorer needs to know about an onboarding
// run. Values are produced once per run and never mutated afterwards.
type SignalSet struct {
	UsesBusinessTerms    bool `json:"uses_business_terms"`
	HasSystemicApproach  bool `json:"has_systemic_approach"`
	HasScalingExperience bool `json:"has_scaling_experience"`

	KnowsCAC    bool `json:"knows_cac"`
	KnowsLTV    bool `json:"knows_ltv"`
	KnowsChurn  bool `json:"knows_churn"`
	KnowsMargin bool `json:"knows_margin"`

	// ChurnRate and GrossMargin are normalized to 0..1. Zero when unknown.
	ChurnRate   float64 `json:"churn_rate"`
	GrossMargin float64 `json:"gross_margin"`
}

// KnowsMetrics reports whether any numeric metric is known.
func (s SignalSet) KnowsMetrics() bool {
	return s.KnowsCAC || s.KnowsLTV || s.KnowsChurn || s.KnowsMargin
}

// LanguageSignals returns how many of the three linguistic flags are set.
func (s SignalSet) LanguageSignals() int {
	n := 0
	for _, v := range []bool{s.UsesBusinessTerms, s.HasSystemicApproach, s.HasScalingExperience} {
		if v {
			n++
		}
	}
	return n
}

// Merge returns the logical OR of two signal sets. Numeric fields keep the
// first known value, so a later unknown metric never erases an earlier one.
func (s SignalSet) Merge(other SignalSet) SignalSet {
	out := SignalSet{
		UsesBusinessTerms:    s.UsesBusinessTerms || other.UsesBusinessTerms,
		HasSystemicApproach:  s.HasSystemicApproach || other.HasSystemicApproach,
		HasScalingExperience: s.HasScalingExperience || other.HasScalingExperience,
		KnowsCAC:             s.KnowsCAC || other.KnowsCAC,
		KnowsLTV:             s.KnowsLTV || other.KnowsLTV,
		KnowsChurn:           s.KnowsChurn || other.KnowsChurn,
		KnowsMargin:          s.KnowsMargin || other.KnowsMargin,
		ChurnRate:            s.ChurnRate,
		GrossMargin:          s.GrossMargin,
	}
	if !s.KnowsChurn && other.KnowsChurn {
		out.ChurnRate = other.ChurnRate
	}
	if !s.KnowsMargin && other.KnowsMargin {
		out.GrossMargin = other.GrossMargin
	}
	return out
}

// Text is the free-text part of an onboarding answer set.
type Text struct {
	BusinessDescription string
	BiggestChallenge    string
	Experience          string
}

// Fields returns the text fields in a stable order.
func (t Text) Fields() []string {
	return []string{t.BusinessDescription, t.BiggestChallenge, t.Experience}
}

// Metrics are the optional numeric business metrics. Nil means the user
// did not answer.
type Metrics struct {
	CAC         *float64
	LTV         *float64
	ChurnRate   *float64
	GrossMargin *float64
}

// Extractor derives a SignalSet from onboarding text and metrics.
type Extractor interface {
	Extract(text Text, metrics Metrics) SignalSet
}

// Keyword lists. Matching is case-insensitive substring containment, so
// entries are lower-case and may be fragments ("automat" hits both
// "automate" and "automation").
var (
	BusinessTerms = []string{
		"revenue", "profit", "margin", "roi", "cac", "ltv", "churn",
		"conversion", "funnel", "pipeline", "kpi", "metrics", "cash flow",
		"ebitda", "unit economics", "retention", "acquisition",
	}
	SystemicTerms = []string{
		"system", "process", "sop", "automat", "workflow", "framework",
		"playbook", "delegate", "dashboard", "track", "measure", "optimi",
	}
	ScalingTerms = []string{
		"scale", "scaling", "scaled", "grew", "growth", "hired", "hiring",
		"team of", "employees", "expanded", "multiple locations", "franchise",
		"exit", "acquired", "7 figure", "seven figure", "8 figure",
	}
)

// KeywordExtractor is the default Extractor: a keyword scan over text plus
// "known when strictly positive" rules for metrics.
type KeywordExtractor struct {
	business []string
	systemic []string
	scaling  []string
}

// NewKeywordExtractor creates an extractor with the package keyword lists.
func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{
		business: BusinessTerms,
		systemic: SystemicTerms,
		scaling:  ScalingTerms,
	}
}

// Extract scans every text field and accumulates flags with logical OR.
// Missing text is treated as empty.
func (e *KeywordExtractor) Extract(text Text, metrics Metrics) SignalSet {
	var out SignalSet
	for _, field := range text.Fields() {
		out = out.Merge(e.scan(field))
	}
	return out.Merge(FromMetrics(metrics))
}

func (e *KeywordExtractor) scan(field string) SignalSet {
	lower := strings.ToLower(field)
	if strings.TrimSpace(lower) == "" {
		return SignalSet{}
	}
	return SignalSet{
		UsesBusinessTerms:    hasAny(lower, e.business...),
		HasSystemicApproach:  hasAny(lower, e.systemic...),
		HasScalingExperience: hasAny(lower, e.scaling...),
	}
}

// FromMetrics classifies each metric as known when strictly greater than
// zero. Churn and margin are normalized to 0..1.
func FromMetrics(m Metrics) SignalSet {
	var out SignalSet
	out.KnowsCAC = known(m.CAC)
	out.KnowsLTV = known(m.LTV)
	if known(m.ChurnRate) {
		out.KnowsChurn = true
		out.ChurnRate = normalizeRatio(*m.ChurnRate)
	}
	if known(m.GrossMargin) {
		out.KnowsMargin = true
		out.GrossMargin = normalizeRatio(*m.GrossMargin)
	}
	return out
}

func known(v *float64) bool {
	return v != nil && *v > 0
}

// normalizeRatio accepts either a fraction (0.35) or a percentage (35)
// and returns a value in 0..1.
func normalizeRatio(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func hasAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
