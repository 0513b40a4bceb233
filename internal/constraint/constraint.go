// Package constraint classifies a user's primary business constraint.
//
// Classification is explicit-or-unknown: a concrete constraint is only ever
// returned when the user picked one. Text signals are accepted but not used
// to guess, so weak evidence never turns into a confident answer.
package constraint

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/bizcoach/internal/signals"
)

// Value is one entry of the constraint taxonomy.
type Value string

const (
	Leads    Value = "leads"
	Sales    Value = "sales"
	Delivery Value = "delivery"
	Profit   Value = "profit"
	Unknown  Value = "unknown"
)

// Values lists the taxonomy in a stable order.
var Values = []Value{Leads, Sales, Delivery, Profit, Unknown}

// Source records where a classification came from.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceNone     Source = "none"
)

// Confidence levels.
const (
	ExplicitConfidence = 85
	UnsureConfidence   = 50
	NoneConfidence     = 0
)

// Classification is a constraint value with a 0-100 confidence.
type Classification struct {
	Value      Value  `json:"value"`
	Confidence int    `json:"confidence"`
	Source     Source `json:"source"`
}

// IsConcrete reports whether the value is anything other than unknown.
func (c Classification) IsConcrete() bool {
	return c.Value != Unknown && c.Value != ""
}

// aliases maps normalized user choices onto the taxonomy. "unsure" is
// handled separately because it carries its own confidence.
var aliases = map[string]Value{
	"leads":           Leads,
	"lead":            Leads,
	"lead_generation": Leads,
	"traffic":         Leads,
	"audience":        Leads,
	"marketing":       Leads,

	"sales":      Sales,
	"conversion": Sales,
	"closing":    Sales,
	"offer":      Sales,

	"delivery":    Delivery,
	"fulfillment": Delivery,
	"operations":  Delivery,
	"capacity":    Delivery,

	"profit":        Profit,
	"profitability": Profit,
	"margins":       Profit,
	"margin":        Profit,
	"cash_flow":     Profit,
}

const unsure = "unsure"

// Classify maps an explicit choice to the taxonomy. An empty or
// unrecognized choice yields unknown with zero confidence regardless of
// the signals.
func Classify(explicitChoice string, _ signals.SignalSet) Classification {
	key := normalize(explicitChoice)
	if key == "" {
		return none()
	}
	if key == unsure || key == string(Unknown) {
		return Classification{Value: Unknown, Confidence: UnsureConfidence, Source: SourceExplicit}
	}
	v, ok := aliases[key]
	if !ok {
		return none()
	}
	return Classification{Value: v, Confidence: ExplicitConfidence, Source: SourceExplicit}
}

// Parse converts external input to a taxonomy value without confidence.
// Unrecognized values become Unknown.
func Parse(s string) Value {
	key := normalize(s)
	if key == string(Unknown) {
		return Unknown
	}
	if v, ok := aliases[key]; ok {
		return v
	}
	return Unknown
}

// Validate returns an error if v is not part of the taxonomy.
func Validate(v Value) error {
	for _, known := range Values {
		if v == known {
			return nil
		}
	}
	return fmt.Errorf("invalid constraint %q: must be one of: leads, sales, delivery, profit, unknown", v)
}

// Choices returns the explicit choices a user can make, in display order.
func Choices() []string {
	return []string{string(Leads), string(Sales), string(Delivery), string(Profit), unsure}
}

func none() Classification {
	return Classification{Value: Unknown, Confidence: NoneConfidence, Source: SourceNone}
}

func normalize(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("-", "_", " ", "_").Replace(v)
	return v
}
