// Package routing resolves which coaching workspace a user should land on
// after assessment.
package routing

import (
	"strconv"

	"github.com/HendryAvila/bizcoach/internal/constraint"
	"github.com/HendryAvila/bizcoach/internal/scoring"
)

// RouteID names a destination surface.
type RouteID string

const (
	RouteWorkspaceSelection RouteID = "workspace_selection"
	RouteGuidedConversation RouteID = "guided_conversation"
	RouteConstraint         RouteID = "constraint_workspace"
	RouteOffer              RouteID = "offer_workspace"
	RouteImplementation     RouteID = "implementation_workspace"
	RouteFinancial          RouteID = "financial_workspace"
)

// Routes lists every RouteID.
var Routes = []RouteID{
	RouteWorkspaceSelection,
	RouteGuidedConversation,
	RouteConstraint,
	RouteOffer,
	RouteImplementation,
	RouteFinancial,
}

// Default thresholds on the 0-100 sophistication scale.
const (
	DefaultHighThreshold = 80
	DefaultMidThreshold  = 40
)

// workspaceFor is the 1:1 constraint to workspace table.
var workspaceFor = map[constraint.Value]RouteID{
	constraint.Leads:    RouteConstraint,
	constraint.Unknown:  RouteConstraint,
	constraint.Sales:    RouteOffer,
	constraint.Delivery: RouteImplementation,
	constraint.Profit:   RouteFinancial,
}

// Resolver holds the route thresholds.
type Resolver struct {
	HighThreshold int
	MidThreshold  int
}

// NewResolver creates a Resolver. Thresholds are clamped to 0..100.
func NewResolver(high, mid int) *Resolver {
	return &Resolver{
		HighThreshold: scoring.ClampScore(high),
		MidThreshold:  scoring.ClampScore(mid),
	}
}

// DefaultResolver uses the 80/40 thresholds.
func DefaultResolver() *Resolver {
	return NewResolver(DefaultHighThreshold, DefaultMidThreshold)
}

// Recommend picks a route. Rules are evaluated in order, first match wins:
//
//  1. score >= high: the general workspace-selection surface.
//  2. concrete constraint and score >= mid: that constraint's workspace.
//  3. otherwise: the guided conversation.
//
// The level does not change the outcome today; it is accepted so callers
// pass the full decision and the rules can grow without a signature change.
func (r *Resolver) Recommend(_ scoring.BusinessLevel, c constraint.Classification, score int) RouteID {
	score = scoring.ClampScore(score)

	if score >= r.HighThreshold {
		return RouteWorkspaceSelection
	}
	if c.IsConcrete() && score >= r.MidThreshold {
		if route, ok := workspaceFor[c.Value]; ok {
			return route
		}
	}
	return RouteGuidedConversation
}

// Recommend resolves a route with the default thresholds.
func Recommend(level scoring.BusinessLevel, c constraint.Classification, score int) RouteID {
	return DefaultResolver().Recommend(level, c, score)
}

// WorkspaceFor returns the workspace mapped to a constraint value.
func WorkspaceFor(v constraint.Value) RouteID {
	if route, ok := workspaceFor[v]; ok {
		return route
	}
	return RouteConstraint
}

// Rule describes one route rule for display.
type Rule struct {
	Order     int    `json:"order"`
	Condition string `json:"condition"`
	Route     string `json:"route"`
}

// Rules describes the resolver's rule ladder.
func (r *Resolver) Rules() []Rule {
	return []Rule{
		{Order: 1, Condition: "score >= " + strconv.Itoa(r.HighThreshold), Route: string(RouteWorkspaceSelection)},
		{Order: 2, Condition: "constraint != unknown and score >= " + strconv.Itoa(r.MidThreshold), Route: "workspace mapped from constraint"},
		{Order: 3, Condition: "otherwise", Route: string(RouteGuidedConversation)},
	}
}

// WorkspaceTable returns a copy of the constraint to workspace mapping.
func WorkspaceTable() map[constraint.Value]RouteID {
	out := make(map[constraint.Value]RouteID, len(workspaceFor))
	for k, v := range workspaceFor {
		out[k] = v
	}
	return out
}
