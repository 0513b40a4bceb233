// Package resources implements MCP resource handlers for the business coach.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (coach://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/bizcoach/internal/challenge"
	"github.com/HendryAvila/bizcoach/internal/constraint"
	"github.com/HendryAvila/bizcoach/internal/routing"
	"github.com/HendryAvila/bizcoach/internal/scoring"
	"github.com/HendryAvila/bizcoach/internal/signals"
)

// Handler serves the coach resource endpoints.
type Handler struct {
	resolver *routing.Resolver
	catalog  *challenge.Catalog
}

// NewHandler creates a resource Handler. Nil arguments use the defaults.
func NewHandler(r *routing.Resolver, c *challenge.Catalog) *Handler {
	if r == nil {
		r = routing.DefaultResolver()
	}
	if c == nil {
		c = challenge.DefaultCatalog()
	}
	return &Handler{resolver: r, catalog: c}
}

// Rules is the coach://rules document.
type Rules struct {
	MaxScore        int                   `json:"max_score"`
	RevenueBands    []scoring.RevenueBand `json:"revenue_bands"`
	MetricsPoints   map[string]int        `json:"metrics_points"`
	LanguagePoints  map[string]int        `json:"language_points"`
	LevelBands      []scoring.LevelBand   `json:"level_bands"`
	TierBands       []TierBand            `json:"tier_bands"`
	RouteRules      []routing.Rule        `json:"route_rules"`
	Workspaces      map[string]string     `json:"workspaces"`
	ConstraintPicks []string              `json:"constraint_choices"`
}

// TierBand maps a score range to a challenge tier. Min is inclusive.
type TierBand struct {
	Tier challenge.Tier `json:"tier"`
	Min  int            `json:"min"`
}

// RulesResource returns the MCP resource definition for the scoring rules.
func (h *Handler) RulesResource() mcp.Resource {
	return mcp.NewResource(
		"coach://rules",
		"Coaching Rules",
		mcp.WithResourceDescription("Scoring bands, level ladder, challenge tiers and route rules, as JSON"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRules returns the rules as JSON.
func (h *Handler) HandleRules(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, h.Rules())
}

// Rules assembles the rules document from the live scoring and routing code.
func (h *Handler) Rules() Rules {
	workspaces := make(map[string]string)
	for c, route := range routing.WorkspaceTable() {
		workspaces[string(c)] = string(route)
	}

	var tiers []TierBand
	for score := 0; score <= scoring.MaxScore; score++ {
		t := challenge.TierFromScore(score)
		if len(tiers) == 0 || tiers[len(tiers)-1].Tier != t {
			tiers = append(tiers, TierBand{Tier: t, Min: score})
		}
	}

	return Rules{
		MaxScore:     scoring.MaxScore,
		RevenueBands: scoring.RevenueBands(),
		MetricsPoints: map[string]int{
			"cac_and_ltv":  scoring.MetricsPoints(signals.SignalSet{KnowsCAC: true, KnowsLTV: true}),
			"churn":        scoring.MetricsPoints(signals.SignalSet{KnowsChurn: true}),
			"gross_margin": scoring.MetricsPoints(signals.SignalSet{KnowsMargin: true}),
		},
		LanguagePoints: map[string]int{
			"business_terms":     scoring.LanguagePoints(signals.SignalSet{UsesBusinessTerms: true}),
			"systemic_approach":  scoring.LanguagePoints(signals.SignalSet{HasSystemicApproach: true}),
			"scaling_experience": scoring.LanguagePoints(signals.SignalSet{HasScalingExperience: true}),
		},
		LevelBands:      scoring.LevelBands(),
		TierBands:       tiers,
		RouteRules:      h.resolver.Rules(),
		Workspaces:      workspaces,
		ConstraintPicks: constraint.Choices(),
	}
}

// CatalogResource returns the MCP resource definition for the challenge
// templates.
func (h *Handler) CatalogResource() mcp.Resource {
	return mcp.NewResource(
		"coach://challenges/catalog",
		"Challenge Catalog",
		mcp.WithResourceDescription("Daily challenge templates by category, with targets and XP per difficulty"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleCatalog returns the template catalog as JSON.
func (h *Handler) HandleCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out := make(map[challenge.Category][]challenge.Template, len(challenge.Categories))
	for _, cat := range challenge.Categories {
		out[cat] = h.catalog.Variants(cat)
	}
	return jsonResource(req.Params.URI, out)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
