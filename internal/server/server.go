// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on abstractions.
// No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/bizcoach/internal/challenge"
	"github.com/HendryAvila/bizcoach/internal/coach"
	"github.com/HendryAvila/bizcoach/internal/config"
	"github.com/HendryAvila/bizcoach/internal/logger"
	"github.com/HendryAvila/bizcoach/internal/prompts"
	"github.com/HendryAvila/bizcoach/internal/resources"
	"github.com/HendryAvila/bizcoach/internal/routing"
	"github.com/HendryAvila/bizcoach/internal/scheduler"
	"github.com/HendryAvila/bizcoach/internal/store"
	"github.com/HendryAvila/bizcoach/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// stopTimeout bounds how long cleanup waits for a running scheduler job.
const stopTimeout = 30 * time.Second

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function stops the scheduler and closes the store.
// It is always non-nil and safe to call even when New fails.
func New(cfg *config.Config, log *logger.Logger) (*server.MCPServer, func(), error) {
	if log == nil {
		log = logger.Nop()
	}

	// --- Create shared dependencies ---

	d, err := build(cfg, log)
	if err != nil {
		return nil, noop, err
	}
	cleanup := d.close

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"bizcoach",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Start the pre-generation scheduler ---
	//
	// The scheduler is optional: if the cron spec is bad we log and keep
	// serving, challenges are then generated on first request instead.

	var reporter tools.ScheduleReporter
	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(cfg.Scheduler.Spec, d.loc, d.svc, log)
		if err != nil {
			log.Warn("scheduler disabled", "error", err)
		} else {
			sched.Start()
			closeStore := cleanup
			cleanup = func() {
				ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
				defer cancel()
				sched.Stop(ctx)
				closeStore()
			}
			reporter = sched
		}
	}

	registerTools(s, d.svc, d.resolver, reporter)

	// --- Register prompts ---

	onboarding := prompts.NewOnboardingPrompt()
	s.AddPrompt(onboarding.Definition(), onboarding.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(d.resolver, d.catalog)
	s.AddResource(resourceHandler.RulesResource(), resourceHandler.HandleRules)
	s.AddResource(resourceHandler.CatalogResource(), resourceHandler.HandleCatalog)

	log.Info("server ready", "version", Version, "db", d.store.Path())
	return s, cleanup, nil
}

// Pregenerate creates today's challenge for every known user and exits.
// It serves hosts that prefer system cron over the built-in scheduler.
func Pregenerate(ctx context.Context, cfg *config.Config, log *logger.Logger) (int, error) {
	if log == nil {
		log = logger.Nop()
	}
	d, err := build(cfg, log)
	if err != nil {
		return 0, err
	}
	defer d.close()
	return d.svc.PregenerateAll(ctx)
}

// deps are the shared objects every entry point needs.
type deps struct {
	store    *store.Store
	svc      *coach.Service
	resolver *routing.Resolver
	catalog  *challenge.Catalog
	loc      *time.Location
	close    func()
}

func build(cfg *config.Config, log *logger.Logger) (*deps, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	selCfg, err := cfg.SelectorConfig()
	if err != nil {
		return nil, err
	}
	maxSessions, sessionTTL, err := cfg.Sessions()
	if err != nil {
		return nil, err
	}

	catalog := challenge.DefaultCatalog()
	if err := catalog.Validate(); err != nil {
		// Select falls back to the default challenge, so keep serving.
		log.Warn("challenge catalog invalid", "error", err)
	}

	st, err := store.New(store.Config{DataDir: cfg.DataDir})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	resolver := cfg.Resolver()
	selector := challenge.NewSelector(selCfg, rand.NewPCG(rand.Uint64(), rand.Uint64()), challenge.WithCatalog(catalog))
	svc := coach.New(st, selector,
		coach.WithLogger(log),
		coach.WithResolver(resolver),
		coach.WithLocation(loc),
		coach.WithSessions(maxSessions, sessionTTL),
	)

	return &deps{
		store:    st,
		svc:      svc,
		resolver: resolver,
		catalog:  catalog,
		loc:      loc,
		close: func() {
			if err := st.Close(); err != nil {
				log.Warn("store close failed", "error", err)
			}
		},
	}, nil
}

// registerTools registers all coach MCP tools with the server.
func registerTools(s *server.MCPServer, c tools.Coach, resolver *routing.Resolver, sched tools.ScheduleReporter) {
	// --- Assessment ---
	preview := tools.NewPreviewScoreTool(c)
	s.AddTool(preview.Definition(), preview.Handle)

	assess := tools.NewAssessTool(c)
	s.AddTool(assess.Definition(), assess.Handle)

	classify := tools.NewClassifyConstraintTool()
	s.AddTool(classify.Definition(), classify.Handle)

	route := tools.NewRecommendRouteTool(resolver)
	s.AddTool(route.Definition(), route.Handle)

	profile := tools.NewProfileTool(c)
	s.AddTool(profile.Definition(), profile.Handle)

	// --- Daily challenges ---
	daily := tools.NewDailyChallengeTool(c)
	s.AddTool(daily.Definition(), daily.Handle)

	complete := tools.NewCompleteChallengeTool(c)
	s.AddTool(complete.Definition(), complete.Handle)

	history := tools.NewChallengeHistoryTool(c)
	s.AddTool(history.Definition(), history.Handle)

	stats := tools.NewStatsTool(c, sched)
	s.AddTool(stats.Definition(), stats.Handle)
}

// noop is the cleanup returned before anything needs releasing.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use the coach effectively.
func serverInstructions() string {
	return `You have access to bizcoach, a business coaching MCP server.

## WHAT IT DOES

bizcoach sizes up a business owner from a short onboarding conversation
and then keeps them moving with one small challenge per day.

- A sophistication score (0-100) from revenue, metrics knowledge and the
  way they talk about their business
- A business level: beginner, growth, scale or enterprise
- Their main constraint: leads, sales, delivery or profit (only when they
  pick one, never guessed)
- A recommended route: workspace selection, a constraint workspace, or a
  guided conversation
- A daily challenge sized to their tier, constraint and streak

## ONBOARDING

1. Ask the onboarding questions ONE AT A TIME. Do not dump a form.
2. After each answer call coach_preview_score with the same user_id and
   everything said so far. Signals found in earlier answers are kept
   until coach_assess.
3. Ask the user to pick their constraint. If they are unsure, pass
   constraint="unsure". Never pick one for them.
4. Call coach_assess with all answers. This saves the profile.
5. Explain the level and route in plain words, then call
   coach_daily_challenge.

The coach-onboarding prompt runs this flow.

## DAILY CHALLENGES

- coach_daily_challenge returns the same challenge all day; call it freely.
- When the user says they did it, call coach_complete_challenge with the
  challenge ID. Completing after the deadline still counts.
- coach_challenge_history shows recent challenges and the streak.
- Celebrate streaks. Do not lecture about missed days.

## OTHER TOOLS

- coach_classify_constraint: map the user's words to a constraint
- coach_recommend_route: re-route from a known score without re-assessing
- coach_profile: the user's last saved assessment; check it before
  re-running onboarding for a returning user
- coach_stats: totals across all users and the pre-generation schedule

## RESOURCES

- coach://rules: scoring bands, level ladder, tiers and route rules
- coach://challenges/catalog: challenge templates and XP

## RULES

- Never invent scores or levels; always get them from the tools.
- Ask only for numbers the user knows. Missing metrics are normal.
- Keep coaching concrete: one next step, not a plan.`
}
