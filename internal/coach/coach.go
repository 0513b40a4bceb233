// Package coach ties the classifier pipeline to persistence.
//
// Classify is the pure pipeline: signals, score, level, constraint, route.
// Service adds storage around it: assessments become profiles, profiles
// drive daily challenges, and completions feed streaks and history decay.
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/HendryAvila/bizcoach/internal/challenge"
	"github.com/HendryAvila/bizcoach/internal/constraint"
	"github.com/HendryAvila/bizcoach/internal/logger"
	"github.com/HendryAvila/bizcoach/internal/routing"
	"github.com/HendryAvila/bizcoach/internal/scoring"
	"github.com/HendryAvila/bizcoach/internal/signals"
	"github.com/HendryAvila/bizcoach/internal/store"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

const (
	defaultSessionLimit = 1024
	defaultSessionTTL   = 24 * time.Hour
)

// Store is the persistence the service needs. *store.Store satisfies it.
type Store interface {
	SaveAssessment(ctx context.Context, a store.Assessment) error
	LatestAssessment(ctx context.Context, userID string) (*store.Assessment, error)
	UpsertProfile(ctx context.Context, p store.Profile) error
	GetProfile(ctx context.Context, userID string) (*store.Profile, error)
	ListUsers(ctx context.Context) ([]string, error)
	SaveChallenge(ctx context.Context, ch challenge.Challenge) error
	ChallengeForDay(ctx context.Context, userID string, day time.Time, loc *time.Location) (*challenge.Challenge, error)
	RecentChallenges(ctx context.Context, userID string, limit int) ([]challenge.Challenge, error)
	CompleteChallenge(ctx context.Context, userID, id string, at time.Time) (*challenge.Challenge, error)
	CompletionHistory(ctx context.Context, userID string, since time.Time) ([]challenge.Completion, error)
	Streak(ctx context.Context, userID string, now time.Time, loc *time.Location) (int, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

var (
	// ErrInvalidUser is returned for an empty user id.
	ErrInvalidUser = errors.New("coach: user id is required")
	// ErrInvalidTimezone is returned for a zone name time.LoadLocation
	// does not know.
	ErrInvalidTimezone = errors.New("coach: invalid timezone")
)

// ─── Pipeline ────────────────────────────────────────────────────────────────

// Decision is the full output of one classification run.
type Decision struct {
	Signals    signals.SignalSet           `json:"signals"`
	Score      scoring.SophisticationScore `json:"score"`
	Level      scoring.BusinessLevel       `json:"level"`
	Constraint constraint.Classification   `json:"constraint"`
	Route      routing.RouteID             `json:"route"`
	Tier       challenge.Tier              `json:"tier"`
}

// Classify runs the pipeline once. Nil extractor or resolver use the
// defaults.
func Classify(in scoring.Input, constraintChoice string, ex signals.Extractor, r *routing.Resolver) Decision {
	if ex == nil {
		ex = signals.NewKeywordExtractor()
	}
	if r == nil {
		r = routing.DefaultResolver()
	}
	return decide(in, ex.Extract(in.Text(), in.Metrics()), constraintChoice, r)
}

func decide(in scoring.Input, sig signals.SignalSet, constraintChoice string, r *routing.Resolver) Decision {
	score := scoring.Score(in, sig)
	level := scoring.ClassifyLevel(score.Total)
	cls := constraint.Classify(constraintChoice, sig)
	return Decision{
		Signals:    sig,
		Score:      score,
		Level:      level,
		Constraint: cls,
		Route:      r.Recommend(level, cls, score.Total),
		Tier:       challenge.TierFromScore(score.Total),
	}
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = l } }

// WithResolver replaces the default 80/40 route resolver.
func WithResolver(r *routing.Resolver) Option { return func(s *Service) { s.resolver = r } }

// WithExtractor replaces the keyword extractor.
func WithExtractor(e signals.Extractor) Option { return func(s *Service) { s.extractor = e } }

// WithLocation sets the zone used when a profile has none.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

// WithIDGenerator replaces uuid-based assessment IDs.
func WithIDGenerator(fn func() string) Option { return func(s *Service) { s.newID = fn } }

// WithSessions bounds onboarding state: at most limit users are tracked
// and a session idle for longer than ttl starts over. Non-positive values
// keep the defaults.
func WithSessions(limit int, ttl time.Duration) Option {
	return func(s *Service) {
		if limit > 0 {
			s.sessionLimit = limit
		}
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// Service is the coaching application service.
type Service struct {
	store     Store
	selector  *challenge.Selector
	extractor signals.Extractor
	resolver  *routing.Resolver
	log       *logger.Logger
	loc       *time.Location
	newID     func() string

	// genMu serializes daily challenge generation so two concurrent
	// requests for the same day cannot both create one.
	genMu sync.Mutex

	sessMu       sync.Mutex
	sessions     *lru.Cache[string, *session]
	sessionLimit int
	sessionTTL   time.Duration
}

// session is one in-progress onboarding.
type session struct {
	acc      *signals.Accumulator
	lastSeen time.Time
}

// New creates a Service.
func New(st Store, sel *challenge.Selector, opts ...Option) *Service {
	s := &Service{
		store:     st,
		selector:  sel,
		extractor: signals.NewKeywordExtractor(),
		resolver:  routing.DefaultResolver(),
		log:       logger.Nop(),
		loc:       time.Local,
		newID:     uuid.NewString,

		sessionLimit: defaultSessionLimit,
		sessionTTL:   defaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	// lru.New only errors on a non-positive size, which WithSessions rules out.
	s.sessions, _ = lru.New[string, *session](s.sessionLimit)
	return s
}

// Preview classifies without persisting anything. It backs the live score
// shown while the user is still answering. With a user id, signals found
// in earlier previews stay set until Assess or ResetOnboarding clears them,
// so answering one question at a time never loses a signal. Sessions idle
// past the TTL, or pushed out by newer ones, start over.
func (s *Service) Preview(userID string, in scoring.Input, constraintChoice string) Decision {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Classify(in, constraintChoice, s.extractor, s.resolver)
	}
	acc := s.session(userID)
	for _, field := range in.Text().Fields() {
		acc.AddText(field)
	}
	return decide(in, acc.AddMetrics(in.Metrics()), constraintChoice, s.resolver)
}

// ResetOnboarding discards signals accumulated by Preview.
func (s *Service) ResetOnboarding(userID string) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	s.sessions.Remove(strings.TrimSpace(userID))
}

func (s *Service) session(userID string) *signals.Accumulator {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	now := timeNow()
	sess, ok := s.sessions.Get(userID)
	if !ok || now.Sub(sess.lastSeen) > s.sessionTTL {
		sess = &session{acc: signals.NewAccumulator(s.extractor)}
		s.sessions.Add(userID, sess)
	}
	sess.lastSeen = now
	return sess.acc
}

// AssessRequest is one onboarding submission.
type AssessRequest struct {
	UserID           string        `json:"user_id"`
	Input            scoring.Input `json:"input"`
	ConstraintChoice string        `json:"constraint_choice,omitempty"`
	// Timezone and PreferredDifficulty update the profile when set.
	Timezone            string `json:"timezone,omitempty"`
	PreferredDifficulty string `json:"preferred_difficulty,omitempty"`
}

// AssessResult is a persisted decision.
type AssessResult struct {
	AssessmentID string         `json:"assessment_id"`
	Decision     Decision       `json:"decision"`
	Profile      *store.Profile `json:"profile"`
}

// Assess classifies, stores the assessment and updates the user's profile.
func (s *Service) Assess(ctx context.Context, req AssessRequest) (*AssessResult, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimezone, req.Timezone, err)
		}
	}

	now := timeNow()
	d := s.Preview(userID, req.Input, req.ConstraintChoice)
	a := store.Assessment{
		ID:         s.newID(),
		UserID:     userID,
		Score:      d.Score,
		Level:      d.Level,
		Constraint: d.Constraint,
		Route:      d.Route,
		Signals:    d.Signals,
		CreatedAt:  now,
	}
	if err := s.store.SaveAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("saving assessment: %w", err)
	}

	profile := store.Profile{UserID: userID, CreatedAt: now}
	existing, err := s.store.GetProfile(ctx, userID)
	switch {
	case err == nil:
		profile = *existing
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	profile.Tier = d.Tier
	profile.Level = d.Level
	profile.Constraint = d.Constraint.Value
	profile.ConstraintConfidence = d.Constraint.Confidence
	profile.UpdatedAt = now
	if req.Timezone != "" {
		profile.Timezone = req.Timezone
	}
	if pref := challenge.ParseDifficulty(req.PreferredDifficulty); pref != "" {
		profile.PreferredDifficulty = pref
	}
	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}
	s.ResetOnboarding(userID)

	s.log.Info("assessment saved",
		"user_id", userID,
		"score", d.Score.Total,
		"level", d.Level,
		"constraint", d.Constraint.Value,
		"route", d.Route,
	)
	return &AssessResult{AssessmentID: a.ID, Decision: d, Profile: &profile}, nil
}

// LatestAssessment returns the user's most recent stored assessment, or
// store.ErrNotFound when they never finished onboarding.
func (s *Service) LatestAssessment(ctx context.Context, userID string) (*store.Assessment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	return s.store.LatestAssessment(ctx, userID)
}

// DailyResult is the challenge for today plus streak context.
type DailyResult struct {
	Challenge challenge.Challenge `json:"challenge"`
	Streak    int                 `json:"streak"`
	// Existing is true when the challenge was generated earlier today.
	Existing bool `json:"existing"`
}

// DailyChallenge returns today's challenge for the user, generating and
// storing one if none exists yet. Users without a profile get a level0
// challenge with an unknown constraint.
func (s *Service) DailyChallenge(ctx context.Context, userID string) (*DailyResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	profile, err := s.profileOrDefault(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc := s.locationFor(profile)
	now := timeNow().In(loc)

	s.genMu.Lock()
	defer s.genMu.Unlock()

	streak, err := s.store.Streak(ctx, userID, now, loc)
	if err != nil {
		return nil, fmt.Errorf("computing streak: %w", err)
	}

	existing, err := s.store.ChallengeForDay(ctx, userID, now, loc)
	if err == nil {
		return &DailyResult{Challenge: *existing, Streak: streak, Existing: true}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading today's challenge: %w", err)
	}

	history, err := s.store.CompletionHistory(ctx, userID, now.Add(-s.selector.Config().HistoryWindow))
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	ch := s.selector.Select(challenge.Context{
		UserID:        userID,
		Tier:          profile.Tier,
		Constraint:    profile.Constraint,
		CurrentStreak: streak,
		History:       history,
		Preferences:   challenge.Preferences{Difficulty: profile.PreferredDifficulty},
		Location:      loc,
		Now:           now,
	})
	if err := s.store.SaveChallenge(ctx, ch); err != nil {
		return nil, fmt.Errorf("saving challenge: %w", err)
	}

	s.log.Info("challenge generated",
		"user_id", userID,
		"category", ch.Category,
		"difficulty", ch.Difficulty,
		"template", ch.TemplateID,
		"streak", streak,
	)
	return &DailyResult{Challenge: ch, Streak: streak}, nil
}

// CompletionResult reports a recorded completion.
type CompletionResult struct {
	Challenge challenge.Challenge `json:"challenge"`
	XPEarned  int                 `json:"xp_earned"`
	Streak    int                 `json:"streak"`
	// Late is true when the completion came after the deadline. It still
	// counts toward history and streak.
	Late bool `json:"late"`
}

// CompleteChallenge records a completion for one of the user's challenges.
func (s *Service) CompleteChallenge(ctx context.Context, userID, challengeID string) (*CompletionResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	profile, err := s.profileOrDefault(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc := s.locationFor(profile)
	now := timeNow().In(loc)

	ch, err := s.store.CompleteChallenge(ctx, userID, strings.TrimSpace(challengeID), now)
	if err != nil {
		return nil, err
	}
	streak, err := s.store.Streak(ctx, userID, now, loc)
	if err != nil {
		return nil, fmt.Errorf("computing streak: %w", err)
	}

	s.log.Info("challenge completed", "user_id", userID, "challenge", ch.ID, "xp", ch.XPReward, "streak", streak)
	return &CompletionResult{
		Challenge: *ch,
		XPEarned:  ch.XPReward,
		Streak:    streak,
		Late:      now.After(ch.Deadline),
	}, nil
}

// HistoryResult lists recent challenges.
type HistoryResult struct {
	Challenges []challenge.Challenge `json:"challenges"`
	Streak     int                   `json:"streak"`
	Completed  int                   `json:"completed"`
}

// History returns the user's latest challenges, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) (*HistoryResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	profile, err := s.profileOrDefault(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc := s.locationFor(profile)

	list, err := s.store.RecentChallenges(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading challenges: %w", err)
	}
	streak, err := s.store.Streak(ctx, userID, timeNow().In(loc), loc)
	if err != nil {
		return nil, fmt.Errorf("computing streak: %w", err)
	}
	res := &HistoryResult{Challenges: list, Streak: streak}
	for _, ch := range list {
		if ch.Completed() {
			res.Completed++
		}
	}
	return res, nil
}

// Stats returns aggregate store counts.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.Stats(ctx)
}

// PregenerateAll creates today's challenge for every profile. Per-user
// failures are logged and skipped; the count of users served is returned.
func (s *Service) PregenerateAll(ctx context.Context) (int, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing users: %w", err)
	}
	served := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return served, err
		}
		if _, err := s.DailyChallenge(ctx, u); err != nil {
			s.log.Warn("pregenerate failed", "user_id", u, "error", err)
			continue
		}
		served++
	}
	return served, nil
}

func (s *Service) profileOrDefault(ctx context.Context, userID string) (*store.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &store.Profile{UserID: userID, Tier: challenge.Tier0, Constraint: constraint.Unknown}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return p, nil
}

// locationFor resolves the profile zone. A zone that no longer loads
// falls back to the service default.
func (s *Service) locationFor(p *store.Profile) *time.Location {
	if p != nil && p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
		s.log.Warn("unknown profile timezone", "user_id", p.UserID, "timezone", p.Timezone)
	}
	if s.loc == nil {
		return time.Local
	}
	return s.loc
}
