package challenge

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Selector defaults.
const (
	// DefaultUniformStreakThreshold is the streak above which category
	// weighting is skipped and every category is equally likely.
	DefaultUniformStreakThreshold = 7

	DefaultHistoryWindow = 30 * 24 * time.Hour
	DefaultDecayWindow   = 7 * 24 * time.Hour
	DefaultDecayFactor   = 0.75
	DefaultDecayFloor    = 0.25
)

// Config tunes the selector.
type Config struct {
	UniformStreakThreshold int
	HistoryWindow          time.Duration
	DecayWindow            time.Duration
	DecayFactor            float64
	DecayFloor             float64
}

// DefaultConfig returns the standard selector configuration.
func DefaultConfig() Config {
	return Config{
		UniformStreakThreshold: DefaultUniformStreakThreshold,
		HistoryWindow:          DefaultHistoryWindow,
		DecayWindow:            DefaultDecayWindow,
		DecayFactor:            DefaultDecayFactor,
		DecayFloor:             DefaultDecayFloor,
	}
}

// Option configures a Selector.
type Option func(*Selector)

// WithCatalog replaces the built-in templates.
func WithCatalog(c *Catalog) Option {
	return func(s *Selector) { s.catalog = c }
}

// WithIDGenerator replaces uuid-based challenge IDs.
func WithIDGenerator(fn func() string) Option {
	return func(s *Selector) { s.newID = fn }
}

// Selector draws challenges. It is safe for concurrent use; the random
// source is guarded because rand.Rand is not.
type Selector struct {
	cfg     Config
	catalog *Catalog
	newID   func() string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector. A nil source is seeded from the clock.
func NewSelector(cfg Config, src rand.Source, opts ...Option) *Selector {
	if src == nil {
		seed := uint64(timeNow().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}
	s := &Selector{
		cfg:     cfg,
		catalog: DefaultCatalog(),
		newID:   uuid.NewString,
		rng:     rand.New(src),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the selector's configuration.
func (s *Selector) Config() Config { return s.cfg }

// Select generates a challenge for ctx. It never panics and always returns
// a challenge with a title, a positive XP reward and a deadline after now.
func (s *Selector) Select(ctx Context) (ch Challenge) {
	now := ctx.Now
	if now.IsZero() {
		now = timeNow()
	}

	defer func() {
		if r := recover(); r != nil {
			ch = s.finish(defaultChallenge(), ctx, now)
		}
	}()

	tmpl, diff := s.draw(ctx, now)
	built, err := build(tmpl, diff)
	if err != nil {
		built = defaultChallenge()
	}
	return s.finish(built, ctx, now)
}

// draw makes every random choice for one challenge under the lock.
func (s *Selector) draw(ctx Context, now time.Time) (Template, Difficulty) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat := s.chooseCategory(ctx, now)
	diff := s.chooseDifficulty(ctx)
	variants := s.catalog.Variants(cat)
	if len(variants) == 0 {
		return Template{}, diff
	}
	return variants[s.rng.IntN(len(variants))], diff
}

func (s *Selector) finish(ch Challenge, ctx Context, now time.Time) Challenge {
	ch.ID = s.newID()
	ch.UserID = ctx.UserID
	ch.CreatedAt = now
	ch.Deadline = deadlineFor(now, ctx.Location)
	return ch
}

// deadlineFor is the end of now's day in loc. In the last millisecond of
// a day that instant is not after now, so the next day's end is used.
func deadlineFor(now time.Time, loc *time.Location) time.Time {
	d := EndOfDay(now, loc)
	if !d.After(now) {
		d = EndOfDay(d.Add(time.Millisecond), loc)
	}
	return d
}

// build resolves a template at a difficulty into a challenge.
func build(t Template, d Difficulty) (Challenge, error) {
	if t.ID == "" {
		return Challenge{}, fmt.Errorf("no template")
	}
	if err := ValidateCategory(t.Category); err != nil {
		return Challenge{}, err
	}
	lvl, ok := t.Levels[d]
	if !ok {
		return Challenge{}, fmt.Errorf("template %s: no %s level", t.ID, d)
	}
	if lvl.XP <= 0 {
		return Challenge{}, fmt.Errorf("template %s: %s level has no XP reward", t.ID, d)
	}
	text, err := renderTemplate(t, lvl)
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{
		Category:        t.Category,
		Difficulty:      d,
		TemplateID:      t.ID,
		Title:           text.Title,
		Description:     text.Description,
		SuccessCriteria: text.SuccessCriteria,
		Target:          lvl.Target,
		Unit:            lvl.Unit,
		XPReward:        lvl.XP,
	}, nil
}

// --- Category selection ---

func (s *Selector) chooseCategory(ctx Context, now time.Time) Category {
	if ctx.CurrentStreak > s.cfg.UniformStreakThreshold {
		return Categories[s.rng.IntN(len(Categories))]
	}
	return s.weighted(CategoryWeights(ctx, s.cfg, now))
}

// weighted draws a category proportionally to w, walking Categories in
// order. A non-positive total falls back to a uniform draw.
func (s *Selector) weighted(w Weights) Category {
	total := w.Total()
	if total <= 0 {
		return Categories[s.rng.IntN(len(Categories))]
	}
	r := s.rng.Float64() * total
	for _, cat := range Categories {
		r -= w[cat]
		if r < 0 {
			return cat
		}
	}
	// Float rounding can leave r at ~0 after the last category.
	for i := len(Categories) - 1; i >= 0; i-- {
		if w[Categories[i]] > 0 {
			return Categories[i]
		}
	}
	return CategoryRevenue
}

// --- Difficulty selection ---

// Odds is the probability of drawing one difficulty.
type Odds struct {
	Difficulty Difficulty `json:"difficulty"`
	P          float64    `json:"p"`
}

// DifficultyOdds returns the difficulty distribution for a context. A
// preferred difficulty always wins.
func DifficultyOdds(ctx Context) []Odds {
	if pref := ParseDifficulty(string(ctx.Preferences.Difficulty)); pref != "" {
		return []Odds{{pref, 1}}
	}
	streak := ctx.CurrentStreak
	switch {
	case streak < 3:
		return []Odds{{DifficultyEasy, 1}}
	case ctx.Tier.isAdvanced():
		return []Odds{{DifficultyMedium, 0.4}, {DifficultyHard, 0.6}}
	case streak <= 6:
		return []Odds{{DifficultyEasy, 0.7}, {DifficultyMedium, 0.3}}
	case streak <= 13:
		return []Odds{{DifficultyMedium, 0.5}, {DifficultyHard, 0.5}}
	default:
		return []Odds{{DifficultyEasy, 0.5}, {DifficultyMedium, 0.3}, {DifficultyHard, 0.2}}
	}
}

func (s *Selector) chooseDifficulty(ctx Context) Difficulty {
	odds := DifficultyOdds(ctx)
	if len(odds) == 1 {
		return odds[0].Difficulty
	}
	r := s.rng.Float64()
	for _, o := range odds {
		r -= o.P
		if r < 0 {
			return o.Difficulty
		}
	}
	return odds[len(odds)-1].Difficulty
}
