// Package store persists assessments, profiles and daily challenges in
// SQLite. Completions are appended to their own table so a challenge row is
// never rewritten after it is generated.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/HendryAvila/bizcoach/internal/challenge"
	"github.com/HendryAvila/bizcoach/internal/constraint"
	"github.com/HendryAvila/bizcoach/internal/routing"
	"github.com/HendryAvila/bizcoach/internal/scoring"
	"github.com/HendryAvila/bizcoach/internal/signals"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

var (
	// ErrNotFound is returned when a row does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("store: not found")
	// ErrAlreadyCompleted is returned when a challenge completion is
	// recorded twice.
	ErrAlreadyCompleted = errors.New("store: challenge already completed")
)

// timeLayout sorts lexicographically, so range queries compare strings.
const timeLayout = "2006-01-02 15:04:05.000000000"

// ─── Types ───────────────────────────────────────────────────────────────────

// Profile is the per-user state the challenge selector reads.
type Profile struct {
	UserID               string                `json:"user_id"`
	Tier                 challenge.Tier        `json:"tier"`
	Level                scoring.BusinessLevel `json:"level"`
	Constraint           constraint.Value      `json:"constraint"`
	ConstraintConfidence int                   `json:"constraint_confidence"`
	Timezone             string                `json:"timezone,omitempty"` // IANA name; empty uses the server default
	PreferredDifficulty  challenge.Difficulty  `json:"preferred_difficulty,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// Assessment is one persisted classification run.
type Assessment struct {
	ID         string                      `json:"id"`
	UserID     string                      `json:"user_id"`
	Score      scoring.SophisticationScore `json:"score"`
	Level      scoring.BusinessLevel       `json:"level"`
	Constraint constraint.Classification   `json:"constraint"`
	Route      routing.RouteID             `json:"route"`
	Signals    signals.SignalSet           `json:"signals"`
	CreatedAt  time.Time                   `json:"created_at"`
}

// Stats holds aggregate counts.
type Stats struct {
	TotalProfiles    int            `json:"total_profiles"`
	TotalAssessments int            `json:"total_assessments"`
	TotalChallenges  int            `json:"total_challenges"`
	TotalCompletions int            `json:"total_completions"`
	TotalXP          int            `json:"total_xp"`
	Routes           map[string]int `json:"routes"`
	Levels           map[string]int `json:"levels"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig stores data under ~/.bizcoach.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".bizcoach")}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite persistence layer.
type Store struct {
	db    *sql.DB
	cfg   Config
	hooks storeHooks
}

type storeHooks struct {
	exec func(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error)
}

func defaultStoreHooks() storeHooks {
	return storeHooks{
		exec: func(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
			return db.ExecContext(ctx, query, args...)
		},
	}
}

func (s *Store) execHook(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, s.db, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

// New opens (creating if needed) the database in cfg.DataDir.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "bizcoach.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, hooks: defaultStoreHooks()}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return filepath.Join(s.cfg.DataDir, "bizcoach.db")
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS profiles (
			user_id               TEXT PRIMARY KEY,
			tier                  TEXT NOT NULL,
			level                 TEXT NOT NULL,
			constraint_value      TEXT NOT NULL,
			constraint_confidence INTEGER NOT NULL DEFAULT 0,
			timezone              TEXT NOT NULL DEFAULT '',
			preferred_difficulty  TEXT NOT NULL DEFAULT '',
			created_at            TEXT NOT NULL,
			updated_at            TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS assessments (
			id                    TEXT PRIMARY KEY,
			user_id               TEXT NOT NULL,
			score                 INTEGER NOT NULL,
			revenue_pts           INTEGER NOT NULL,
			metrics_pts           INTEGER NOT NULL,
			language_pts          INTEGER NOT NULL,
			level                 TEXT NOT NULL,
			constraint_value      TEXT NOT NULL,
			constraint_confidence INTEGER NOT NULL,
			constraint_source     TEXT NOT NULL,
			route                 TEXT NOT NULL,
			signals_json          TEXT NOT NULL,
			created_at            TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS challenges (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			category         TEXT NOT NULL,
			difficulty       TEXT NOT NULL,
			template_id      TEXT NOT NULL,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL,
			success_criteria TEXT NOT NULL,
			target           REAL NOT NULL DEFAULT 0,
			unit             TEXT NOT NULL DEFAULT '',
			xp_reward        INTEGER NOT NULL,
			deadline         TEXT NOT NULL,
			created_at       TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS challenge_completions (
			challenge_id TEXT PRIMARY KEY REFERENCES challenges(id) ON DELETE CASCADE,
			user_id      TEXT NOT NULL,
			completed_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_assessments_user ON assessments(user_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_challenges_user  ON challenges(user_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_completions_user ON challenge_completions(user_id, completed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Assessments ─────────────────────────────────────────────────────────────

// SaveAssessment inserts a classification run.
func (s *Store) SaveAssessment(ctx context.Context, a Assessment) error {
	if a.ID == "" || a.UserID == "" {
		return fmt.Errorf("store: assessment id and user id are required")
	}
	sig, err := json.Marshal(a.Signals)
	if err != nil {
		return fmt.Errorf("store: encode signals: %w", err)
	}
	_, err = s.execHook(ctx,
		`INSERT INTO assessments (id, user_id, score, revenue_pts, metrics_pts, language_pts, level,
			constraint_value, constraint_confidence, constraint_source, route, signals_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Score.Total, a.Score.Breakdown.Revenue, a.Score.Breakdown.Metrics, a.Score.Breakdown.Language,
		string(a.Level), string(a.Constraint.Value), a.Constraint.Confidence, string(a.Constraint.Source),
		string(a.Route), string(sig), formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("store: save assessment: %w", err)
	}
	return nil
}

// LatestAssessment returns the user's most recent assessment.
func (s *Store) LatestAssessment(ctx context.Context, userID string) (*Assessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, score, revenue_pts, metrics_pts, language_pts, level,
			constraint_value, constraint_confidence, constraint_source, route, signals_json, created_at
		 FROM assessments WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, userID)

	var (
		a                      Assessment
		level, cv, csrc, route string
		sig, created           string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Score.Total, &a.Score.Breakdown.Revenue, &a.Score.Breakdown.Metrics,
		&a.Score.Breakdown.Language, &level, &cv, &a.Constraint.Confidence, &csrc, &route, &sig, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest assessment: %w", err)
	}
	a.Level = scoring.ParseLevel(level)
	a.Constraint.Value = constraint.Parse(cv)
	a.Constraint.Source = constraint.Source(csrc)
	a.Route = routing.RouteID(route)
	if err := json.Unmarshal([]byte(sig), &a.Signals); err != nil {
		return nil, fmt.Errorf("store: decode signals: %w", err)
	}
	if a.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &a, nil
}

// ─── Profiles ────────────────────────────────────────────────────────────────

// UpsertProfile inserts or replaces a profile, keeping the original
// created_at.
func (s *Store) UpsertProfile(ctx context.Context, p Profile) error {
	if p.UserID == "" {
		return fmt.Errorf("store: profile user id is required")
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = p.UpdatedAt
	}
	_, err := s.execHook(ctx,
		`INSERT INTO profiles (user_id, tier, level, constraint_value, constraint_confidence, timezone,
			preferred_difficulty, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			tier = excluded.tier,
			level = excluded.level,
			constraint_value = excluded.constraint_value,
			constraint_confidence = excluded.constraint_confidence,
			timezone = excluded.timezone,
			preferred_difficulty = excluded.preferred_difficulty,
			updated_at = excluded.updated_at`,
		p.UserID, string(p.Tier), string(p.Level), string(p.Constraint), p.ConstraintConfidence, p.Timezone,
		string(p.PreferredDifficulty), formatTime(created), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("store: upsert profile: %w", err)
	}
	return nil
}

// GetProfile returns a user's profile. Enum columns holding values this
// build does not know read back as the most conservative value: level0,
// beginner, an unknown constraint with no confidence and no preference.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, tier, level, constraint_value, constraint_confidence, timezone, preferred_difficulty,
			created_at, updated_at
		 FROM profiles WHERE user_id = ?`, userID)

	var (
		p                     Profile
		tier, level, cv, pref string
		created, updated      string
	)
	err := row.Scan(&p.UserID, &tier, &level, &cv, &p.ConstraintConfidence, &p.Timezone, &pref, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get profile: %w", err)
	}
	p.Tier = challenge.ParseTier(tier)
	p.Level = scoring.ParseLevel(level)
	p.Constraint = constraint.Parse(cv)
	if p.Constraint == constraint.Unknown && cv != string(constraint.Unknown) {
		p.ConstraintConfidence = 0
	}
	p.PreferredDifficulty = challenge.ParseDifficulty(pref)
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListUsers returns every profile's user id in sorted order.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id FROM profiles ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("store: list users: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ─── Challenges ──────────────────────────────────────────────────────────────

// SaveChallenge inserts a generated challenge.
func (s *Store) SaveChallenge(ctx context.Context, ch challenge.Challenge) error {
	if ch.ID == "" || ch.UserID == "" {
		return fmt.Errorf("store: challenge id and user id are required")
	}
	_, err := s.execHook(ctx,
		`INSERT INTO challenges (id, user_id, category, difficulty, template_id, title, description,
			success_criteria, target, unit, xp_reward, deadline, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.UserID, string(ch.Category), string(ch.Difficulty), ch.TemplateID, ch.Title, ch.Description,
		ch.SuccessCriteria, ch.Target, ch.Unit, ch.XPReward, formatTime(ch.Deadline), formatTime(ch.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("store: save challenge: %w", err)
	}
	return nil
}

const challengeColumns = `c.id, c.user_id, c.category, c.difficulty, c.template_id, c.title, c.description,
	c.success_criteria, c.target, c.unit, c.xp_reward, c.deadline, c.created_at, cc.completed_at`

const challengeFrom = `FROM challenges c LEFT JOIN challenge_completions cc ON cc.challenge_id = c.id`

// GetChallenge returns one challenge with its completion, if any.
func (s *Store) GetChallenge(ctx context.Context, id string) (*challenge.Challenge, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+challengeColumns+" "+challengeFrom+" WHERE c.id = ?", id)
	return scanChallenge(row)
}

// ChallengeForDay returns the user's most recent challenge created on day's
// calendar date in loc.
func (s *Store) ChallengeForDay(ctx context.Context, userID string, day time.Time, loc *time.Location) (*challenge.Challenge, error) {
	start, end := dayBounds(day, loc)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+challengeColumns+" "+challengeFrom+`
		 WHERE c.user_id = ? AND c.created_at >= ? AND c.created_at < ?
		 ORDER BY c.created_at DESC LIMIT 1`,
		userID, formatTime(start), formatTime(end))
	return scanChallenge(row)
}

// RecentChallenges returns the user's latest challenges, newest first.
func (s *Store) RecentChallenges(ctx context.Context, userID string, limit int) ([]challenge.Challenge, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+challengeColumns+" "+challengeFrom+`
		 WHERE c.user_id = ? ORDER BY c.created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent challenges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []challenge.Challenge
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}
	return out, rows.Err()
}

// CompleteChallenge records a completion. The challenge must belong to
// userID; a second completion returns ErrAlreadyCompleted.
func (s *Store) CompleteChallenge(ctx context.Context, userID, id string, at time.Time) (*challenge.Challenge, error) {
	ch, err := s.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch.UserID != userID {
		return nil, ErrNotFound
	}
	if ch.Completed() {
		return nil, ErrAlreadyCompleted
	}

	res, err := s.execHook(ctx,
		`INSERT INTO challenge_completions (challenge_id, user_id, completed_at) VALUES (?, ?, ?)
		 ON CONFLICT(challenge_id) DO NOTHING`,
		id, userID, formatTime(at))
	if err != nil {
		return nil, fmt.Errorf("store: complete challenge: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrAlreadyCompleted
	}
	done := at
	ch.CompletedAt = &done
	return ch, nil
}

// CompletionHistory returns the user's completions at or after since,
// newest first.
func (s *Store) CompletionHistory(ctx context.Context, userID string, since time.Time) ([]challenge.Completion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cc.challenge_id, c.category, c.template_id, cc.completed_at
		 FROM challenge_completions cc JOIN challenges c ON c.id = cc.challenge_id
		 WHERE cc.user_id = ? AND cc.completed_at >= ?
		 ORDER BY cc.completed_at DESC`, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("store: completion history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []challenge.Completion
	for rows.Next() {
		var (
			c       challenge.Completion
			cat, at string
		)
		if err := rows.Scan(&c.ChallengeID, &cat, &c.TemplateID, &at); err != nil {
			return nil, fmt.Errorf("store: completion history: %w", err)
		}
		c.Category = challenge.Category(cat)
		if c.CompletedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Streak counts consecutive calendar days in loc with at least one
// completion. The run must end today or yesterday; a gap of a full day
// resets it to zero.
func (s *Store) Streak(ctx context.Context, userID string, now time.Time, loc *time.Location) (int, error) {
	if loc == nil {
		loc = now.Location()
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT completed_at FROM challenge_completions WHERE user_id = ? AND completed_at <= ?`,
		userID, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("store: streak: %w", err)
	}
	defer func() { _ = rows.Close() }()

	days := make(map[string]bool)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return 0, fmt.Errorf("store: streak: %w", err)
		}
		t, err := parseTime(raw)
		if err != nil {
			return 0, err
		}
		days[t.In(loc).Format(time.DateOnly)] = true
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("store: streak: %w", err)
	}
	return countStreak(days, now.In(loc)), nil
}

func countStreak(days map[string]bool, today time.Time) int {
	day := today
	if !days[day.Format(time.DateOnly)] {
		day = day.AddDate(0, 0, -1)
		if !days[day.Format(time.DateOnly)] {
			return 0
		}
	}
	n := 0
	for days[day.Format(time.DateOnly)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate counts. Routes and levels come from each user's
// latest assessment.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Routes: map[string]int{}, Levels: map[string]int{}}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM profiles", &stats.TotalProfiles},
		{"SELECT COUNT(*) FROM assessments", &stats.TotalAssessments},
		{"SELECT COUNT(*) FROM challenges", &stats.TotalChallenges},
		{"SELECT COUNT(*) FROM challenge_completions", &stats.TotalCompletions},
		{`SELECT COALESCE(SUM(c.xp_reward), 0) FROM challenge_completions cc
		  JOIN challenges c ON c.id = cc.challenge_id`, &stats.TotalXP},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("store: stats: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.route, a.level FROM assessments a
		 WHERE a.rowid = (SELECT b.rowid FROM assessments b WHERE b.user_id = a.user_id
		                  ORDER BY b.created_at DESC, b.rowid DESC LIMIT 1)`)
	if err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var route, level string
		if err := rows.Scan(&route, &level); err != nil {
			return nil, fmt.Errorf("store: stats: %w", err)
		}
		stats.Routes[route]++
		stats.Levels[level]++
	}
	return stats, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row scanner) (*challenge.Challenge, error) {
	var (
		ch                challenge.Challenge
		cat, diff         string
		deadline, created string
		completed         sql.NullString
	)
	err := row.Scan(&ch.ID, &ch.UserID, &cat, &diff, &ch.TemplateID, &ch.Title, &ch.Description,
		&ch.SuccessCriteria, &ch.Target, &ch.Unit, &ch.XPReward, &deadline, &created, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan challenge: %w", err)
	}
	ch.Category = challenge.Category(cat)
	ch.Difficulty = challenge.Difficulty(diff)
	if ch.Deadline, err = parseTime(deadline); err != nil {
		return nil, err
	}
	if ch.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if completed.Valid {
		t, err := parseTime(completed.String)
		if err != nil {
			return nil, err
		}
		ch.CompletedAt = &t
	}
	return &ch, nil
}

func dayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = day.Location()
	}
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: parse time %q: %w", s, err)
	}
	return t, nil
}
