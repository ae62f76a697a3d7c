// Package report assembles the journal dashboard by running every analyzer over one
// user's trade log.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"trading-journal/internal/analysis"
	"trading-journal/internal/analysis/consistency"
	"trading-journal/internal/analysis/equity"
	"trading-journal/internal/analysis/nudge"
	"trading-journal/internal/analysis/performance"
	"trading-journal/internal/analysis/playbook"
	"trading-journal/internal/analysis/streak"
	"trading-journal/internal/calendar"
	"trading-journal/internal/config"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/memo"
	"trading-journal/internal/models"
)

// Section names, used in logs and for single-section requests.
const (
	SectionStreak      = "streak"
	SectionBreakdown   = "breakdown"
	SectionEquity      = "equity"
	SectionPlaybook    = "playbook"
	SectionConsistency = "consistency"
	SectionNudges      = "nudges"
)

// Settings are the analyzer parameters a Builder runs with.
type Settings struct {
	Rules           []models.RuleID             `json:"rules"`
	RestDaysPerWeek int                         `json:"rest_days_per_week"`
	Playbook        playbook.Thresholds         `json:"playbook"`
	Consistency     consistency.Params          `json:"consistency"`
	WindowSize      int                         `json:"window_size"`
	Account         *consistency.AccountContext `json:"account,omitempty"`
	Nudge           nudge.Params                `json:"nudge"`
}

// DefaultSettings returns the product defaults.
func DefaultSettings() Settings {
	return Settings{
		Rules:           models.DefaultRules,
		RestDaysPerWeek: streak.DefaultRestDaysPerWeek,
		Playbook:        playbook.DefaultThresholds(),
		Consistency:     consistency.DefaultParams(),
		WindowSize:      consistency.DefaultWindowSize,
		Nudge:           nudge.DefaultParams(),
	}
}

// SettingsFromConfig builds Settings from a loaded configuration.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	rules, err := cfg.RuleIDs()
	if err != nil {
		return Settings{}, err
	}
	params, err := cfg.ConsistencyParams()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Rules:           rules,
		RestDaysPerWeek: cfg.Engine.RestDaysPerWeek,
		Playbook:        cfg.Playbook,
		Consistency:     params,
		WindowSize:      cfg.Consistency.WindowSize,
		Account:         cfg.AccountContext(),
		Nudge:           cfg.Nudge,
	}, nil
}

// Validate checks every analyzer's parameters up front so Build fails before any work.
func (s Settings) Validate() error {
	if err := analysis.ValidateRules(s.Rules); err != nil {
		return err
	}
	if s.RestDaysPerWeek < 0 {
		return apperrors.NewConfigurationError("rest_days_per_week", s.RestDaysPerWeek, "must not be negative")
	}
	if s.WindowSize <= 0 {
		return apperrors.NewConfigurationError("window_size", s.WindowSize, "must be positive")
	}
	if err := s.Playbook.Validate(); err != nil {
		return err
	}
	if err := s.Consistency.Validate(); err != nil {
		return err
	}
	return s.Nudge.Validate()
}

// Request is one dashboard computation.
type Request struct {
	UserID   string                 `json:"user_id"`
	Trades   []models.TradeRecord   `json:"trades"`
	CheckIns []models.CheckInRecord `json:"check_ins"`
	Today    calendar.Date          `json:"today"`
	Context  nudge.Context          `json:"context"`
}

// Dashboard carries every section of the journal analytics. Consistency is nil when no
// closed trade falls in the scoring window.
type Dashboard struct {
	UserID      string                   `json:"user_id"`
	Today       calendar.Date            `json:"today"`
	Streak      models.StreakResult      `json:"streak"`
	Breakdown   *performance.Breakdown   `json:"breakdown"`
	Equity      *equity.Curve            `json:"equity"`
	Playbook    *playbook.Playbook       `json:"playbook"`
	Consistency *consistency.Score       `json:"consistency"`
	Nudges      *nudge.Result            `json:"nudges"`
	Skipped     []analysis.SkippedRecord `json:"skipped,omitempty"`
}

// Builder runs the analyzers. It is safe for concurrent use.
type Builder struct {
	settings Settings
	logger   zerolog.Logger
	cache    *memo.Cache[*Dashboard]
}

// Option configures a Builder.
type Option func(*Builder)

// WithCache memoizes dashboards by content hash of request and settings.
func WithCache(cache *memo.Cache[*Dashboard]) Option {
	return func(b *Builder) {
		b.cache = cache
	}
}

// NewBuilder creates a Builder. The settings are validated here.
func NewBuilder(settings Settings, logger zerolog.Logger, opts ...Option) (*Builder, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("report settings: %w", err)
	}
	b := &Builder{
		settings: settings,
		logger:   logger.With().Str("component", "report").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Settings returns the builder's settings.
func (b *Builder) Settings() Settings {
	return b.settings
}

// Build computes the dashboard for req. With a cache configured, identical requests
// return the same Dashboard value; callers must not mutate it.
func (b *Builder) Build(ctx context.Context, req Request) (*Dashboard, error) {
	if req.Today.IsZero() {
		return nil, apperrors.NewConfigurationError("today", req.Today, "must be set")
	}
	if b.cache == nil {
		return b.build(ctx, req)
	}

	key, err := memo.Key(memo.DomainDashboard, req, b.settings)
	if err != nil {
		// Non-finite values cannot be encoded; such requests are simply not cached.
		b.logger.Debug().Err(err).Msg("Dashboard not cacheable")
		return b.build(ctx, req)
	}
	return b.cache.GetOrCompute(key, func() (*Dashboard, error) {
		return b.build(ctx, req)
	})
}

func (b *Builder) build(ctx context.Context, req Request) (*Dashboard, error) {
	start := time.Now()
	s := b.settings
	d := &Dashboard{UserID: req.UserID, Today: req.Today}

	// Each goroutine writes only its own field of d.
	group, ctx := errgroup.WithContext(ctx)

	var streakSkipped []analysis.SkippedRecord
	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		in, skipped := streak.FromRecords(req.Trades, req.CheckIns, req.Today, s.RestDaysPerWeek)
		res, err := streak.Calculate(in)
		if err != nil {
			return fmt.Errorf("%s: %w", SectionStreak, err)
		}
		d.Streak = res
		streakSkipped = skipped
		return nil
	})

	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := performance.Aggregate(req.Trades, s.Rules)
		if err != nil {
			return fmt.Errorf("%s: %w", SectionBreakdown, err)
		}
		d.Breakdown = res
		return nil
	})

	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.Equity = equity.Analyze(req.Trades)
		return nil
	})

	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := playbook.Score(req.Trades, s.Playbook)
		if err != nil {
			return fmt.Errorf("%s: %w", SectionPlaybook, err)
		}
		d.Playbook = res
		return nil
	})

	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := ScoreConsistency(req, s)
		if err != nil {
			return fmt.Errorf("%s: %w", SectionConsistency, err)
		}
		d.Consistency = res
		return nil
	})

	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := nudge.Evaluate(nudge.Input{Trades: req.Trades, Context: req.Context, Today: req.Today}, s.Nudge)
		if err != nil {
			return fmt.Errorf("%s: %w", SectionNudges, err)
		}
		d.Nudges = res
		return nil
	})

	if err := group.Wait(); err != nil {
		b.logger.Error().Err(err).Str("user", req.UserID).Msg("Dashboard build failed")
		return nil, err
	}

	// Every analyzer validates the same records, so the streak's list covers them all.
	d.Skipped = streakSkipped
	for _, rec := range d.Skipped {
		logging.LogSkippedRecord(b.logger, "report", rec.RecordID, rec.Index, rec.Reason)
	}

	b.logger.Debug().
		Str("user", req.UserID).
		Int("trades", len(req.Trades)).
		Int("skipped", len(d.Skipped)).
		Dur("duration", time.Since(start)).
		Msg("Dashboard built")

	return d, nil
}

// ScoreConsistency windows req's trades and scores them. Journaling cadence looks at every
// valid trade's day, not only the window's.
func ScoreConsistency(req Request, s Settings) (*consistency.Score, error) {
	window, skipped := consistency.Window(req.Trades, s.WindowSize)
	valid, _ := analysis.ValidTrades(req.Trades)
	dates := make([]calendar.Date, 0, len(valid))
	for _, t := range valid {
		dates = append(dates, t.TradeDate)
	}
	score, err := consistency.Compute(consistency.Input{
		Window:     window,
		TradeDates: dates,
		CheckIns:   req.CheckIns,
		Today:      req.Today,
		Account:    s.Account,
	}, s.Consistency)
	if err != nil || score == nil {
		return score, err
	}
	score.Skipped = append(score.Skipped, skipped...)
	return score, nil
}
