// Package nudge detects behavioral patterns in the trade log and turns them into
// pre-trade warnings.
package nudge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"trading-journal/internal/analysis"
	"trading-journal/internal/calendar"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// DefaultMaxNudges is how many nudges are shown at once.
const DefaultMaxNudges = 2

// namespace seeds the name-based nudge IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("trading-journal/nudge"))

// Context describes the trade the user is about to place. Both fields are optional.
type Context struct {
	Instrument string          `json:"instrument,omitempty"`
	Emotion    *models.Emotion `json:"emotion,omitempty"`
}

// Input is the data the detectors look at. Trades is the full history in any order.
type Input struct {
	Trades  []models.TradeRecord
	Context Context
	Today   calendar.Date
}

// Params holds the detector thresholds. Rates are percentages.
type Params struct {
	LossStreakMinTrades int `json:"loss_streak_min_trades" mapstructure:"loss_streak_min_trades"`
	LossStreakMinRun    int `json:"loss_streak_min_run" mapstructure:"loss_streak_min_run"`
	LossStreakDangerRun int `json:"loss_streak_danger_run" mapstructure:"loss_streak_danger_run"`

	InstrumentMinTrades     int     `json:"instrument_min_trades" mapstructure:"instrument_min_trades"`
	InstrumentWinRate       float64 `json:"instrument_win_rate" mapstructure:"instrument_win_rate"`
	InstrumentDangerWinRate float64 `json:"instrument_danger_win_rate" mapstructure:"instrument_danger_win_rate"`

	WeekdayMinTrades     int     `json:"weekday_min_trades" mapstructure:"weekday_min_trades"`
	WeekdayWinRate       float64 `json:"weekday_win_rate" mapstructure:"weekday_win_rate"`
	WeekdayDangerWinRate float64 `json:"weekday_danger_win_rate" mapstructure:"weekday_danger_win_rate"`

	EmotionMinTrades      int     `json:"emotion_min_trades" mapstructure:"emotion_min_trades"`
	EmotionLossRate       float64 `json:"emotion_loss_rate" mapstructure:"emotion_loss_rate"`
	EmotionDangerLossRate float64 `json:"emotion_danger_loss_rate" mapstructure:"emotion_danger_loss_rate"`

	MaxNudges int `json:"max_nudges" mapstructure:"max_nudges"`
}

// DefaultParams returns the default detector thresholds.
func DefaultParams() Params {
	return Params{
		LossStreakMinTrades: 3,
		LossStreakMinRun:    3,
		LossStreakDangerRun: 5,

		InstrumentMinTrades:     5,
		InstrumentWinRate:       40,
		InstrumentDangerWinRate: 25,

		WeekdayMinTrades:     3,
		WeekdayWinRate:       35,
		WeekdayDangerWinRate: 20,

		EmotionMinTrades:      3,
		EmotionLossRate:       60,
		EmotionDangerLossRate: 80,

		MaxNudges: DefaultMaxNudges,
	}
}

// Validate checks that counts are positive and rates are percentages.
func (p Params) Validate() error {
	counts := []struct {
		field string
		value int
	}{
		{"nudge.loss_streak_min_trades", p.LossStreakMinTrades},
		{"nudge.loss_streak_min_run", p.LossStreakMinRun},
		{"nudge.loss_streak_danger_run", p.LossStreakDangerRun},
		{"nudge.instrument_min_trades", p.InstrumentMinTrades},
		{"nudge.weekday_min_trades", p.WeekdayMinTrades},
		{"nudge.emotion_min_trades", p.EmotionMinTrades},
		{"nudge.max_nudges", p.MaxNudges},
	}
	for _, c := range counts {
		if c.value <= 0 {
			return apperrors.NewConfigurationError(c.field, c.value, "must be positive")
		}
	}
	rates := []struct {
		field string
		value float64
	}{
		{"nudge.instrument_win_rate", p.InstrumentWinRate},
		{"nudge.instrument_danger_win_rate", p.InstrumentDangerWinRate},
		{"nudge.weekday_win_rate", p.WeekdayWinRate},
		{"nudge.weekday_danger_win_rate", p.WeekdayDangerWinRate},
		{"nudge.emotion_loss_rate", p.EmotionLossRate},
		{"nudge.emotion_danger_loss_rate", p.EmotionDangerLossRate},
	}
	for _, r := range rates {
		if !(r.value > 0) || r.value > 100 {
			return apperrors.NewConfigurationError(r.field, r.value, "must be in (0, 100]")
		}
	}
	return nil
}

// Result is the ranked nudge list.
type Result struct {
	Nudges  []models.PreTradeNudge   `json:"nudges"`
	Fired   int                      `json:"fired"`
	Skipped []analysis.SkippedRecord `json:"skipped,omitempty"`
}

// Detection is the trade history handed to every detector.
type Detection struct {
	// Trades holds every valid trade, open or closed, in input order.
	Trades []models.TradeRecord
	// Closed holds the valid closed trades in input order.
	Closed  []models.TradeRecord
	Context Context
	Today   calendar.Date
	Params  Params
}

// Detector looks for one pattern and returns at most one nudge.
type Detector interface {
	Type() models.NudgeType
	Detect(d *Detection) (models.PreTradeNudge, bool)
}

// DefaultDetectors returns the built-in detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		LossStreak{},
		InstrumentUnderperformance{},
		WeekdayWeakness{},
		EmotionCorrelation{},
	}
}

// Evaluate runs the built-in detectors.
func Evaluate(in Input, p Params) (*Result, error) {
	return EvaluateWith(in, p, DefaultDetectors()...)
}

// EvaluateWith runs detectors over the input, orders what fired by severity (most
// severe first, detector order within a severity) and keeps at most p.MaxNudges.
// The cap is a display limit; Fired reports how many detectors fired.
func EvaluateWith(in Input, p Params, detectors ...Detector) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if in.Today.IsZero() {
		return nil, apperrors.NewConfigurationError("today", in.Today, "reference day must be set")
	}
	if e := in.Context.Emotion; e != nil && !e.Valid() {
		return nil, apperrors.NewConfigurationError("context.emotion", *e, "unknown emotion")
	}

	valid, skipped := analysis.ValidTrades(in.Trades)
	closed := make([]models.TradeRecord, 0, len(valid))
	for _, t := range valid {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}
	d := &Detection{
		Trades:  valid,
		Closed:  closed,
		Context: in.Context,
		Today:   in.Today,
		Params:  p,
	}

	var fired []models.PreTradeNudge
	for _, det := range detectors {
		if n, ok := det.Detect(d); ok {
			fired = append(fired, n)
		}
	}
	sort.SliceStable(fired, func(i, j int) bool {
		return fired[i].Severity.Rank() > fired[j].Severity.Rank()
	})

	res := &Result{Fired: len(fired), Skipped: skipped}
	if len(fired) > p.MaxNudges {
		fired = fired[:p.MaxNudges]
	}
	res.Nudges = fired
	if res.Nudges == nil {
		res.Nudges = []models.PreTradeNudge{}
	}
	return res, nil
}

func newNudge(typ models.NudgeType, severity models.Severity, title, icon, stat, message string) models.PreTradeNudge {
	return models.PreTradeNudge{
		ID:       uuid.NewSHA1(namespace, []byte(string(typ)+"|"+stat)).String(),
		Type:     typ,
		Severity: severity,
		Title:    title,
		Message:  message,
		Icon:     icon,
	}
}

// LossStreak fires when the most recent trades are an unbroken run of losses. An open
// trade is not a loss, so a newer open trade ends the run.
type LossStreak struct{}

// Type implements Detector.
func (LossStreak) Type() models.NudgeType { return models.NudgeLossStreak }

// Detect implements Detector. Trades are ordered newest first; on the same day a
// later position in the input is treated as more recent.
func (LossStreak) Detect(d *Detection) (models.PreTradeNudge, bool) {
	p := d.Params
	trades := d.Trades
	if len(trades) < p.LossStreakMinTrades {
		return models.PreTradeNudge{}, false
	}

	order := make([]int, len(trades))
	for i := range order {
		order[i] = len(trades) - 1 - i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return trades[order[a]].TradeDate.After(trades[order[b]].TradeDate)
	})

	run := 0
	for _, i := range order {
		if !trades[i].OutcomeIs(models.OutcomeLoss) {
			break
		}
		run++
	}
	if run < p.LossStreakMinRun {
		return models.PreTradeNudge{}, false
	}

	severity := models.SeverityWarning
	if run >= p.LossStreakDangerRun {
		severity = models.SeverityDanger
	}
	msg := fmt.Sprintf("Your last %d trades were all losses (%d trades logged). Consider pausing or cutting size before the next entry.",
		run, len(trades))
	return newNudge(models.NudgeLossStreak, severity, fmt.Sprintf("%d-trade losing streak", run), "trending-down",
		fmt.Sprintf("run=%d", run), msg), true
}

// InstrumentUnderperformance fires when the instrument about to be traded has a low
// win rate.
type InstrumentUnderperformance struct{}

// Type implements Detector.
func (InstrumentUnderperformance) Type() models.NudgeType { return models.NudgeWeakInstrument }

// Detect implements Detector.
func (InstrumentUnderperformance) Detect(d *Detection) (models.PreTradeNudge, bool) {
	symbol := models.NormalizeInstrument(d.Context.Instrument)
	if symbol == "" {
		return models.PreTradeNudge{}, false
	}
	p := d.Params

	var tally analysis.Tally
	for i := range d.Closed {
		if models.NormalizeInstrument(d.Closed[i].Instrument) == symbol {
			tally.Add(&d.Closed[i])
		}
	}
	if tally.Trades < p.InstrumentMinTrades {
		return models.PreTradeNudge{}, false
	}
	rate := tally.WinRate()
	if rate >= p.InstrumentWinRate {
		return models.PreTradeNudge{}, false
	}

	severity := models.SeverityWarning
	if rate < p.InstrumentDangerWinRate {
		severity = models.SeverityDanger
	}
	msg := fmt.Sprintf("You win %.0f%% of your %s trades (%d wins in %d closed trades).",
		rate, symbol, tally.Wins, tally.Trades)
	return newNudge(models.NudgeWeakInstrument, severity, fmt.Sprintf("Weak results on %s", symbol), "target",
		fmt.Sprintf("%s|%d/%d", symbol, tally.Wins, tally.Trades), msg), true
}

// WeekdayWeakness fires when trades placed on today's weekday tend to lose.
type WeekdayWeakness struct{}

// Type implements Detector.
func (WeekdayWeakness) Type() models.NudgeType { return models.NudgeWeakWeekday }

// Detect implements Detector.
func (WeekdayWeakness) Detect(d *Detection) (models.PreTradeNudge, bool) {
	p := d.Params
	weekday := d.Today.Weekday()

	var tally analysis.Tally
	for i := range d.Closed {
		if d.Closed[i].TradeDate.Weekday() == weekday {
			tally.Add(&d.Closed[i])
		}
	}
	if tally.Trades < p.WeekdayMinTrades {
		return models.PreTradeNudge{}, false
	}
	rate := tally.WinRate()
	if rate >= p.WeekdayWinRate {
		return models.PreTradeNudge{}, false
	}

	severity := models.SeverityWarning
	if rate < p.WeekdayDangerWinRate {
		severity = models.SeverityDanger
	}
	msg := fmt.Sprintf("You win %.0f%% of trades taken on %ss (%d wins in %d closed trades).",
		rate, weekday, tally.Wins, tally.Trades)
	return newNudge(models.NudgeWeakWeekday, severity, fmt.Sprintf("%ss are tough for you", weekday), "calendar",
		fmt.Sprintf("%s|%d/%d", weekday, tally.Wins, tally.Trades), msg), true
}

// EmotionCorrelation fires when the emotion the user reports right now has preceded
// mostly losing trades. Only negative emotions are checked.
type EmotionCorrelation struct{}

// Type implements Detector.
func (EmotionCorrelation) Type() models.NudgeType { return models.NudgeEmotionCorrelated }

// Detect implements Detector.
func (EmotionCorrelation) Detect(d *Detection) (models.PreTradeNudge, bool) {
	e := d.Context.Emotion
	if e == nil || !e.IsNegative() {
		return models.PreTradeNudge{}, false
	}
	p := d.Params

	var tally analysis.Tally
	for i := range d.Closed {
		if before := d.Closed[i].EmotionBefore; before != nil && *before == *e {
			tally.Add(&d.Closed[i])
		}
	}
	if tally.Trades < p.EmotionMinTrades {
		return models.PreTradeNudge{}, false
	}
	rate := tally.LossRate()
	if rate <= p.EmotionLossRate {
		return models.PreTradeNudge{}, false
	}

	severity := models.SeverityWarning
	if rate >= p.EmotionDangerLossRate {
		severity = models.SeverityDanger
	}
	name := strings.ToLower(e.Label())
	msg := fmt.Sprintf("When you feel %s before a trade you lose %.0f%% of the time (%d losses in %d closed trades).",
		name, rate, tally.Losses, tally.Trades)
	return newNudge(models.NudgeEmotionCorrelated, severity, fmt.Sprintf("Trading while %s", name), "brain",
		fmt.Sprintf("%s|%d/%d", *e, tally.Losses, tally.Trades), msg), true
}
