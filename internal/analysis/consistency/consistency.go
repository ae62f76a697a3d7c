// Package consistency scores trading discipline over a recent window of closed trades.
package consistency

import (
	"math"
	"sort"

	"trading-journal/internal/analysis"
	"trading-journal/internal/calendar"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// Defaults.
const (
	DefaultWindowSize     = 20
	DefaultJournalingDays = 20
)

// Grade labels for the overall score.
const (
	GradeExcellent = "excellent"
	GradeGood      = "good"
	GradeFair      = "fair"
	GradeNeedsWork = "needs work"
)

// Weights sets the contribution of each sub-score to the overall score.
type Weights struct {
	RuleAdherence         float64 `json:"rule_adherence" mapstructure:"rule_adherence"`
	RiskManagement        float64 `json:"risk_management" mapstructure:"risk_management"`
	EmotionalDiscipline   float64 `json:"emotional_discipline" mapstructure:"emotional_discipline"`
	JournalingConsistency float64 `json:"journaling_consistency" mapstructure:"journaling_consistency"`
}

// EqualWeights weighs the four sub-scores the same.
func EqualWeights() Weights {
	return Weights{1, 1, 1, 1}
}

func (w Weights) sum() float64 {
	return w.RuleAdherence + w.RiskManagement + w.EmotionalDiscipline + w.JournalingConsistency
}

// AccountContext is the optional account data used to penalize oversized losses.
type AccountContext struct {
	Balance        float64 `json:"balance"`
	MaxRiskPercent float64 `json:"max_risk_percent"`
}

// maxLoss returns the largest acceptable loss per trade, or false when the context
// cannot be used.
func (a *AccountContext) maxLoss() (float64, bool) {
	if a == nil || !(a.Balance > 0) || !(a.MaxRiskPercent > 0) {
		return 0, false
	}
	if math.IsInf(a.Balance, 0) || math.IsInf(a.MaxRiskPercent, 0) {
		return 0, false
	}
	return a.Balance * a.MaxRiskPercent / 100, true
}

// Input is the data scored by Compute. Window is trusted as given: Compute does not
// sort or truncate it. TradeDates, when set, lists the days with any logged trade and
// is used for journaling cadence; otherwise the window's own dates are used.
type Input struct {
	Window     []models.TradeRecord
	TradeDates []calendar.Date
	CheckIns   []models.CheckInRecord
	Today      calendar.Date
	Account    *AccountContext
}

// Params configures the scorer.
type Params struct {
	Rules           []models.RuleID `json:"rules"`
	MinStopDistance float64         `json:"min_stop_distance"`
	JournalingDays  int             `json:"journaling_days"`
	Weights         Weights         `json:"weights"`
}

// DefaultParams returns the default scorer configuration.
func DefaultParams() Params {
	return Params{
		Rules:          models.DefaultRules,
		JournalingDays: DefaultJournalingDays,
		Weights:        EqualWeights(),
	}
}

// Validate checks the configuration.
func (p Params) Validate() error {
	if err := analysis.ValidateRules(p.Rules); err != nil {
		return err
	}
	if p.MinStopDistance < 0 || math.IsNaN(p.MinStopDistance) || math.IsInf(p.MinStopDistance, 0) {
		return apperrors.NewConfigurationError("consistency.min_stop_distance", p.MinStopDistance, "must be a non-negative number")
	}
	if p.JournalingDays <= 0 {
		return apperrors.NewConfigurationError("consistency.journaling_days", p.JournalingDays, "must be positive")
	}
	w := p.Weights
	for _, v := range []float64{w.RuleAdherence, w.RiskManagement, w.EmotionalDiscipline, w.JournalingConsistency} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.NewConfigurationError("consistency.weights", w, "weights must be non-negative numbers")
		}
	}
	if total := w.sum(); !(total > 0) || math.IsInf(total, 0) {
		return apperrors.NewConfigurationError("consistency.weights", w, "weights must sum to a positive finite number")
	}
	return nil
}

// Score is the consistency scorecard. Sub-scores are in [0, 100].
type Score struct {
	Overall               int                      `json:"overall"`
	Grade                 string                   `json:"grade"`
	RuleAdherence         float64                  `json:"rule_adherence"`
	RiskManagement        float64                  `json:"risk_management"`
	EmotionalDiscipline   float64                  `json:"emotional_discipline"`
	JournalingConsistency float64                  `json:"journaling_consistency"`
	TradesConsidered      int                      `json:"trades_considered"`
	AccountAdjusted       bool                     `json:"account_adjusted"`
	Skipped               []analysis.SkippedRecord `json:"skipped,omitempty"`
}

// Window returns the n most recent closed trades, newest first. Trades on the same day
// keep their input order.
func Window(trades []models.TradeRecord, n int) ([]models.TradeRecord, []analysis.SkippedRecord) {
	closed, skipped := analysis.ClosedTrades(trades)
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].TradeDate.After(closed[j].TradeDate)
	})
	if n >= 0 && len(closed) > n {
		closed = closed[:n]
	}
	return closed, skipped
}

// Compute scores the window. It returns a nil Score and nil error when the window has
// no usable trades, which callers must show as "not enough data" rather than zero.
func Compute(in Input, p Params) (*Score, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if in.Today.IsZero() {
		return nil, apperrors.NewConfigurationError("today", in.Today, "reference day must be set")
	}

	window, skipped := analysis.ValidTrades(in.Window)
	if len(window) == 0 {
		return nil, nil
	}

	s := &Score{
		TradesConsidered: len(window),
		Skipped:          skipped,
	}
	s.RuleAdherence = ruleAdherence(window, p.Rules)
	s.RiskManagement, s.AccountAdjusted = riskManagement(window, p.MinStopDistance, in.Account)
	s.EmotionalDiscipline = emotionalDiscipline(window)
	s.JournalingConsistency = journaling(in, window, p.JournalingDays)

	// Weights are normalized first so the products stay within [0, 100].
	w, total := p.Weights, p.Weights.sum()
	weighted := s.RuleAdherence*(w.RuleAdherence/total) +
		s.RiskManagement*(w.RiskManagement/total) +
		s.EmotionalDiscipline*(w.EmotionalDiscipline/total) +
		s.JournalingConsistency*(w.JournalingConsistency/total)
	s.Overall = clamp(int(math.Round(weighted)), 0, 100)
	s.Grade = GradeFor(s.Overall)
	return s, nil
}

// GradeFor maps an overall score to its label.
func GradeFor(overall int) string {
	switch {
	case overall >= 80:
		return GradeExcellent
	case overall >= 60:
		return GradeGood
	case overall >= 40:
		return GradeFair
	default:
		return GradeNeedsWork
	}
}

func ruleAdherence(window []models.TradeRecord, rules []models.RuleID) float64 {
	var sum float64
	for i := range window {
		sum += float64(window[i].CountRulesFollowed(rules)) / float64(len(rules))
	}
	return sum / float64(len(window)) * 100
}

// riskManagement is the share of trades with a real stop, scaled down by the share of
// losses larger than the account's per-trade risk limit when that limit is known.
func riskManagement(window []models.TradeRecord, minStop float64, account *AccountContext) (float64, bool) {
	withStop := 0
	for i := range window {
		if window[i].HasStopLoss(minStop) {
			withStop++
		}
	}
	score := analysis.Percent(withStop, len(window))

	limit, ok := account.maxLoss()
	if !ok {
		return score, false
	}
	oversized := 0
	for i := range window {
		t := &window[i]
		if t.PnL != nil && *t.PnL < 0 && -*t.PnL > limit {
			oversized++
		}
	}
	penalty := 1 - float64(oversized)/float64(len(window))
	return score * penalty, true
}

func emotionalDiscipline(window []models.TradeRecord) float64 {
	negative := 0
	for i := range window {
		if e := window[i].EmotionBefore; e != nil && e.IsNegative() {
			negative++
		}
	}
	return 100 - analysis.Percent(negative, len(window))
}

// journaling is the share of the last days calendar days, ending today, with a trade
// or a check-in.
func journaling(in Input, window []models.TradeRecord, days int) float64 {
	active := calendar.NewSet()
	if in.TradeDates != nil {
		for _, d := range in.TradeDates {
			active.Add(d)
		}
	} else {
		for i := range window {
			active.Add(window[i].TradeDate)
		}
	}
	for _, c := range in.CheckIns {
		active.Add(c.CheckDate)
	}
	from := in.Today.AddDays(-(days - 1))
	return analysis.Percent(active.CountWithin(from, in.Today), days)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
