// Package analysis provides the behavioral analytics engine shared by the streak,
// performance, equity, playbook, consistency and nudge analyzers.
//
// Every analyzer is a pure function over caller-supplied records. Nothing in this
// package tree performs I/O, keeps state between calls or logs.
package analysis

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// MaxTakeProfitTargets is the largest number of take-profit levels a trade may carry.
const MaxTakeProfitTargets = 3

// MaxMagnitude bounds every numeric trade field, so sums and ratios over a trade log
// stay finite.
const MaxMagnitude = 1e12

// SkippedRecord describes a record an analyzer rejected.
type SkippedRecord struct {
	RecordID string `json:"record_id"`
	Index    int    `json:"index"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// ValidateTrade checks the structural invariants of a trade record.
func ValidateTrade(t *models.TradeRecord) error {
	id := t.ID

	if err := checkFinite(id, "entry_price", &t.EntryPrice); err != nil {
		return err
	}
	if err := checkFinite(id, "position_size", &t.PositionSize); err != nil {
		return err
	}
	optional := []struct {
		name  string
		value *float64
	}{
		{"stop_loss", t.StopLoss},
		{"exit_price", t.ExitPrice},
		{"r_multiple", t.RMultiple},
		{"pnl", t.PnL},
	}
	for _, f := range optional {
		if err := checkFinite(id, f.name, f.value); err != nil {
			return err
		}
	}
	for i := range t.TakeProfitTargets {
		if err := checkFinite(id, fmt.Sprintf("take_profit_targets[%d]", i), &t.TakeProfitTargets[i]); err != nil {
			return err
		}
	}

	if t.PositionSize <= 0 {
		return apperrors.NewInvalidRecordError(id, "position_size", "must be positive")
	}
	if !t.Direction.Valid() {
		return apperrors.NewInvalidRecordError(id, "direction", fmt.Sprintf("unknown direction %q", t.Direction))
	}
	if len(t.TakeProfitTargets) > MaxTakeProfitTargets {
		return apperrors.NewInvalidRecordError(id, "take_profit_targets",
			fmt.Sprintf("at most %d targets allowed, got %d", MaxTakeProfitTargets, len(t.TakeProfitTargets)))
	}
	if t.TradeDate.IsZero() {
		return apperrors.NewInvalidRecordError(id, "trade_date", "missing trade date")
	}

	if t.Outcome == nil {
		switch {
		case t.ExitPrice != nil:
			return apperrors.NewInvalidRecordError(id, "exit_price", "open trade must not have an exit price")
		case t.RMultiple != nil:
			return apperrors.NewInvalidRecordError(id, "r_multiple", "open trade must not have an R-multiple")
		case t.PnL != nil:
			return apperrors.NewInvalidRecordError(id, "pnl", "open trade must not have a P&L")
		}
	} else {
		if !t.Outcome.Valid() {
			return apperrors.NewInvalidRecordError(id, "outcome", fmt.Sprintf("unknown outcome %q", *t.Outcome))
		}
		if t.ExitPrice == nil {
			return apperrors.NewInvalidRecordError(id, "exit_price", "closed trade must have an exit price")
		}
	}

	for _, e := range []*models.Emotion{t.EmotionBefore, t.EmotionDuring, t.EmotionAfter} {
		if e != nil && !e.Valid() {
			return apperrors.NewInvalidRecordError(id, "emotion", fmt.Sprintf("unknown emotion %q", *e))
		}
	}
	for _, r := range t.RulesFollowed {
		if !r.Valid() {
			return apperrors.NewInvalidRecordError(id, "rules_followed", fmt.Sprintf("unknown rule %q", r))
		}
	}

	return nil
}

func checkFinite(id, field string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return apperrors.NewNonFiniteError(id, field, *v)
	}
	if math.Abs(*v) > MaxMagnitude {
		return apperrors.NewInvalidRecordError(id, field, fmt.Sprintf("magnitude %g exceeds %g", *v, MaxMagnitude))
	}
	return nil
}

// ValidTrades returns the records that pass ValidateTrade, in input order, and the
// ones that did not.
func ValidTrades(trades []models.TradeRecord) ([]models.TradeRecord, []SkippedRecord) {
	valid := make([]models.TradeRecord, 0, len(trades))
	var skipped []SkippedRecord
	for i := range trades {
		if err := ValidateTrade(&trades[i]); err != nil {
			skipped = append(skipped, SkippedRecord{
				RecordID: trades[i].ID,
				Index:    i,
				Reason:   err.Error(),
				Err:      err,
			})
			continue
		}
		valid = append(valid, trades[i])
	}
	return valid, skipped
}

// ClosedTrades returns the valid trades with an outcome, in input order. Each analyzer
// calls it on its own input; there is no shared cache.
func ClosedTrades(trades []models.TradeRecord) ([]models.TradeRecord, []SkippedRecord) {
	valid, skipped := ValidTrades(trades)
	closed := make([]models.TradeRecord, 0, len(valid))
	for _, t := range valid {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}
	return closed, skipped
}

// ValidateRules checks a rule enumeration: non-empty, known members, no duplicates.
func ValidateRules(rules []models.RuleID) error {
	if len(rules) == 0 {
		return apperrors.NewConfigurationError("rules", len(rules), "rule enumeration must not be empty")
	}
	seen := make(map[models.RuleID]bool, len(rules))
	for _, r := range rules {
		if !r.Valid() {
			return apperrors.NewConfigurationError("rules", r, "unknown rule")
		}
		if seen[r] {
			return apperrors.NewConfigurationError("rules", r, "duplicate rule")
		}
		seen[r] = true
	}
	return nil
}

// Percent returns num/den*100, or 0 when den is 0.
func Percent(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// Ratio returns num/den, or 0 when den is 0 or the quotient is not a finite number.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	q := num / den
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}

// Tally accumulates outcome counts, R-multiples and P&L for a group of closed trades.
type Tally struct {
	Trades     int
	Wins       int
	Losses     int
	Breakevens int

	rSum   float64
	rCount int
	pnl    decimal.Decimal
}

// Add counts t. Open trades are ignored.
func (s *Tally) Add(t *models.TradeRecord) {
	if t.Outcome == nil {
		return
	}
	s.Trades++
	switch *t.Outcome {
	case models.OutcomeWin:
		s.Wins++
	case models.OutcomeLoss:
		s.Losses++
	case models.OutcomeBreakeven:
		s.Breakevens++
	}
	if t.RMultiple != nil {
		s.rSum += *t.RMultiple
		s.rCount++
	}
	if t.PnL != nil {
		s.pnl = s.pnl.Add(decimal.NewFromFloat(*t.PnL))
	}
}

// WinRate is wins over all counted trades, as a percentage.
func (s *Tally) WinRate() float64 {
	return Percent(s.Wins, s.Wins+s.Losses+s.Breakevens)
}

// LossRate is losses over all counted trades, as a percentage.
func (s *Tally) LossRate() float64 {
	return Percent(s.Losses, s.Wins+s.Losses+s.Breakevens)
}

// AvgR is the mean of the non-nil R-multiples, or 0 when there are none.
func (s *Tally) AvgR() float64 {
	return Ratio(s.rSum, float64(s.rCount))
}

// TotalR is the sum of the non-nil R-multiples.
func (s *Tally) TotalR() float64 {
	return s.rSum
}

// TotalPnL is the sum of the non-nil P&L values.
func (s *Tally) TotalPnL() float64 {
	f, _ := s.pnl.Float64()
	return f
}

// Stats is the plain-data summary of a Tally.
type Stats struct {
	Trades     int     `json:"trades"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Breakevens int     `json:"breakevens"`
	WinRate    float64 `json:"win_rate"`
	AvgR       float64 `json:"avg_r"`
	TotalR     float64 `json:"total_r"`
	TotalPnL   float64 `json:"total_pnl"`
}

// Stats snapshots the tally.
func (s *Tally) Stats() Stats {
	return Stats{
		Trades:     s.Trades,
		Wins:       s.Wins,
		Losses:     s.Losses,
		Breakevens: s.Breakevens,
		WinRate:    s.WinRate(),
		AvgR:       s.AvgR(),
		TotalR:     s.TotalR(),
		TotalPnL:   s.TotalPnL(),
	}
}
