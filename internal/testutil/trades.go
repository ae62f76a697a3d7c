// Package testutil provides trade-log builders shared by analyzer tests.
package testutil

import (
	"fmt"

	"trading-journal/internal/calendar"
	"trading-journal/internal/models"
)

// TradeOption customizes a trade built by Closed or Open.
type TradeOption func(*models.TradeRecord)

// Closed builds a valid closed long trade with the given outcome on date.
// Wins and losses carry a P&L of +100/-50 and an R-multiple of +2/-1 unless overridden.
func Closed(id string, date string, outcome models.Outcome, opts ...TradeOption) models.TradeRecord {
	t := models.TradeRecord{
		ID:           id,
		UserID:       "user-1",
		Instrument:   "ES",
		Direction:    models.DirectionLong,
		EntryPrice:   100,
		StopLoss:     models.Float(98),
		PositionSize: 1,
		TradeDate:    calendar.MustParse(date),
	}
	var exit, pnl, r float64
	switch outcome {
	case models.OutcomeWin:
		exit, pnl, r = 104, 100, 2
	case models.OutcomeLoss:
		exit, pnl, r = 98, -50, -1
	case models.OutcomeBreakeven:
		exit, pnl, r = 100, 0, 0
	}
	t.ExitPrice = models.Float(exit)
	t.PnL = models.Float(pnl)
	t.RMultiple = models.Float(r)
	t.Outcome = models.OutcomePtr(outcome)
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// Open builds a valid open trade on date.
func Open(id string, date string, opts ...TradeOption) models.TradeRecord {
	t := models.TradeRecord{
		ID:           id,
		UserID:       "user-1",
		Instrument:   "ES",
		Direction:    models.DirectionLong,
		EntryPrice:   100,
		PositionSize: 1,
		TradeDate:    calendar.MustParse(date),
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// Series builds closed trades on consecutive days starting at start, one per outcome.
func Series(prefix, start string, outcomes ...models.Outcome) []models.TradeRecord {
	d := calendar.MustParse(start)
	trades := make([]models.TradeRecord, 0, len(outcomes))
	for i, o := range outcomes {
		trades = append(trades, Closed(fmt.Sprintf("%s-%d", prefix, i+1), d.AddDays(i).String(), o))
	}
	return trades
}

// WithInstrument sets the instrument.
func WithInstrument(symbol string) TradeOption {
	return func(t *models.TradeRecord) { t.Instrument = symbol }
}

// WithPnL overrides the P&L.
func WithPnL(pnl float64) TradeOption {
	return func(t *models.TradeRecord) { t.PnL = models.Float(pnl) }
}

// WithoutPnL clears the P&L.
func WithoutPnL() TradeOption {
	return func(t *models.TradeRecord) { t.PnL = nil }
}

// WithR overrides the R-multiple.
func WithR(r float64) TradeOption {
	return func(t *models.TradeRecord) { t.RMultiple = models.Float(r) }
}

// WithEmotion sets the pre-trade emotion.
func WithEmotion(e models.Emotion) TradeOption {
	return func(t *models.TradeRecord) { t.EmotionBefore = models.EmotionPtr(e) }
}

// WithRules sets the followed rules.
func WithRules(rules ...models.RuleID) TradeOption {
	return func(t *models.TradeRecord) { t.RulesFollowed = rules }
}

// WithSetup sets the setup tag.
func WithSetup(setup string) TradeOption {
	return func(t *models.TradeRecord) { t.SetupType = models.String(setup) }
}

// WithoutStop clears the stop loss.
func WithoutStop() TradeOption {
	return func(t *models.TradeRecord) { t.StopLoss = nil }
}

// WithStop sets the stop loss.
func WithStop(stop float64) TradeOption {
	return func(t *models.TradeRecord) { t.StopLoss = models.Float(stop) }
}
