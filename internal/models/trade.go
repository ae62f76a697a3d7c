package models

import (
	"math"
	"strings"

	"trading-journal/internal/calendar"
)

// DefaultBreakevenEpsilon is the price band around zero classified as breakeven.
const DefaultBreakevenEpsilon = 1e-9

// TradeRecord represents a journaled trade. A nil Outcome means the trade is still open.
type TradeRecord struct {
	ID                string        `json:"id" yaml:"id"`
	UserID            string        `json:"user_id" yaml:"user_id"`
	Instrument        string        `json:"instrument" yaml:"instrument"`
	Direction         Direction     `json:"direction" yaml:"direction"`
	EntryPrice        float64       `json:"entry_price" yaml:"entry_price"`
	StopLoss          *float64      `json:"stop_loss,omitempty" yaml:"stop_loss,omitempty"`
	TakeProfitTargets []float64     `json:"take_profit_targets,omitempty" yaml:"take_profit_targets,omitempty"`
	ExitPrice         *float64      `json:"exit_price,omitempty" yaml:"exit_price,omitempty"`
	PositionSize      float64       `json:"position_size" yaml:"position_size"`
	Outcome           *Outcome      `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	RMultiple         *float64      `json:"r_multiple,omitempty" yaml:"r_multiple,omitempty"`
	PnL               *float64      `json:"pnl,omitempty" yaml:"pnl,omitempty"`
	TradeDate         calendar.Date `json:"trade_date" yaml:"trade_date"`
	EntryTime         string        `json:"entry_time,omitempty" yaml:"entry_time,omitempty"`
	ExitTime          string        `json:"exit_time,omitempty" yaml:"exit_time,omitempty"`
	EmotionBefore     *Emotion      `json:"emotion_before,omitempty" yaml:"emotion_before,omitempty"`
	EmotionDuring     *Emotion      `json:"emotion_during,omitempty" yaml:"emotion_during,omitempty"`
	EmotionAfter      *Emotion      `json:"emotion_after,omitempty" yaml:"emotion_after,omitempty"`
	RulesFollowed     []RuleID      `json:"rules_followed,omitempty" yaml:"rules_followed,omitempty"`
	SetupType         *string       `json:"setup_type,omitempty" yaml:"setup_type,omitempty"`
	CustomTags        []string      `json:"custom_tags,omitempty" yaml:"custom_tags,omitempty"`
	Notes             string        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// IsClosed reports whether the trade has an outcome.
func (t *TradeRecord) IsClosed() bool {
	return t.Outcome != nil
}

// OutcomeIs reports whether the trade is closed with outcome o.
func (t *TradeRecord) OutcomeIs(o Outcome) bool {
	return t.Outcome != nil && *t.Outcome == o
}

// FollowedRule reports whether r is in the trade's followed rule set.
func (t *TradeRecord) FollowedRule(r RuleID) bool {
	for _, f := range t.RulesFollowed {
		if f == r {
			return true
		}
	}
	return false
}

// CountRulesFollowed counts distinct followed rules that are members of rules.
func (t *TradeRecord) CountRulesFollowed(rules []RuleID) int {
	n := 0
	for _, r := range rules {
		if t.FollowedRule(r) {
			n++
		}
	}
	return n
}

// HasStopLoss reports whether a stop loss sits more than minDistance away from entry.
func (t *TradeRecord) HasStopLoss(minDistance float64) bool {
	if t.StopLoss == nil {
		return false
	}
	return math.Abs(t.EntryPrice-*t.StopLoss) > minDistance
}

// CheckInRecord is a daily check-in. HasTraded=false is an explicit rest-day declaration.
type CheckInRecord struct {
	UserID    string        `json:"user_id" yaml:"user_id"`
	CheckDate calendar.Date `json:"check_date" yaml:"check_date"`
	HasTraded bool          `json:"has_traded" yaml:"has_traded"`
}

// NormalizeInstrument trims and upper-cases a free-text symbol.
func NormalizeInstrument(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// DeriveOutcome classifies a closed trade from its prices. Differences within
// epsilon of zero are breakeven.
func DeriveOutcome(direction Direction, entry, exit, epsilon float64) Outcome {
	diff := signedMove(direction, entry, exit)
	switch {
	case math.Abs(diff) <= epsilon:
		return OutcomeBreakeven
	case diff > 0:
		return OutcomeWin
	default:
		return OutcomeLoss
	}
}

func signedMove(direction Direction, entry, exit float64) float64 {
	if direction == DirectionShort {
		return entry - exit
	}
	return exit - entry
}

// CloseTrade returns a closed copy of t at the given exit price with outcome, P&L and
// R-multiple filled in. R-multiple stays nil when the trade has no usable stop.
func CloseTrade(t TradeRecord, exit, epsilon float64) TradeRecord {
	closed := t
	outcome := DeriveOutcome(t.Direction, t.EntryPrice, exit, epsilon)
	move := signedMove(t.Direction, t.EntryPrice, exit)
	pnl := move * t.PositionSize

	closed.ExitPrice = Float(exit)
	closed.Outcome = &outcome
	closed.PnL = Float(pnl)
	closed.RMultiple = nil
	if t.StopLoss != nil {
		if risk := math.Abs(t.EntryPrice - *t.StopLoss); risk > 0 {
			closed.RMultiple = Float(move / risk)
		}
	}
	return closed
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// OutcomePtr returns a pointer to o.
func OutcomePtr(o Outcome) *Outcome {
	return &o
}

// EmotionPtr returns a pointer to e.
func EmotionPtr(e Emotion) *Emotion {
	return &e
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
