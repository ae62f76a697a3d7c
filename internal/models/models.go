// Package models provides domain models for the trading journal.
package models

import (
	"fmt"
	"strings"
)

// Direction represents the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionLong, DirectionShort:
		return true
	}
	return false
}

// Outcome represents the result of a closed trade.
type Outcome string

const (
	OutcomeWin       Outcome = "win"
	OutcomeLoss      Outcome = "loss"
	OutcomeBreakeven Outcome = "breakeven"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeWin, OutcomeLoss, OutcomeBreakeven:
		return true
	}
	return false
}

// Emotion is the emotional state a trader tags on a trade.
type Emotion string

const (
	EmotionCalm       Emotion = "calm"
	EmotionConfident  Emotion = "confident"
	EmotionNeutral    Emotion = "neutral"
	EmotionAnxious    Emotion = "anxious"
	EmotionFearful    Emotion = "fearful"
	EmotionGreedy     Emotion = "greedy"
	EmotionFrustrated Emotion = "frustrated"
)

// Emotions lists every emotion in display order.
var Emotions = []Emotion{
	EmotionCalm,
	EmotionConfident,
	EmotionNeutral,
	EmotionAnxious,
	EmotionFearful,
	EmotionGreedy,
	EmotionFrustrated,
}

// Valid reports whether e is a known emotion.
func (e Emotion) Valid() bool {
	switch e {
	case EmotionCalm, EmotionConfident, EmotionNeutral,
		EmotionAnxious, EmotionFearful, EmotionGreedy, EmotionFrustrated:
		return true
	}
	return false
}

// IsNegative reports whether e belongs to the negative-emotion set.
func (e Emotion) IsNegative() bool {
	switch e {
	case EmotionAnxious, EmotionFearful, EmotionGreedy, EmotionFrustrated:
		return true
	case EmotionCalm, EmotionConfident, EmotionNeutral:
		return false
	}
	return false
}

// Label returns the display label.
func (e Emotion) Label() string {
	switch e {
	case EmotionCalm:
		return "Calm"
	case EmotionConfident:
		return "Confident"
	case EmotionNeutral:
		return "Neutral"
	case EmotionAnxious:
		return "Anxious"
	case EmotionFearful:
		return "Fearful"
	case EmotionGreedy:
		return "Greedy"
	case EmotionFrustrated:
		return "Frustrated"
	}
	return string(e)
}

// ParseEmotion parses a case-insensitive emotion name.
func ParseEmotion(s string) (Emotion, error) {
	e := Emotion(strings.ToLower(strings.TrimSpace(s)))
	if !e.Valid() {
		return "", fmt.Errorf("unknown emotion %q", s)
	}
	return e, nil
}

// RuleID identifies a trading rule from the fixed rule set.
type RuleID string

const (
	RulePlan         RuleID = "plan"
	RuleRisk         RuleID = "risk"
	RuleConfirmation RuleID = "confirmation"
	RuleSession      RuleID = "session"
	RuleNews         RuleID = "news"
	RuleEmotional    RuleID = "emotional"
	RuleStop         RuleID = "stop"
	RuleJournal      RuleID = "journal"
)

// DefaultRules is the product rule enumeration.
var DefaultRules = []RuleID{
	RulePlan,
	RuleRisk,
	RuleConfirmation,
	RuleSession,
	RuleNews,
	RuleEmotional,
	RuleStop,
	RuleJournal,
}

// Valid reports whether r is a known rule.
func (r RuleID) Valid() bool {
	switch r {
	case RulePlan, RuleRisk, RuleConfirmation, RuleSession,
		RuleNews, RuleEmotional, RuleStop, RuleJournal:
		return true
	}
	return false
}

// Label returns the display label.
func (r RuleID) Label() string {
	switch r {
	case RulePlan:
		return "Followed trading plan"
	case RuleRisk:
		return "Respected risk limits"
	case RuleConfirmation:
		return "Waited for confirmation"
	case RuleSession:
		return "Traded during session"
	case RuleNews:
		return "Checked news"
	case RuleEmotional:
		return "Emotionally ready"
	case RuleStop:
		return "Set stop loss"
	case RuleJournal:
		return "Journaled the trade"
	}
	return string(r)
}

// ParseRule parses a case-insensitive rule id.
func ParseRule(s string) (RuleID, error) {
	r := RuleID(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown rule %q", s)
	}
	return r, nil
}

// Severity ranks nudges.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Rank orders severities: danger > warning > info.
func (s Severity) Rank() int {
	switch s {
	case SeverityDanger:
		return 2
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 0
	}
	return -1
}

// NudgeType identifies the detector that produced a nudge.
type NudgeType string

const (
	NudgeLossStreak        NudgeType = "loss_streak"
	NudgeWeakInstrument    NudgeType = "instrument_underperformance"
	NudgeWeakWeekday       NudgeType = "day_of_week_weakness"
	NudgeEmotionCorrelated NudgeType = "emotion_correlation"
)
