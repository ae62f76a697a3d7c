// Package performance slices closed trades by instrument, emotion, weekday, month and
// rule adherence.
package performance

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"trading-journal/internal/analysis"
	"trading-journal/internal/models"
)

// MonthsRetained is how many of the most recent months ByMonth keeps.
const MonthsRetained = 6

// Bucket is the performance of one slice of closed trades.
type Bucket struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	analysis.Stats
}

// RuleImpact compares the win rate of trades that followed a rule with those that did not.
// Impact is nil when either side has no trades.
type RuleImpact struct {
	Rule               models.RuleID  `json:"rule"`
	Label              string         `json:"label"`
	Followed           analysis.Stats `json:"followed"`
	NotFollowed        analysis.Stats `json:"not_followed"`
	FollowedWinRate    float64        `json:"followed_win_rate"`
	NotFollowedWinRate float64        `json:"not_followed_win_rate"`
	Impact             *float64       `json:"impact"`
}

// HasData reports whether both sides of the comparison have trades.
func (r RuleImpact) HasData() bool {
	return r.Impact != nil
}

// Breakdown is the full set of groupings for a trade log.
type Breakdown struct {
	Overall      analysis.Stats           `json:"overall"`
	ByInstrument []Bucket                 `json:"by_instrument"`
	ByEmotion    []Bucket                 `json:"by_emotion"`
	ByDayOfWeek  []Bucket                 `json:"by_day_of_week"`
	ByMonth      []Bucket                 `json:"by_month"`
	MonthsTotal  int                      `json:"months_total"`
	ByRule       []RuleImpact             `json:"by_rule"`
	Skipped      []analysis.SkippedRecord `json:"skipped,omitempty"`
}

// Aggregate groups the closed trades in trades. Open and invalid trades are excluded;
// invalid ones are listed in Skipped.
func Aggregate(trades []models.TradeRecord, rules []models.RuleID) (*Breakdown, error) {
	if err := analysis.ValidateRules(rules); err != nil {
		return nil, err
	}

	closed, skipped := analysis.ClosedTrades(trades)

	var overall analysis.Tally
	instruments := newGrouper()
	emotions := newGrouper()
	months := newGrouper()
	var weekdays [7]analysis.Tally

	for i := range closed {
		t := &closed[i]
		overall.Add(t)

		label := strings.TrimSpace(t.Instrument)
		instruments.add(models.NormalizeInstrument(t.Instrument), label, t)

		if t.EmotionBefore != nil {
			emotions.add(string(*t.EmotionBefore), t.EmotionBefore.Label(), t)
		}

		weekdays[t.TradeDate.Weekday()].Add(t)

		months.add(t.TradeDate.MonthKey(), monthLabel(t.TradeDate.Year, t.TradeDate.Month), t)
	}

	b := &Breakdown{
		Overall:      overall.Stats(),
		ByInstrument: instruments.buckets(),
		ByEmotion:    emotions.buckets(),
		ByRule:       ruleImpacts(closed, rules),
		Skipped:      skipped,
	}

	b.ByDayOfWeek = make([]Bucket, 0, len(weekdays))
	for day := time.Sunday; day <= time.Saturday; day++ {
		b.ByDayOfWeek = append(b.ByDayOfWeek, Bucket{
			Key:   fmt.Sprintf("%d", int(day)),
			Label: day.String(),
			Stats: weekdays[day].Stats(),
		})
	}

	allMonths := months.buckets()
	sort.SliceStable(allMonths, func(i, j int) bool {
		return allMonths[i].Key < allMonths[j].Key
	})
	b.MonthsTotal = len(allMonths)
	if len(allMonths) > MonthsRetained {
		allMonths = allMonths[len(allMonths)-MonthsRetained:]
	}
	b.ByMonth = allMonths

	return b, nil
}

func ruleImpacts(closed []models.TradeRecord, rules []models.RuleID) []RuleImpact {
	rows := make([]RuleImpact, 0, len(rules))
	for _, rule := range rules {
		var followed, notFollowed analysis.Tally
		for i := range closed {
			if closed[i].FollowedRule(rule) {
				followed.Add(&closed[i])
			} else {
				notFollowed.Add(&closed[i])
			}
		}
		row := RuleImpact{
			Rule:               rule,
			Label:              rule.Label(),
			Followed:           followed.Stats(),
			NotFollowed:        notFollowed.Stats(),
			FollowedWinRate:    followed.WinRate(),
			NotFollowedWinRate: notFollowed.WinRate(),
		}
		if followed.Trades > 0 && notFollowed.Trades > 0 {
			impact := row.FollowedWinRate - row.NotFollowedWinRate
			row.Impact = &impact
		}
		rows = append(rows, row)
	}

	// Rows with data first, by descending impact magnitude; rows without data keep
	// enumeration order at the end.
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.HasData() != b.HasData() {
			return a.HasData()
		}
		if !a.HasData() {
			return false
		}
		return math.Abs(*a.Impact) > math.Abs(*b.Impact)
	})
	return rows
}

// Best returns the bucket with the highest win rate among buckets with trades.
// Ties go to the bucket that appears first, which for instrument and emotion groupings
// is the first one seen in the input. This is deliberate: a stable, explainable pick.
func Best(buckets []Bucket) (Bucket, bool) {
	return pick(buckets, func(candidate, current float64) bool { return candidate > current })
}

// Worst returns the bucket with the lowest win rate among buckets with trades, with the
// same first-seen tie-break as Best.
func Worst(buckets []Bucket) (Bucket, bool) {
	return pick(buckets, func(candidate, current float64) bool { return candidate < current })
}

func pick(buckets []Bucket, better func(candidate, current float64) bool) (Bucket, bool) {
	var chosen Bucket
	found := false
	for _, b := range buckets {
		if b.Trades == 0 {
			continue
		}
		if !found || better(b.WinRate, chosen.WinRate) {
			chosen = b
			found = true
		}
	}
	return chosen, found
}

func monthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month.String()[:3], year)
}

// grouper keeps buckets in first-seen order.
type grouper struct {
	index  map[string]int
	keys   []string
	labels []string
	tally  []analysis.Tally
}

func newGrouper() *grouper {
	return &grouper{index: make(map[string]int)}
}

func (g *grouper) add(key, label string, t *models.TradeRecord) {
	i, ok := g.index[key]
	if !ok {
		i = len(g.keys)
		g.index[key] = i
		g.keys = append(g.keys, key)
		g.labels = append(g.labels, label)
		g.tally = append(g.tally, analysis.Tally{})
	}
	g.tally[i].Add(t)
}

func (g *grouper) buckets() []Bucket {
	out := make([]Bucket, len(g.keys))
	for i := range g.keys {
		out[i] = Bucket{Key: g.keys[i], Label: g.labels[i], Stats: g.tally[i].Stats()}
	}
	return out
}
