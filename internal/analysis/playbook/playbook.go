// Package playbook scores each tagged setup and flags the ones that show an edge.
package playbook

import (
	"trading-journal/internal/analysis"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// Default edge thresholds.
const (
	DefaultEdgeWinRate = 55.0
	DefaultMinSample   = 10
)

// Thresholds decide when a setup counts as an edge.
type Thresholds struct {
	EdgeWinRate float64 `json:"edge_win_rate" mapstructure:"edge_win_rate"`
	MinSample   int     `json:"min_sample" mapstructure:"min_sample"`
}

// DefaultThresholds returns the default edge thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{EdgeWinRate: DefaultEdgeWinRate, MinSample: DefaultMinSample}
}

// Validate rejects non-positive thresholds.
func (th Thresholds) Validate() error {
	if !(th.EdgeWinRate > 0) || th.EdgeWinRate > 100 {
		return apperrors.NewConfigurationError("playbook.edge_win_rate", th.EdgeWinRate, "must be in (0, 100]")
	}
	if th.MinSample <= 0 {
		return apperrors.NewConfigurationError("playbook.min_sample", th.MinSample, "must be positive")
	}
	return nil
}

// Playbook is the per-setup scorecard. Setups are in first-seen order.
type Playbook struct {
	Setups    []models.SetupStats      `json:"setups"`
	EdgeCount int                      `json:"edge_count"`
	Skipped   []analysis.SkippedRecord `json:"skipped,omitempty"`
}

// Edges returns the setups flagged as an edge, in scorecard order.
func (p *Playbook) Edges() []models.SetupStats {
	var out []models.SetupStats
	for _, s := range p.Setups {
		if s.IsEdge {
			out = append(out, s)
		}
	}
	return out
}

// Score groups closed trades by their setup tag. The tag is used verbatim, so
// "custom:orb" and "custom:ORB" are different setups. Untagged trades are ignored.
func Score(trades []models.TradeRecord, th Thresholds) (*Playbook, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}

	closed, skipped := analysis.ClosedTrades(trades)

	index := make(map[string]int)
	var setups []string
	var tallies []analysis.Tally
	for i := range closed {
		t := &closed[i]
		if t.SetupType == nil {
			continue
		}
		key := *t.SetupType
		n, ok := index[key]
		if !ok {
			n = len(setups)
			index[key] = n
			setups = append(setups, key)
			tallies = append(tallies, analysis.Tally{})
		}
		tallies[n].Add(t)
	}

	p := &Playbook{
		Setups:  make([]models.SetupStats, 0, len(setups)),
		Skipped: skipped,
	}
	for i, setup := range setups {
		tally := &tallies[i]
		stats := models.SetupStats{
			SetupType:   setup,
			Label:       models.SetupLabel(setup),
			TotalTrades: tally.Trades,
			Wins:        tally.Wins,
			Losses:      tally.Losses,
			Breakevens:  tally.Breakevens,
			WinRate:     tally.WinRate(),
			AvgR:        tally.AvgR(),
			TotalR:      tally.TotalR(),
		}
		stats.IsEdge = stats.WinRate >= th.EdgeWinRate &&
			stats.TotalTrades >= th.MinSample &&
			stats.AvgR > 0
		if stats.IsEdge {
			p.EdgeCount++
		}
		p.Setups = append(p.Setups, stats)
	}
	return p, nil
}
