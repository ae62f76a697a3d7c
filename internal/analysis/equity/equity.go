// Package equity builds the cumulative P&L curve and its drawdown and profit statistics.
package equity

import (
	"sort"

	"github.com/shopspring/decimal"

	"trading-journal/internal/analysis"
	"trading-journal/internal/calendar"
	"trading-journal/internal/models"
)

// MinPoints is the smallest series rendered as a curve.
const MinPoints = 2

// Point is one trade on the equity curve.
type Point struct {
	TradeID    string          `json:"trade_id"`
	Date       calendar.Date   `json:"date"`
	PnL        float64         `json:"pnl"`
	Cumulative float64         `json:"cumulative"`
	Drawdown   float64         `json:"drawdown"`
	Outcome    *models.Outcome `json:"outcome,omitempty"`
}

// Curve is the equity series with summary statistics.
type Curve struct {
	Points       []Point                  `json:"points"`
	TotalPnL     float64                  `json:"total_pnl"`
	Peak         float64                  `json:"peak"`
	MaxDrawdown  float64                  `json:"max_drawdown"`
	Wins         int                      `json:"wins"`
	Losses       int                      `json:"losses"`
	Breakevens   int                      `json:"breakevens"`
	WinRate      float64                  `json:"win_rate"`
	AvgWin       float64                  `json:"avg_win"`
	AvgLoss      float64                  `json:"avg_loss"`
	ProfitFactor float64                  `json:"profit_factor"`
	Sufficient   bool                     `json:"sufficient"`
	Skipped      []analysis.SkippedRecord `json:"skipped,omitempty"`
}

// Analyze builds the equity curve from the trades that carry a P&L. The series is
// sorted by trade date with a stable sort, so trades on the same day keep input order.
// The running peak starts at zero, the account's starting equity.
func Analyze(trades []models.TradeRecord) *Curve {
	valid, skipped := analysis.ValidTrades(trades)
	curve := &Curve{Skipped: skipped}

	withPnL := make([]models.TradeRecord, 0, len(valid))
	for _, t := range valid {
		if t.PnL != nil {
			withPnL = append(withPnL, t)
		}
	}
	sort.SliceStable(withPnL, func(i, j int) bool {
		return withPnL[i].TradeDate.Before(withPnL[j].TradeDate)
	})

	cumulative := decimal.Zero
	peak := decimal.Zero
	maxDrawdown := decimal.Zero

	curve.Points = make([]Point, 0, len(withPnL))
	for _, t := range withPnL {
		pnl := decimal.NewFromFloat(*t.PnL)
		cumulative = cumulative.Add(pnl)
		if cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		drawdown := peak.Sub(cumulative)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
		curve.Points = append(curve.Points, Point{
			TradeID:    t.ID,
			Date:       t.TradeDate,
			PnL:        *t.PnL,
			Cumulative: cumulative.InexactFloat64(),
			Drawdown:   drawdown.InexactFloat64(),
			Outcome:    t.Outcome,
		})
	}

	curve.TotalPnL = cumulative.InexactFloat64()
	curve.Peak = peak.InexactFloat64()
	curve.MaxDrawdown = maxDrawdown.InexactFloat64()
	curve.Sufficient = len(curve.Points) >= MinPoints

	winSum, lossSum := decimal.Zero, decimal.Zero
	winCount, lossCount := 0, 0
	for _, t := range valid {
		if t.Outcome == nil {
			continue
		}
		switch *t.Outcome {
		case models.OutcomeWin:
			curve.Wins++
			if t.PnL != nil && *t.PnL > 0 {
				winSum = winSum.Add(decimal.NewFromFloat(*t.PnL))
				winCount++
			}
		case models.OutcomeLoss:
			curve.Losses++
			if t.PnL != nil {
				lossSum = lossSum.Add(decimal.NewFromFloat(*t.PnL).Abs())
				lossCount++
			}
		case models.OutcomeBreakeven:
			curve.Breakevens++
		}
	}

	curve.WinRate = analysis.Percent(curve.Wins, curve.Wins+curve.Losses+curve.Breakevens)
	curve.AvgWin = mean(winSum, winCount)
	curve.AvgLoss = mean(lossSum, lossCount)
	if curve.Losses > 0 {
		curve.ProfitFactor = analysis.Ratio(curve.AvgWin*float64(curve.Wins), curve.AvgLoss*float64(curve.Losses))
	}

	return curve
}

func mean(sum decimal.Decimal, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum.Div(decimal.NewFromInt(int64(n))).InexactFloat64()
}
