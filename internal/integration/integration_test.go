// Package integration provides end-to-end tests across the importer, store and report
// packages.
package integration

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trading-journal/internal/analysis/nudge"
	"trading-journal/internal/calendar"
	"trading-journal/internal/importer"
	"trading-journal/internal/memo"
	"trading-journal/internal/models"
	"trading-journal/internal/report"
	"trading-journal/internal/store"
)

const journalYAML = `
trades:
  - id: w-1
    trade_date: 2024-05-06
    instrument: nq
    direction: long
    entry_price: 100
    stop_loss: 99
    exit_price: 102
    position_size: 1
    pnl: 40
    emotion_before: calm
    rules_followed: [plan, risk, stop]
    setup_type: breakout
  - id: w-2
    trade_date: 2024-05-07
    instrument: NQ
    direction: short
    entry_price: 100
    stop_loss: 101
    exit_price: 101
    position_size: 1
    pnl: -20
    emotion_before: greedy
    setup_type: breakout
  - id: w-3
    trade_date: 2024-05-09
    instrument: ES
    direction: long
    entry_price: 50
    stop_loss: 49
    exit_price: 49
    position_size: 2
    pnl: -20
    emotion_before: greedy
  - id: w-4
    trade_date: 2024-05-10
    instrument: ES
    direction: long
    entry_price: 50
    position_size: 2
check_ins:
  - check_date: 2024-05-08
    has_traded: false
`

func setup(t *testing.T) (store.Repository, *report.Builder, *memo.Cache[*report.Dashboard]) {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cache := memo.New[*report.Dashboard](8)
	builder, err := report.NewBuilder(report.DefaultSettings(), zerolog.Nop(), report.WithCache(cache))
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}
	return db, builder, cache
}

func load(ctx context.Context, t *testing.T, db store.Repository) {
	t.Helper()
	res, err := importer.Parse(strings.NewReader(journalYAML), importer.FormatYAML, importer.Options{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Failed to parse journal: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("Unexpected row errors: %v", res.Errors)
	}
	if err := db.SaveTrades(ctx, res.Trades); err != nil {
		t.Fatalf("Failed to save trades: %v", err)
	}
	for i := range res.CheckIns {
		if err := db.SaveCheckIn(ctx, &res.CheckIns[i]); err != nil {
			t.Fatalf("Failed to save check-in: %v", err)
		}
	}
}

func request(ctx context.Context, t *testing.T, db store.Repository, today string) report.Request {
	t.Helper()
	trades, err := db.GetTrades(ctx, store.TradeFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Failed to read trades: %v", err)
	}
	checkIns, err := db.GetCheckIns(ctx, store.CheckInFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Failed to read check-ins: %v", err)
	}
	return report.Request{
		UserID:   "user-1",
		Trades:   trades,
		CheckIns: checkIns,
		Today:    calendar.MustParse(today),
		Context:  tradeContext(),
	}
}

// TestEndToEndWorkflow imports a journal file, stores it and builds the dashboard.
func TestEndToEndWorkflow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, builder, _ := setup(t)
	load(ctx, t, db)

	d, err := builder.Build(ctx, request(ctx, t, db, "2024-05-10"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Mon, Tue traded; Wed rest; Thu, Fri traded.
	if d.Streak.CurrentStreak != 4 {
		t.Errorf("CurrentStreak = %d, want 4", d.Streak.CurrentStreak)
	}
	if !d.Streak.HasTradedToday {
		t.Error("the open trade on the reference day counts as traded")
	}

	if d.Breakdown.Overall.Trades != 3 {
		t.Errorf("open trade must be excluded from the breakdown, got %d", d.Breakdown.Overall.Trades)
	}
	if len(d.Breakdown.ByInstrument) != 2 || d.Breakdown.ByInstrument[0].Key != "NQ" {
		t.Errorf("unexpected instrument buckets: %+v", d.Breakdown.ByInstrument)
	}

	if d.Equity.TotalPnL != 0 || d.Equity.MaxDrawdown != 40 {
		t.Errorf("equity total=%v maxDD=%v, want 0 and 40", d.Equity.TotalPnL, d.Equity.MaxDrawdown)
	}

	if len(d.Playbook.Setups) != 1 || d.Playbook.Setups[0].IsEdge {
		t.Errorf("one setup below the sample size expected: %+v", d.Playbook.Setups)
	}

	if d.Consistency == nil || d.Consistency.TradesConsidered != 3 {
		t.Fatalf("unexpected consistency score %+v", d.Consistency)
	}

	if d.Nudges.Fired != 0 {
		t.Errorf("no detector should fire on two greedy trades, got %+v", d.Nudges.Nudges)
	}
}

// TestStoreRoundTripKeepsAnalytics checks that stored trades analyze the same as the
// imported ones.
func TestStoreRoundTripKeepsAnalytics(t *testing.T) {
	ctx := context.Background()
	db, builder, _ := setup(t)

	res, err := importer.Parse(strings.NewReader(journalYAML), importer.FormatYAML, importer.Options{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Failed to parse journal: %v", err)
	}
	load(ctx, t, db)

	fromFile, err := builder.Build(ctx, report.Request{UserID: "user-1", Trades: res.Trades, CheckIns: res.CheckIns, Today: calendar.MustParse("2024-05-10"), Context: tradeContext()})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	fromStore, err := builder.Build(ctx, request(ctx, t, db, "2024-05-10"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if fromFile.Streak != fromStore.Streak {
		t.Errorf("streak differs: %+v vs %+v", fromFile.Streak, fromStore.Streak)
	}
	if fromFile.Equity.TotalPnL != fromStore.Equity.TotalPnL {
		t.Errorf("equity differs: %v vs %v", fromFile.Equity.TotalPnL, fromStore.Equity.TotalPnL)
	}
	if fromFile.Consistency.Overall != fromStore.Consistency.Overall {
		t.Errorf("consistency differs: %d vs %d", fromFile.Consistency.Overall, fromStore.Consistency.Overall)
	}
}

// TestConcurrentDashboardBuilds builds the same dashboard from many goroutines.
func TestConcurrentDashboardBuilds(t *testing.T) {
	ctx := context.Background()
	db, builder, cache := setup(t)
	load(ctx, t, db)
	req := request(ctx, t, db, "2024-05-10")

	const workers = 16
	results := make([]*report.Dashboard, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = builder.Build(ctx, req)
		}(i)
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i].Consistency.Overall != results[0].Consistency.Overall {
			t.Errorf("worker %d saw a different score", i)
		}
	}
	if cache.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", cache.Len())
	}
}

// TestDeleteInvalidatesByContent confirms that changed data produces a new dashboard.
func TestDeleteInvalidatesByContent(t *testing.T) {
	ctx := context.Background()
	db, builder, cache := setup(t)
	load(ctx, t, db)

	before, err := builder.Build(ctx, request(ctx, t, db, "2024-05-10"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := db.DeleteTrade(ctx, "user-1", "w-3"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	after, err := builder.Build(ctx, request(ctx, t, db, "2024-05-10"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if before == after {
		t.Fatal("changed trade log must not hit the cached dashboard")
	}
	if after.Breakdown.Overall.Trades != 2 {
		t.Errorf("Overall.Trades = %d, want 2", after.Breakdown.Overall.Trades)
	}
	if cache.Len() != 2 {
		t.Errorf("cache holds %d entries, want 2", cache.Len())
	}
}

func tradeContext() nudge.Context {
	return nudge.Context{Instrument: "es", Emotion: models.EmotionPtr(models.EmotionGreedy)}
}
