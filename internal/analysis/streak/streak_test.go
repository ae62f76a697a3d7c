package streak

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trading-journal/internal/calendar"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/testutil"
)

func dates(ss ...string) []calendar.Date {
	out := make([]calendar.Date, len(ss))
	for i, s := range ss {
		out[i] = calendar.MustParse(s)
	}
	return out
}

func TestEmptyInput(t *testing.T) {
	res, err := Calculate(Input{Today: calendar.MustParse("2024-06-14"), RestDaysPerWeek: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 0 || res.LongestStreak != 0 {
		t.Errorf("expected zero streak, got %+v", res)
	}
	if res.RestDaysAvailable != 1 {
		t.Errorf("expected full rest budget, got %d", res.RestDaysAvailable)
	}
}

func TestThreeConsecutiveTradingDays(t *testing.T) {
	// 2024-06-14 is a Friday.
	in := Input{
		TradeDates:      dates("2024-06-14", "2024-06-13", "2024-06-12"),
		Today:           calendar.MustParse("2024-06-14"),
		RestDaysPerWeek: 1,
	}
	res, err := Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 3 {
		t.Errorf("CurrentStreak = %d, want 3", res.CurrentStreak)
	}
	if !res.HasTradedToday || res.HasCheckedInToday {
		t.Errorf("unexpected today flags: %+v", res)
	}

	// A check-in the day before preserves but does not grow the streak.
	in.CheckInDates = dates("2024-06-11")
	res, err = Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 3 {
		t.Errorf("check-in must not extend the count: got %d", res.CurrentStreak)
	}
	if res.RestDaysAvailable != 0 {
		t.Errorf("check-in should spend the weekly budget, got %d available", res.RestDaysAvailable)
	}
}

func TestRestDayBridgesWeek(t *testing.T) {
	// Mon/Tue/Thu/Fri trades, Wednesday check-in.
	in := Input{
		TradeDates:      dates("2024-06-10", "2024-06-11", "2024-06-13", "2024-06-14"),
		CheckInDates:    dates("2024-06-12"),
		Today:           calendar.MustParse("2024-06-14"),
		RestDaysPerWeek: 1,
	}
	res, err := Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 4 {
		t.Errorf("CurrentStreak = %d, want 4", res.CurrentStreak)
	}
}

func TestUnloggedDayThisWeekSpendsBudget(t *testing.T) {
	// Nothing logged on Tuesday 2024-06-11.
	in := Input{
		TradeDates:      dates("2024-06-10", "2024-06-12", "2024-06-13", "2024-06-14"),
		Today:           calendar.MustParse("2024-06-14"),
		RestDaysPerWeek: 1,
	}
	res, err := Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 4 {
		t.Errorf("CurrentStreak = %d, want 4", res.CurrentStreak)
	}
	if res.RestDaysAvailable != 0 {
		t.Errorf("RestDaysAvailable = %d, want 0", res.RestDaysAvailable)
	}

	in.RestDaysPerWeek = 0
	res, err = Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 3 {
		t.Errorf("without a rest budget the gap ends the streak: CurrentStreak = %d, want 3", res.CurrentStreak)
	}
	if res.RestDaysAvailable != 0 {
		t.Errorf("RestDaysAvailable = %d, want 0", res.RestDaysAvailable)
	}
}

func TestSecondRestDayBreaksStreak(t *testing.T) {
	in := Input{
		TradeDates:      dates("2024-06-10", "2024-06-13", "2024-06-14"),
		CheckInDates:    dates("2024-06-11", "2024-06-12"),
		Today:           calendar.MustParse("2024-06-14"),
		RestDaysPerWeek: 1,
	}
	res, err := Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 2 {
		t.Errorf("CurrentStreak = %d, want 2", res.CurrentStreak)
	}

	in.RestDaysPerWeek = 2
	res, err = Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 3 {
		t.Errorf("with two rest days CurrentStreak = %d, want 3", res.CurrentStreak)
	}
}

func TestTodayInProgressDoesNotBreak(t *testing.T) {
	in := Input{
		TradeDates:      dates("2024-06-12", "2024-06-13"),
		Today:           calendar.MustParse("2024-06-14"),
		RestDaysPerWeek: 0,
	}
	res, err := Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 2 {
		t.Errorf("CurrentStreak = %d, want 2", res.CurrentStreak)
	}
	if res.HasTradedToday {
		t.Error("HasTradedToday should be false")
	}
}

func TestOldGapEndsStreak(t *testing.T) {
	// Gap on 06-03 lies outside the current week and has no check-in.
	in := Input{
		TradeDates: dates("2024-06-01", "2024-06-02",
			"2024-06-04", "2024-06-05", "2024-06-06", "2024-06-07",
			"2024-06-08", "2024-06-09", "2024-06-10", "2024-06-11"),
		Today:           calendar.MustParse("2024-06-11"),
		RestDaysPerWeek: 1,
	}
	res, err := Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 8 {
		t.Errorf("CurrentStreak = %d, want 8", res.CurrentStreak)
	}
	if res.LongestStreak != 8 {
		t.Errorf("LongestStreak = %d, want 8", res.LongestStreak)
	}
	if res.RestDaysAvailable != 1 {
		t.Errorf("RestDaysAvailable = %d, want 1", res.RestDaysAvailable)
	}
}

func TestLongestStreakFromHistory(t *testing.T) {
	in := Input{
		TradeDates: dates("2024-05-01", "2024-05-02", "2024-05-03", "2024-05-04", "2024-05-05",
			"2024-06-13", "2024-06-14"),
		Today:           calendar.MustParse("2024-06-14"),
		RestDaysPerWeek: 1,
	}
	res, err := Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 2 || res.LongestStreak != 5 {
		t.Errorf("got current=%d longest=%d, want 2 and 5", res.CurrentStreak, res.LongestStreak)
	}
}

func TestTradeAndCheckInSameDayCountsAsTraded(t *testing.T) {
	in := Input{
		TradeDates:      dates("2024-06-13", "2024-06-14"),
		CheckInDates:    dates("2024-06-14"),
		Today:           calendar.MustParse("2024-06-14"),
		RestDaysPerWeek: 1,
	}
	res, err := Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 2 {
		t.Errorf("CurrentStreak = %d, want 2", res.CurrentStreak)
	}
	if res.RestDaysAvailable != 1 {
		t.Errorf("a traded day must not spend rest budget, got %d", res.RestDaysAvailable)
	}
	if !res.HasCheckedInToday {
		t.Error("HasCheckedInToday should reflect the check-in")
	}
}

func TestNegativeBudgetIsConfigurationError(t *testing.T) {
	_, err := Calculate(Input{Today: calendar.MustParse("2024-06-14"), RestDaysPerWeek: -1})
	if !apperrors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestFromRecords(t *testing.T) {
	bad := testutil.Closed("bad", "2024-06-10", models.OutcomeWin)
	bad.PositionSize = -1

	trades := []models.TradeRecord{
		testutil.Closed("a", "2024-06-14", models.OutcomeWin),
		testutil.Open("b", "2024-06-13"),
		bad,
	}
	checkIns := []models.CheckInRecord{
		{UserID: "user-1", CheckDate: calendar.MustParse("2024-06-12"), HasTraded: false},
		{UserID: "user-1", CheckDate: calendar.MustParse("2024-06-11"), HasTraded: true},
	}

	in, skipped := FromRecords(trades, checkIns, calendar.MustParse("2024-06-14"), 1)
	if len(skipped) != 1 || skipped[0].RecordID != "bad" {
		t.Fatalf("unexpected skipped: %+v", skipped)
	}
	res, err := Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	// 14, 13 and 11 are traded; 12 is a rest day.
	if res.CurrentStreak != 3 {
		t.Errorf("CurrentStreak = %d, want 3", res.CurrentStreak)
	}
}

// Property: the current streak never exceeds the number of distinct traded days, and
// rest budget stays within [0, budget].
func TestProperty_StreakBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	today := calendar.MustParse("2024-06-14")

	properties.Property("streak bounded by traded days", prop.ForAll(
		func(tradeOffsets, restOffsets []int, budget int) bool {
			var in Input
			in.Today = today
			in.RestDaysPerWeek = budget
			for _, o := range tradeOffsets {
				in.TradeDates = append(in.TradeDates, today.AddDays(-o))
			}
			for _, o := range restOffsets {
				in.CheckInDates = append(in.CheckInDates, today.AddDays(-o))
			}
			res, err := Calculate(in)
			if err != nil {
				return false
			}
			distinct := len(calendar.NewSet(in.TradeDates...))
			return res.CurrentStreak <= distinct &&
				res.LongestStreak >= res.CurrentStreak &&
				res.RestDaysAvailable >= 0 && res.RestDaysAvailable <= budget
		},
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.IntRange(0, 3),
	))

	properties.Property("result is independent of input order", prop.ForAll(
		func(tradeOffsets []int) bool {
			var forward, backward Input
			forward.Today, backward.Today = today, today
			forward.RestDaysPerWeek, backward.RestDaysPerWeek = 1, 1
			for i, o := range tradeOffsets {
				forward.TradeDates = append(forward.TradeDates, today.AddDays(-o))
				backward.TradeDates = append(backward.TradeDates, today.AddDays(-tradeOffsets[len(tradeOffsets)-1-i]))
			}
			a, _ := Calculate(forward)
			b, _ := Calculate(backward)
			return a == b
		},
		gen.SliceOf(gen.IntRange(0, 30)),
	))

	properties.TestingRun(t)
}
