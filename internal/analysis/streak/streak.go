// Package streak computes the day-level activity streak with a weekly rest-day budget.
package streak

import (
	"trading-journal/internal/analysis"
	"trading-journal/internal/calendar"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// DefaultRestDaysPerWeek is the product's rest-day budget.
const DefaultRestDaysPerWeek = 1

// windowDays is the length of the rolling rest-day window.
const windowDays = 7

// Input holds the deduplicated activity days a streak is computed from.
type Input struct {
	TradeDates      []calendar.Date
	CheckInDates    []calendar.Date
	Today           calendar.Date
	RestDaysPerWeek int
}

// FromRecords builds an Input from raw records. Every valid trade, open or closed, marks
// its day as traded. A check-in with HasTraded set also marks a traded day; one without
// it is an explicit rest day.
func FromRecords(trades []models.TradeRecord, checkIns []models.CheckInRecord, today calendar.Date, restDaysPerWeek int) (Input, []analysis.SkippedRecord) {
	valid, skipped := analysis.ValidTrades(trades)

	in := Input{Today: today, RestDaysPerWeek: restDaysPerWeek}
	for _, t := range valid {
		in.TradeDates = append(in.TradeDates, t.TradeDate)
	}
	for _, c := range checkIns {
		if c.CheckDate.IsZero() {
			continue
		}
		if c.HasTraded {
			in.TradeDates = append(in.TradeDates, c.CheckDate)
		} else {
			in.CheckInDates = append(in.CheckInDates, c.CheckDate)
		}
	}
	return in, skipped
}

// Calculate computes the streak as of in.Today.
//
// The walk goes backward from today. A traded day extends the streak. A rest day keeps
// it alive without extending it, and spends budget: at most RestDaysPerWeek rest days in
// any 7-day stretch. Explicit check-ins are rest days; an uncovered day counts as one only
// inside the current week (today-6 through today). Today itself never breaks the streak,
// since the day is not over yet.
func Calculate(in Input) (models.StreakResult, error) {
	if in.RestDaysPerWeek < 0 {
		return models.StreakResult{}, apperrors.NewConfigurationError("rest_days_per_week", in.RestDaysPerWeek, "must not be negative")
	}

	traded := calendar.NewSet(in.TradeDates...)
	checkedIn := calendar.NewSet(in.CheckInDates...)
	rest := make(calendar.Set, len(checkedIn))
	for d := range checkedIn {
		// A day with both a trade and a check-in counts once, as traded.
		if !traded.Has(d) {
			rest.Add(d)
		}
	}

	result := models.StreakResult{
		HasTradedToday:    traded.Has(in.Today),
		HasCheckedInToday: checkedIn.Has(in.Today),
		RestDaysPerWeek:   in.RestDaysPerWeek,
		RestDaysAvailable: in.RestDaysPerWeek,
	}

	earliest, ok := earliestActivity(traded, rest)
	if !ok {
		return result, nil
	}

	weekStart := in.Today.AddDays(-(windowDays - 1))
	var consumed []calendar.Date

	for d := in.Today; !d.Before(earliest); d = d.AddDays(-1) {
		if traded.Has(d) {
			result.CurrentStreak++
			continue
		}
		isRest := rest.Has(d)
		if d == in.Today && !isRest {
			continue
		}
		if !isRest && d.Before(weekStart) {
			break
		}
		if restsAhead(consumed, d) >= in.RestDaysPerWeek {
			break
		}
		consumed = append(consumed, d)
	}

	used := make(calendar.Set)
	for _, d := range consumed {
		if d.Within(weekStart, in.Today) {
			used.Add(d)
		}
	}
	for d := range rest {
		if d.Within(weekStart, in.Today) {
			used.Add(d)
		}
	}
	if avail := in.RestDaysPerWeek - len(used); avail > 0 {
		result.RestDaysAvailable = avail
	} else {
		result.RestDaysAvailable = 0
	}

	result.LongestStreak = longestRun(traded, rest, earliest, in.Today, in.RestDaysPerWeek)
	if result.CurrentStreak > result.LongestStreak {
		result.LongestStreak = result.CurrentStreak
	}

	return result, nil
}

func earliestActivity(traded, rest calendar.Set) (calendar.Date, bool) {
	first, ok := traded.Earliest()
	if r, rok := rest.Earliest(); rok && (!ok || r.Before(first)) {
		return r, true
	}
	return first, ok
}

// restsAhead counts consumed rest days in the 7-day window that starts at d.
func restsAhead(consumed []calendar.Date, d calendar.Date) int {
	n := 0
	for _, c := range consumed {
		if off := d.DaysUntil(c); off >= 0 && off < windowDays {
			n++
		}
	}
	return n
}

// longestRun scans history forward. Only explicit check-ins act as rest days here; the
// implicit allowance applies to the in-progress week alone.
func longestRun(traded, rest calendar.Set, from, today calendar.Date, budget int) int {
	run, longest := 0, 0
	var rests []calendar.Date

	for d := from; !d.After(today); d = d.AddDays(1) {
		if traded.Has(d) {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		if rest.Has(d) && restsBehind(rests, d) < budget {
			rests = append(rests, d)
			continue
		}
		if d == today {
			continue
		}
		run = 0
		rests = rests[:0]
	}
	return longest
}

// restsBehind counts rest days in the 7-day window that ends at d.
func restsBehind(rests []calendar.Date, d calendar.Date) int {
	n := 0
	for _, r := range rests {
		if off := r.DaysUntil(d); off >= 0 && off < windowDays {
			n++
		}
	}
	return n
}
