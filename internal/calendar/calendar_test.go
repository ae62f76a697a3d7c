package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParseAndString(t *testing.T) {
	d, err := Parse("2024-03-05")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d.Year != 2024 || d.Month != time.March || d.Day != 5 {
		t.Errorf("unexpected date %+v", d)
	}
	if d.String() != "2024-03-05" {
		t.Errorf("String() = %s", d.String())
	}
	if _, err := Parse("2024/03/05"); err == nil {
		t.Error("expected error for slash-separated date")
	}
}

func TestFromTimeKeepsLocalDay(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2024, time.January, 7, 23, 30, 0, 0, loc)

	d := FromTime(ts)
	if d != New(2024, time.January, 7) {
		t.Errorf("FromTime shifted the day: %s", d)
	}
	if d.Weekday() != time.Sunday {
		t.Errorf("expected Sunday, got %s", d.Weekday())
	}
}

func TestAddDaysAcrossMonthAndYear(t *testing.T) {
	d := MustParse("2023-12-30")
	if got := d.AddDays(3); got != MustParse("2024-01-02") {
		t.Errorf("AddDays(3) = %s", got)
	}
	if got := MustParse("2024-03-01").AddDays(-1); got != MustParse("2024-02-29") {
		t.Errorf("leap day: got %s", got)
	}
}

func TestMonthKey(t *testing.T) {
	if k := MustParse("2024-07-19").MonthKey(); k != "2024-07" {
		t.Errorf("MonthKey = %s", k)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Date Date `json:"date"`
	}
	b, err := json.Marshal(wrapper{Date: MustParse("2024-02-10")})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"date":"2024-02-10"}` {
		t.Errorf("unexpected JSON %s", b)
	}
	var w wrapper
	if err := json.Unmarshal(b, &w); err != nil {
		t.Fatal(err)
	}
	if w.Date != MustParse("2024-02-10") {
		t.Errorf("unexpected date after unmarshal: %s", w.Date)
	}
}

func TestSet(t *testing.T) {
	s := NewSet(MustParse("2024-01-03"), MustParse("2024-01-01"), MustParse("2024-01-05"))
	earliest, ok := s.Earliest()
	if !ok || earliest != MustParse("2024-01-01") {
		t.Errorf("Earliest = %s, %v", earliest, ok)
	}
	if n := s.CountWithin(MustParse("2024-01-02"), MustParse("2024-01-05")); n != 2 {
		t.Errorf("CountWithin = %d", n)
	}
	if _, ok := NewSet().Earliest(); ok {
		t.Error("empty set should have no earliest date")
	}
}

func TestClockToday(t *testing.T) {
	clock := Clock(func() time.Time { return time.Date(2024, 5, 6, 12, 0, 0, 0, time.Local) })
	if clock.Today() != New(2024, time.May, 6) {
		t.Errorf("Today = %s", clock.Today())
	}
}

// Property: AddDays and DaysUntil are inverse operations.
func TestProperty_AddDaysDaysUntilInverse(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	base := MustParse("2000-01-01")

	properties.Property("DaysUntil(AddDays(n)) == n", prop.ForAll(
		func(offset, n int) bool {
			d := base.AddDays(offset)
			return d.DaysUntil(d.AddDays(n)) == n
		},
		gen.IntRange(0, 20000),
		gen.IntRange(-3000, 3000),
	))

	properties.Property("weekday advances by one per day", prop.ForAll(
		func(offset int) bool {
			d := base.AddDays(offset)
			return (d.Weekday()+1)%7 == d.AddDays(1).Weekday()
		},
		gen.IntRange(0, 20000),
	))

	properties.TestingRun(t)
}
