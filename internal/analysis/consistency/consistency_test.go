package consistency

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trading-journal/internal/calendar"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/testutil"
)

var today = calendar.MustParse("2024-06-20")

func TestEmptyWindowIsNil(t *testing.T) {
	score, err := Compute(Input{Today: today}, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if score != nil {
		t.Errorf("expected nil score for an empty window, got %+v", score)
	}

	bad := testutil.Closed("bad", "2024-06-20", models.OutcomeWin, testutil.WithPnL(math.NaN()))
	score, err = Compute(Input{Window: []models.TradeRecord{bad}, Today: today}, DefaultParams())
	if err != nil || score != nil {
		t.Errorf("window of invalid records should be nil, got %+v, %v", score, err)
	}
}

func TestSubScores(t *testing.T) {
	rules := []models.RuleID{models.RulePlan, models.RuleRisk, models.RuleStop, models.RuleJournal}
	window := []models.TradeRecord{
		testutil.Closed("1", "2024-06-20", models.OutcomeWin,
			testutil.WithRules(models.RulePlan, models.RuleRisk, models.RuleStop, models.RuleJournal),
			testutil.WithEmotion(models.EmotionCalm)),
		testutil.Closed("2", "2024-06-19", models.OutcomeLoss,
			testutil.WithRules(models.RulePlan, models.RuleRisk),
			testutil.WithEmotion(models.EmotionFearful)),
		testutil.Closed("3", "2024-06-18", models.OutcomeWin, testutil.WithoutStop()),
		testutil.Closed("4", "2024-06-17", models.OutcomeLoss, testutil.WithStop(100)),
	}
	checkIns := []models.CheckInRecord{
		{UserID: "user-1", CheckDate: calendar.MustParse("2024-06-15")},
		{UserID: "user-1", CheckDate: calendar.MustParse("2024-06-17")},
		{UserID: "user-1", CheckDate: calendar.MustParse("2024-05-01")},
	}

	p := DefaultParams()
	p.Rules = rules
	score, err := Compute(Input{Window: window, CheckIns: checkIns, Today: today}, p)
	if err != nil {
		t.Fatal(err)
	}
	if score == nil {
		t.Fatal("expected a score")
	}

	// (4/4 + 2/4 + 0 + 0) / 4 = 37.5%
	if score.RuleAdherence != 37.5 {
		t.Errorf("RuleAdherence = %v, want 37.5", score.RuleAdherence)
	}
	// Trade 3 has no stop and trade 4's stop sits on the entry.
	if score.RiskManagement != 50 {
		t.Errorf("RiskManagement = %v, want 50", score.RiskManagement)
	}
	if score.AccountAdjusted {
		t.Error("no account context was given")
	}
	if score.EmotionalDiscipline != 75 {
		t.Errorf("EmotionalDiscipline = %v, want 75", score.EmotionalDiscipline)
	}
	// Active days: 17, 18, 19, 20 from trades plus 15 from a check-in.
	if score.JournalingConsistency != 25 {
		t.Errorf("JournalingConsistency = %v, want 25", score.JournalingConsistency)
	}
	// (37.5 + 50 + 75 + 25) / 4 = 46.875
	if score.Overall != 47 {
		t.Errorf("Overall = %d, want 47", score.Overall)
	}
	if score.Grade != GradeFair {
		t.Errorf("Grade = %q", score.Grade)
	}
	if score.TradesConsidered != 4 {
		t.Errorf("TradesConsidered = %d", score.TradesConsidered)
	}
}

func TestRiskManagementAccountPenalty(t *testing.T) {
	window := []models.TradeRecord{
		testutil.Closed("1", "2024-06-20", models.OutcomeLoss, testutil.WithPnL(-300)),
		testutil.Closed("2", "2024-06-19", models.OutcomeLoss, testutil.WithPnL(-50)),
		testutil.Closed("3", "2024-06-18", models.OutcomeWin),
		testutil.Closed("4", "2024-06-17", models.OutcomeWin, testutil.WithoutStop()),
	}
	in := Input{Window: window, Today: today, Account: &AccountContext{Balance: 10000, MaxRiskPercent: 1}}
	score, err := Compute(in, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	// 75% with stops, one of four losses above the 100 limit: 75 * 0.75.
	if score.RiskManagement != 56.25 {
		t.Errorf("RiskManagement = %v, want 56.25", score.RiskManagement)
	}
	if !score.AccountAdjusted {
		t.Error("account context should be applied")
	}

	in.Account = &AccountContext{Balance: 0, MaxRiskPercent: 1}
	score, err = Compute(in, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if score.RiskManagement != 75 || score.AccountAdjusted {
		t.Errorf("unusable account data should degrade to stop percentage, got %v", score.RiskManagement)
	}
}

func TestWeights(t *testing.T) {
	window := []models.TradeRecord{
		testutil.Closed("1", "2024-06-20", models.OutcomeWin, testutil.WithEmotion(models.EmotionAnxious)),
	}
	p := DefaultParams()
	p.Weights = Weights{RiskManagement: 1}
	score, err := Compute(Input{Window: window, Today: today}, p)
	if err != nil {
		t.Fatal(err)
	}
	if score.Overall != 100 {
		t.Errorf("only risk management weighted, Overall = %d, want 100", score.Overall)
	}

	big := math.Ldexp(1, 1020)
	p.Weights = Weights{RuleAdherence: big, RiskManagement: big, EmotionalDiscipline: big, JournalingConsistency: big}
	huge, err := Compute(Input{Window: window, Today: today}, p)
	if err != nil {
		t.Fatal(err)
	}
	p.Weights = EqualWeights()
	equal, err := Compute(Input{Window: window, Today: today}, p)
	if err != nil {
		t.Fatal(err)
	}
	if huge.Overall != equal.Overall {
		t.Errorf("scaled weights should score like equal weights: %d vs %d", huge.Overall, equal.Overall)
	}

	p.Weights = Weights{}
	if _, err := Compute(Input{Window: window, Today: today}, p); !apperrors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("zero weights should be a configuration error, got %v", err)
	}
}

func TestComputeRejectsBadParams(t *testing.T) {
	window := []models.TradeRecord{testutil.Closed("1", "2024-06-20", models.OutcomeWin)}
	cases := map[string]func(*Params){
		"no rules":          func(p *Params) { p.Rules = nil },
		"negative stop":     func(p *Params) { p.MinStopDistance = -1 },
		"zero journal days": func(p *Params) { p.JournalingDays = 0 },
		"negative weight":   func(p *Params) { p.Weights.EmotionalDiscipline = -1 },
		"overflowing sum":   func(p *Params) { p.Weights = Weights{math.MaxFloat64, math.MaxFloat64, 0, 0} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultParams()
			mutate(&p)
			if _, err := Compute(Input{Window: window, Today: today}, p); !apperrors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
	if _, err := Compute(Input{Window: window}, DefaultParams()); !apperrors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("missing today should be a configuration error, got %v", err)
	}
}

func TestWindow(t *testing.T) {
	trades := []models.TradeRecord{
		testutil.Closed("old", "2024-06-01", models.OutcomeWin),
		testutil.Closed("new-1", "2024-06-20", models.OutcomeWin),
		testutil.Open("open", "2024-06-21"),
		testutil.Closed("mid", "2024-06-10", models.OutcomeLoss),
		testutil.Closed("new-2", "2024-06-20", models.OutcomeLoss),
	}
	w, skipped := Window(trades, 3)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped %+v", skipped)
	}
	want := []string{"new-1", "new-2", "mid"}
	if len(w) != len(want) {
		t.Fatalf("window size %d, want %d", len(w), len(want))
	}
	for i := range want {
		if w[i].ID != want[i] {
			t.Errorf("window[%d] = %s, want %s", i, w[i].ID, want[i])
		}
	}
}

func TestGradeFor(t *testing.T) {
	cases := map[int]string{100: GradeExcellent, 80: GradeExcellent, 79: GradeGood, 60: GradeGood, 40: GradeFair, 39: GradeNeedsWork, 0: GradeNeedsWork}
	for score, want := range cases {
		if got := GradeFor(score); got != want {
			t.Errorf("GradeFor(%d) = %q, want %q", score, got, want)
		}
	}
}

// Property: the overall score is an integer in [0, 100] and repeated calls on a copy
// of the input give the same result.
func TestProperty_DeterministicBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	outcomes := []models.Outcome{models.OutcomeWin, models.OutcomeLoss, models.OutcomeBreakeven}

	properties.Property("bounded and idempotent", prop.ForAll(
		func(picks []int) bool {
			var window []models.TradeRecord
			for i, p := range picks {
				tr := testutil.Closed("t", today.AddDays(-(p%30)).String(), outcomes[p%3],
					testutil.WithEmotion(models.Emotions[p%len(models.Emotions)]),
					testutil.WithRules(models.DefaultRules[:p%len(models.DefaultRules)]...))
				if i%4 == 0 {
					tr.StopLoss = nil
				}
				window = append(window, tr)
			}
			in := Input{Window: window, Today: today, Account: &AccountContext{Balance: 5000, MaxRiskPercent: 1}}
			a, errA := Compute(in, DefaultParams())

			copied := make([]models.TradeRecord, len(window))
			copy(copied, window)
			in.Window = copied
			b, errB := Compute(in, DefaultParams())
			if errA != nil || errB != nil {
				return false
			}
			if len(window) == 0 {
				return a == nil && b == nil
			}
			if a.Overall < 0 || a.Overall > 100 {
				return false
			}
			return a.Overall == b.Overall && a.RiskManagement == b.RiskManagement &&
				a.JournalingConsistency == b.JournalingConsistency
		},
		gen.SliceOf(gen.IntRange(0, 500)),
	))

	properties.TestingRun(t)
}
