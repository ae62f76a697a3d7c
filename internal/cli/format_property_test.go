package cli

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFormatMoney(t *testing.T) {
	cases := map[float64]string{
		0:          "0.00",
		12.5:       "12.50",
		999.999:    "1,000.00",
		1234.5:     "1,234.50",
		-1234567.1: "-1,234,567.10",
		-0.001:     "0.00",
	}
	for in, want := range cases {
		if got := FormatMoney(in); got != want {
			t.Errorf("FormatMoney(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := FormatPnL(250); got != "+250.00" {
		t.Errorf("FormatPnL = %q", got)
	}
	if got := FormatR(-1); got != "-1.00R" {
		t.Errorf("FormatR = %q", got)
	}
	if got := FormatPercent(12.34); got != "+12.3%" {
		t.Errorf("FormatPercent = %q", got)
	}
	if got := FormatProfitFactor(0); got != "-" {
		t.Errorf("FormatProfitFactor(0) = %q", got)
	}
	if got := TruncateString("breakout-retest", 8); got != "break..." {
		t.Errorf("TruncateString = %q", got)
	}
}

// Property: FormatMoney groups digits by three, keeps two decimals, and parses back to
// the rounded value.
func TestProperty_MoneyFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	grouped := regexp.MustCompile(`^-?\d{1,3}(,\d{3})*\.\d{2}$`)

	properties.Property("FormatMoney produces grouped digits", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatMoney(amount)
			if !grouped.MatchString(formatted) {
				t.Logf("Invalid format for %f: %s", amount, formatted)
				return false
			}
			return true
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.Property("FormatMoney preserves value", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatMoney(amount)
			parsed, err := strconv.ParseFloat(strings.ReplaceAll(formatted, ",", ""), 64)
			if err != nil {
				return false
			}
			return math.Abs(parsed-amount) <= 0.005+1e-6*math.Abs(amount)
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}
