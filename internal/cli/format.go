package cli

import (
	"fmt"
	"math"
	"strings"

	"trading-journal/internal/calendar"
)

// FormatMoney formats an amount with thousands separators and two decimals.
// The journal is currency agnostic, so no symbol is added.
func FormatMoney(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")

	result := groupThousands(parts[0]) + "." + parts[1]
	if negative && result != "0.00" {
		result = "-" + result
	}
	return result
}

// groupThousands inserts a comma between every group of three digits.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPnL formats P&L with sign.
func FormatPnL(pnl float64) string {
	formatted := FormatMoney(pnl)
	if pnl > 0 && formatted != "0.00" {
		return "+" + formatted
	}
	return formatted
}

// FormatPercent formats a percentage difference with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%%", sign, value)
}

// FormatRate formats a rate such as a win rate.
func FormatRate(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate)
}

// FormatR formats an R-multiple.
func FormatR(r float64) string {
	sign := ""
	if r > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2fR", sign, r)
}

// FormatProfitFactor formats a profit factor; zero means undefined.
func FormatProfitFactor(pf float64) string {
	if pf == 0 || math.IsInf(pf, 0) || math.IsNaN(pf) {
		return "-"
	}
	return fmt.Sprintf("%.2f", pf)
}

// FormatDate formats a calendar day for tables.
func FormatDate(d calendar.Date) string {
	if d.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s %s", d.Weekday().String()[:3], d.String())
}

// FormatDays formats a day count.
func FormatDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
