package models

import "strings"

// CustomSetupPrefix marks a user-defined setup tag.
const CustomSetupPrefix = "custom:"

// Known setup tags and their display labels.
var setupLabels = map[string]string{
	"breakout":           "Breakout",
	"pullback":           "Pullback",
	"reversal":           "Reversal",
	"range":              "Range Trade",
	"trend_continuation": "Trend Continuation",
	"gap_and_go":         "Gap and Go",
	"vwap_bounce":        "VWAP Bounce",
	"news":               "News Play",
	"scalp":              "Scalp",
}

// SetupLabel returns the display label for a setup tag. Custom tags display their
// user-supplied label; unknown tags display verbatim.
func SetupLabel(setup string) string {
	if label, ok := setupLabels[setup]; ok {
		return label
	}
	if strings.HasPrefix(setup, CustomSetupPrefix) {
		if label := strings.TrimSpace(strings.TrimPrefix(setup, CustomSetupPrefix)); label != "" {
			return label
		}
	}
	return setup
}

// IsKnownSetup reports whether setup is one of the built-in tags.
func IsKnownSetup(setup string) bool {
	_, ok := setupLabels[setup]
	return ok
}
