package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trading Journal Configuration

[engine]
# Rules a trade can be checked against. Order is the display order.
rules = ["plan", "risk", "confirmation", "session", "news", "emotional", "stop", "journal"]
# Rest days per rolling week that keep a streak alive
rest_days_per_week = 1
# Price band around entry treated as breakeven when deriving outcomes
breakeven_epsilon = 0.000000001
# Maximum number of cached dashboard results
cache_size = 32

[playbook]
# Minimum win rate (percent) for a setup to count as an edge
edge_win_rate = 55.0
# Minimum closed trades before a setup can count as an edge
min_sample = 10

[consistency]
# Most recent closed trades scored
window_size = 20
# Calendar days checked for journaling cadence
journaling_days = 20
# Stops closer to entry than this are treated as missing
min_stop_distance = 0.0

[consistency.weights]
rule_adherence = 1.0
risk_management = 1.0
emotional_discipline = 1.0
journaling_consistency = 1.0

[nudge]
max_nudges = 2
loss_streak_min_trades = 3
loss_streak_min_run = 3
loss_streak_danger_run = 5
instrument_min_trades = 5
instrument_win_rate = 40.0
instrument_danger_win_rate = 25.0
weekday_min_trades = 3
weekday_win_rate = 35.0
weekday_danger_win_rate = 20.0
emotion_min_trades = 3
emotion_loss_rate = 60.0
emotion_danger_loss_rate = 80.0

[account]
# Account balance; 0 disables the oversized-loss penalty
balance = 0.0
# Maximum risk per trade as percentage of balance
max_risk_percent = 1.0

[storage]
# SQLite database path; empty means journal.db next to this file
db_path = ""
# Journal owner used when --user is not given
user = "default"

[logging]
level = "info"
console = true
file = false
file_path = ""
max_size = 20
max_backups = 5
max_age = 30
`

func createTemplateConfig(configDir, name string) (string, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}

	return path, nil
}
