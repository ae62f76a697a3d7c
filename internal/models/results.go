package models

// StreakResult is the activity streak for a user as of a given day.
type StreakResult struct {
	CurrentStreak     int  `json:"current_streak"`
	LongestStreak     int  `json:"longest_streak"`
	HasTradedToday    bool `json:"has_traded_today"`
	HasCheckedInToday bool `json:"has_checked_in_today"`
	RestDaysAvailable int  `json:"rest_days_available"`
	RestDaysPerWeek   int  `json:"rest_days_per_week"`
}

// SetupStats summarizes the closed trades tagged with one setup.
type SetupStats struct {
	SetupType   string  `json:"setup_type"`
	Label       string  `json:"label"`
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Breakevens  int     `json:"breakevens"`
	WinRate     float64 `json:"win_rate"`
	AvgR        float64 `json:"avg_r"`
	TotalR      float64 `json:"total_r"`
	IsEdge      bool    `json:"is_edge"`
}

// PreTradeNudge is a behavioral warning shown before a trade is placed.
type PreTradeNudge struct {
	ID       string    `json:"id"`
	Type     NudgeType `json:"type"`
	Severity Severity  `json:"severity"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Icon     string    `json:"icon"`
}
