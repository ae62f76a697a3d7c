package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trading-journal/internal/analysis/consistency"
	"trading-journal/internal/analysis/equity"
	"trading-journal/internal/analysis/nudge"
	"trading-journal/internal/analysis/performance"
	"trading-journal/internal/analysis/playbook"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/internal/report"
	"trading-journal/internal/store"
)

// addAnalysisCommands adds the analytics commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStreakCmd(app))
	rootCmd.AddCommand(newBreakdownCmd(app))
	rootCmd.AddCommand(newEquityCmd(app))
	rootCmd.AddCommand(newPlaybookCmd(app))
	rootCmd.AddCommand(newScoreCmd(app))
	rootCmd.AddCommand(newNudgesCmd(app))
	rootCmd.AddCommand(newDashboardCmd(app))
}

// dashboard loads the user's journal and runs every analyzer over it.
func (app *App) dashboard(cmd *cobra.Command, tradeCtx nudge.Context) (*report.Dashboard, error) {
	ctx := cmd.Context()
	today, err := app.Today(cmd)
	if err != nil {
		return nil, err
	}
	db, err := app.Store()
	if err != nil {
		return nil, err
	}
	trades, err := db.GetTrades(ctx, store.TradeFilter{UserID: app.UserID()})
	if err != nil {
		return nil, err
	}
	checkIns, err := db.GetCheckIns(ctx, store.CheckInFilter{UserID: app.UserID()})
	if err != nil {
		return nil, err
	}
	builder, err := app.Builder()
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)
	logger.Debug().
		Int("trades", len(trades)).
		Int("check_ins", len(checkIns)).
		Str("today", today.String()).
		Msg("Building dashboard")

	return builder.Build(ctx, report.Request{
		UserID:   app.UserID(),
		Trades:   trades,
		CheckIns: checkIns,
		Today:    today,
		Context:  tradeCtx,
	})
}

func newStreakCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show your activity streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			d, err := app.dashboard(cmd, nudge.Context{})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(d.Streak)
			}
			renderStreak(output, d.Streak)
			return nil
		},
	}
}

func renderStreak(output *Output, s models.StreakResult) {
	output.Bold("Activity Streak")
	output.Printf("  Current:     %s\n", FormatDays(s.CurrentStreak))
	output.Printf("  Longest:     %s\n", FormatDays(s.LongestStreak))
	output.Printf("  Rest days:   %d of %d left this week\n", s.RestDaysAvailable, s.RestDaysPerWeek)
	switch {
	case s.HasTradedToday:
		output.Success("  Traded today")
	case s.HasCheckedInToday:
		output.Info("  Checked in today")
	default:
		output.Dim("  Nothing logged today yet")
	}
}

func newBreakdownCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Show performance by instrument, emotion, weekday, month and rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			by := strings.ToLower(flagString(cmd, "by"))
			d, err := app.dashboard(cmd, nudge.Context{})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(d.Breakdown)
			}
			return renderBreakdown(output, d.Breakdown, by)
		},
	}
	cmd.Flags().String("by", "", "only one grouping: instrument, emotion, weekday, month or rule")
	return cmd
}

func renderBreakdown(output *Output, b *performance.Breakdown, by string) error {
	groups := []struct {
		key     string
		title   string
		buckets []performance.Bucket
	}{
		{"instrument", "By Instrument", b.ByInstrument},
		{"emotion", "By Emotion Before Entry", b.ByEmotion},
		{"weekday", "By Day of Week", b.ByDayOfWeek},
		{"month", "By Month", b.ByMonth},
	}

	matched := by == ""
	if by == "" {
		o := b.Overall
		output.Bold("Overall")
		output.Printf("  %d closed trades, %d W / %d L / %d BE, win rate %s, total %s\n\n",
			o.Trades, o.Wins, o.Losses, o.Breakevens, FormatRate(o.WinRate), output.FormatR(o.TotalR))
	}
	for _, g := range groups {
		if by != "" && by != g.key {
			continue
		}
		matched = true
		output.Bold(g.title)
		renderBuckets(output, g.buckets)
		if best, ok := performance.Best(g.buckets); ok {
			worst, _ := performance.Worst(g.buckets)
			output.Dim("  Best: %s (%s)   Worst: %s (%s)", best.Label, FormatRate(best.WinRate), worst.Label, FormatRate(worst.WinRate))
		}
		if g.key == "month" && b.MonthsTotal > len(b.ByMonth) {
			output.Dim("  Showing the last %d of %d months", len(b.ByMonth), b.MonthsTotal)
		}
		output.Println()
	}
	if by == "" || by == "rule" {
		matched = true
		output.Bold("Rule Impact")
		table := NewTable(output, "Rule", "Followed", "Not Followed", "Impact")
		for _, r := range b.ByRule {
			impact := output.DimText("n/a")
			if r.HasData() {
				impact = output.Signed(*r.Impact, FormatPercent(*r.Impact))
			}
			table.AddRow(r.Label,
				fmt.Sprintf("%s (%d)", FormatRate(r.FollowedWinRate), r.Followed.Trades),
				fmt.Sprintf("%s (%d)", FormatRate(r.NotFollowedWinRate), r.NotFollowed.Trades),
				impact)
		}
		table.Render()
	}
	if !matched {
		return fmt.Errorf("unknown grouping %q", by)
	}
	return nil
}

func renderBuckets(output *Output, buckets []performance.Bucket) {
	if len(buckets) == 0 {
		output.Dim("  No trades")
		return
	}
	table := NewTable(output, "", "Trades", "W", "L", "BE", "Win Rate", "Avg R", "P&L")
	for _, b := range buckets {
		table.AddRow(b.Label,
			fmt.Sprintf("%d", b.Trades),
			fmt.Sprintf("%d", b.Wins),
			fmt.Sprintf("%d", b.Losses),
			fmt.Sprintf("%d", b.Breakevens),
			FormatRate(b.WinRate),
			output.FormatR(b.AvgR),
			output.FormatPnL(b.TotalPnL))
	}
	table.Render()
}

func newEquityCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equity",
		Short: "Show the equity curve and drawdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			points, _ := cmd.Flags().GetInt("points")
			d, err := app.dashboard(cmd, nudge.Context{})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(d.Equity)
			}
			renderEquity(output, d.Equity, points)
			return nil
		},
	}
	cmd.Flags().Int("points", 20, "number of most recent curve points to list")
	return cmd
}

func renderEquity(output *Output, c *equity.Curve, points int) {
	output.Bold("Equity Curve")
	if !c.Sufficient {
		output.Info("  Log at least %d closed trades with P&L to see your equity curve.", equity.MinPoints)
		return
	}
	output.Printf("  Total P&L:     %s\n", output.FormatPnL(c.TotalPnL))
	output.Printf("  Peak:          %s\n", FormatMoney(c.Peak))
	output.Printf("  Max drawdown:  %s\n", output.Red(FormatMoney(c.MaxDrawdown)))
	output.Printf("  Win rate:      %s (%d W / %d L / %d BE)\n", FormatRate(c.WinRate), c.Wins, c.Losses, c.Breakevens)
	output.Printf("  Avg win/loss:  %s / %s\n", FormatMoney(c.AvgWin), FormatMoney(c.AvgLoss))
	output.Printf("  Profit factor: %s\n", FormatProfitFactor(c.ProfitFactor))
	output.Println()

	shown := c.Points
	if points > 0 && len(shown) > points {
		shown = shown[len(shown)-points:]
	}
	table := NewTable(output, "Date", "Trade", "P&L", "Cumulative", "Drawdown")
	for _, p := range shown {
		table.AddRow(FormatDate(p.Date), TruncateString(p.TradeID, 12), output.FormatPnL(p.PnL),
			FormatMoney(p.Cumulative), FormatMoney(p.Drawdown))
	}
	table.Render()
}

func newPlaybookCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "playbook",
		Short: "Show win rate and expectancy per setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			d, err := app.dashboard(cmd, nudge.Context{})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(d.Playbook)
			}
			builder, err := app.Builder()
			if err != nil {
				return err
			}
			renderPlaybook(output, d.Playbook, builder.Settings().Playbook)
			return nil
		},
	}
}

func renderPlaybook(output *Output, p *playbook.Playbook, th playbook.Thresholds) {
	output.Bold("Playbook")
	if len(p.Setups) == 0 {
		output.Info("  Tag your trades with a setup to build your playbook.")
		return
	}
	table := NewTable(output, "Setup", "Trades", "W", "L", "BE", "Win Rate", "Avg R", "Total R", "")
	for _, s := range p.Setups {
		edge := ""
		if s.IsEdge {
			edge = output.Green("EDGE")
		}
		table.AddRow(s.Label,
			fmt.Sprintf("%d", s.TotalTrades),
			fmt.Sprintf("%d", s.Wins),
			fmt.Sprintf("%d", s.Losses),
			fmt.Sprintf("%d", s.Breakevens),
			output.WinRate(s.WinRate, th.EdgeWinRate),
			output.FormatR(s.AvgR),
			output.FormatR(s.TotalR),
			edge)
	}
	table.Render()
	output.Dim("  Edge: win rate of at least %.0f%% over %d or more trades with positive expectancy",
		th.EdgeWinRate, th.MinSample)
}

func newScoreCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Show your consistency score",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			d, err := app.dashboard(cmd, nudge.Context{})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]any{"consistency": d.Consistency})
			}
			renderScore(output, d.Consistency)
			return nil
		},
	}
}

func renderScore(output *Output, s *consistency.Score) {
	output.Bold("Consistency Score")
	if s == nil {
		output.Info("  Not enough data: close a trade to get your first score.")
		return
	}
	overall := fmt.Sprintf("%d/100 (%s)", s.Overall, s.Grade)
	switch {
	case s.Overall >= 60:
		overall = output.Green(overall)
	case s.Overall >= 40:
		overall = output.Yellow(overall)
	default:
		overall = output.Red(overall)
	}
	output.Printf("  Overall:               %s\n", overall)
	output.Printf("  Rule adherence:        %s\n", FormatRate(s.RuleAdherence))
	output.Printf("  Risk management:       %s\n", FormatRate(s.RiskManagement))
	output.Printf("  Emotional discipline:  %s\n", FormatRate(s.EmotionalDiscipline))
	output.Printf("  Journaling:            %s\n", FormatRate(s.JournalingConsistency))
	output.Dim("  Based on your last %d closed trades", s.TradesConsidered)
	if s.AccountAdjusted {
		output.Dim("  Risk adjusted for account size")
	}
}

func newNudgesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nudges",
		Short: "Show pre-trade warnings from your own history",
		Long: `Check your history before placing a trade. Pass the instrument and how you
feel right now to get warnings specific to this trade.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			tradeCtx, err := nudgeContext(cmd)
			if err != nil {
				return err
			}
			d, err := app.dashboard(cmd, tradeCtx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(d.Nudges)
			}
			renderNudges(output, d.Nudges)
			return nil
		},
	}
	cmd.Flags().String("instrument", "", "instrument you are about to trade")
	cmd.Flags().String("emotion", "", "how you feel: "+emotionNames())
	return cmd
}

func nudgeContext(cmd *cobra.Command) (nudge.Context, error) {
	tradeCtx := nudge.Context{Instrument: flagString(cmd, "instrument")}
	if s := flagString(cmd, "emotion"); s != "" {
		e, err := models.ParseEmotion(s)
		if err != nil {
			return tradeCtx, fmt.Errorf("--emotion: %w", err)
		}
		tradeCtx.Emotion = &e
	}
	return tradeCtx, nil
}

func emotionNames() string {
	names := make([]string, len(models.Emotions))
	for i, e := range models.Emotions {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}

func renderNudges(output *Output, r *nudge.Result) {
	output.Bold("Before You Trade")
	if len(r.Nudges) == 0 {
		output.Success("  Nothing in your history flags this trade.")
		return
	}
	for _, n := range r.Nudges {
		output.Printf("  %s  %s\n", output.Severity(n.Severity), n.Title)
		output.Printf("      %s\n", n.Message)
	}
	if r.Fired > len(r.Nudges) {
		output.Dim("  %d more warnings hidden", r.Fired-len(r.Nudges))
	}
}

func newDashboardCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show every analytics section",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			tradeCtx, err := nudgeContext(cmd)
			if err != nil {
				return err
			}
			d, err := app.dashboard(cmd, tradeCtx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(d)
			}
			builder, err := app.Builder()
			if err != nil {
				return err
			}

			output.Bold("Trading Journal - %s - %s", d.UserID, FormatDate(d.Today))
			output.Println()
			renderStreak(output, d.Streak)
			output.Println()
			renderScore(output, d.Consistency)
			output.Println()
			renderNudges(output, d.Nudges)
			output.Println()
			renderEquity(output, d.Equity, 5)
			output.Println()
			renderPlaybook(output, d.Playbook, builder.Settings().Playbook)
			output.Println()
			if err := renderBreakdown(output, d.Breakdown, "instrument"); err != nil {
				return err
			}
			if len(d.Skipped) > 0 {
				output.Warning("%d records were skipped as invalid; see the log for details", len(d.Skipped))
			}
			return nil
		},
	}
	cmd.Flags().String("instrument", "", "instrument you are about to trade")
	cmd.Flags().String("emotion", "", "how you feel: "+emotionNames())
	return cmd
}
