package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/analysis/nudge"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/report"
	"trading-journal/internal/store"
)

const journalCSV = `id,trade_date,instrument,direction,entry_price,stop_loss,exit_price,position_size,outcome,pnl,emotion_before,rules_followed,setup_type
c-1,2024-03-04,ES,long,100,98,104,1,win,4,calm,plan|risk,breakout
c-2,2024-03-05,ES,long,100,98,98,1,loss,-2,anxious,plan,breakout
c-3,2024-03-06,ES,long,100,98,98,1,loss,-2,anxious,,pullback
c-4,2024-03-07,ES,long,100,98,98,1,loss,-2,fearful,,pullback
`

type journalEnv struct {
	dir string
}

func newJournalEnv(t *testing.T) *journalEnv {
	t.Helper()
	t.Setenv("JOURNAL_LOG_LEVEL", "error")
	return &journalEnv{dir: t.TempDir()}
}

// run executes one command against the environment's config and database.
func (e *journalEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := NewApp(zerolog.Nop())
	t.Cleanup(func() { _ = app.Close() })

	root := NewRootCmd(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{
		"--config", e.dir,
		"--db", filepath.Join(e.dir, "journal.db"),
		"--user", "tester",
		"--today", "2024-03-08",
	}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *journalEnv) importSample(t *testing.T) {
	t.Helper()
	path := filepath.Join(e.dir, "trades.csv")
	require.NoError(t, os.WriteFile(path, []byte(journalCSV), 0644))
	out, err := e.run(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 4 trades")
}

func TestVersionJSON(t *testing.T) {
	env := newJournalEnv(t)
	out, err := env.run(t, "version", "--json")
	require.NoError(t, err)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v["version"])
}

func TestImportAndDashboard(t *testing.T) {
	env := newJournalEnv(t)
	env.importSample(t)

	out, err := env.run(t, "dashboard", "--json")
	require.NoError(t, err)

	var d report.Dashboard
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, "tester", d.UserID)
	assert.Equal(t, 4, d.Streak.CurrentStreak)
	assert.Equal(t, 4, d.Breakdown.Overall.Trades)
	assert.Equal(t, -2.0, d.Equity.TotalPnL)
	require.NotNil(t, d.Consistency)
	require.Len(t, d.Playbook.Setups, 2)
	assert.Equal(t, "breakout", d.Playbook.Setups[0].SetupType)

	out, err = env.run(t, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Activity Streak")
	assert.Contains(t, out, "Consistency Score")
}

func TestImportNamesUnknownSetups(t *testing.T) {
	env := newJournalEnv(t)
	path := filepath.Join(env.dir, "orb.csv")
	csv := journalCSV + "c-5,2024-03-08,ES,long,100,98,104,1,win,4,calm,plan,opening drive\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	out, err := env.run(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 5 trades")
	assert.Contains(t, out, "Setup tags shown as written: opening drive")
	assert.NotContains(t, out, "breakout,")
}

func TestImportHistory(t *testing.T) {
	env := newJournalEnv(t)
	env.importSample(t)

	out, err := env.run(t, "imports", "--json")
	require.NoError(t, err)
	var history []store.ImportRecord
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 1)
	assert.Equal(t, 4, history[0].Imported)
	assert.Equal(t, "csv", history[0].Format)
}

func TestNudgesWithContext(t *testing.T) {
	env := newJournalEnv(t)
	env.importSample(t)

	out, err := env.run(t, "nudges", "--json", "--instrument", "es", "--emotion", "anxious")
	require.NoError(t, err)

	var res nudge.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotEmpty(t, res.Nudges)
	assert.LessOrEqual(t, len(res.Nudges), 2)
	types := make([]models.NudgeType, 0, len(res.Nudges))
	for _, n := range res.Nudges {
		types = append(types, n.Type)
	}
	assert.Contains(t, types, models.NudgeLossStreak)

	_, err = env.run(t, "nudges", "--emotion", "bored")
	assert.Error(t, err)
}

func TestCheckInKeepsStreak(t *testing.T) {
	env := newJournalEnv(t)
	env.importSample(t)

	out, err := env.run(t, "checkin")
	require.NoError(t, err)
	assert.Contains(t, out, "rest day")

	out, err = env.run(t, "streak", "--json")
	require.NoError(t, err)
	var s models.StreakResult
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 4, s.CurrentStreak)
	assert.True(t, s.HasCheckedInToday)
	assert.Equal(t, 0, s.RestDaysAvailable)
}

func TestScoreWithoutTrades(t *testing.T) {
	env := newJournalEnv(t)
	out, err := env.run(t, "score")
	require.NoError(t, err)
	assert.Contains(t, out, "Not enough data")
}

func TestExportJSON(t *testing.T) {
	env := newJournalEnv(t)
	env.importSample(t)

	out, err := env.run(t, "export", "--format", "json", "--from", "2024-03-05")
	require.NoError(t, err)
	assert.NotContains(t, out, `"c-1"`)
	assert.Contains(t, out, `"c-4"`)

	path := filepath.Join(env.dir, "backup.yaml")
	_, err = env.run(t, "export", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id: c-1")
}

func TestDeleteTrade(t *testing.T) {
	env := newJournalEnv(t)
	env.importSample(t)

	_, err := env.run(t, "delete", "c-4")
	require.NoError(t, err)

	_, err = env.run(t, "delete", "c-4")
	assert.True(t, apperrors.Is(err, apperrors.ErrDataNotFound))

	out, err := env.run(t, "breakdown", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"trades": 3`)
}

func TestBreakdownUnknownGrouping(t *testing.T) {
	env := newJournalEnv(t)
	env.importSample(t)

	_, err := env.run(t, "breakdown", "--by", "planet")
	assert.Error(t, err)

	out, err := env.run(t, "breakdown", "--by", "rule")
	require.NoError(t, err)
	assert.Contains(t, out, "Rule Impact")
}

func TestConfigCommands(t *testing.T) {
	env := newJournalEnv(t)

	out, err := env.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "edge_win_rate: 55")
	assert.Contains(t, out, "user: tester")

	out, err = env.run(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(env.dir, "config.toml"))

	out, err = env.run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}
