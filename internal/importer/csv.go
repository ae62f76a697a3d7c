package importer

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"trading-journal/internal/calendar"
	"trading-journal/internal/models"
)

// listSeparator splits multi-value CSV cells such as "plan|risk".
const listSeparator = "|"

// CSVRow is one line of a trade CSV. Cells are kept as text so one bad cell produces
// a row error instead of failing the whole file.
type CSVRow struct {
	ID                string `csv:"id"`
	UserID            string `csv:"user_id"`
	TradeDate         string `csv:"trade_date"`
	Instrument        string `csv:"instrument"`
	Direction         string `csv:"direction"`
	EntryPrice        string `csv:"entry_price"`
	StopLoss          string `csv:"stop_loss"`
	TakeProfitTargets string `csv:"take_profit_targets"`
	ExitPrice         string `csv:"exit_price"`
	PositionSize      string `csv:"position_size"`
	Outcome           string `csv:"outcome"`
	RMultiple         string `csv:"r_multiple"`
	PnL               string `csv:"pnl"`
	EntryTime         string `csv:"entry_time"`
	ExitTime          string `csv:"exit_time"`
	EmotionBefore     string `csv:"emotion_before"`
	EmotionDuring     string `csv:"emotion_during"`
	EmotionAfter      string `csv:"emotion_after"`
	RulesFollowed     string `csv:"rules_followed"`
	SetupType         string `csv:"setup_type"`
	CustomTags        string `csv:"custom_tags"`
	Notes             string `csv:"notes"`
}

func parseCSV(data []byte) ([]*CSVRow, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var rows []*CSVRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return rows, nil
}

func (r *CSVRow) toTrade() (models.TradeRecord, error) {
	t := models.TradeRecord{
		ID:         strings.TrimSpace(r.ID),
		UserID:     strings.TrimSpace(r.UserID),
		Instrument: r.Instrument,
		Direction:  models.Direction(lower(r.Direction)),
		EntryTime:  strings.TrimSpace(r.EntryTime),
		ExitTime:   strings.TrimSpace(r.ExitTime),
		Notes:      r.Notes,
	}

	date, err := calendar.Parse(strings.TrimSpace(r.TradeDate))
	if err != nil {
		return t, fmt.Errorf("trade_date: %w", err)
	}
	t.TradeDate = date

	if t.EntryPrice, err = parseRequired("entry_price", r.EntryPrice); err != nil {
		return t, err
	}
	if t.PositionSize, err = parseRequired("position_size", r.PositionSize); err != nil {
		return t, err
	}
	optional := []struct {
		name   string
		value  string
		target **float64
	}{
		{"stop_loss", r.StopLoss, &t.StopLoss},
		{"exit_price", r.ExitPrice, &t.ExitPrice},
		{"r_multiple", r.RMultiple, &t.RMultiple},
		{"pnl", r.PnL, &t.PnL},
	}
	for _, f := range optional {
		if *f.target, err = parseOptional(f.name, f.value); err != nil {
			return t, err
		}
	}
	for _, s := range splitList(r.TakeProfitTargets) {
		v, err := parseRequired("take_profit_targets", s)
		if err != nil {
			return t, err
		}
		t.TakeProfitTargets = append(t.TakeProfitTargets, v)
	}

	if s := lower(r.Outcome); s != "" {
		t.Outcome = models.OutcomePtr(models.Outcome(s))
	}
	emotions := []struct {
		value  string
		target **models.Emotion
	}{
		{r.EmotionBefore, &t.EmotionBefore},
		{r.EmotionDuring, &t.EmotionDuring},
		{r.EmotionAfter, &t.EmotionAfter},
	}
	for _, e := range emotions {
		if s := strings.TrimSpace(e.value); s != "" {
			emotion, err := models.ParseEmotion(s)
			if err != nil {
				return t, err
			}
			*e.target = models.EmotionPtr(emotion)
		}
	}
	for _, s := range splitList(r.RulesFollowed) {
		rule, err := models.ParseRule(s)
		if err != nil {
			return t, err
		}
		t.RulesFollowed = append(t.RulesFollowed, rule)
	}
	if s := strings.TrimSpace(r.SetupType); s != "" {
		t.SetupType = models.String(s)
	}
	t.CustomTags = splitList(r.CustomTags)

	return t, nil
}

func parseRequired(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func parseOptional(field, s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := parseRequired(field, s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fromTrade renders a trade as a CSV row.
func fromTrade(t *models.TradeRecord) *CSVRow {
	r := &CSVRow{
		ID:           t.ID,
		UserID:       t.UserID,
		TradeDate:    t.TradeDate.String(),
		Instrument:   t.Instrument,
		Direction:    string(t.Direction),
		EntryPrice:   formatFloat(t.EntryPrice),
		StopLoss:     formatOptional(t.StopLoss),
		ExitPrice:    formatOptional(t.ExitPrice),
		PositionSize: formatFloat(t.PositionSize),
		RMultiple:    formatOptional(t.RMultiple),
		PnL:          formatOptional(t.PnL),
		EntryTime:    t.EntryTime,
		ExitTime:     t.ExitTime,
		Notes:        t.Notes,
		CustomTags:   strings.Join(t.CustomTags, listSeparator),
	}
	targets := make([]string, len(t.TakeProfitTargets))
	for i, v := range t.TakeProfitTargets {
		targets[i] = formatFloat(v)
	}
	r.TakeProfitTargets = strings.Join(targets, listSeparator)
	rules := make([]string, len(t.RulesFollowed))
	for i, rule := range t.RulesFollowed {
		rules[i] = string(rule)
	}
	r.RulesFollowed = strings.Join(rules, listSeparator)
	if t.Outcome != nil {
		r.Outcome = string(*t.Outcome)
	}
	if t.EmotionBefore != nil {
		r.EmotionBefore = string(*t.EmotionBefore)
	}
	if t.EmotionDuring != nil {
		r.EmotionDuring = string(*t.EmotionDuring)
	}
	if t.EmotionAfter != nil {
		r.EmotionAfter = string(*t.EmotionAfter)
	}
	if t.SetupType != nil {
		r.SetupType = *t.SetupType
	}
	return r
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func writeCSV(w io.Writer, trades []models.TradeRecord) error {
	rows := make([]*CSVRow, len(trades))
	for i := range trades {
		rows[i] = fromTrade(&trades[i])
	}
	return gocsv.Marshal(rows, w)
}
