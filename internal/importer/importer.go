// Package importer loads journaled trades and check-ins from CSV, YAML and JSON files.
package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"trading-journal/internal/analysis"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// Format is an import file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFmt, filepath.Ext(path))
}

// Options controls how rows become records.
type Options struct {
	// UserID is assigned to rows without one.
	UserID string
	// BreakevenEpsilon is used when deriving an outcome from the exit price.
	BreakevenEpsilon float64
	// NewID generates IDs for rows without one. Defaults to random UUIDs.
	NewID func() string
}

// RowError is a row that could not be imported.
type RowError struct {
	Row int    `json:"row"`
	ID  string `json:"id,omitempty"`
	Err error  `json:"-"`
}

func (e *RowError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("row %d (%s): %v", e.Row, e.ID, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Result holds the records read from one file. Rows are numbered from 1.
type Result struct {
	Format   Format                 `json:"format"`
	Trades   []models.TradeRecord   `json:"trades"`
	CheckIns []models.CheckInRecord `json:"check_ins,omitempty"`
	Errors   []*RowError            `json:"errors,omitempty"`
}

// UnknownSetups lists, in first-seen order, the setup tags that are neither built in
// nor marked custom. They still import and display verbatim.
func (res *Result) UnknownSetups() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range res.Trades {
		if t.SetupType == nil {
			continue
		}
		tag := *t.SetupType
		if seen[tag] || models.IsKnownSetup(tag) || strings.HasPrefix(tag, models.CustomSetupPrefix) {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// Document is the object form of a YAML or JSON import file. A bare list is read as
// trades only.
type Document struct {
	Trades   []models.TradeRecord   `json:"trades" yaml:"trades"`
	CheckIns []models.CheckInRecord `json:"check_ins" yaml:"check_ins"`
}

// Load reads the file at path. Row problems are collected in Result.Errors; only file
// level problems are returned as an error.
func Load(path string, opts Options) (*Result, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewDataError("import", path, "failed to open file", err)
	}
	defer f.Close()

	res, err := Parse(f, format, opts)
	if err != nil {
		return nil, apperrors.NewDataError("import", path, "failed to parse file", err)
	}
	return res, nil
}

// Parse reads records in the given format from r.
func Parse(r io.Reader, format Format, opts Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.BreakevenEpsilon == 0 {
		opts.BreakevenEpsilon = models.DefaultBreakevenEpsilon
	}

	res := &Result{Format: format}
	var doc Document

	switch format {
	case FormatCSV:
		rows, err := parseCSV(data)
		if err != nil {
			return nil, err
		}
		for i, row := range rows {
			t, err := row.toTrade()
			if err != nil {
				res.Errors = append(res.Errors, &RowError{Row: i + 1, ID: row.ID, Err: err})
				continue
			}
			res.addTrade(i+1, t, opts)
		}
		return res, nil
	case FormatYAML:
		if err := decodeYAML(data, &doc); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := decodeJSON(data, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFmt, format)
	}

	for i, t := range doc.Trades {
		res.addTrade(i+1, t, opts)
	}
	for i, c := range doc.CheckIns {
		if c.UserID == "" {
			c.UserID = opts.UserID
		}
		if c.CheckDate.IsZero() {
			res.Errors = append(res.Errors, &RowError{Row: i + 1, Err: apperrors.NewInvalidRecordError("", "check_date", "check-in without a date")})
			continue
		}
		res.CheckIns = append(res.CheckIns, c)
	}
	return res, nil
}

func decodeYAML(data []byte, doc *Document) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(node.Content) == 0 {
		return nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		return root.Decode(&doc.Trades)
	}
	return root.Decode(doc)
}

func decodeJSON(data []byte, doc *Document) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	var err error
	if trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &doc.Trades)
	} else {
		err = json.Unmarshal(trimmed, doc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// addTrade fills defaults, derives the outcome of trades that have an exit price but
// no outcome, and validates the result.
func (res *Result) addTrade(row int, t models.TradeRecord, opts Options) {
	if t.ID == "" {
		t.ID = opts.NewID()
	}
	if t.UserID == "" {
		t.UserID = opts.UserID
	}
	t.Instrument = models.NormalizeInstrument(t.Instrument)
	t.Direction = models.Direction(lower(string(t.Direction)))
	if t.Outcome != nil {
		t.Outcome = models.OutcomePtr(models.Outcome(lower(string(*t.Outcome))))
	}
	for _, e := range []**models.Emotion{&t.EmotionBefore, &t.EmotionDuring, &t.EmotionAfter} {
		if *e != nil {
			*e = models.EmotionPtr(models.Emotion(lower(string(**e))))
		}
	}
	for i, r := range t.RulesFollowed {
		t.RulesFollowed[i] = models.RuleID(lower(string(r)))
	}

	if t.Outcome == nil && t.ExitPrice != nil {
		recorded := t.PnL
		t = models.CloseTrade(t, *t.ExitPrice, opts.BreakevenEpsilon)
		// A recorded P&L includes fees and multipliers the price move does not.
		if recorded != nil {
			t.PnL = recorded
		}
	}

	if t.UserID == "" {
		res.Errors = append(res.Errors, &RowError{Row: row, ID: t.ID, Err: apperrors.NewInvalidRecordError(t.ID, "user_id", "missing user")})
		return
	}
	if err := analysis.ValidateTrade(&t); err != nil {
		res.Errors = append(res.Errors, &RowError{Row: row, ID: t.ID, Err: err})
		return
	}
	res.Trades = append(res.Trades, t)
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
