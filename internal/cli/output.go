package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"trading-journal/internal/models"
)

// ANSI escape sequences used for terminal output.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

var ansiPattern = regexp.MustCompile("\033\\[[0-9;]*m")

// Output writes command results as colored text, JSON or YAML.
type Output struct {
	w     io.Writer
	json  bool
	color bool
}

// NewOutput reads the --json flag of cmd and writes to its output stream. Colors are
// only used when that stream is a terminal.
func NewOutput(cmd *cobra.Command) *Output {
	asJSON, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()
	return &Output{w: w, json: asJSON, color: !asJSON && isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// IsJSON reports whether --json was given.
func (o *Output) IsJSON() bool {
	return o.json
}

// JSON writes v as indented JSON.
func (o *Output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as block YAML. Keys follow the JSON field names in declaration order.
func (o *Output) YAML(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	blockStyle(&doc)
	enc := yaml.NewEncoder(o.w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}

func (o *Output) Println(args ...any) {
	fmt.Fprintln(o.w, args...)
}

func (o *Output) Printf(format string, args ...any) {
	fmt.Fprintf(o.w, format, args...)
}

func (o *Output) Success(format string, args ...any) { o.line(ColorGreen, format, args...) }
func (o *Output) Error(format string, args ...any)   { o.line(ColorRed, format, args...) }
func (o *Output) Warning(format string, args ...any) { o.line(ColorYellow, format, args...) }
func (o *Output) Info(format string, args ...any)    { o.line(ColorCyan, format, args...) }
func (o *Output) Bold(format string, args ...any)    { o.line(ColorBold, format, args...) }
func (o *Output) Dim(format string, args ...any)     { o.line(ColorDim, format, args...) }

func (o *Output) line(color, format string, args ...any) {
	fmt.Fprintln(o.w, o.Paint(color, fmt.Sprintf(format, args...)))
}

// Paint wraps text in color when colors are enabled.
func (o *Output) Paint(color, text string) string {
	if !o.color || color == "" {
		return text
	}
	return color + text + ColorReset
}

func (o *Output) Green(text string) string   { return o.Paint(ColorGreen, text) }
func (o *Output) Red(text string) string     { return o.Paint(ColorRed, text) }
func (o *Output) Yellow(text string) string  { return o.Paint(ColorYellow, text) }
func (o *Output) DimText(text string) string { return o.Paint(ColorDim, text) }

// Signed colors text green, red or white by the sign of v.
func (o *Output) Signed(v float64, text string) string {
	switch {
	case v > 0:
		return o.Green(text)
	case v < 0:
		return o.Red(text)
	default:
		return o.Paint(ColorWhite, text)
	}
}

func (o *Output) FormatPnL(pnl float64) string { return o.Signed(pnl, FormatPnL(pnl)) }
func (o *Output) FormatR(r float64) string     { return o.Signed(r, FormatR(r)) }

// WinRate renders rate green at or above threshold and red below it.
func (o *Output) WinRate(rate, threshold float64) string {
	if rate >= threshold {
		return o.Green(FormatRate(rate))
	}
	return o.Red(FormatRate(rate))
}

func (o *Output) Severity(s models.Severity) string {
	switch s {
	case models.SeverityDanger:
		return o.Red("DANGER")
	case models.SeverityWarning:
		return o.Yellow("WARNING")
	default:
		return o.Paint(ColorCyan, "INFO")
	}
}

// Table buffers rows and prints them as aligned columns.
type Table struct {
	out     *Output
	headers []string
	rows    [][]string
}

func NewTable(out *Output, headers ...string) *Table {
	return &Table{out: out, headers: headers}
}

// AddRow appends a row. Cells beyond the header count are dropped on render.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}
	widths := t.widths()

	t.out.Println(t.format(t.headers, widths, ColorBold))
	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("-", w)
	}
	t.out.Println(t.format(rules, widths, ColorDim))
	for _, row := range t.rows {
		t.out.Println(t.format(row, widths, ""))
	}
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.headers))
	for _, row := range append([][]string{t.headers}, t.rows...) {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], visibleWidth(row[i]))
		}
	}
	return widths
}

func (t *Table) format(cells []string, widths []int, color string) string {
	var b strings.Builder
	for i := 0; i < len(cells) && i < len(widths); i++ {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(cells[i])
		b.WriteString(strings.Repeat(" ", widths[i]-visibleWidth(cells[i])))
	}
	return t.out.Paint(color, strings.TrimRight(b.String(), " "))
}

// visibleWidth counts the runes of s that a terminal displays.
func visibleWidth(s string) int {
	return utf8.RuneCountInString(ansiPattern.ReplaceAllString(s, ""))
}
