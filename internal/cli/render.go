package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorRed    = lipgloss.Color("#D14D41")
	colorMuted  = lipgloss.Color("#6F6E69")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// Table is a titled grid. Columns listed in Right are right aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Right   []int
}

// RenderTable draws t with rounded borders.
func RenderTable(t Table) string {
	right := make(map[int]bool, len(t.Right))
	for _, c := range t.Right {
		right[c] = true
	}
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if right[col] {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		})

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(titleStyle.Render(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	return b.String()
}

// Money formats an amount with two decimals, colored by sign.
func Money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	switch d.Sign() {
	case -1:
		return warnStyle.Render(s)
	case 1:
		return okStyle.Render(s)
	}
	return s
}

// Sparkline draws values as a row of block characters scaled between
// their minimum and maximum.
func Sparkline(values []decimal.Decimal) string {
	if len(values) == 0 {
		return ""
	}
	blocks := []rune("▁▂▃▄▅▆▇█")
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = decimal.Min(lo, v)
		hi = decimal.Max(hi, v)
	}
	span := hi.Sub(lo)
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if !span.IsZero() {
			idx = int(v.Sub(lo).Div(span).Mul(decimal.NewFromInt(int64(len(blocks) - 1))).Round(0).IntPart())
		}
		b.WriteRune(blocks[idx])
	}
	return b.String()
}
