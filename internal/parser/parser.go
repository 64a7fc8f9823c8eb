package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatText:
		return FormatText, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown menu format: %q", s)
}

// Marker binds a line prefix to a meal period. Marker order fixes both
// match priority and the period order of the parsed document.
type Marker struct {
	Prefix string
	Period string
}

// Layout is the section vocabulary of the input: which prefixes open
// which meal period and what separates ingredients inside a meal line.
// It is configuration, not code: deployments with different menu
// templates swap it out.
type Layout struct {
	Markers   []Marker
	Separator string
}

func DefaultLayout() Layout {
	return Layout{
		Markers: []Marker{
			{Prefix: "B:", Period: "breakfast"},
			{Prefix: "L:", Period: "lunch"},
			{Prefix: "S:", Period: "snack"},
		},
		Separator: ",",
	}
}

// MarkerFor returns the first marker prefix mapped to the period.
func (l Layout) MarkerFor(period string) string {
	for _, m := range l.Markers {
		if m.Period == period {
			return m.Prefix
		}
	}
	return ""
}

func (l Layout) match(line string) (Marker, string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, m := range l.Markers {
		if strings.HasPrefix(trimmed, m.Prefix) {
			return m, strings.TrimSpace(trimmed[len(m.Prefix):]), true
		}
	}
	return Marker{}, "", false
}

// ParseError reports unrecognizable input with its location. Row/Col
// are 1-based grid coordinates, Line is the 1-based line number inside
// the failing cell or block; zero values mean unknown.
type ParseError struct {
	Reason string
	Row    int
	Col    int
	Line   int
}

func (e *ParseError) Error() string {
	loc := ""
	if e.Row > 0 {
		loc = fmt.Sprintf(" (row %d, col %d", e.Row, e.Col)
		if e.Line > 0 {
			loc += fmt.Sprintf(", line %d", e.Line)
		}
		loc += ")"
	} else if e.Line > 0 {
		loc = fmt.Sprintf(" (line %d)", e.Line)
	}
	return "parse error: " + e.Reason + loc
}

type Parser struct {
	layout Layout
}

func New(layout Layout) *Parser {
	if len(layout.Markers) == 0 {
		layout = DefaultLayout()
	}
	if layout.Separator == "" {
		layout.Separator = ","
	}
	return &Parser{layout: layout}
}

func (p *Parser) Layout() Layout { return p.layout }

// Parse turns raw menu input into a MenuDocument. It is a pure
// transform: no side effects, and the returned document carries enough
// positional metadata to re-emit untouched content verbatim.
func (p *Parser) Parse(raw []byte, format Format) (*domain.MenuDocument, error) {
	switch format {
	case FormatAuto:
		return p.Parse(raw, p.sniff(raw))
	case FormatXLSX:
		return p.parseXLSX(raw)
	case FormatCSV:
		cells, err := readCSV(raw)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("invalid csv: %v", err)}
		}
		return p.ParseGrid(cells)
	case FormatText:
		return p.parseText(raw)
	}
	return nil, fmt.Errorf("unknown menu format: %q", format)
}

func (p *Parser) sniff(raw []byte) Format {
	if len(raw) >= 4 && raw[0] == 'P' && raw[1] == 'K' {
		return FormatXLSX
	}
	if cells, err := readCSV(raw); err == nil {
		for _, row := range cells {
			if len(row) > 1 {
				return FormatCSV
			}
		}
	}
	return FormatText
}

func readCSV(raw []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// parseText reads a flat-text menu: day blocks separated by blank
// lines, every block made of marker lines plus continuation lines. In
// flat text the markers are the only structure, so a block whose first
// non-blank line carries no marker cannot be associated with a period
// and fails the parse.
func (p *Parser) parseText(raw []byte) (*domain.MenuDocument, error) {
	lines := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")

	var blocks [][]string
	var starts []int
	var current []string
	start := 0
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, current)
			starts = append(starts, start)
			current = nil
		}
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if len(current) == 0 {
			start = i
		}
		current = append(current, line)
	}
	flush()

	if len(blocks) == 0 {
		return nil, &ParseError{Reason: "no recognizable meal-period structure"}
	}

	grid := make([][]string, len(blocks))
	for i, block := range blocks {
		if _, _, ok := p.layout.match(block[0]); !ok {
			return nil, &ParseError{
				Reason: "line cannot be associated with a meal period",
				Line:   starts[i] + 1,
			}
		}
		grid[i] = []string{strings.Join(block, "\n")}
	}

	return p.ParseGrid(grid)
}
