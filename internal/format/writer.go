package format

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/parser"
)

// Writer renders resolved menus back into the formats the parser
// accepts. Cells the resolution never touched are emitted verbatim.
// Cells with substitutions are rebuilt line by line, and the segments
// of every rebuilt cell remember which ingredients are replacements so
// the workbook writer can paint them.
type Writer struct {
	layout parser.Layout
}

func NewWriter(layout parser.Layout) *Writer {
	if len(layout.Markers) == 0 {
		layout = parser.DefaultLayout()
	}
	if layout.Separator == "" {
		layout.Separator = ","
	}
	return &Writer{layout: layout}
}

type segment struct {
	text     string
	replaced bool
}

func flatten(segs []segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.text)
	}
	return b.String()
}

// patch marks one dish for rebuild together with the ingredient
// positions that hold replacements.
type patch struct {
	dish     domain.Dish
	replaced map[int]bool
}

func (w *Writer) patches(res *domain.ResolvedMenu) map[domain.CellRef][]*patch {
	byCell := map[domain.CellRef][]*patch{}
	index := map[string]*patch{}
	for _, o := range res.Outcomes {
		if o.Status == domain.OutcomeUnresolved {
			continue
		}
		period := res.Document.Period(o.Flag.Period)
		if period == nil || o.Flag.DishIndex >= len(period.Dishes) {
			continue
		}
		dish := period.Dishes[o.Flag.DishIndex]
		key := fmt.Sprintf("%s/%d", o.Flag.Period, o.Flag.DishIndex)
		p, ok := index[key]
		if !ok {
			p = &patch{dish: dish, replaced: map[int]bool{}}
			index[key] = p
			ref := domain.CellRef{Row: dish.Row, Col: dish.Col}
			byCell[ref] = append(byCell[ref], p)
		}
		p.replaced[o.Flag.IngredientIndex] = true
	}
	return byCell
}

// renderCell rebuilds one meal cell. The lines a patched dish covers
// collapse into a single canonical line; every other line stays as it
// was in the source.
func (w *Writer) renderCell(raw string, patches []*patch) []segment {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	byLine := map[int]*patch{}
	skip := map[int]bool{}
	for _, p := range patches {
		byLine[p.dish.Line] = p
		for i := p.dish.Line + 1; i < p.dish.Line+p.dish.Span; i++ {
			skip[i] = true
		}
	}

	var segs []segment
	emit := func(text string, replaced bool) {
		if text != "" {
			segs = append(segs, segment{text: text, replaced: replaced})
		}
	}
	first := true
	newline := func() {
		if !first {
			emit("\n", false)
		}
		first = false
	}
	for i, line := range lines {
		if skip[i] {
			continue
		}
		newline()
		p, ok := byLine[i]
		if !ok {
			emit(line, false)
			continue
		}
		emit(p.dish.Marker+" ", false)
		for j, ing := range p.dish.Ingredients {
			if j > 0 {
				emit(w.layout.Separator+" ", false)
			}
			emit(ing, p.replaced[j])
		}
	}
	return segs
}

// renderGrid returns the output cell matrix plus the segments of every
// rebuilt cell, keyed by grid position.
func (w *Writer) renderGrid(res *domain.ResolvedMenu) ([][]string, map[domain.CellRef][]segment) {
	patched := w.patches(res)
	cells := make([][]string, len(res.Document.Grid.Cells))
	rich := map[domain.CellRef][]segment{}
	for r, row := range res.Document.Grid.Cells {
		cells[r] = append([]string(nil), row...)
		for c := range row {
			ref := domain.CellRef{Row: r, Col: c}
			if ps, ok := patched[ref]; ok {
				segs := w.renderCell(row[c], ps)
				rich[ref] = segs
				cells[r][c] = flatten(segs)
			}
		}
	}
	return cells, rich
}

// CSV writes the full grid, quoting multi-line cells the way
// encoding/csv reads them back.
func (w *Writer) CSV(res *domain.ResolvedMenu) ([]byte, error) {
	cells, _ := w.renderGrid(res)
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	for _, row := range cells {
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Text emits meal cells as blank-line separated blocks, the shape the
// text parser reads. Day labels from a source grid become a leading
// line; documents parsed from text have none, so they round-trip.
func (w *Writer) Text(res *domain.ResolvedMenu) ([]byte, error) {
	cells, _ := w.renderGrid(res)
	var blocks []string
	for _, ref := range res.Document.Grid.MealCells {
		if ref.Row >= len(cells) || ref.Col >= len(cells[ref.Row]) {
			continue
		}
		text := cells[ref.Row][ref.Col]
		if day := dayOf(res.Document, ref); day != "" {
			text = day + "\n" + text
		}
		blocks = append(blocks, text)
	}
	return []byte(strings.Join(blocks, "\n\n") + "\n"), nil
}

func dayOf(doc *domain.MenuDocument, ref domain.CellRef) string {
	for _, p := range doc.Periods {
		for _, d := range p.Dishes {
			if d.Row == ref.Row && d.Col == ref.Col {
				return d.Day
			}
		}
	}
	return ""
}
