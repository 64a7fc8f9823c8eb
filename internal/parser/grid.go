package parser

import (
	"strings"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

// ParseGrid builds a MenuDocument from a cell matrix. A cell is a meal
// cell when at least one of its lines opens with a period marker; all
// other cells (weekday headers, week labels, notes) pass through
// untouched. Lines inside a meal cell that precede the first marker
// are kept verbatim as well, they just contribute no dishes.
func (p *Parser) ParseGrid(cells [][]string) (*domain.MenuDocument, error) {
	grid := domain.Grid{
		Rows:  len(cells),
		Cells: make([][]string, len(cells)),
	}
	for r, row := range cells {
		grid.Cells[r] = append([]string(nil), row...)
		if len(row) > grid.Cols {
			grid.Cols = len(row)
		}
	}

	headers := p.headerRow(cells)

	// Dishes are grouped by period but ordered by their position in
	// the document (row-major cell scan, top line first).
	byPeriod := map[string][]domain.Dish{}
	for r, row := range cells {
		for c, cell := range row {
			dishes := p.parseCell(cell, r, c)
			if len(dishes) == 0 {
				continue
			}
			grid.MealCells = append(grid.MealCells, domain.CellRef{Row: r, Col: c})
			day := ""
			if headers != nil && r > 0 && c < len(headers) {
				day = headers[c]
			}
			for _, d := range dishes {
				d.Day = day
				period := periodOf(d, p.layout)
				byPeriod[period] = append(byPeriod[period], d)
			}
		}
	}

	if len(grid.MealCells) == 0 {
		return nil, &ParseError{Reason: "no recognizable meal-period structure"}
	}

	doc := &domain.MenuDocument{Grid: grid}
	for _, m := range p.layout.Markers {
		if dishes, ok := byPeriod[m.Period]; ok {
			doc.Periods = append(doc.Periods, domain.MealPeriod{Name: m.Period, Dishes: dishes})
			delete(byPeriod, m.Period)
		}
	}
	return doc, nil
}

func periodOf(d domain.Dish, l Layout) string {
	for _, m := range l.Markers {
		if m.Prefix == d.Marker {
			return m.Period
		}
	}
	return ""
}

// headerRow returns the first grid row when it carries no markers
// itself, so its cells can label the columns below with day names.
func (p *Parser) headerRow(cells [][]string) []string {
	if len(cells) < 2 {
		return nil
	}
	for _, cell := range cells[0] {
		if len(p.parseCell(cell, 0, 0)) > 0 {
			return nil
		}
	}
	headers := make([]string, len(cells[0]))
	for i, cell := range cells[0] {
		headers[i] = strings.TrimSpace(cell)
	}
	return headers
}

// parseCell extracts the dishes of one cell. Each marker line starts a
// dish; following lines without a marker continue it. Line and Span
// record exactly which lines the dish covers.
func (p *Parser) parseCell(cell string, row, col int) []domain.Dish {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(cell, "\r\n", "\n"), "\n")

	var dishes []domain.Dish
	var open *domain.Dish
	var text strings.Builder
	flush := func() {
		if open == nil {
			return
		}
		open.Ingredients = p.splitIngredients(text.String())
		dishes = append(dishes, *open)
		open = nil
		text.Reset()
	}

	for i, line := range lines {
		if m, rest, ok := p.layout.match(line); ok {
			flush()
			open = &domain.Dish{Row: row, Col: col, Line: i, Span: 1, Marker: m.Prefix}
			text.WriteString(rest)
			continue
		}
		if open != nil && strings.TrimSpace(line) != "" {
			open.Span = i - open.Line + 1
			text.WriteString(" ")
			text.WriteString(strings.TrimSpace(line))
		}
	}
	flush()
	return dishes
}

func (p *Parser) splitIngredients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, p.layout.Separator) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
