package domain

// MenuDocument is the structured form of an uploaded menu. Periods,
// dishes and ingredients keep their input order end-to-end; Grid holds
// the original cell matrix so untouched content can be re-emitted
// verbatim.
type MenuDocument struct {
	Periods []MealPeriod `bson:"periods" json:"periods"`
	Grid    Grid         `bson:"grid" json:"grid"`
}

type MealPeriod struct {
	Name   string `bson:"name" json:"name"`
	Dishes []Dish `bson:"dishes" json:"dishes"`
}

// Dish is one meal entry (a breakfast, lunch or snack line of one day
// cell). Row/Col locate its cell in the source grid, Line/Span the
// lines it occupies inside that cell, Marker the exact period prefix
// it was written with. Writers need all of them to rebuild a modified
// dish in place without disturbing the rest of the cell.
type Dish struct {
	Name        string   `bson:"name,omitempty" json:"name,omitempty"`
	Day         string   `bson:"day,omitempty" json:"day,omitempty"`
	Row         int      `bson:"row" json:"row"`
	Col         int      `bson:"col" json:"col"`
	Line        int      `bson:"line" json:"line"`
	Span        int      `bson:"span" json:"span"`
	Marker      string   `bson:"marker,omitempty" json:"marker,omitempty"`
	Ingredients []string `bson:"ingredients" json:"ingredients"`
}

// Grid preserves the tabular shape of the input. Cells hold the raw
// text of every original cell, meal cells included; MealCells marks
// which ones the parser recognized as day cells.
type Grid struct {
	Rows      int        `bson:"rows" json:"rows"`
	Cols      int        `bson:"cols" json:"cols"`
	Cells     [][]string `bson:"cells" json:"cells"`
	MealCells []CellRef  `bson:"meal_cells" json:"meal_cells"`
}

type CellRef struct {
	Row int `bson:"row" json:"row"`
	Col int `bson:"col" json:"col"`
}

func (g Grid) IsMealCell(row, col int) bool {
	for _, ref := range g.MealCells {
		if ref.Row == row && ref.Col == col {
			return true
		}
	}
	return false
}

// Clone deep-copies the document so resolution can rewrite ingredients
// without mutating the parsed original.
func (d *MenuDocument) Clone() *MenuDocument {
	out := &MenuDocument{
		Periods: make([]MealPeriod, len(d.Periods)),
		Grid: Grid{
			Rows:      d.Grid.Rows,
			Cols:      d.Grid.Cols,
			Cells:     make([][]string, len(d.Grid.Cells)),
			MealCells: append([]CellRef(nil), d.Grid.MealCells...),
		},
	}
	for i, period := range d.Periods {
		dishes := make([]Dish, len(period.Dishes))
		for j, dish := range period.Dishes {
			copied := dish
			copied.Ingredients = append([]string(nil), dish.Ingredients...)
			dishes[j] = copied
		}
		out.Periods[i] = MealPeriod{Name: period.Name, Dishes: dishes}
	}
	for i, row := range d.Grid.Cells {
		out.Grid.Cells[i] = append([]string(nil), row...)
	}
	return out
}

// Period returns the named meal period, or nil.
func (d *MenuDocument) Period(name string) *MealPeriod {
	for i := range d.Periods {
		if d.Periods[i].Name == name {
			return &d.Periods[i]
		}
	}
	return nil
}

func (d *MenuDocument) DishCount() int {
	n := 0
	for _, p := range d.Periods {
		n += len(p.Dishes)
	}
	return n
}
