package tmpl

// Grid is a spreadsheet shaped template: ordered rows of ordered cells. Rows may be ragged.
type Grid struct {
	cells [][]string
}

// NewGrid copies rows into a new Grid.
func NewGrid(rows [][]string) Grid {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = append([]string(nil), row...)
	}

	return Grid{cells: cells}
}

func (g Grid) NumRows() int {
	return len(g.cells)
}

// NumCols returns the width of the widest row.
func (g Grid) NumCols() int {
	var n int
	for _, row := range g.cells {
		if len(row) > n {
			n = len(row)
		}
	}

	return n
}

// Cell returns the content at row, col and false when the cell does not exist.
func (g Grid) Cell(row, col int) (string, bool) {
	if row < 0 || row >= len(g.cells) {
		return "", false
	}

	if col < 0 || col >= len(g.cells[row]) {
		return "", false
	}

	return g.cells[row][col], true
}

// Set writes the content at row, col, growing the grid when needed.
func (g *Grid) Set(row, col int, content string) {
	for len(g.cells) <= row {
		g.cells = append(g.cells, nil)
	}

	for len(g.cells[row]) <= col {
		g.cells[row] = append(g.cells[row], "")
	}

	g.cells[row][col] = content
}

// Rows returns a deep copy of the cells.
func (g Grid) Rows() [][]string {
	return g.Clone().cells
}

func (g Grid) Clone() Grid {
	return NewGrid(g.cells)
}
