package maze

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Grid is an immutable snapshot of the maze. Mutators return a new Grid and
// leave the receiver untouched; unchanged rows are shared between snapshots,
// so a single-cell mutation costs O(width+height).
type Grid struct {
	width, height int
	rows          [][]Cell // never written after the snapshot is built
}

func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	rows := make([][]Cell, height)
	for y := range height {
		row := make([]Cell, width)
		for x := range width {
			row[x] = Cell{
				Walls: FilledWalls(),
				Bordered: WallSet{
					Up:    y == 0,
					Down:  y == height-1,
					Left:  x == 0,
					Right: x == width-1,
				},
			}
		}
		rows[y] = row
	}
	return &Grid{width: width, height: height, rows: rows}, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

func (g *Grid) InBounds(c Coordinate) bool {
	return 0 <= c.X && c.X < g.width && 0 <= c.Y && c.Y < g.height
}

func (g *Grid) checkBounds(c Coordinate) error {
	if !g.InBounds(c) {
		return &OutOfBoundsError{At: c, Width: g.width, Height: g.height}
	}
	return nil
}

func (g *Grid) At(c Coordinate) (Cell, error) {
	if err := g.checkBounds(c); err != nil {
		return Cell{}, err
	}
	return g.rows[c.Y][c.X], nil
}

// cell skips the bounds check; callers guarantee c is inside the grid.
func (g *Grid) cell(c Coordinate) Cell {
	return g.rows[c.Y][c.X]
}

// Neighbor returns the coordinate next to c in direction d, or false when it
// would fall outside the grid.
func (g *Grid) Neighbor(c Coordinate, d Direction) (Coordinate, bool) {
	n := c.Step(d)
	return n, g.InBounds(n)
}

// Rows returns a copy of the cells, addressed [y][x].
func (g *Grid) Rows() [][]Cell {
	rows := make([][]Cell, g.height)
	for y, row := range g.rows {
		rows[y] = slices.Clone(row)
	}
	return rows
}

// Grid implements [json.Marshaler]
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Width  int      `json:"width"`
		Height int      `json:"height"`
		Cells  [][]Cell `json:"cells"`
	}{g.width, g.height, g.rows})
}

// WithWall sets the wall on side d of c and the mirrored wall on the
// neighbor. At the outer boundary only c is edited.
func (g *Grid) WithWall(c Coordinate, d Direction, present bool) (*Grid, error) {
	if err := g.checkBounds(c); err != nil {
		return nil, err
	}
	if !d.valid() {
		return nil, violation("no such direction %s", d)
	}
	e := g.edit()
	e.setWall(c, d, present)
	return e.done(), nil
}

func (g *Grid) WithConnection(c Coordinate, d Direction, conn Connection) (*Grid, error) {
	if err := g.checkBounds(c); err != nil {
		return nil, err
	}
	if !d.valid() {
		return nil, violation("no such direction %s", d)
	}
	e := g.edit()
	e.cell(c).Connections[d] = conn
	return e.done(), nil
}

func (g *Grid) WithVisited(c Coordinate, visited bool) (*Grid, error) {
	if err := g.checkBounds(c); err != nil {
		return nil, err
	}
	e := g.edit()
	e.cell(c).Visited = visited
	return e.done(), nil
}

func (g *Grid) WithVisible(c Coordinate, visible bool) (*Grid, error) {
	if err := g.checkBounds(c); err != nil {
		return nil, err
	}
	e := g.edit()
	e.cell(c).Visible = visible
	return e.done(), nil
}

// FindFirst scans row-major from the top-left corner.
func (g *Grid) FindFirst(match func(Cell) bool) (Coordinate, error) {
	for y := range g.height {
		for x := range g.width {
			if match(g.rows[y][x]) {
				return Coord(x, y), nil
			}
		}
	}
	return Coordinate{}, ErrNoMatchingCell
}

// FindLast scans row-major in reverse from the bottom-right corner.
func (g *Grid) FindLast(match func(Cell) bool) (Coordinate, error) {
	for y := g.height - 1; y >= 0; y-- {
		for x := g.width - 1; x >= 0; x-- {
			if match(g.rows[y][x]) {
				return Coord(x, y), nil
			}
		}
	}
	return Coordinate{}, ErrNoMatchingCell
}

// CheckWalls verifies that every internal wall agrees with its mirror.
func (g *Grid) CheckWalls() error {
	for y := range g.height {
		for x := range g.width {
			c := Coord(x, y)
			for _, d := range [2]Direction{Right, Down} {
				n, ok := g.Neighbor(c, d)
				if !ok {
					continue
				}
				if g.cell(c).Walls[d] != g.cell(n).Walls[d.Inverse()] {
					return violation("wall %s of %s disagrees with wall %s of %s",
						d, c, d.Inverse(), n)
				}
			}
		}
	}
	return nil
}

// CheckPerfect verifies that the open internal edges form a spanning tree:
// exactly width*height-1 of them and every cell connected.
func (g *Grid) CheckPerfect() error {
	if err := g.CheckWalls(); err != nil {
		return err
	}
	sets := newDisjointSet(g.width * g.height)
	open := 0
	for y := range g.height {
		for x := range g.width {
			c := Coord(x, y)
			for _, d := range [2]Direction{Right, Down} {
				n, ok := g.Neighbor(c, d)
				if !ok || g.cell(c).Walls[d] {
					continue
				}
				open++
				if !sets.union(g.index(c), g.index(n)) {
					return violation("cycle through %s and %s", c, n)
				}
			}
		}
	}
	if want := g.width*g.height - 1; open != want {
		return violation("%d open walls, want %d", open, want)
	}
	return nil
}

func (g *Grid) index(c Coordinate) int {
	return c.Y*g.width + c.X
}

// Grid implements [fmt.Stringer]
func (g *Grid) String() string {
	var b strings.Builder
	for y, row := range g.rows {
		for _, cell := range row {
			b.WriteString("+")
			b.WriteString(iif(cell.Visible && cell.Walls[Up], "---", "   "))
		}
		b.WriteString("+\n")
		for _, cell := range row {
			b.WriteString(iif(cell.Visible && cell.Walls[Left], "|", " "))
			switch {
			case !cell.Visible:
				b.WriteString("   ")
			case cell.Connections.has(ConnectionRight):
				b.WriteString(" * ")
			case cell.Connections.has(ConnectionWrong):
				b.WriteString(" x ")
			default:
				b.WriteString("   ")
			}
		}
		last := row[g.width-1]
		b.WriteString(iif(last.Visible && last.Walls[Right], "|", " "))
		b.WriteString("\n")
		if y == g.height-1 {
			for _, cell := range row {
				b.WriteString("+")
				b.WriteString(iif(cell.Visible && cell.Walls[Down], "---", "   "))
			}
			b.WriteString("+\n")
		}
	}
	return b.String()
}

// gridEdit builds the next snapshot, copying a row the first time one of
// its cells is touched.
type gridEdit struct {
	next  *Grid
	owned []bool
}

func (g *Grid) edit() *gridEdit {
	return &gridEdit{
		next:  &Grid{width: g.width, height: g.height, rows: slices.Clone(g.rows)},
		owned: make([]bool, g.height),
	}
}

func (e *gridEdit) cell(c Coordinate) *Cell {
	if !e.owned[c.Y] {
		e.next.rows[c.Y] = slices.Clone(e.next.rows[c.Y])
		e.owned[c.Y] = true
	}
	return &e.next.rows[c.Y][c.X]
}

func (e *gridEdit) setWall(c Coordinate, d Direction, present bool) {
	e.cell(c).Walls[d] = present
	if n, ok := e.next.Neighbor(c, d); ok {
		e.cell(n).Walls[d.Inverse()] = present
	}
}

func (e *gridEdit) setConnection(c Coordinate, d Direction, conn Connection) {
	e.cell(c).Connections[d] = conn
}

func (e *gridEdit) done() *Grid {
	return e.next
}
