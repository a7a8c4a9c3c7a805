package maze

import "fmt"

// Coordinate addresses a cell. X is the column, Y is the row.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func Coord(x, y int) Coordinate {
	return Coordinate{X: x, Y: y}
}

// Coordinate implements [fmt.Stringer]
func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Step returns the coordinate one cell away in direction d. The result may
// lie outside the grid; use [Grid.Neighbor] for a bounds-checked step.
func (c Coordinate) Step(d Direction) Coordinate {
	dx, dy := d.Delta()
	return Coordinate{X: c.X + dx, Y: c.Y + dy}
}

type Direction int8

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists every direction in the order used by candidate scans.
var Directions = [4]Direction{Up, Down, Left, Right}

func (d Direction) valid() bool {
	return d >= Up && d <= Right
}

func (d Direction) Inverse() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	default:
		return 1, 0
	}
}

// Direction implements [fmt.Stringer]
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("direction(%d)", int8(d))
	}
}
