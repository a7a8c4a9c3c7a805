package maze

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// trail collects the cells visited since the last branch point. Frames
// below a branch with a single remaining move share their parent's trail,
// so a dead-end corridor is abandoned as one unit.
type trail struct {
	cells []Coordinate
}

type solveFrame struct {
	at    Coordinate
	trail *trail
	moves []Direction
	tried Direction
}

// passable reports whether the solver may step from c in direction d.
func (g *Grid) passable(c Coordinate, d Direction) (Coordinate, bool) {
	n, ok := g.Neighbor(c, d)
	if !ok || g.cell(c).Walls[d] || g.cell(n).Visited {
		return n, false
	}
	return n, true
}

func (g *Grid) moves(c Coordinate) []Direction {
	dirs := make([]Direction, 0, len(Directions))
	for _, d := range Directions {
		if _, ok := g.passable(c, d); ok {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// solve runs a depth-first search from the entrance on an explicit stack.
// Abandoned branches are marked wrong as they unwind; once the exit is
// reached a final snapshot leaves exactly the found path marked right.
func (m *Maze) solve(ctx context.Context) error {
	m.setPhase(PhaseSolving)

	e := m.grid.edit()
	for y := range m.grid.Height() {
		for x := range m.grid.Width() {
			c := Coord(x, y)
			if m.grid.cell(c).Visited {
				e.cell(c).Visited = false
			}
		}
	}
	m.publish(e.done())

	entrance, err := m.grid.FindFirst(isEntrance)
	if err != nil {
		return fmt.Errorf("%s: entrance: %w", PhaseSolving, err)
	}
	exit, err := m.grid.FindLast(isExit)
	if err != nil {
		return fmt.Errorf("%s: exit: %w", PhaseSolving, err)
	}
	m.log.WithFields(logrus.Fields{
		"entrance": entrance,
		"exit":     exit,
	}).Debug("solving")

	e = m.grid.edit()
	e.setConnection(entrance, Up, ConnectionRight)
	if err := m.step(ctx, e.done()); err != nil {
		return err
	}

	var stack []solveFrame

	// enter pushes a frame for c and reports whether c is the exit.
	enter := func(c Coordinate, tr *trail) (bool, error) {
		tr.cells = append(tr.cells, c)
		e := m.grid.edit()
		e.cell(c).Visited = true
		m.stats.CellsExplored++
		if err := m.step(ctx, e.done()); err != nil {
			return false, err
		}
		stack = append(stack, solveFrame{at: c, trail: tr, moves: m.grid.moves(c)})

		if c.Y == m.grid.Height()-1 && !m.grid.cell(c).Walls[Down] {
			e := m.grid.edit()
			e.setConnection(c, Down, ConnectionRight)
			if err := m.step(ctx, e.done()); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, nil
	}

	found, err := enter(entrance, &trail{})
	for err == nil && !found {
		top := &stack[len(stack)-1]

		if len(top.moves) == 0 {
			dead := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return violation("no path from %s to exit %s", entrance, exit)
			}
			m.stats.Backtracks++
			parent := &stack[len(stack)-1]

			e := m.grid.edit()
			for _, c := range dead.trail.cells {
				if m.grid.cell(c).Connections.has(ConnectionRight) {
					cell := e.cell(c)
					cell.Connections = cell.Connections.toWrong()
				}
			}
			if err = m.step(ctx, e.done()); err != nil {
				break
			}

			e = m.grid.edit()
			cur := e.cell(parent.at)
			cur.Connections = cur.Connections.toRight(parent.tried)
			err = m.step(ctx, e.done())
			continue
		}

		i := m.rand.IntN(len(top.moves))
		d := top.moves[i]
		top.moves = slices.Delete(top.moves, i, i+1)

		next, ok := m.grid.passable(top.at, d)
		if !ok {
			continue
		}
		top.tried = d

		e := m.grid.edit()
		e.setConnection(top.at, d, ConnectionRight)
		e.setConnection(next, d.Inverse(), ConnectionRight)
		if err = m.step(ctx, e.done()); err != nil {
			break
		}

		tr := &trail{}
		if len(top.moves) == 1 {
			tr = top.trail
		}
		found, err = enter(next, tr)
	}
	if err != nil {
		return err
	}

	m.commit(stack)
	return nil
}

// commit publishes the solved grid: both sides of every edge on the path are
// right, as are the entrance's top and the exit's bottom, and every other
// right side is demoted to wrong.
func (m *Maze) commit(path []solveFrame) {
	e := m.grid.edit()
	for y := range m.grid.Height() {
		for x := range m.grid.Width() {
			c := Coord(x, y)
			if m.grid.cell(c).Connections.has(ConnectionRight) {
				cell := e.cell(c)
				cell.Connections = cell.Connections.toWrong()
			}
		}
	}

	first, last := path[0].at, path[len(path)-1].at
	e.setConnection(first, Up, ConnectionRight)
	for i := 0; i+1 < len(path); i++ {
		d := path[i].tried
		e.setConnection(path[i].at, d, ConnectionRight)
		e.setConnection(path[i+1].at, d.Inverse(), ConnectionRight)
	}
	e.setConnection(last, Down, ConnectionRight)

	m.stats.PathLength = len(path)
	m.phase = PhaseSolved
	m.publish(e.done())
	m.log.WithField("path_length", len(path)).Info("maze solved")
}
