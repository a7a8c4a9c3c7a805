package maze

import (
	"context"
	"slices"
)

type genFrame struct {
	at         Coordinate
	candidates []Direction
}

// unvisitedNeighbors lists the directions from c that lead to an unvisited
// cell inside the grid.
func (g *Grid) unvisitedNeighbors(c Coordinate) []Direction {
	dirs := make([]Direction, 0, len(Directions))
	for _, d := range Directions {
		if n, ok := g.Neighbor(c, d); ok && !g.cell(n).Visited {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// generate is a recursive backtracker run on an explicit stack. Each frame
// keeps the candidates it has not tried yet; a candidate claimed by another
// branch in the meantime is dropped without descending.
func (m *Maze) generate(ctx context.Context, start Coordinate) error {
	if err := m.grid.checkBounds(start); err != nil {
		return err
	}
	m.setPhase(PhaseGenerating)
	m.log.WithField("start", start).Debug("generating")

	visit := func(c Coordinate) genFrame {
		e := m.grid.edit()
		e.cell(c).Visited = true
		m.publish(e.done())
		return genFrame{at: c, candidates: m.grid.unvisitedNeighbors(c)}
	}

	stack := []genFrame{visit(start)}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if len(top.candidates) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		i := m.rand.IntN(len(top.candidates))
		d := top.candidates[i]
		top.candidates = slices.Delete(top.candidates, i, i+1)

		next, _ := m.grid.Neighbor(top.at, d)
		if m.grid.cell(next).Visited {
			continue
		}

		e := m.grid.edit()
		e.setWall(top.at, d, false)
		m.stats.WallsRemoved++
		if err := m.step(ctx, e.done()); err != nil {
			return err
		}
		stack = append(stack, visit(next))
	}
	return nil
}
