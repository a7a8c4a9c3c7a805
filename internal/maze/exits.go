package maze

import (
	"context"

	"github.com/sirupsen/logrus"
)

// generateExits draws the entrance and exit columns independently; they may
// coincide.
func (m *Maze) generateExits(ctx context.Context) error {
	m.setPhase(PhaseOpeningExits)
	width, height := m.grid.Width(), m.grid.Height()

	entrance := Coord(m.rand.IntN(width), 0)
	e := m.grid.edit()
	e.setWall(entrance, Up, false)
	if err := m.step(ctx, e.done()); err != nil {
		return err
	}

	exit := Coord(m.rand.IntN(width), height-1)
	e = m.grid.edit()
	e.setWall(exit, Down, false)
	if err := m.step(ctx, e.done()); err != nil {
		return err
	}

	m.log.WithFields(logrus.Fields{
		"entrance": entrance,
		"exit":     exit,
	}).Debug("exits opened")
	return nil
}

func isEntrance(c Cell) bool {
	return c.Bordered[Up] && !c.Walls[Up]
}

func isExit(c Cell) bool {
	return c.Bordered[Down] && !c.Walls[Down]
}
