package maze

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type Options struct {
	// Rand drives every random choice. A nil Rand is seeded from the
	// runtime's global source.
	Rand *rand.Rand
	// Delay is the pause after each suspension point. Zero disables pacing.
	Delay time.Duration
	// Logger defaults to [Log].
	Logger logrus.FieldLogger
}

// Maze owns one grid and the single writer that mutates it. Operations must
// not overlap; a second concurrent call fails with [ErrBusy].
type Maze struct {
	width  int
	height int

	grid  *Grid
	phase Phase
	stats Stats
	state *State

	rand  *rand.Rand
	delay time.Duration
	log   logrus.FieldLogger
	busy  atomic.Bool
}

func New(width, height int, opts Options) (*Maze, error) {
	grid, err := NewGrid(width, height)
	if err != nil {
		return nil, err
	}
	m := &Maze{
		width:  width,
		height: height,
		grid:   grid,
		phase:  PhaseIdle,
		rand:   opts.Rand,
		delay:  opts.Delay,
		log:    opts.Logger,
	}
	if m.rand == nil {
		m.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if m.log == nil {
		m.log = Log
	}
	m.state = newState(&Snapshot{Phase: PhaseIdle, Grid: grid})
	return m, nil
}

// Width and Height are fixed at construction and safe to call while an
// operation runs.
func (m *Maze) Width() int  { return m.width }
func (m *Maze) Height() int { return m.height }

func (m *Maze) State() *State {
	return m.state
}

// Fill reveals the grid one row at a time.
func (m *Maze) Fill(ctx context.Context) error {
	return m.exclusive(func() error { return m.fill(ctx) })
}

// Generate carves a perfect maze starting at start.
func (m *Maze) Generate(ctx context.Context, start Coordinate) error {
	return m.exclusive(func() error { return m.generate(ctx, start) })
}

// GenerateExits opens an entrance on the top row and an exit on the bottom
// row.
func (m *Maze) GenerateExits(ctx context.Context) error {
	return m.exclusive(func() error { return m.generateExits(ctx) })
}

// Solve marks a path from the entrance to the exit.
func (m *Maze) Solve(ctx context.Context) error {
	return m.exclusive(func() error { return m.solve(ctx) })
}

// Run performs the whole sequence: fill, generate, open exits, solve. On
// failure the last snapshot is republished in the cancelled or failed phase.
func (m *Maze) Run(ctx context.Context, start Coordinate) error {
	return m.exclusive(func() error {
		err := m.run(ctx, start)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			m.setPhase(PhaseCancelled)
			m.log.WithError(err).Info("maze run cancelled")
		default:
			m.setPhase(PhaseFailed)
			m.log.WithError(err).Error("maze run failed")
		}
		return err
	})
}

func (m *Maze) run(ctx context.Context, start Coordinate) error {
	if err := m.fill(ctx); err != nil {
		return err
	}
	if err := m.generate(ctx, start); err != nil {
		return err
	}
	if err := m.grid.CheckPerfect(); err != nil {
		return fmt.Errorf("%s: %w", PhaseGenerating, err)
	}
	if err := m.generateExits(ctx); err != nil {
		return err
	}
	return m.solve(ctx)
}

func (m *Maze) exclusive(op func() error) error {
	if !m.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer m.busy.Store(false)
	return op()
}

func (m *Maze) setPhase(phase Phase) {
	m.phase = phase
	m.log.WithField("phase", phase).Debug("phase changed")
	m.publish(m.grid)
}

func (m *Maze) publish(grid *Grid) {
	m.grid = grid
	m.stats.Steps++
	m.state.publish(m.phase, grid, m.stats)
}

// step publishes grid and then suspends for the configured delay.
func (m *Maze) step(ctx context.Context, grid *Grid) error {
	m.publish(grid)
	return m.pause(ctx)
}

func (m *Maze) pause(ctx context.Context) error {
	if m.delay <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", m.phase, err)
		}
		return nil
	}
	t := time.NewTimer(m.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", m.phase, ctx.Err())
	case <-t.C:
		return nil
	}
}

func (m *Maze) fill(ctx context.Context) error {
	m.setPhase(PhaseFilling)
	for y := range m.grid.Height() {
		e := m.grid.edit()
		for x := range m.grid.Width() {
			e.cell(Coord(x, y)).Visible = true
		}
		if err := m.step(ctx, e.done()); err != nil {
			return err
		}
	}
	return nil
}
