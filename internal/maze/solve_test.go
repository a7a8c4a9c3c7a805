package maze

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firstChoice makes IntN over a power of two return 0, so the solver always
// takes the first remaining move in Up, Down, Left, Right order.
type firstChoice struct{}

func (firstChoice) Uint64() uint64 { return 0 }

// newSpurMaze builds this 3x2 maze. The solver first walks the dead-end spur
// (0,0) -> (0,1) -> (1,1), then the path (0,0) -> (1,0) -> (2,0) -> (2,1).
//
//	+   +---+---+
//	|           |
//	+   +---+   +
//	|       |   |
//	+---+---+   +
func newSpurMaze(t *testing.T) *Maze {
	t.Helper()

	g, err := NewGrid(3, 2)
	require.NoError(t, err)
	open := []struct {
		c Coordinate
		d Direction
	}{
		{Coord(0, 0), Up},
		{Coord(0, 0), Down},
		{Coord(0, 1), Right},
		{Coord(0, 0), Right},
		{Coord(1, 0), Right},
		{Coord(2, 0), Down},
		{Coord(2, 1), Down},
	}
	for _, o := range open {
		g, err = g.WithWall(o.c, o.d, false)
		require.NoError(t, err)
	}
	require.NoError(t, g.CheckWalls())

	m, err := New(3, 2, Options{
		Rand:  rand.New(firstChoice{}),
		Delay: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	m.grid = g
	m.state = newState(&Snapshot{Phase: PhaseIdle, Grid: g})
	return m
}

// recordSolve solves m and returns every snapshot published along the way.
func recordSolve(t *testing.T, m *Maze) []*Snapshot {
	t.Helper()

	sub := m.State().Subscribe()
	done := make(chan []*Snapshot)
	go func() {
		var snaps []*Snapshot
		for snap := range sub.Updates() {
			snaps = append(snaps, snap)
		}
		done <- snaps
	}()

	require.NoError(t, m.Solve(context.Background()))
	m.State().Close()

	snaps := <-done
	// the phase change and the visited reset are published without a pause
	// and may coalesce; every later one is followed by a pause
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Seq > 3 {
			require.Equal(t, snaps[i-1].Seq+1, snaps[i].Seq, "snapshots coalesced")
		}
	}
	return snaps
}

func firstWithBacktracks(t *testing.T, snaps []*Snapshot, n int) int {
	t.Helper()
	for i, snap := range snaps {
		if snap.Stats.Backtracks == n {
			require.Less(t, i+1, len(snaps))
			return i
		}
	}
	t.Fatalf("no snapshot with %d backtracks", n)
	return -1
}

func connections(snap *Snapshot, c Coordinate) ConnectionSet {
	return snap.Grid.cell(c).Connections
}

func TestSolveBacktrackProtocol(t *testing.T) {
	const (
		n = ConnectionNone
		r = ConnectionRight
		w = ConnectionWrong
	)
	snaps := recordSolve(t, newSpurMaze(t))

	// (1,1) is entered with no moves left at (0,1), so it starts its own
	// trail and only its own sides are abandoned.
	i := firstWithBacktracks(t, snaps, 1)
	abandoned := snaps[i]
	assert.Equal(t, ConnectionSet{n, n, w, n}, connections(abandoned, Coord(1, 1)))
	assert.Equal(t, ConnectionSet{r, n, n, r}, connections(abandoned, Coord(0, 1)))
	assert.Equal(t, ConnectionSet{r, r, n, n}, connections(abandoned, Coord(0, 0)))

	repaired := snaps[i+1]
	assert.Equal(t, 1, repaired.Stats.Backtracks)
	assert.Equal(t, ConnectionSet{r, n, n, r}, connections(repaired, Coord(0, 1)))

	// (0,1) was entered while one move remained at (0,0), so it shares the
	// entrance's trail and both cells are abandoned together.
	i = firstWithBacktracks(t, snaps, 2)
	abandoned = snaps[i]
	assert.Equal(t, ConnectionSet{w, w, n, n}, connections(abandoned, Coord(0, 0)))
	assert.Equal(t, ConnectionSet{w, n, n, w}, connections(abandoned, Coord(0, 1)))
	assert.Equal(t, ConnectionSet{n, n, w, n}, connections(abandoned, Coord(1, 1)))
	assert.Equal(t, ConnectionSet{}, connections(abandoned, Coord(1, 0)))

	// the repair restores every side of (0,0) except the one just tried
	repaired = snaps[i+1]
	assert.Equal(t, 2, repaired.Stats.Backtracks)
	assert.Equal(t, ConnectionSet{r, w, n, n}, connections(repaired, Coord(0, 0)))
	assert.Equal(t, ConnectionSet{w, n, n, w}, connections(repaired, Coord(0, 1)))

	final := snaps[len(snaps)-1]
	assert.Equal(t, PhaseSolved, final.Phase)
	assert.Equal(t, 2, final.Stats.Backtracks)
	assert.Equal(t, 6, final.Stats.CellsExplored)
	assert.Equal(t, 4, assertSolved(t, final.Grid))
	assert.Equal(t, ConnectionSet{r, w, n, r}, connections(final, Coord(0, 0)))
	for _, c := range []Coordinate{Coord(0, 1), Coord(1, 1)} {
		assert.False(t, connections(final, c).has(r), "spur cell %s", c)
	}
}

func TestDimensionsDuringRun(t *testing.T) {
	m, err := New(8, 6, Options{Rand: rand.New(rand.NewPCG(3, 2))})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, m.Run(context.Background(), Coord(0, 0)))
	}()
	for range 100 {
		assert.Equal(t, 8, m.Width())
		assert.Equal(t, 6, m.Height())
	}
	wg.Wait()
}
