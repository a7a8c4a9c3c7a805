package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/maze-server/internal/maze"
)

type Params struct {
	Width, Height int
	// Delay is the pause between animation steps. Zero selects the
	// manager's default.
	Delay time.Duration
	Start maze.Coordinate
	// Seed makes the run reproducible. Nil picks a random seed, which is
	// then reported by [Session.Seed].
	Seed *uint64
}

// Session is one maze and the goroutine driving it.
type Session struct {
	ID        uuid.UUID
	Maze      *maze.Maze
	CreatedAt time.Time

	params Params
	seed   uint64
	log    logrus.FieldLogger
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	err        error
	finishedAt time.Time
}

func (s *Session) Params() Params { return s.params }
func (s *Session) Seed() uint64   { return s.seed }

func (s *Session) Snapshot() *maze.Snapshot {
	return s.Maze.State().Load()
}

// Done is closed once the run has finished, successfully or not.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the run's error once Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) FinishedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt, !s.finishedAt.IsZero()
}

// Cancel stops the run at its next suspension point.
func (s *Session) Cancel() {
	s.cancel()
}

func (s *Session) finish(err error, at time.Time) {
	s.mu.Lock()
	s.err = err
	s.finishedAt = at
	s.mu.Unlock()
	s.Maze.State().Close()
	close(s.done)
}

// Result summarizes a finished run for a [Recorder].
type Result struct {
	SessionID uuid.UUID
	Width     int
	Height    int
	Seed      uint64
	Phase     maze.Phase
	Stats     maze.Stats
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

func (s *Session) result() Result {
	snap := s.Snapshot()
	r := Result{
		SessionID: s.ID,
		Width:     s.params.Width,
		Height:    s.params.Height,
		Seed:      s.seed,
		Phase:     snap.Phase,
		Stats:     snap.Stats,
		StartedAt: s.CreatedAt,
	}
	r.EndedAt, _ = s.FinishedAt()
	if err := s.Err(); err != nil {
		r.Error = err.Error()
	}
	return r
}
