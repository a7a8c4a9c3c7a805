package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/maze-server/internal/maze"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session manager is shut down")
)

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, r Result) error
}

type Config struct {
	MaxDimension int
	DefaultDelay time.Duration
	// TTL is how long a finished session stays available before it is
	// reaped.
	TTL      time.Duration
	Recorder Recorder
	Logger   logrus.FieldLogger
}

type Manager struct {
	cfg Config
	log logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	closed   bool
}

func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		log:      cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (m *Manager) validate(p Params) error {
	if p.Width <= 0 || p.Height <= 0 ||
		(m.cfg.MaxDimension > 0 && (p.Width > m.cfg.MaxDimension || p.Height > m.cfg.MaxDimension)) {
		return fmt.Errorf("%w: %dx%d, each side must be between 1 and %d",
			maze.ErrInvalidDimensions, p.Width, p.Height, m.cfg.MaxDimension)
	}
	if p.Start.X < 0 || p.Start.X >= p.Width || p.Start.Y < 0 || p.Start.Y >= p.Height {
		return &maze.OutOfBoundsError{At: p.Start, Width: p.Width, Height: p.Height}
	}
	if p.Delay < 0 {
		return fmt.Errorf("negative delay %s", p.Delay)
	}
	return nil
}

// Start creates a maze session and runs fill, generate, open exits and
// solve in a new goroutine.
func (m *Manager) Start(p Params) (*Session, error) {
	if p.Delay == 0 {
		p.Delay = m.cfg.DefaultDelay
	}
	if err := m.validate(p); err != nil {
		return nil, err
	}

	seed := rand.Uint64()
	if p.Seed != nil {
		seed = *p.Seed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	id := uuid.New()
	for {
		if _, ok := m.sessions[id]; !ok {
			break
		}
		id = uuid.New()
	}

	log := m.log.WithField("session_id", id)
	mz, err := maze.New(p.Width, p.Height, maze.Options{
		Rand:   rand.New(rand.NewPCG(seed, seed>>32|1)),
		Delay:  p.Delay,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(m.ctx)
	s := &Session{
		ID:        id,
		Maze:      mz,
		CreatedAt: time.Now().UTC(),
		params:    p,
		seed:      seed,
		log:       log,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.sessions[id] = s

	m.wg.Add(1)
	go m.run(ctx, s)

	log.WithFields(logrus.Fields{
		"width":  p.Width,
		"height": p.Height,
		"seed":   seed,
		"delay":  p.Delay,
	}).Info("session started")
	return s, nil
}

func (m *Manager) run(ctx context.Context, s *Session) {
	defer m.wg.Done()
	defer s.cancel()

	err := s.Maze.Run(ctx, s.params.Start)
	s.finish(err, time.Now().UTC())
	s.log.WithField("phase", s.Snapshot().Phase).Debug("session finished")

	if m.cfg.Recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.cfg.Recorder.Record(rctx, s.result()); err != nil {
		s.log.WithError(err).Error("unable to record run")
	}
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) Cancel(id uuid.UUID) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.Cancel()
	s.log.Info("session cancelled")
	return nil
}

// List returns every live session, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	slices.SortFunc(sessions, func(a, b *Session) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return sessions
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap drops sessions that finished more than TTL before now and returns
// how many were dropped.
func (m *Manager) Reap(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	reaped := 0
	for id, s := range m.sessions {
		finishedAt, ok := s.FinishedAt()
		if ok && now.Sub(finishedAt) > m.cfg.TTL {
			delete(m.sessions, id)
			reaped++
		}
	}
	if reaped > 0 {
		m.log.WithField("count", reaped).Debug("reaped sessions")
	}
	return reaped
}

// Run reaps expired sessions periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	period := m.cfg.TTL / 2
	if period <= 0 {
		period = time.Minute
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			m.Reap(now.UTC())
		}
	}
}

// Shutdown cancels every running session and waits for their goroutines,
// including pending records, or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("unable to stop sessions: %w", ctx.Err())
	}
}
