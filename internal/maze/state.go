package maze

import (
	"sync"
	"sync/atomic"
)

type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseFilling      Phase = "filling"
	PhaseGenerating   Phase = "generating"
	PhaseOpeningExits Phase = "opening_exits"
	PhaseSolving      Phase = "solving"
	PhaseSolved       Phase = "solved"
	PhaseCancelled    Phase = "cancelled"
	PhaseFailed       Phase = "failed"
)

// Done reports whether no further snapshots follow a snapshot in this phase.
func (p Phase) Done() bool {
	return p == PhaseSolved || p == PhaseCancelled || p == PhaseFailed
}

type Stats struct {
	Steps         int `json:"steps"`
	WallsRemoved  int `json:"walls_removed"`
	CellsExplored int `json:"cells_explored"`
	Backtracks    int `json:"backtracks"`
	PathLength    int `json:"path_length"`
}

// Snapshot is one published state of a maze. Nothing reachable from a
// Snapshot is ever modified after it has been published.
type Snapshot struct {
	Seq   uint64 `json:"seq"`
	Phase Phase  `json:"phase"`
	Stats Stats  `json:"stats"`
	Grid  *Grid  `json:"grid"`
}

// State is the single current-state slot of a maze. One writer publishes,
// any number of readers call Load or Subscribe.
type State struct {
	current atomic.Pointer[Snapshot]

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func newState(initial *Snapshot) *State {
	s := &State{subs: make(map[*Subscription]struct{})}
	s.current.Store(initial)
	return s
}

func (s *State) Load() *Snapshot {
	return s.current.Load()
}

func (s *State) publish(phase Phase, grid *Grid, stats Stats) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		Seq:   s.current.Load().Seq + 1,
		Phase: phase,
		Stats: stats,
		Grid:  grid,
	}
	s.current.Store(snap)
	for sub := range s.subs {
		sub.offer(snap)
	}
	return snap
}

// Subscribe returns a subscription that immediately holds the current
// snapshot. Subscribing to a closed State yields the final snapshot followed
// by a closed channel.
func (s *State) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{state: s, ch: make(chan *Snapshot, 1)}
	sub.ch <- s.current.Load()
	if s.closed {
		close(sub.ch)
		return sub
	}
	s.subs[sub] = struct{}{}
	return sub
}

// Close ends every subscription. Load keeps returning the last snapshot.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		close(sub.ch)
	}
	clear(s.subs)
}

func (s *State) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub]; ok {
		delete(s.subs, sub)
		close(sub.ch)
	}
}

// Subscription delivers snapshots with latest-value semantics: a reader that
// falls behind skips straight to the newest snapshot. Sequence numbers seen
// through one subscription are strictly increasing.
type Subscription struct {
	state *State
	ch    chan *Snapshot
}

func (sub *Subscription) Updates() <-chan *Snapshot {
	return sub.ch
}

func (sub *Subscription) Close() {
	sub.state.unsubscribe(sub)
}

// offer replaces any undelivered snapshot. Callers hold state.mu, so the
// channel is empty after the drain and the send never blocks.
func (sub *Subscription) offer(snap *Snapshot) {
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- snap:
	default:
	}
}
