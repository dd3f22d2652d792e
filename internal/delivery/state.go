package delivery

import (
	"slices"
	"sync"
)

// State is the connectivity flag and the pending buffer. Both live under one
// mutex so "connected and nothing pending" is read atomically.
type State struct {
	mu        sync.Mutex
	connected bool
	pending   []PendingRequest

	onChange func(connected bool, cause string)
}

// NewState returns a state with the given initial connectivity.
func NewState(connected bool) *State {
	return &State{connected: connected}
}

// OnChange registers fn to be called after every connectivity flip. fn runs
// outside the lock on the goroutine that caused the flip.
func (s *State) OnChange(fn func(connected bool, cause string)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *State) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// SetConnected records the destination as reachable or not and reports
// whether the value changed.
func (s *State) SetConnected(v bool, cause string) bool {
	s.mu.Lock()
	changed := s.connected != v
	s.connected = v
	fn := s.onChange
	s.mu.Unlock()

	if changed && fn != nil {
		fn(v, cause)
	}
	return changed
}

// AppendIfDisconnected buffers req only if the destination is currently
// judged unreachable. It returns the new buffer depth.
func (s *State) AppendIfDisconnected(req PendingRequest) (depth int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return len(s.pending), false
	}
	s.pending = append(s.pending, req)
	return len(s.pending), true
}

// DrainAll empties the buffer and returns its items ordered by ReceivedAt.
// Items with equal timestamps keep insertion order.
func (s *State) DrainAll() []PendingRequest {
	s.mu.Lock()
	items := s.pending
	s.pending = nil
	s.mu.Unlock()

	sortByReceipt(items)
	return items
}

// PushFront puts items back ahead of anything buffered since the drain.
func (s *State) PushFront(items []PendingRequest) {
	if len(items) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make([]PendingRequest, 0, len(items)+len(s.pending))
	merged = append(merged, items...)
	merged = append(merged, s.pending...)
	s.pending = merged
}

func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Idle reports connected with nothing pending; the prober skips its check
// in that case.
func (s *State) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected && len(s.pending) == 0
}

// Snapshot returns a copy of the buffer in its current order.
func (s *State) Snapshot() []PendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pending)
}

func sortByReceipt(items []PendingRequest) {
	slices.SortStableFunc(items, func(a, b PendingRequest) int {
		return a.ReceivedAt.Compare(b.ReceivedAt)
	})
}
