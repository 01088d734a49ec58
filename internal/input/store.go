// Package input implements the Input Dispatcher & Bind Store from spec.md
// §4.7: a modal stack of bind layers matched against keyboard/pointer
// events, with single-subscriber edge streams per bind.
package input

import (
	"fmt"
	"sync"

	"github.com/bnema/pinnacle/internal/core"
)

// Edge is one value delivered on a bind's edge stream.
type Edge int

const (
	Press Edge = iota
	Release
)

// edgeStream is the single-subscriber channel endpoint for one bind,
// grounded on the teacher's SwitchManager "one optional callback" shape
// (internal/input/switch.go's onSwitchCallback), generalized here to a
// buffered channel so control-plane streaming handlers can drain it
// asynchronously rather than being invoked inline.
type edgeStream struct {
	ch chan Edge
}

// BindStore is the registry of keybinds/mousebinds, per spec.md §4.7/§3.
// Grounded on the teacher's hotkey_capture.go modifier-bitmask constants
// (ModCtrl/ModAlt/ModShift/ModSuper), generalized to core.ModMask's
// three-valued slots.
type BindStore struct {
	mu      sync.Mutex
	binds   map[core.BindId]*core.Bind
	order   []core.BindId
	streams map[core.BindId]*edgeStream

	quit   core.BindId
	hasQuit bool
	reload  core.BindId
	hasReload bool
}

// NewBindStore constructs an empty store.
func NewBindStore() *BindStore {
	return &BindStore{
		binds:   make(map[core.BindId]*core.Bind),
		streams: make(map[core.BindId]*edgeStream),
	}
}

// Register adds a bind, assigning it a fresh id. At most one bind may carry
// Quit, and at most one ReloadConfig; registering a second of either
// replaces which bind is considered authoritative for that role (the
// configuration process is expected not to declare two, but the store does
// not itself reject it — spec.md §4.7 leaves that to the caller's
// discipline, "Exactly one bind may be flagged").
func (s *BindStore) Register(alloc *core.Allocators, b *core.Bind) core.BindId {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := alloc.NextBind()
	b.Id = id
	s.binds[id] = b
	s.order = append(s.order, id)
	if b.Quit {
		s.quit, s.hasQuit = id, true
	}
	if b.ReloadConfig {
		s.reload, s.hasReload = id, true
	}
	return id
}

// Get returns a bind by id.
func (s *BindStore) Get(id core.BindId) (*core.Bind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.binds[id]
	return b, ok
}

// All returns every registered bind in registration order.
func (s *BindStore) All() []*core.Bind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.Bind, 0, len(s.order))
	for _, id := range s.order {
		if b, ok := s.binds[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

// QuitBind returns the bind flagged Quit, if one is registered.
func (s *BindStore) QuitBind() (core.BindId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quit, s.hasQuit
}

// ReloadBind returns the bind flagged ReloadConfig, if one is registered.
func (s *BindStore) ReloadBind() (core.BindId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload, s.hasReload
}

// Clear removes every bind and stream, for a configuration reload
// (spec.md §9 "clear window rules / bind store / signal subscribers").
func (s *BindStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.streams {
		close(st.ch)
	}
	s.binds = make(map[core.BindId]*core.Bind)
	s.order = nil
	s.streams = make(map[core.BindId]*edgeStream)
	s.hasQuit, s.hasReload = false, false
}

// Subscribe opens the single-subscriber edge stream for a bind. A second
// call before Unsubscribe fails with ErrAlreadyExists, per spec.md §4.7
// "Edge streams."
func (s *BindStore) Subscribe(id core.BindId, buffer int) (<-chan Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.binds[id]; !ok {
		return nil, fmt.Errorf("bind %d: %w", id, core.ErrNotFound)
	}
	if _, ok := s.streams[id]; ok {
		return nil, fmt.Errorf("bind %d: %w", id, core.ErrAlreadyExists)
	}
	st := &edgeStream{ch: make(chan Edge, buffer)}
	s.streams[id] = st
	return st.ch, nil
}

// Unsubscribe closes and removes a bind's edge stream, if one is open.
func (s *BindStore) Unsubscribe(id core.BindId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.streams[id]; ok {
		close(st.ch)
		delete(s.streams, id)
	}
}

// emit delivers an edge to a bind's stream, if subscribed. Non-blocking: a
// full buffer drops the edge rather than stalling the dispatcher, matching
// spec.md §5's "no backpressure flows back into compositor state."
func (s *BindStore) emit(id core.BindId, e Edge) {
	s.mu.Lock()
	st, ok := s.streams[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case st.ch <- e:
	default:
	}
}
