// Package signal implements the Signal Bus from spec.md §4.9: a
// process-wide broadcast registry fanning state-change events out to
// control-plane subscriber streams.
package signal

import (
	"sync"
	"sync/atomic"

	"github.com/bnema/pinnacle/internal/core"
)

// Kind enumerates every signal the compositor can emit, per spec.md §4.9.
type Kind int

const (
	WindowOpened Kind = iota
	WindowClosed
	WindowFocused
	TagActiveChanged
	OutputConnected
	OutputDisconnected
	OutputResized
	LayoutNeeded
	InputDeviceAdded
	InputDeviceRemoved
)

// Message is one emitted event: its kind plus an opaque payload the caller
// defines per kind (e.g. a WindowId for WindowOpened, a struct for
// TagActiveChanged).
type Message struct {
	Kind    Kind
	Payload interface{}
}

// TagActiveChange is TagActiveChanged's payload: which tag flipped, and to
// what value.
type TagActiveChange struct {
	Tag    core.TagId
	Active bool
}

// Subscription is a single control-plane stream endpoint installed on one
// signal kind. Grounded on the teacher's `logger.SetUINotifier`/
// `SetLogForwarder` single-callback pattern (internal/logger/logger.go),
// generalized here to an ordered list of removable, channel-backed
// subscribers instead of one global callback slot.
type Subscription struct {
	ch     chan Message
	closed atomic.Bool
}

// C returns the receive side of the subscription's channel.
func (s *Subscription) C() <-chan Message { return s.ch }

// Close marks the subscription closed and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// IsClosed reports whether Close has been called.
func (s *Subscription) IsClosed() bool { return s.closed.Load() }

// DefaultBufferSize matches spec.md §5's recommended outbound stream bound.
const DefaultBufferSize = 64

// Bus is the process-wide signal registry. Must only be driven from the
// state-loop goroutine (emissions happen synchronously with state
// mutations, per spec.md §5's "a signal emission happens-before any
// follow-on RPC... as observed by the same control-plane client").
type Bus struct {
	mu    sync.Mutex
	subs  map[Kind][]*Subscription
	last  map[Kind]Message
	haveLast map[Kind]bool
}

// levelDriven marks the signal kinds that replay their last value to a
// freshly-opened subscriber, per spec.md §4.9 ("a late subscriber to
// tag.active receives the current value before any future transitions").
var levelDriven = map[Kind]bool{
	TagActiveChanged: true,
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{
		subs:     make(map[Kind][]*Subscription),
		last:     make(map[Kind]Message),
		haveLast: make(map[Kind]bool),
	}
}

// Subscribe installs a new stream endpoint for kind, appending it to the
// ordered subscriber list. If kind is level-driven and a value has already
// been emitted, that value is delivered immediately (buffered, so it never
// blocks the caller).
func (b *Bus) Subscribe(kind Kind) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{ch: make(chan Message, DefaultBufferSize)}
	b.subs[kind] = append(b.subs[kind], sub)

	if levelDriven[kind] && b.haveLast[kind] {
		sub.ch <- b.last[kind]
	}
	return sub
}

// Emit copies msg to every live subscriber of its kind, in subscription
// order, pruning any subscriber whose endpoint has been closed. Delivery is
// non-blocking: a subscriber whose buffer is full has its excess dropped
// rather than stalling the emitter, per spec.md §5's backpressure rule.
func (b *Bus) Emit(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if levelDriven[msg.Kind] {
		b.last[msg.Kind] = msg
		b.haveLast[msg.Kind] = true
	}

	subs := b.subs[msg.Kind]
	live := subs[:0]
	for _, sub := range subs {
		if sub.IsClosed() {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
		}
		live = append(live, sub)
	}
	b.subs[msg.Kind] = live
}

// SubscriberCount reports how many live subscribers a kind currently has,
// mainly for diagnostics and tests.
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, sub := range b.subs[kind] {
		if !sub.IsClosed() {
			n++
		}
	}
	return n
}

// Clear removes every subscriber and forgets every level-driven value, for
// a configuration reload (spec.md §9's "clear... signal subscribers").
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.Close()
		}
	}
	b.subs = make(map[Kind][]*Subscription)
	b.last = make(map[Kind]Message)
	b.haveLast = make(map[Kind]bool)
}
