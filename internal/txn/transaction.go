// Package txn implements the Transaction Engine from spec.md §4.5: a
// barrier mechanism that coordinates multi-surface atomic geometry updates
// via configure-serial tracking, so on-screen state never shows a
// half-applied layout or a torn frame.
package txn

import (
	"sync/atomic"
	"time"

	"github.com/bnema/pinnacle/internal/core"
)

// Serial is the monotonically-increasing configure-serial token the server
// issues with each configure and the client echoes on ack, per the
// GLOSSARY.
type Serial uint32

// SerialAllocator hands out fresh configure-serials. Only ever bumped from
// the state-loop goroutine.
type SerialAllocator struct {
	next atomic.Uint32
}

// Next returns a fresh serial.
func (a *SerialAllocator) Next() Serial {
	return Serial(a.next.Add(1))
}

// State is the lifecycle of a Transaction, per spec.md §4.5.
type State int

const (
	Pending State = iota
	Completing
	Completed
)

// DefaultDeadline matches spec.md §4.5's default transaction timeout.
const DefaultDeadline = 150 * time.Millisecond

// entry is one (window, expected-serial) pair plus whether it has resolved.
type entry struct {
	expected Serial
	resolved bool
	unmapped bool
}

// Transaction is the barrier object from spec.md §3/§4.5. It holds at most
// one blocker per participating client in spirit; this Go reimplementation
// tracks that via the resolved/unmapped flags on each entry rather than a
// literal per-client dmabuf-fence blocker handle (that mechanism is owned
// by the rendering backend, out of scope per spec.md §1).
type Transaction struct {
	Id core.TransactionId
	// TraceId correlates this transaction's deadline/ack log lines across
	// the window-facing and control-plane-facing halves of a commit; it
	// has no meaning to the protocol itself.
	TraceId     string
	entries     map[core.WindowId]*entry
	deadline    time.Time
	state       State
	cancelTimer func()
	onDone      func(*Transaction)
}

// Last reports whether only one entry remains unresolved — the trigger for
// immediate completion per spec.md §4.5 step 3.
func (t *Transaction) Last() bool {
	remaining := 0
	for _, e := range t.entries {
		if !e.resolved {
			remaining++
		}
	}
	return remaining == 1
}

// State returns the transaction's current lifecycle state.
func (t *Transaction) State() State { return t.state }

// Participants returns the window ids enrolled in this transaction.
func (t *Transaction) Participants() []core.WindowId {
	out := make([]core.WindowId, 0, len(t.entries))
	for w := range t.entries {
		out = append(out, w)
	}
	return out
}

// ExpectedSerial returns the serial this transaction expects for w.
func (t *Transaction) ExpectedSerial(w core.WindowId) (Serial, bool) {
	e, ok := t.entries[w]
	if !ok {
		return 0, false
	}
	return e.expected, true
}

// Satisfied reports whether, for every participant, the committed serial is
// at least the expected one, or the participant has unmapped — the
// invariant in spec.md §8.
func (t *Transaction) Satisfied(committed map[core.WindowId]Serial) bool {
	for w, e := range t.entries {
		if e.unmapped {
			continue
		}
		c, ok := committed[w]
		if !ok || c < e.expected {
			return false
		}
	}
	return true
}
