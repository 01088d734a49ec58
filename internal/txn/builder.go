package txn

import (
	"time"

	"github.com/bnema/pinnacle/internal/core"
)

// Builder accumulates expected serials as a caller configures each
// participant, per spec.md §4.5 step 1.
type Builder struct {
	entries  map[core.WindowId]*entry
	deadline time.Duration
}

// NewBuilder starts a fresh transaction builder with the default deadline.
func NewBuilder() *Builder {
	return &Builder{
		entries:  make(map[core.WindowId]*entry),
		deadline: DefaultDeadline,
	}
}

// WithDeadline overrides the default 150ms deadline. The layout Engine does
// not call it; its transactions use the default.
func (b *Builder) WithDeadline(d time.Duration) *Builder {
	b.deadline = d
	return b
}

// Expect registers that w must ack serial before this transaction resolves
// its entry.
func (b *Builder) Expect(w core.WindowId, serial Serial) *Builder {
	b.entries[w] = &entry{expected: serial}
	return b
}

// Empty reports whether no participants were ever registered — callers
// should skip building a transaction entirely in that case (a layout
// response touching no window geometry completes trivially).
func (b *Builder) Empty() bool {
	return len(b.entries) == 0
}
