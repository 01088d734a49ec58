// Package surface names the inbound/outbound halves of the wire boundary
// spec.md §1 scopes out of this repo: the real xdg-shell/xdg-popup/
// override-redirect wire objects backing a mapped core.Window. Like
// core.Closer and layout.Configurer, both capabilities are modeled as Go
// interfaces only — a real backend implements them, this repo only defines
// the seam and drives it from the compositor orchestration layer.
package surface

import (
	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/txn"
)

// Role is the protocol role a mapped window's underlying wire object
// plays. The compositor core never needs more than this from it: deliver a
// configure, return the serial the client must ack.
type Role interface {
	SendConfigure(rect core.Rect, serial txn.Serial) error
}

// ConfigureSink is the inbound half of the same boundary: whatever drives
// a Role's client-commit handling calls back into this the moment it
// learns a configure serial was acked, or that the surface unmapped out
// from under a pending transaction (spec.md §4.5's "Safety" clause). This
// is the only path by which an ack ever reaches the Transaction Engine.
type ConfigureSink interface {
	// AckConfigure reports w's client committed at acked, returning
	// whether this ack completed the window's pending transaction.
	AckConfigure(w core.WindowId, acked txn.Serial) bool
	// Unmap reports w's surface unmapped, releasing any pending
	// transaction entry it held.
	Unmap(w core.WindowId)
}
