package layout

import (
	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/txn"
)

// Configurer is the narrow capability the Engine needs from the Wayland
// wire boundary: send a configure with a new geometry to a window and
// return the serial the client must ack. Named interface only, per
// spec.md §1's rendering/wire scoping.
type Configurer interface {
	Configure(w core.WindowId, rect core.Rect) txn.Serial
}

// Engine tracks the last request id issued per output, so stale responses
// can be discarded per spec.md §4.6 step 1.
type Engine struct {
	windows *core.WindowRegistry
	alloc   *core.Allocators
	txns    *txn.Engine

	lastRequestId map[string]core.RequestId
	trees         map[string]*Tree // last-applied tree per output, for resize grabs
}

// NewEngine constructs a layout Engine bound to the given registries.
func NewEngine(windows *core.WindowRegistry, alloc *core.Allocators, txns *txn.Engine) *Engine {
	return &Engine{
		windows:       windows,
		alloc:         alloc,
		txns:          txns,
		lastRequestId: make(map[string]core.RequestId),
		trees:         make(map[string]*Tree),
	}
}

// BuildRequest allocates a fresh request id for out and returns the Request
// to send, per spec.md §4.6 "Layout request trigger." Callers are
// responsible for actually pushing it onto the bidi stream.
func (e *Engine) BuildRequest(out *core.Output, activeTags []core.TagId, visibleWindows []core.WindowId) Request {
	id := core.RequestId(e.alloc.NextRequest())
	e.lastRequestId[out.Name] = id
	usable := out.UsableRect()
	return Request{
		RequestId:  id,
		OutputName: out.Name,
		UsableSize: core.Rect{Width: usable.Width, Height: usable.Height},
		ActiveTags: activeTags,
		WindowIds:  visibleWindows,
	}
}

// Apply validates a Response against the last issued request id, solves the
// tree into rectangles, sends configures for every window whose geometry
// changed, and commits a Transaction for those configures. Once the
// transaction completes (via the Transaction Engine, on the state loop),
// the changed windows' Committed rects are set and applyFn is called with
// them; if no window changed, applyFn is called at once with an empty map.
// Returns false if the response was discarded as stale.
func (e *Engine) Apply(resp Response, visibleWindows []core.WindowId, area core.Rect, cfg Configurer, applyFn func(map[core.WindowId]core.Rect)) bool {
	last, ok := e.lastRequestId[resp.OutputName]
	if !ok || resp.RequestId != last {
		return false // stale, per spec.md §4.6 step 1
	}

	e.trees[resp.OutputName] = resp.Tree
	rects := Solve(resp.Tree, area, visibleWindows)

	b := txn.NewBuilder()
	changed := make(map[core.WindowId]core.Rect)
	for id, rect := range rects {
		w, ok := e.windows.Get(id)
		if !ok || !w.CanConfigure() {
			continue
		}
		if w.Requested == rect && w.Committed == rect {
			continue
		}
		w.Requested = rect
		serial := cfg.Configure(id, rect)
		b.Expect(id, serial)
		changed[id] = rect
	}

	if b.Empty() {
		applyFn(changed) // no-op map, but keep the commit path uniform
		return true
	}

	e.txns.Commit(b, func(*txn.Transaction) {
		for id, rect := range changed {
			if w, ok := e.windows.Get(id); ok {
				w.Committed = rect
			}
		}
		applyFn(changed)
	})
	return true
}

// TreeFor returns the last-applied layout tree for an output, used by
// resize-grab interplay to locate the ancestor split to mutate.
func (e *Engine) TreeFor(outputName string) *Tree {
	return e.trees[outputName]
}

// Discard forgets an output's layout state, e.g. on disconnect.
func (e *Engine) Discard(outputName string) {
	delete(e.lastRequestId, outputName)
	delete(e.trees, outputName)
}
