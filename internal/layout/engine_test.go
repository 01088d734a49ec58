package layout

import (
	"testing"

	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/txn"
)

type fakeConfigurer struct {
	next txn.Serial
}

func (f *fakeConfigurer) Configure(w core.WindowId, rect core.Rect) txn.Serial {
	f.next++
	return f.next
}

func TestBuildRequestAllocatesFreshIdPerOutput(t *testing.T) {
	alloc := &core.Allocators{}
	windows := core.NewWindowRegistry()
	txEngine := txn.NewEngine(alloc, func(fn func()) { fn() })
	e := NewEngine(windows, alloc, txEngine)

	out := &core.Output{Name: "DP-1", Mode: core.Mode{Width: 1920, Height: 1080}}
	r1 := e.BuildRequest(out, nil, nil)
	r2 := e.BuildRequest(out, nil, nil)

	if r1.RequestId == r2.RequestId {
		t.Fatal("expected distinct request ids across two builds")
	}
	if r2.RequestId != e.lastRequestId["DP-1"] {
		t.Fatal("expected lastRequestId to track the most recent build")
	}
}

func TestApplyDiscardsStaleResponse(t *testing.T) {
	alloc := &core.Allocators{}
	windows := core.NewWindowRegistry()
	txEngine := txn.NewEngine(alloc, func(fn func()) { fn() })
	e := NewEngine(windows, alloc, txEngine)

	out := &core.Output{Name: "DP-1", Mode: core.Mode{Width: 1000, Height: 1000}}
	e.BuildRequest(out, nil, nil) // id 1, now stale
	_ = e.BuildRequest(out, nil, nil) // id 2, current

	cfg := &fakeConfigurer{}
	applied := false
	ok := e.Apply(Response{RequestId: 1, OutputName: "DP-1", Tree: masterStackTree()}, nil, out.UsableRect(), cfg, func(map[core.WindowId]core.Rect) { applied = true })
	if ok {
		t.Fatal("stale response (id 1) should have been discarded")
	}
	if applied {
		t.Fatal("stale response must not trigger apply")
	}
}

func TestApplyCurrentResponseConfiguresChangedWindows(t *testing.T) {
	alloc := &core.Allocators{}
	windows := core.NewWindowRegistry()
	w1 := &core.Window{Role: core.RoleToplevel}
	w2 := &core.Window{Role: core.RoleToplevel}
	id1 := windows.Add(alloc, w1)
	id2 := windows.Add(alloc, w2)

	txEngine := txn.NewEngine(alloc, func(fn func()) { fn() })
	e := NewEngine(windows, alloc, txEngine)

	out := &core.Output{Name: "DP-1", Mode: core.Mode{Width: 1920, Height: 1080}}
	req := e.BuildRequest(out, nil, []core.WindowId{id1, id2})

	cfg := &fakeConfigurer{}
	serials := make(map[core.WindowId]txn.Serial)
	recording := configurerFunc(func(w core.WindowId, r core.Rect) txn.Serial {
		serials[w] = cfg.Configure(w, r)
		return serials[w]
	})
	var appliedRects map[core.WindowId]core.Rect
	ok := e.Apply(Response{RequestId: req.RequestId, OutputName: "DP-1", Tree: masterStackTree()}, []core.WindowId{id1, id2}, out.UsableRect(), recording, func(r map[core.WindowId]core.Rect) { appliedRects = r })

	// the layout commits once every configured window has acked its serial
	for id, serial := range serials {
		txEngine.Resolve(id, serial)
	}

	if !ok {
		t.Fatal("current response should apply")
	}
	if len(appliedRects) != 2 {
		t.Fatalf("expected 2 windows configured, got %d", len(appliedRects))
	}
	got1, _ := windows.Get(id1)
	if got1.Committed.Width != 960 {
		t.Fatalf("expected window 1 committed width 960, got %d", got1.Committed.Width)
	}
}

func TestApplyNoopWhenGeometryUnchanged(t *testing.T) {
	alloc := &core.Allocators{}
	windows := core.NewWindowRegistry()
	rect := core.Rect{Width: 960, Height: 1080}
	w1 := &core.Window{Role: core.RoleToplevel, Committed: rect, Requested: rect}
	id1 := windows.Add(alloc, w1)

	txEngine := txn.NewEngine(alloc, func(fn func()) { fn() })
	e := NewEngine(windows, alloc, txEngine)

	out := &core.Output{Name: "DP-1", Mode: core.Mode{Width: 1920, Height: 1080}}
	req := e.BuildRequest(out, nil, []core.WindowId{id1})

	// single-leaf tree: area itself becomes the leaf's rect, so feeding an
	// area equal to the window's existing committed rect reproduces it.
	tree := &Tree{Root: &Node{Label: "only", Style: Style{FlexBasis: 1}}}

	cfg := &fakeConfigurer{}
	configureCalls := 0
	wrapped := configurerFunc(func(w core.WindowId, r core.Rect) txn.Serial {
		configureCalls++
		return cfg.Configure(w, r)
	})

	// area matches existing committed rect exactly so Solve reproduces it.
	area := core.Rect{Width: 960, Height: 1080}
	e.Apply(Response{RequestId: req.RequestId, OutputName: "DP-1", Tree: tree}, []core.WindowId{id1}, area, wrapped, func(map[core.WindowId]core.Rect) {})

	if configureCalls != 0 {
		t.Fatalf("expected no configure calls when geometry is unchanged, got %d", configureCalls)
	}
}

type configurerFunc func(core.WindowId, core.Rect) txn.Serial

func (f configurerFunc) Configure(w core.WindowId, r core.Rect) txn.Serial { return f(w, r) }
