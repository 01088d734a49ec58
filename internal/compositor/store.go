// Package compositor implements the State Store & Event Loop from
// spec.md §4.1: the single goroutine that owns every registry and engine,
// reachable only through posted closures.
package compositor

import (
	"github.com/bnema/pinnacle/internal/controlplane"
	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/input"
	"github.com/bnema/pinnacle/internal/layout"
	"github.com/bnema/pinnacle/internal/signal"
	"github.com/bnema/pinnacle/internal/txn"
	"github.com/bnema/pinnacle/internal/wire"
)

// State is the single owner of compositor state, per spec.md §4.1. Every
// field is only ever touched from the goroutine running Loop.Run; external
// code reaches it exclusively by posting a closure through Loop.Post.
type State struct {
	Alloc   *core.Allocators
	Windows *core.WindowRegistry
	Outputs *core.OutputRegistry
	Tags    *core.TagRegistry
	Rules   *core.RuleEngine

	Txns    *txn.Engine
	Layout  *layout.Engine
	Serials txn.SerialAllocator

	Binds      *input.BindStore
	Dispatcher *input.Dispatcher

	Signals *signal.Bus

	Workspaces *wire.WorkspaceManager
	OutputMgmt *wire.OutputManager

	Router *controlplane.Router

	// quitRequested, once set, is read by cmd/run.go after Loop.Run returns to pick
	// the process exit code, per spec.md §9's "Exit codes: 0 normal
	// shutdown, non-zero on irrecoverable init failure."
	quitRequested bool
}

// NewState wires every registry and engine together, per SPEC_FULL.md
// §5.2-5.10: "implemented per spec.md §4.2-§4.10 verbatim." post is the
// closure-posting primitive the Loop exposes; it is threaded into every
// engine that needs to hop work back onto the state goroutine.
func NewState(post func(func())) *State {
	alloc := &core.Allocators{}
	windows := core.NewWindowRegistry()
	outputs := core.NewOutputRegistry()
	tags := core.NewTagRegistry()
	rules := core.NewRuleEngine()

	txns := txn.NewEngine(alloc, post)
	lay := layout.NewEngine(windows, alloc, txns)

	binds := input.NewBindStore()
	dispatcher := input.NewDispatcher(binds)

	signals := signal.NewBus()

	workspaceEmit := &noopWorkspaceEmitter{}
	outputEmit := &noopOutputEmitter{}

	return &State{
		Alloc:      alloc,
		Windows:    windows,
		Outputs:    outputs,
		Tags:       tags,
		Rules:      rules,
		Txns:       txns,
		Layout:     lay,
		Binds:      binds,
		Dispatcher: dispatcher,
		Signals:    signals,
		Workspaces: wire.NewWorkspaceManager(workspaceEmit),
		OutputMgmt: wire.NewOutputManager(outputs, outputEmit),
	}
}

// noopWorkspaceEmitter and noopOutputEmitter stand in for the real
// ext-workspace-v1/wlr-output-management-v1 wire objects (internal/wire's
// out-of-scope boundary) until a rendering backend wires a real one in;
// State can run headless (e.g. under the debug TUI against a fresh
// compositor) without a wire server attached.
type noopWorkspaceEmitter struct{}

func (noopWorkspaceEmitter) WorkspaceAdded(wire.ManagerId, core.TagId, string)   {}
func (noopWorkspaceEmitter) WorkspaceState(wire.ManagerId, core.TagId, bool)    {}
func (noopWorkspaceEmitter) WorkspaceRemoved(wire.ManagerId, core.TagId)        {}
func (noopWorkspaceEmitter) GroupAdded(wire.ManagerId, string)                  {}
func (noopWorkspaceEmitter) GroupRemoved(wire.ManagerId, string)                {}
func (noopWorkspaceEmitter) WorkspaceEnter(wire.ManagerId, string, core.TagId)  {}
func (noopWorkspaceEmitter) WorkspaceLeave(wire.ManagerId, string, core.TagId)  {}
func (noopWorkspaceEmitter) Done(wire.ManagerId)                               {}

type noopOutputEmitter struct{}

func (noopOutputEmitter) HeadAdded(wire.HeadView)   {}
func (noopOutputEmitter) HeadChanged(wire.HeadView) {}
func (noopOutputEmitter) HeadRemoved(string)        {}
func (noopOutputEmitter) Done(uint32)               {}

// tagOps adapts core.TagRegistry to wire.WorkspaceOps so WorkspaceManager's
// Commit can drive tag activation directly, without wire depending on core's
// full registry surface.
type tagOps struct {
	tags    *core.TagRegistry
	outputs *core.OutputRegistry
}

func (o tagOps) ActivateTag(id core.TagId) error   { return o.tags.SetActive(id, true) }
func (o tagOps) DeactivateTag(id core.TagId) error { return o.tags.SetActive(id, false) }
func (o tagOps) RemoveTag(id core.TagId) error {
	o.tags.Remove([]core.TagId{id}, o.outputs)
	return nil
}

// TagOps returns the wire.WorkspaceOps adapter bound to this State's
// registries.
func (s *State) TagOps() wire.WorkspaceOps {
	return tagOps{tags: s.Tags, outputs: s.Outputs}
}

// RequestQuit marks the loop for shutdown; cmd/run.go's top-level Loop.Run
// caller checks this after the run context is cancelled to decide whether
// the exit was a normal quit or something else.
func (s *State) RequestQuit() { s.quitRequested = true }

// QuitRequested reports whether RequestQuit was ever called.
func (s *State) QuitRequested() bool { return s.quitRequested }

// clearForReload implements spec.md §9's reload/crash recovery step
// "clears window rules / bind store / signal subscribers" and resets the
// id allocators, per spec.md §3 "after a configuration reload, all
// identifiers reset to zero."
func (s *State) clearForReload() {
	s.Rules.SetRules(nil)
	s.Binds.Clear()
	s.Signals.Clear()
	s.Alloc.ResetAll()
}
