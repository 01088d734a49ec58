package compositor

import (
	"fmt"

	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/logger"
	"github.com/bnema/pinnacle/internal/signal"
	"github.com/bnema/pinnacle/internal/surface"
	"github.com/bnema/pinnacle/internal/txn"
)

// MapWindow implements the production add path from spec.md §4.2: "On every
// add, the Window Rule Engine is consulted." It allocates the window's id,
// applies the accumulated rule effect, repairs its tag set against out if
// the rules (or the client) left it untagged, emits window.opened, and
// re-requests layout for out since its visible set just changed.
func (s *State) MapWindow(w *core.Window, out *core.Output) core.WindowId {
	eff := s.Rules.Apply(w, out.Name)
	if eff.OutputName != nil {
		if target, ok := s.Outputs.Get(*eff.OutputName); ok {
			out = target
		}
	}
	id := s.Windows.Add(s.Alloc, w)
	core.ApplyEffect(w, eff)
	_ = s.Windows.SetTags(id, w.Tags, out, s.Tags)

	s.Signals.Emit(signal.Message{Kind: signal.WindowOpened, Payload: id})
	s.requestLayoutFor(out)
	return id
}

// UnmapWindow implements spec.md §4.2's remove path: release any pending
// transaction entry the window held (spec.md §4.5 "Safety"), remove it from
// every registry, emit window.closed, and re-request layout for the output
// it was visible on, if any.
func (s *State) UnmapWindow(id core.WindowId) {
	out, hadOutput := outputForWindow(s, id)

	s.Txns.Unmap(id)
	s.Windows.Remove(id)
	s.Signals.Emit(signal.Message{Kind: signal.WindowClosed, Payload: id})

	if hadOutput {
		s.requestLayoutFor(out)
	}
}

// DisconnectOutput implements spec.md §4.3's remove(): redistributes the
// output's visible windows onto the focused remaining enabled output
// (appending its active tags, per spec.md §8 scenario 4's "both windows end
// up visible on B with B's active tag appended to their tag sets"),
// persists the output's tag names for reconnection, fires
// output.disconnected, and republishes both external protocol adapters.
//
// Windows whose rule pinned them to the departing output are not tracked
// separately from an ordinary tag assignment (core.Window has no persisted
// "pinned output" field distinct from its tags), so every window visible on
// name redistributes; see DESIGN.md.
func (s *State) DisconnectOutput(name string) error {
	out, ok := s.Outputs.Get(name)
	if !ok {
		return fmt.Errorf("output %q: %w", name, core.ErrNotFound)
	}

	var visible []core.WindowId
	for _, w := range s.Windows.All() {
		if core.Visible(w, out, s.Tags) {
			visible = append(visible, w.Id)
		}
	}
	tagNames := s.Tags.NamesFor(out.Tags)

	s.Outputs.Remove(name)
	s.Outputs.PersistTags(name, tagNames)
	s.Layout.Discard(name)

	if target, ok := s.Outputs.Focused(); ok {
		active := s.Tags.ActiveOn(target.Name)
		for _, id := range visible {
			win, ok := s.Windows.Get(id)
			if !ok {
				continue
			}
			for _, t := range active {
				win.AddTag(t)
			}
		}
		s.requestLayoutFor(target)
	} else {
		logger.Warnf("output %q disconnected with no remaining enabled output to reassign its windows to", name)
	}

	s.Signals.Emit(signal.Message{Kind: signal.OutputDisconnected, Payload: name})
	s.refreshWire()
	return nil
}

// requestLayoutFor computes out's currently-visible window set and pushes a
// fresh layout.Request over the Layout Protocol's bidi stream, per spec.md
// §4.6 "Layout request trigger": every mutation that can change a tag's
// visible set re-enters here. The request is built and a layout.needed
// signal emitted even without a Router: a nil Router or Layout service
// returns silently, and an unopened Layout stream (e.g. before a
// configuration process has dialed in) is logged from Send's error; neither
// is treated as fatal.
func (s *State) requestLayoutFor(out *core.Output) {
	if out == nil {
		return
	}
	var visible []core.WindowId
	for _, w := range s.Windows.All() {
		if core.Visible(w, out, s.Tags) {
			visible = append(visible, w.Id)
		}
	}

	req := s.Layout.BuildRequest(out, s.Tags.ActiveOn(out.Name), visible)
	s.Signals.Emit(signal.Message{Kind: signal.LayoutNeeded, Payload: req})

	if s.Router == nil || s.Router.Layout == nil {
		return
	}
	if err := s.Router.Layout.Send(req); err != nil {
		logger.Debugf("layout request for output %q not delivered: %v", out.Name, err)
	}
}

// requestLayoutAll re-triggers requestLayoutFor on every connected output,
// for mutations (tag add/remove) that may touch more than one output's
// visible set at once.
func (s *State) requestLayoutAll() {
	for _, out := range s.Outputs.All() {
		s.requestLayoutFor(out)
	}
}

// refreshWire republishes the live tag/output snapshot to both external
// protocol adapters, per spec.md §4.10.
func (s *State) refreshWire() {
	if s.Workspaces != nil {
		s.Workspaces.Refresh(s.Tags, s.Outputs)
	}
	if s.OutputMgmt != nil {
		s.OutputMgmt.Refresh()
	}
}

// directConfigurer stands in for the real xdg-shell Role implementation
// (internal/surface.Role) that a rendering backend would otherwise supply:
// it mints a serial and, once the caller's transaction is committed, acks
// it immediately through the surface.ConfigureSink boundary instead of
// waiting on a client that does not exist. Posted rather than called
// inline, since layout.Engine.Apply commits the transaction only after
// every participant's Configure has already returned its serial.
type directConfigurer struct {
	state *State
}

func (c directConfigurer) Configure(w core.WindowId, _ core.Rect) txn.Serial {
	serial := c.state.Serials.Next()
	sink := c.state.ConfigureSink()
	c.state.Txns.Post(func() {
		sink.AckConfigure(w, serial)
	})
	return serial
}

// configureSink implements surface.ConfigureSink, the one path by which a
// client's commit (or a surface unmapping out from under a pending
// transaction) ever reaches the Transaction Engine.
type configureSink struct {
	state *State
}

func (c configureSink) AckConfigure(w core.WindowId, acked txn.Serial) bool {
	return c.state.Txns.Resolve(w, acked)
}

func (c configureSink) Unmap(w core.WindowId) {
	c.state.UnmapWindow(w)
}

// ConfigureSink exposes this State's surface.ConfigureSink implementation,
// for a rendering backend (out of scope here, per spec.md §1) to drive once
// one exists; directConfigurer also uses it internally to self-ack.
func (s *State) ConfigureSink() surface.ConfigureSink {
	return configureSink{state: s}
}
