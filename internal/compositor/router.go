package compositor

import (
	"context"

	"github.com/bnema/pinnacle/internal/controlplane"
	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/logger"
	"github.com/bnema/pinnacle/internal/signal"
)

// noopCloser is the default core.Closer until a real backend wires one in.
// It logs rather than silently dropping a close request, and — since no
// wire client will ever report the surface unmapping out from under it —
// finalizes the close itself by unmapping the window directly, the same
// headless simplification directConfigurer applies to configure acks.
type noopCloser struct {
	state *State
}

func (c noopCloser) RequestClose(w *core.Window) error {
	logger.Warnf("close requested for window %d with no wire backend attached", w.Id)
	c.state.UnmapWindow(w.Id)
	return nil
}

// outputForWindow finds the output whose tag set currently makes w visible,
// scanning outputs the way core.Visible expects to be queried; this is the
// OutputFor capability controlplane.WindowService needs for tag-mutating
// methods' invariant repair.
func outputForWindow(s *State, id core.WindowId) (*core.Output, bool) {
	w, ok := s.Windows.Get(id)
	if !ok {
		return nil, false
	}
	for _, out := range s.Outputs.All() {
		for _, t := range w.Tags {
			for _, ot := range out.Tags {
				if t == ot {
					return out, true
				}
			}
		}
	}
	return nil, false
}

// NewRouter builds the Control Plane's Router bound to this loop's State,
// wiring the four mutation service groups of spec.md §6 through l.Post so
// every RPC handler reaches state only via PostAndWait, per spec.md §4.8.
// closer is the real wire backend's core.Closer, or nil to use a logging
// no-op (e.g. under the debug TUI against a headless compositor).
func (l *Loop) NewRouter(closer core.Closer) *controlplane.Router {
	s := l.State
	if closer == nil {
		closer = noopCloser{state: s}
	}

	notify := func(kind signal.Kind, payload interface{}) {
		s.Signals.Emit(signal.Message{Kind: kind, Payload: payload})
	}

	r := &controlplane.Router{
		Post: l.Post,
		Pinnacle: &controlplane.PinnacleService{
			Quit: func() { s.RequestQuit() },
			Reload: func() {
				if l.Reloader != nil {
					if err := l.Reloader.Reload(context.Background()); err != nil {
						logger.Errorf("reload: %v", err)
					}
				}
			},
		},
		Input: &controlplane.InputService{
			Binds: s.Binds,
			ApplyKeyboardConfig: func(controlplane.KeyboardConfig) error {
				// libxkbcommon keymap/repeat application is the out-of-scope
				// input-backend boundary (spec.md §1); recorded by the caller
				// only once a real backend is attached.
				return nil
			},
			ApplyPointerConfig: func(controlplane.PointerConfig) error {
				return nil
			},
			ApplyDeviceMapTarget: func(device, output string) error {
				return nil
			},
		},
		Output: &controlplane.OutputService{
			Outputs:       s.Outputs,
			RequestLayout: s.requestLayoutFor,
			RefreshWire:   s.refreshWire,
			Disconnect:    s.DisconnectOutput,
		},
		Tag: &controlplane.TagService{
			Tags:             s.Tags,
			Outputs:          s.Outputs,
			Alloc:            s.Alloc,
			Notify:           notify,
			RequestLayout:    s.requestLayoutFor,
			RequestLayoutAll: s.requestLayoutAll,
			RefreshWire:      s.refreshWire,
		},
		Window: &controlplane.WindowService{
			Windows:       s.Windows,
			Outputs:       s.Outputs,
			Tags:          s.Tags,
			Closer:        closer,
			OutputFor:     func(id core.WindowId) (*core.Output, bool) { return outputForWindow(s, id) },
			Notify:        notify,
			RequestLayout: s.requestLayoutFor,
			Map:           s.MapWindow,
		},
		Signal: &controlplane.SignalService{Bus: s.Signals},
	}
	r.Layout = &controlplane.LayoutService{
		Outputs:    s.Outputs,
		Windows:    s.Windows,
		Tags:       s.Tags,
		Engine:     s.Layout,
		Configurer: directConfigurer{state: s},
	}
	return r
}
