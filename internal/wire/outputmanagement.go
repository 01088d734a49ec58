package wire

import (
	"fmt"
	"sync"

	"github.com/bnema/pinnacle/internal/core"
)

// OutputEmitter is the boundary toward real wlr-output-management-v1
// resources (zwlr_output_head_v1/zwlr_output_mode_v1/zwlr_output_manager_v1),
// the out-of-scope wire boundary from spec.md §1.
type OutputEmitter interface {
	HeadAdded(head HeadView)
	HeadChanged(head HeadView)
	HeadRemoved(name string)
	Done(serial uint32)
}

// HeadView is the gob/wire-safe snapshot of one output's wlr-output-
// management "head," mirroring original_source/src/protocol/output_management.rs's
// OutputData (enabled/current_mode/position/transform/scale).
type HeadView struct {
	Name        string
	Description string
	Modes       []core.Mode
	CurrentMode core.Mode
	Enabled     bool
	Position    core.Point
	Transform   core.Transform
	Scale       float64
}

func headViewOf(o *core.Output) HeadView {
	return HeadView{
		Name:        o.Name,
		Description: o.Make + " " + o.Model,
		Modes:       append([]core.Mode(nil), o.Modes...),
		CurrentMode: o.Mode,
		Enabled:     o.Enabled,
		Position:    o.Location,
		Transform:   o.Transform,
		Scale:       o.Scale,
	}
}

// HeadConfig is one head's proposed configuration within a Configuration
// request. A nil field means "leave unchanged"; CustomMode, when set, is
// validated the same way core.OutputRegistry.SetCustomMode does rather than
// requiring an exact match against a known mode.
type HeadConfig struct {
	Name       string
	Enabled    bool
	Mode       *core.Mode
	CustomMode *core.Mode
	Position   *core.Point
	Transform  *core.Transform
	Scale      *float64
}

// Configuration is a client's proposed atomic reconfiguration, carrying the
// manager serial it was computed against (spec.md §4.10: "validates serials
// against its own per-manager counter, rejects stale configurations").
type Configuration struct {
	Serial uint32
	Heads  []HeadConfig
}

// OutputManager is the server-side state of the wlr-output-management-v1
// global: one head per Output, a manager-wide serial bumped on every
// published change, and transactional test/apply against the Output
// Registry. Grounded on output_management.rs's OutputManagementManagerState
// (add_head/remove_head/set_head_enabled/update), collapsed from smithay's
// Dispatch machinery into direct registry calls since the wire encoding
// itself is out of scope.
type OutputManager struct {
	mu sync.Mutex

	outputs *core.OutputRegistry
	emit    OutputEmitter

	serial uint32
	heads  map[string]HeadView
}

// NewOutputManager constructs a manager bound to outputs and emit, with no
// heads published yet; call Refresh once after construction.
func NewOutputManager(outputs *core.OutputRegistry, emit OutputEmitter) *OutputManager {
	return &OutputManager{
		outputs: outputs,
		emit:    emit,
		heads:   make(map[string]HeadView),
	}
}

// Serial returns the manager's current configuration serial.
func (m *OutputManager) Serial() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.serial
}

// Refresh recomputes heads from the live Output Registry, emitting added/
// changed/removed events for whatever differs from the last published
// snapshot, then bumps the serial and emits Done — but only if anything
// actually changed, matching the teacher-grounded batching discipline also
// used by WorkspaceManager.Refresh.
func (m *OutputManager) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := make(map[string]HeadView)
	for _, o := range m.outputs.All() {
		live[o.Name] = headViewOf(o)
	}

	changed := false

	for name := range m.heads {
		if _, ok := live[name]; ok {
			continue
		}
		m.emit.HeadRemoved(name)
		delete(m.heads, name)
		changed = true
	}

	for name, view := range live {
		prev, existed := m.heads[name]
		if !existed {
			m.emit.HeadAdded(view)
			m.heads[name] = view
			changed = true
			continue
		}
		if !headsEqual(prev, view) {
			m.emit.HeadChanged(view)
			m.heads[name] = view
			changed = true
		}
	}

	if changed {
		m.serial++
		for _, o := range m.outputs.All() {
			o.ManagementSerial = m.serial
		}
		m.emit.Done(m.serial)
	}
}

func headsEqual(a, b HeadView) bool {
	if a.Name != b.Name || a.Description != b.Description || a.CurrentMode != b.CurrentMode ||
		a.Enabled != b.Enabled || a.Position != b.Position || a.Transform != b.Transform || a.Scale != b.Scale {
		return false
	}
	if len(a.Modes) != len(b.Modes) {
		return false
	}
	for i := range a.Modes {
		if a.Modes[i] != b.Modes[i] {
			return false
		}
	}
	return true
}

// Test validates a Configuration against the current serial and every named
// head's known modes, without mutating anything, per spec.md §4.10 "tests
// the set as a single operation."
func (m *OutputManager) Test(cfg Configuration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validate(cfg)
}

// validate must be called with m.mu held.
func (m *OutputManager) validate(cfg Configuration) error {
	if cfg.Serial != m.serial {
		return fmt.Errorf("stale configuration serial %d (current %d): %w", cfg.Serial, m.serial, core.ErrFailedPrecondition)
	}
	for _, h := range cfg.Heads {
		out, ok := m.outputs.Get(h.Name)
		if !ok {
			return fmt.Errorf("head %q: %w", h.Name, core.ErrNotFound)
		}
		if h.Mode != nil {
			known := false
			for _, mode := range out.Modes {
				if mode == *h.Mode {
					known = true
					break
				}
			}
			if !known {
				return fmt.Errorf("mode %+v not known for head %q: %w", *h.Mode, h.Name, core.ErrInvalidArgument)
			}
		}
		if h.CustomMode != nil {
			cm := *h.CustomMode
			if cm.Width <= 0 || cm.Height <= 0 || cm.RefreshMHz <= 0 {
				return fmt.Errorf("custom mode for head %q must have positive dimensions: %w", h.Name, core.ErrInvalidArgument)
			}
		}
		if h.Scale != nil && *h.Scale < core.MinScale {
			return fmt.Errorf("scale %f below minimum for head %q: %w", *h.Scale, h.Name, core.ErrInvalidArgument)
		}
	}
	return nil
}

// Apply validates cfg exactly as Test does, then applies every head's
// changes as a single operation: validation runs for the whole batch before
// any registry mutation happens, so a single bad head rejects the entire
// configuration rather than partially applying it.
func (m *OutputManager) Apply(cfg Configuration) error {
	m.mu.Lock()
	if err := m.validate(cfg); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	for _, h := range cfg.Heads {
		if err := m.outputs.SetEnabled(h.Name, h.Enabled); err != nil {
			return err
		}
		if h.Mode != nil {
			if err := m.outputs.SetMode(h.Name, *h.Mode); err != nil {
				return err
			}
		}
		if h.CustomMode != nil {
			if err := m.outputs.SetCustomMode(h.Name, *h.CustomMode); err != nil {
				return err
			}
		}
		if h.Position != nil {
			if err := m.outputs.SetLocation(h.Name, *h.Position); err != nil {
				return err
			}
		}
		if h.Transform != nil {
			if err := m.outputs.SetTransform(h.Name, *h.Transform); err != nil {
				return err
			}
		}
		if h.Scale != nil {
			if err := m.outputs.SetScale(h.Name, *h.Scale); err != nil {
				return err
			}
		}
	}

	m.Refresh()
	return nil
}
