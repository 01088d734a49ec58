package wire

import (
	"errors"
	"testing"

	"github.com/bnema/pinnacle/internal/core"
)

type fakeOutputEmitter struct {
	added, changed []HeadView
	removed        []string
	dones          []uint32
}

func (f *fakeOutputEmitter) HeadAdded(h HeadView)   { f.added = append(f.added, h) }
func (f *fakeOutputEmitter) HeadChanged(h HeadView) { f.changed = append(f.changed, h) }
func (f *fakeOutputEmitter) HeadRemoved(name string) {
	f.removed = append(f.removed, name)
}
func (f *fakeOutputEmitter) Done(serial uint32) { f.dones = append(f.dones, serial) }

func oneOutput() (*core.OutputRegistry, *core.Output) {
	outputs := core.NewOutputRegistry()
	out := &core.Output{
		Name:  "DP-1",
		Mode:  core.Mode{Width: 1920, Height: 1080, RefreshMHz: 60000},
		Modes: []core.Mode{{Width: 1920, Height: 1080, RefreshMHz: 60000}, {Width: 1280, Height: 720, RefreshMHz: 60000}},
		Scale: 1.0, Enabled: true,
	}
	outputs.Add(out)
	return outputs, out
}

func TestOutputManagerRefreshPublishesSerialOne(t *testing.T) {
	outputs, _ := oneOutput()
	emit := &fakeOutputEmitter{}
	mgr := NewOutputManager(outputs, emit)

	mgr.Refresh()

	if len(emit.added) != 1 {
		t.Fatalf("expected one head added, got %d", len(emit.added))
	}
	if len(emit.dones) != 1 || emit.dones[0] != 1 {
		t.Fatalf("expected Done(1), got %v", emit.dones)
	}
	if mgr.Serial() != 1 {
		t.Fatalf("got serial %d, want 1", mgr.Serial())
	}
}

func TestOutputManagerRefreshNoopWithoutChange(t *testing.T) {
	outputs, _ := oneOutput()
	emit := &fakeOutputEmitter{}
	mgr := NewOutputManager(outputs, emit)
	mgr.Refresh()

	before := mgr.Serial()
	mgr.Refresh()
	if mgr.Serial() != before {
		t.Fatalf("serial bumped on a no-op refresh: %d -> %d", before, mgr.Serial())
	}
}

func TestOutputManagerTestRejectsStaleSerial(t *testing.T) {
	outputs, _ := oneOutput()
	emit := &fakeOutputEmitter{}
	mgr := NewOutputManager(outputs, emit)
	mgr.Refresh() // serial = 1

	err := mgr.Test(Configuration{Serial: 0})
	if !errors.Is(err, core.ErrFailedPrecondition) {
		t.Fatalf("got %v, want ErrFailedPrecondition", err)
	}
}

func TestOutputManagerTestRejectsUnknownHead(t *testing.T) {
	outputs, _ := oneOutput()
	emit := &fakeOutputEmitter{}
	mgr := NewOutputManager(outputs, emit)
	mgr.Refresh()

	err := mgr.Test(Configuration{Serial: mgr.Serial(), Heads: []HeadConfig{{Name: "DP-9"}}})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestOutputManagerTestRejectsUnknownMode(t *testing.T) {
	outputs, _ := oneOutput()
	emit := &fakeOutputEmitter{}
	mgr := NewOutputManager(outputs, emit)
	mgr.Refresh()

	bad := core.Mode{Width: 3840, Height: 2160, RefreshMHz: 144000}
	err := mgr.Test(Configuration{Serial: mgr.Serial(), Heads: []HeadConfig{{Name: "DP-1", Mode: &bad}}})
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
}

func TestOutputManagerApplyRejectsEntireConfigurationOnOneBadHead(t *testing.T) {
	outputs, out := oneOutput()
	emit := &fakeOutputEmitter{}
	mgr := NewOutputManager(outputs, emit)
	mgr.Refresh()

	newScale := 2.0
	badMode := core.Mode{Width: 9999, Height: 9999, RefreshMHz: 1000}
	cfg := Configuration{
		Serial: mgr.Serial(),
		Heads: []HeadConfig{
			{Name: "DP-1", Enabled: true, Scale: &newScale, Mode: &badMode},
		},
	}

	if err := mgr.Apply(cfg); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
	if out.Scale != 1.0 {
		t.Fatalf("scale was mutated (%v) despite validation failure; Apply must be all-or-nothing", out.Scale)
	}
}

func TestOutputManagerApplySucceedsAndBumpsSerial(t *testing.T) {
	outputs, out := oneOutput()
	emit := &fakeOutputEmitter{}
	mgr := NewOutputManager(outputs, emit)
	mgr.Refresh() // serial 1

	newScale := 1.5
	newMode := core.Mode{Width: 1280, Height: 720, RefreshMHz: 60000}
	cfg := Configuration{
		Serial: mgr.Serial(),
		Heads: []HeadConfig{
			{Name: "DP-1", Enabled: true, Scale: &newScale, Mode: &newMode},
		},
	}

	if err := mgr.Apply(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Scale != 1.5 {
		t.Fatalf("got scale %v, want 1.5", out.Scale)
	}
	if out.Mode != newMode {
		t.Fatalf("got mode %+v, want %+v", out.Mode, newMode)
	}
	if mgr.Serial() != 2 {
		t.Fatalf("got serial %d, want 2", mgr.Serial())
	}
	if out.ManagementSerial != 2 {
		t.Fatalf("got ManagementSerial %d, want 2", out.ManagementSerial)
	}
}
