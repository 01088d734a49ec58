package wire

import (
	"testing"

	"github.com/bnema/pinnacle/internal/core"
)

type recordedEvent struct {
	kind    string
	manager ManagerId
	tag     core.TagId
	output  string
	name    string
	active  bool
}

type fakeWorkspaceEmitter struct {
	events []recordedEvent
}

func (f *fakeWorkspaceEmitter) WorkspaceAdded(m ManagerId, tag core.TagId, name string) {
	f.events = append(f.events, recordedEvent{kind: "added", manager: m, tag: tag, name: name})
}
func (f *fakeWorkspaceEmitter) WorkspaceState(m ManagerId, tag core.TagId, active bool) {
	f.events = append(f.events, recordedEvent{kind: "state", manager: m, tag: tag, active: active})
}
func (f *fakeWorkspaceEmitter) WorkspaceRemoved(m ManagerId, tag core.TagId) {
	f.events = append(f.events, recordedEvent{kind: "removed", manager: m, tag: tag})
}
func (f *fakeWorkspaceEmitter) GroupAdded(m ManagerId, output string) {
	f.events = append(f.events, recordedEvent{kind: "group_added", manager: m, output: output})
}
func (f *fakeWorkspaceEmitter) GroupRemoved(m ManagerId, output string) {
	f.events = append(f.events, recordedEvent{kind: "group_removed", manager: m, output: output})
}
func (f *fakeWorkspaceEmitter) WorkspaceEnter(m ManagerId, output string, tag core.TagId) {
	f.events = append(f.events, recordedEvent{kind: "enter", manager: m, tag: tag, output: output})
}
func (f *fakeWorkspaceEmitter) WorkspaceLeave(m ManagerId, output string, tag core.TagId) {
	f.events = append(f.events, recordedEvent{kind: "leave", manager: m, tag: tag, output: output})
}
func (f *fakeWorkspaceEmitter) Done(m ManagerId) {
	f.events = append(f.events, recordedEvent{kind: "done", manager: m})
}

func (f *fakeWorkspaceEmitter) countKind(kind string) int {
	n := 0
	for _, e := range f.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}

func setupOneOutputOneTag(t *testing.T) (*core.OutputRegistry, *core.TagRegistry, *core.Allocators, *core.Output, core.TagId) {
	t.Helper()
	alloc := &core.Allocators{}
	outputs := core.NewOutputRegistry()
	tags := core.NewTagRegistry()

	out := &core.Output{Name: "DP-1", Enabled: true, Powered: true}
	outputs.Add(out)
	ids := tags.Add(alloc, out, []string{"1"})
	return outputs, tags, alloc, out, ids[0]
}

func TestWorkspaceManagerRefreshEmitsAddEnterOnNewTag(t *testing.T) {
	outputs, tags, _, _, tagId := setupOneOutputOneTag(t)
	emit := &fakeWorkspaceEmitter{}
	mgr := NewWorkspaceManager(emit)
	mgr.managers[1] = true // events are only sent to bound managers

	mgr.Refresh(tags, outputs)

	if emit.countKind("group_added") != 1 {
		t.Fatalf("expected one group_added event, got %d", emit.countKind("group_added"))
	}
	if emit.countKind("added") != 1 {
		t.Fatalf("expected one workspace added event, got %d", emit.countKind("added"))
	}
	if emit.countKind("enter") != 1 {
		t.Fatalf("expected one enter event, got %d", emit.countKind("enter"))
	}
	if emit.countKind("done") != 1 {
		t.Fatalf("expected exactly one done event, got %d", emit.countKind("done"))
	}
	_ = tagId
}

func TestWorkspaceManagerRefreshNoopWhenNothingChanged(t *testing.T) {
	outputs, tags, _, _, _ := setupOneOutputOneTag(t)
	emit := &fakeWorkspaceEmitter{}
	mgr := NewWorkspaceManager(emit)

	mgr.Refresh(tags, outputs)
	before := len(emit.events)
	mgr.Refresh(tags, outputs)

	if len(emit.events) != before {
		t.Fatalf("second refresh with no state change emitted %d more events", len(emit.events)-before)
	}
}

func TestWorkspaceManagerRefreshEmitsStateChangeOnActivate(t *testing.T) {
	outputs, tags, _, _, tagId := setupOneOutputOneTag(t)
	emit := &fakeWorkspaceEmitter{}
	mgr := NewWorkspaceManager(emit)
	mgr.managers[1] = true // events are only sent to bound managers
	mgr.Refresh(tags, outputs)
	emit.events = nil // count only what the activation produces

	tags.SwitchTo(tagId)
	mgr.Refresh(tags, outputs)

	if emit.countKind("state") != 1 {
		t.Fatalf("expected one state event after activation, got %d", emit.countKind("state"))
	}
	last := emit.events[len(emit.events)-1]
	if last.kind != "done" {
		t.Fatalf("expected the batch to end with done, got %s", last.kind)
	}
}

func TestWorkspaceManagerBindReplaysExistingState(t *testing.T) {
	outputs, tags, _, _, _ := setupOneOutputOneTag(t)
	emit := &fakeWorkspaceEmitter{}
	mgr := NewWorkspaceManager(emit)
	mgr.Refresh(tags, outputs)

	emit.events = nil
	mgr.Bind(ManagerId(7))

	if emit.countKind("group_added") != 1 || emit.countKind("added") != 1 || emit.countKind("enter") != 1 {
		t.Fatalf("expected bind to replay group/workspace/enter, got %+v", emit.events)
	}
	last := emit.events[len(emit.events)-1]
	if last.kind != "done" || last.manager != 7 {
		t.Fatalf("expected bind to end with done for manager 7, got %+v", last)
	}
}

type fakeWorkspaceOps struct {
	activated, deactivated, removed []core.TagId
}

func (f *fakeWorkspaceOps) ActivateTag(id core.TagId) error {
	f.activated = append(f.activated, id)
	return nil
}
func (f *fakeWorkspaceOps) DeactivateTag(id core.TagId) error {
	f.deactivated = append(f.deactivated, id)
	return nil
}
func (f *fakeWorkspaceOps) RemoveTag(id core.TagId) error {
	f.removed = append(f.removed, id)
	return nil
}

func TestCommitAppliesActionsInRemoveDeactivateActivateOrder(t *testing.T) {
	emit := &fakeWorkspaceEmitter{}
	mgr := NewWorkspaceManager(emit)
	mgr.managers[1] = true

	// Queue out of order to prove Commit re-sorts rather than trusting
	// arrival order.
	mgr.QueueActivate(1, core.TagId(3))
	mgr.QueueRemove(1, core.TagId(1))
	mgr.QueueDeactivate(1, core.TagId(2))

	ops := &fakeWorkspaceOps{}
	if err := mgr.Commit(1, ops); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if len(ops.removed) != 1 || ops.removed[0] != 1 {
		t.Fatalf("expected tag 1 removed, got %v", ops.removed)
	}
	if len(ops.deactivated) != 1 || ops.deactivated[0] != 2 {
		t.Fatalf("expected tag 2 deactivated, got %v", ops.deactivated)
	}
	if len(ops.activated) != 1 || ops.activated[0] != 3 {
		t.Fatalf("expected tag 3 activated, got %v", ops.activated)
	}
}

func TestQueueIgnoredForUnboundManager(t *testing.T) {
	emit := &fakeWorkspaceEmitter{}
	mgr := NewWorkspaceManager(emit)

	mgr.QueueActivate(ManagerId(99), core.TagId(1))

	if len(mgr.pending[99]) != 0 {
		t.Fatal("expected queue to be a no-op for a manager that was never bound")
	}
}
