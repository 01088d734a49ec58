// Package wire implements the External Protocol Adapters from spec.md
// §4.10: pure views over the Tag and Output registries that publish
// ext-workspace-v1 and wlr-output-management-v1 semantics. The actual
// Wayland wire objects (ext_workspace_handle_v1 and friends) are the
// out-of-scope protocol boundary named in spec.md §1; this package talks to
// that boundary only through the Emitter interface, the same named-
// interface-only pattern internal/core uses for Snapshot/ForeignToplevelHandle.
package wire

import (
	"sort"
	"sync"

	"github.com/bnema/pinnacle/internal/core"
)

// ManagerId identifies one bound ext-workspace-v1 (or, in outputmanagement.go,
// wlr-output-management-v1) client instance for the lifetime of its bind.
type ManagerId uint32

// WorkspaceEmitter is the boundary toward real ext-workspace-v1 resources.
// Every method corresponds to one wire event from the protocol.
type WorkspaceEmitter interface {
	WorkspaceAdded(manager ManagerId, tag core.TagId, name string)
	WorkspaceState(manager ManagerId, tag core.TagId, active bool)
	WorkspaceRemoved(manager ManagerId, tag core.TagId)
	GroupAdded(manager ManagerId, output string)
	GroupRemoved(manager ManagerId, output string)
	WorkspaceEnter(manager ManagerId, output string, tag core.TagId)
	WorkspaceLeave(manager ManagerId, output string, tag core.TagId)
	Done(manager ManagerId)
}

// WorkspaceOps is the capability the manager needs to apply a client's
// commit actions back onto the Tag Engine.
type WorkspaceOps interface {
	ActivateTag(id core.TagId) error
	DeactivateTag(id core.TagId) error
	RemoveTag(id core.TagId) error
}

type actionKind int

const (
	actionRemove actionKind = iota
	actionDeactivate
	actionActivate
)

// order implements spec.md §4.10's commit ordering: "sorted by kind
// (Remove < Deactivate < Activate), and applied in that order on commit."
func (k actionKind) order() int { return int(k) }

type queuedAction struct {
	kind actionKind
	tag  core.TagId
}

type workspaceSnapshot struct {
	name   string
	output string
	active bool
}

type groupSnapshot struct {
	output string
}

// WorkspaceManager is the server-side state of the ext-workspace-v1 global:
// one workspace per Tag, one workspace group per Output, per spec.md §4.10
// "Publishes every Tag as a 'workspace', every Output as a 'workspace group'."
// Grounded on original_source/src/protocol/ext_workspace.rs's
// ExtWorkspaceManagerState (instances/tag_groups/tags maps, refresh/commit
// shape), reimplemented as a plain Go state machine over the Emitter
// boundary instead of smithay's Dispatch machinery.
type WorkspaceManager struct {
	mu sync.Mutex

	emit WorkspaceEmitter

	managers map[ManagerId]bool
	pending  map[ManagerId][]queuedAction

	tags   map[core.TagId]workspaceSnapshot
	groups map[string]groupSnapshot
}

// NewWorkspaceManager constructs an empty manager bound to emit.
func NewWorkspaceManager(emit WorkspaceEmitter) *WorkspaceManager {
	return &WorkspaceManager{
		emit:     emit,
		managers: make(map[ManagerId]bool),
		pending:  make(map[ManagerId][]queuedAction),
		tags:     make(map[core.TagId]workspaceSnapshot),
		groups:   make(map[string]groupSnapshot),
	}
}

// Bind registers a newly-connected client manager instance, replaying every
// known workspace and group to it before committing with Done, matching the
// rust GlobalDispatch::bind's "send existing workspaces... create workspace
// groups... manager.done()".
func (m *WorkspaceManager) Bind(id ManagerId) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.managers[id] = true
	m.pending[id] = nil

	for output := range m.groups {
		m.emit.GroupAdded(id, output)
	}
	for tag, snap := range m.tags {
		m.emit.WorkspaceAdded(id, tag, snap.name)
		m.emit.WorkspaceState(id, tag, snap.active)
		m.emit.WorkspaceEnter(id, snap.output, tag)
	}
	m.emit.Done(id)
}

// Unbind removes a client manager instance (the protocol's "stop" or
// destroyed path), discarding any actions it had queued.
func (m *WorkspaceManager) Unbind(id ManagerId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.managers, id)
	delete(m.pending, id)
}

// QueueActivate, QueueDeactivate, QueueRemove append one action to a
// manager's pending batch; per spec.md §4.10 these are "queued per manager
// instance... during a batch (between `done`s)" rather than applied inline.
func (m *WorkspaceManager) QueueActivate(id ManagerId, tag core.TagId) {
	m.queue(id, queuedAction{kind: actionActivate, tag: tag})
}

func (m *WorkspaceManager) QueueDeactivate(id ManagerId, tag core.TagId) {
	m.queue(id, queuedAction{kind: actionDeactivate, tag: tag})
}

func (m *WorkspaceManager) QueueRemove(id ManagerId, tag core.TagId) {
	m.queue(id, queuedAction{kind: actionRemove, tag: tag})
}

func (m *WorkspaceManager) queue(id ManagerId, a queuedAction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.managers[id] {
		return
	}
	m.pending[id] = append(m.pending[id], a)
}

// Commit applies one manager's queued actions in Remove<Deactivate<Activate
// order against ops, then clears the batch, per spec.md §4.10.
func (m *WorkspaceManager) Commit(id ManagerId, ops WorkspaceOps) error {
	m.mu.Lock()
	actions := m.pending[id]
	m.pending[id] = nil
	m.mu.Unlock()

	sort.SliceStable(actions, func(i, j int) bool { return actions[i].kind.order() < actions[j].kind.order() })

	for _, a := range actions {
		var err error
		switch a.kind {
		case actionRemove:
			err = ops.RemoveTag(a.tag)
		case actionDeactivate:
			err = ops.DeactivateTag(a.tag)
		case actionActivate:
			err = ops.ActivateTag(a.tag)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Refresh recomputes workspace/group state from the live registries and
// emits the enter/leave/state/add/remove events needed to bring every bound
// manager's view in sync, finishing with one Done per manager that actually
// changed. Grounded on ext_workspace.rs's refresh(): diff against the
// previous snapshot, never re-derive from scratch.
func (m *WorkspaceManager) Refresh(tags *core.TagRegistry, outputs *core.OutputRegistry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false

	live := make(map[core.TagId]workspaceSnapshot)
	for _, out := range outputs.All() {
		for _, tid := range out.Tags {
			t, ok := tags.Get(tid)
			if !ok {
				continue
			}
			live[tid] = workspaceSnapshot{name: t.Name, output: out.Name, active: t.Active}
		}
	}

	// Tags that vanished: leave + removed.
	for tid, snap := range m.tags {
		if _, ok := live[tid]; ok {
			continue
		}
		for id := range m.managers {
			m.emit.WorkspaceLeave(id, snap.output, tid)
			m.emit.WorkspaceRemoved(id, tid)
		}
		delete(m.tags, tid)
		changed = true
	}

	// Groups (outputs) that vanished.
	liveOutputs := make(map[string]bool)
	for _, out := range outputs.All() {
		liveOutputs[out.Name] = true
	}
	for name := range m.groups {
		if liveOutputs[name] {
			continue
		}
		for id := range m.managers {
			m.emit.GroupRemoved(id, name)
		}
		delete(m.groups, name)
		changed = true
	}

	// New/changed groups.
	for name := range liveOutputs {
		if _, ok := m.groups[name]; ok {
			continue
		}
		m.groups[name] = groupSnapshot{output: name}
		for id := range m.managers {
			m.emit.GroupAdded(id, name)
		}
		changed = true
	}

	// New/changed tags.
	for tid, snap := range live {
		prev, existed := m.tags[tid]
		if !existed {
			m.tags[tid] = snap
			for id := range m.managers {
				m.emit.WorkspaceAdded(id, tid, snap.name)
				m.emit.WorkspaceState(id, tid, snap.active)
				m.emit.WorkspaceEnter(id, snap.output, tid)
			}
			changed = true
			continue
		}
		if prev.output != snap.output {
			for id := range m.managers {
				m.emit.WorkspaceLeave(id, prev.output, tid)
				m.emit.WorkspaceEnter(id, snap.output, tid)
			}
			changed = true
		}
		if prev.active != snap.active {
			for id := range m.managers {
				m.emit.WorkspaceState(id, tid, snap.active)
			}
			changed = true
		}
		m.tags[tid] = snap
	}

	if changed {
		for id := range m.managers {
			m.emit.Done(id)
		}
	}
}
