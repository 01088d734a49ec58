package core

// Role distinguishes the three window roles spec.md §3 enumerates.
// Override-redirect windows have no configure path; calls on them are
// no-ops with a log message (spec.md §4.2).
type Role int

const (
	RoleToplevel Role = iota
	RolePopup
	RoleOverrideRedirect
)

// DecorationMode selects who draws a window's border/titlebar.
type DecorationMode int

const (
	DecorationClientSide DecorationMode = iota
	DecorationServerSide
)

// Snapshot is an opaque handle to a captured texture of a window's surface
// tree, used by the renderer to paper over transitions (spec.md §4.2). The
// renderer backend is out of scope; this is a named interface only.
type Snapshot interface {
	Release()
}

// Window is the compositor's view of a client surface with a window role,
// per spec.md §3.
type Window struct {
	Id       WindowId
	Role     Role
	ClientId uint32

	Committed Rect // last geometry acked by the client
	Requested Rect // geometry most recently sent in a configure

	Tags []TagId // insertion order, deduplicated; see SPEC_FULL.md §4

	Mode LayoutMode

	Decoration         DecorationMode
	DecorationOverride *DecorationMode // set by a window rule to force a mode

	AppId string
	Title string

	FloatingRect Rect // remembered rect for Floating, used by Tiled/Floating toggles

	Snapshot Snapshot // non-nil only mid-transition

	Transient bool // a transient window is exempt from the non-empty-tags invariant

	// ForeignHandle is non-nil once an ext-foreign-toplevel-list observer
	// has been told about this window. Named interface only (out of scope
	// rendering/wire details).
	ForeignHandle ForeignToplevelHandle
}

// ForeignToplevelHandle is the boundary interface toward the
// foreign-toplevel-list protocol adapter (out of scope; see spec.md §1).
type ForeignToplevelHandle interface {
	Closed() bool
}

// HasTag reports whether t is in the window's tag set.
func (w *Window) HasTag(t TagId) bool {
	for _, id := range w.Tags {
		if id == t {
			return true
		}
	}
	return false
}

// AddTag appends t to the window's tag set if not already present.
func (w *Window) AddTag(t TagId) {
	if w.HasTag(t) {
		return
	}
	w.Tags = append(w.Tags, t)
}

// RemoveTag deletes t from the window's tag set, if present.
func (w *Window) RemoveTag(t TagId) {
	for i, id := range w.Tags {
		if id == t {
			w.Tags = append(w.Tags[:i], w.Tags[i+1:]...)
			return
		}
	}
}

// CanConfigure reports whether this window's role accepts configures.
// Override-redirect windows never do, per spec.md §9.
func (w *Window) CanConfigure() bool {
	return w.Role != RoleOverrideRedirect
}

// EffectiveDecoration returns the decoration mode a rule override forces,
// falling back to the window's own mode.
func (w *Window) EffectiveDecoration() DecorationMode {
	if w.DecorationOverride != nil {
		return *w.DecorationOverride
	}
	return w.Decoration
}
