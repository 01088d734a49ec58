package core

import "fmt"

// Closer is the narrow capability spec.md §4.2's close() needs: forward a
// close request on the window's underlying protocol role. Toplevel/X11/
// override-redirect differ in how they implement it; that's the out-of-scope
// wire boundary (spec.md §1), so it's modeled here as an interface only.
type Closer interface {
	RequestClose(w *Window) error
}

// ZOrder is the global Z-order stack (spec.md §9: "the Space Z-order list").
// It holds window ids, not owning references — cross-references everywhere
// in this package are ids resolved through the registry, never pointers
// into another registry, per spec.md §9's arena+id design note.
type ZOrder struct {
	stack []WindowId // stack[0] is topmost
}

// Raise moves w to the top, preserving the relative order of the rest.
func (z *ZOrder) Raise(w WindowId) {
	z.Remove(w)
	z.stack = append([]WindowId{w}, z.stack...)
}

// Remove deletes w from the Z-order, wherever it is.
func (z *ZOrder) Remove(w WindowId) {
	for i, id := range z.stack {
		if id == w {
			z.stack = append(z.stack[:i], z.stack[i+1:]...)
			return
		}
	}
}

// Order returns the Z-order, topmost first.
func (z *ZOrder) Order() []WindowId {
	out := make([]WindowId, len(z.stack))
	copy(out, z.stack)
	return out
}

// WindowRegistry owns every mapped window, per spec.md §4.2.
type WindowRegistry struct {
	byId      map[WindowId]*Window
	order     []WindowId // stable creation order, for deterministic iteration
	z         ZOrder
	keyboard  WindowId // 0 means "no keyboard focus target"
	hasFocus  bool
}

// NewWindowRegistry constructs an empty registry.
func NewWindowRegistry() *WindowRegistry {
	return &WindowRegistry{byId: make(map[WindowId]*Window)}
}

// Add inserts a newly-discovered window, assigning a fresh id.
func (r *WindowRegistry) Add(alloc *Allocators, w *Window) WindowId {
	id := WindowId(alloc.NextWindow())
	w.Id = id
	r.byId[id] = w
	r.order = append(r.order, id)
	r.z.Raise(id)
	return id
}

// Get returns the window with the given id, or false if dangling.
func (r *WindowRegistry) Get(id WindowId) (*Window, bool) {
	w, ok := r.byId[id]
	return w, ok
}

// All returns every window in stable creation order.
func (r *WindowRegistry) All() []*Window {
	out := make([]*Window, 0, len(r.order))
	for _, id := range r.order {
		if w, ok := r.byId[id]; ok {
			out = append(out, w)
		}
	}
	return out
}

// ZOrder exposes the Z-order stack for layout/focus queries.
func (r *WindowRegistry) ZOrder() *ZOrder { return &r.z }

// Remove deletes a window from the registry (on unmap), pruning it from the
// Z-order and clearing keyboard focus if it held it.
func (r *WindowRegistry) Remove(id WindowId) {
	delete(r.byId, id)
	for i, wid := range r.order {
		if wid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.z.Remove(id)
	if r.hasFocus && r.keyboard == id {
		r.hasFocus = false
		r.keyboard = 0
	}
}

// Close forwards the close request on the underlying role. Override-redirect
// windows are a no-op; callers should log that case (spec.md §4.2).
func (r *WindowRegistry) Close(id WindowId, closer Closer) error {
	w, ok := r.byId[id]
	if !ok {
		return fmt.Errorf("window %d: %w", id, ErrNotFound)
	}
	if w.Role == RoleOverrideRedirect {
		return nil // no-op; caller logs
	}
	return closer.RequestClose(w)
}

// repairEmptyTags applies the invariant-repair rule from spec.md §3/§4.2:
// "adopt the first active tag of the window's current output, else the
// output's first tag, else leave empty (permitted only while unmapping)."
func repairEmptyTags(w *Window, out *Output, tags *TagRegistry) {
	if len(w.Tags) > 0 || w.Transient {
		return
	}
	for _, tid := range out.Tags {
		if t, ok := tags.Get(tid); ok && t.Active {
			w.Tags = []TagId{tid}
			return
		}
	}
	if len(out.Tags) > 0 {
		w.Tags = []TagId{out.Tags[0]}
	}
}

// SetTags replaces a window's tag set wholesale, running invariant repair
// if the result would be empty.
func (r *WindowRegistry) SetTags(id WindowId, newTags []TagId, out *Output, tags *TagRegistry) error {
	w, ok := r.byId[id]
	if !ok {
		return fmt.Errorf("window %d: %w", id, ErrNotFound)
	}
	dedup := make([]TagId, 0, len(newTags))
	seen := make(map[TagId]bool, len(newTags))
	for _, t := range newTags {
		if !seen[t] {
			seen[t] = true
			dedup = append(dedup, t)
		}
	}
	w.Tags = dedup
	repairEmptyTags(w, out, tags)
	return nil
}

// AddTag adds a single tag to a window's set.
func (r *WindowRegistry) AddTag(id WindowId, t TagId) error {
	w, ok := r.byId[id]
	if !ok {
		return fmt.Errorf("window %d: %w", id, ErrNotFound)
	}
	w.AddTag(t)
	return nil
}

// RemoveTag removes a single tag from a window's set, repairing the
// invariant if the set becomes empty.
func (r *WindowRegistry) RemoveTag(id WindowId, t TagId, out *Output, tags *TagRegistry) error {
	w, ok := r.byId[id]
	if !ok {
		return fmt.Errorf("window %d: %w", id, ErrNotFound)
	}
	w.RemoveTag(t)
	repairEmptyTags(w, out, tags)
	return nil
}

// ToggleTag adds t if absent, removes it if present.
func (r *WindowRegistry) ToggleTag(id WindowId, t TagId, out *Output, tags *TagRegistry) error {
	w, ok := r.byId[id]
	if !ok {
		return fmt.Errorf("window %d: %w", id, ErrNotFound)
	}
	if w.HasTag(t) {
		return r.RemoveTag(id, t, out, tags)
	}
	return r.AddTag(id, t)
}

// Focus sets the keyboard-focus target and pushes w to the front of its
// output's focus stack.
func (r *WindowRegistry) Focus(id WindowId, out *Output) error {
	if _, ok := r.byId[id]; !ok {
		return fmt.Errorf("window %d: %w", id, ErrNotFound)
	}
	r.keyboard = id
	r.hasFocus = true
	out.PushFocus(id)
	return nil
}

// Unfocus clears the keyboard-focus target without touching any output's
// focus stack.
func (r *WindowRegistry) Unfocus() {
	r.hasFocus = false
	r.keyboard = 0
}

// KeyboardFocus returns the current keyboard-focus target, if any.
func (r *WindowRegistry) KeyboardFocus() (WindowId, bool) {
	if !r.hasFocus {
		return 0, false
	}
	return r.keyboard, true
}

// Raise moves w to the top of the global Z-order.
func (r *WindowRegistry) Raise(id WindowId) error {
	if _, ok := r.byId[id]; !ok {
		return fmt.Errorf("window %d: %w", id, ErrNotFound)
	}
	r.z.Raise(id)
	return nil
}

// SetLayoutMode drives the LayoutMode FSM per spec.md §4.2, returning the
// computed new mode and whether it actually changed. Callers (the
// compositor orchestration layer) are responsible for steps (c)-(e):
// sending the configure, enrolling a transaction, and re-rendering on
// completion — this method only performs (a) and records the result of (b)
// as far as picking the target rect kind; the caller supplies the concrete
// rect since it depends on the Layout Protocol / usable-rect computation
// that core does not own.
func (r *WindowRegistry) SetLayoutMode(id WindowId, target LayoutModeKind) (LayoutMode, bool, error) {
	w, ok := r.byId[id]
	if !ok {
		return LayoutMode{}, false, fmt.Errorf("window %d: %w", id, ErrNotFound)
	}
	next, changed := Transition(w.Mode, target)
	if !changed {
		return w.Mode, false, nil
	}
	if w.Mode.Kind == Floating {
		w.FloatingRect = w.Committed
	}
	w.Mode = next
	return next, true, nil
}
