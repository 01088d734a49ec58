package core

import "fmt"

// TagRegistry owns every Tag and implements the active-set semantics of
// spec.md §4.4. Grounded on the teacher's input.SwitchManager (a rotation
// list with one active index), generalized from "one active computer" to
// "per-output set of independently toggleable tags."
type TagRegistry struct {
	byId map[TagId]*Tag
}

// NewTagRegistry constructs an empty registry.
func NewTagRegistry() *TagRegistry {
	return &TagRegistry{byId: make(map[TagId]*Tag)}
}

// Add creates tags on the named output and appends them to its tag list,
// per spec.md §4.4.
func (r *TagRegistry) Add(alloc *Allocators, out *Output, names []string) []TagId {
	ids := make([]TagId, 0, len(names))
	for _, name := range names {
		id := alloc.NextTag()
		t := &Tag{Id: id, Output: out.Name, Name: name}
		r.byId[id] = t
		out.Tags = append(out.Tags, id)
		ids = append(ids, id)
	}
	return ids
}

// Get returns the tag with the given id. Dead ids (e.g. after a reload)
// return false, never panic, per spec.md §7.
func (r *TagRegistry) Get(id TagId) (*Tag, bool) {
	t, ok := r.byId[id]
	return t, ok
}

// Remove deletes the given tags from the registry and from their owning
// outputs. Callers (the State Store) are responsible for running the
// invariant repair on any window that loses its last tag.
func (r *TagRegistry) Remove(ids []TagId, outputs *OutputRegistry) {
	for _, id := range ids {
		t, ok := r.byId[id]
		if !ok {
			continue
		}
		if out, ok := outputs.Get(t.Output); ok {
			out.RemoveTag(id)
		}
		delete(r.byId, id)
	}
}

// SetActive sets a single tag's active flag without affecting siblings.
func (r *TagRegistry) SetActive(id TagId, active bool) error {
	t, ok := r.byId[id]
	if !ok {
		return fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	t.Active = active
	return nil
}

// SwitchTo activates exactly one tag, deactivating every other tag on the
// same output, per spec.md §4.4.
func (r *TagRegistry) SwitchTo(id TagId) error {
	target, ok := r.byId[id]
	if !ok {
		return fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	for _, t := range r.byId {
		if t.Output == target.Output {
			t.Active = t.Id == id
		}
	}
	return nil
}

// LayoutFor returns the layout tree explicitly bound to a tag, if any.
func (r *TagRegistry) LayoutFor(id TagId) (LayoutTreeId, bool) {
	t, ok := r.byId[id]
	if !ok || t.LayoutTree == 0 {
		return 0, false
	}
	return t.LayoutTree, true
}

// BindLayout binds a tag to an explicit layout tree.
func (r *TagRegistry) BindLayout(id TagId, tree LayoutTreeId) error {
	t, ok := r.byId[id]
	if !ok {
		return fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	t.LayoutTree = tree
	return nil
}

// NamesFor resolves a list of TagIds to their names, skipping dead ids.
// Used when persisting an output's tag list by name on disconnect.
func (r *TagRegistry) NamesFor(ids []TagId) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.byId[id]; ok {
			names = append(names, t.Name)
		}
	}
	return names
}

// ActiveOn returns the active tags belonging to the named output.
func (r *TagRegistry) ActiveOn(outputName string) []TagId {
	var active []TagId
	for id, t := range r.byId {
		if t.Output == outputName && t.Active {
			active = append(active, id)
		}
	}
	return active
}

// Visible implements the pure visibility function from spec.md §4.4:
// "A window is visible on output O iff O is enabled AND O is powered AND
// the window owns at least one tag t with t.output == O AND t.active."
func Visible(w *Window, out *Output, tags *TagRegistry) bool {
	if !out.Enabled || !out.Powered {
		return false
	}
	for _, tid := range w.Tags {
		t, ok := tags.Get(tid)
		if !ok {
			continue
		}
		if t.Output == out.Name && t.Active {
			return true
		}
	}
	return false
}
