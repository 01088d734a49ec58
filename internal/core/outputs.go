package core

import "fmt"

// PersistedOutputState is per-output state the Output Registry remembers
// across a disconnect/reconnect cycle, keyed by the output's stable name
// (spec.md §4.3 "Output reconnection").
type PersistedOutputState struct {
	Tags     []string // tag names, reinstalled before window rules evaluate
	Location Point
	Scale    float64
}

// OutputRegistry owns every connected output plus persisted state for
// reconnection, per spec.md §4.3. It runs only on the state-loop goroutine
// (spec.md §4.1), so no internal locking is needed — a deliberate
// strengthening over the teacher's sync.RWMutex-guarded ClientManager,
// since here single ownership is structurally enforced rather than merely
// convention.
type OutputRegistry struct {
	byName    map[string]*Output
	order     []string // stable iteration order, append-only except on remove
	focused   string   // name of focused output, "" if none
	persisted map[string]PersistedOutputState
}

// NewOutputRegistry constructs an empty registry.
func NewOutputRegistry() *OutputRegistry {
	return &OutputRegistry{
		byName:    make(map[string]*Output),
		persisted: make(map[string]PersistedOutputState),
	}
}

// Add inserts a newly connected output. If persisted state exists for this
// name its location and scale are restored before returning; persisted tag
// names are not applied here (see PersistedTagsFor).
func (r *OutputRegistry) Add(o *Output) {
	if saved, ok := r.persisted[o.Name]; ok {
		tagNames := make(map[string]bool, len(saved.Tags))
		for _, n := range saved.Tags {
			tagNames[n] = true
		}
		_ = tagNames // tag recreation is driven by the Tag Engine, not here
		o.Location = saved.Location
		o.Scale = saved.Scale
	}
	if _, exists := r.byName[o.Name]; !exists {
		r.order = append(r.order, o.Name)
	}
	r.byName[o.Name] = o
	if r.focused == "" && o.Enabled {
		r.focused = o.Name
	}
}

// Get returns the output named name, or nil if not connected.
func (r *OutputRegistry) Get(name string) (*Output, bool) {
	o, ok := r.byName[name]
	return o, ok
}

// All returns every connected output in stable order.
func (r *OutputRegistry) All() []*Output {
	out := make([]*Output, 0, len(r.order))
	for _, name := range r.order {
		if o, ok := r.byName[name]; ok {
			out = append(out, o)
		}
	}
	return out
}

// Remove disconnects the named output, persisting its location and scale
// (with an empty tag list until PersistTags fills it) for potential
// reconnection, and returns the removed output. Finding the windows that
// were visible on it is left to the caller.
func (r *OutputRegistry) Remove(name string) (*Output, bool) {
	o, ok := r.byName[name]
	if !ok {
		return nil, false
	}

	tagNames := make([]string, 0, len(o.Tags))
	// Caller (Tag Engine) is responsible for resolving TagId->name; the
	// registry only records location/scale here and leaves tag-name
	// persistence to whoever calls PersistTags.
	r.persisted[name] = PersistedOutputState{
		Tags:     tagNames,
		Location: o.Location,
		Scale:    o.Scale,
	}

	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.focused == name {
		r.focused = ""
		r.refocusNext()
	}
	return o, true
}

// PersistTags records tag names for name's persisted state, called by the
// Tag Engine after resolving TagId->name at removal time.
func (r *OutputRegistry) PersistTags(name string, tagNames []string) {
	saved := r.persisted[name]
	saved.Tags = tagNames
	r.persisted[name] = saved
}

// PersistedTagsFor returns the tag names saved for name, if any.
func (r *OutputRegistry) PersistedTagsFor(name string) ([]string, bool) {
	saved, ok := r.persisted[name]
	if !ok {
		return nil, false
	}
	return saved.Tags, true
}

// refocusNext transfers focus to the next-most-recently-focused enabled
// output still connected, per spec.md §3's output focus invariant. With no
// recency tracking across outputs (that's out of SPEC_FULL.md's named
// scope), the first enabled output in registry order is chosen.
func (r *OutputRegistry) refocusNext() {
	for _, name := range r.order {
		if o := r.byName[name]; o.Enabled {
			r.focused = name
			return
		}
	}
}

// Focused returns the currently focused output, if any.
func (r *OutputRegistry) Focused() (*Output, bool) {
	if r.focused == "" {
		return nil, false
	}
	o, ok := r.byName[r.focused]
	return o, ok
}

// Focus sets name as the focused output. Disabling or removing the focused
// output clears focus (handled in SetEnabled/Remove); Focus itself refuses
// to focus a disabled output.
func (r *OutputRegistry) Focus(name string) error {
	o, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("output %q: %w", name, ErrNotFound)
	}
	if !o.Enabled {
		return fmt.Errorf("output %q is disabled: %w", name, ErrInvalidArgument)
	}
	r.focused = name
	return nil
}

// SetEnabled toggles an output's participation in the global layout. If the
// focused output becomes disabled, focus transfers per spec.md §3.
func (r *OutputRegistry) SetEnabled(name string, enabled bool) error {
	o, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("output %q: %w", name, ErrNotFound)
	}
	o.Enabled = enabled
	if !enabled && r.focused == name {
		r.focused = ""
		r.refocusNext()
	}
	if enabled && r.focused == "" {
		r.focused = name
	}
	return nil
}

// SetPowered toggles DPMS/backlight state. Visibility (spec.md §4.4) reads
// this directly; powering off does not itself move focus.
func (r *OutputRegistry) SetPowered(name string, powered bool) error {
	o, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("output %q: %w", name, ErrNotFound)
	}
	o.Powered = powered
	return nil
}

// SetScale clamps to [MinScale, +inf) per spec.md §4.3.
func (r *OutputRegistry) SetScale(name string, scale float64) error {
	o, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("output %q: %w", name, ErrNotFound)
	}
	if scale < MinScale {
		scale = MinScale
	}
	o.Scale = scale
	return nil
}

// ChangeScale applies a relative delta, with the same clamping as SetScale.
func (r *OutputRegistry) ChangeScale(name string, delta float64) error {
	o, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("output %q: %w", name, ErrNotFound)
	}
	return r.SetScale(name, o.Scale+delta)
}

// SetLocation repositions the output in the global logical space.
func (r *OutputRegistry) SetLocation(name string, loc Point) error {
	o, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("output %q: %w", name, ErrNotFound)
	}
	o.Location = loc
	return nil
}

// SetTransform sets one of the eight orientations.
func (r *OutputRegistry) SetTransform(name string, t Transform) error {
	o, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("output %q: %w", name, ErrNotFound)
	}
	o.Transform = t
	return nil
}

// SetMode only succeeds if mode is among the output's known modes, per
// spec.md §4.3.
func (r *OutputRegistry) SetMode(name string, mode Mode) error {
	o, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("output %q: %w", name, ErrNotFound)
	}
	for _, m := range o.Modes {
		if m == mode {
			o.Mode = mode
			return nil
		}
	}
	return fmt.Errorf("mode %+v not known for output %q: %w", mode, name, ErrInvalidArgument)
}

// SetCustomMode only succeeds if the numbers are positive, per spec.md §4.3.
func (r *OutputRegistry) SetCustomMode(name string, mode Mode) error {
	o, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("output %q: %w", name, ErrNotFound)
	}
	if mode.Width <= 0 || mode.Height <= 0 || mode.RefreshMHz <= 0 {
		return fmt.Errorf("custom mode must have positive dimensions: %w", ErrInvalidArgument)
	}
	o.Mode = mode
	o.Modes = append(o.Modes, mode)
	return nil
}
