package input

import "github.com/bnema/pinnacle/internal/core"

// KeyResult reports what happened to one keyboard event.
type KeyResult struct {
	Consumed bool // true if a bind's on_press handler took the event
	BindId   core.BindId
	Quit     bool // the quit bind fired
	Reload   bool // the reload_config bind fired
}

// Dispatcher routes keyboard/pointer events through the bind-layer stack,
// per spec.md §4.7. It must only be driven from the state-loop goroutine.
type Dispatcher struct {
	Binds  *BindStore
	Layers core.LayerStack

	// pressedKeys/pressedButtons track, for each currently-held code, which
	// bind consumed its press — so the matching release is delivered to
	// that same bind "even if the active layer changed in between"
	// (spec.md §4.7 "Pipeline").
	pressedKeys    map[uint32]core.BindId
	pressedButtons map[uint32]core.BindId

	// GrabActive suppresses mousebind dispatch while an interactive
	// move/resize grab is in progress (spec.md §4.7 "Mouse edges").
	GrabActive bool
}

// NewDispatcher constructs a Dispatcher bound to a BindStore.
func NewDispatcher(binds *BindStore) *Dispatcher {
	return &Dispatcher{
		Binds:          binds,
		pressedKeys:    make(map[uint32]core.BindId),
		pressedButtons: make(map[uint32]core.BindId),
	}
}

// firstMatchInLayer returns the first registered keybind in the given
// layer that matches keysym+mods and has an on-press handler.
func (d *Dispatcher) firstMatchInLayer(layer string, keysym uint32, mods core.ActiveMods) *core.Bind {
	for _, b := range d.Binds.All() {
		if b.Kind != core.KeyBind || b.Layer != layer || !b.HasOnPressHandler {
			continue
		}
		if b.Matches(keysym, mods) {
			return b
		}
	}
	return nil
}

// HandleKeyPress walks the layer stack top-down looking for a consuming
// bind, per spec.md §4.7 "Pipeline." If nothing in the stack consumes the
// event, the quit/reload binds are consulted last, per the same section's
// "Quit & reload binds."
func (d *Dispatcher) HandleKeyPress(keysym uint32, mods core.ActiveMods) KeyResult {
	for _, layer := range d.Layers.Stack() {
		if b := d.firstMatchInLayer(layer, keysym, mods); b != nil {
			d.pressedKeys[keysym] = b.Id
			d.Binds.emit(b.Id, Press)
			return KeyResult{Consumed: true, BindId: b.Id}
		}
	}

	if id, ok := d.Binds.QuitBind(); ok {
		if b, ok := d.Binds.Get(id); ok && b.Kind == core.KeyBind && b.Matches(keysym, mods) {
			d.pressedKeys[keysym] = id
			d.Binds.emit(id, Press)
			return KeyResult{Consumed: true, BindId: id, Quit: true}
		}
	}
	if id, ok := d.Binds.ReloadBind(); ok {
		if b, ok := d.Binds.Get(id); ok && b.Kind == core.KeyBind && b.Matches(keysym, mods) {
			d.pressedKeys[keysym] = id
			d.Binds.emit(id, Press)
			return KeyResult{Consumed: true, BindId: id, Reload: true}
		}
	}

	return KeyResult{Consumed: false}
}

// HandleKeyRelease delivers a release to whichever bind consumed the
// matching press, regardless of the layer stack's current shape, per
// spec.md §8's "exactly one matching release... regardless of intervening
// layer changes." Returns false if no press for this keysym was pending
// (the event should fall through to the focused surface).
func (d *Dispatcher) HandleKeyRelease(keysym uint32) (core.BindId, bool) {
	id, ok := d.pressedKeys[keysym]
	if !ok {
		return 0, false
	}
	delete(d.pressedKeys, keysym)
	d.Binds.emit(id, Release)
	return id, true
}

// MouseResult reports what happened to one pointer-button event.
type MouseResult struct {
	Consumed bool
	BindId   core.BindId
}

// HandleMousePress matches a mousebind on press, honoring GrabActive
// suppression and the bind's configured Edge.
func (d *Dispatcher) HandleMousePress(button uint32, mods core.ActiveMods) MouseResult {
	if d.GrabActive {
		return MouseResult{}
	}
	for _, layer := range d.Layers.Stack() {
		for _, b := range d.Binds.All() {
			if b.Kind != core.MouseBind || b.Layer != layer {
				continue
			}
			if b.Edge != core.EdgePress && b.Edge != core.EdgeAny {
				continue
			}
			if b.Matches(button, mods) {
				d.pressedButtons[button] = b.Id
				d.Binds.emit(b.Id, Press)
				return MouseResult{Consumed: true, BindId: b.Id}
			}
		}
	}
	return MouseResult{}
}

// HandleMouseRelease matches a mousebind on release: first, whichever bind
// consumed the corresponding press (so a Press+Any-edge bind also gets its
// release); otherwise any bind directly configured for Release/Any.
func (d *Dispatcher) HandleMouseRelease(button uint32, mods core.ActiveMods) MouseResult {
	if id, ok := d.pressedButtons[button]; ok {
		delete(d.pressedButtons, button)
		d.Binds.emit(id, Release)
		return MouseResult{Consumed: true, BindId: id}
	}
	if d.GrabActive {
		return MouseResult{}
	}
	for _, layer := range d.Layers.Stack() {
		for _, b := range d.Binds.All() {
			if b.Kind != core.MouseBind || b.Layer != layer {
				continue
			}
			if b.Edge != core.EdgeRelease && b.Edge != core.EdgeAny {
				continue
			}
			if b.Matches(button, mods) {
				d.Binds.emit(b.Id, Release)
				return MouseResult{Consumed: true, BindId: b.Id}
			}
		}
	}
	return MouseResult{}
}
