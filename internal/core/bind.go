package core

// ModSlotState is the three-valued state of one modifier slot in a ModMask,
// per spec.md §3.
type ModSlotState int

const (
	Ignored ModSlotState = iota
	Required
	Forbidden
)

// ModMask has six optional modifier slots. Grounded on the teacher's
// hotkey_capture.go bitmask constants (ModCtrl/ModAlt/ModShift/ModSuper),
// generalized to three-valued slots and extended with the two ISO-Level
// slots spec.md §3 names.
type ModMask struct {
	Shift     ModSlotState
	Ctrl      ModSlotState
	Alt       ModSlotState
	Super     ModSlotState
	IsoLevel3 ModSlotState
	IsoLevel5 ModSlotState
}

// ActiveMods is the bitmask of modifiers actually held, as reported per
// event by libxkbcommon (named interface only — that boundary is out of
// scope per spec.md §1).
type ActiveMods struct {
	Shift, Ctrl, Alt, Super, IsoLevel3, IsoLevel5 bool
}

// Matches reports whether the held modifiers satisfy this mask: every
// Required slot is held, every Forbidden slot is not, and Ignored slots
// don't matter either way.
func (m ModMask) Matches(held ActiveMods) bool {
	check := func(state ModSlotState, isHeld bool) bool {
		switch state {
		case Required:
			return isHeld
		case Forbidden:
			return !isHeld
		default:
			return true
		}
	}
	return check(m.Shift, held.Shift) &&
		check(m.Ctrl, held.Ctrl) &&
		check(m.Alt, held.Alt) &&
		check(m.Super, held.Super) &&
		check(m.IsoLevel3, held.IsoLevel3) &&
		check(m.IsoLevel5, held.IsoLevel5)
}

// BindKind distinguishes a keybind from a mousebind.
type BindKind int

const (
	KeyBind BindKind = iota
	MouseBind
)

// MouseEdge controls when a mousebind fires relative to press/release.
type MouseEdge int

const (
	EdgePress MouseEdge = iota
	EdgeRelease
	EdgeAny
)

// Bind is either a Keybind(keysym, ModMask) or a Mousebind(button, ModMask),
// per spec.md §3.
type Bind struct {
	Id    BindId
	Kind  BindKind
	Layer string // empty string is the default layer

	Keysym uint32 // valid when Kind == KeyBind
	Button uint32 // valid when Kind == MouseBind
	Mods   ModMask
	Edge   MouseEdge // valid when Kind == MouseBind

	Group       string
	Description string

	Quit              bool
	ReloadConfig      bool
	AllowWhenLocked   bool
	HasOnPressHandler bool
}

// Matches reports whether this bind fires for the given keysym/button and
// held modifiers.
func (b *Bind) Matches(symOrButton uint32, held ActiveMods) bool {
	if !b.Mods.Matches(held) {
		return false
	}
	if b.Kind == KeyBind {
		return b.Keysym == symOrButton
	}
	return b.Button == symOrButton
}

// LayerStack is the ordered bind-layer stack from spec.md §4.7: the first
// entry is active, deeper entries are remembered but inactive. The default
// unnamed layer is always implicitly at the bottom and can't be popped.
type LayerStack struct {
	layers []string // layers[0] is active; default layer is not stored, it's implicit
}

// Active returns the name of the currently active layer ("" for default).
func (s *LayerStack) Active() string {
	if len(s.layers) == 0 {
		return ""
	}
	return s.layers[0]
}

// Stack returns the full stack, topmost first, with the implicit default
// layer appended at the bottom.
func (s *LayerStack) Stack() []string {
	out := make([]string, 0, len(s.layers)+1)
	out = append(out, s.layers...)
	out = append(out, "")
	return out
}

// Enter promotes layer to the top of the stack, creating it if absent.
// Entering the default layer ("") is a no-op since it's always at the floor.
func (s *LayerStack) Enter(layer string) {
	if layer == "" {
		return
	}
	for i, l := range s.layers {
		if l == layer {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			break
		}
	}
	s.layers = append([]string{layer}, s.layers...)
}

// Pop removes the top layer. A no-op if the stack is empty (only the
// default layer remains, and the default layer is never popped).
func (s *LayerStack) Pop() {
	if len(s.layers) == 0 {
		return
	}
	s.layers = s.layers[1:]
}
