package core

// Transform is one of the eight octahedral output orientations a compositor
// can apply to a physical display's scanout.
type Transform int

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

// Mode is a pixel size plus a refresh rate in millihertz.
type Mode struct {
	Width, Height int32
	RefreshMHz    int32
}

// Point is an unbounded signed 2-D logical coordinate.
type Point struct {
	X, Y int32
}

// Rect is an axis-aligned logical rectangle.
type Rect struct {
	X, Y, Width, Height int32
}

// Contains reports whether the point (x, y) lies within the rectangle.
func (r Rect) Contains(x, y int32) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Output represents one physical (or headless) display, per spec.md §3.
type Output struct {
	Name           string
	Make           string
	Model          string
	Serial         string
	Mode           Mode
	Modes          []Mode
	PreferredMode  Mode
	Transform      Transform
	Scale          float64
	Location       Point
	Enabled        bool
	Powered        bool
	Tags           []TagId
	FocusStack     []WindowId // most-recently-focused window first
	ManagementSerial uint32   // for the external wlr-output-management view
}

// MinScale is the lowest fractional scale an output may be set to.
const MinScale = 0.25

// UsableRect returns the output's logical rectangle in the global space.
func (o *Output) UsableRect() Rect {
	return Rect{
		X:      o.Location.X,
		Y:      o.Location.Y,
		Width:  o.Mode.Width,
		Height: o.Mode.Height,
	}
}

// HasTag reports whether t belongs to this output's tag list.
func (o *Output) HasTag(t TagId) bool {
	for _, id := range o.Tags {
		if id == t {
			return true
		}
	}
	return false
}

// RemoveTag deletes t from the output's tag list, if present.
func (o *Output) RemoveTag(t TagId) {
	for i, id := range o.Tags {
		if id == t {
			o.Tags = append(o.Tags[:i], o.Tags[i+1:]...)
			return
		}
	}
}

// PushFocus moves w to the front of the focus stack, removing any prior
// occurrence, per spec.md §3 ("focus stack, most-recently-focused first").
func (o *Output) PushFocus(w WindowId) {
	o.dropFocus(w)
	o.FocusStack = append([]WindowId{w}, o.FocusStack...)
}

// dropFocus removes w from the focus stack wherever it appears.
func (o *Output) dropFocus(w WindowId) {
	for i, id := range o.FocusStack {
		if id == w {
			o.FocusStack = append(o.FocusStack[:i], o.FocusStack[i+1:]...)
			return
		}
	}
}

// TopFocus returns the most-recently-focused window on this output, if any.
func (o *Output) TopFocus() (WindowId, bool) {
	if len(o.FocusStack) == 0 {
		return 0, false
	}
	return o.FocusStack[0], true
}
