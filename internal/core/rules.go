package core

// RuleCondition matches a newly-mapped window against declared criteria.
// A nil field means "don't care"; every non-nil field must match, in the
// spirit of the teacher's device_selector.go matching style.
type RuleCondition struct {
	AppId  *string
	Title  *string
	Tag    *TagId
	Output *string
}

func matchesString(want *string, have string) bool {
	return want == nil || *want == have
}

// Matches reports whether a window satisfies this condition.
func (c RuleCondition) Matches(w *Window, outputName string) bool {
	if !matchesString(c.AppId, w.AppId) {
		return false
	}
	if !matchesString(c.Title, w.Title) {
		return false
	}
	if c.Tag != nil && !w.HasTag(*c.Tag) {
		return false
	}
	if !matchesString(c.Output, outputName) {
		return false
	}
	return true
}

// RuleEffect is what a matching rule applies. Every field is optional;
// fields set by later rules override earlier ones, per spec.md §4.2.
type RuleEffect struct {
	Tags          []TagId
	LayoutMode    *LayoutModeKind
	FloatingRect  *Rect
	Decoration    *DecorationMode
	OutputName    *string
}

// Rule pairs a condition with an effect, applied in declaration order.
type Rule struct {
	Condition RuleCondition
	Effect    RuleEffect
}

// RuleEngine matches newly-mapped windows against user-declared rules, per
// spec.md §4.2. Grounded on the teacher's device_selector.go condition-
// matching style, generalized from single-field device selection to
// multi-field window rules.
type RuleEngine struct {
	rules []Rule
}

// NewRuleEngine constructs an empty engine (no rules configured).
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

// SetRules replaces the whole rule set, e.g. on configuration reload.
func (e *RuleEngine) SetRules(rules []Rule) {
	e.rules = rules
}

// Apply walks every rule in declaration order, merging the effects of every
// match into a single accumulated RuleEffect (later rules override earlier
// ones field-by-field).
func (e *RuleEngine) Apply(w *Window, outputName string) RuleEffect {
	var acc RuleEffect
	for _, rule := range e.rules {
		if !rule.Condition.Matches(w, outputName) {
			continue
		}
		eff := rule.Effect
		if eff.Tags != nil {
			acc.Tags = eff.Tags
		}
		if eff.LayoutMode != nil {
			acc.LayoutMode = eff.LayoutMode
		}
		if eff.FloatingRect != nil {
			acc.FloatingRect = eff.FloatingRect
		}
		if eff.Decoration != nil {
			acc.Decoration = eff.Decoration
		}
		if eff.OutputName != nil {
			acc.OutputName = eff.OutputName
		}
	}
	return acc
}

// ApplyEffect applies the accumulated effect directly onto a freshly-added
// window, as the compositor orchestration layer does right after Add.
func ApplyEffect(w *Window, eff RuleEffect) {
	if eff.Tags != nil {
		w.Tags = append([]TagId(nil), eff.Tags...)
	}
	if eff.LayoutMode != nil {
		w.Mode = LayoutMode{Kind: *eff.LayoutMode}
	}
	if eff.FloatingRect != nil {
		w.FloatingRect = *eff.FloatingRect
		if w.Mode.Kind == Floating {
			w.Committed = *eff.FloatingRect
		}
	}
	if eff.Decoration != nil {
		w.Decoration = *eff.Decoration
	}
}
