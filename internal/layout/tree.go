// Package layout implements the Layout Protocol from spec.md §4.6: a
// bidirectional stream with an external configuration process that computes
// window geometry as a flexbox-style tree, which this package solves into
// rectangles and applies through the Transaction Engine.
package layout

import "github.com/bnema/pinnacle/internal/core"

// FlexDirection mirrors a taffy flex-direction value. Only Row and Column
// matter here since the configuration process never nests wrap behavior.
type FlexDirection int

const (
	Row FlexDirection = iota
	Column
)

// Margin is a box of per-side pixel margins.
type Margin struct {
	Top, Right, Bottom, Left int32
}

// Style carries the subset of taffy style properties the configuration
// process can set on a tree node.
type Style struct {
	Direction FlexDirection
	Margin    Margin
	// FlexBasis is this node's share of its parent's main-axis space,
	// relative to its siblings' FlexBasis values (a split ratio, not an
	// absolute size).
	FlexBasis float64
}

// TraversalOverride lets the configuration process renumber which window
// index a leaf at a given position in the tree corresponds to, for layouts
// that want non-sequential window-to-leaf mapping (e.g. a "master" pane
// drawn first but logically in the middle of the window stack).
type TraversalOverride struct {
	AtIndex int
	Windows int
}

// Node is one element of the layout tree returned by the configuration
// process. Leaves (no Children) correspond to windows in traversal order;
// non-leaves are split boxes.
type Node struct {
	TraversalIndex int
	Style          Style
	Label          string
	Overrides      []TraversalOverride
	Children       []*Node
}

// Tree is the full response payload for one output.
type Tree struct {
	Root *Node
}

// leafOrder walks the tree depth-first, yielding leaves in child order.
// Node.Overrides and Node.TraversalIndex are not consulted.
func leafOrder(n *Node) []*Node {
	if n == nil {
		return nil
	}
	if len(n.Children) == 0 {
		return []*Node{n}
	}
	var out []*Node
	for _, c := range n.Children {
		out = append(out, leafOrder(c)...)
	}
	return out
}

// Solve turns a layout tree into a rectangle per window id, mapping leaves
// to windowIds in traversal order. Windows beyond the leaf count, or leaves
// beyond the window count, are left unassigned.
func Solve(tree *Tree, area core.Rect, windowIds []core.WindowId) map[core.WindowId]core.Rect {
	result := make(map[core.WindowId]core.Rect)
	if tree == nil || tree.Root == nil {
		return result
	}
	leaves := leafOrder(tree.Root)
	rects := solveNode(tree.Root, area)

	n := len(leaves)
	if len(windowIds) < n {
		n = len(windowIds)
	}
	for i := 0; i < n; i++ {
		if r, ok := rects[leaves[i]]; ok {
			result[windowIds[i]] = r
		}
	}
	return result
}

// solveNode recursively distributes area along a node's children per their
// FlexBasis ratios on the node's flex direction, taffy-style: each child
// gets area.mainAxis * (its basis / sum of siblings' bases), full size on
// the cross axis, margins subtracted before children are measured.
func solveNode(n *Node, area core.Rect) map[*Node]core.Rect {
	out := make(map[*Node]core.Rect)
	area = applyMargin(area, n.Style.Margin)

	if len(n.Children) == 0 {
		out[n] = area
		return out
	}

	total := 0.0
	for _, c := range n.Children {
		b := c.Style.FlexBasis
		if b <= 0 {
			b = 1
		}
		total += b
	}
	if total <= 0 {
		total = float64(len(n.Children))
	}

	var offset int32
	for i, c := range n.Children {
		b := c.Style.FlexBasis
		if b <= 0 {
			b = 1
		}
		var childArea core.Rect
		switch n.Style.Direction {
		case Column:
			h := int32(float64(area.Height) * b / total)
			if i == len(n.Children)-1 {
				h = area.Height - offset
			}
			childArea = core.Rect{X: area.X, Y: area.Y + offset, Width: area.Width, Height: h}
			offset += h
		default: // Row
			w := int32(float64(area.Width) * b / total)
			if i == len(n.Children)-1 {
				w = area.Width - offset
			}
			childArea = core.Rect{X: area.X + offset, Y: area.Y, Width: w, Height: area.Height}
			offset += w
		}
		for node, rect := range solveNode(c, childArea) {
			out[node] = rect
		}
	}
	return out
}

func applyMargin(r core.Rect, m Margin) core.Rect {
	r.X += m.Left
	r.Y += m.Top
	r.Width -= m.Left + m.Right
	r.Height -= m.Top + m.Bottom
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	return r
}

// AncestorWithDirection walks up from a leaf's path to find the nearest
// ancestor whose flex direction matches axis, for resize-grab interplay per
// spec.md §4.6 ("Resize grab interplay"). path is the chain of nodes from
// root to the leaf, root first.
func AncestorWithDirection(path []*Node, axis FlexDirection) *Node {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].Style.Direction == axis {
			return path[i]
		}
	}
	return nil
}

// FindPath returns the root-to-node chain ending at target, or nil if
// target is not part of the tree.
func FindPath(root *Node, target *Node) []*Node {
	if root == nil {
		return nil
	}
	if root == target {
		return []*Node{root}
	}
	for _, c := range root.Children {
		if p := FindPath(c, target); p != nil {
			return append([]*Node{root}, p...)
		}
	}
	return nil
}

// AdjustSplitRatio mutates the FlexBasis of child and its immediately
// preceding sibling in parent.Children to move the boundary between them by
// delta (a fraction of the parent's total basis), keeping the sum of bases
// constant. This is how an interactive resize grab changes the tree without
// forcing the window to Floating.
func AdjustSplitRatio(parent *Node, childIndex int, delta float64) {
	if parent == nil || childIndex <= 0 || childIndex >= len(parent.Children) {
		return
	}
	prev := parent.Children[childIndex-1]
	next := parent.Children[childIndex]
	if prev.Style.FlexBasis <= 0 {
		prev.Style.FlexBasis = 1
	}
	if next.Style.FlexBasis <= 0 {
		next.Style.FlexBasis = 1
	}
	moved := delta
	if moved > next.Style.FlexBasis-0.01 {
		moved = next.Style.FlexBasis - 0.01
	}
	if -moved > prev.Style.FlexBasis-0.01 {
		moved = -(prev.Style.FlexBasis - 0.01)
	}
	prev.Style.FlexBasis += moved
	next.Style.FlexBasis -= moved
}
