package layout

import "github.com/bnema/pinnacle/internal/core"

// ResizeGrab mutates an output's live layout tree directly rather than
// forcing the dragged window to Floating, per spec.md §4.6 "Resize grab
// interplay." axis picks which ancestor direction the drag moves along
// (Row for a horizontal drag, Column for vertical).
func (e *Engine) ResizeGrab(outputName string, windowId core.WindowId, axis FlexDirection, delta float64, area core.Rect, visibleWindows []core.WindowId) map[core.WindowId]core.Rect {
	tree := e.trees[outputName]
	if tree == nil || tree.Root == nil {
		return nil
	}

	leaves := leafOrder(tree.Root)
	idx := -1
	for i, id := range visibleWindows {
		if id == windowId {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(leaves) {
		return nil
	}

	leaf := leaves[idx]
	path := FindPath(tree.Root, leaf)
	ancestor := AncestorWithDirection(path, axis)
	if ancestor == nil {
		return nil
	}

	childIdx := -1
	for i, c := range path {
		if i == 0 {
			continue
		}
		if path[i-1] == ancestor {
			childIdx = indexOf(ancestor.Children, c)
			break
		}
	}
	if childIdx <= 0 {
		return nil
	}

	AdjustSplitRatio(ancestor, childIdx, delta)
	return Solve(tree, area, visibleWindows)
}

func indexOf(nodes []*Node, target *Node) int {
	for i, n := range nodes {
		if n == target {
			return i
		}
	}
	return -1
}
