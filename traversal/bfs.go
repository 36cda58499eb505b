// Package traversal walks comment forests breadth-first.
package traversal

import (
	"iter"

	"storybot/types"
)

// Traverse yields the comments of a forest in strict breadth-first order:
// every comment at depth d precedes every comment at depth d+1, and siblings
// keep the order supplied by the upstream source. At most limit comments are
// yielded; limit <= 0 means no limit.
//
// Depth and ParentID are filled in from the walk, so the yielded values
// describe their position in this forest even when the upstream left them unset.
func Traverse(roots []*types.Comment, limit int) iter.Seq[*types.Comment] {
	return func(yield func(*types.Comment) bool) {
		walk(roots, limit, yield)
	}
}

type queued struct {
	comment *types.Comment
	parent  string
	depth   int
}

// walk visits comments breadth-first until visit returns false, limit nodes
// have been visited, or the forest is exhausted. It reports how many nodes were
// visited and whether unvisited nodes remained when it stopped.
func walk(roots []*types.Comment, limit int, visit func(*types.Comment) bool) (visited int, truncated bool) {
	queue := make([]queued, 0, len(roots))
	for _, c := range roots {
		queue = append(queue, queued{comment: c})
	}

	seenIDs := make(map[string]bool)
	seenNodes := make(map[*types.Comment]bool)

	for head := 0; head < len(queue); head++ {
		item := queue[head]
		c := item.comment
		if c == nil || seenNodes[c] {
			continue
		}
		if c.ID != "" {
			if seenIDs[c.ID] {
				continue
			}
			seenIDs[c.ID] = true
		}
		seenNodes[c] = true

		if limit > 0 && visited >= limit {
			return visited, true
		}

		c.Depth = item.depth
		if item.parent != "" && c.ParentID == "" {
			c.ParentID = item.parent
		}
		visited++

		for _, r := range c.Replies {
			queue = append(queue, queued{comment: r, parent: c.ID, depth: item.depth + 1})
		}

		if !visit(c) {
			return visited, head < len(queue)-1
		}
	}
	return visited, false
}
