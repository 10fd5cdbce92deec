package model

import (
	"fmt"
	"strconv"

	"samefiles/internal/hash"
	"samefiles/internal/notify"
)

// RowCount returns the number of children of parent. Root always has one
// more row than there are groups: the unique bucket.
func (e *Engine) RowCount(parent NodeID) int {
	if parent == notify.Root {
		return len(e.groups) + 1
	}
	if n, ok := e.nodes[parent]; ok {
		return len(n.children)
	}
	return 0
}

// Child returns the node at row under parent.
func (e *Engine) Child(parent NodeID, row int) (NodeID, bool) {
	if row < 0 {
		return 0, false
	}
	if parent == notify.Root {
		switch {
		case row < len(e.groups):
			return e.groups[row], true
		case row == len(e.groups):
			return notify.Unique, true
		default:
			return 0, false
		}
	}
	n, ok := e.nodes[parent]
	if !ok || row >= len(n.children) {
		return 0, false
	}
	return n.children[row], true
}

// Parent returns the container of id. Groups and the unique bucket have
// Root as parent; Root itself has none.
func (e *Engine) Parent(id NodeID) (NodeID, bool) {
	n, ok := e.nodes[id]
	if !ok {
		return 0, false
	}
	if n.kind == KindFile && n.parent == notify.Root {
		return 0, false
	}
	return n.parent, true
}

// Row returns the position of id under its parent.
func (e *Engine) Row(id NodeID) (int, bool) {
	n, ok := e.nodes[id]
	if !ok {
		return 0, false
	}
	switch n.kind {
	case KindUnique:
		return e.uniqueRow(), true
	case KindGroup:
		return e.groupRow(id), true
	default:
		if n.parent == notify.Root {
			return 0, false
		}
		return e.childRow(n.parent, id), true
	}
}

func (e *Engine) Kind(id NodeID) (Kind, bool) {
	n, ok := e.nodes[id]
	if !ok {
		return 0, false
	}
	return n.kind, true
}

// Entry returns a copy of the file node id.
func (e *Engine) Entry(id NodeID) (Entry, bool) {
	n, ok := e.nodes[id]
	if !ok || n.kind != KindFile {
		return Entry{}, false
	}
	return entryOf(id, n), true
}

// Label is the display text of a row.
func (e *Engine) Label(id NodeID) string {
	n, ok := e.nodes[id]
	if !ok {
		return ""
	}
	switch n.kind {
	case KindUnique:
		return strconv.Itoa(len(n.children)) + " unique files"
	case KindGroup:
		return strconv.Itoa(len(n.children)) + " same files"
	default:
		return n.path
	}
}

// Lookup finds the live file with the given path.
func (e *Engine) Lookup(path string) (NodeID, bool) {
	for _, g := range e.groups {
		for _, id := range e.nodes[g].children {
			if e.nodes[id].path == path {
				return id, true
			}
		}
	}
	for _, id := range e.bucket().children {
		if e.nodes[id].path == path {
			return id, true
		}
	}
	return 0, false
}

// Groups returns a copy of every group in row order.
func (e *Engine) Groups() []Group {
	out := make([]Group, 0, len(e.groups))
	for _, id := range e.groups {
		g := e.nodes[id]
		out = append(out, Group{ID: id, Hash: g.hash, Files: e.entries(g.children)})
	}
	return out
}

// Unique returns a copy of the unique bucket in row order.
func (e *Engine) Unique() []Entry {
	return e.entries(e.bucket().children)
}

func (e *Engine) entries(ids []NodeID) []Entry {
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, entryOf(id, e.nodes[id]))
	}
	return out
}

func entryOf(id NodeID, n *node) Entry {
	return Entry{ID: id, Path: n.path, Size: n.size, Hash: n.hash}
}

// Ingested is the number of files ingested since the last reset. Deletions
// do not lower it.
func (e *Engine) Ingested() int {
	return e.ingested
}

// FileCount is the number of files currently in the tree.
func (e *Engine) FileCount() int {
	count := len(e.bucket().children)
	for _, id := range e.groups {
		count += len(e.nodes[id].children)
	}
	return count
}

// Verify checks the structural invariants and returns the first violation.
func (e *Engine) Verify() error {
	for row, id := range e.groups {
		g, ok := e.nodes[id]
		if !ok || g.kind != KindGroup {
			return fmt.Errorf("row %d: %s is not a live group", row, id)
		}
		if len(g.children) < 2 {
			return fmt.Errorf("group %s at row %d has %d files", id, row, len(g.children))
		}
		if got, ok := e.groupIndex[g.hash]; !ok || got != row {
			return fmt.Errorf("group %s: index row %d, actual row %d", id, got, row)
		}
		if _, ok := e.uniqueIndex[g.hash]; ok {
			return fmt.Errorf("hash %s tracked as both group and unique", g.hash.Short())
		}
		for _, c := range g.children {
			f := e.nodes[c]
			if f.parent != id || f.hash != g.hash {
				return fmt.Errorf("file %s misplaced under group %s", c, id)
			}
		}
	}
	if len(e.groupIndex) != len(e.groups) {
		return fmt.Errorf("group index has %d entries for %d groups", len(e.groupIndex), len(e.groups))
	}

	seen := make(map[hash.Digest]bool)
	for pos, id := range e.bucket().children {
		f := e.nodes[id]
		if f.parent != notify.Unique {
			return fmt.Errorf("file %s in unique bucket has parent %s", id, f.parent)
		}
		if seen[f.hash] {
			return fmt.Errorf("hash %s appears twice in unique bucket", f.hash.Short())
		}
		seen[f.hash] = true
		recorded, ok := e.uniqueIndex[f.hash]
		if !ok {
			return fmt.Errorf("unique file %s has no index entry", id)
		}
		if recorded < pos {
			return fmt.Errorf("unique file %s recorded at %d below its row %d", id, recorded, pos)
		}
	}
	if len(e.uniqueIndex) != len(seen) {
		return fmt.Errorf("unique index has %d entries for %d files", len(e.uniqueIndex), len(seen))
	}
	return nil
}
