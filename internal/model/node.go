package model

import (
	"samefiles/internal/hash"
	"samefiles/internal/notify"
)

// NodeID addresses a node in the engine's arena.
type NodeID = notify.NodeID

// Kind tells files apart from the two container kinds.
type Kind int

const (
	KindFile Kind = iota
	KindGroup
	KindUnique
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindGroup:
		return "group"
	case KindUnique:
		return "unique"
	default:
		return "unknown"
	}
}

// node is one arena slot. Parents are stored as IDs so that promotion and
// dissolution are plain field updates. A file whose parent is Root is
// detached (only ever true mid-move).
type node struct {
	kind     Kind
	parent   NodeID
	path     string
	size     int64
	hash     hash.Digest
	children []NodeID
}

// Entry is a read-only copy of a file node.
type Entry struct {
	ID   NodeID
	Path string
	Size int64
	Hash hash.Digest
}

// Group is a read-only copy of a group and its files in row order.
type Group struct {
	ID    NodeID
	Hash  hash.Digest
	Files []Entry
}

// Wasted is the number of bytes that would be freed by keeping one file.
func (g Group) Wasted() int64 {
	if len(g.Files) < 2 {
		return 0
	}
	return g.Files[0].Size * int64(len(g.Files)-1)
}
