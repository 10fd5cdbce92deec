// Package notify defines the change notifications the grouping engine emits
// so that a live view can keep its cached row addressing in sync without
// rebuilding itself.
//
// Structural changes arrive as matched pairs: RowsAboutToBeInserted is always
// followed by RowsInserted with the same arguments before any other
// notification, and likewise for removals and resets. Brackets never nest or
// overlap. Within one engine operation, rows leaving a region are reported
// before rows entering it, and a new top-level row is inserted before any of
// its children.
//
// Rows are addressed by (parent, row). Files have a group or the unique
// bucket as parent; groups and the unique bucket have Root as parent. The
// unique bucket is always the last row under Root.
package notify

import "fmt"

// NodeID identifies a node in the engine's arena. IDs are never reused
// within the lifetime of an engine, so a stale ID resolves to nothing.
type NodeID uint64

const (
	// Root is the virtual parent of every group and of the unique bucket.
	Root NodeID = 0
	// Unique is the bucket holding files with no known duplicate.
	Unique NodeID = 1
)

func (id NodeID) String() string {
	switch id {
	case Root:
		return "root"
	case Unique:
		return "unique"
	default:
		return fmt.Sprintf("node#%d", uint64(id))
	}
}

// Listener receives structural change notifications. Calls happen on the
// goroutine that mutates the engine; the engine is fully consistent again
// only after the closing call of a bracket.
type Listener interface {
	RowsAboutToBeInserted(parent NodeID, first, last int)
	RowsInserted(parent NodeID, first, last int)
	RowsAboutToBeRemoved(parent NodeID, first, last int)
	RowsRemoved(parent NodeID, first, last int)
	// DataChanged reports that the displayed data of one row changed
	// (for a group, its file count).
	DataChanged(parent NodeID, row int)
	TreeAboutToReset()
	TreeReset()
}

// ProgressListener receives the running file count during a scan and the
// final count when the scan ends.
type ProgressListener interface {
	ScanProgress(count int)
	ScanComplete(count int)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) RowsAboutToBeInserted(NodeID, int, int) {}
func (Nop) RowsInserted(NodeID, int, int) {}
func (Nop) RowsAboutToBeRemoved(NodeID, int, int) {}
func (Nop) RowsRemoved(NodeID, int, int) {}
func (Nop) DataChanged(NodeID, int) {}
func (Nop) TreeAboutToReset() {}
func (Nop) TreeReset() {}
