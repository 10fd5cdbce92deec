// Package model holds the incremental duplicate-grouping engine.
//
// The engine keeps a two-level tree: groups of files sharing a content hash
// (always at least two files each), followed by a single bucket of files
// with no known duplicate. Every structural change is reported to a
// notify.Listener as it happens, so an observer never has to rebuild its
// view of the tree.
//
// An Engine is not safe for concurrent use. Ingestion and deletion must be
// serialized by the caller; the session package does this with a single
// consumer loop. Listener callbacks run on that same goroutine and may read
// the engine freely.
package model

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"samefiles/internal/hash"
	"samefiles/internal/notify"
)

// ErrInvalidRef is returned by the delete operations when the reference does
// not name a live file (a container, an unknown ID or an already removed
// entry). Nothing is changed and nothing is emitted in that case.
var ErrInvalidRef = errors.New("reference does not name a file")

// RemoveFunc deletes a file from storage.
type RemoveFunc func(path string) error

type Options struct {
	// Listener receives structural notifications. If it also implements
	// notify.ProgressListener it receives the running count after each
	// ingest.
	Listener notify.Listener
	// Remove deletes files from storage. Defaults to os.Remove.
	Remove RemoveFunc
	Logger *slog.Logger
}

type Engine struct {
	listener notify.Listener
	progress notify.ProgressListener
	remove   RemoveFunc
	logger   *slog.Logger

	nodes  map[NodeID]*node
	nextID NodeID

	// groups holds group IDs in row order under Root.
	groups []NodeID
	// groupIndex maps a hash to its group's row. Always exact.
	groupIndex map[hash.Digest]int
	// uniqueIndex maps a hash with exactly one known file to the position
	// that file had when it was appended to the unique bucket. Removals
	// from the bucket can leave the position too high; see locateUnique.
	uniqueIndex map[hash.Digest]int

	ingested int
}

func New(opts Options) *Engine {
	e := &Engine{
		listener: opts.Listener,
		remove:   opts.Remove,
		logger:   opts.Logger,
		nextID:   notify.Unique + 1,
	}
	if e.listener == nil {
		e.listener = notify.Nop{}
	}
	if p, ok := e.listener.(notify.ProgressListener); ok {
		e.progress = p
	}
	if e.remove == nil {
		e.remove = os.Remove
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	e.clear()
	return e
}

func (e *Engine) clear() {
	e.nodes = map[NodeID]*node{
		notify.Unique: {kind: KindUnique, parent: notify.Root},
	}
	e.groups = nil
	e.groupIndex = make(map[hash.Digest]int)
	e.uniqueIndex = make(map[hash.Digest]int)
	e.ingested = 0
}

// Reset discards the whole tree and the progress counter. IDs handed out
// before the reset stay invalid afterwards.
func (e *Engine) Reset() {
	e.listener.TreeAboutToReset()
	e.clear()
	e.listener.TreeReset()
}

// Ingest adds one hashed file and returns its ID.
func (e *Engine) Ingest(path string, sum hash.Digest, size int64) NodeID {
	id := e.newNode(&node{kind: KindFile, path: path, size: size, hash: sum})

	if row, ok := e.groupIndex[sum]; ok {
		e.appendChild(e.groups[row], id)
		e.listener.DataChanged(notify.Root, row)
	} else if pos, ok := e.uniqueIndex[sum]; !ok {
		e.uniqueIndex[sum] = len(e.bucket().children)
		e.appendChild(notify.Unique, id)
		e.listener.DataChanged(notify.Root, e.uniqueRow())
	} else {
		e.promote(sum, pos, id)
	}

	e.ingested++
	if e.progress != nil {
		e.progress.ScanProgress(e.ingested)
	}
	return id
}

// promote handles the second file of a hash: the first one leaves the
// unique bucket and both become the children of a new group. Removal from
// the bucket is emitted before the group row is inserted, and the group row
// exists before anything is inserted under it.
func (e *Engine) promote(sum hash.Digest, pos int, id NodeID) {
	delete(e.uniqueIndex, sum)

	row, found := e.locateUnique(sum, pos)
	if !found {
		e.logger.Warn("unique entry missing, keeping new file as unique",
			"hash", sum.Short(), "recorded_position", pos)
		e.uniqueIndex[sum] = len(e.bucket().children)
		e.appendChild(notify.Unique, id)
		e.listener.DataChanged(notify.Root, e.uniqueRow())
		return
	}

	first := e.removeChild(notify.Unique, row)

	group := e.newNode(&node{kind: KindGroup, parent: notify.Root, hash: sum})
	groupRow := len(e.groups)
	e.listener.RowsAboutToBeInserted(notify.Root, groupRow, groupRow)
	e.groups = append(e.groups, group)
	e.groupIndex[sum] = groupRow
	e.listener.RowsInserted(notify.Root, groupRow, groupRow)

	e.insertChild(group, 0, first)
	e.insertChild(group, 1, id)

	e.listener.DataChanged(notify.Root, groupRow)
	e.listener.DataChanged(notify.Root, e.uniqueRow())
}

// locateUnique finds the bucket row of the file with the given hash,
// starting at its recorded position. Files ahead of it may have been
// deleted since the position was recorded, which only ever moves it to a
// lower row, so the search walks backward until the hash matches.
func (e *Engine) locateUnique(sum hash.Digest, pos int) (int, bool) {
	children := e.bucket().children
	if pos >= len(children) {
		pos = len(children) - 1
	}
	for ; pos >= 0; pos-- {
		if e.nodes[children[pos]].hash == sum {
			return pos, true
		}
	}
	return -1, false
}

// DeleteFile removes a file from storage and from the tree. The tree is
// updated even if the storage removal fails; that failure is returned. A
// group left with one file is dissolved and its survivor moves to the end
// of the unique bucket.
func (e *Engine) DeleteFile(ref NodeID) error {
	n, ok := e.file(ref)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}

	parent := n.parent
	row := e.childRow(parent, ref)
	removeErr := e.removeFromStorage(n.path)

	e.removeChild(parent, row)
	delete(e.nodes, ref)

	if parent == notify.Unique {
		delete(e.uniqueIndex, n.hash)
		e.listener.DataChanged(notify.Root, e.uniqueRow())
		return removeErr
	}

	if len(e.nodes[parent].children) >= 2 {
		e.listener.DataChanged(notify.Root, e.groupRow(parent))
		return removeErr
	}

	survivor := e.removeChild(parent, 0)
	e.dissolve(parent, survivor)
	return removeErr
}

// DeleteGroupExceptOne removes every other file of ref's group from storage
// and from the tree, then dissolves the group so that ref ends up in the
// unique bucket. Storage failures are joined and returned; the tree is
// updated regardless.
func (e *Engine) DeleteGroupExceptOne(ref NodeID) error {
	n, ok := e.file(ref)
	if !ok || n.parent == notify.Unique {
		return fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}

	group := n.parent
	children := e.nodes[group].children
	keep := e.childRow(group, ref)

	var errs []error
	for _, id := range children {
		if id == ref {
			continue
		}
		if err := e.removeFromStorage(e.nodes[id].path); err != nil {
			errs = append(errs, err)
		}
	}

	// Later siblings first so the kept row is still valid for the second
	// range.
	if last := len(children) - 1; keep < last {
		e.removeRange(group, keep+1, last)
	}
	if keep > 0 {
		e.removeRange(group, 0, keep-1)
	}

	survivor := e.removeChild(group, 0)
	e.dissolve(group, survivor)
	return errors.Join(errs...)
}

// dissolve removes an emptied group's row, shifts the rows recorded for
// later groups, and appends the survivor to the unique bucket.
func (e *Engine) dissolve(group NodeID, survivor NodeID) {
	g := e.nodes[group]
	row := e.groupRow(group)

	e.listener.RowsAboutToBeRemoved(notify.Root, row, row)
	e.groups = slices.Delete(e.groups, row, row+1)
	delete(e.nodes, group)
	delete(e.groupIndex, g.hash)
	for h, r := range e.groupIndex {
		if r > row {
			e.groupIndex[h] = r - 1
		}
	}
	e.listener.RowsRemoved(notify.Root, row, row)

	e.uniqueIndex[g.hash] = len(e.bucket().children)
	e.appendChild(notify.Unique, survivor)
	e.listener.DataChanged(notify.Root, e.uniqueRow())
}

func (e *Engine) removeFromStorage(path string) error {
	if err := e.remove(path); err != nil {
		e.logger.Warn("failed to remove file", "path", path, "error", err)
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	e.logger.Info("removed file", "path", path)
	return nil
}

func (e *Engine) newNode(n *node) NodeID {
	id := e.nextID
	e.nextID++
	e.nodes[id] = n
	return id
}

func (e *Engine) bucket() *node {
	return e.nodes[notify.Unique]
}

func (e *Engine) uniqueRow() int {
	return len(e.groups)
}

// file returns a live, attached file node.
func (e *Engine) file(id NodeID) (*node, bool) {
	n, ok := e.nodes[id]
	if !ok || n.kind != KindFile || n.parent == notify.Root {
		return nil, false
	}
	return n, true
}

func (e *Engine) groupRow(group NodeID) int {
	if row, ok := e.groupIndex[e.nodes[group].hash]; ok && row < len(e.groups) && e.groups[row] == group {
		return row
	}
	return slices.Index(e.groups, group)
}

func (e *Engine) childRow(parent, child NodeID) int {
	return slices.Index(e.nodes[parent].children, child)
}

// insertChild attaches child under parent at row. The parent link changes
// inside the bracket.
func (e *Engine) insertChild(parent NodeID, row int, child NodeID) {
	p := e.nodes[parent]
	e.listener.RowsAboutToBeInserted(parent, row, row)
	p.children = slices.Insert(p.children, row, child)
	e.nodes[child].parent = parent
	e.listener.RowsInserted(parent, row, row)
}

func (e *Engine) appendChild(parent NodeID, child NodeID) {
	e.insertChild(parent, len(e.nodes[parent].children), child)
}

// removeChild detaches the child at row and returns it. The node stays in
// the arena; callers delete it if it is being destroyed.
func (e *Engine) removeChild(parent NodeID, row int) NodeID {
	p := e.nodes[parent]
	child := p.children[row]
	e.listener.RowsAboutToBeRemoved(parent, row, row)
	p.children = slices.Delete(p.children, row, row+1)
	e.nodes[child].parent = notify.Root
	e.listener.RowsRemoved(parent, row, row)
	return child
}

// removeRange destroys the children in rows first..last of parent.
func (e *Engine) removeRange(parent NodeID, first, last int) {
	p := e.nodes[parent]
	e.listener.RowsAboutToBeRemoved(parent, first, last)
	for _, id := range p.children[first : last+1] {
		delete(e.nodes, id)
	}
	p.children = slices.Delete(p.children, first, last+1)
	e.listener.RowsRemoved(parent, first, last)
}
