package scanner

import "samefiles/internal/hash"

type EventKind int

const (
	// FileHashed carries one file and its digest.
	FileHashed EventKind = iota
	// ScanComplete is sent exactly once per scan, after its last FileHashed.
	ScanComplete
)

// Event is what the worker sends to its consumer. Generation identifies the
// scan that produced it so a consumer can drop leftovers from an earlier
// scan.
type Event struct {
	Kind       EventKind
	Generation uint64

	// FileHashed
	Path string
	Hash hash.Digest
	Size int64

	// ScanComplete
	Count   int
	Skipped int
	Stopped bool
	Err     error
}
