package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"samefiles/internal/hash"
	"samefiles/internal/walker"
)

// ErrScanActive is returned by Start while a previous scan is running.
var ErrScanActive = errors.New("a scan is already running")

const defaultBuffer = 256

type Options struct {
	// Exclude holds walker exclusion patterns.
	Exclude []string
	// Buffer is the capacity of the event channel.
	Buffer int
	Logger *slog.Logger
	// HashFile defaults to hash.HashFile.
	HashFile func(path string) (hash.Digest, error)
}

// Worker walks a directory tree and hashes every regular file in it,
// sending one event per file on a single channel. At most one scan runs at
// a time. Walking and hashing are separate pipeline stages, but files are
// hashed and sent one at a time in walk order.
type Worker struct {
	exclude  []string
	hashFile func(string) (hash.Digest, error)
	logger   *slog.Logger
	events   chan Event

	running    atomic.Bool
	stop       atomic.Bool
	generation atomic.Uint64
}

func New(opts Options) *Worker {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.HashFile == nil {
		opts.HashFile = hash.HashFile
	}
	return &Worker{
		exclude:  opts.Exclude,
		hashFile: opts.HashFile,
		logger:   opts.Logger,
		events:   make(chan Event, opts.Buffer),
	}
}

// Events is the channel every scan reports on. It is never closed.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Running reports whether a scan is in progress.
func (w *Worker) Running() bool {
	return w.running.Load()
}

// Start begins scanning root in the background and returns the generation
// its events will carry. Cancelling ctx abandons the scan: pending events,
// ScanComplete included, are dropped and the worker becomes idle.
func (w *Worker) Start(ctx context.Context, root string) (uint64, error) {
	if !w.running.CompareAndSwap(false, true) {
		return 0, ErrScanActive
	}
	w.stop.Store(false)
	gen := w.generation.Add(1)

	w.logger.Info("scan started", "root", root, "generation", gen)
	go w.run(ctx, gen, root)
	return gen, nil
}

// Stop asks the running scan to end. The file being hashed is finished and
// sent; no further file is started. ScanComplete still follows.
func (w *Worker) Stop() {
	w.stop.Store(true)
}

// send delivers ev unless ctx is cancelled first.
func (w *Worker) send(ctx context.Context, ev Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *Worker) run(parent context.Context, gen uint64, root string) {
	files := make(chan walker.FileInfo, defaultBuffer)
	g, ctx := errgroup.WithContext(parent)

	g.Go(func() error {
		defer close(files)
		result, err := walker.Walk(root, w.exclude, func(fi walker.FileInfo) error {
			if w.stop.Load() {
				return walker.ErrStop
			}
			select {
			case files <- fi:
				return nil
			case <-ctx.Done():
				return walker.ErrStop
			}
		})
		if err != nil {
			return err
		}
		for _, walkErr := range result.Errors {
			w.logger.Warn("skipped unreadable entry", "error", walkErr)
		}
		return nil
	})

	count, skipped := 0, 0
	g.Go(func() error {
		for fi := range files {
			if w.stop.Load() {
				continue
			}
			sum, err := w.hashFile(fi.Path)
			if err != nil {
				w.logger.Warn("skipped file", "path", fi.Path, "error", err)
				skipped++
				continue
			}
			if !w.send(ctx, Event{
				Kind:       FileHashed,
				Generation: gen,
				Path:       fi.Path,
				Hash:       sum,
				Size:       fi.Size,
			}) {
				return nil
			}
			count++
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		err = fmt.Errorf("scan of %s failed: %w", root, err)
		w.logger.Error("scan failed", "root", root, "error", err)
	}
	stopped := w.stop.Load()
	w.logger.Info("scan finished", "root", root, "files", count, "skipped", skipped, "stopped", stopped)

	w.running.Store(false)
	if !w.send(parent, Event{
		Kind:       ScanComplete,
		Generation: gen,
		Count:      count,
		Skipped:    skipped,
		Stopped:    stopped,
		Err:        err,
	}) {
		w.logger.Debug("scan abandoned", "root", root, "generation", gen)
	}
}
