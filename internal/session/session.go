// Package session connects a scanner.Worker to a model.Engine. A single
// loop goroutine owns the engine: it ingests worker events one at a time
// and runs user commands between them, so ingestion and deletion never
// interleave mid-mutation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"samefiles/internal/model"
	"samefiles/internal/notify"
	"samefiles/internal/scanner"
)

var (
	// ErrNotDirectory is returned by StartScan for a path that is not an
	// existing directory. Nothing is reset in that case.
	ErrNotDirectory = errors.New("no such directory")
	// ErrClosed is returned by commands sent after Run has returned.
	ErrClosed = errors.New("session closed")
)

type Options struct {
	// Listener receives structural notifications and, if it implements
	// notify.ProgressListener, ScanProgress and ScanComplete.
	Listener notify.Listener
	Remove   model.RemoveFunc
	Worker   *scanner.Worker
	Logger   *slog.Logger
}

type command struct {
	fn    func() error
	reply chan error
}

type Session struct {
	engine   *model.Engine
	worker   *scanner.Worker
	progress notify.ProgressListener
	logger   *slog.Logger

	commands chan command
	done     chan struct{}

	// Owned by the loop goroutine. runCtx is the context passed to Run and
	// bounds every scan the loop starts.
	runCtx     context.Context
	generation uint64
	scanning   bool
}

func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Worker == nil {
		opts.Worker = scanner.New(scanner.Options{Logger: opts.Logger})
	}
	s := &Session{
		engine: model.New(model.Options{
			Listener: opts.Listener,
			Remove:   opts.Remove,
			Logger:   opts.Logger,
		}),
		worker:   opts.Worker,
		logger:   opts.Logger,
		commands: make(chan command),
		done:     make(chan struct{}),
	}
	if p, ok := opts.Listener.(notify.ProgressListener); ok {
		s.progress = p
	}
	return s
}

// Run processes worker events and commands until ctx is cancelled. A scan
// still running at that point is abandoned: the worker stops without
// waiting for anyone to read its remaining events.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	s.runCtx = ctx
	events := s.worker.Events()
	for {
		select {
		case <-ctx.Done():
			if s.scanning {
				s.worker.Stop()
			}
			return ctx.Err()
		case cmd := <-s.commands:
			cmd.reply <- cmd.fn()
		case ev := <-events:
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev scanner.Event) {
	if ev.Generation != s.generation {
		s.logger.Debug("dropping event from earlier scan", "generation", ev.Generation)
		return
	}
	switch ev.Kind {
	case scanner.FileHashed:
		s.engine.Ingest(ev.Path, ev.Hash, ev.Size)
	case scanner.ScanComplete:
		s.scanning = false
		if ev.Err != nil {
			s.logger.Error("scan ended with error", "error", ev.Err)
		}
		if s.progress != nil {
			s.progress.ScanComplete(s.engine.Ingested())
		}
	}
}

// exec runs fn on the loop goroutine and waits for its result.
func (s *Session) exec(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-cmd.reply
}

// StartScan resets the tree and starts scanning dir. It fails without
// touching any state if dir is not a directory or a scan is running.
func (s *Session) StartScan(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	return s.exec(ctx, func() error {
		if s.scanning || s.worker.Running() {
			return scanner.ErrScanActive
		}
		s.engine.Reset()
		gen, err := s.worker.Start(s.runCtx, dir)
		if err != nil {
			return err
		}
		s.generation = gen
		s.scanning = true
		return nil
	})
}

// StopScan asks the running scan to end. ScanComplete still follows with
// the number of files processed so far.
func (s *Session) StopScan() {
	s.worker.Stop()
}

// DeleteFile removes the file ref from storage and from the tree.
func (s *Session) DeleteFile(ctx context.Context, ref model.NodeID) error {
	return s.exec(ctx, func() error {
		return s.engine.DeleteFile(ref)
	})
}

// DeleteGroupExceptOne removes every other file of ref's group.
func (s *Session) DeleteGroupExceptOne(ctx context.Context, ref model.NodeID) error {
	return s.exec(ctx, func() error {
		return s.engine.DeleteGroupExceptOne(ref)
	})
}

// Do runs fn with exclusive access to the engine, between two events.
func (s *Session) Do(ctx context.Context, fn func(*model.Engine)) error {
	return s.exec(ctx, func() error {
		fn(s.engine)
		return nil
	})
}

// Scanning reports whether a scan started by this session has not yet
// delivered its ScanComplete.
func (s *Session) Scanning(ctx context.Context) (bool, error) {
	var scanning bool
	err := s.exec(ctx, func() error {
		scanning = s.scanning
		return nil
	})
	return scanning, err
}
