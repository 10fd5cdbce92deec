package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"samefiles/internal/hash"
	"samefiles/internal/model"
	"samefiles/internal/notify"
	"samefiles/internal/scanner"
	"samefiles/internal/testutil"
)

const timeout = 5 * time.Second

type waiter struct {
	*notify.Recorder
	complete chan int
}

func newWaiter() *waiter {
	return &waiter{Recorder: notify.NewRecorder(), complete: make(chan int, 10)}
}

func (w *waiter) ScanComplete(count int) {
	w.Recorder.ScanComplete(count)
	w.complete <- count
}

func startSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	return s
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}
	return dir
}

func TestSession_StartScanRejectsMissingDirectory(t *testing.T) {
	w := newWaiter()
	s := startSession(t, Options{Listener: w})

	err := s.StartScan(context.Background(), "/nonexistent/directory")
	if !errors.Is(err, ErrNotDirectory) {
		t.Fatalf("Expected ErrNotDirectory, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.StartScan(context.Background(), file); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("Expected ErrNotDirectory for a regular file, got %v", err)
	}

	if len(w.Events()) != 0 {
		t.Errorf("Rejected scans must not touch state, got %v", w.Events())
	}
}

func TestSession_ScanGroupsDuplicates(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.txt":     "same",
		"sub/b.txt": "same",
		"c.txt":     "other",
	})
	w := newWaiter()
	s := startSession(t, Options{Listener: w})
	ctx := context.Background()

	if err := s.StartScan(ctx, dir); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	count := testutil.RequireReceive(t, w.complete, timeout, "waiting for scan to complete")
	if count != 3 {
		t.Errorf("Expected 3 files scanned, got %d", count)
	}

	var groups []model.Group
	var unique []model.Entry
	if err := s.Do(ctx, func(e *model.Engine) {
		groups = e.Groups()
		unique = e.Unique()
	}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if len(groups) != 1 || len(groups[0].Files) != 2 {
		t.Fatalf("Expected one group of 2, got %+v", groups)
	}
	if len(unique) != 1 || filepath.Base(unique[0].Path) != "c.txt" {
		t.Errorf("Expected c.txt unique, got %+v", unique)
	}
	if err := w.Err(); err != nil {
		t.Errorf("Bracket violation: %v", err)
	}
	if scanning, _ := s.Scanning(ctx); scanning {
		t.Error("Session should not be scanning after completion")
	}
}

func TestSession_DeleteFileRemovesFromDisk(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.txt": "same",
		"b.txt": "same",
	})
	w := newWaiter()
	s := startSession(t, Options{Listener: w})
	ctx := context.Background()

	if err := s.StartScan(ctx, dir); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	testutil.RequireReceive(t, w.complete, timeout, "waiting for scan to complete")

	target := filepath.Join(dir, "a.txt")
	var ref model.NodeID
	if err := s.Do(ctx, func(e *model.Engine) {
		ref, _ = e.Lookup(target)
	}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if err := s.DeleteFile(ctx, ref); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("Expected %s to be removed from disk, stat err: %v", target, err)
	}

	var unique []model.Entry
	var groups int
	s.Do(ctx, func(e *model.Engine) {
		unique = e.Unique()
		groups = len(e.Groups())
	})
	if groups != 0 || len(unique) != 1 || filepath.Base(unique[0].Path) != "b.txt" {
		t.Errorf("Expected b.txt alone in unique bucket, got %d groups and %+v", groups, unique)
	}

	// Deleting again is a no-op reported as an invalid reference.
	if err := s.DeleteFile(ctx, ref); !errors.Is(err, model.ErrInvalidRef) {
		t.Errorf("Expected ErrInvalidRef, got %v", err)
	}
}

func TestSession_DeleteGroupExceptOneReportsStorageFailure(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.txt": "same",
		"b.txt": "same",
		"c.txt": "same",
	})
	w := newWaiter()
	denied := errors.New("denied")
	s := startSession(t, Options{
		Listener: w,
		Remove: func(path string) error {
			if filepath.Base(path) == "b.txt" {
				return denied
			}
			return os.Remove(path)
		},
	})
	ctx := context.Background()

	if err := s.StartScan(ctx, dir); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	testutil.RequireReceive(t, w.complete, timeout, "waiting for scan to complete")

	var keep model.NodeID
	s.Do(ctx, func(e *model.Engine) {
		keep, _ = e.Lookup(filepath.Join(dir, "a.txt"))
	})

	err := s.DeleteGroupExceptOne(ctx, keep)
	if !errors.Is(err, denied) {
		t.Fatalf("Expected storage failure to be reported, got %v", err)
	}

	var unique []model.Entry
	s.Do(ctx, func(e *model.Engine) { unique = e.Unique() })
	if len(unique) != 1 || unique[0].ID != keep {
		t.Errorf("Expected only the kept file in the tree, got %+v", unique)
	}
	if _, err := os.Stat(filepath.Join(dir, "c.txt")); !os.IsNotExist(err) {
		t.Error("c.txt should have been removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); err != nil {
		t.Error("b.txt should still be on disk after the failed removal")
	}
}

type gatedHasher struct {
	started chan string
	release chan struct{}
}

func (g *gatedHasher) hash(path string) (hash.Digest, error) {
	g.started <- path
	<-g.release
	return hash.HashFile(path)
}

func TestSession_StopScanKeepsProcessedFiles(t *testing.T) {
	files := make(map[string]string)
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		files[name+".txt"] = "content"
	}
	dir := writeTree(t, files)

	gate := &gatedHasher{started: make(chan string, 100), release: make(chan struct{})}
	w := newWaiter()
	s := startSession(t, Options{
		Listener: w,
		Worker:   scanner.New(scanner.Options{HashFile: gate.hash}),
	})
	ctx := context.Background()

	if err := s.StartScan(ctx, dir); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	testutil.RequireReceive(t, gate.started, timeout, "waiting for first file")

	if err := s.StartScan(ctx, dir); !errors.Is(err, scanner.ErrScanActive) {
		t.Errorf("Expected ErrScanActive while scanning, got %v", err)
	}

	s.StopScan()
	close(gate.release)

	count := testutil.RequireReceive(t, w.complete, timeout, "waiting for stopped scan to complete")
	if count != 1 {
		t.Errorf("Expected 1 file processed before stop, got %d", count)
	}

	var ingested, live int
	s.Do(ctx, func(e *model.Engine) {
		ingested = e.Ingested()
		live = e.FileCount()
	})
	if ingested != 1 || live != 1 {
		t.Errorf("Expected engine state of exactly one ingest, got ingested=%d files=%d", ingested, live)
	}

	var progress []int
	for _, ev := range w.Events() {
		if ev.Kind == notify.KindProgress {
			progress = append(progress, ev.Count)
		}
	}
	if !slices.Equal(progress, []int{1}) {
		t.Errorf("Expected a single progress notification, got %v", progress)
	}
}

func TestSession_RestartResetsTree(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.txt": "x", "b.txt": "x"})
	w := newWaiter()
	s := startSession(t, Options{Listener: w})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.StartScan(ctx, dir); err != nil {
			t.Fatalf("StartScan %d failed: %v", i, err)
		}
		testutil.RequireReceive(t, w.complete, timeout, "waiting for scan %d", i)
	}

	var count int
	s.Do(ctx, func(e *model.Engine) { count = e.FileCount() })
	if count != 2 {
		t.Errorf("Expected the second scan to replace the first, got %d files", count)
	}

	resets := 0
	for _, ev := range w.Events() {
		if ev.Kind == notify.KindReset {
			resets++
		}
	}
	if resets != 2 {
		t.Errorf("Expected a reset per scan, got %d", resets)
	}
}

func TestSession_DropsEventsFromEarlierGeneration(t *testing.T) {
	w := newWaiter()
	s := New(Options{Listener: w})
	s.generation = 2

	s.handle(scanner.Event{Kind: scanner.FileHashed, Generation: 1, Path: "stale"})
	s.handle(scanner.Event{Kind: scanner.ScanComplete, Generation: 1})
	if s.engine.FileCount() != 0 {
		t.Error("Stale FileHashed should be dropped")
	}
	if len(w.complete) != 0 {
		t.Error("Stale ScanComplete should be dropped")
	}

	s.handle(scanner.Event{Kind: scanner.FileHashed, Generation: 2, Path: "fresh"})
	if s.engine.FileCount() != 1 {
		t.Error("Current FileHashed should be ingested")
	}
}

func TestSession_CommandsAfterRunReturnErrClosed(t *testing.T) {
	s := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	cancel()

	err := testutil.RequireReceive(t, errCh, timeout, "waiting for Run to return")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if err := s.Do(context.Background(), func(*model.Engine) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestSession_CancelledRunReleasesWorker(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 20; i++ {
		files[string(rune('a'+i))+".txt"] = "same"
	}
	dir := writeTree(t, files)

	gate := &gatedHasher{started: make(chan string, 100), release: make(chan struct{})}
	worker := scanner.New(scanner.Options{Buffer: 1, HashFile: gate.hash})
	s := New(Options{Worker: worker})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	if err := s.StartScan(context.Background(), dir); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	testutil.RequireReceive(t, gate.started, timeout, "waiting for first file")

	cancel()
	testutil.RequireReceive(t, errCh, timeout, "waiting for Run to return")
	close(gate.release)

	deadline := time.Now().Add(timeout)
	for worker.Running() {
		if time.Now().After(deadline) {
			t.Fatal("Worker still running after Run returned")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
