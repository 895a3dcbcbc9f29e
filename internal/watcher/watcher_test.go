package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"emojify/internal/processor"
)

type fakeProcessor struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]bool
	done  chan string
}

func (f *fakeProcessor) Process(_ context.Context, path string) (processor.Artifact, error) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- path
	}
	if f.fail[filepath.Base(path)] {
		return processor.Artifact{}, errors.New("boom")
	}
	return processor.Artifact{Source: path, Size: 100}, nil
}

func (f *fakeProcessor) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
}

func TestSweepProcessesSupportedFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.png"))
	touch(t, filepath.Join(dir, "a.JPG"))
	touch(t, filepath.Join(dir, "c.gif"))
	touch(t, filepath.Join(dir, "notes.txt"))
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	proc := &fakeProcessor{fail: map[string]bool{"c.gif": true}}
	d := New(proc, Options{InputDir: dir})

	updates := make(chan processor.ProgressUpdate, 8)
	summary, err := d.Sweep(context.Background(), updates)
	close(updates)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got := proc.calls()
	want := []string{"a.JPG", "b.png", "c.gif"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if filepath.Base(got[i]) != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
		if !filepath.IsAbs(got[i]) {
			t.Fatalf("expected absolute path, got %s", got[i])
		}
	}
	if summary.Total != 3 || summary.Processed != 3 || summary.Errors != 1 || summary.BytesWritten != 200 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	n := 0
	for range updates {
		n++
	}
	if n != 4 {
		t.Fatalf("expected total update plus one per file, got %d", n)
	}
}

func TestSweepMarksFilesProcessed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	touch(t, path)

	proc := &fakeProcessor{}
	d := New(proc, Options{InputDir: dir, Settle: time.Millisecond})
	if _, err := d.Sweep(context.Background(), nil); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !d.Seen(path) {
		t.Fatal("expected swept file to be recorded")
	}
	if d.HandleCreated(context.Background(), path) {
		t.Fatal("swept file was dispatched again")
	}
	if len(proc.calls()) != 1 {
		t.Fatalf("expected one call, got %v", proc.calls())
	}

	if _, err := d.Sweep(context.Background(), nil); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(proc.calls()) != 1 {
		t.Fatalf("second sweep reprocessed files: %v", proc.calls())
	}
}

func TestSweepMissingInputDir(t *testing.T) {
	d := New(&fakeProcessor{}, Options{InputDir: filepath.Join(t.TempDir(), "missing")})
	if _, err := d.Sweep(context.Background(), nil); err == nil {
		t.Fatal("expected error for missing input directory")
	}
}

func TestHandleCreatedDeduplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.webp")
	touch(t, path)

	proc := &fakeProcessor{}
	d := New(proc, Options{InputDir: dir, Settle: time.Millisecond})

	if !d.HandleCreated(context.Background(), path) {
		t.Fatal("expected first event to dispatch")
	}
	if d.HandleCreated(context.Background(), path) {
		t.Fatal("expected duplicate event to be ignored")
	}
	if calls := proc.calls(); len(calls) != 1 {
		t.Fatalf("expected one call, got %v", calls)
	}
}

func TestHandleCreatedSkipsUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readme.md")
	touch(t, path)

	proc := &fakeProcessor{}
	d := New(proc, Options{InputDir: dir, Settle: time.Millisecond})
	if d.HandleCreated(context.Background(), path) {
		t.Fatal("unsupported extension was dispatched")
	}
	if len(proc.calls()) != 0 {
		t.Fatalf("unexpected calls %v", proc.calls())
	}
}

func TestHandleCreatedSkipsVanishedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.png")
	touch(t, path)

	proc := &fakeProcessor{}
	d := New(proc, Options{InputDir: dir, Settle: 20 * time.Millisecond})

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = os.Remove(path)
	}()
	if d.HandleCreated(context.Background(), path) {
		t.Fatal("vanished file was dispatched")
	}
	if d.Seen(path) {
		t.Fatal("vanished file should not be recorded")
	}

	touch(t, path)
	if !d.HandleCreated(context.Background(), path) {
		t.Fatal("recreated file was not dispatched")
	}
}

func TestHandleCreatedStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slow.png")
	touch(t, path)

	proc := &fakeProcessor{}
	d := New(proc, Options{InputDir: dir, Settle: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if d.HandleCreated(ctx, path) {
		t.Fatal("file dispatched after cancellation")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("settle delay was not interrupted")
	}
}

func TestRunDispatchesNewFiles(t *testing.T) {
	dir := t.TempDir()
	proc := &fakeProcessor{done: make(chan string, 4)}
	d := New(proc, Options{InputDir: dir, Settle: 10 * time.Millisecond})
	defer d.Close()

	if err := d.Watch(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- d.Run(ctx) }()

	touch(t, filepath.Join(dir, "ignored.txt"))
	testFile := filepath.Join(dir, "new.png")
	touch(t, testFile)

	select {
	case got := <-proc.done:
		if filepath.Base(got) != "new.png" {
			t.Errorf("Expected new.png, got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for dispatch")
	}

	cancel()
	select {
	case err := <-runDone:
		if err != nil {
			t.Errorf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run did not stop after cancellation")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	d := New(&fakeProcessor{}, Options{InputDir: filepath.Join(t.TempDir(), "missing")})
	if err := d.Watch(); err == nil {
		t.Fatal("expected error watching a missing directory")
	}
}
