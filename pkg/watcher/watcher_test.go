package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/sonoscribe/sonoscribe/pkg/engine"
	"github.com/sonoscribe/sonoscribe/pkg/models"
	"github.com/sonoscribe/sonoscribe/pkg/segment"
)

// fakeWatchTranscriber serves canned segments and tracks run overlap.
type fakeWatchTranscriber struct {
	mu        sync.Mutex
	delay     time.Duration
	err       error
	active    int
	maxActive int
	paths     []string
	started   chan string
}

func (f *fakeWatchTranscriber) Setup(ctx context.Context, modelName string, onState models.StateFunc) error {
	return nil
}

func (f *fakeWatchTranscriber) SupportedModels() []string { return []string{"base"} }
func (f *fakeWatchTranscriber) CurrentModel() string      { return "base" }
func (f *fakeWatchTranscriber) CancelIfNeeded()           {}

func (f *fakeWatchTranscriber) Transcribe(ctx context.Context, path, language string, onProgress engine.ProgressFunc) ([]segment.Segment, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.paths = append(f.paths, path)
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- path
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return []segment.Segment{{ID: uuid.New(), Text: "spoken words", End: time.Second}}, nil
}

func (f *fakeWatchTranscriber) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

func newWatchTestConfig(t *testing.T, dir string) *Config {
	t.Helper()
	return &Config{
		WatchDir:        dir,
		Patterns:        []string{"*.mp3"},
		StabilityWait:   10 * time.Millisecond,
		HistoryDB:       filepath.Join(t.TempDir(), "history.db"),
		ProcessExisting: true,
	}
}

func writeWatchFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("audio bytes"), 0o644); err != nil {
		t.Fatalf("failed to seed %s: %v", name, err)
	}
	return path
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWatcherProcessesExistingFilesSequentially(t *testing.T) {
	dir := t.TempDir()
	writeWatchFile(t, dir, "a.mp3")
	writeWatchFile(t, dir, "b.mp3")

	tr := &fakeWatchTranscriber{delay: 50 * time.Millisecond}
	fw, err := New(newWatchTestConfig(t, dir), tr)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startErr := make(chan error, 1)
	go func() { startErr <- fw.Start(ctx) }()

	waitUntil(t, "both transcripts", func() bool {
		for _, name := range []string{"a.txt", "b.txt"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				return false
			}
		}
		return true
	})

	if err := fw.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if err := <-startErr; err != nil {
		t.Fatalf("Start() returned %v", err)
	}

	tr.mu.Lock()
	maxActive := tr.maxActive
	runs := len(tr.paths)
	tr.mu.Unlock()
	if runs != 2 {
		t.Errorf("transcriber ran %d times, want 2", runs)
	}
	if maxActive != 1 {
		t.Errorf("max concurrent runs = %d, want 1", maxActive)
	}
}

func TestWatcherCancelledRunNotRecordedAsFailure(t *testing.T) {
	dir := t.TempDir()
	writeWatchFile(t, dir, "talk.mp3")

	tr := &fakeWatchTranscriber{err: context.Canceled}
	cfg := newWatchTestConfig(t, dir)
	fw, err := New(cfg, tr)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startErr := make(chan error, 1)
	go func() { startErr <- fw.Start(ctx) }()

	waitUntil(t, "the run to finish", func() bool { return tr.runCount() == 1 })

	if err := fw.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if err := <-startErr; err != nil {
		t.Fatalf("Start() returned %v", err)
	}

	db, err := bolt.Open(cfg.HistoryDB, 0o600, nil)
	if err != nil {
		t.Fatalf("failed to reopen history: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	err = db.View(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket([]byte(bucketFailed)); bucket != nil && bucket.Stats().KeyN != 0 {
			t.Error("a cancelled run was recorded as a failure")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("history inspection failed: %v", err)
	}
}

func TestWatcherStopWaitsForInFlightWork(t *testing.T) {
	dir := t.TempDir()
	path := writeWatchFile(t, dir, "talk.mp3")

	tr := &fakeWatchTranscriber{delay: 100 * time.Millisecond, started: make(chan string, 1)}
	cfg := newWatchTestConfig(t, dir)
	fw, err := New(cfg, tr)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startErr := make(chan error, 1)
	go func() { startErr <- fw.Start(ctx) }()

	<-tr.started

	if err := fw.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if err := <-startErr; err != nil {
		t.Fatalf("Start() returned %v", err)
	}

	// The run was underway when Stop was called; its transcript and history
	// record must have landed before Stop returned.
	if _, err := os.Stat(filepath.Join(dir, "talk.txt")); err != nil {
		t.Errorf("transcript missing after Stop: %v", err)
	}

	history, err := NewHistory(cfg.HistoryDB)
	if err != nil {
		t.Fatalf("failed to reopen history: %v", err)
	}
	defer func() {
		_ = history.Close()
	}()
	hash, err := fileHash(path)
	if err != nil {
		t.Fatalf("fileHash() failed: %v", err)
	}
	processed, err := history.IsProcessed(hash)
	if err != nil {
		t.Fatalf("IsProcessed() failed: %v", err)
	}
	if !processed {
		t.Error("processed record missing after Stop")
	}
}
