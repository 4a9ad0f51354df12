package watcher

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestHistory(t *testing.T) History {
	t.Helper()
	h, err := NewHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewHistory() failed: %v", err)
	}
	t.Cleanup(func() {
		_ = h.Close()
	})
	return h
}

func TestHistoryRoundTrip(t *testing.T) {
	h := newTestHistory(t)

	processed, err := h.IsProcessed("hash-1")
	if err != nil {
		t.Fatalf("IsProcessed() failed: %v", err)
	}
	if processed {
		t.Error("fresh database reported a hash as processed")
	}

	info := &ProcessedInfo{
		FileHash:    "hash-1",
		FilePath:    "/media/talk.mp3",
		ProcessedAt: time.Now(),
		OutputPath:  "/media/talk.txt",
		SegmentLen:  12,
	}
	if err := h.RecordProcessed("hash-1", info); err != nil {
		t.Fatalf("RecordProcessed() failed: %v", err)
	}

	processed, err = h.IsProcessed("hash-1")
	if err != nil {
		t.Fatalf("IsProcessed() failed: %v", err)
	}
	if !processed {
		t.Error("recorded hash not reported as processed")
	}

	// A different hash stays unknown.
	processed, err = h.IsProcessed("hash-2")
	if err != nil {
		t.Fatalf("IsProcessed() failed: %v", err)
	}
	if processed {
		t.Error("unrecorded hash reported as processed")
	}
}

func TestHistoryRecordFailed(t *testing.T) {
	h := newTestHistory(t)

	fail := &FailedInfo{
		FileHash: "hash-1",
		FilePath: "/media/talk.mp3",
		FailedAt: time.Now(),
		Error:    "engine unreachable",
	}
	if err := h.RecordFailed("hash-1", fail); err != nil {
		t.Fatalf("RecordFailed() failed: %v", err)
	}

	// Failure does not count as processed: the file gets retried.
	processed, err := h.IsProcessed("hash-1")
	if err != nil {
		t.Fatalf("IsProcessed() failed: %v", err)
	}
	if processed {
		t.Error("failed hash reported as processed")
	}

	// A later success clears the failure record.
	info := &ProcessedInfo{FileHash: "hash-1", FilePath: "/media/talk.mp3", ProcessedAt: time.Now()}
	if err := h.RecordProcessed("hash-1", info); err != nil {
		t.Fatalf("RecordProcessed() failed: %v", err)
	}
	processed, err = h.IsProcessed("hash-1")
	if err != nil {
		t.Fatalf("IsProcessed() failed: %v", err)
	}
	if !processed {
		t.Error("hash not reported as processed after recovery")
	}
}

func TestHistoryPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	h, err := NewHistory(dbPath)
	if err != nil {
		t.Fatalf("NewHistory() failed: %v", err)
	}
	info := &ProcessedInfo{FileHash: "hash-1", FilePath: "/media/talk.mp3", ProcessedAt: time.Now()}
	if err := h.RecordProcessed("hash-1", info); err != nil {
		t.Fatalf("RecordProcessed() failed: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reopened, err := NewHistory(dbPath)
	if err != nil {
		t.Fatalf("reopening history failed: %v", err)
	}
	defer func() {
		_ = reopened.Close()
	}()

	processed, err := reopened.IsProcessed("hash-1")
	if err != nil {
		t.Fatalf("IsProcessed() failed: %v", err)
	}
	if !processed {
		t.Error("history lost across reopen")
	}
}
