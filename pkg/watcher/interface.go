// Package watcher transcribes media files as they appear in a watched
// directory, with persistent history so restarts do not repeat work.
package watcher

import (
	"context"
	"time"
)

// FolderWatcher watches one directory and transcribes matching new files.
type FolderWatcher interface {
	// Start begins watching. Blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully shuts the watcher down.
	Stop() error
}

// History is the persistent record of processed files, keyed by content hash.
type History interface {
	// IsProcessed checks whether a file hash has already been transcribed.
	IsProcessed(fileHash string) (bool, error)

	// RecordProcessed records a successful transcription.
	RecordProcessed(fileHash string, info *ProcessedInfo) error

	// RecordFailed records a failed attempt.
	RecordFailed(fileHash string, info *FailedInfo) error

	// Close closes the underlying database.
	Close() error
}

// ProcessedInfo describes a successfully transcribed file.
type ProcessedInfo struct {
	FileHash    string    `json:"hash"`
	FilePath    string    `json:"filepath"`
	ProcessedAt time.Time `json:"processed_at"`
	OutputPath  string    `json:"output_path"`
	SegmentLen  int       `json:"segments"`
}

// FailedInfo describes a failed transcription attempt.
type FailedInfo struct {
	FileHash string    `json:"hash"`
	FilePath string    `json:"filepath"`
	FailedAt time.Time `json:"failed_at"`
	Error    string    `json:"error"`
}

// Config configures a folder watcher.
type Config struct {
	// WatchDir is the directory to watch.
	WatchDir string

	// Patterns are the file globs to pick up (e.g. "*.mp3").
	Patterns []string

	// OutputDir receives transcripts; defaults to WatchDir.
	OutputDir string

	// Language for transcription ("auto" for detection).
	Language string

	// StabilityWait is how long a file's size must stay unchanged before it
	// is considered fully written.
	StabilityWait time.Duration

	// HistoryDB is the bbolt database path.
	HistoryDB string

	// ProcessExisting transcribes files already present at startup.
	ProcessExisting bool
}

// DefaultConfig returns default watcher configuration.
func DefaultConfig() *Config {
	return &Config{
		Patterns:        []string{"*.mp3", "*.wav", "*.m4a", "*.mp4"},
		Language:        "auto",
		StabilityWait:   2 * time.Second,
		HistoryDB:       ".sonoscribe-watch.db",
		ProcessExisting: true,
	}
}
