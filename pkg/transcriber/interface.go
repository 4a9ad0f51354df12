// Package transcriber orchestrates one cancellable transcription run: model
// setup, media normalization, the recognition call, and post-processing.
package transcriber

import (
	"context"
	"errors"

	"github.com/sonoscribe/sonoscribe/pkg/engine"
	"github.com/sonoscribe/sonoscribe/pkg/models"
	"github.com/sonoscribe/sonoscribe/pkg/segment"
)

// Orchestration errors.
var (
	// ErrUninitialized is returned when transcription is attempted with no
	// engine handle.
	ErrUninitialized = errors.New("recognition engine not initialized")
	// ErrTranscriptionFailed wraps any engine-level recognition failure.
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// Transcriber is the single capability surface the rest of the application
// depends on.
type Transcriber interface {
	// Setup ensures modelName is downloaded and loaded, reporting lifecycle
	// transitions through onState. Idempotent for an already loaded model.
	Setup(ctx context.Context, modelName string, onState models.StateFunc) error

	// SupportedModels lists the valid model identifiers.
	SupportedModels() []string

	// CurrentModel returns the identifier of the active model.
	CurrentModel() string

	// Transcribe runs recognition over the media file at path and returns the
	// final post-processed segment list. Starting a new run cancels and
	// replaces any run still in flight.
	Transcribe(ctx context.Context, path, language string, onProgress engine.ProgressFunc) ([]segment.Segment, error)

	// CancelIfNeeded aborts the in-flight run, if any, and flushes engine
	// decode state. Safe to call at any time.
	CancelIfNeeded()
}
