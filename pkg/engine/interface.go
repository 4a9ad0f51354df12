// Package engine defines the contract the orchestration layer requires from a
// speech-recognition engine. The engine is a black box: audio path in,
// timestamped text fragments out, with cancellation and fractional progress.
package engine

import (
	"context"
	"time"
)

// RawSegment is a single timestamped text fragment as emitted by the engine,
// before any post-processing.
type RawSegment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// ChunkStrategy selects the engine-internal policy for splitting long audio
// into decodable windows.
type ChunkStrategy string

const (
	// ChunkVAD splits on voice-activity boundaries.
	ChunkVAD ChunkStrategy = "vad"
	// ChunkNone decodes the file as a single window.
	ChunkNone ChunkStrategy = "none"
)

// DecodeOptions configures one recognition call.
type DecodeOptions struct {
	// Task is the decode task; only "transcribe" is used here.
	Task string
	// Language is an ISO 639-1 code, or empty for auto-detection.
	Language string
	// Temperature of 0 requests deterministic greedy decoding.
	Temperature float64
	// ChunkStrategy selects the audio windowing policy.
	ChunkStrategy ChunkStrategy
}

// DefaultDecodeOptions returns the deterministic transcription settings used
// for every run.
func DefaultDecodeOptions(language string) DecodeOptions {
	return DecodeOptions{
		Task:          "transcribe",
		Language:      language,
		Temperature:   0.0,
		ChunkStrategy: ChunkVAD,
	}
}

// ProgressFunc receives the engine's own fractionCompleted counter in [0,1].
// Step size is engine-defined; the value is monotonically non-decreasing only
// in the non-error path and is an approximate UI signal, not a metric.
type ProgressFunc func(fraction float64)

// ModelConfig identifies the model artifact the engine should serve.
type ModelConfig struct {
	// Name is the model variant identifier (e.g. "base.en").
	Name string
	// Path is the local path of the downloaded model artifact.
	Path string
}

// Engine is the opaque recognition engine.
type Engine interface {
	// Load makes the given model artifact the engine's active model.
	Load(ctx context.Context, cfg ModelConfig) error

	// Transcribe runs recognition over the audio file at audioPath and
	// returns raw timestamped fragments in emission order. onProgress may be
	// nil. Cancellation is delivered through ctx.
	Transcribe(ctx context.Context, audioPath string, opts DecodeOptions, onProgress ProgressFunc) ([]RawSegment, error)

	// ClearState flushes any partial decode state so the next call starts
	// clean. Safe to call when idle.
	ClearState(ctx context.Context) error

	// Close releases the engine handle.
	Close() error
}
