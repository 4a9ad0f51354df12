package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sonoscribe/sonoscribe/pkg/engine"
	"github.com/sonoscribe/sonoscribe/pkg/logger"
	"github.com/sonoscribe/sonoscribe/pkg/media"
	"github.com/sonoscribe/sonoscribe/pkg/models"
	"github.com/sonoscribe/sonoscribe/pkg/segment"
)

// Service implements Transcriber against an injected engine, lifecycle
// manager, and ingestor. It tracks at most one run at a time: starting a new
// run cancels and replaces the previous one atomically, and callbacks from a
// superseded run are discarded by sequence comparison.
type Service struct {
	engine    engine.Engine
	lifecycle *models.Manager
	ingestor  media.Ingestor

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

var _ Transcriber = (*Service)(nil)

// NewService creates a transcription service.
func NewService(eng engine.Engine, lifecycle *models.Manager, ingestor media.Ingestor) *Service {
	return &Service{
		engine:    eng,
		lifecycle: lifecycle,
		ingestor:  ingestor,
	}
}

// Setup ensures modelName is downloaded and loaded.
func (s *Service) Setup(ctx context.Context, modelName string, onState models.StateFunc) error {
	if s.lifecycle == nil {
		return ErrUninitialized
	}
	return s.lifecycle.SetupIfNeeded(ctx, modelName, onState)
}

// SupportedModels lists the valid model identifiers.
func (s *Service) SupportedModels() []string {
	if s.lifecycle == nil {
		return nil
	}
	return s.lifecycle.SupportedModels()
}

// CurrentModel returns the identifier of the active model.
func (s *Service) CurrentModel() string {
	if s.lifecycle == nil {
		return models.DefaultModel
	}
	return s.lifecycle.CurrentModel()
}

// Transcribe runs recognition over the media file at path.
//
// The extension is validated before any model or engine work. Video inputs
// are normalized through audio extraction; the temporary audio file is
// removed on every exit path.
func (s *Service) Transcribe(ctx context.Context, path, language string, onProgress engine.ProgressFunc) ([]segment.Segment, error) {
	log := logger.WithComponent("transcriber").WithField("file", filepath.Base(path))

	kind, err := media.ResolveKind(path)
	if err != nil {
		log.Error().Err(err).Msg("Rejected unsupported input")
		return nil, err
	}
	if s.engine == nil || s.lifecycle == nil {
		return nil, ErrUninitialized
	}

	runCtx, mySeq := s.beginRun(ctx)
	defer s.endRun(mySeq)

	// Progress from a superseded run must not leak to the caller.
	guarded := func(fraction float64) {
		if onProgress != nil && s.currentSeq() == mySeq {
			onProgress(fraction)
		}
	}

	log.Info().Str("language", language).Bool("is_video", kind == media.KindVideo).Msg("Starting transcription run")

	if err := s.lifecycle.SetupIfNeeded(runCtx, s.lifecycle.CurrentModel(), nil); err != nil {
		return nil, err
	}

	audioPath := path
	if kind == media.KindVideo {
		extracted, err := s.ingestor.ExtractAudio(runCtx, path)
		if err != nil {
			log.Error().Err(err).Msg("Audio extraction failed")
			return nil, err
		}
		defer func() {
			log.Debug().Str("temp_audio", extracted).Msg("Removing extracted audio")
			_ = os.Remove(extracted)
		}()
		audioPath = extracted
	}

	lang := language
	if lang == "auto" {
		lang = ""
	}
	opts := engine.DefaultDecodeOptions(lang)

	raw, err := s.engine.Transcribe(runCtx, audioPath, opts, guarded)
	if err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			log.Info().Msg("Transcription run cancelled")
			return nil, ctxErr
		}
		log.Error().Err(err).Msg("Recognition call failed")
		return nil, fmt.Errorf("%w: %s", ErrTranscriptionFailed, err)
	}

	// A newer run may have replaced this one while the engine returned.
	if s.currentSeq() != mySeq {
		return nil, context.Canceled
	}

	segments := segment.Normalize(raw)
	log.Info().Int("raw_fragments", len(raw)).Int("segments", len(segments)).Msg("Transcription run completed")
	return segments, nil
}

// CancelIfNeeded aborts the in-flight run and flushes engine decode state.
// A no-op when nothing is running.
func (s *Service) CancelIfNeeded() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	if cancel != nil {
		s.seq++
	}
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if s.engine != nil {
		if err := s.engine.ClearState(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithComponent("transcriber").WithError(err).Warn().Msg("Engine state flush failed")
		}
	}
}

// beginRun registers a new run, cancelling any run still in flight.
func (s *Service) beginRun(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return runCtx, s.seq
}

// endRun releases run bookkeeping if it still belongs to this run.
func (s *Service) endRun(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == seq && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Service) currentSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
