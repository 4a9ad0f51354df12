package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sonoscribe/sonoscribe/pkg/logger"
	"github.com/sonoscribe/sonoscribe/pkg/media"
	"github.com/sonoscribe/sonoscribe/pkg/models"
	"github.com/sonoscribe/sonoscribe/pkg/segment"
	"github.com/sonoscribe/sonoscribe/pkg/transcriber"
)

// DefaultForcedScrollWindow is how long the auto-scroll override stays armed
// after a programmatic scroll or seek.
const DefaultForcedScrollWindow = time.Second

// Snapshot is the read-only projection of session state the UI renders.
type Snapshot struct {
	FilePath    string
	Duration    time.Duration
	IsVideo     bool
	FileLoaded  bool
	CurrentTime time.Duration
	Progress    float64
	Playing     bool

	Segments        []segment.Segment
	ActiveSegmentID uuid.UUID
	HasActive       bool

	Transcribing       bool
	TranscribeProgress float64
	ErrorMessage       string
}

// Session owns everything the UI observes for one loaded media file. A single
// event-loop goroutine applies every mutation, so observers never see
// interleaved partial updates.
type Session struct {
	tr        transcriber.Transcriber
	ingestor  media.Ingestor
	newPlayer PlayerFactory

	// Scroll is the auto-scroll gate; the view layer feeds it offsets.
	Scroll *AutoScroll

	forcedWindow time.Duration
	language     string

	ctx       context.Context
	ctxCancel context.CancelFunc
	cmds      chan func()
	quit      chan struct{}
	closeOnce sync.Once

	// Loop-owned state. Touched only from run().
	file        *media.File
	player      Player
	ended       bool
	segments    []segment.Segment
	activeID    uuid.UUID
	hasActive   bool
	currentTime time.Duration
	playing     bool

	transcribing bool
	trProgress   float64
	trSeq        uint64
	errMessage   string
}

// SessionOptions configures a session.
type SessionOptions struct {
	// Language is the transcription language ("auto" for detection).
	Language string
	// ScrollThreshold overrides DefaultScrollThreshold when positive.
	ScrollThreshold float64
	// ForcedScrollWindow overrides DefaultForcedScrollWindow when positive.
	ForcedScrollWindow time.Duration
}

// NewSession creates a session and starts its event loop.
func NewSession(tr transcriber.Transcriber, ingestor media.Ingestor, factory PlayerFactory, opts SessionOptions) *Session {
	if opts.Language == "" {
		opts.Language = "auto"
	}
	if opts.ForcedScrollWindow <= 0 {
		opts.ForcedScrollWindow = DefaultForcedScrollWindow
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		tr:           tr,
		ingestor:     ingestor,
		newPlayer:    factory,
		Scroll:       NewAutoScroll(opts.ScrollThreshold),
		forcedWindow: opts.ForcedScrollWindow,
		language:     opts.Language,
		ctx:          ctx,
		ctxCancel:    cancel,
		cmds:         make(chan func()),
		quit:         make(chan struct{}),
	}
	go s.run()
	return s
}

// run is the single serialization point for session state.
func (s *Session) run() {
	for {
		var updates <-chan time.Duration
		var done <-chan struct{}
		if s.player != nil {
			updates = s.player.Updates()
			if !s.ended {
				done = s.player.Done()
			}
		}

		select {
		case <-s.quit:
			s.teardown()
			return
		case fn := <-s.cmds:
			fn()
		case t := <-updates:
			s.applyTime(t)
		case <-done:
			s.ended = true
			s.playing = false
			if s.file != nil {
				s.applyTime(s.file.Duration)
			}
		}
	}
}

// do runs fn on the event loop and waits for it.
func (s *Session) do(fn func()) {
	doneCh := make(chan struct{})
	wrapped := func() {
		fn()
		close(doneCh)
	}
	select {
	case s.cmds <- wrapped:
		<-doneCh
	case <-s.quit:
	}
}

// post runs fn on the event loop without waiting. Used by background
// completions that must not block on a closing session.
func (s *Session) post(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.quit:
	}
}

// LoadFile ingests path and makes it the session's current file. Ingestion
// (scoped copy, probe) runs on the caller's goroutine; only the state swap is
// serialized. Any previous file, playback, transcript, and in-flight
// transcription run are discarded; the old file's scratch copy is released.
func (s *Session) LoadFile(ctx context.Context, path string) error {
	file, err := s.ingestor.Load(ctx, path)
	if err != nil {
		s.do(func() { s.errMessage = humanMessage(err) })
		return err
	}

	var player Player
	if s.newPlayer != nil {
		player, err = s.newPlayer(file.Path)
		if err != nil {
			_ = file.Close()
			s.do(func() { s.errMessage = humanMessage(media.ErrAudioFileLoadFailed) })
			return err
		}
	}

	s.tr.CancelIfNeeded()
	s.do(func() {
		s.trSeq++
		s.transcribing = false
		s.teardownPlayback()
		s.resetTranscript()
		if s.file != nil {
			_ = s.file.Close()
		}
		s.file = file
		s.player = player
		s.ended = false
		s.currentTime = 0
		s.errMessage = ""
	})
	return nil
}

// TogglePlayback starts or pauses playback.
func (s *Session) TogglePlayback() {
	s.do(func() {
		if s.player == nil {
			return
		}
		if s.playing {
			if err := s.player.Pause(); err == nil {
				s.playing = false
			}
			return
		}
		if err := s.player.Play(); err == nil {
			s.playing = true
			s.ended = false
		}
	})
}

// SeekToFraction seeks to fraction of the file's duration, clamped to [0,1].
func (s *Session) SeekToFraction(fraction float64) {
	s.do(func() {
		if s.player == nil || s.file == nil {
			return
		}
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
		s.seekLocked(time.Duration(fraction * float64(s.file.Duration)))
	})
}

// SeekRelative moves the position by delta, clamped to the media bounds.
func (s *Session) SeekRelative(delta time.Duration) {
	s.do(func() {
		if s.player == nil || s.file == nil {
			return
		}
		target := s.currentTime + delta
		if target < 0 {
			target = 0
		}
		if target > s.file.Duration {
			target = s.file.Duration
		}
		s.seekLocked(target)
	})
}

// PlayFromSegment seeks to the segment's start and begins playback. The seek
// scrolls the transcript programmatically, so the forced auto-scroll window
// is armed.
func (s *Session) PlayFromSegment(id uuid.UUID) {
	s.do(func() {
		if s.player == nil {
			return
		}
		for _, seg := range s.segments {
			if seg.ID != id {
				continue
			}
			s.seekLocked(seg.Start)
			s.activeID = seg.ID
			s.hasActive = true
			if err := s.player.Play(); err == nil {
				s.playing = true
				s.ended = false
			}
			return
		}
	})
}

// SetRate sets the playback-speed multiplier.
func (s *Session) SetRate(rate float64) {
	s.do(func() {
		if s.player != nil {
			_ = s.player.SetRate(rate)
		}
	})
}

// Transcribe starts a transcription run for the loaded file. A run already in
// flight is left to the transcriber's cancel-and-replace contract; the
// session tracks only the latest run and discards stale completions.
func (s *Session) Transcribe() {
	s.do(func() {
		if s.file == nil || s.transcribing {
			return
		}
		s.transcribing = true
		s.trProgress = 0
		s.errMessage = ""
		s.trSeq++
		seq := s.trSeq
		path := s.file.Path

		go s.runTranscription(seq, path)
	})
}

// Retranscribe clears the current transcript and starts a fresh run.
func (s *Session) Retranscribe() {
	s.do(func() {
		if s.file == nil || s.transcribing {
			return
		}
		s.resetTranscript()
	})
	s.Transcribe()
}

// runTranscription executes one run off the event loop and posts results back.
func (s *Session) runTranscription(seq uint64, path string) {
	log := logger.WithComponent("session")

	onProgress := func(fraction float64) {
		s.post(func() {
			if s.trSeq == seq {
				s.trProgress = fraction
			}
		})
	}

	segments, err := s.tr.Transcribe(s.ctx, path, s.language, onProgress)

	s.post(func() {
		if s.trSeq != seq {
			// A newer run owns the state now; drop this completion.
			return
		}
		s.transcribing = false
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.WithError(err).Error().Msg("Transcription run failed")
			s.errMessage = humanMessage(err)
			return
		}
		s.segments = segments
		s.refreshActive()
	})
}

// CancelTranscription aborts the in-flight run, if any.
func (s *Session) CancelTranscription() {
	s.do(func() {
		if !s.transcribing {
			return
		}
		s.trSeq++
		s.transcribing = false
		s.trProgress = 0
	})
	s.tr.CancelIfNeeded()
}

// SaveTranscript writes the plain-text transcript to path.
func (s *Session) SaveTranscript(path string) error {
	var segments []segment.Segment
	s.do(func() { segments = s.segments })
	return segment.WriteTranscript(path, segments)
}

// ExportText returns the flattened transcript string.
func (s *Session) ExportText() string {
	var segments []segment.Segment
	s.do(func() { segments = s.segments })
	return segment.ExportText(segments)
}

// FilteredSegments returns the segments matching query, in transcript order.
func (s *Session) FilteredSegments(query string) []segment.Segment {
	var segments []segment.Segment
	s.do(func() { segments = s.segments })
	return segment.Filter(query, segments)
}

// Snapshot returns a consistent view of the session state.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	s.do(func() {
		snap = Snapshot{
			CurrentTime:        s.currentTime,
			Playing:            s.playing,
			Segments:           s.segments,
			ActiveSegmentID:    s.activeID,
			HasActive:          s.hasActive,
			Transcribing:       s.transcribing,
			TranscribeProgress: s.trProgress,
			ErrorMessage:       s.errMessage,
		}
		if s.file != nil {
			snap.FilePath = s.file.Path
			snap.Duration = s.file.Duration
			snap.IsVideo = s.file.IsVideo
			snap.FileLoaded = true
			if s.file.Duration > 0 {
				snap.Progress = float64(s.currentTime) / float64(s.file.Duration)
			}
		}
	})
	return snap
}

// Reset discards the loaded file, playback state, and transcript.
func (s *Session) Reset() {
	s.tr.CancelIfNeeded()
	s.do(func() {
		s.trSeq++
		s.transcribing = false
		s.trProgress = 0
		s.teardownPlayback()
		s.resetTranscript()
		if s.file != nil {
			_ = s.file.Close()
			s.file = nil
		}
		s.currentTime = 0
		s.errMessage = ""
	})
}

// Close shuts the session down and releases its resources.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.ctxCancel()
		s.tr.CancelIfNeeded()
		close(s.quit)
	})
	s.Scroll.Stop()
}

// applyTime advances the playback clock mirror and the active segment.
func (s *Session) applyTime(t time.Duration) {
	s.currentTime = t
	s.refreshActive()
}

func (s *Session) refreshActive() {
	s.activeID, s.hasActive = ActiveSegment(s.currentTime, s.segments)
}

// seekLocked performs a player seek and arms the forced auto-scroll window.
// Must run on the event loop.
func (s *Session) seekLocked(target time.Duration) {
	if err := s.player.Seek(target); err != nil {
		logger.WithComponent("session").WithError(err).Warn().Msg("Seek failed")
		return
	}
	s.ended = false
	s.applyTime(target)
	s.Scroll.Enable(s.forcedWindow)
}

func (s *Session) resetTranscript() {
	s.segments = nil
	s.activeID = uuid.UUID{}
	s.hasActive = false
	s.trProgress = 0
}

func (s *Session) teardownPlayback() {
	if s.player != nil {
		_ = s.player.Pause()
		_ = s.player.Close()
		s.player = nil
	}
	s.playing = false
	s.ended = false
}

// teardown releases loop-owned resources on shutdown.
func (s *Session) teardown() {
	s.teardownPlayback()
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
}

// humanMessage maps the error taxonomy onto the single message shown to the
// user.
func humanMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrUnsupportedFormat):
		return "This file format is not supported."
	case errors.Is(err, media.ErrExtractAudioFailed):
		return "Could not extract an audio track from the video."
	case errors.Is(err, media.ErrAudioFileLoadFailed):
		return "Could not read the media file."
	case errors.Is(err, media.ErrFileAccessDenied):
		return "Access to the file was denied."
	case errors.Is(err, models.ErrUnsupportedModel):
		return "The selected recognition model is not supported."
	case errors.Is(err, models.ErrFailedToInitialize):
		return "The recognition model could not be initialized."
	case errors.Is(err, transcriber.ErrUninitialized):
		return "The recognition engine is not ready yet."
	case errors.Is(err, transcriber.ErrTranscriptionFailed):
		return "Transcription failed."
	default:
		return "An unexpected error occurred."
	}
}
