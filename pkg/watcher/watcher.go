package watcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sonoscribe/sonoscribe/pkg/logger"
	"github.com/sonoscribe/sonoscribe/pkg/media"
	"github.com/sonoscribe/sonoscribe/pkg/segment"
	"github.com/sonoscribe/sonoscribe/pkg/transcriber"
)

// folderWatcher implements FolderWatcher.
type folderWatcher struct {
	config      *Config
	transcriber transcriber.Transcriber
	history     History
	watcher     *fsnotify.Watcher

	// inFlight guards against the same path being queued twice when fsnotify
	// delivers bursts of write events.
	inFlight   map[string]struct{}
	inFlightMu sync.Mutex

	// queue feeds the single worker goroutine. One worker means runs never
	// overlap on the shared transcriber, whose cancel-and-replace contract
	// would otherwise abort the earlier file.
	queue chan string

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a folder watcher transcribing through tr.
func New(config *Config, tr transcriber.Transcriber) (FolderWatcher, error) {
	if config.WatchDir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}

	history, err := NewHistory(config.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create processing history: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = history.Close()
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &folderWatcher{
		config:      config,
		transcriber: tr,
		history:     history,
		watcher:     fsWatcher,
		inFlight:    make(map[string]struct{}),
		queue:       make(chan string, 128),
		stopCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Blocks until ctx is cancelled or Stop is called.
// Files are handed to a single worker, so they are transcribed one at a time.
func (fw *folderWatcher) Start(ctx context.Context) error {
	log := logger.WithComponent("watcher").WithField("dir", fw.config.WatchDir)

	if err := fw.watcher.Add(fw.config.WatchDir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	log.Info().Strs("patterns", fw.config.Patterns).Msg("Watching directory")

	fw.wg.Add(1)
	go fw.worker(ctx)

	if fw.config.ProcessExisting {
		fw.processExisting()
	}

	for {
		select {
		case <-ctx.Done():
			fw.wg.Wait()
			return ctx.Err()
		case <-fw.stopCh:
			fw.wg.Wait()
			return nil
		case event, ok := <-fw.watcher.Events:
			if !ok {
				fw.wg.Wait()
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !fw.matches(event.Name) {
				continue
			}
			fw.enqueue(event.Name)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				fw.wg.Wait()
				return nil
			}
			log.WithError(err).Warn().Msg("Watcher error")
		}
	}
}

// Stop gracefully shuts the watcher down. The worker is drained before the
// history database closes, so in-flight records always land.
func (fw *folderWatcher) Stop() error {
	fw.stopOnce.Do(func() {
		close(fw.stopCh)
	})
	err := fw.watcher.Close()
	fw.wg.Wait()
	if histErr := fw.history.Close(); err == nil {
		err = histErr
	}
	return err
}

// worker drains the processing queue, one file at a time.
func (fw *folderWatcher) worker(ctx context.Context) {
	defer fw.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopCh:
			return
		case path := <-fw.queue:
			fw.processFile(ctx, path)
		}
	}
}

// enqueue queues path for the worker unless it is already queued or being
// processed.
func (fw *folderWatcher) enqueue(path string) {
	fw.inFlightMu.Lock()
	if _, busy := fw.inFlight[path]; busy {
		fw.inFlightMu.Unlock()
		return
	}
	fw.inFlight[path] = struct{}{}
	fw.inFlightMu.Unlock()

	select {
	case fw.queue <- path:
	default:
		fw.inFlightMu.Lock()
		delete(fw.inFlight, path)
		fw.inFlightMu.Unlock()
		logger.WithComponent("watcher").Warn().
			Str("file", filepath.Base(path)).
			Msg("Processing backlog full, dropping event")
	}
}

// processExisting picks up matching files already present at startup.
func (fw *folderWatcher) processExisting() {
	entries, err := os.ReadDir(fw.config.WatchDir)
	if err != nil {
		logger.WithComponent("watcher").WithError(err).Warn().Msg("Failed to list existing files")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(fw.config.WatchDir, entry.Name())
		if !fw.matches(path) {
			continue
		}
		fw.enqueue(path)
	}
}

// processFile transcribes one file after it stabilizes, consulting history.
// The path was marked in-flight by enqueue; the mark is released here.
func (fw *folderWatcher) processFile(ctx context.Context, path string) {
	log := logger.WithComponent("watcher").WithField("file", filepath.Base(path))

	defer func() {
		fw.inFlightMu.Lock()
		delete(fw.inFlight, path)
		fw.inFlightMu.Unlock()
	}()

	if !media.IsSupported(path) {
		return
	}
	if !fw.waitStable(ctx, path) {
		return
	}

	hash, err := fileHash(path)
	if err != nil {
		log.WithError(err).Warn().Msg("Failed to hash file")
		return
	}

	processed, err := fw.history.IsProcessed(hash)
	if err != nil {
		log.WithError(err).Warn().Msg("History lookup failed")
	} else if processed {
		log.Debug().Msg("Already transcribed, skipping")
		return
	}

	log.Info().Msg("Transcribing new file")
	segments, err := fw.transcriber.Transcribe(ctx, path, fw.config.Language, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Shutdown cancellation, not a failure of the file.
			log.Debug().Msg("Transcription cancelled")
			return
		}
		log.WithError(err).Error().Msg("Transcription failed")
		_ = fw.history.RecordFailed(hash, &FailedInfo{
			FileHash: hash,
			FilePath: path,
			FailedAt: time.Now(),
			Error:    err.Error(),
		})
		return
	}

	outPath := fw.outputPath(path)
	if err := segment.WriteTranscript(outPath, segments); err != nil {
		log.WithError(err).Error().Msg("Failed to write transcript")
		return
	}

	if err := fw.history.RecordProcessed(hash, &ProcessedInfo{
		FileHash:    hash,
		FilePath:    path,
		ProcessedAt: time.Now(),
		OutputPath:  outPath,
		SegmentLen:  len(segments),
	}); err != nil {
		log.WithError(err).Warn().Msg("Failed to record history")
	}

	log.Info().Str("output", outPath).Int("segments", len(segments)).Msg("Transcript written")
}

// waitStable waits until the file size stops changing, or gives up on
// cancellation.
func (fw *folderWatcher) waitStable(ctx context.Context, path string) bool {
	wait := fw.config.StabilityWait
	if wait <= 0 {
		wait = 2 * time.Second
	}

	var lastSize int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == lastSize {
			return true
		}
		lastSize = info.Size()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return false
		case <-fw.stopCh:
			return false
		}
	}
}

func (fw *folderWatcher) matches(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if len(fw.config.Patterns) == 0 {
		return true
	}
	for _, pattern := range fw.config.Patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (fw *folderWatcher) outputPath(inputPath string) string {
	dir := fw.config.OutputDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(dir, base+".txt")
}

// fileHash hashes the first 1MB plus the size; enough to identify a media
// file without reading gigabytes.
func fileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	hash := sha256.New()
	if _, err := io.CopyN(hash, file, 1024*1024); err != nil && err != io.EOF {
		return "", err
	}

	info, err := file.Stat()
	if err != nil {
		return "", err
	}
	_, _ = fmt.Fprintf(hash, ":%d", info.Size())

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
