package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sonoscribe/sonoscribe/pkg/engine"
	"github.com/sonoscribe/sonoscribe/pkg/logger"
)

// Lifecycle errors.
var (
	// ErrUnsupportedModel is returned for identifiers absent from the catalog.
	ErrUnsupportedModel = errors.New("unsupported model")
	// ErrFailedToInitialize is returned when a download or load step fails.
	ErrFailedToInitialize = errors.New("failed to initialize model")
)

// Phase is the lifecycle phase of the current setup run.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseChecking
	PhaseDownloading
	PhaseLoading
	PhaseReady
)

// String renders the phase for logs.
func (p Phase) String() string {
	switch p {
	case PhaseChecking:
		return "checking"
	case PhaseDownloading:
		return "downloading"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// State is one observed lifecycle transition. Progress is meaningful only in
// PhaseDownloading.
type State struct {
	Phase    Phase
	Progress float64
}

// StateFunc observes lifecycle transitions during a setup run.
type StateFunc func(State)

// Manager drives the download-then-load sequence and tracks which variant is
// currently loaded. A single mutex serializes setups: the manager is a
// single-writer resource.
type Manager struct {
	engine     engine.Engine
	downloader Downloader
	modelsDir  string
	repo       string

	mu      sync.Mutex
	current string // last successfully loaded variant, "" before any load
}

// NewManager creates a lifecycle manager storing artifacts under modelsDir.
func NewManager(eng engine.Engine, downloader Downloader, modelsDir, repo string) *Manager {
	if modelsDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			modelsDir = filepath.Join(home, ".sonoscribe", "models")
		} else {
			modelsDir = filepath.Join(os.TempDir(), "sonoscribe-models")
		}
	}
	if repo == "" {
		repo = DefaultRepo
	}
	return &Manager{
		engine:     eng,
		downloader: downloader,
		modelsDir:  modelsDir,
		repo:       repo,
	}
}

// SupportedModels returns the identifiers of every catalog variant.
func (m *Manager) SupportedModels() []string {
	ids := make([]string, 0, len(catalog))
	for _, v := range catalog {
		ids = append(ids, v.ID)
	}
	return ids
}

// CurrentModel returns the identifier of the last successfully loaded model,
// or DefaultModel before any load.
func (m *Manager) CurrentModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == "" {
		return DefaultModel
	}
	return m.current
}

// Loaded reports whether any model has been loaded into the engine.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != ""
}

// SetupIfNeeded makes modelName the engine's active model.
//
// Idempotent: when modelName is already loaded it returns immediately without
// invoking onState. Otherwise it emits checking, downloading (skipped when the
// artifact is already on disk), loading, and ready. A failed switch leaves the
// previously loaded model untouched.
func (m *Manager) SetupIfNeeded(ctx context.Context, modelName string, onState StateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if modelName == "" {
		modelName = DefaultModel
	}
	if m.current == modelName {
		return nil
	}

	variant, ok := Lookup(modelName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedModel, modelName)
	}

	log := logger.WithComponent("model-lifecycle").WithField("model", modelName)
	emit := func(s State) {
		if onState != nil {
			onState(s)
		}
	}

	emit(State{Phase: PhaseChecking})
	artifactPath := filepath.Join(m.modelsDir, variant.FileName)

	if _, err := os.Stat(artifactPath); err != nil {
		log.Info().Str("url", variant.URL(m.repo)).Msg("Model artifact missing, downloading")
		emit(State{Phase: PhaseDownloading})
		err := m.downloader.Download(ctx, variant.URL(m.repo), artifactPath, func(fraction float64) {
			emit(State{Phase: PhaseDownloading, Progress: fraction})
		})
		if err != nil {
			log.Error().Err(err).Msg("Model download failed")
			return fmt.Errorf("%w: %s", ErrFailedToInitialize, err)
		}
	} else {
		log.Debug().Str("path", artifactPath).Msg("Model artifact already on disk, skipping download")
	}

	emit(State{Phase: PhaseLoading})
	if err := m.engine.Load(ctx, engine.ModelConfig{Name: modelName, Path: artifactPath}); err != nil {
		log.Error().Err(err).Msg("Engine load failed")
		return fmt.Errorf("%w: %s", ErrFailedToInitialize, err)
	}

	m.current = modelName
	emit(State{Phase: PhaseReady, Progress: 1})
	log.Info().Msg("Model ready")
	return nil
}
