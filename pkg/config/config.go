// Package config defines the application configuration and its viper-backed
// loader.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sonoscribe/sonoscribe/pkg/logger"
)

// Config represents the application configuration.
type Config struct {
	// Recognition model lifecycle settings.
	Models ModelsConfig `yaml:"models" mapstructure:"models"`

	// Recognition engine connection settings.
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`

	// Media ingestion settings.
	Media MediaConfig `yaml:"media" mapstructure:"media"`

	// Transcription settings.
	Transcribe TranscribeConfig `yaml:"transcribe" mapstructure:"transcribe"`

	// Playback/transcript sync settings.
	Playback PlaybackConfig `yaml:"playback" mapstructure:"playback"`

	// Watch-folder settings.
	Watch WatchConfig `yaml:"watch" mapstructure:"watch"`

	// Logging settings.
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ModelsConfig contains model registry and download settings.
type ModelsConfig struct {
	// Dir is where downloaded model artifacts persist across restarts.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// Default is the model variant loaded when none is requested.
	Default string `yaml:"default" mapstructure:"default"`
	// Repo is the HuggingFace repository artifacts are fetched from.
	Repo string `yaml:"repo" mapstructure:"repo"`
	// DownloadTimeout caps one download attempt.
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
	// DownloadRetries is the number of retries after a failed attempt.
	DownloadRetries int `yaml:"download_retries" mapstructure:"download_retries"`
}

// EngineConfig contains whisper-server connection settings.
type EngineConfig struct {
	// BaseURL is where the local whisper-server listens.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// RequestTimeout caps one recognition request.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// MediaConfig contains ingestion settings.
type MediaConfig struct {
	// ScratchDir holds session copies and extracted audio temporaries.
	ScratchDir string `yaml:"scratch_dir" mapstructure:"scratch_dir"`
}

// TranscribeConfig contains transcription settings.
type TranscribeConfig struct {
	// Language is an ISO 639-1 code, or "auto" for detection.
	Language string `yaml:"language" mapstructure:"language"`
}

// PlaybackConfig contains sync state machine settings.
type PlaybackConfig struct {
	// ScrollThreshold is the normalized offset delta treated as a manual scroll.
	ScrollThreshold float64 `yaml:"scroll_threshold" mapstructure:"scroll_threshold"`
	// ForcedScrollWindow is how long the auto-scroll override stays armed.
	ForcedScrollWindow time.Duration `yaml:"forced_scroll_window" mapstructure:"forced_scroll_window"`
}

// WatchConfig contains watch-folder settings.
type WatchConfig struct {
	// Patterns are the file globs to pick up (e.g. "*.mp3").
	Patterns []string `yaml:"patterns" mapstructure:"patterns"`
	// OutputDir receives the transcripts.
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	// StabilityWait is how long a file size must stay unchanged before
	// processing.
	StabilityWait time.Duration `yaml:"stability_wait" mapstructure:"stability_wait"`
	// HistoryDB is the path of the processed-file history database.
	HistoryDB string `yaml:"history_db" mapstructure:"history_db"`
	// ProcessExisting transcribes files already present at startup.
	ProcessExisting bool `yaml:"process_existing" mapstructure:"process_existing"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Models: ModelsConfig{
			Default:         "base",
			Repo:            "ggerganov/whisper.cpp",
			DownloadTimeout: 30 * time.Minute,
			DownloadRetries: 2,
		},
		Engine: EngineConfig{
			BaseURL:        "http://127.0.0.1:8080",
			RequestTimeout: 30 * time.Minute,
		},
		Media: MediaConfig{
			ScratchDir: filepath.Join(os.TempDir(), "sonoscribe"),
		},
		Transcribe: TranscribeConfig{
			Language: "auto",
		},
		Playback: PlaybackConfig{
			ScrollThreshold:    0.3,
			ForcedScrollWindow: time.Second,
		},
		Watch: WatchConfig{
			Patterns:        []string{"*.mp3", "*.wav", "*.m4a", "*.mp4"},
			StabilityWait:   2 * time.Second,
			HistoryDB:       ".sonoscribe-watch.db",
			ProcessExisting: true,
		},
		Logging: *logger.DefaultConfig(),
	}
}
