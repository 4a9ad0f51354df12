package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Loader handles configuration loading and management.
type Loader struct {
	configPath string
	viper      *viper.Viper
}

// NewLoader creates a new configuration loader. An empty configPath searches
// the standard locations.
func NewLoader(configPath string) *Loader {
	v := viper.New()

	v.SetEnvPrefix("SONOSCRIBE")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName(".sonoscribe")
		v.SetConfigType("yaml")
	}

	return &Loader{
		configPath: configPath,
		viper:      v,
	}
}

// Load reads and returns the configuration.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	if err := l.viper.ReadInConfig(); err != nil {
		// A missing config file is fine: defaults plus env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// GetConfigFile returns the path of the config file in use.
func (l *Loader) GetConfigFile() string {
	return l.viper.ConfigFileUsed()
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.viper.SetDefault("models.dir", defaults.Models.Dir)
	l.viper.SetDefault("models.default", defaults.Models.Default)
	l.viper.SetDefault("models.repo", defaults.Models.Repo)
	l.viper.SetDefault("models.download_timeout", defaults.Models.DownloadTimeout)
	l.viper.SetDefault("models.download_retries", defaults.Models.DownloadRetries)

	l.viper.SetDefault("engine.base_url", defaults.Engine.BaseURL)
	l.viper.SetDefault("engine.request_timeout", defaults.Engine.RequestTimeout)

	l.viper.SetDefault("media.scratch_dir", defaults.Media.ScratchDir)

	l.viper.SetDefault("transcribe.language", defaults.Transcribe.Language)

	l.viper.SetDefault("playback.scroll_threshold", defaults.Playback.ScrollThreshold)
	l.viper.SetDefault("playback.forced_scroll_window", defaults.Playback.ForcedScrollWindow)

	l.viper.SetDefault("watch.patterns", defaults.Watch.Patterns)
	l.viper.SetDefault("watch.stability_wait", defaults.Watch.StabilityWait)
	l.viper.SetDefault("watch.history_db", defaults.Watch.HistoryDB)
	l.viper.SetDefault("watch.process_existing", defaults.Watch.ProcessExisting)

	l.viper.SetDefault("logging.level", "info")
	l.viper.SetDefault("logging.format", "console")
	l.viper.SetDefault("logging.output", "stderr")
	l.viper.SetDefault("logging.timestamp", true)
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Models.Default == "" {
		return fmt.Errorf("models.default is required")
	}
	if cfg.Models.DownloadRetries < 0 {
		return fmt.Errorf("models.download_retries cannot be negative")
	}
	if cfg.Engine.BaseURL == "" {
		return fmt.Errorf("engine.base_url is required")
	}
	if cfg.Playback.ScrollThreshold < 0 {
		return fmt.Errorf("playback.scroll_threshold cannot be negative")
	}
	return nil
}
