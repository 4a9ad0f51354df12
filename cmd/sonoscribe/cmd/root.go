package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sonoscribe/sonoscribe/pkg/config"
	"github.com/sonoscribe/sonoscribe/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sonoscribe",
	Short: "Local audio/video transcription tool",
	Long: `sonoscribe transcribes audio and video files into timestamped text
using a locally running whisper-server instance.

Features:
- Support for common audio/video formats (MP3, WAV, FLAC, M4A, MP4, MKV, ...)
- Automatic video to 16kHz mono WAV extraction
- Automatic model download and loading (tiny through large-v3-turbo)
- Plain text and SRT output
- Watch-folder mode with processing history`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sonoscribe.yaml)")
	rootCmd.PersistentFlags().String("server", "", "whisper-server base URL (default http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().String("model", "", "model variant to load (tiny, base, small, medium, large-v3, ...)")
	rootCmd.PersistentFlags().String("models-dir", "", "directory for downloaded model artifacts")
	rootCmd.PersistentFlags().String("scratch-dir", "", "scratch directory for session copies and extracted audio")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("log-output", "stderr", "log output (stdout, stderr, file path)")
	rootCmd.PersistentFlags().Bool("log-no-color", false, "disable colored log output")
	rootCmd.PersistentFlags().Bool("log-caller", false, "include caller information in logs")

	// Bind flags to viper
	_ = viper.BindPFlag("engine.base_url", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("models.default", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("models.dir", rootCmd.PersistentFlags().Lookup("models-dir"))
	_ = viper.BindPFlag("media.scratch_dir", rootCmd.PersistentFlags().Lookup("scratch-dir"))

	// Bind logging flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.output", rootCmd.PersistentFlags().Lookup("log-output"))
	_ = viper.BindPFlag("logging.caller", rootCmd.PersistentFlags().Lookup("log-caller"))
	_ = viper.BindPFlag("logging.no_color", rootCmd.PersistentFlags().Lookup("log-no-color"))

	// Environment variable bindings
	viper.SetEnvPrefix("SONOSCRIBE")
	viper.AutomaticEnv()
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".sonoscribe" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sonoscribe")
	}

	// If a config file is found, read it in.
	configFileUsed := ""
	if err := viper.ReadInConfig(); err == nil {
		configFileUsed = viper.ConfigFileUsed()
	}

	cfg = loadConfig()

	// Initialize logger
	initLogger()

	// Log config file usage after logger is initialized
	if configFileUsed != "" {
		logger.Info().Str("config_file", configFileUsed).Msg("Loaded configuration file")
	}
}

// loadConfig builds the effective configuration from defaults overlaid with
// viper values.
func loadConfig() *config.Config {
	c := config.DefaultConfig()

	if v := viper.GetString("engine.base_url"); v != "" {
		c.Engine.BaseURL = v
	}
	if v := viper.GetString("models.default"); v != "" {
		c.Models.Default = v
	}
	if v := viper.GetString("models.dir"); v != "" {
		c.Models.Dir = v
	}
	if v := viper.GetString("models.repo"); v != "" {
		c.Models.Repo = v
	}
	if v := viper.GetString("media.scratch_dir"); v != "" {
		c.Media.ScratchDir = v
	}
	if v := viper.GetString("transcribe.language"); v != "" {
		c.Transcribe.Language = v
	}

	return c
}

// initLogger initializes the logger based on configuration
func initLogger() {
	logCfg := cfg.Logging

	logCfg.Level = viper.GetString("logging.level")
	logCfg.Format = viper.GetString("logging.format")
	logCfg.Output = viper.GetString("logging.output")
	logCfg.Caller = viper.GetBool("logging.caller")
	logCfg.NoColor = viper.GetBool("logging.no_color")

	if err := logger.Initialize(&logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
}
