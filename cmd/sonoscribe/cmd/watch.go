package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sonoscribe/sonoscribe/pkg/logger"
	"github.com/sonoscribe/sonoscribe/pkg/watcher"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory for new audio/video files and transcribe them",
	Long: `Watch a directory for new audio/video files and automatically
transcribe them.

Files already transcribed are remembered in a history database and skipped
when they reappear, so the watcher is safe to restart.

Examples:
  # Watch current directory
  sonoscribe watch .

  # Watch with custom output directory
  sonoscribe watch ./recordings --output-dir ./transcripts

  # Watch specific file types
  sonoscribe watch ./audio --pattern "*.mp3,*.m4a"

  # Skip files already present at startup
  sonoscribe watch ./inbox --no-existing`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	// Watch options
	watchCmd.Flags().StringSliceP("pattern", "", nil,
		"file patterns to watch (comma-separated, default *.mp3,*.wav,*.m4a,*.mp4)")
	watchCmd.Flags().Bool("no-existing", false, "skip processing existing files on startup")
	watchCmd.Flags().Duration("stability-wait", 2*time.Second, "time to wait for file stability")

	// Output options
	watchCmd.Flags().String("output-dir", "", "directory for transcription outputs (default: watch directory)")

	// History options
	watchCmd.Flags().String("history-db", ".sonoscribe-watch.db", "path to history database")

	// Transcription options
	watchCmd.Flags().String("language", "auto", "language code (auto, en, de, zh, etc.)")

	// Bind flags to viper
	_ = viper.BindPFlag("watch.patterns", watchCmd.Flags().Lookup("pattern"))
	_ = viper.BindPFlag("watch.stability_wait", watchCmd.Flags().Lookup("stability-wait"))
	_ = viper.BindPFlag("watch.output_dir", watchCmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("watch.history_db", watchCmd.Flags().Lookup("history-db"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("watch")

	watchDir := args[0]
	log.Info().Str("directory", watchDir).Msg("Starting watch mode")

	// Validate directory
	info, err := os.Stat(watchDir)
	if err != nil {
		return fmt.Errorf("invalid watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path must be a directory")
	}

	tr, err := newTranscriber(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize transcriber")
		return fmt.Errorf("failed to initialize transcriber: %w", err)
	}

	watchCfg := loadWatchConfig(cmd, watchDir)
	log.Debug().Interface("config", watchCfg).Msg("Loaded watch configuration")

	folderWatcher, err := watcher.New(watchCfg, tr)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create folder watcher")
		return fmt.Errorf("failed to create folder watcher: %w", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	fmt.Printf("Watching directory: %s\n", watchDir)
	fmt.Printf("   Patterns: %s\n", strings.Join(watchCfg.Patterns, ", "))
	if watchCfg.OutputDir != "" {
		fmt.Printf("   Output: %s\n", watchCfg.OutputDir)
	}
	fmt.Println("\nPress Ctrl+C to stop watching...")

	err = folderWatcher.Start(ctx)

	if stopErr := folderWatcher.Stop(); stopErr != nil {
		log.Error().Err(stopErr).Msg("Error stopping folder watcher")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watcher failed: %w", err)
	}
	return nil
}

func loadWatchConfig(cmd *cobra.Command, watchDir string) *watcher.Config {
	watchCfg := watcher.DefaultConfig()
	watchCfg.WatchDir = watchDir

	if cfg.Watch.Patterns != nil {
		watchCfg.Patterns = cfg.Watch.Patterns
	}
	if patterns, _ := cmd.Flags().GetStringSlice("pattern"); len(patterns) > 0 {
		watchCfg.Patterns = patterns
	}

	watchCfg.StabilityWait, _ = cmd.Flags().GetDuration("stability-wait")
	watchCfg.OutputDir, _ = cmd.Flags().GetString("output-dir")
	watchCfg.HistoryDB, _ = cmd.Flags().GetString("history-db")
	watchCfg.Language, _ = cmd.Flags().GetString("language")

	noExisting, _ := cmd.Flags().GetBool("no-existing")
	watchCfg.ProcessExisting = !noExisting

	return watchCfg
}
