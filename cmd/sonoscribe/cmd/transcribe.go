package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sonoscribe/sonoscribe/pkg/config"
	"github.com/sonoscribe/sonoscribe/pkg/engine/whisperd"
	"github.com/sonoscribe/sonoscribe/pkg/logger"
	"github.com/sonoscribe/sonoscribe/pkg/media"
	"github.com/sonoscribe/sonoscribe/pkg/models"
	"github.com/sonoscribe/sonoscribe/pkg/segment"
	"github.com/sonoscribe/sonoscribe/pkg/transcriber"
)

// transcribeCmd represents the transcribe command
var transcribeCmd = &cobra.Command{
	Use:   "transcribe [files...]",
	Short: "Transcribe audio/video files to text",
	Long: `Transcribe audio or video files to timestamped text using a local
whisper-server instance.

Supported formats:
- Audio: MP3, WAV, AAC, FLAC, M4A
- Video: MP4, MOV, M4V, AVI, MKV, WEBM, FLV (audio extracted automatically)

Examples:
  # Transcribe a single file
  sonoscribe transcribe audio.mp3

  # Transcribe with custom output
  sonoscribe transcribe video.mp4 -o transcript.txt

  # Transcribe to SRT subtitles
  sonoscribe transcribe talk.mkv --format srt

  # Transcribe in a specific language with a bigger model
  sonoscribe transcribe interview.wav --language de --model medium`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	// Output options
	transcribeCmd.Flags().StringP("output", "o", "", "output file path (default: input_file.txt)")
	transcribeCmd.Flags().String("format", "text", "output format (text, srt, plain)")

	// Transcription options
	transcribeCmd.Flags().String("language", "auto", "language code (auto, en, de, zh, etc.)")
	transcribeCmd.Flags().Bool("progress", true, "show progress during transcription")

	// Bind flags to viper
	_ = viper.BindPFlag("transcribe.language", transcribeCmd.Flags().Lookup("language"))
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("transcribe")

	log.Info().Int("file_count", len(args)).Strs("files", args).Msg("Starting transcription")

	tr, err := newTranscriber(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize transcriber")
		return fmt.Errorf("failed to initialize transcriber: %w", err)
	}

	language, _ := cmd.Flags().GetString("language")

	// Process files
	successCount := 0
	failureCount := 0

	for _, filePath := range args {
		fileLog := log.WithField("file", filepath.Base(filePath))
		fileLog.Info().Msg("Processing file")

		if err := processFile(cmd, tr, filePath, language); err != nil {
			fileLog.Error().Err(err).Msg("Failed to process file")
			failureCount++
			continue
		}
		fileLog.Info().Msg("Successfully processed file")
		successCount++
	}

	log.Info().
		Int("successful", successCount).
		Int("failed", failureCount).
		Int("total", len(args)).
		Msg("Transcription batch completed")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d files failed", failureCount, len(args))
	}
	return nil
}

// newTranscriber wires the whisper-server engine, model lifecycle manager and
// media ingestor into a transcription service.
func newTranscriber(c *config.Config) (*transcriber.Service, error) {
	eng := whisperd.NewClient(c.Engine.BaseURL, c.Engine.RequestTimeout)

	downloadOpts := models.DefaultDownloadOptions()
	if c.Models.DownloadTimeout > 0 {
		downloadOpts.Timeout = c.Models.DownloadTimeout
	}
	if c.Models.DownloadRetries >= 0 {
		downloadOpts.Retries = c.Models.DownloadRetries
	}
	downloader := models.NewHTTPDownloader(downloadOpts)

	lifecycle := models.NewManager(eng, downloader, c.Models.Dir, c.Models.Repo)
	ingestor := media.NewIngestor(c.Media.ScratchDir)

	return transcriber.NewService(eng, lifecycle, ingestor), nil
}

func processFile(cmd *cobra.Command, tr transcriber.Transcriber, filePath, language string) error {
	log := logger.WithComponent("processor").WithField("file", filepath.Base(filePath))

	log.Debug().Str("full_path", filePath).Msg("Starting file processing")

	// Validate file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		log.Error().Str("path", filePath).Msg("File does not exist")
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	format, _ := cmd.Flags().GetString("format")

	// Get output path
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		ext := ".txt"
		if format == "srt" {
			ext = ".srt"
		}
		outputPath = strings.TrimSuffix(filePath, filepath.Ext(filePath)) + ext
	}
	log.Debug().Str("output_path", outputPath).Str("format", format).Msg("Output configuration")

	// Show progress
	showProgress, _ := cmd.Flags().GetBool("progress")
	var onProgress func(float64)
	if showProgress {
		onProgress = func(fraction float64) {
			fmt.Printf("\r[%s] %3.0f%%", filepath.Base(filePath), fraction*100)
			if fraction >= 1 {
				fmt.Println()
			}
		}
	}

	// Start transcription
	ctx := context.Background()
	startTime := time.Now()
	log.Info().Msg("Starting transcription")

	segments, err := tr.Transcribe(ctx, filePath, language, onProgress)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(startTime)).Msg("Transcription failed")
		return fmt.Errorf("transcription failed: %w", err)
	}

	// Write output
	var writeErr error
	switch format {
	case "srt":
		writeErr = os.WriteFile(outputPath, segment.SRT(segments), 0o644)
	case "plain":
		writeErr = os.WriteFile(outputPath, []byte(segment.ExportText(segments)), 0o644)
	default:
		writeErr = segment.WriteTranscript(outputPath, segments)
	}
	if writeErr != nil {
		return fmt.Errorf("failed to write output: %w", writeErr)
	}

	duration := time.Since(startTime)
	log.Info().
		Dur("duration", duration).
		Int("segments", len(segments)).
		Str("output", outputPath).
		Msg("Transcription completed successfully")

	fmt.Printf("Transcribed %s in %v\n", filepath.Base(filePath), duration.Round(time.Second))
	fmt.Printf("  Output: %s\n", outputPath)
	fmt.Printf("  Segments: %d\n", len(segments))

	return nil
}
