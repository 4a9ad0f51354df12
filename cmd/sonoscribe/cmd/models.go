package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sonoscribe/sonoscribe/pkg/logger"
	"github.com/sonoscribe/sonoscribe/pkg/models"
)

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage recognition models",
	Long: `List the supported whisper.cpp model variants and download them
ahead of time. Models not present locally are downloaded automatically on
first use; pulling them up front avoids the wait.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported model variants",
	RunE:  runModelsList,
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull [variants...]",
	Short: "Download model variants",
	Long: `Download one or more model variants into the models directory.

Examples:
  sonoscribe models pull base
  sonoscribe models pull small.en large-v3-turbo`,
	Args: cobra.MinimumNArgs(1),
	RunE: runModelsPull,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsPullCmd)
}

func runModelsList(cmd *cobra.Command, args []string) error {
	modelsDir := effectiveModelsDir()

	fmt.Printf("%-18s %-10s %-12s %s\n", "VARIANT", "SIZE", "LANGUAGE", "STATUS")
	for _, variant := range models.Catalog() {
		lang := "multilingual"
		if variant.English {
			lang = "english"
		}
		status := "-"
		if _, err := os.Stat(filepath.Join(modelsDir, variant.FileName)); err == nil {
			status = "downloaded"
		}
		fmt.Printf("%-18s %-10s %-12s %s\n", variant.ID, variant.SizeLabel, lang, status)
	}
	return nil
}

func runModelsPull(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("models")

	downloadOpts := models.DefaultDownloadOptions()
	if cfg.Models.DownloadTimeout > 0 {
		downloadOpts.Timeout = cfg.Models.DownloadTimeout
	}
	downloader := models.NewHTTPDownloader(downloadOpts)
	modelsDir := effectiveModelsDir()

	ctx := context.Background()
	for _, id := range args {
		variant, ok := models.Lookup(id)
		if !ok {
			return fmt.Errorf("%w: %s", models.ErrUnsupportedModel, id)
		}

		destPath := filepath.Join(modelsDir, variant.FileName)
		if _, err := os.Stat(destPath); err == nil {
			fmt.Printf("%s already downloaded\n", variant.ID)
			continue
		}

		log.Info().Str("variant", variant.ID).Str("url", variant.URL(cfg.Models.Repo)).Msg("Downloading model")
		fmt.Printf("Pulling %s (%s)...\n", variant.ID, variant.SizeLabel)

		err := downloader.Download(ctx, variant.URL(cfg.Models.Repo), destPath, func(fraction float64) {
			fmt.Printf("\r  %3.0f%%", fraction*100)
		})
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to pull %s: %w", variant.ID, err)
		}
		fmt.Printf("  Saved to %s\n", destPath)
	}
	return nil
}

// effectiveModelsDir resolves the models directory the same way the lifecycle
// manager does.
func effectiveModelsDir() string {
	if cfg.Models.Dir != "" {
		return cfg.Models.Dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "sonoscribe-models")
	}
	return filepath.Join(home, ".sonoscribe", "models")
}
