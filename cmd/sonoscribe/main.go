package main

import (
	"os"

	"github.com/sonoscribe/sonoscribe/cmd/sonoscribe/cmd"
	"github.com/sonoscribe/sonoscribe/pkg/logger"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Application execution failed")
		os.Exit(1)
	}
}
