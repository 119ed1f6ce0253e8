package cmd

import (
	"fmt"
	"os"

	"ocbridge/internal/config"
	"ocbridge/pkg/logging"
)

// loadCLIConfig loads configuration for one-shot commands. Logs go to stderr
// so that stdout carries only the command's output.
func loadCLIConfig(configPath string, debug bool) (config.Config, error) {
	level := logging.LevelWarn
	if debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)

	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
