package app

import (
	"ocbridge/internal/config"
	"ocbridge/pkg/logging"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug     bool
	LogFormat logging.Format

	// Silent suppresses all log output
	Silent bool

	// Custom configuration path (optional)
	// When empty, ~/.config/ocbridge is used
	ConfigPath string

	// BridgeOnly runs the loopback callback bridge without the main server
	BridgeOnly bool

	// Effective ocbridge configuration. Loaded during bootstrap when nil.
	OCBridgeConfig *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, logFormat, configPath string) *Config {
	format := logging.FormatText
	if logFormat == string(logging.FormatJSON) {
		format = logging.FormatJSON
	}
	return &Config{
		Debug:      debug,
		LogFormat:  format,
		ConfigPath: configPath,
	}
}
