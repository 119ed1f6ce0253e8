package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"ocbridge/internal/config"
	"ocbridge/pkg/logging"
)

// LogLevelEnv selects the log level when --debug is not given.
const LogLevelEnv = "OCBRIDGE_LOG_LEVEL"

// Application represents the main application structure that bootstraps and runs ocbridge.
// It encapsulates the loaded configuration and the services built from it.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: Initialize logging, load configuration, build services
//  2. Execution phase: Serve until a signal or context cancellation
//
// Example usage:
//
//	cfg := app.NewConfig(false, "text", "")
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the provided configuration.
// This function performs the complete bootstrap sequence:
//
//  1. Configures logging based on debug and format settings
//  2. Loads the ocbridge configuration (defaults, config.yaml, environment)
//  3. Initializes the session store, OAuth components and listeners
//
// When cfg.OCBridgeConfig is already set, configuration loading is skipped.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	// Configure logging based on debug flag
	appLogLevel := logging.LevelInfo
	if name := os.Getenv(LogLevelEnv); name != "" {
		appLogLevel = logging.ParseLevel(name)
	}
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.Silent {
		// If silent mode is enabled, suppress all output
		logOutput = io.Discard
	}
	logging.Init(appLogLevel, cfg.LogFormat, logOutput)

	if cfg.OCBridgeConfig == nil {
		configPath := cfg.ConfigPath
		if configPath == "" {
			configPath = config.GetDefaultConfigPathOrPanic()
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load ocbridge configuration from path: %s", configPath)
			return nil, fmt.Errorf("failed to load ocbridge configuration from path %s: %w", configPath, err)
		}
		cfg.OCBridgeConfig = &loaded
	}

	// Missing client credentials are only fatal on first use
	if err := cfg.OCBridgeConfig.OperationsCenter.Validate(); err != nil {
		logging.Warn("Bootstrap", "%v; login and API calls will fail until it is set", err)
	}

	services, err := InitializeServices(ctx, cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Run executes the application
//
// Handles graceful shutdown via context cancellation and system signals.
// The method blocks until the application is terminated or encounters an error.
func (a *Application) Run(ctx context.Context) error {
	defer a.services.Close()

	if a.config.BridgeOnly {
		return runBridgeMode(ctx, a.services)
	}
	return runServeMode(ctx, a.services)
}
