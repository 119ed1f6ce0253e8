package cmd

import (
	"context"
	"fmt"

	"ocbridge/internal/app"

	"github.com/spf13/cobra"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveLogFormat selects text or JSON log output.
var serveLogFormat string

// serveConfigPath specifies a custom configuration directory path.
// The directory may contain a config.yaml; the environment still overrides it.
var serveConfigPath string

// serveCmd starts the main web application and the callback bridge.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ocbridge web application and the callback bridge",
	Long: `Starts the main web application (default http://127.0.0.1:5000) and the
loopback callback bridge (default http://127.0.0.1:9090/callback).

The bridge must listen on the redirect URI registered at Operations Center
(OC_CALLBACK_URL). It forwards the provider redirect to /auth/callback on the
main application. If the bridge cannot start, the main application keeps
running and only new logins are affected.

Configuration:
  Defaults are overridden by config.yaml in the configuration directory
  (~/.config/ocbridge, or --config-path), which is in turn overridden by the
  environment. A .env file in the working directory (or ENV_FILE_PATH) is
  loaded first, and AWS_SECRETS_MANAGER_SECRET_ID pulls a JSON secret from
  AWS Secrets Manager into the environment.

  Required: OC_CLIENT_ID, OC_CLIENT_SECRET, OC_WELL_KNOWN, OC_CALLBACK_URL.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	return runApplication(cmd, app.NewConfig(serveDebug, serveLogFormat, serveConfigPath))
}

func runApplication(cmd *cobra.Command, cfg *app.Config) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Create and initialize the application
	application, err := app.NewApplication(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(ctx)
}

// init registers the serve command and its flags with the root command.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable general debug logging")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", "text", "Log output format: text or json")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path")
}
