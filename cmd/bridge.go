package cmd

import (
	"ocbridge/internal/app"

	"github.com/spf13/cobra"
)

var (
	bridgeDebug      bool
	bridgeLogFormat  string
	bridgeConfigPath string
)

// bridgeCmd runs the callback bridge on its own.
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run only the loopback callback bridge",
	Long: `Runs the loopback callback bridge without the main web application, for
deployments where the two run as separate processes.

The bridge listens on bridge.addr (OCBRIDGE_BRIDGE_ADDR, default
127.0.0.1:9090) and redirects GET /callback to <public URL>/auth/callback
(OCBRIDGE_PUBLIC_URL, default http://127.0.0.1:5000).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.NewConfig(bridgeDebug, bridgeLogFormat, bridgeConfigPath)
		cfg.BridgeOnly = true
		return runApplication(cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(bridgeCmd)

	bridgeCmd.Flags().BoolVar(&bridgeDebug, "debug", false, "Enable general debug logging")
	bridgeCmd.Flags().StringVar(&bridgeLogFormat, "log-format", "text", "Log output format: text or json")
	bridgeCmd.Flags().StringVar(&bridgeConfigPath, "config-path", "", "Custom configuration directory path")
}
