package cmd

import (
	"context"
	"fmt"

	"ocbridge/internal/oauth"

	"github.com/spf13/cobra"
)

func newAuthURLCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "auth-url",
		Short: "Print the Operations Center authorization URL",
		Long: `Prints the authorization URL for the configured client, using the static
OC_STATE value. Open it in a browser with the callback bridge running to
complete a login by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCLIConfig(configPath, debug)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			client := oauth.NewFactory(cfg.OperationsCenter, cfg.Timeouts, nil).New(oauth.TokenSet{})
			authURL, err := client.AuthorizationURL(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), authURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config-path", "", "Custom configuration directory path")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

func init() {
	rootCmd.AddCommand(newAuthURLCmd())
}
