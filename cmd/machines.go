package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"ocbridge/internal/formatting"
	"ocbridge/internal/oauth"
	"ocbridge/pkg/logging"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Environment variables read by the machines command when no token flags are given.
const (
	envAccessToken  = "OC_ACCESS_TOKEN"
	envRefreshToken = "OC_REFRESH_TOKEN"
)

type machinesOptions struct {
	configPath   string
	debug        bool
	orgID        string
	embedDevices bool
	accessToken  string
	refreshToken string
	output       string
	quiet        bool
	noColor      bool
	printTokens  bool
}

func newMachinesCmd() *cobra.Command {
	opts := &machinesOptions{}

	cmd := &cobra.Command{
		Use:   "machines",
		Short: "List the machines of an organization",
		Long: `Lists the active, serial-certified machines of an Operations Center
organization.

Tokens come from --access-token and --refresh-token, or from OC_ACCESS_TOKEN
and OC_REFRESH_TOKEN. An expired or missing access token is refreshed when a
refresh token is available.

Exit codes:
  0  success
  1  error
  2  not authorized (no usable token)
  3  the token endpoint rejected the refresh token`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMachines(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.orgID, "org", "", "Organization ID (required)")
	cmd.Flags().BoolVar(&opts.embedDevices, "embed-devices", false, "Embed device information in the equipment query")
	cmd.Flags().StringVar(&opts.accessToken, "access-token", "", "Access token (default $"+envAccessToken+")")
	cmd.Flags().StringVar(&opts.refreshToken, "refresh-token", "", "Refresh token (default $"+envRefreshToken+")")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format: table, json or yaml")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress the table summary footer")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored table output")
	cmd.Flags().BoolVar(&opts.printTokens, "print-tokens", false, "Print refreshed tokens as shell exports on stderr")
	cmd.Flags().StringVar(&opts.configPath, "config-path", "", "Custom configuration directory path")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}

func runMachines(cmd *cobra.Command, opts *machinesOptions) error {
	format, err := formatting.ParseFormat(opts.output)
	if err != nil {
		return err
	}

	cfg, err := loadCLIConfig(opts.configPath, opts.debug)
	if err != nil {
		return err
	}

	// Read after config loading so .env and Secrets Manager values apply
	tokens := oauth.TokenSet{
		AccessToken:  firstNonEmpty(opts.accessToken, os.Getenv(envAccessToken)),
		RefreshToken: firstNonEmpty(opts.refreshToken, os.Getenv(envRefreshToken)),
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client := oauth.NewFactory(cfg.OperationsCenter, cfg.Timeouts, nil).New(tokens)
	if tokens.AccessToken == "" && tokens.RefreshToken != "" {
		if err := client.Refresh(ctx); err != nil {
			return err
		}
	}

	listing, err := client.ListMachines(ctx, opts.orgID, opts.embedDevices)
	reportRotatedTokens(cmd.ErrOrStderr(), tokens, client.Tokens(), opts.printTokens)
	if err != nil {
		return err
	}

	formatter := formatting.NewFactory().CreateFormatter(formatting.Options{
		Format: format,
		Quiet:  opts.quiet,
		Color:  !opts.noColor && isTerminal(cmd.OutOrStdout()),
		Writer: cmd.OutOrStdout(),
	})
	return formatter.FormatMachines(listing)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func reportRotatedTokens(out io.Writer, before, after oauth.TokenSet, printTokens bool) {
	if before.AccessToken == after.AccessToken && before.RefreshToken == after.RefreshToken {
		return
	}
	if printTokens {
		fmt.Fprintf(out, "export %s=%s\n", envAccessToken, after.AccessToken)
		fmt.Fprintf(out, "export %s=%s\n", envRefreshToken, after.RefreshToken)
		return
	}
	if before.RefreshToken != after.RefreshToken {
		logging.Warn("CLI", "The refresh token was rotated; rerun with --print-tokens to keep the new one")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(newMachinesCmd())
}
