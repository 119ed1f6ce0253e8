package cmd

import (
	"errors"
	"os"

	"ocbridge/internal/oauth"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeNotAuthorized indicates no usable Operations Center token.
	ExitCodeNotAuthorized = 2
	// ExitCodeTokenExchangeFailed indicates the token endpoint rejected a grant.
	ExitCodeTokenExchangeFailed = 3
)

// rootCmd represents the base command for the ocbridge application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ocbridge",
	Short: "Connect a web application to Operations Center",
	Long: `ocbridge logs users in to the Operations Center identity provider with the
OAuth2 authorization code flow and calls the equipment API on their behalf.

It runs the main web application together with a loopback callback bridge
that receives the provider redirect on the registered redirect URI.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "ocbridge version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var notAuthorized *oauth.NotAuthorizedError
	if errors.As(err, &notAuthorized) {
		return ExitCodeNotAuthorized
	}

	var exchangeErr *oauth.TokenExchangeError
	if errors.As(err, &exchangeErr) {
		return ExitCodeTokenExchangeFailed
	}

	// Default to general error
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
