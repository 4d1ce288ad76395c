package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mailfeed application
var rootCmd = &cobra.Command{
	Use:   "mailfeed",
	Short: "Email ingestion backend with Google OAuth2 mailbox access",
	Long: `mailfeed watches an IMAP mailbox and exposes an HTTP API for managing
the connection: Google accounts authorize via OAuth2 and authenticate with
XOAUTH2, everything else uses a stored password.

Tokens are encrypted at rest and refreshed transparently before they expire.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailfeed version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newVersionCmd())
}
