// Package cmd contains the CLI commands for sentctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Used for flags
	serverURL string
	verbose   bool
	output    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sentctl",
	Short: "Sentinela control CLI",
	Long: `sentctl is the command-line client for a running Sentinela server.

Operator commands authenticate with a JWT obtained via "sentctl login".
Job triggers authenticate with the service key (SENTINELA_SERVICE_KEY).

Examples:
  # Log in and store an access token
  sentctl login --username admin

  # Trigger a business evaluation pass
  sentctl run business

  # List rules and disable one
  sentctl rules list
  sentctl rules disable lead-uncontacted

  # List your alerts
  sentctl alerts list`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Sentinela server URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...any) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// PrintError prints an error message to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
}
