package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger an evaluation pass",
	Long: `Trigger an evaluation pass on the server.

Requires the service key in SENTINELA_SERVICE_KEY. The command blocks
until the pass completes and prints its summary.

Examples:
  sentctl run business
  sentctl run security`,
}

var runBusinessCmd = &cobra.Command{
	Use:   "business",
	Short: "Run the business rules pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		return triggerJob("/api/v1/jobs/alerts")
	},
}

var runSecurityCmd = &cobra.Command{
	Use:   "security",
	Short: "Run the security rules pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		return triggerJob("/api/v1/jobs/security")
	},
}

func triggerJob(path string) error {
	client, err := newClient().withServiceKey()
	if err != nil {
		return err
	}

	var result map[string]string
	if err := client.do(http.MethodPost, path, nil, &result); err != nil {
		return err
	}

	fmt.Println(result["message"])
	return nil
}

func init() {
	runCmd.AddCommand(runBusinessCmd)
	runCmd.AddCommand(runSecurityCmd)

	rootCmd.AddCommand(runCmd)
}
