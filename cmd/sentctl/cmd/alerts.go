package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

var alertsIncludeArchived bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Alert commands",
	Long: `Commands for working with your own alerts.

Examples:
  sentctl alerts list
  sentctl alerts list --all
  sentctl alerts read <alert-id>
  sentctl alerts archive <alert-id>`,
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient().withToken()
		if err != nil {
			return err
		}

		path := "/api/v1/alerts/"
		if alertsIncludeArchived {
			path += "?include_archived=true"
		}

		var result struct {
			Data []*models.Alert `json:"data"`
		}
		if err := client.do(http.MethodGet, path, nil, &result); err != nil {
			return err
		}

		if output == "json" {
			data, _ := json.MarshalIndent(result.Data, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		if len(result.Data) == 0 {
			fmt.Println("No alerts found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-24s  %-10s  %-6s  %-19s  %s\n",
			"ID", "RULE", "SEVERITY", "READ", "CREATED", "TITLE")
		fmt.Println(strings.Repeat("-", 130))

		for _, a := range result.Data {
			fmt.Printf("%-36s  %-24s  %-10s  %-6v  %-19s  %s\n",
				a.ID, a.RuleID, a.Severity, a.IsRead,
				a.CreatedAt.Format("2006-01-02 15:04:05"), a.Title)
		}
		fmt.Printf("\nTotal: %d alert(s)\n", len(result.Data))
		return nil
	},
}

var alertsReadCmd = &cobra.Command{
	Use:   "read <alert-id>",
	Short: "Mark an alert as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return alertAction(args[0], "read")
	},
}

var alertsArchiveCmd = &cobra.Command{
	Use:   "archive <alert-id>",
	Short: "Archive an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return alertAction(args[0], "archive")
	},
}

func alertAction(id, action string) error {
	client, err := newClient().withToken()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/api/v1/alerts/%s/%s", id, action)
	if err := client.do(http.MethodPost, path, nil, nil); err != nil {
		return err
	}

	fmt.Printf("Alert %s: %s\n", id, action)
	return nil
}

func init() {
	alertsListCmd.Flags().BoolVar(&alertsIncludeArchived, "all", false, "include archived alerts")

	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsReadCmd)
	alertsCmd.AddCommand(alertsArchiveCmd)

	rootCmd.AddCommand(alertsCmd)
}
