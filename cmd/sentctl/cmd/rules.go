package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Rule management commands",
	Long: `Commands for inspecting and toggling monitoring rules.

Toggling requires an admin account.

Examples:
  sentctl rules list
  sentctl rules disable lead-uncontacted
  sentctl rules enable lead-uncontacted`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient().withToken()
		if err != nil {
			return err
		}

		var result struct {
			Data []*models.Rule `json:"data"`
		}
		if err := client.do(http.MethodGet, "/api/v1/rules/", nil, &result); err != nil {
			return err
		}

		if output == "json" {
			data, _ := json.MarshalIndent(result.Data, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		if len(result.Data) == 0 {
			fmt.Println("No rules found.")
			return nil
		}

		fmt.Printf("\n%-24s  %-12s  %-10s  %-12s  %-10s  %s\n",
			"ID", "MODULE", "SEVERITY", "VISIBILITY", "THRESHOLD", "ENABLED")
		fmt.Println(strings.Repeat("-", 90))

		for _, r := range result.Data {
			fmt.Printf("%-24s  %-12s  %-10s  %-12s  %-10g  %v\n",
				r.ID, r.Module, r.Severity, r.Visibility, r.Threshold, r.Enabled)
		}
		fmt.Printf("\nTotal: %d rule(s)\n", len(result.Data))
		return nil
	},
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <rule-id>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(args[0], true)
	},
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <rule-id>",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(args[0], false)
	},
}

func setRuleEnabled(id string, enabled bool) error {
	client, err := newClient().withToken()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/api/v1/rules/%s/enabled", id)
	if err := client.do(http.MethodPatch, path, map[string]bool{"enabled": enabled}, nil); err != nil {
		return err
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Rule %s %s\n", id, state)
	return nil
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesEnableCmd)
	rulesCmd.AddCommand(rulesDisableCmd)

	rootCmd.AddCommand(rulesCmd)
}
