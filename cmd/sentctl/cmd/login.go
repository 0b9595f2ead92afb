package cmd

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the server",
	Long: `Authenticate against the Sentinela server and store the access
token in ~/.sentinela/token for subsequent commands.

The password is prompted interactively to keep it out of shell history.

Example:
  sentctl login --username admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginUsername == "" {
			return fmt.Errorf("--username is required")
		}

		password, err := promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		var result struct {
			Data struct {
				AccessToken string `json:"access_token"`
				ExpiresIn   int    `json:"expires_in"`
			} `json:"data"`
		}

		client := newClient()
		err = client.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
			"username": loginUsername,
			"password": password,
		}, &result)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		if err := saveToken(result.Data.AccessToken); err != nil {
			return err
		}

		expiry := time.Duration(result.Data.ExpiresIn) * time.Second
		fmt.Printf("Logged in as %s (token valid for %s)\n", loginUsername, expiry)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username to authenticate as")

	rootCmd.AddCommand(loginCmd)
}

// promptPassword reads a password without echo when stdin is a
// terminal, falling back to a plain line read for piped input.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := syscall.Stdin
	if term.IsTerminal(fd) {
		passwordBytes, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(passwordBytes), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
