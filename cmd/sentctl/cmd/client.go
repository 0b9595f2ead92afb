package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// apiClient is a thin HTTP client for the Sentinela API.
type apiClient struct {
	baseURL    string
	token      string
	serviceKey string
	httpClient *http.Client
}

func newClient() *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// withToken loads the stored access token (SENTINELA_TOKEN overrides
// the token file) and fails if none is available.
func (c *apiClient) withToken() (*apiClient, error) {
	if token := os.Getenv("SENTINELA_TOKEN"); token != "" {
		c.token = token
		return c, nil
	}

	path, err := tokenPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("not logged in, run \"sentctl login\" first")
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	c.token = strings.TrimSpace(string(data))
	return c, nil
}

// withServiceKey reads SENTINELA_SERVICE_KEY for the trigger endpoints.
func (c *apiClient) withServiceKey() (*apiClient, error) {
	key := os.Getenv("SENTINELA_SERVICE_KEY")
	if key == "" {
		return nil, fmt.Errorf("SENTINELA_SERVICE_KEY environment variable is required")
	}
	c.serviceKey = key
	return c, nil
}

// apiError is the error envelope the operator endpoints return.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do sends a request and decodes the response body into out (when out
// is non-nil). Non-2xx responses are turned into errors using the
// server's error envelope when present.
func (c *apiClient) do(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.serviceKey != "" {
		req.Header.Set("X-Service-Key", c.serviceKey)
	}

	PrintVerbose("%s %s", method, c.baseURL+path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope apiError
		if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
			return fmt.Errorf("%s (%s)", envelope.Error.Message, envelope.Error.Code)
		}
		// Trigger endpoints return a flat {"error": "..."} object.
		var flat map[string]string
		if json.Unmarshal(data, &flat) == nil && flat["error"] != "" {
			return fmt.Errorf("%s", flat["error"])
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// tokenPath returns the path of the stored access token.
func tokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".sentinela", "token"), nil
}

// saveToken stores the access token with owner-only permissions.
func saveToken(token string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
