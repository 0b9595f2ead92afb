package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

// SlackConfig holds Slack webhook configuration.
type SlackConfig struct {
	WebhookURL string
	// BaseURL prefixes alert deep links so Slack messages point at the
	// CRM web UI (e.g. "https://crm.example.com").
	BaseURL string
}

// Validate validates the Slack configuration.
func (c *SlackConfig) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("webhook URL must use HTTPS")
	}
	return nil
}

// SlackNotifier sends alerts to Slack via an incoming webhook.
type SlackNotifier struct {
	config     SlackConfig
	httpClient *http.Client
}

// NewSlackNotifier creates a new Slack notifier.
func NewSlackNotifier(config SlackConfig) (*SlackNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid slack config: %w", err)
	}

	return &SlackNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns "slack".
func (s *SlackNotifier) Name() string {
	return "slack"
}

// Send posts the alert to the webhook.
func (s *SlackNotifier) Send(ctx context.Context, alert *models.Alert) error {
	jsonData, err := json.Marshal(s.buildPayload(alert))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Close is a no-op for the Slack notifier.
func (s *SlackNotifier) Close() error {
	return nil
}

// slackMessage is the Slack webhook payload (Block Kit).
type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// buildPayload builds the Block Kit message for one alert.
func (s *SlackNotifier) buildPayload(alert *models.Alert) slackMessage {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{
				Type:  "plain_text",
				Text:  fmt.Sprintf("%s Sentinela: %s", severityEmoji(alert.Severity), alert.Title),
				Emoji: true,
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Severidade:*\n%s", strings.ToUpper(string(alert.Severity)))},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Regra:*\n%s", alert.RuleID)},
			},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: alert.Description},
		},
	}

	if alert.Link != "" {
		blocks = append(blocks, slackBlock{
			Type: "context",
			Elements: []slackText{
				{Type: "mrkdwn", Text: s.config.BaseURL + alert.Link},
			},
		})
	}

	return slackMessage{Blocks: blocks}
}

// severityEmoji maps severity to a Slack emoji.
func severityEmoji(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return ":rotating_light:"
	case models.SeverityHigh:
		return ":red_circle:"
	case models.SeverityMedium:
		return ":large_orange_circle:"
	case models.SeverityLow:
		return ":large_yellow_circle:"
	default:
		return ":bell:"
	}
}
