package notifier

import (
	"strings"
	"testing"
)

func TestEmailConfigValidate(t *testing.T) {
	valid := EmailConfig{
		Host:       "smtp.example.com",
		Port:       587,
		From:       "Sentinela <alerts@example.com>",
		Recipients: []string{"ops@example.com"},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*EmailConfig)
	}{
		{"missing host", func(c *EmailConfig) { c.Host = "" }},
		{"missing port", func(c *EmailConfig) { c.Port = 0 }},
		{"missing from", func(c *EmailConfig) { c.From = "" }},
		{"no recipients", func(c *EmailConfig) { c.Recipients = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestEmailBuildMessage(t *testing.T) {
	n := &EmailNotifier{config: EmailConfig{
		From:       "Sentinela <alerts@example.com>",
		Recipients: []string{"ops@example.com"},
		BaseURL:    "https://crm.example.com",
	}}

	alert := testAlert()
	msg := string(n.buildMessage("[CRITICAL] Sentinela: teste", alert))

	for _, want := range []string{
		"Subject: [CRITICAL] Sentinela: teste",
		"To: ops@example.com",
		alert.Description,
		"Regra: lead-uncontacted",
		"Link: https://crm.example.com/leads/L1",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alerts@example.com", "alerts@example.com"},
		{"Sentinela <alerts@example.com>", "alerts@example.com"},
	}
	for _, tt := range tests {
		if got := extractEmail(tt.in); got != tt.want {
			t.Errorf("extractEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
