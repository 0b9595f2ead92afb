package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	Host       string // SMTP server host
	Port       int    // SMTP server port (465 for implicit TLS, 587 for STARTTLS)
	Username   string // SMTP username (optional)
	Password   string // SMTP password (optional)
	From       string // From address
	Recipients []string
	// BaseURL prefixes alert deep links in the message body.
	BaseURL string
}

// Validate validates the email configuration.
func (c *EmailConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("SMTP port is required")
	}
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	if len(c.Recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	return nil
}

// EmailNotifier sends alerts via SMTP.
type EmailNotifier struct {
	config EmailConfig
}

// NewEmailNotifier creates a new email notifier.
func NewEmailNotifier(config EmailConfig) (*EmailNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}
	return &EmailNotifier{config: config}, nil
}

// Name returns "email".
func (e *EmailNotifier) Name() string {
	return "email"
}

// Send mails the alert to all configured recipients.
func (e *EmailNotifier) Send(ctx context.Context, alert *models.Alert) error {
	subject := fmt.Sprintf("[%s] Sentinela: %s", strings.ToUpper(string(alert.Severity)), alert.Title)
	msg := e.buildMessage(subject, alert)
	return e.sendMail(ctx, msg)
}

// Close is a no-op for the email notifier.
func (e *EmailNotifier) Close() error {
	return nil
}

// buildMessage builds a plain-text message for one alert.
func (e *EmailNotifier) buildMessage(subject string, alert *models.Alert) []byte {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: %s\r\n", e.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(e.config.Recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")

	msg.WriteString(alert.Description)
	msg.WriteString("\r\n\r\n")
	msg.WriteString(fmt.Sprintf("Regra: %s\r\n", alert.RuleID))
	msg.WriteString(fmt.Sprintf("Severidade: %s\r\n", alert.Severity))
	msg.WriteString(fmt.Sprintf("Criado em: %s\r\n", alert.CreatedAt.Format("02/01/2006 15:04")))
	if alert.Link != "" {
		msg.WriteString(fmt.Sprintf("Link: %s%s\r\n", e.config.BaseURL, alert.Link))
	}

	return []byte(msg.String())
}

// sendMail delivers the message via SMTP.
func (e *EmailNotifier) sendMail(ctx context.Context, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)

	tlsConfig := &tls.Config{
		ServerName: e.config.Host,
	}

	var client *smtp.Client
	var err error

	if e.config.Port == 465 {
		client, err = e.connectImplicitTLS(addr, tlsConfig)
	} else {
		client, err = e.connectSTARTTLS(ctx, addr, tlsConfig)
	}
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer client.Close()

	if e.config.Username != "" && e.config.Password != "" {
		auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(extractEmail(e.config.From)); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	for _, rcpt := range e.config.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("add recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return client.Quit()
}

// connectImplicitTLS connects using implicit TLS (port 465).
func (e *EmailNotifier) connectImplicitTLS(addr string, tlsConfig *tls.Config) (*smtp.Client, error) {
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return nil, err
	}
	return smtp.NewClient(conn, e.config.Host)
}

// connectSTARTTLS connects using STARTTLS (port 587 or 25).
func (e *EmailNotifier) connectSTARTTLS(ctx context.Context, addr string, tlsConfig *tls.Config) (*smtp.Client, error) {
	dialer := &net.Dialer{
		Timeout: 30 * time.Second,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, e.config.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	return client, nil
}

// extractEmail extracts the address from a "Name <email>" header value.
func extractEmail(addr string) string {
	if start := strings.Index(addr, "<"); start != -1 {
		if end := strings.Index(addr, ">"); end != -1 {
			return addr[start+1 : end]
		}
	}
	return addr
}
