package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

func newTestSecurityProcessor(t *testing.T, tel *fakeTelemetry, users *fakeUserRepo) *SecurityProcessor {
	t.Helper()
	p, err := NewSecurityProcessor(tel, users)
	if err != nil {
		t.Fatalf("NewSecurityProcessor: %v", err)
	}
	p.now = fixedNow
	return p
}

func TestSecurityFailureBurstThreshold(t *testing.T) {
	tel := &fakeTelemetry{
		bursts: []*models.LoginFailureCount{
			{UserID: "U1", Email: "u1@corp.com", Failures: 8, LastIP: "203.0.113.9", LastSeen: fixedNow()},
			{UserID: "U2", Email: "u2@corp.com", Failures: 2, LastIP: "203.0.113.10", LastSeen: fixedNow()},
		},
	}
	p := newTestSecurityProcessor(t, tel, &fakeUserRepo{})

	rule := &models.Rule{ID: RuleLoginFailureBurst, Module: models.ModuleSeguranca, Threshold: 5}
	issues, err := p.Process(context.Background(), rule)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1 (only the account above threshold)", len(issues))
	}

	issue := issues[0]
	if issue.Title != "Falhas de login para u1@corp.com" {
		t.Errorf("title = %q", issue.Title)
	}
	if !strings.Contains(issue.Description, "8 tentativas") || !strings.Contains(issue.Description, "203.0.113.9") {
		t.Errorf("description = %q", issue.Description)
	}
	if issue.ResponsibleID != "U1" {
		t.Errorf("responsible = %q, want U1", issue.ResponsibleID)
	}
}

func TestSecurityNewIP(t *testing.T) {
	ts := time.Date(2026, time.March, 10, 9, 15, 0, 0, time.Local)
	tel := &fakeTelemetry{
		newIP: []*models.LoginEvent{
			{Timestamp: ts, UserID: "U1", Email: "u1@corp.com", IP: "198.51.100.7", Success: true},
		},
	}
	p := newTestSecurityProcessor(t, tel, &fakeUserRepo{})

	rule := &models.Rule{ID: RuleLoginNewIP, Module: models.ModuleSeguranca}
	issues, err := p.Process(context.Background(), rule)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if issues[0].Title != "Login de novo IP para u1@corp.com" {
		t.Errorf("title = %q", issues[0].Title)
	}
	if !strings.Contains(issues[0].Description, "198.51.100.7") {
		t.Errorf("description = %q", issues[0].Description)
	}
}

func TestSecurityOffHoursFiltersNonAdminsAndDaytime(t *testing.T) {
	night := time.Date(2026, time.March, 10, 3, 12, 0, 0, time.Local)
	day := time.Date(2026, time.March, 10, 14, 0, 0, 0, time.Local)
	tel := &fakeTelemetry{
		successes: []*models.LoginEvent{
			{Timestamp: night, UserID: "A1", Email: "admin@corp.com", IP: "192.0.2.4", Success: true},
			{Timestamp: night, UserID: "U1", Email: "member@corp.com", IP: "192.0.2.5", Success: true},
			{Timestamp: day, UserID: "A1", Email: "admin@corp.com", IP: "192.0.2.4", Success: true},
		},
	}
	users := &fakeUserRepo{adminIDs: []string{"A1"}}
	p := newTestSecurityProcessor(t, tel, users)

	rule := &models.Rule{ID: RuleLoginOffHours, Module: models.ModuleSeguranca}
	issues, err := p.Process(context.Background(), rule)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1 (admin night login only)", len(issues))
	}
	if issues[0].Title != "Login fora de horário de admin@corp.com" {
		t.Errorf("title = %q", issues[0].Title)
	}
	if !strings.Contains(issues[0].Description, "03:12") {
		t.Errorf("description = %q, want login time", issues[0].Description)
	}
}

func TestSecurityUnknownRule(t *testing.T) {
	p := newTestSecurityProcessor(t, &fakeTelemetry{}, &fakeUserRepo{})

	_, err := p.Process(context.Background(), &models.Rule{ID: "login-from-mars"})
	if !errors.Is(err, ErrUnknownRule) {
		t.Fatalf("err = %v, want ErrUnknownRule", err)
	}
}

func TestSecurityTelemetryError(t *testing.T) {
	telErr := errors.New("clickhouse unreachable")
	p := newTestSecurityProcessor(t, &fakeTelemetry{burstsErr: telErr}, &fakeUserRepo{})

	_, err := p.Process(context.Background(), &models.Rule{ID: RuleLoginFailureBurst, Threshold: 3})
	if !errors.Is(err, telErr) {
		t.Fatalf("err = %v, want wrapped telemetry error", err)
	}
}
