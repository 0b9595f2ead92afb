package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
	"github.com/good-yellow-bee/sentinela/internal/storage"
)

func newTestRunner(t *testing.T, store *fakeStore, tel *fakeTelemetry, opts Options) *Runner {
	t.Helper()
	// Avoid handing NewRunner a non-nil interface wrapping a nil pointer.
	var telStore storage.TelemetryStore
	if tel != nil {
		telStore = tel
	}
	r, err := NewRunner(store, telStore, opts)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func TestRunnerEndToEnd(t *testing.T) {
	store := newFakeStore()
	store.users.adminIDs = []string{"A1"}
	store.rules.rules = []*models.Rule{
		{ID: RuleLeadUncontacted, Module: models.ModuleLeads, Threshold: 5, Visibility: models.VisibilityBoth, Severity: models.SeverityMedium, Enabled: true},
	}
	contact := time.Now().AddDate(0, 0, -7)
	store.issues.leads = []*models.Lead{
		{ID: "L1", Name: "Acme", ResponsibleID: "U1", LastContactAt: &contact},
	}

	r := newTestRunner(t, store, nil, Options{})
	summary, err := r.RunBusiness(context.Background())
	if err != nil {
		t.Fatalf("RunBusiness: %v", err)
	}

	if summary.RulesEvaluated != 1 || summary.Issues != 1 {
		t.Errorf("summary = %+v, want 1 rule / 1 issue", summary)
	}
	if summary.AlertsCreated != 2 {
		t.Fatalf("created %d alerts, want 2 (responsible + admin)", summary.AlertsCreated)
	}
	if len(store.alerts.alerts) != 2 {
		t.Fatalf("persisted %d alerts, want 2", len(store.alerts.alerts))
	}

	seen := make(map[string]bool)
	for _, a := range store.alerts.alerts {
		seen[a.UserID] = true
		if a.RuleID != RuleLeadUncontacted {
			t.Errorf("alert rule_id = %q", a.RuleID)
		}
		if a.Title != `Lead "Acme" não contatado` {
			t.Errorf("alert title = %q", a.Title)
		}
		if a.IsRead || a.Archived {
			t.Error("new alert must be unread and unarchived")
		}
	}
	if !seen["U1"] || !seen["A1"] {
		t.Errorf("alert recipients = %v, want U1 and A1", seen)
	}

	// A second pass with unchanged data suppresses everything.
	summary, err = r.RunBusiness(context.Background())
	if err != nil {
		t.Fatalf("second RunBusiness: %v", err)
	}
	if summary.AlertsCreated != 0 || summary.AlertsSuppressed != 2 {
		t.Errorf("second pass: created=%d suppressed=%d, want 0/2", summary.AlertsCreated, summary.AlertsSuppressed)
	}
	if len(store.alerts.alerts) != 2 {
		t.Fatalf("persisted %d alerts after second pass, want 2", len(store.alerts.alerts))
	}
}

func TestRunnerFaultIsolation(t *testing.T) {
	store := newFakeStore()
	store.users.adminIDs = []string{"A1"}
	store.rules.rules = []*models.Rule{
		{ID: RuleLeadUncontacted, Module: models.ModuleLeads, Threshold: 5, Visibility: models.VisibilityAdmin, Enabled: true},
		{ID: RuleLeadStaleStage, Module: models.ModuleLeads, Threshold: 10, Visibility: models.VisibilityAdmin, Enabled: true},
		{ID: RuleTicketUnanswered, Module: models.ModuleSuporte, Threshold: 24, Visibility: models.VisibilityAdmin, Enabled: true},
	}
	contact := time.Now().AddDate(0, 0, -9)
	store.issues.leads = []*models.Lead{{ID: "L1", Name: "Acme", LastContactAt: &contact}}
	store.issues.staleErr = errors.New("stored procedure exploded")
	store.issues.tickets = []*models.Ticket{{ID: "T1", Subject: "Sem acesso", CustomerName: "Beta", CreatedAt: time.Now().Add(-48 * time.Hour)}}

	r := newTestRunner(t, store, nil, Options{})
	summary, err := r.RunBusiness(context.Background())
	if err != nil {
		t.Fatalf("RunBusiness: %v, want success despite failing rule", err)
	}

	if summary.Errors != 1 {
		t.Errorf("summary.Errors = %d, want 1", summary.Errors)
	}
	if summary.AlertsCreated != 2 {
		t.Errorf("created %d alerts, want 2 (rules before and after the failure)", summary.AlertsCreated)
	}

	rulesSeen := make(map[string]bool)
	for _, a := range store.alerts.alerts {
		rulesSeen[a.RuleID] = true
	}
	if !rulesSeen[RuleLeadUncontacted] || !rulesSeen[RuleTicketUnanswered] {
		t.Errorf("alerts for rules %v, want both surviving rules", rulesSeen)
	}
}

func TestRunnerUnknownRuleIsSkipped(t *testing.T) {
	store := newFakeStore()
	store.users.adminIDs = []string{"A1"}
	store.rules.rules = []*models.Rule{
		{ID: "rule-from-the-future", Module: models.ModuleLeads, Visibility: models.VisibilityAdmin, Enabled: true},
	}

	r := newTestRunner(t, store, nil, Options{})
	summary, err := r.RunBusiness(context.Background())
	if err != nil {
		t.Fatalf("RunBusiness: %v", err)
	}
	if summary.Errors != 0 || summary.Issues != 0 {
		t.Errorf("summary = %+v, want clean skip", summary)
	}
}

func TestRunnerTopLevelFailures(t *testing.T) {
	store := newFakeStore()
	store.rules.listErr = errors.New("rules table missing")

	r := newTestRunner(t, store, nil, Options{})
	if _, err := r.RunBusiness(context.Background()); err == nil {
		t.Fatal("RunBusiness succeeded, want rule-load error")
	}

	store = newFakeStore()
	store.users.listErr = errors.New("roster query failed")
	r = newTestRunner(t, store, nil, Options{})
	if _, err := r.RunBusiness(context.Background()); err == nil {
		t.Fatal("RunBusiness succeeded, want roster-load error")
	}
}

func TestRunnerModulePartition(t *testing.T) {
	store := newFakeStore()
	store.users.adminIDs = []string{"A1"}
	store.rules.rules = []*models.Rule{
		{ID: RuleLeadUncontacted, Module: models.ModuleLeads, Threshold: 5, Visibility: models.VisibilityAdmin, Enabled: true},
		{ID: RuleLoginFailureBurst, Module: models.ModuleSeguranca, Threshold: 5, Visibility: models.VisibilityAdmin, Enabled: true},
		{ID: RuleTicketUnanswered, Module: models.ModuleSuporte, Threshold: 24, Visibility: models.VisibilityAdmin, Enabled: false},
	}
	tel := &fakeTelemetry{}

	r := newTestRunner(t, store, tel, Options{})

	summary, err := r.RunBusiness(context.Background())
	if err != nil {
		t.Fatalf("RunBusiness: %v", err)
	}
	if summary.RulesEvaluated != 1 {
		t.Errorf("business evaluated %d rules, want 1 (security and disabled excluded)", summary.RulesEvaluated)
	}

	summary, err = r.RunSecurity(context.Background())
	if err != nil {
		t.Fatalf("RunSecurity: %v", err)
	}
	if summary.RulesEvaluated != 1 {
		t.Errorf("security evaluated %d rules, want 1", summary.RulesEvaluated)
	}
}

func TestRunnerSecurityRequiresTelemetry(t *testing.T) {
	r := newTestRunner(t, newFakeStore(), nil, Options{})
	if _, err := r.RunSecurity(context.Background()); err == nil {
		t.Fatal("RunSecurity succeeded without a telemetry store")
	}
}

func TestRunnerSecurityExactDedup(t *testing.T) {
	store := newFakeStore()
	store.users.adminIDs = []string{"A1"}
	store.rules.rules = []*models.Rule{
		{ID: RuleLoginFailureBurst, Module: models.ModuleSeguranca, Threshold: 3, Visibility: models.VisibilityAdmin, Enabled: true},
	}
	tel := &fakeTelemetry{
		bursts: []*models.LoginFailureCount{
			{UserID: "U1", Email: "u1@corp.com", Failures: 6, LastIP: "203.0.113.9", LastSeen: time.Now()},
		},
	}

	r := newTestRunner(t, store, tel, Options{})

	summary, err := r.RunSecurity(context.Background())
	if err != nil {
		t.Fatalf("RunSecurity: %v", err)
	}
	if summary.AlertsCreated != 1 {
		t.Fatalf("created %d alerts, want 1", summary.AlertsCreated)
	}

	// Identical event repeats within the window: suppressed.
	summary, err = r.RunSecurity(context.Background())
	if err != nil {
		t.Fatalf("second RunSecurity: %v", err)
	}
	if summary.AlertsCreated != 0 || summary.AlertsSuppressed != 1 {
		t.Errorf("second pass: created=%d suppressed=%d, want 0/1", summary.AlertsCreated, summary.AlertsSuppressed)
	}

	// A changed detail (new IP) makes a distinct alert under exact matching.
	tel.bursts[0].LastIP = "203.0.113.77"
	summary, err = r.RunSecurity(context.Background())
	if err != nil {
		t.Fatalf("third RunSecurity: %v", err)
	}
	if summary.AlertsCreated != 1 {
		t.Errorf("third pass created %d alerts, want 1", summary.AlertsCreated)
	}
}

func TestRunnerOverlappingPassSkipped(t *testing.T) {
	r := newTestRunner(t, newFakeStore(), nil, Options{})

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.RunBusiness(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("err = %v, want ErrRunInProgress", err)
	}
}

type recordingSink struct {
	alerts []*models.Alert
}

func (s *recordingSink) Dispatch(_ context.Context, alert *models.Alert) {
	s.alerts = append(s.alerts, alert)
}

func TestRunnerDispatchesCriticalAlerts(t *testing.T) {
	store := newFakeStore()
	store.users.adminIDs = []string{"A1"}
	store.rules.rules = []*models.Rule{
		{ID: RuleLeadUncontacted, Module: models.ModuleLeads, Threshold: 5, Severity: models.SeverityCritical, Visibility: models.VisibilityAdmin, Enabled: true},
		{ID: RuleTicketUnanswered, Module: models.ModuleSuporte, Threshold: 24, Severity: models.SeverityLow, Visibility: models.VisibilityAdmin, Enabled: true},
	}
	contact := time.Now().AddDate(0, 0, -8)
	store.issues.leads = []*models.Lead{{ID: "L1", Name: "Acme", LastContactAt: &contact}}
	store.issues.tickets = []*models.Ticket{{ID: "T1", Subject: "Dúvida", CustomerName: "Beta", CreatedAt: time.Now().Add(-72 * time.Hour)}}

	sink := &recordingSink{}
	r := newTestRunner(t, store, nil, Options{Sink: sink})

	if _, err := r.RunBusiness(context.Background()); err != nil {
		t.Fatalf("RunBusiness: %v", err)
	}

	if len(sink.alerts) != 1 {
		t.Fatalf("dispatched %d alerts, want 1 (critical rule only)", len(sink.alerts))
	}
	if sink.alerts[0].RuleID != RuleLeadUncontacted {
		t.Errorf("dispatched rule %q", sink.alerts[0].RuleID)
	}
	if !strings.Contains(sink.alerts[0].Title, "Acme") {
		t.Errorf("dispatched title = %q", sink.alerts[0].Title)
	}
}

func TestSummaryString(t *testing.T) {
	s := &Summary{Job: JobBusiness, RulesEvaluated: 3, Issues: 5, AlertsCreated: 4, AlertsSuppressed: 2, Errors: 1, Duration: 1250 * time.Millisecond}
	got := s.String()
	for _, want := range []string{"business", "3 rules", "5 issues", "4 alerts created", "2 suppressed", "1 errors"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}
}
