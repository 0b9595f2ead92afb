package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

var testRule = &models.Rule{
	ID:         "lead-uncontacted",
	Module:     models.ModuleLeads,
	Severity:   models.SeverityMedium,
	Visibility: models.VisibilityBoth,
	Enabled:    true,
}

func testIssue(desc string) models.Issue {
	return models.Issue{
		Title:         "Lead \"Acme\" não contatado",
		Description:   desc,
		Link:          "/leads/L1",
		ResponsibleID: "U1",
	}
}

func TestWriterIdempotence(t *testing.T) {
	repo := &fakeAlertRepo{}
	w := NewWriter(repo, WriterConfig{})
	ctx := context.Background()
	issue := testIssue("O lead \"Acme\" está sem contato há 7 dias (limite: 5 dias).")

	first, err := w.CreateIfAbsent(ctx, testRule, "U1", issue)
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	if first == nil {
		t.Fatal("first write suppressed, want created")
	}
	if first.ID == "" {
		t.Error("created alert has empty id")
	}
	if first.IsRead || first.Archived || first.SnoozedUntil != nil {
		t.Error("new alert must be unread, unarchived, and not snoozed")
	}
	if first.Severity != testRule.Severity {
		t.Errorf("severity = %s, want %s", first.Severity, testRule.Severity)
	}

	second, err := w.CreateIfAbsent(ctx, testRule, "U1", issue)
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if second != nil {
		t.Error("second identical write created an alert, want suppression")
	}
	if len(repo.alerts) != 1 {
		t.Fatalf("persisted %d alerts, want 1", len(repo.alerts))
	}
}

func TestWriterWindowExpiry(t *testing.T) {
	repo := &fakeAlertRepo{}
	w := NewWriter(repo, WriterConfig{Lookback: 72 * time.Hour})
	ctx := context.Background()
	issue := testIssue("descrição estável")

	base := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return base }

	if a, err := w.CreateIfAbsent(ctx, testRule, "U1", issue); err != nil || a == nil {
		t.Fatalf("first write: alert=%v err=%v", a, err)
	}

	// Inside the window: suppressed.
	w.now = func() time.Time { return base.Add(71 * time.Hour) }
	if a, err := w.CreateIfAbsent(ctx, testRule, "U1", issue); err != nil || a != nil {
		t.Fatalf("write inside window: alert=%v err=%v, want suppression", a, err)
	}

	// Past the window: a fresh alert.
	w.now = func() time.Time { return base.Add(73 * time.Hour) }
	if a, err := w.CreateIfAbsent(ctx, testRule, "U1", issue); err != nil || a == nil {
		t.Fatalf("write past window: alert=%v err=%v, want created", a, err)
	}

	if len(repo.alerts) != 2 {
		t.Fatalf("persisted %d alerts, want 2", len(repo.alerts))
	}
}

func TestWriterFingerprintCoarseness(t *testing.T) {
	repo := &fakeAlertRepo{}
	w := NewWriter(repo, WriterConfig{})
	ctx := context.Background()

	prefix := strings.Repeat("x", 100)

	if a, err := w.CreateIfAbsent(ctx, testRule, "U1", testIssue(prefix+" primeira versão")); err != nil || a == nil {
		t.Fatalf("first write: alert=%v err=%v", a, err)
	}
	// Same first 100 chars, different tail: treated as the same alert.
	if a, err := w.CreateIfAbsent(ctx, testRule, "U1", testIssue(prefix+" segunda versão")); err != nil || a != nil {
		t.Fatalf("prefix-equal write: alert=%v err=%v, want suppression", a, err)
	}
	if len(repo.alerts) != 1 {
		t.Fatalf("persisted %d alerts, want 1", len(repo.alerts))
	}
}

func TestWriterPrefixHandlesMultibyte(t *testing.T) {
	repo := &fakeAlertRepo{}
	w := NewWriter(repo, WriterConfig{})
	ctx := context.Background()

	// 100+ runes of multibyte text must truncate on rune boundaries.
	desc := strings.Repeat("ã", 120)
	if a, err := w.CreateIfAbsent(ctx, testRule, "U1", testIssue(desc)); err != nil || a == nil {
		t.Fatalf("write: alert=%v err=%v", a, err)
	}
	if a, err := w.CreateIfAbsent(ctx, testRule, "U1", testIssue(desc)); err != nil || a != nil {
		t.Fatalf("repeat write: alert=%v err=%v, want suppression", a, err)
	}
}

func TestWriterExactFingerprint(t *testing.T) {
	repo := &fakeAlertRepo{}
	w := NewWriter(repo, WriterConfig{
		Lookback:    24 * time.Hour,
		Fingerprint: ExactFingerprint(),
	})
	ctx := context.Background()

	if a, err := w.CreateIfAbsent(ctx, testRule, "U1", testIssue("login do IP 10.0.0.1")); err != nil || a == nil {
		t.Fatalf("first write: alert=%v err=%v", a, err)
	}
	// Shares a prefix but differs: exact matching keeps both.
	if a, err := w.CreateIfAbsent(ctx, testRule, "U1", testIssue("login do IP 10.0.0.2")); err != nil || a == nil {
		t.Fatalf("distinct write: alert=%v err=%v, want created", a, err)
	}
	// Identical repeat is still suppressed.
	if a, err := w.CreateIfAbsent(ctx, testRule, "U1", testIssue("login do IP 10.0.0.1")); err != nil || a != nil {
		t.Fatalf("identical write: alert=%v err=%v, want suppression", a, err)
	}
	if len(repo.alerts) != 2 {
		t.Fatalf("persisted %d alerts, want 2", len(repo.alerts))
	}
}

func TestWriterScopesDedupByUser(t *testing.T) {
	repo := &fakeAlertRepo{}
	w := NewWriter(repo, WriterConfig{})
	ctx := context.Background()
	issue := testIssue("mesma descrição")

	if a, err := w.CreateIfAbsent(ctx, testRule, "U1", issue); err != nil || a == nil {
		t.Fatalf("U1 write: alert=%v err=%v", a, err)
	}
	if a, err := w.CreateIfAbsent(ctx, testRule, "U2", issue); err != nil || a == nil {
		t.Fatalf("U2 write: alert=%v err=%v, want created", a, err)
	}
}

func TestWriterErrorPropagation(t *testing.T) {
	checkErr := errors.New("db gone")
	repo := &fakeAlertRepo{existsErr: checkErr}
	w := NewWriter(repo, WriterConfig{})

	_, err := w.CreateIfAbsent(context.Background(), testRule, "U1", testIssue("x"))
	if !errors.Is(err, checkErr) {
		t.Fatalf("err = %v, want wrapped %v", err, checkErr)
	}

	insertErr := errors.New("insert failed")
	repo = &fakeAlertRepo{createErr: insertErr}
	w = NewWriter(repo, WriterConfig{})

	_, err = w.CreateIfAbsent(context.Background(), testRule, "U1", testIssue("x"))
	if !errors.Is(err, insertErr) {
		t.Fatalf("err = %v, want wrapped %v", err, insertErr)
	}
}
