package engine

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/sentinela/internal/models"
	"github.com/good-yellow-bee/sentinela/internal/storage"
)

// Fingerprint decides when two alert descriptions are "the same" for
// suppression purposes.
type Fingerprint struct {
	// Key derives the comparison key from a description.
	Key func(description string) string
	// Exact requires stored descriptions to equal the key; otherwise a
	// prefix match is used.
	Exact bool
}

// DefaultFingerprintLen is the prefix length of the default fingerprint.
// Deliberately lossy: two issues whose descriptions share the same
// prefix are treated as one alert, which also catches near-duplicate
// phrasing.
const DefaultFingerprintLen = 100

// PrefixFingerprint matches descriptions on their first n characters.
func PrefixFingerprint(n int) Fingerprint {
	return Fingerprint{
		Key: func(description string) string {
			return truncateRunes(description, n)
		},
	}
}

// ExactFingerprint matches full descriptions. Used by the security rule
// set, where event details (IP, counts) must distinguish alerts.
func ExactFingerprint() Fingerprint {
	return Fingerprint{
		Key:   func(description string) string { return description },
		Exact: true,
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// WriterConfig parameterizes a Writer. The business and security rule
// sets share the writer code path and differ only here.
type WriterConfig struct {
	Lookback    time.Duration
	Fingerprint Fingerprint
}

// Writer is the deduplicating alert writer: the sole write path for
// alert creation. It is idempotent within the lookback window, so it is
// safe to call redundantly with identical arguments within a run or
// across runs.
type Writer struct {
	alerts storage.AlertRepository
	cfg    WriterConfig
	now    func() time.Time
}

// NewWriter creates a writer over the given alert repository. A zero
// lookback defaults to 72h and a nil fingerprint to the 100-char prefix.
func NewWriter(alerts storage.AlertRepository, cfg WriterConfig) *Writer {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 72 * time.Hour
	}
	if cfg.Fingerprint.Key == nil {
		cfg.Fingerprint = PrefixFingerprint(DefaultFingerprintLen)
	}
	return &Writer{alerts: alerts, cfg: cfg, now: time.Now}
}

// CreateIfAbsent inserts an alert for the issue unless a matching
// non-archived alert for the same (rule, user) already exists within
// the lookback window. It returns the created alert, or nil when the
// write was suppressed as a duplicate.
//
// There is no lock spanning the check and the insert: two concurrent
// runs can both pass the check and both insert. That anomaly is
// tolerable and self-limiting, and not worth coordination machinery.
func (w *Writer) CreateIfAbsent(ctx context.Context, rule *models.Rule, userID string, issue models.Issue) (*models.Alert, error) {
	key := w.cfg.Fingerprint.Key(issue.Description)
	since := w.now().Add(-w.cfg.Lookback)

	exists, err := w.alerts.ExistsRecent(ctx, rule.ID, userID, key, w.cfg.Fingerprint.Exact, since)
	if err != nil {
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		return nil, nil
	}

	alert := &models.Alert{
		ID:          uuid.New().String(),
		UserID:      userID,
		RuleID:      rule.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Link:        issue.Link,
		Severity:    rule.Severity,
		CreatedAt:   w.now(),
	}
	if err := w.alerts.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	return alert, nil
}
