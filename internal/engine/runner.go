package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/metrics"
	"github.com/good-yellow-bee/sentinela/internal/models"
	"github.com/good-yellow-bee/sentinela/internal/storage"
)

// Job names label runs in logs and metrics.
const (
	JobBusiness = "business"
	JobSecurity = "security"
)

// ErrRunInProgress is returned when a pass is requested while another
// pass is still running.
var ErrRunInProgress = errors.New("evaluation pass already in progress")

// AlertSink receives newly created alerts for out-of-band delivery
// (Slack, email). Delivery failures must never affect the run.
type AlertSink interface {
	Dispatch(ctx context.Context, alert *models.Alert)
}

// Summary reports one evaluation pass.
type Summary struct {
	Job              string        `json:"job"`
	RulesEvaluated   int           `json:"rules_evaluated"`
	Issues           int           `json:"issues"`
	AlertsCreated    int           `json:"alerts_created"`
	AlertsSuppressed int           `json:"alerts_suppressed"`
	Errors           int           `json:"errors"`
	Duration         time.Duration `json:"duration"`
}

// String renders the run summary log line.
func (s *Summary) String() string {
	return fmt.Sprintf("%s pass: %d rules, %d issues, %d alerts created, %d suppressed, %d errors in %s",
		s.Job, s.RulesEvaluated, s.Issues, s.AlertsCreated, s.AlertsSuppressed, s.Errors,
		s.Duration.Round(time.Millisecond))
}

// Options configures a Runner.
type Options struct {
	// BusinessLookback is the dedup window for business rules (default 72h).
	BusinessLookback time.Duration
	// SecurityLookback is the dedup window for security rules (default 24h).
	SecurityLookback time.Duration
	// Sink, when set, receives alerts created from critical-severity rules.
	Sink AlertSink
}

// Runner orchestrates evaluation passes: load enabled rules for the
// job's module set, load the admin roster once, then strictly
// sequential rule → issues → targets → writer. Per-rule and per-alert
// failures are isolated; only a failure to load rules or the roster
// aborts a pass. Partial progress is never rolled back — the dedup
// check on the next run self-heals any gap.
type Runner struct {
	rules storage.RuleRepository
	users storage.UserRepository

	business IssueProducer
	security IssueProducer

	businessWriter *Writer
	securityWriter *Writer

	sink AlertSink

	// mu serializes passes; an overlapping trigger is skipped, not queued.
	mu sync.Mutex
}

// NewRunner wires a runner over the storage layer. telemetry may be
// nil, in which case security passes fail with a configuration error.
func NewRunner(store storage.Storage, telemetry storage.TelemetryStore, opts Options) (*Runner, error) {
	if opts.BusinessLookback <= 0 {
		opts.BusinessLookback = 72 * time.Hour
	}
	if opts.SecurityLookback <= 0 {
		opts.SecurityLookback = 24 * time.Hour
	}

	r := &Runner{
		rules:    store.Rules(),
		users:    store.Users(),
		business: NewProcessor(store.Issues()),
		businessWriter: NewWriter(store.Alerts(), WriterConfig{
			Lookback:    opts.BusinessLookback,
			Fingerprint: PrefixFingerprint(DefaultFingerprintLen),
		}),
		securityWriter: NewWriter(store.Alerts(), WriterConfig{
			Lookback:    opts.SecurityLookback,
			Fingerprint: ExactFingerprint(),
		}),
		sink: opts.Sink,
	}

	if telemetry != nil {
		sec, err := NewSecurityProcessor(telemetry, store.Users())
		if err != nil {
			return nil, fmt.Errorf("security processor: %w", err)
		}
		r.security = sec
	}

	return r, nil
}

// RunBusiness evaluates every enabled rule outside the security module.
func (r *Runner) RunBusiness(ctx context.Context) (*Summary, error) {
	return r.run(ctx, JobBusiness, r.business, r.businessWriter, func(ctx context.Context) ([]*models.Rule, error) {
		return r.rules.ListEnabledExcludingModule(ctx, models.ModuleSeguranca)
	})
}

// RunSecurity evaluates every enabled rule in the security module.
func (r *Runner) RunSecurity(ctx context.Context) (*Summary, error) {
	if r.security == nil {
		return nil, errors.New("telemetry store not configured")
	}
	return r.run(ctx, JobSecurity, r.security, r.securityWriter, func(ctx context.Context) ([]*models.Rule, error) {
		return r.rules.ListEnabledByModule(ctx, models.ModuleSeguranca)
	})
}

func (r *Runner) run(ctx context.Context, job string, producer IssueProducer, writer *Writer, load func(context.Context) ([]*models.Rule, error)) (*Summary, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	start := time.Now()

	rules, err := load(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(job, "error").Inc()
		return nil, fmt.Errorf("load rules: %w", err)
	}

	adminIDs, err := r.users.ListAdminIDs(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(job, "error").Inc()
		return nil, fmt.Errorf("load admin roster: %w", err)
	}

	summary := &Summary{Job: job}

	for _, rule := range rules {
		summary.RulesEvaluated++

		issues, err := producer.Process(ctx, rule)
		if err != nil {
			if errors.Is(err, ErrUnknownRule) {
				log.Printf("skipping rule %s: no dispatch entry", rule.ID)
				metrics.UnknownRulesTotal.Inc()
				continue
			}
			log.Printf("rule %s failed: %v", rule.ID, err)
			metrics.RuleErrorsTotal.WithLabelValues(rule.ID).Inc()
			summary.Errors++
			continue
		}

		summary.Issues += len(issues)
		metrics.IssuesTotal.WithLabelValues(rule.ID).Add(float64(len(issues)))

		for _, issue := range issues {
			for _, userID := range sortedTargets(ResolveTargets(rule, issue, adminIDs)) {
				alert, err := writer.CreateIfAbsent(ctx, rule, userID, issue)
				if err != nil {
					log.Printf("rule %s: write alert for user %s: %v", rule.ID, userID, err)
					metrics.AlertWriteErrorsTotal.WithLabelValues(rule.ID).Inc()
					summary.Errors++
					continue
				}
				if alert == nil {
					summary.AlertsSuppressed++
					metrics.AlertsSuppressedTotal.WithLabelValues(rule.ID).Inc()
					continue
				}
				summary.AlertsCreated++
				metrics.AlertsCreatedTotal.WithLabelValues(rule.ID).Inc()

				if r.sink != nil && rule.Severity == models.SeverityCritical {
					r.sink.Dispatch(ctx, alert)
				}
			}
		}
	}

	summary.Duration = time.Since(start)
	metrics.RunsTotal.WithLabelValues(job, "success").Inc()
	metrics.RunDuration.WithLabelValues(job).Observe(summary.Duration.Seconds())
	log.Print(summary.String())

	return summary, nil
}

// sortedTargets orders a target set for deterministic write order.
func sortedTargets(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
