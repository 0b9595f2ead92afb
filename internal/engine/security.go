package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/good-yellow-bee/sentinela/internal/models"
	"github.com/good-yellow-bee/sentinela/internal/storage"
)

// Security rule catalog (module Segurança). Runs in its own pass
// against the login telemetry store.
const (
	RuleLoginFailureBurst = "login-failure-burst"
	RuleLoginNewIP        = "login-new-ip"
	RuleLoginOffHours     = "login-off-hours"
)

const (
	failureBurstWindow = 15 * time.Minute
	securityScanWindow = 24 * time.Hour
	newIPHistory       = 30 * 24 * time.Hour
)

// loginSignal is the normalized event shape security filters run over.
type loginSignal struct {
	UserID    string
	Email     string
	IP        string
	Failures  int
	Success   bool
	IsAdmin   bool
	Timestamp time.Time
}

// signalEnv is the expression environment for one signal. Field names
// are the vocabulary available to rule filters.
func signalEnv(sig loginSignal, rule *models.Rule) map[string]any {
	return map[string]any{
		"account":   sig.Email,
		"user_id":   sig.UserID,
		"ip":        sig.IP,
		"failures":  sig.Failures,
		"success":   sig.Success,
		"is_admin":  sig.IsAdmin,
		"hour":      sig.Timestamp.Local().Hour(),
		"threshold": rule.Threshold,
	}
}

type securitySpec struct {
	fetch func(ctx context.Context, t storage.TelemetryStore, now time.Time) ([]loginSignal, error)
	// filter keeps only matching signals; nil keeps all.
	filter *vm.Program
	mapper func(sig loginSignal) models.Issue
}

// compileFilter compiles a boolean filter expression against the signal
// vocabulary. Compiled once at processor construction.
func compileFilter(expression string) (*vm.Program, error) {
	program, err := expr.Compile(expression,
		expr.Env(signalEnv(loginSignal{}, &models.Rule{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expression, err)
	}
	return program, nil
}

// SecurityProcessor evaluates the security rule catalog over the login
// telemetry store. Same dispatch-by-id shape as the business processor,
// with a per-rule filter expression between fetch and mapping.
type SecurityProcessor struct {
	telemetry storage.TelemetryStore
	users     storage.UserRepository
	dispatch  map[string]securitySpec
	now       func() time.Time
}

// NewSecurityProcessor creates a security processor. It fails only when
// a built-in filter expression does not compile.
func NewSecurityProcessor(telemetry storage.TelemetryStore, users storage.UserRepository) (*SecurityProcessor, error) {
	burstFilter, err := compileFilter("failures >= threshold")
	if err != nil {
		return nil, err
	}
	offHoursFilter, err := compileFilter("success && is_admin && hour < 6")
	if err != nil {
		return nil, err
	}

	dispatch := map[string]securitySpec{
		RuleLoginFailureBurst: {
			fetch: func(ctx context.Context, t storage.TelemetryStore, now time.Time) ([]loginSignal, error) {
				bursts, err := t.FailureBursts(ctx, now.Add(-failureBurstWindow))
				if err != nil {
					return nil, err
				}
				signals := make([]loginSignal, 0, len(bursts))
				for _, b := range bursts {
					signals = append(signals, loginSignal{
						UserID:    b.UserID,
						Email:     b.Email,
						IP:        b.LastIP,
						Failures:  b.Failures,
						Timestamp: b.LastSeen,
					})
				}
				return signals, nil
			},
			filter: burstFilter,
			mapper: func(sig loginSignal) models.Issue {
				return models.Issue{
					Title: fmt.Sprintf("Falhas de login para %s", sig.Email),
					Description: fmt.Sprintf("%s de login falhas para %s nos últimos 15 minutos (último IP: %s).",
						plural(sig.Failures, "tentativa", "tentativas"), sig.Email, sig.IP),
					Link:          "/seguranca/contas/" + sig.UserID,
					ResponsibleID: sig.UserID,
				}
			},
		},
		RuleLoginNewIP: {
			fetch: func(ctx context.Context, t storage.TelemetryStore, now time.Time) ([]loginSignal, error) {
				events, err := t.NewIPLogins(ctx, now.Add(-securityScanWindow), newIPHistory)
				if err != nil {
					return nil, err
				}
				return eventSignals(events), nil
			},
			mapper: func(sig loginSignal) models.Issue {
				return models.Issue{
					Title: fmt.Sprintf("Login de novo IP para %s", sig.Email),
					Description: fmt.Sprintf("Login de %s a partir do IP %s, não utilizado nos últimos 30 dias (%s %s).",
						sig.Email, sig.IP, formatDate(sig.Timestamp), sig.Timestamp.Local().Format("15:04")),
					Link:          "/seguranca/contas/" + sig.UserID,
					ResponsibleID: sig.UserID,
				}
			},
		},
		RuleLoginOffHours: {
			fetch: func(ctx context.Context, t storage.TelemetryStore, now time.Time) ([]loginSignal, error) {
				events, err := t.SuccessfulLogins(ctx, now.Add(-securityScanWindow))
				if err != nil {
					return nil, err
				}
				return eventSignals(events), nil
			},
			filter: offHoursFilter,
			mapper: func(sig loginSignal) models.Issue {
				return models.Issue{
					Title: fmt.Sprintf("Login fora de horário de %s", sig.Email),
					Description: fmt.Sprintf("Login de administrador %s às %s de %s a partir do IP %s.",
						sig.Email, sig.Timestamp.Local().Format("15:04"), formatDate(sig.Timestamp), sig.IP),
					Link:          "/seguranca/contas/" + sig.UserID,
					ResponsibleID: sig.UserID,
				}
			},
		},
	}

	return &SecurityProcessor{
		telemetry: telemetry,
		users:     users,
		dispatch:  dispatch,
		now:       time.Now,
	}, nil
}

func eventSignals(events []*models.LoginEvent) []loginSignal {
	signals := make([]loginSignal, 0, len(events))
	for _, ev := range events {
		signals = append(signals, loginSignal{
			UserID:    ev.UserID,
			Email:     ev.Email,
			IP:        ev.IP,
			Success:   ev.Success,
			Timestamp: ev.Timestamp,
		})
	}
	return signals
}

// Process translates a security rule into issues: fetch the signal
// window, mark admin accounts, apply the rule filter, map survivors.
func (p *SecurityProcessor) Process(ctx context.Context, rule *models.Rule) ([]models.Issue, error) {
	spec, ok := p.dispatch[rule.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, rule.ID)
	}

	signals, err := spec.fetch(ctx, p.telemetry, p.now())
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	admins := make(map[string]struct{})
	if len(signals) > 0 {
		adminIDs, err := p.users.ListAdminIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("rule %s: admin roster: %w", rule.ID, err)
		}
		for _, id := range adminIDs {
			admins[id] = struct{}{}
		}
	}

	var issues []models.Issue
	for _, sig := range signals {
		_, sig.IsAdmin = admins[sig.UserID]

		if spec.filter != nil {
			out, err := expr.Run(spec.filter, signalEnv(sig, rule))
			if err != nil {
				return nil, fmt.Errorf("rule %s: evaluate filter: %w", rule.ID, err)
			}
			if matched, _ := out.(bool); !matched {
				continue
			}
		}

		issues = append(issues, spec.mapper(sig))
	}
	return issues, nil
}
