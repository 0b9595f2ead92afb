// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// EnsureAdminUser creates a default admin if no users exist.
	EnsureAdminUser() error
	// EnsureDefaultRules seeds the built-in rule catalog if no rules exist.
	EnsureDefaultRules() error

	// Repository accessors
	Users() UserRepository
	Rules() RuleRepository
	Alerts() AlertRepository
	Issues() IssueQuerier
}

// UserRepository defines operations for user management.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	// ListAdminIDs returns the ids of every admin user. Loaded once per
	// evaluation pass and treated as a read-only snapshot.
	ListAdminIDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// RuleRepository defines read access to the monitoring rule definitions.
type RuleRepository interface {
	Create(ctx context.Context, rule *models.Rule) error
	GetByID(ctx context.Context, id string) (*models.Rule, error)
	List(ctx context.Context) ([]*models.Rule, error)
	// ListEnabledByModule returns enabled rules in the given module.
	ListEnabledByModule(ctx context.Context, module string) ([]*models.Rule, error)
	// ListEnabledExcludingModule returns enabled rules outside the given module.
	ListEnabledExcludingModule(ctx context.Context, module string) ([]*models.Rule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
}

// AlertRepository defines operations on persisted alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	// ExistsRecent reports whether a non-archived alert for (ruleID,
	// userID) created at or after since matches descKey. With exact set
	// the description must equal descKey, otherwise it must start with it.
	ExistsRecent(ctx context.Context, ruleID, userID, descKey string, exact bool, since time.Time) (bool, error)
	ListByUser(ctx context.Context, userID string, includeArchived bool) ([]*models.Alert, error)
	MarkRead(ctx context.Context, id, userID string) error
	Snooze(ctx context.Context, id, userID string, until time.Time) error
	Archive(ctx context.Context, id, userID string) error
}

// IssueQuerier is the parametrized read-query layer, one query per
// business rule kind. Each query returns the raw rows describing a
// violation; mapping rows to issues happens in the engine.
type IssueQuerier interface {
	UncontactedLeads(ctx context.Context, days int) ([]*models.Lead, error)
	StaleStageLeads(ctx context.Context, days int) ([]*models.Lead, error)
	IdleOpportunities(ctx context.Context, days int) ([]*models.Opportunity, error)
	OverdueInstallments(ctx context.Context) ([]*models.Installment, error)
	UnansweredTickets(ctx context.Context, hours int) ([]*models.Ticket, error)
	StalledOnboarding(ctx context.Context, days int) ([]*models.OnboardingStep, error)
}

// TelemetryStore is the read side of the login/session telemetry used by
// the security monitor.
type TelemetryStore interface {
	// FailureBursts aggregates failed logins per account since the given time.
	FailureBursts(ctx context.Context, since time.Time) ([]*models.LoginFailureCount, error)
	// NewIPLogins returns successful logins since the given time from an
	// IP the account had not used within the preceding history window.
	NewIPLogins(ctx context.Context, since time.Time, history time.Duration) ([]*models.LoginEvent, error)
	// SuccessfulLogins returns successful logins since the given time.
	SuccessfulLogins(ctx context.Context, since time.Time) ([]*models.LoginEvent, error)
}
