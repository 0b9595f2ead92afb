package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
	"github.com/good-yellow-bee/sentinela/internal/storage"
)

var errFakeNotFound = errors.New("not found")

// In-memory fakes over the storage interfaces.

type fakeAlertRepo struct {
	alerts    []*models.Alert
	createErr error
	existsErr error
}

func (f *fakeAlertRepo) Create(_ context.Context, alert *models.Alert) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeAlertRepo) GetByID(_ context.Context, id string) (*models.Alert, error) {
	for _, a := range f.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, errFakeNotFound
}

func (f *fakeAlertRepo) ExistsRecent(_ context.Context, ruleID, userID, descKey string, exact bool, since time.Time) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, a := range f.alerts {
		if a.RuleID != ruleID || a.UserID != userID || a.Archived {
			continue
		}
		if a.CreatedAt.Before(since) {
			continue
		}
		if exact {
			if a.Description == descKey {
				return true, nil
			}
		} else if strings.HasPrefix(a.Description, descKey) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAlertRepo) ListByUser(_ context.Context, userID string, includeArchived bool) ([]*models.Alert, error) {
	var out []*models.Alert
	for _, a := range f.alerts {
		if a.UserID == userID && (includeArchived || !a.Archived) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertRepo) MarkRead(_ context.Context, id, userID string) error { return nil }
func (f *fakeAlertRepo) Snooze(_ context.Context, id, userID string, _ time.Time) error {
	return nil
}
func (f *fakeAlertRepo) Archive(_ context.Context, id, userID string) error { return nil }

type fakeUserRepo struct {
	adminIDs []string
	listErr  error
}

func (f *fakeUserRepo) Create(_ context.Context, _ *models.User) error { return nil }
func (f *fakeUserRepo) GetByID(_ context.Context, _ string) (*models.User, error) {
	return nil, errFakeNotFound
}
func (f *fakeUserRepo) GetByUsername(_ context.Context, _ string) (*models.User, error) {
	return nil, errFakeNotFound
}
func (f *fakeUserRepo) List(_ context.Context) ([]*models.User, error) { return nil, nil }
func (f *fakeUserRepo) ListAdminIDs(_ context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.adminIDs, nil
}
func (f *fakeUserRepo) Count(_ context.Context) (int64, error) { return 0, nil }

type fakeRuleRepo struct {
	rules   []*models.Rule
	listErr error
}

func (f *fakeRuleRepo) Create(_ context.Context, _ *models.Rule) error { return nil }
func (f *fakeRuleRepo) GetByID(_ context.Context, _ string) (*models.Rule, error) {
	return nil, errFakeNotFound
}
func (f *fakeRuleRepo) List(_ context.Context) ([]*models.Rule, error) { return f.rules, nil }

func (f *fakeRuleRepo) ListEnabledByModule(_ context.Context, module string) ([]*models.Rule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Rule
	for _, r := range f.rules {
		if r.Enabled && r.Module == module {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) ListEnabledExcludingModule(_ context.Context, module string) ([]*models.Rule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Rule
	for _, r := range f.rules {
		if r.Enabled && r.Module != module {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) SetEnabled(_ context.Context, _ string, _ bool) error { return nil }

type fakeIssueQuerier struct {
	leads         []*models.Lead
	staleLeads    []*models.Lead
	opportunities []*models.Opportunity
	installments  []*models.Installment
	tickets       []*models.Ticket
	onboarding    []*models.OnboardingStep

	uncontactedErr error
	staleErr       error
	ticketsErr     error
}

func (f *fakeIssueQuerier) UncontactedLeads(_ context.Context, _ int) ([]*models.Lead, error) {
	return f.leads, f.uncontactedErr
}
func (f *fakeIssueQuerier) StaleStageLeads(_ context.Context, _ int) ([]*models.Lead, error) {
	return f.staleLeads, f.staleErr
}
func (f *fakeIssueQuerier) IdleOpportunities(_ context.Context, _ int) ([]*models.Opportunity, error) {
	return f.opportunities, nil
}
func (f *fakeIssueQuerier) OverdueInstallments(_ context.Context) ([]*models.Installment, error) {
	return f.installments, nil
}
func (f *fakeIssueQuerier) UnansweredTickets(_ context.Context, _ int) ([]*models.Ticket, error) {
	return f.tickets, f.ticketsErr
}
func (f *fakeIssueQuerier) StalledOnboarding(_ context.Context, _ int) ([]*models.OnboardingStep, error) {
	return f.onboarding, nil
}

type fakeTelemetry struct {
	bursts    []*models.LoginFailureCount
	newIP     []*models.LoginEvent
	successes []*models.LoginEvent

	burstsErr error
}

func (f *fakeTelemetry) FailureBursts(_ context.Context, _ time.Time) ([]*models.LoginFailureCount, error) {
	return f.bursts, f.burstsErr
}
func (f *fakeTelemetry) NewIPLogins(_ context.Context, _ time.Time, _ time.Duration) ([]*models.LoginEvent, error) {
	return f.newIP, nil
}
func (f *fakeTelemetry) SuccessfulLogins(_ context.Context, _ time.Time) ([]*models.LoginEvent, error) {
	return f.successes, nil
}

// fakeStore bundles the fakes behind the Storage interface for NewRunner.
type fakeStore struct {
	users  *fakeUserRepo
	rules  *fakeRuleRepo
	alerts *fakeAlertRepo
	issues *fakeIssueQuerier
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  &fakeUserRepo{},
		rules:  &fakeRuleRepo{},
		alerts: &fakeAlertRepo{},
		issues: &fakeIssueQuerier{},
	}
}

func (f *fakeStore) Open() error               { return nil }
func (f *fakeStore) Close() error              { return nil }
func (f *fakeStore) Migrate() error            { return nil }
func (f *fakeStore) EnsureAdminUser() error    { return nil }
func (f *fakeStore) EnsureDefaultRules() error { return nil }

func (f *fakeStore) Users() storage.UserRepository   { return f.users }
func (f *fakeStore) Rules() storage.RuleRepository   { return f.rules }
func (f *fakeStore) Alerts() storage.AlertRepository { return f.alerts }
func (f *fakeStore) Issues() storage.IssueQuerier    { return f.issues }
