package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

// sqliteIssueQuerier implements the per-rule read queries over the CRM
// tables. Each query corresponds to one rule id in the engine's dispatch
// table; thresholds arrive already interpreted (days, hours).
type sqliteIssueQuerier struct {
	db *sql.DB
}

// issueNow is swappable in tests that need deterministic cutoffs.
var issueNow = time.Now

func (q *sqliteIssueQuerier) UncontactedLeads(ctx context.Context, days int) ([]*models.Lead, error) {
	cutoff := issueNow().AddDate(0, 0, -days)
	query := `
		SELECT id, name, stage, responsible_id, last_contact_at, stage_since, created_at
		FROM leads
		WHERE (last_contact_at IS NULL AND created_at < ?)
		   OR last_contact_at < ?
		ORDER BY created_at
	`
	return q.queryLeads(ctx, query, cutoff, cutoff)
}

func (q *sqliteIssueQuerier) StaleStageLeads(ctx context.Context, days int) ([]*models.Lead, error) {
	cutoff := issueNow().AddDate(0, 0, -days)
	query := `
		SELECT id, name, stage, responsible_id, last_contact_at, stage_since, created_at
		FROM leads
		WHERE stage NOT IN ('ganho', 'perdido') AND stage_since < ?
		ORDER BY stage_since
	`
	return q.queryLeads(ctx, query, cutoff)
}

func (q *sqliteIssueQuerier) IdleOpportunities(ctx context.Context, days int) ([]*models.Opportunity, error) {
	cutoff := issueNow().AddDate(0, 0, -days)
	query := `
		SELECT id, title, value, stage, responsible_id, last_activity_at, created_at
		FROM opportunities
		WHERE stage NOT IN ('ganha', 'perdida')
		  AND ((last_activity_at IS NULL AND created_at < ?) OR last_activity_at < ?)
		ORDER BY created_at
	`
	rows, err := q.db.QueryContext(ctx, query, cutoff, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query idle opportunities: %w", err)
	}
	defer rows.Close()

	var opps []*models.Opportunity
	for rows.Next() {
		opp := &models.Opportunity{}
		var responsible sql.NullString
		var lastActivity sql.NullTime
		err := rows.Scan(&opp.ID, &opp.Title, &opp.Value, &opp.Stage,
			&responsible, &lastActivity, &opp.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		opp.ResponsibleID = responsible.String
		if lastActivity.Valid {
			t := lastActivity.Time
			opp.LastActivityAt = &t
		}
		opps = append(opps, opp)
	}
	return opps, rows.Err()
}

func (q *sqliteIssueQuerier) OverdueInstallments(ctx context.Context) ([]*models.Installment, error) {
	query := `
		SELECT i.id, i.contract_id, c.customer_name, c.responsible_id, i.amount, i.due_date, i.paid_at
		FROM installments i
		JOIN contracts c ON c.id = i.contract_id
		WHERE i.paid_at IS NULL AND i.due_date < ?
		ORDER BY i.due_date
	`
	rows, err := q.db.QueryContext(ctx, query, issueNow())
	if err != nil {
		return nil, fmt.Errorf("query overdue installments: %w", err)
	}
	defer rows.Close()

	var installments []*models.Installment
	for rows.Next() {
		inst := &models.Installment{}
		var responsible sql.NullString
		var paidAt sql.NullTime
		err := rows.Scan(&inst.ID, &inst.ContractID, &inst.CustomerName,
			&responsible, &inst.Amount, &inst.DueDate, &paidAt)
		if err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		inst.ResponsibleID = responsible.String
		if paidAt.Valid {
			t := paidAt.Time
			inst.PaidAt = &t
		}
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

func (q *sqliteIssueQuerier) UnansweredTickets(ctx context.Context, hours int) ([]*models.Ticket, error) {
	cutoff := issueNow().Add(-time.Duration(hours) * time.Hour)
	query := `
		SELECT id, subject, customer_name, responsible_id, status, last_reply_at, created_at
		FROM tickets
		WHERE status = 'aberto'
		  AND ((last_reply_at IS NULL AND created_at < ?) OR last_reply_at < ?)
		ORDER BY created_at
	`
	rows, err := q.db.QueryContext(ctx, query, cutoff, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query unanswered tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket := &models.Ticket{}
		var responsible sql.NullString
		var lastReply sql.NullTime
		err := rows.Scan(&ticket.ID, &ticket.Subject, &ticket.CustomerName,
			&responsible, &ticket.Status, &lastReply, &ticket.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		ticket.ResponsibleID = responsible.String
		if lastReply.Valid {
			t := lastReply.Time
			ticket.LastReplyAt = &t
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func (q *sqliteIssueQuerier) StalledOnboarding(ctx context.Context, days int) ([]*models.OnboardingStep, error) {
	cutoff := issueNow().AddDate(0, 0, -days)
	query := `
		SELECT id, customer_name, step_name, responsible_id, pending_since
		FROM onboarding_steps
		WHERE status = 'pendente' AND pending_since < ?
		ORDER BY pending_since
	`
	rows, err := q.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query stalled onboarding: %w", err)
	}
	defer rows.Close()

	var steps []*models.OnboardingStep
	for rows.Next() {
		step := &models.OnboardingStep{}
		var responsible sql.NullString
		err := rows.Scan(&step.ID, &step.CustomerName, &step.StepName,
			&responsible, &step.PendingSince)
		if err != nil {
			return nil, fmt.Errorf("scan onboarding step: %w", err)
		}
		step.ResponsibleID = responsible.String
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (q *sqliteIssueQuerier) queryLeads(ctx context.Context, query string, args ...any) ([]*models.Lead, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead := &models.Lead{}
		var responsible sql.NullString
		var lastContact sql.NullTime
		err := rows.Scan(&lead.ID, &lead.Name, &lead.Stage,
			&responsible, &lastContact, &lead.StageSince, &lead.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		lead.ResponsibleID = responsible.String
		if lastContact.Valid {
			t := lastContact.Time
			lead.LastContactAt = &t
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}
