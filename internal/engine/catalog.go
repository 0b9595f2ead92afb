package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
	"github.com/good-yellow-bee/sentinela/internal/storage"
)

// Business rule catalog. Ids are stable dispatch keys; they double as
// the rule_id foreign key on generated alerts.
const (
	RuleLeadUncontacted    = "lead-uncontacted"
	RuleLeadStaleStage     = "lead-stale-stage"
	RuleOpportunityIdle    = "opportunity-idle"
	RuleInstallmentOverdue = "installment-overdue"
	RuleTicketUnanswered   = "ticket-unanswered"
	RuleOnboardingStalled  = "onboarding-stalled"
)

func businessCatalog() map[string]ruleSpec {
	return map[string]ruleSpec{
		RuleLeadUncontacted:    {query: queryUncontactedLeads},
		RuleLeadStaleStage:     {query: queryStaleStageLeads},
		RuleOpportunityIdle:    {query: queryIdleOpportunities},
		RuleInstallmentOverdue: {query: queryOverdueInstallments},
		RuleTicketUnanswered:   {query: queryUnansweredTickets},
		RuleOnboardingStalled:  {query: queryStalledOnboarding},
	}
}

func queryUncontactedLeads(ctx context.Context, q storage.IssueQuerier, rule *models.Rule, now time.Time) ([]models.Issue, error) {
	days := int(rule.Threshold)
	leads, err := q.UncontactedLeads(ctx, days)
	if err != nil {
		return nil, err
	}

	issues := make([]models.Issue, 0, len(leads))
	for _, lead := range leads {
		last := lead.CreatedAt
		if lead.LastContactAt != nil {
			last = *lead.LastContactAt
		}
		issues = append(issues, models.Issue{
			Title: fmt.Sprintf("Lead %q não contatado", lead.Name),
			Description: fmt.Sprintf("O lead %q está sem contato há %s (limite: %d dias).",
				lead.Name, plural(daysSince(last, now), "dia", "dias"), days),
			Link:          "/leads/" + lead.ID,
			ResponsibleID: lead.ResponsibleID,
		})
	}
	return issues, nil
}

func queryStaleStageLeads(ctx context.Context, q storage.IssueQuerier, rule *models.Rule, now time.Time) ([]models.Issue, error) {
	days := int(rule.Threshold)
	leads, err := q.StaleStageLeads(ctx, days)
	if err != nil {
		return nil, err
	}

	issues := make([]models.Issue, 0, len(leads))
	for _, lead := range leads {
		issues = append(issues, models.Issue{
			Title: fmt.Sprintf("Lead %q parado na etapa %q", lead.Name, lead.Stage),
			Description: fmt.Sprintf("O lead %q está há %s na etapa %q (limite: %d dias).",
				lead.Name, plural(daysSince(lead.StageSince, now), "dia", "dias"), lead.Stage, days),
			Link:          "/leads/" + lead.ID,
			ResponsibleID: lead.ResponsibleID,
		})
	}
	return issues, nil
}

func queryIdleOpportunities(ctx context.Context, q storage.IssueQuerier, rule *models.Rule, now time.Time) ([]models.Issue, error) {
	days := int(rule.Threshold)
	opps, err := q.IdleOpportunities(ctx, days)
	if err != nil {
		return nil, err
	}

	issues := make([]models.Issue, 0, len(opps))
	for _, opp := range opps {
		last := opp.CreatedAt
		if opp.LastActivityAt != nil {
			last = *opp.LastActivityAt
		}
		issues = append(issues, models.Issue{
			Title: fmt.Sprintf("Oportunidade %q sem atividade", opp.Title),
			Description: fmt.Sprintf("A oportunidade %q (%s) está sem atividade há %s (limite: %d dias).",
				opp.Title, formatBRL(opp.Value), plural(daysSince(last, now), "dia", "dias"), days),
			Link:          "/comercial/oportunidades/" + opp.ID,
			ResponsibleID: opp.ResponsibleID,
		})
	}
	return issues, nil
}

// Overdue installments take no threshold: any unpaid installment past
// its due date is a violation.
func queryOverdueInstallments(ctx context.Context, q storage.IssueQuerier, rule *models.Rule, now time.Time) ([]models.Issue, error) {
	insts, err := q.OverdueInstallments(ctx)
	if err != nil {
		return nil, err
	}

	issues := make([]models.Issue, 0, len(insts))
	for _, inst := range insts {
		issues = append(issues, models.Issue{
			Title: fmt.Sprintf("Parcela vencida de %s", inst.CustomerName),
			Description: fmt.Sprintf("Parcela de %s do contrato de %s venceu em %s (%s de atraso).",
				formatBRL(inst.Amount), inst.CustomerName, formatDate(inst.DueDate),
				plural(daysSince(inst.DueDate, now), "dia", "dias")),
			Link:          "/financeiro/contratos/" + inst.ContractID,
			ResponsibleID: inst.ResponsibleID,
		})
	}
	return issues, nil
}

func queryUnansweredTickets(ctx context.Context, q storage.IssueQuerier, rule *models.Rule, now time.Time) ([]models.Issue, error) {
	hours := int(rule.Threshold)
	tickets, err := q.UnansweredTickets(ctx, hours)
	if err != nil {
		return nil, err
	}

	issues := make([]models.Issue, 0, len(tickets))
	for _, t := range tickets {
		last := t.CreatedAt
		if t.LastReplyAt != nil {
			last = *t.LastReplyAt
		}
		issues = append(issues, models.Issue{
			Title: fmt.Sprintf("Ticket %q sem resposta", t.Subject),
			Description: fmt.Sprintf("O ticket %q de %s está sem resposta há %s (limite: %d horas).",
				t.Subject, t.CustomerName, plural(hoursSince(last, now), "hora", "horas"), hours),
			Link:          "/suporte/tickets/" + t.ID,
			ResponsibleID: t.ResponsibleID,
		})
	}
	return issues, nil
}

func queryStalledOnboarding(ctx context.Context, q storage.IssueQuerier, rule *models.Rule, now time.Time) ([]models.Issue, error) {
	days := int(rule.Threshold)
	steps, err := q.StalledOnboarding(ctx, days)
	if err != nil {
		return nil, err
	}

	issues := make([]models.Issue, 0, len(steps))
	for _, step := range steps {
		issues = append(issues, models.Issue{
			Title: fmt.Sprintf("Onboarding de %s parado", step.CustomerName),
			Description: fmt.Sprintf("A etapa %q do onboarding de %s está pendente há %s (limite: %d dias).",
				step.StepName, step.CustomerName, plural(daysSince(step.PendingSince, now), "dia", "dias"), days),
			Link:          "/onboarding/" + step.ID,
			ResponsibleID: step.ResponsibleID,
		})
	}
	return issues, nil
}
