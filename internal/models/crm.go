package models

import "time"

// CRM entity rows consumed by the issue query layer. Only the columns
// the rule mappers interpolate into alert text are carried.

// Lead is a sales lead.
type Lead struct {
	ID            string
	Name          string
	Stage         string
	ResponsibleID string
	LastContactAt *time.Time
	StageSince    time.Time
	CreatedAt     time.Time
}

// Opportunity is an open deal in the sales pipeline.
type Opportunity struct {
	ID             string
	Title          string
	Value          float64
	Stage          string
	ResponsibleID  string
	LastActivityAt *time.Time
	CreatedAt      time.Time
}

// Contract is a signed customer contract.
type Contract struct {
	ID            string
	CustomerName  string
	ResponsibleID string
	CreatedAt     time.Time
}

// Installment is one billing installment of a contract.
type Installment struct {
	ID            string
	ContractID    string
	CustomerName  string
	ResponsibleID string
	Amount        float64
	DueDate       time.Time
	PaidAt        *time.Time
}

// Ticket is a customer support ticket.
type Ticket struct {
	ID            string
	Subject       string
	CustomerName  string
	ResponsibleID string
	Status        string
	LastReplyAt   *time.Time
	CreatedAt     time.Time
}

// OnboardingStep is one pending step of a customer onboarding.
type OnboardingStep struct {
	ID            string
	CustomerName  string
	StepName      string
	ResponsibleID string
	PendingSince  time.Time
}
