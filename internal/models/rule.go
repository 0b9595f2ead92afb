package models

import "time"

// Visibility determines who receives alerts generated by a rule.
type Visibility string

const (
	// VisibilityResponsible notifies only the responsible party on the issue.
	VisibilityResponsible Visibility = "responsible"
	// VisibilityAdmin notifies every admin.
	VisibilityAdmin Visibility = "admin"
	// VisibilityBoth notifies the responsible party and every admin.
	VisibilityBoth Visibility = "both"
)

// ParseVisibility converts a string to Visibility, defaulting to admin.
func ParseVisibility(s string) Visibility {
	switch s {
	case "responsible":
		return VisibilityResponsible
	case "admin":
		return VisibilityAdmin
	case "both":
		return VisibilityBoth
	default:
		return VisibilityAdmin
	}
}

// Severity represents alert severity level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity converts a string to Severity.
func ParseSeverity(s string) Severity {
	switch s {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// Rule modules group rules for execution and user-facing preferences.
// The security module runs in a separate job from the business modules.
const (
	ModuleLeads      = "Leads"
	ModuleComercial  = "Comercial"
	ModuleFinanceiro = "Financeiro"
	ModuleSuporte    = "Suporte"
	ModuleOnboarding = "Onboarding"
	ModuleSeguranca  = "Segurança"
)

// Rule is a declarative definition of a condition to monitor. Rules are
// created and edited by administrators; the engine consumes them
// read-only and dispatches on ID.
type Rule struct {
	ID          string     `json:"id"`
	Module      string     `json:"module"`
	Description string     `json:"description,omitempty"`
	Severity    Severity   `json:"severity"`
	Threshold   float64    `json:"threshold"`
	Visibility  Visibility `json:"visibility"`
	Enabled     bool       `json:"enabled"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsSecurity reports whether the rule belongs to the security module.
func (r *Rule) IsSecurity() bool {
	return r.Module == ModuleSeguranca
}
