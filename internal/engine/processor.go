// Package engine implements the rule evaluation pipeline: rule →
// issues → visibility targets → deduplicated alert writes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
	"github.com/good-yellow-bee/sentinela/internal/storage"
)

// ErrUnknownRule marks a rule whose id has no dispatch entry. Unknown
// rules are skipped, not fatal: the runner logs and counts them.
var ErrUnknownRule = errors.New("unknown rule id")

// IssueProducer translates one enabled rule into zero or more issues.
type IssueProducer interface {
	Process(ctx context.Context, rule *models.Rule) ([]models.Issue, error)
}

// ruleSpec bundles everything the processor needs for one rule kind:
// the query invoker and the row mapper. Adding a rule kind is a table
// entry, not a new branch.
type ruleSpec struct {
	query func(ctx context.Context, q storage.IssueQuerier, rule *models.Rule, now time.Time) ([]models.Issue, error)
}

// Processor evaluates the business rule catalog. Dispatch is by rule
// id; each entry invokes its read query with parameters built from the
// rule threshold and maps rows to issues via pure string interpolation.
type Processor struct {
	issues   storage.IssueQuerier
	dispatch map[string]ruleSpec
	now      func() time.Time
}

// NewProcessor creates a processor over the given query layer.
func NewProcessor(issues storage.IssueQuerier) *Processor {
	return &Processor{
		issues:   issues,
		dispatch: businessCatalog(),
		now:      time.Now,
	}
}

// Process translates a rule into issues. It returns ErrUnknownRule for
// ids without a dispatch entry and wraps query-layer errors; it never
// writes anything.
func (p *Processor) Process(ctx context.Context, rule *models.Rule) ([]models.Issue, error) {
	spec, ok := p.dispatch[rule.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, rule.ID)
	}

	issues, err := spec.query(ctx, p.issues, rule, p.now())
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	return issues, nil
}
