package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

type sqliteRuleRepo struct {
	db *sql.DB
}

const ruleColumns = "id, module, description, severity, threshold, visibility, enabled, created_at, updated_at"

func (r *sqliteRuleRepo) Create(ctx context.Context, rule *models.Rule) error {
	query := `
		INSERT INTO alert_rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Module, rule.Description, rule.Severity, rule.Threshold,
		rule.Visibility, boolToInt(rule.Enabled), rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (r *sqliteRuleRepo) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM alert_rules WHERE id = ?", id)
	return scanRule(row)
}

func (r *sqliteRuleRepo) List(ctx context.Context) ([]*models.Rule, error) {
	return r.queryRules(ctx, "SELECT "+ruleColumns+" FROM alert_rules ORDER BY module, id")
}

func (r *sqliteRuleRepo) ListEnabledByModule(ctx context.Context, module string) ([]*models.Rule, error) {
	return r.queryRules(ctx,
		"SELECT "+ruleColumns+" FROM alert_rules WHERE enabled = 1 AND module = ? ORDER BY id",
		module)
}

func (r *sqliteRuleRepo) ListEnabledExcludingModule(ctx context.Context, module string) ([]*models.Rule, error) {
	return r.queryRules(ctx,
		"SELECT "+ruleColumns+" FROM alert_rules WHERE enabled = 1 AND module != ? ORDER BY id",
		module)
}

func (r *sqliteRuleRepo) SetEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alert_rules SET enabled = ?, updated_at = ? WHERE id = ?",
		boolToInt(enabled), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set rule enabled: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("rule not found: %s", id)
	}
	return nil
}

func (r *sqliteRuleRepo) queryRules(ctx context.Context, query string, args ...any) ([]*models.Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.Rule
	for rows.Next() {
		rule := &models.Rule{}
		var description sql.NullString
		var enabled int
		err := rows.Scan(
			&rule.ID, &rule.Module, &description, &rule.Severity, &rule.Threshold,
			&rule.Visibility, &enabled, &rule.CreatedAt, &rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rule.Description = description.String
		rule.Enabled = enabled != 0
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(row *sql.Row) (*models.Rule, error) {
	rule := &models.Rule{}
	var description sql.NullString
	var enabled int
	err := row.Scan(
		&rule.ID, &rule.Module, &description, &rule.Severity, &rule.Threshold,
		&rule.Visibility, &enabled, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan rule: %w", err)
	}
	rule.Description = description.String
	rule.Enabled = enabled != 0
	return rule, nil
}

// Helper functions

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
