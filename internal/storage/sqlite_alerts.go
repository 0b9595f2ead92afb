package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

type sqliteAlertRepo struct {
	db *sql.DB
}

const alertColumns = "id, user_id, rule_id, title, description, link, severity, is_read, archived, snoozed_until, created_at"

func (r *sqliteAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.UserID, alert.RuleID, alert.Title, alert.Description,
		nullString(alert.Link), alert.Severity,
		boolToInt(alert.IsRead), boolToInt(alert.Archived),
		nullTime(alert.SnoozedUntil), alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+alertColumns+" FROM alerts WHERE id = ?", id)

	alert, err := scanAlert(row)
	if err != nil {
		return nil, err
	}
	return alert, nil
}

func (r *sqliteAlertRepo) ExistsRecent(ctx context.Context, ruleID, userID, descKey string, exact bool, since time.Time) (bool, error) {
	query := `
		SELECT COUNT(*) FROM alerts
		WHERE rule_id = ? AND user_id = ? AND archived = 0 AND created_at >= ?
	`
	args := []any{ruleID, userID, since}

	if exact {
		query += " AND description = ?"
		args = append(args, descKey)
	} else {
		// Prefix match; descKey is a literal, so escape LIKE wildcards.
		query += " AND description LIKE ? ESCAPE '\\'"
		args = append(args, escapeLike(descKey)+"%")
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("check existing alert: %w", err)
	}
	return count > 0, nil
}

func (r *sqliteAlertRepo) ListByUser(ctx context.Context, userID string, includeArchived bool) ([]*models.Alert, error) {
	query := "SELECT " + alertColumns + " FROM alerts WHERE user_id = ?"
	if !includeArchived {
		query += " AND archived = 0"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlertRow(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (r *sqliteAlertRepo) MarkRead(ctx context.Context, id, userID string) error {
	return r.updateOwned(ctx, id, userID, "UPDATE alerts SET is_read = 1 WHERE id = ? AND user_id = ?")
}

func (r *sqliteAlertRepo) Snooze(ctx context.Context, id, userID string, until time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alerts SET snoozed_until = ? WHERE id = ? AND user_id = ?",
		until, id, userID,
	)
	if err != nil {
		return fmt.Errorf("snooze alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found: %s", id)
	}
	return nil
}

func (r *sqliteAlertRepo) Archive(ctx context.Context, id, userID string) error {
	return r.updateOwned(ctx, id, userID, "UPDATE alerts SET archived = 1 WHERE id = ? AND user_id = ?")
}

func (r *sqliteAlertRepo) updateOwned(ctx context.Context, id, userID, query string) error {
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found: %s", id)
	}
	return nil
}

func scanAlert(row *sql.Row) (*models.Alert, error) {
	alert := &models.Alert{}
	var link sql.NullString
	var snoozed sql.NullTime
	var isRead, archived int

	err := row.Scan(
		&alert.ID, &alert.UserID, &alert.RuleID, &alert.Title, &alert.Description,
		&link, &alert.Severity, &isRead, &archived, &snoozed, &alert.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	alert.Link = link.String
	alert.IsRead = isRead != 0
	alert.Archived = archived != 0
	if snoozed.Valid {
		t := snoozed.Time
		alert.SnoozedUntil = &t
	}
	return alert, nil
}

func scanAlertRow(rows *sql.Rows) (*models.Alert, error) {
	alert := &models.Alert{}
	var link sql.NullString
	var snoozed sql.NullTime
	var isRead, archived int

	err := rows.Scan(
		&alert.ID, &alert.UserID, &alert.RuleID, &alert.Title, &alert.Description,
		&link, &alert.Severity, &isRead, &archived, &snoozed, &alert.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	alert.Link = link.String
	alert.IsRead = isRead != 0
	alert.Archived = archived != 0
	if snoozed.Valid {
		t := snoozed.Time
		alert.SnoozedUntil = &t
	}
	return alert, nil
}

// escapeLike escapes LIKE wildcards in a literal string.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
