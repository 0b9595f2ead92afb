package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Users table
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				username TEXT UNIQUE NOT NULL,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'member',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Monitoring rule definitions
			CREATE TABLE IF NOT EXISTS alert_rules (
				id TEXT PRIMARY KEY,
				module TEXT NOT NULL,
				description TEXT,
				severity TEXT NOT NULL DEFAULT 'medium',
				threshold REAL NOT NULL DEFAULT 0,
				visibility TEXT NOT NULL DEFAULT 'admin',
				enabled INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Generated alerts
			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				rule_id TEXT NOT NULL,
				title TEXT NOT NULL,
				description TEXT NOT NULL,
				link TEXT,
				severity TEXT NOT NULL DEFAULT 'medium',
				is_read INTEGER NOT NULL DEFAULT 0,
				archived INTEGER NOT NULL DEFAULT 0,
				snoozed_until DATETIME,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (rule_id) REFERENCES alert_rules(id) ON DELETE CASCADE
			);

			-- CRM entities read by the issue query layer
			CREATE TABLE IF NOT EXISTS leads (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				stage TEXT NOT NULL DEFAULT 'novo',
				responsible_id TEXT,
				last_contact_at DATETIME,
				stage_since DATETIME NOT NULL,
				created_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS opportunities (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				value REAL NOT NULL DEFAULT 0,
				stage TEXT NOT NULL DEFAULT 'aberta',
				responsible_id TEXT,
				last_activity_at DATETIME,
				created_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS contracts (
				id TEXT PRIMARY KEY,
				customer_name TEXT NOT NULL,
				responsible_id TEXT,
				created_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS installments (
				id TEXT PRIMARY KEY,
				contract_id TEXT NOT NULL,
				amount REAL NOT NULL,
				due_date DATETIME NOT NULL,
				paid_at DATETIME,
				FOREIGN KEY (contract_id) REFERENCES contracts(id) ON DELETE CASCADE
			);

			CREATE TABLE IF NOT EXISTS tickets (
				id TEXT PRIMARY KEY,
				subject TEXT NOT NULL,
				customer_name TEXT NOT NULL,
				responsible_id TEXT,
				status TEXT NOT NULL DEFAULT 'aberto',
				last_reply_at DATETIME,
				created_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS onboarding_steps (
				id TEXT PRIMARY KEY,
				customer_name TEXT NOT NULL,
				step_name TEXT NOT NULL,
				responsible_id TEXT,
				status TEXT NOT NULL DEFAULT 'pendente',
				pending_since DATETIME NOT NULL
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
			CREATE INDEX IF NOT EXISTS idx_rules_module ON alert_rules(module);
			CREATE INDEX IF NOT EXISTS idx_rules_enabled ON alert_rules(enabled);
			CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(user_id, archived);
			-- Serves the dedup existence check
			CREATE INDEX IF NOT EXISTS idx_alerts_dedup ON alerts(rule_id, user_id, archived, created_at);
			CREATE INDEX IF NOT EXISTS idx_installments_due ON installments(due_date, paid_at);
			CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
