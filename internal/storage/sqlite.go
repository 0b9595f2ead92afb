package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	path string
	db   *sql.DB

	users  *sqliteUserRepo
	rules  *sqliteRuleRepo
	alerts *sqliteAlertRepo
	issues *sqliteIssueQuerier
}

// NewSQLiteStorage creates a new SQLite storage.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open initializes the database connection.
func (s *SQLiteStorage) Open() error {
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", s.path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s.db = db

	s.users = &sqliteUserRepo{db: db}
	s.rules = &sqliteRuleRepo{db: db}
	s.alerts = &sqliteAlertRepo{db: db}
	s.issues = &sqliteIssueQuerier{db: db}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Migrate runs database migrations.
func (s *SQLiteStorage) Migrate() error {
	return runMigrations(s.db)
}

// EnsureAdminUser creates a default admin if no users exist.
func (s *SQLiteStorage) EnsureAdminUser() error {
	count, err := s.Users().Count(context.Background())
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	password := generateRandomPassword(16)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := &models.User{
		ID:           uuid.New().String(),
		Username:     "admin",
		Email:        "admin@localhost",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.Users().Create(context.Background(), admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	fmt.Printf("\n")
	fmt.Printf("===========================================\n")
	fmt.Printf("  DEFAULT ADMIN USER CREATED\n")
	fmt.Printf("  Username: admin\n")
	fmt.Printf("  Password: %s\n", password)
	fmt.Printf("  CHANGE THIS PASSWORD IMMEDIATELY!\n")
	fmt.Printf("===========================================\n")
	fmt.Printf("\n")

	return nil
}

// EnsureDefaultRules seeds the built-in rule catalog if no rules exist.
// Administrators tune thresholds and visibility afterwards; the engine
// only ever reads these rows.
func (s *SQLiteStorage) EnsureDefaultRules() error {
	ctx := context.Background()

	existing, err := s.Rules().List(ctx)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now()
	defaults := []*models.Rule{
		{ID: "lead-uncontacted", Module: models.ModuleLeads, Description: "Lead sem contato há N dias", Severity: models.SeverityHigh, Threshold: 5, Visibility: models.VisibilityBoth},
		{ID: "lead-stale-stage", Module: models.ModuleLeads, Description: "Lead parado na mesma etapa há N dias", Severity: models.SeverityMedium, Threshold: 10, Visibility: models.VisibilityResponsible},
		{ID: "opportunity-idle", Module: models.ModuleComercial, Description: "Oportunidade sem atividade há N dias", Severity: models.SeverityHigh, Threshold: 7, Visibility: models.VisibilityBoth},
		{ID: "installment-overdue", Module: models.ModuleFinanceiro, Description: "Parcela de contrato vencida", Severity: models.SeverityCritical, Threshold: 0, Visibility: models.VisibilityBoth},
		{ID: "ticket-unanswered", Module: models.ModuleSuporte, Description: "Ticket sem resposta há N horas", Severity: models.SeverityHigh, Threshold: 24, Visibility: models.VisibilityResponsible},
		{ID: "onboarding-stalled", Module: models.ModuleOnboarding, Description: "Etapa de onboarding pendente há N dias", Severity: models.SeverityMedium, Threshold: 7, Visibility: models.VisibilityBoth},
		{ID: "login-failure-burst", Module: models.ModuleSeguranca, Description: "Muitas falhas de login para a mesma conta", Severity: models.SeverityCritical, Threshold: 5, Visibility: models.VisibilityAdmin},
		{ID: "login-new-ip", Module: models.ModuleSeguranca, Description: "Login de um IP desconhecido", Severity: models.SeverityHigh, Threshold: 0, Visibility: models.VisibilityBoth},
		{ID: "login-off-hours", Module: models.ModuleSeguranca, Description: "Login de administrador fora do horário", Severity: models.SeverityHigh, Threshold: 0, Visibility: models.VisibilityAdmin},
	}

	for _, rule := range defaults {
		rule.Enabled = true
		rule.CreatedAt = now
		rule.UpdatedAt = now
		if err := s.Rules().Create(ctx, rule); err != nil {
			return fmt.Errorf("seed rule %s: %w", rule.ID, err)
		}
	}

	return nil
}

// Users returns the user repository.
func (s *SQLiteStorage) Users() UserRepository {
	return s.users
}

// Rules returns the rule repository.
func (s *SQLiteStorage) Rules() RuleRepository {
	return s.rules
}

// Alerts returns the alert repository.
func (s *SQLiteStorage) Alerts() AlertRepository {
	return s.alerts
}

// Issues returns the issue query layer.
func (s *SQLiteStorage) Issues() IssueQuerier {
	return s.issues
}

// generateRandomPassword generates a random password of the specified length.
func generateRandomPassword(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)[:length]
}
