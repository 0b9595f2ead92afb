package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

// ClickHouseConfig holds ClickHouse connection settings for the login
// telemetry store.
type ClickHouseConfig struct {
	// Addresses are the ClickHouse server addresses (host:port).
	Addresses []string

	// Database is the ClickHouse database name.
	Database string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// DialTimeout is the connection timeout.
	DialTimeout time.Duration

	// Compression enables LZ4 compression.
	Compression bool

	// RetentionDays is the TTL in days for telemetry retention.
	RetentionDays int
}

// ClickHouseTelemetry implements TelemetryStore backed by ClickHouse.
// The CRM's auth layer writes login_events; this store is read-mostly
// (InsertEvents exists for seeding and tests).
type ClickHouseTelemetry struct {
	config *ClickHouseConfig
	db     *sql.DB
}

// NewClickHouseTelemetry creates a new ClickHouse telemetry store.
func NewClickHouseTelemetry(config *ClickHouseConfig) *ClickHouseTelemetry {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 5
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 90
	}

	return &ClickHouseTelemetry{config: config}
}

// Open initializes the ClickHouse connection.
func (s *ClickHouseTelemetry) Open() error {
	opts := &clickhouse.Options{
		Addr: s.config.Addresses,
		Auth: clickhouse.Auth{
			Database: s.config.Database,
			Username: s.config.Username,
			Password: s.config.Password,
		},
		DialTimeout:  s.config.DialTimeout,
		MaxOpenConns: s.config.MaxOpenConns,
		MaxIdleConns: s.config.MaxIdleConns,
	}

	if s.config.Compression {
		opts.Compression = &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		}
	}

	db := clickhouse.OpenDB(opts)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *ClickHouseTelemetry) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the login_events table if it doesn't exist.
func (s *ClickHouseTelemetry) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS login_events (
			ts         DateTime,
			user_id    String,
			email      String,
			ip         String,
			success    UInt8,
			user_agent String
		)
		ENGINE = MergeTree()
		ORDER BY (user_id, ts)
		TTL ts + INTERVAL %d DAY
	`, s.config.RetentionDays)

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create login_events table: %w", err)
	}
	return nil
}

// InsertEvents writes login events. Used by seeding and tests; the
// production write path is the CRM's auth layer.
func (s *ClickHouseTelemetry) InsertEvents(ctx context.Context, events []*models.LoginEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO login_events (ts, user_id, email, ip, success, user_agent) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		success := uint8(0)
		if e.Success {
			success = 1
		}
		if _, err := stmt.ExecContext(ctx, e.Timestamp, e.UserID, e.Email, e.IP, success, e.UserAgent); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// FailureBursts aggregates failed logins per account since the given time.
func (s *ClickHouseTelemetry) FailureBursts(ctx context.Context, since time.Time) ([]*models.LoginFailureCount, error) {
	query := `
		SELECT user_id, email, count() AS failures, argMax(ip, ts) AS last_ip, max(ts) AS last_seen
		FROM login_events
		WHERE success = 0 AND ts >= ?
		GROUP BY user_id, email
		ORDER BY failures DESC
	`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query failure bursts: %w", err)
	}
	defer rows.Close()

	var counts []*models.LoginFailureCount
	for rows.Next() {
		c := &models.LoginFailureCount{}
		var failures uint64
		if err := rows.Scan(&c.UserID, &c.Email, &failures, &c.LastIP, &c.LastSeen); err != nil {
			return nil, fmt.Errorf("scan failure count: %w", err)
		}
		c.Failures = int(failures)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// NewIPLogins returns successful logins since the given time from an IP
// the account had not used within the preceding history window.
func (s *ClickHouseTelemetry) NewIPLogins(ctx context.Context, since time.Time, history time.Duration) ([]*models.LoginEvent, error) {
	historyStart := since.Add(-history)
	query := `
		SELECT e.ts, e.user_id, e.email, e.ip, e.success, e.user_agent
		FROM login_events AS e
		LEFT ANTI JOIN (
			SELECT DISTINCT user_id, ip
			FROM login_events
			WHERE ts >= ? AND ts < ?
		) AS h ON e.user_id = h.user_id AND e.ip = h.ip
		WHERE e.success = 1 AND e.ts >= ?
		ORDER BY e.ts
	`
	return s.queryEvents(ctx, query, historyStart, since, since)
}

// SuccessfulLogins returns successful logins since the given time.
func (s *ClickHouseTelemetry) SuccessfulLogins(ctx context.Context, since time.Time) ([]*models.LoginEvent, error) {
	query := `
		SELECT ts, user_id, email, ip, success, user_agent
		FROM login_events
		WHERE success = 1 AND ts >= ?
		ORDER BY ts
	`
	return s.queryEvents(ctx, query, since)
}

func (s *ClickHouseTelemetry) queryEvents(ctx context.Context, query string, args ...any) ([]*models.LoginEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query login events: %w", err)
	}
	defer rows.Close()

	var events []*models.LoginEvent
	for rows.Next() {
		e := &models.LoginEvent{}
		var success uint8
		if err := rows.Scan(&e.Timestamp, &e.UserID, &e.Email, &e.IP, &success, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("scan login event: %w", err)
		}
		e.Success = success != 0
		events = append(events, e)
	}
	return events, rows.Err()
}
