//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

// Integration tests require running ClickHouse.
// Run with: go test -tags=integration ./internal/storage/...

func setupClickHouseTest(t *testing.T) (*ClickHouseTelemetry, func()) {
	t.Helper()

	config := &ClickHouseConfig{
		Addresses:     []string{"localhost:9000"},
		Database:      "sentinela_test",
		Username:      "default",
		Password:      "",
		MaxOpenConns:  2,
		MaxIdleConns:  2,
		DialTimeout:   5 * time.Second,
		Compression:   true,
		RetentionDays: 1,
	}

	store := NewClickHouseTelemetry(config)
	if err := store.Open(); err != nil {
		t.Skipf("ClickHouse not available: %v", err)
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		t.Fatalf("migrate: %v", err)
	}

	cleanup := func() {
		store.db.Exec("TRUNCATE TABLE login_events")
		store.Close()
	}

	return store, cleanup
}

func TestClickHouseTelemetry_FailureBursts_Integration(t *testing.T) {
	store, cleanup := setupClickHouseTest(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now()
	var events []*models.LoginEvent
	for i := 0; i < 6; i++ {
		events = append(events, &models.LoginEvent{
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			UserID:    "U1",
			Email:     "u1@example.com",
			IP:        "10.0.0.9",
			Success:   false,
		})
	}
	events = append(events, &models.LoginEvent{
		Timestamp: now, UserID: "U2", Email: "u2@example.com", IP: "10.0.0.1", Success: true,
	})

	if err := store.InsertEvents(ctx, events); err != nil {
		t.Fatalf("insert events: %v", err)
	}

	bursts, err := store.FailureBursts(ctx, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("failure bursts: %v", err)
	}
	if len(bursts) != 1 {
		t.Fatalf("bursts = %d, want 1", len(bursts))
	}
	if bursts[0].UserID != "U1" || bursts[0].Failures != 6 {
		t.Errorf("burst = %+v, want U1 with 6 failures", bursts[0])
	}
}

func TestClickHouseTelemetry_NewIPLogins_Integration(t *testing.T) {
	store, cleanup := setupClickHouseTest(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now()
	events := []*models.LoginEvent{
		// Known IP used last week and again now
		{Timestamp: now.AddDate(0, 0, -7), UserID: "U1", Email: "u1@example.com", IP: "10.0.0.1", Success: true},
		{Timestamp: now, UserID: "U1", Email: "u1@example.com", IP: "10.0.0.1", Success: true},
		// Never-seen IP
		{Timestamp: now, UserID: "U1", Email: "u1@example.com", IP: "203.0.113.7", Success: true},
	}
	if err := store.InsertEvents(ctx, events); err != nil {
		t.Fatalf("insert events: %v", err)
	}

	logins, err := store.NewIPLogins(ctx, now.Add(-10*time.Minute), 30*24*time.Hour)
	if err != nil {
		t.Fatalf("new ip logins: %v", err)
	}
	if len(logins) != 1 {
		t.Fatalf("logins = %d, want 1", len(logins))
	}
	if logins[0].IP != "203.0.113.7" {
		t.Errorf("ip = %s, want 203.0.113.7", logins[0].IP)
	}
}
