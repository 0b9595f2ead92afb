package models

import "time"

// LoginEvent is one login attempt from the session telemetry store.
type LoginEvent struct {
	Timestamp time.Time
	UserID    string
	Email     string
	IP        string
	Success   bool
	UserAgent string
}

// LoginFailureCount aggregates failed login attempts per account within
// a query window.
type LoginFailureCount struct {
	UserID   string
	Email    string
	Failures int
	LastIP   string
	LastSeen time.Time
}
