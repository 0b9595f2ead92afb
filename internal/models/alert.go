package models

import "time"

// Alert is a persisted, user-facing notification. Alerts are created
// exclusively by the engine's deduplicating writer and mutated only by
// end users (read, snooze, archive).
type Alert struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	RuleID       string     `json:"rule_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Link         string     `json:"link,omitempty"`
	Severity     Severity   `json:"severity"`
	IsRead       bool       `json:"is_read"`
	Archived     bool       `json:"archived"`
	SnoozedUntil *time.Time `json:"snoozed_until,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Issue is one concrete rule violation, produced by mapping a raw query
// row. Issues are ephemeral: they exist only during a processing pass
// and never persist directly.
type Issue struct {
	Title         string
	Description   string
	Link          string
	ResponsibleID string
}
