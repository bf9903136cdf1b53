package domain

import "time"

// NotificationKind is the terminal event type reported by the provider.
type NotificationKind string

const (
	NotificationCompleted NotificationKind = "completed"
	NotificationFailed    NotificationKind = "failed"
)

// TerminalEvent is one delivery of a provider notification.
type TerminalEvent struct {
	EventID       string
	ProviderJobID string
	Kind          NotificationKind
	ErrorMessage  string // Optional, failed events only
}

// NotificationRecord deduplicates terminal events on (ProviderJobID, Kind).
type NotificationRecord struct {
	EventID       string
	ProviderJobID string
	Kind          NotificationKind
	ReceivedAt    time.Time
	Processed     bool
	ProcessedAt   *time.Time
}

// NotificationOutcome tells the caller what the guard did with an event.
type NotificationOutcome string

const (
	OutcomeApplied   NotificationOutcome = "applied"
	OutcomeDuplicate NotificationOutcome = "duplicate"
	OutcomeIgnored   NotificationOutcome = "ignored"
)
