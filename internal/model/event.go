package model

import "time"

// EventType is a job lifecycle transition.
type EventType string

const (
	EventNew      EventType = "new"
	EventArchived EventType = "archived"
)

// NotificationEvent is one entry of the notification queue. Rows are never
// deleted; delivery only flips Notified.
type NotificationEvent struct {
	ID        int64
	JobID     string
	Type      EventType
	Notified  bool
	CreatedAt time.Time
}
