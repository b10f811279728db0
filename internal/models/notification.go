package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds emitted by the session lifecycle worker.
const (
	NotificationSessionStarted = "session_started"
	NotificationSessionEnded   = "session_ended"
)

// Notification is a per-tester message about a session lifecycle event.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	TesterID  uuid.UUID  `json:"tester_id"`
	SessionID uuid.UUID  `json:"session_id"`
	Kind      string     `json:"kind"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
