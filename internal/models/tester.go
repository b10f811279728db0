package models

import (
	"time"

	"github.com/google/uuid"
)

// Tester is a session participant identified by an invite token.
// The token link is unauthenticated; whoever holds it is the tester.
type Tester struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          *string   `json:"email,omitempty"`
	InviteToken    string    `json:"invite_token"`
	ReportedIssues []string  `json:"reported_issues"`
	CreatedAt      time.Time `json:"created_at"`
}
