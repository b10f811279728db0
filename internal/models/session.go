package models

import (
	"time"

	"github.com/google/uuid"
)

// Session lifecycle statuses. An admin flips draft -> active -> completed;
// a completed session can be restarted back to active.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Phase is the tester-visible view of a session's lifecycle.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseActive     Phase = "active"
	PhaseEnded      Phase = "ended"
)

// AllowsFeedback reports whether testers may record notes, toggle issues
// and answer polls in this phase.
func (p Phase) AllowsFeedback() bool {
	return p == PhaseActive
}

// Session is one admin-defined testing exercise.
type Session struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	IssueOptions    []string   `json:"issue_options"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	FirstEndedAt    *time.Time `json:"first_ended_at,omitempty"`
	LastRestartedAt *time.Time `json:"last_restarted_at,omitempty"`
	RestartCount    int        `json:"restart_count"`
	ShareToken      *string    `json:"share_token,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Phase derives the tester-visible phase from the lifecycle status.
// This is the only place phase is computed; the join endpoint and the
// device client both go through it so they can never disagree.
func (s *Session) Phase() Phase {
	switch s.Status {
	case StatusCompleted:
		return PhaseEnded
	case StatusActive:
		return PhaseActive
	default:
		return PhaseNotStarted
	}
}

// SessionWithScenes is a session plus its ordered scenes (and their poll
// questions), as returned by the join endpoint.
type SessionWithScenes struct {
	Session
	Scenes []Scene `json:"scenes"`
}
