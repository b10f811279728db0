package models

import (
	"time"

	"github.com/google/uuid"
)

// Poll question types: radio picks exactly one option, checkbox toggles any.
const (
	QuestionTypeRadio    = "radio"
	QuestionTypeCheckbox = "checkbox"
)

// Scene is a named area under test within a session.
type Scene struct {
	ID            uuid.UUID      `json:"id"`
	SessionID     uuid.UUID      `json:"session_id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	OrderIndex    int            `json:"order_index"`
	PollQuestions []PollQuestion `json:"poll_questions,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// PollQuestion is a scene-scoped survey item.
type PollQuestion struct {
	ID           uuid.UUID `json:"id"`
	SceneID      uuid.UUID `json:"scene_id"`
	Question     string    `json:"question"`
	QuestionType string    `json:"question_type"` // "radio" or "checkbox"
	Options      []string  `json:"options"`
	Required     bool      `json:"required"`
	OrderIndex   int       `json:"order_index"`
	CreatedAt    time.Time `json:"created_at"`
}
