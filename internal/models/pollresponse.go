package models

import (
	"time"

	"github.com/google/uuid"
)

// PollResponse is one tester's answer to one poll question. There is at
// most one row per (poll_question_id, tester_id); a new submission
// replaces the previous selection (last writer wins).
type PollResponse struct {
	ID              uuid.UUID `json:"id"`
	PollQuestionID  uuid.UUID `json:"poll_question_id"`
	TesterID        uuid.UUID `json:"tester_id"`
	SelectedOptions []string  `json:"selected_options"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
