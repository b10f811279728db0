package models

import (
	"time"

	"github.com/google/uuid"
)

// Note is a piece of tester feedback against a scene. Voice notes carry an
// audio attachment in S3 next to the transcribed or typed content.
type Note struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	SceneID   uuid.UUID `json:"scene_id"`
	TesterID  uuid.UUID `json:"tester_id"`
	Content   string    `json:"content"`
	AudioURL  *string   `json:"audio_url,omitempty"`
	S3Key     *string   `json:"s3_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
