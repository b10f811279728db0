package notes

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airlog/backend/internal/models"
)

const noteColumns = `id, session_id, scene_id, tester_id, content, audio_url, s3_key, created_at, updated_at`

// Repository handles note persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a note.
func (r *Repository) Create(ctx context.Context, n *models.Note) error {
	const query = `INSERT INTO notes (id, session_id, scene_id, tester_id, content, audio_url, s3_key)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, n.SessionID, n.SceneID, n.TesterID, n.Content, n.AudioURL, n.S3Key).
		Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

// GetByID returns a note by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	const query = `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`
	var n models.Note
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&n.ID, &n.SessionID, &n.SceneID, &n.TesterID, &n.Content, &n.AudioURL, &n.S3Key, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListBySession returns a session's notes oldest first; when testerID is
// non-nil the result is limited to that tester.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID, testerID *uuid.UUID) ([]models.Note, error) {
	const query = `SELECT ` + noteColumns + ` FROM notes
		WHERE session_id = $1 AND ($2::uuid IS NULL OR tester_id = $2)
		ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, sessionID, testerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.SessionID, &n.SceneID, &n.TesterID, &n.Content, &n.AudioURL, &n.S3Key, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// Update changes content and/or the audio attachment; nil fields are left
// unchanged.
func (r *Repository) Update(ctx context.Context, sessionID, noteID uuid.UUID, content, audioURL, s3Key *string) (*models.Note, error) {
	const query = `UPDATE notes SET
		content = COALESCE($3, content),
		audio_url = COALESCE($4, audio_url),
		s3_key = COALESCE($5, s3_key),
		updated_at = NOW()
		WHERE id = $2 AND session_id = $1
		RETURNING ` + noteColumns
	var n models.Note
	err := r.pool.QueryRow(ctx, query, sessionID, noteID, content, audioURL, s3Key).
		Scan(&n.ID, &n.SessionID, &n.SceneID, &n.TesterID, &n.Content, &n.AudioURL, &n.S3Key, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Delete removes a note.
func (r *Repository) Delete(ctx context.Context, sessionID, noteID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $2 AND session_id = $1`, sessionID, noteID)
	return err
}
