package scenes

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airlog/backend/internal/models"
)

// Repository handles scene and poll question persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a scenes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a scene at the end of the session's ordering.
func (r *Repository) Create(ctx context.Context, sc *models.Scene) error {
	const query = `INSERT INTO scenes (id, session_id, name, description, order_index)
		VALUES (gen_random_uuid(), $1, $2, $3,
			COALESCE((SELECT MAX(order_index) + 1 FROM scenes WHERE session_id = $1), 0))
		RETURNING id, order_index, created_at`
	return r.pool.QueryRow(ctx, query, sc.SessionID, sc.Name, sc.Description).
		Scan(&sc.ID, &sc.OrderIndex, &sc.CreatedAt)
}

// GetByID returns a scene by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Scene, error) {
	const query = `SELECT id, session_id, name, description, order_index, created_at
		FROM scenes WHERE id = $1`
	var sc models.Scene
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&sc.ID, &sc.SessionID, &sc.Name, &sc.Description, &sc.OrderIndex, &sc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// Update changes scene name and/or description; nil fields are left unchanged.
// Scoped to the session so a scene id from another session is a no-op.
func (r *Repository) Update(ctx context.Context, sessionID, sceneID uuid.UUID, name, description *string) (*models.Scene, error) {
	const query = `UPDATE scenes SET
		name = COALESCE($3, name),
		description = COALESCE($4, description)
		WHERE id = $2 AND session_id = $1
		RETURNING id, session_id, name, description, order_index, created_at`
	var sc models.Scene
	err := r.pool.QueryRow(ctx, query, sessionID, sceneID, name, description).
		Scan(&sc.ID, &sc.SessionID, &sc.Name, &sc.Description, &sc.OrderIndex, &sc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// Delete removes a scene (and its questions via cascade).
func (r *Repository) Delete(ctx context.Context, sessionID, sceneID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM scenes WHERE id = $2 AND session_id = $1`, sessionID, sceneID)
	return err
}

// CreateQuestion inserts a poll question at the end of the scene's ordering.
func (r *Repository) CreateQuestion(ctx context.Context, q *models.PollQuestion) error {
	const query = `INSERT INTO poll_questions (id, scene_id, question, question_type, options, required, order_index)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5,
			COALESCE((SELECT MAX(order_index) + 1 FROM poll_questions WHERE scene_id = $1), 0))
		RETURNING id, order_index, created_at`
	if q.Options == nil {
		q.Options = []string{}
	}
	return r.pool.QueryRow(ctx, query, q.SceneID, q.Question, q.QuestionType, q.Options, q.Required).
		Scan(&q.ID, &q.OrderIndex, &q.CreatedAt)
}

// GetQuestion returns a poll question by ID.
func (r *Repository) GetQuestion(ctx context.Context, id uuid.UUID) (*models.PollQuestion, error) {
	const query = `SELECT id, scene_id, question, question_type, options, required, order_index, created_at
		FROM poll_questions WHERE id = $1`
	var q models.PollQuestion
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&q.ID, &q.SceneID, &q.Question, &q.QuestionType, &q.Options, &q.Required, &q.OrderIndex, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
