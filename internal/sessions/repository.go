package sessions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airlog/backend/internal/models"
)

const sessionColumns = `id, name, description, status, issue_options, started_at, ended_at,
	first_ended_at, last_restarted_at, restart_count, share_token, created_at, updated_at`

// Repository handles session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Status, &s.IssueOptions,
		&s.StartedAt, &s.EndedAt, &s.FirstEndedAt, &s.LastRestartedAt,
		&s.RestartCount, &s.ShareToken, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new session in draft status.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	const query = `INSERT INTO sessions (id, name, description, issue_options)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, status, restart_count, created_at, updated_at`
	if s.IssueOptions == nil {
		s.IssueOptions = []string{}
	}
	return r.pool.QueryRow(ctx, query, s.Name, s.Description, s.IssueOptions).
		Scan(&s.ID, &s.Status, &s.RestartCount, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID returns a session by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

// GetWithScenes returns a session with its scenes and poll questions,
// scenes ordered by order_index and questions likewise.
func (r *Repository) GetWithScenes(ctx context.Context, id uuid.UUID) (*models.SessionWithScenes, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, session_id, name, description, order_index, created_at
		FROM scenes WHERE session_id = $1 ORDER BY order_index ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scenes := []models.Scene{}
	byID := make(map[uuid.UUID]int)
	for rows.Next() {
		var sc models.Scene
		if err := rows.Scan(&sc.ID, &sc.SessionID, &sc.Name, &sc.Description, &sc.OrderIndex, &sc.CreatedAt); err != nil {
			return nil, err
		}
		byID[sc.ID] = len(scenes)
		scenes = append(scenes, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	qrows, err := r.pool.Query(ctx, `SELECT q.id, q.scene_id, q.question, q.question_type, q.options, q.required, q.order_index, q.created_at
		FROM poll_questions q JOIN scenes sc ON sc.id = q.scene_id
		WHERE sc.session_id = $1 ORDER BY q.order_index ASC`, id)
	if err != nil {
		return nil, err
	}
	defer qrows.Close()
	for qrows.Next() {
		var q models.PollQuestion
		if err := qrows.Scan(&q.ID, &q.SceneID, &q.Question, &q.QuestionType, &q.Options, &q.Required, &q.OrderIndex, &q.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := byID[q.SceneID]; ok {
			scenes[i].PollQuestions = append(scenes[i].PollQuestions, q)
		}
	}
	if err := qrows.Err(); err != nil {
		return nil, err
	}

	return &models.SessionWithScenes{Session: *s, Scenes: scenes}, nil
}

// List returns all sessions, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// Start flips a session to active and stamps started_at.
func (r *Repository) Start(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const query = `UPDATE sessions SET status = 'active', started_at = NOW(), updated_at = NOW()
		WHERE id = $1 RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

// End flips a session to completed. first_ended_at is set only the first
// time the session ends; later end actions leave it untouched.
func (r *Repository) End(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const query = `UPDATE sessions SET status = 'completed', ended_at = NOW(),
		first_ended_at = COALESCE(first_ended_at, NOW()), updated_at = NOW()
		WHERE id = $1 RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

// Restart re-activates a completed session and tracks the restart.
func (r *Repository) Restart(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const query = `UPDATE sessions SET status = 'active', ended_at = NULL,
		last_restarted_at = NOW(), restart_count = restart_count + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'completed' RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

// SetShareToken sets or clears the public report share token.
func (r *Repository) SetShareToken(ctx context.Context, id uuid.UUID, token *string) (*models.Session, error) {
	const query = `UPDATE sessions SET share_token = $2, updated_at = NOW()
		WHERE id = $1 RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, query, id, token))
}

// UpdateMeta updates name, description and issue vocabulary; nil fields are
// left unchanged.
func (r *Repository) UpdateMeta(ctx context.Context, id uuid.UUID, name, description *string, issueOptions []string) (*models.Session, error) {
	const query = `UPDATE sessions SET
		name = COALESCE($2, name),
		description = COALESCE($3, description),
		issue_options = COALESCE($4, issue_options),
		updated_at = NOW()
		WHERE id = $1 RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, query, id, name, description, issueOptions))
}

// Delete removes a session and everything under it (cascade).
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}
