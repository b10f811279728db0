package pollresponses

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airlog/backend/internal/models"
)

const responseColumns = `id, poll_question_id, tester_id, selected_options, created_at, updated_at`

// Repository handles poll response persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a poll responses repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert stores a tester's answer to a question, replacing any prior answer.
// Last writer wins on the (poll_question_id, tester_id) key.
func (r *Repository) Upsert(ctx context.Context, resp *models.PollResponse) error {
	const query = `INSERT INTO poll_responses (id, poll_question_id, tester_id, selected_options)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (poll_question_id, tester_id)
		DO UPDATE SET selected_options = EXCLUDED.selected_options, updated_at = NOW()
		RETURNING id, created_at, updated_at`
	if resp.SelectedOptions == nil {
		resp.SelectedOptions = []string{}
	}
	return r.pool.QueryRow(ctx, query, resp.PollQuestionID, resp.TesterID, resp.SelectedOptions).
		Scan(&resp.ID, &resp.CreatedAt, &resp.UpdatedAt)
}

// ListByTester returns all responses of one tester.
func (r *Repository) ListByTester(ctx context.Context, testerID uuid.UUID) ([]models.PollResponse, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+responseColumns+` FROM poll_responses WHERE tester_id = $1`, testerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListBySession returns all responses across a session's scenes; when
// testerID is non-nil the result is limited to that tester.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID, testerID *uuid.UUID) ([]models.PollResponse, error) {
	const query = `SELECT pr.id, pr.poll_question_id, pr.tester_id, pr.selected_options, pr.created_at, pr.updated_at
		FROM poll_responses pr
		JOIN poll_questions q ON q.id = pr.poll_question_id
		JOIN scenes sc ON sc.id = q.scene_id
		WHERE sc.session_id = $1 AND ($2::uuid IS NULL OR pr.tester_id = $2)`
	rows, err := r.pool.Query(ctx, query, sessionID, testerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]models.PollResponse, error) {
	list := []models.PollResponse{}
	for rows.Next() {
		var resp models.PollResponse
		if err := rows.Scan(&resp.ID, &resp.PollQuestionID, &resp.TesterID, &resp.SelectedOptions, &resp.CreatedAt, &resp.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, resp)
	}
	return list, rows.Err()
}
