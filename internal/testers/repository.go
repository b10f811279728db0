package testers

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airlog/backend/internal/models"
)

const testerColumns = `id, session_id, first_name, last_name, email, invite_token, reported_issues, created_at`

// Repository handles tester persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a testers repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a tester with its invite token.
func (r *Repository) Create(ctx context.Context, t *models.Tester) error {
	const query = `INSERT INTO testers (id, session_id, first_name, last_name, email, invite_token)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, reported_issues, created_at`
	return r.pool.QueryRow(ctx, query, t.SessionID, t.FirstName, t.LastName, t.Email, t.InviteToken).
		Scan(&t.ID, &t.ReportedIssues, &t.CreatedAt)
}

// GetByID returns a tester by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tester, error) {
	const query = `SELECT ` + testerColumns + ` FROM testers WHERE id = $1`
	var t models.Tester
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&t.ID, &t.SessionID, &t.FirstName, &t.LastName, &t.Email, &t.InviteToken, &t.ReportedIssues, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByInviteToken resolves a join token to its tester.
func (r *Repository) GetByInviteToken(ctx context.Context, token string) (*models.Tester, error) {
	const query = `SELECT ` + testerColumns + ` FROM testers WHERE invite_token = $1`
	var t models.Tester
	err := r.pool.QueryRow(ctx, query, token).
		Scan(&t.ID, &t.SessionID, &t.FirstName, &t.LastName, &t.Email, &t.InviteToken, &t.ReportedIssues, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListBySession returns all testers of a session.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Tester, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+testerColumns+` FROM testers WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Tester
	for rows.Next() {
		var t models.Tester
		if err := rows.Scan(&t.ID, &t.SessionID, &t.FirstName, &t.LastName, &t.Email, &t.InviteToken, &t.ReportedIssues, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// UpdateReportedIssues replaces the tester's full reported-issue set.
// The device always sends the whole set, so replaying the same PATCH is a no-op.
func (r *Repository) UpdateReportedIssues(ctx context.Context, sessionID, testerID uuid.UUID, issues []string) (*models.Tester, error) {
	const query = `UPDATE testers SET reported_issues = $3
		WHERE id = $2 AND session_id = $1
		RETURNING ` + testerColumns
	if issues == nil {
		issues = []string{}
	}
	var t models.Tester
	err := r.pool.QueryRow(ctx, query, sessionID, testerID, issues).
		Scan(&t.ID, &t.SessionID, &t.FirstName, &t.LastName, &t.Email, &t.InviteToken, &t.ReportedIssues, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateProfile updates name and email; nil name fields are left unchanged,
// while a provided empty email clears the column.
func (r *Repository) UpdateProfile(ctx context.Context, sessionID, testerID uuid.UUID, firstName, lastName, email *string) (*models.Tester, error) {
	const query = `UPDATE testers SET
		first_name = COALESCE($3, first_name),
		last_name = COALESCE($4, last_name),
		email = CASE WHEN $5::bool THEN NULLIF(TRIM($6), '') ELSE email END
		WHERE id = $2 AND session_id = $1
		RETURNING ` + testerColumns
	emailSet := email != nil
	emailVal := ""
	if email != nil {
		emailVal = *email
	}
	var t models.Tester
	err := r.pool.QueryRow(ctx, query, sessionID, testerID, firstName, lastName, emailSet, emailVal).
		Scan(&t.ID, &t.SessionID, &t.FirstName, &t.LastName, &t.Email, &t.InviteToken, &t.ReportedIssues, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes a tester.
func (r *Repository) Delete(ctx context.Context, sessionID, testerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM testers WHERE id = $2 AND session_id = $1`, sessionID, testerID)
	return err
}
