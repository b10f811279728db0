package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airlog/backend/internal/models"
)

// Repository handles notification persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one notification.
func (r *Repository) Insert(ctx context.Context, n *models.Notification) error {
	const query = `INSERT INTO notifications (id, tester_id, session_id, kind, message)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, n.TesterID, n.SessionID, n.Kind, n.Message).
		Scan(&n.ID, &n.CreatedAt)
}

// ListByTester returns a tester's notifications, newest first.
func (r *Repository) ListByTester(ctx context.Context, testerID uuid.UUID) ([]models.Notification, error) {
	const query = `SELECT id, tester_id, session_id, kind, message, created_at, read_at
		FROM notifications WHERE tester_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, testerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.TesterID, &n.SessionID, &n.Kind, &n.Message, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkRead stamps read_at on one notification.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET read_at = NOW() WHERE id = $1 AND read_at IS NULL`, id)
	return err
}
