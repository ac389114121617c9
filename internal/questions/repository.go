package questions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-learn/backend/internal/models"
)

// Repository handles question persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveQuestion inserts a question or updates its votes, answer and visibility.
func (r *Repository) SaveQuestion(ctx context.Context, q models.Question) error {
	const query = `INSERT INTO live_questions (id, session_id, user_id, question, upvotes, is_answered, answer, answered_by, answered_at, is_visible, created_at, arrival)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET upvotes = GREATEST(live_questions.upvotes, EXCLUDED.upvotes),
		is_answered = EXCLUDED.is_answered, answer = EXCLUDED.answer, answered_by = EXCLUDED.answered_by,
		answered_at = EXCLUDED.answered_at, is_visible = EXCLUDED.is_visible`
	_, err := r.pool.Exec(ctx, query, q.ID, q.SessionID, q.UserID, q.Text, q.Upvotes, q.Answered, q.Answer, q.AnsweredBy, q.AnsweredAt, q.Visible, q.CreatedAt, q.Arrival)
	return err
}

// LoadQuestions returns every question of a session in arrival order.
func (r *Repository) LoadQuestions(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	const query = `SELECT id, session_id, user_id, question, upvotes, is_answered, answer, answered_by, answered_at, is_visible, created_at, arrival
		FROM live_questions WHERE session_id = $1 ORDER BY arrival ASC, created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.SessionID, &q.UserID, &q.Text, &q.Upvotes, &q.Answered, &q.Answer, &q.AnsweredBy, &q.AnsweredAt, &q.Visible, &q.CreatedAt, &q.Arrival); err != nil {
			return nil, err
		}
		list = append(list, q)
	}
	return list, rows.Err()
}
