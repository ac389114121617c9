package sessionlog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-learn/backend/internal/models"
)

// Repository handles live_participants, one row per join of a user to a live session.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveParticipant inserts a participation or updates its leave time, watch time and permissions.
func (r *Repository) SaveParticipant(ctx context.Context, p models.Participant) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO live_participants (id, session_id, user_id, is_moderator, can_chat, can_ask_questions, joined_at, left_at, watch_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET can_chat = EXCLUDED.can_chat, can_ask_questions = EXCLUDED.can_ask_questions,
		 left_at = EXCLUDED.left_at, watch_seconds = EXCLUDED.watch_seconds`,
		p.ID, p.SessionID, p.UserID, p.IsModerator, p.CanChat, p.CanAskQuestions, p.JoinedAt, p.LeftAt, p.WatchSeconds)
	return err
}

// LoadParticipants returns every participation of a session in join order.
func (r *Repository) LoadParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, user_id, is_moderator, can_chat, can_ask_questions, joined_at, left_at, watch_seconds
		 FROM live_participants WHERE session_id = $1 ORDER BY joined_at ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.IsModerator, &p.CanChat, &p.CanAskQuestions, &p.JoinedAt, &p.LeftAt, &p.WatchSeconds); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
