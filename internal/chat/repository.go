package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-learn/backend/internal/models"
)

// Repository handles live_chat_entries persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveChatEntry inserts an entry. Entries are immutable except for moderation visibility.
func (r *Repository) SaveChatEntry(ctx context.Context, e models.ChatEntry) error {
	const query = `INSERT INTO live_chat_entries (id, session_id, user_id, message, message_type, is_visible, seq, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET is_visible = EXCLUDED.is_visible`
	_, err := r.pool.Exec(ctx, query, e.ID, e.SessionID, e.UserID, e.Text, e.Kind, e.Visible, e.Seq, e.CreatedAt)
	return err
}

// LoadChatEntries returns every entry of a session, hidden ones included, by sequence number.
func (r *Repository) LoadChatEntries(ctx context.Context, sessionID uuid.UUID) ([]models.ChatEntry, error) {
	const query = `SELECT id, session_id, user_id, message, message_type, is_visible, seq, created_at
		FROM live_chat_entries WHERE session_id = $1 ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ChatEntry
	for rows.Next() {
		var e models.ChatEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.Text, &e.Kind, &e.Visible, &e.Seq, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
