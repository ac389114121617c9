package streams

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-learn/backend/internal/models"
)

const sessionColumns = `id, title, description, instructor_id, course_id, max_viewers, is_public, is_recording,
	status, viewer_count, peak_viewers, stream_key_hash, transcript_key, scheduled_at, started_at, ended_at,
	duration, created_at, updated_at`

// Repository handles live_sessions persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a live sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSession(row pgx.Row) (*models.StreamSession, error) {
	var s models.StreamSession
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.InstructorID, &s.CourseID, &s.Capacity, &s.IsPublic, &s.IsRecording,
		&s.Status, &s.ViewerCount, &s.PeakViewers, &s.StreamKeyHash, &s.TranscriptKey, &s.ScheduledAt, &s.StartedAt, &s.EndedAt,
		&s.Duration, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSession inserts a new session.
func (r *Repository) CreateSession(ctx context.Context, s *models.StreamSession) error {
	const q = `INSERT INTO live_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.pool.Exec(ctx, q, s.ID, s.Title, s.Description, s.InstructorID, s.CourseID, s.Capacity, s.IsPublic, s.IsRecording,
		s.Status, s.ViewerCount, s.PeakViewers, s.StreamKeyHash, s.TranscriptKey, s.ScheduledAt, s.StartedAt, s.EndedAt,
		s.Duration, s.CreatedAt, s.UpdatedAt)
	return err
}

// SaveSession writes the mutable state of a session. transcript_key is owned by the archive worker
// and is never overwritten here.
func (r *Repository) SaveSession(ctx context.Context, s models.StreamSession) error {
	const q = `UPDATE live_sessions SET title = $2, description = $3, max_viewers = $4, is_public = $5, is_recording = $6,
		status = $7, viewer_count = $8, peak_viewers = GREATEST(peak_viewers, $9), stream_key_hash = $10,
		scheduled_at = $11, started_at = $12, ended_at = $13, duration = $14, updated_at = $15
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, s.ID, s.Title, s.Description, s.Capacity, s.IsPublic, s.IsRecording,
		s.Status, s.ViewerCount, s.PeakViewers, s.StreamKeyHash,
		s.ScheduledAt, s.StartedAt, s.EndedAt, s.Duration, s.UpdatedAt)
	return err
}

// LoadSession returns the session or nil if it does not exist.
func (r *Repository) LoadSession(ctx context.Context, id uuid.UUID) (*models.StreamSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM live_sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListOpenSessions returns scheduled and live sessions, newest first.
func (r *Repository) ListOpenSessions(ctx context.Context) ([]models.StreamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM live_sessions WHERE status IN ('scheduled', 'live') ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.StreamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// SetTranscriptKey records the object key of an uploaded transcript.
func (r *Repository) SetTranscriptKey(ctx context.Context, id uuid.UUID, key string) error {
	const q = `UPDATE live_sessions SET transcript_key = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, key, id)
	return err
}

// TranscriptKey returns the transcript object key, or "" if none was uploaded yet.
func (r *Repository) TranscriptKey(ctx context.Context, id uuid.UUID) (string, error) {
	var key string
	err := r.pool.QueryRow(ctx, `SELECT transcript_key FROM live_sessions WHERE id = $1`, id).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return key, nil
}
