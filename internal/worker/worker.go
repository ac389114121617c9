package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-learn/backend/internal/live"
	"github.com/aura-learn/backend/internal/models"
	"github.com/aura-learn/backend/pkg/queue"
	"github.com/aura-learn/backend/pkg/storage"
)

// Records is the stored history of live sessions.
type Records interface {
	LoadSession(ctx context.Context, id uuid.UUID) (*models.StreamSession, error)
	LoadParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error)
	LoadChatEntries(ctx context.Context, sessionID uuid.UUID) ([]models.ChatEntry, error)
	LoadQuestions(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error)
}

// KeyRecorder records where a session's transcript was stored.
type KeyRecorder interface {
	SetTranscriptKey(ctx context.Context, id uuid.UUID, key string) error
}

// Uploader stores transcript objects.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) error
	TranscriptsBucket() string
}

// Jobs is the job queue the archiver consumes.
type Jobs interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Transcript is the archived history of one session.
type Transcript struct {
	Session      models.StreamSession      `json:"session"`
	Participants []models.Participant      `json:"participants"`
	Chat         []models.ChatEntry        `json:"chat"`
	Questions    []models.Question         `json:"questions"`
	Stats        models.EngagementSnapshot `json:"stats"`
	ArchivedAt   time.Time                 `json:"archived_at"`
}

// TranscriptArchiver processes transcript archive jobs: load the session's history, upload it to S3
// as JSON and record the object key.
type TranscriptArchiver struct {
	records Records
	keys    KeyRecorder
	store   Uploader
	queue   Jobs
	logger  *zap.Logger
	backoff time.Duration
}

// NewTranscriptArchiver creates a transcript archive processor.
func NewTranscriptArchiver(records Records, keys KeyRecorder, store Uploader, q Jobs, logger *zap.Logger) *TranscriptArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptArchiver{records: records, keys: keys, store: store, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one transcript archive job.
func (p *TranscriptArchiver) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeTranscriptArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.TranscriptArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	s, err := p.records.LoadSession(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return fmt.Errorf("session not found: %s", payload.SessionID)
	}
	if !s.Status.Terminal() {
		return fmt.Errorf("session %s is %s, not finished", s.ID, s.Status)
	}
	if s.TranscriptKey != "" {
		p.logger.Info("transcript already archived", zap.String("session_id", s.ID.String()))
		return nil
	}

	t := Transcript{Session: *s, ArchivedAt: time.Now().UTC()}
	if t.Participants, err = p.records.LoadParticipants(ctx, s.ID); err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	if t.Chat, err = p.records.LoadChatEntries(ctx, s.ID); err != nil {
		return fmt.Errorf("load chat: %w", err)
	}
	if t.Questions, err = p.records.LoadQuestions(ctx, s.ID); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	end := t.ArchivedAt
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	t.Stats = live.Summarize(*s, t.Participants, t.Chat, t.Questions, live.InteractionScore, end)

	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	key := storage.TranscriptKey(s.ID.String())
	if err := p.store.Upload(ctx, p.store.TranscriptsBucket(), key, "application/json", bytes.NewReader(body)); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.keys.SetTranscriptKey(ctx, s.ID, key); err != nil {
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("transcript archived",
		zap.String("session_id", s.ID.String()),
		zap.String("s3_key", key),
		zap.Int("chat", len(t.Chat)),
		zap.Int("questions", len(t.Questions)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *TranscriptArchiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("transcript worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, p.backoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			sleep(ctx, p.backoff)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
