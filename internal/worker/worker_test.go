package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aura-learn/backend/internal/models"
	"github.com/aura-learn/backend/pkg/queue"
	"github.com/aura-learn/backend/pkg/storage"
)

type fakeRecords struct {
	session      *models.StreamSession
	participants []models.Participant
	chat         []models.ChatEntry
	questions    []models.Question
	keys         map[uuid.UUID]string
}

func (f *fakeRecords) LoadSession(_ context.Context, id uuid.UUID) (*models.StreamSession, error) {
	if f.session == nil || f.session.ID != id {
		return nil, nil
	}
	s := *f.session
	return &s, nil
}

func (f *fakeRecords) LoadParticipants(context.Context, uuid.UUID) ([]models.Participant, error) {
	return f.participants, nil
}

func (f *fakeRecords) LoadChatEntries(context.Context, uuid.UUID) ([]models.ChatEntry, error) {
	return f.chat, nil
}

func (f *fakeRecords) LoadQuestions(context.Context, uuid.UUID) ([]models.Question, error) {
	return f.questions, nil
}

func (f *fakeRecords) SetTranscriptKey(_ context.Context, id uuid.UUID, key string) error {
	if f.keys == nil {
		f.keys = make(map[uuid.UUID]string)
	}
	f.keys[id] = key
	return nil
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    error
}

func (b *fakeBucket) Upload(_ context.Context, bucket, key, _ string, body io.Reader) error {
	if b.fail != nil {
		return b.fail
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = make(map[string][]byte)
	}
	b.objects[bucket+"/"+key] = raw
	return nil
}

func (b *fakeBucket) TranscriptsBucket() string { return "transcripts" }

type fakeJobs struct {
	mu      sync.Mutex
	jobs    chan *queue.Job
	retried []*queue.Job
}

func (j *fakeJobs) Dequeue(ctx context.Context) (*queue.Job, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case job := <-j.jobs:
		return job, queue.QueueTranscripts, nil
	}
}

func (j *fakeJobs) Retry(_ context.Context, job *queue.Job) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.retried = append(j.retried, job)
	return nil
}

func (j *fakeJobs) retries() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.retried)
}

func endedSession() *models.StreamSession {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	return &models.StreamSession{
		ID:        uuid.New(),
		Title:     "Graph algorithms",
		Status:    models.StatusEnded,
		StartedAt: &start,
		EndedAt:   &end,
		Duration:  1800,
	}
}

func archiveJob(t *testing.T, id uuid.UUID) *queue.Job {
	job, err := queue.NewJob(queue.JobTypeTranscriptArchive, queue.TranscriptArchivePayload{SessionID: id})
	require.NoError(t, err)
	return job
}

func TestProcess_UploadsTranscript(t *testing.T) {
	req := require.New(t)

	// Given an ended session with one viewer, two chat entries and a question
	s := endedSession()
	viewer := uuid.New()
	left := s.StartedAt.Add(10 * time.Minute)
	records := &fakeRecords{
		session: s,
		participants: []models.Participant{{
			ID: uuid.New(), SessionID: s.ID, UserID: viewer,
			JoinedAt: *s.StartedAt, LeftAt: &left, WatchSeconds: 600,
		}},
		chat: []models.ChatEntry{
			{ID: uuid.New(), SessionID: s.ID, UserID: viewer, Text: "hi", Kind: models.ChatText, Visible: true, Seq: 1},
			{ID: uuid.New(), SessionID: s.ID, UserID: viewer, Text: "thanks", Kind: models.ChatText, Visible: true, Seq: 2},
		},
		questions: []models.Question{
			{ID: uuid.New(), SessionID: s.ID, UserID: viewer, Text: "why BFS?", Visible: true},
		},
	}
	bucket := &fakeBucket{}
	p := NewTranscriptArchiver(records, records, bucket, &fakeJobs{}, nil)

	// When the archive job is processed
	err := p.Process(context.Background(), archiveJob(t, s.ID))

	// Then the transcript is stored under the session's key and recorded
	req.NoError(err)
	key := storage.TranscriptKey(s.ID.String())
	req.Equal(key, records.keys[s.ID])
	raw, ok := bucket.objects["transcripts/"+key]
	req.True(ok)

	var got Transcript
	req.NoError(json.Unmarshal(raw, &got))
	req.Equal(s.ID, got.Session.ID)
	req.Len(got.Chat, 2)
	req.Len(got.Questions, 1)
	req.Equal(1, got.Stats.TotalUniqueViewers)
	req.Equal(2, got.Stats.ChatMessagesCount)
	req.Equal(10.0, got.Stats.AverageWatchTime)
	req.Equal(40.0, got.Stats.EngagementScore)
	req.Equal(int64(1800), got.Stats.Duration)
}

func TestProcess_SkipsArchivedSession(t *testing.T) {
	req := require.New(t)

	// Given a session whose transcript is already stored
	s := endedSession()
	s.TranscriptKey = "transcripts/old.json"
	bucket := &fakeBucket{}
	records := &fakeRecords{session: s}
	p := NewTranscriptArchiver(records, records, bucket, &fakeJobs{}, nil)

	// When the job is processed again
	err := p.Process(context.Background(), archiveJob(t, s.ID))

	// Then nothing is uploaded
	req.NoError(err)
	req.Empty(bucket.objects)
}

func TestProcess_Rejects(t *testing.T) {
	live := endedSession()
	live.Status = models.StatusLive

	tests := []struct {
		name    string
		session *models.StreamSession
		job     func(t *testing.T, id uuid.UUID) *queue.Job
	}{
		{"unknown session", nil, archiveJob},
		{"session still live", live, archiveJob},
		{"unknown job type", endedSession(), func(t *testing.T, id uuid.UUID) *queue.Job {
			job := archiveJob(t, id)
			job.Type = "recording_upload"
			return job
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			if tt.session != nil {
				id = tt.session.ID
			}
			records := &fakeRecords{session: tt.session}
			p := NewTranscriptArchiver(records, records, &fakeBucket{}, &fakeJobs{}, nil)
			require.Error(t, p.Process(context.Background(), tt.job(t, id)))
		})
	}
}

func TestRun_RetriesFailedJob(t *testing.T) {
	req := require.New(t)

	// Given a bucket that rejects uploads
	s := endedSession()
	jobs := &fakeJobs{jobs: make(chan *queue.Job, 1)}
	records := &fakeRecords{session: s}
	p := NewTranscriptArchiver(records, records, &fakeBucket{fail: errors.New("access denied")}, jobs, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// When a job is queued
	jobs.jobs <- archiveJob(t, s.ID)

	// Then it is handed back to the queue for retry
	req.Eventually(func() bool { return jobs.retries() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
