package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-learn/backend/internal/models"
)

type memStore struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]models.StreamSession
	participants []models.Participant
	chat         []models.ChatEntry
	questions    []models.Question
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[uuid.UUID]models.StreamSession)}
}

func (m *memStore) CreateSession(_ context.Context, s *models.StreamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) SaveSession(_ context.Context, s models.StreamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) LoadSession(_ context.Context, id uuid.UUID) (*models.StreamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) ListOpenSessions(_ context.Context) ([]models.StreamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StreamSession
	for _, s := range m.sessions {
		if s.Status.Open() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) SaveParticipant(_ context.Context, p models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.participants {
		if m.participants[i].ID == p.ID {
			m.participants[i] = p
			return nil
		}
	}
	m.participants = append(m.participants, p)
	return nil
}

func (m *memStore) LoadParticipants(_ context.Context, id uuid.UUID) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Participant
	for _, p := range m.participants {
		if p.SessionID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) SaveChatEntry(_ context.Context, c models.ChatEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.chat {
		if m.chat[i].ID == c.ID {
			m.chat[i] = c
			return nil
		}
	}
	m.chat = append(m.chat, c)
	return nil
}

func (m *memStore) LoadChatEntries(_ context.Context, id uuid.UUID) ([]models.ChatEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatEntry
	for _, c := range m.chat {
		if c.SessionID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) SaveQuestion(_ context.Context, q models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.questions {
		if m.questions[i].ID == q.ID {
			m.questions[i] = q
			return nil
		}
	}
	m.questions = append(m.questions, q)
	return nil
}

func (m *memStore) LoadQuestions(_ context.Context, id uuid.UUID) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Question
	for _, q := range m.questions {
		if q.SessionID == id {
			out = append(out, q)
		}
	}
	return out, nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type archiveLog struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (a *archiveLog) EnqueueArchive(_ context.Context, id uuid.UUID) error {
	a.mu.Lock()
	a.ids = append(a.ids, id)
	a.mu.Unlock()
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// gatedStore holds participant writes until gate is closed.
type gatedStore struct {
	*memStore
	gate chan struct{}
}

func (g *gatedStore) SaveParticipant(ctx context.Context, p models.Participant) error {
	select {
	case <-g.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.memStore.SaveParticipant(ctx, p)
}
