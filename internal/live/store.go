package live

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-learn/backend/internal/models"
)

// SessionStore persists session records.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.StreamSession) error
	SaveSession(ctx context.Context, s models.StreamSession) error
	// LoadSession returns (nil, nil) when the session does not exist.
	LoadSession(ctx context.Context, id uuid.UUID) (*models.StreamSession, error)
	ListOpenSessions(ctx context.Context) ([]models.StreamSession, error)
}

// ParticipantStore persists participation records.
type ParticipantStore interface {
	SaveParticipant(ctx context.Context, p models.Participant) error
	LoadParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error)
}

// ChatStore persists chat entries.
type ChatStore interface {
	SaveChatEntry(ctx context.Context, e models.ChatEntry) error
	LoadChatEntries(ctx context.Context, sessionID uuid.UUID) ([]models.ChatEntry, error)
}

// QuestionStore persists questions.
type QuestionStore interface {
	SaveQuestion(ctx context.Context, q models.Question) error
	LoadQuestions(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error)
}

// Store is the durable record the engine writes behind and rehydrates rooms from.
type Store interface {
	SessionStore
	ParticipantStore
	ChatStore
	QuestionStore
}

type compositeStore struct {
	SessionStore
	ParticipantStore
	ChatStore
	QuestionStore
}

// NewStore composes per-table repositories into a Store.
func NewStore(sessions SessionStore, participants ParticipantStore, chat ChatStore, questions QuestionStore) Store {
	return compositeStore{
		SessionStore:     sessions,
		ParticipantStore: participants,
		ChatStore:        chat,
		QuestionStore:    questions,
	}
}

// Archiver schedules the history export of a session that reached a terminal state.
type Archiver interface {
	EnqueueArchive(ctx context.Context, sessionID uuid.UUID) error
}
