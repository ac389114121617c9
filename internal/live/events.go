package live

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aura-learn/backend/internal/models"
)

// EventKind enumerates the events a room emits.
type EventKind int

const (
	EventJoined EventKind = iota + 1
	EventLeft
	EventChatPosted
	EventQuestionAsked
	EventQuestionUpvoted
	EventQuestionAnswered
	EventViewerCount
	EventStatus
)

func (k EventKind) String() string {
	switch k {
	case EventJoined:
		return "joined"
	case EventLeft:
		return "left"
	case EventChatPosted:
		return "chat_posted"
	case EventQuestionAsked:
		return "question_asked"
	case EventQuestionUpvoted:
		return "question_upvoted"
	case EventQuestionAnswered:
		return "question_answered"
	case EventViewerCount:
		return "viewer_count"
	case EventStatus:
		return "status"
	}
	return "unknown"
}

// Event is one room event. Origin is the connection id that caused it, if any.
// A terminal EventStatus is the last event a session emits.
type Event struct {
	SessionID uuid.UUID
	Kind      EventKind
	Origin    string
	Data      any
}

// Broadcaster delivers room events to subscribers. Publish is called while the room lock is
// held, so it must not block and must not call back into the Engine.
type Broadcaster interface {
	Publish(ev Event)
}

// PresenceEvent is the payload of EventJoined and EventLeft.
type PresenceEvent struct {
	SessionID   uuid.UUID `json:"stream_id"`
	UserID      uuid.UUID `json:"user_id"`
	IsModerator bool      `json:"is_moderator"`
	ViewerCount int       `json:"viewer_count"`
}

// UpvoteEvent is the payload of EventQuestionUpvoted.
type UpvoteEvent struct {
	QuestionID uuid.UUID `json:"question_id"`
	Upvotes    int       `json:"upvotes"`
}

// AnswerEvent is the payload of EventQuestionAnswered.
type AnswerEvent struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
	AnsweredBy uuid.UUID `json:"answered_by"`
	AnsweredAt time.Time `json:"answered_at"`
}

// ViewerCountEvent is the payload of EventViewerCount.
type ViewerCountEvent struct {
	SessionID uuid.UUID `json:"stream_id"`
	Count     int       `json:"count"`
}

// StatusEvent is the payload of EventStatus.
type StatusEvent struct {
	SessionID uuid.UUID            `json:"stream_id"`
	Status    models.SessionStatus `json:"status"`
}

type originKey struct{}

// WithOrigin tags ctx with the connection id issuing an operation.
func WithOrigin(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, originKey{}, connID)
}

func originFrom(ctx context.Context) string {
	s, _ := ctx.Value(originKey{}).(string)
	return s
}
