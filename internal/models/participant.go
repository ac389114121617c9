package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is one user's attendance of a live session, from join to leave.
// Records are kept after leave for analytics.
type Participant struct {
	ID              uuid.UUID  `json:"id"`
	SessionID       uuid.UUID  `json:"stream_id"`
	UserID          uuid.UUID  `json:"user_id"`
	IsModerator     bool       `json:"is_moderator"`
	CanChat         bool       `json:"can_chat"`
	CanAskQuestions bool       `json:"can_ask_questions"`
	JoinedAt        time.Time  `json:"joined_at"`
	LeftAt          *time.Time `json:"left_at,omitempty"`
	WatchSeconds    int64      `json:"duration_watched"`
}

// Active reports whether the participant has not left yet.
func (p *Participant) Active() bool {
	return p.LeftAt == nil
}

// Watched returns the watched duration, using now for a participant still present.
func (p *Participant) Watched(now time.Time) time.Duration {
	if p.LeftAt != nil {
		return time.Duration(p.WatchSeconds) * time.Second
	}
	if d := now.Sub(p.JoinedAt); d > 0 {
		return d
	}
	return 0
}
