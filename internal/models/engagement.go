package models

import (
	"time"

	"github.com/google/uuid"
)

// EngagementSnapshot holds point-in-time engagement metrics for a live session.
type EngagementSnapshot struct {
	SessionID          uuid.UUID  `json:"stream_id"`
	CurrentViewers     int        `json:"current_viewers"`
	PeakViewers        int        `json:"peak_viewers"`
	TotalUniqueViewers int        `json:"total_unique_viewers"`
	ChatMessagesCount  int        `json:"chat_messages_count"`
	QuestionsCount     int        `json:"questions_count"`
	AverageWatchTime   float64    `json:"average_watch_time"` // minutes
	EngagementScore    float64    `json:"engagement_score"`
	IsLive             bool       `json:"is_live"`
	Duration           int64      `json:"duration"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
}
