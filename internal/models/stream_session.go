package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a live session.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusLive      SessionStatus = "live"
	StatusEnded     SessionStatus = "ended"
	StatusCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// Open reports whether participants may join, chat or ask questions.
func (s SessionStatus) Open() bool {
	return s == StatusScheduled || s == StatusLive
}

// StreamSession is one scheduled course lecture broadcast live to viewers.
type StreamSession struct {
	ID            uuid.UUID     `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	InstructorID  uuid.UUID     `json:"instructor_id"`
	CourseID      uuid.UUID     `json:"course_id"`
	Capacity      int           `json:"max_viewers"`
	IsPublic      bool          `json:"is_public"`
	IsRecording   bool          `json:"is_recording"`
	Status        SessionStatus `json:"status"`
	ViewerCount   int           `json:"viewer_count"`
	PeakViewers   int           `json:"peak_viewers"`
	StreamKeyHash string        `json:"-"`
	TranscriptKey string        `json:"transcript_key,omitempty"`
	ScheduledAt   *time.Time    `json:"scheduled_at,omitempty"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
	Duration      int64         `json:"duration"` // seconds
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
