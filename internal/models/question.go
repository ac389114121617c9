package models

import (
	"time"

	"github.com/google/uuid"
)

// Question represents an audience question in a live session.
type Question struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  uuid.UUID  `json:"stream_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Text       string     `json:"question"`
	Upvotes    int        `json:"upvotes"`
	Answered   bool       `json:"is_answered"`
	Answer     string     `json:"answer,omitempty"`
	AnsweredBy *uuid.UUID `json:"answered_by,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	Visible    bool       `json:"is_visible"`
	Arrival    int64      `json:"-"` // per-session arrival order, tie-breaker among equal creation times
	CreatedAt  time.Time  `json:"created_at"`
}
