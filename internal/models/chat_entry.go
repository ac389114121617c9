package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatKind classifies a chat entry.
type ChatKind string

const (
	ChatText         ChatKind = "text"
	ChatSystem       ChatKind = "system"
	ChatAnnouncement ChatKind = "announcement"
)

// ChatEntry is an immutable chat message. Seq totally orders entries within a session.
type ChatEntry struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"stream_id"`
	UserID    uuid.UUID `json:"user_id"`
	Text      string    `json:"message"`
	Kind      ChatKind  `json:"message_type"`
	Visible   bool      `json:"is_visible"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}
