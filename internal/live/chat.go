package live

import (
	"time"

	"github.com/google/uuid"

	"github.com/aura-learn/backend/internal/models"
)

func (r *Room) post(user uuid.UUID, text string, kind models.ChatKind, now time.Time) (models.ChatEntry, error) {
	if !r.session.Status.Open() {
		return models.ChatEntry{}, errorf(CodeInvalidState, "stream is not active")
	}
	p, ok := r.participants[user]
	if !ok || !p.Active() {
		return models.ChatEntry{}, errorf(CodeNotParticipating, "must join stream before sending messages")
	}
	if !p.CanChat {
		return models.ChatEntry{}, errorf(CodePermissionDenied, "chat is disabled for this user")
	}
	r.lastSeq++
	e := models.ChatEntry{
		ID:        uuid.New(),
		SessionID: r.session.ID,
		UserID:    user,
		Text:      text,
		Kind:      kind,
		Visible:   true,
		Seq:       r.lastSeq,
		CreatedAt: now,
	}
	r.chat = append(r.chat, e)
	return e, nil
}

// messages returns visible entries with seq > after, ascending, at most limit.
func (r *Room) messages(after int64, limit int) []models.ChatEntry {
	out := make([]models.ChatEntry, 0, min(limit, len(r.chat)))
	for _, e := range r.chat {
		if e.Seq <= after || !e.Visible {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (r *Room) setMessageVisibility(actor uuid.UUID, seq int64, visible bool) (models.ChatEntry, error) {
	if !r.isOwner(actor) {
		return models.ChatEntry{}, errorf(CodeForbidden, "only the instructor can moderate chat")
	}
	for i := range r.chat {
		if r.chat[i].Seq == seq {
			r.chat[i].Visible = visible
			return r.chat[i], nil
		}
	}
	return models.ChatEntry{}, errorf(CodeNotFound, "chat message not found")
}
