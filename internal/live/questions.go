package live

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/aura-learn/backend/internal/models"
)

func (r *Room) ask(user uuid.UUID, text string, now time.Time) (models.Question, error) {
	if !r.session.Status.Open() {
		return models.Question{}, errorf(CodeInvalidState, "stream is not active")
	}
	p, ok := r.participants[user]
	if !ok || !p.Active() {
		return models.Question{}, errorf(CodeNotParticipating, "must join stream before asking questions")
	}
	if !p.CanAskQuestions {
		return models.Question{}, errorf(CodePermissionDenied, "questions are disabled for this user")
	}
	r.arrivals++
	q := &models.Question{
		ID:        uuid.New(),
		SessionID: r.session.ID,
		UserID:    user,
		Text:      text,
		Visible:   true,
		Arrival:   r.arrivals,
		CreatedAt: now,
	}
	r.questions = append(r.questions, q)
	r.questionIdx[q.ID] = q
	return *q, nil
}

func (r *Room) question(id uuid.UUID) (*models.Question, error) {
	q, ok := r.questionIdx[id]
	if !ok {
		return nil, errorf(CodeNotFound, "question not found")
	}
	return q, nil
}

// upvote adds exactly one vote. Votes are not deduplicated per user.
func (r *Room) upvote(id uuid.UUID) (models.Question, error) {
	q, err := r.question(id)
	if err != nil {
		return models.Question{}, err
	}
	q.Upvotes++
	return *q, nil
}

func (r *Room) answer(actor, id uuid.UUID, text string, now time.Time) (models.Question, error) {
	q, err := r.question(id)
	if err != nil {
		return models.Question{}, err
	}
	if !r.isOwner(actor) {
		return models.Question{}, errorf(CodeForbidden, "only instructors can answer questions")
	}
	by := actor
	at := now
	q.Answered = true
	q.Answer = text
	q.AnsweredBy = &by
	q.AnsweredAt = &at
	return *q, nil
}

func (r *Room) setQuestionVisibility(actor, id uuid.UUID, visible bool) (models.Question, error) {
	q, err := r.question(id)
	if err != nil {
		return models.Question{}, err
	}
	if !r.isOwner(actor) {
		return models.Question{}, errorf(CodeForbidden, "only the instructor can moderate questions")
	}
	q.Visible = visible
	return *q, nil
}

// board returns visible questions by upvotes descending, then creation time and arrival ascending.
func (r *Room) board(limit int) []models.Question {
	out := make([]models.Question, 0, len(r.questions))
	for _, q := range r.questions {
		if q.Visible {
			out = append(out, *q)
		}
	}
	slices.SortStableFunc(out, compareQuestions)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func compareQuestions(a, b models.Question) int {
	if c := cmp.Compare(b.Upvotes, a.Upvotes); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Arrival, b.Arrival)
}
