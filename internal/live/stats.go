package live

import (
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/aura-learn/backend/internal/models"
)

// Activity is the raw interaction volume a Scorer turns into an engagement score.
type Activity struct {
	ChatMessages  int
	Questions     int
	UniqueViewers int
}

// Scorer computes a 0-100 engagement score.
type Scorer interface {
	Score(a Activity) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(a Activity) float64

func (f ScorerFunc) Score(a Activity) float64 { return f(a) }

// InteractionScore is min(100, (chat + 2*questions) / max(unique, 1) * 10).
var InteractionScore Scorer = ScorerFunc(func(a Activity) float64 {
	unique := max(a.UniqueViewers, 1)
	score := float64(a.ChatMessages+2*a.Questions) / float64(unique) * 10
	return math.Min(100, score)
})

// snapshot computes engagement metrics from the room's current state. Hidden chat
// entries and questions still count.
func (r *Room) snapshot(scorer Scorer, now time.Time) models.EngagementSnapshot {
	unique := len(r.records)
	var avg float64
	if len(r.records) > 0 {
		total := lo.SumBy(r.records, func(p *models.Participant) time.Duration {
			return p.Watched(now)
		})
		avg = total.Minutes() / float64(len(r.records))
	}
	s := models.EngagementSnapshot{
		SessionID:          r.session.ID,
		CurrentViewers:     r.viewers,
		PeakViewers:        r.session.PeakViewers,
		TotalUniqueViewers: unique,
		ChatMessagesCount:  len(r.chat),
		QuestionsCount:     len(r.questions),
		AverageWatchTime:   math.Round(avg*100) / 100,
		IsLive:             r.session.Status == models.StatusLive,
		Duration:           r.session.Duration,
		StartedAt:          r.session.StartedAt,
	}
	if s.IsLive && r.session.StartedAt != nil {
		s.Duration = int64(now.Sub(*r.session.StartedAt) / time.Second)
	}
	s.EngagementScore = scorer.Score(Activity{
		ChatMessages:  s.ChatMessagesCount,
		Questions:     s.QuestionsCount,
		UniqueViewers: unique,
	})
	return s
}

// Summarize computes the engagement snapshot of a session from its stored records.
func Summarize(s models.StreamSession, participants []models.Participant, chat []models.ChatEntry, questions []models.Question, scorer Scorer, now time.Time) models.EngagementSnapshot {
	if scorer == nil {
		scorer = InteractionScore
	}
	r := newRoom(s)
	r.rehydrate(participants, chat, questions)
	return r.snapshot(scorer, now)
}
