package live

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/aura-learn/backend/internal/models"
)

// Room is the in-memory working set of one session: participants, viewer counter,
// chat log and question board. All fields are guarded by mu.
type Room struct {
	mu sync.Mutex

	session models.StreamSession

	// latest participation per user, and every participation record in join order
	participants map[uuid.UUID]*models.Participant
	records      []*models.Participant
	attached     map[uuid.UUID]int
	viewers      int

	chat    []models.ChatEntry
	lastSeq int64

	questions   []*models.Question
	questionIdx map[uuid.UUID]*models.Question
	arrivals    int64

	// active participants restored from the store that have not reconnected or acted since
	restored   map[uuid.UUID]struct{}
	restoredAt time.Time

	evicted bool
	broken  bool
}

func newRoom(s models.StreamSession) *Room {
	return &Room{
		session:      s,
		participants: make(map[uuid.UUID]*models.Participant),
		attached:     make(map[uuid.UUID]int),
		questionIdx:  make(map[uuid.UUID]*models.Question),
	}
}

// do runs fn with the room locked. A panic inside fn leaves the room broken:
// its invariants can no longer be trusted, so every later call fails.
func (r *Room) do(fn func(r *Room) error) (evicted bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.evicted {
		return true, nil
	}
	if r.broken {
		return false, ErrRoomUnavailable
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.broken = true
			err = fmt.Errorf("%w: %v", ErrRoomUnavailable, rec)
		}
	}()
	return false, fn(r)
}

func (r *Room) rehydrate(participants []models.Participant, chat []models.ChatEntry, questions []models.Question) {
	for i := range participants {
		p := participants[i]
		r.records = append(r.records, &p)
		cur, ok := r.participants[p.UserID]
		switch {
		case !ok, p.Active() && !cur.Active():
			r.participants[p.UserID] = &p
		case p.Active() == cur.Active() && p.JoinedAt.After(cur.JoinedAt):
			r.participants[p.UserID] = &p
		}
	}
	r.viewers = 0
	for _, p := range r.participants {
		if p.Active() {
			r.viewers++
		}
	}
	r.chat = append(r.chat, chat...)
	for _, e := range chat {
		if e.Seq > r.lastSeq {
			r.lastSeq = e.Seq
		}
	}
	for i := range questions {
		q := questions[i]
		if q.Arrival <= r.arrivals {
			q.Arrival = r.arrivals + 1
		}
		r.arrivals = q.Arrival
		r.questions = append(r.questions, &q)
		r.questionIdx[q.ID] = &q
	}
	r.session.ViewerCount = r.viewers
	if r.viewers > r.session.PeakViewers {
		r.session.PeakViewers = r.viewers
	}
}

// markRestored records every active participant of a freshly rehydrated room as unconfirmed.
func (r *Room) markRestored(now time.Time) {
	r.restored = make(map[uuid.UUID]struct{})
	for user, p := range r.participants {
		if p.Active() {
			r.restored[user] = struct{}{}
		}
	}
	r.restoredAt = now
}

func (r *Room) confirm(user uuid.UUID) {
	delete(r.restored, user)
}

// staleRestored returns and forgets the unconfirmed restored participants once grace has
// passed since the room was restored.
func (r *Room) staleRestored(now time.Time, grace time.Duration) []uuid.UUID {
	if len(r.restored) == 0 || now.Sub(r.restoredAt) < grace {
		return nil
	}
	stale := lo.Keys(r.restored)
	r.restored = nil
	return stale
}

func (r *Room) isOwner(user uuid.UUID) bool {
	return r.session.InstructorID == user
}

func (r *Room) start(actor uuid.UUID, now time.Time) error {
	if !r.isOwner(actor) {
		return errorf(CodeForbidden, "you can only start your own streams")
	}
	switch r.session.Status {
	case models.StatusScheduled:
	case models.StatusLive:
		return errorf(CodeInvalidState, "stream is already live")
	default:
		return errorf(CodeInvalidState, "stream is %s", r.session.Status)
	}
	r.session.Status = models.StatusLive
	r.session.StartedAt = &now
	r.session.UpdatedAt = now
	return nil
}

func (r *Room) stop(actor uuid.UUID, now time.Time) ([]*models.Participant, error) {
	if !r.isOwner(actor) {
		return nil, errorf(CodeForbidden, "you can only stop your own streams")
	}
	if r.session.Status != models.StatusLive {
		return nil, errorf(CodeInvalidState, "stream is not live")
	}
	r.session.Status = models.StatusEnded
	r.finish(now)
	return r.closeAll(now), nil
}

func (r *Room) cancel(actor uuid.UUID, now time.Time) ([]*models.Participant, error) {
	if !r.isOwner(actor) {
		return nil, errorf(CodeForbidden, "you can only cancel your own streams")
	}
	if r.session.Status.Terminal() {
		return nil, errorf(CodeInvalidState, "stream is %s", r.session.Status)
	}
	r.session.Status = models.StatusCancelled
	r.finish(now)
	return r.closeAll(now), nil
}

func (r *Room) finish(now time.Time) {
	r.session.EndedAt = &now
	r.session.UpdatedAt = now
	if r.session.StartedAt != nil {
		r.session.Duration = int64(now.Sub(*r.session.StartedAt) / time.Second)
	}
}

// closeAll ends every active participation at now and returns the changed records.
func (r *Room) closeAll(now time.Time) []*models.Participant {
	var closed []*models.Participant
	for _, p := range r.participants {
		if p.Active() {
			r.markLeft(p, now)
			closed = append(closed, p)
		}
	}
	r.viewers = 0
	r.session.ViewerCount = 0
	return closed
}

func (r *Room) join(user uuid.UUID, now time.Time) (*models.Participant, error) {
	if !r.session.Status.Open() {
		return nil, errorf(CodeInvalidState, "stream is not accessible")
	}
	if p, ok := r.participants[user]; ok && p.Active() {
		return nil, ErrAlreadyJoined
	}
	if r.viewers >= r.session.Capacity {
		return nil, ErrCapacityExceeded
	}
	p := &models.Participant{
		ID:              uuid.New(),
		SessionID:       r.session.ID,
		UserID:          user,
		IsModerator:     r.isOwner(user),
		CanChat:         true,
		CanAskQuestions: true,
		JoinedAt:        now,
	}
	r.participants[user] = p
	r.records = append(r.records, p)
	r.viewers++
	r.session.ViewerCount = r.viewers
	if r.viewers > r.session.PeakViewers {
		r.session.PeakViewers = r.viewers
	}
	return p, nil
}

func (r *Room) leave(user uuid.UUID, now time.Time) (*models.Participant, error) {
	p, ok := r.participants[user]
	if !ok || !p.Active() {
		return nil, ErrNotParticipating
	}
	r.markLeft(p, now)
	if r.viewers > 0 {
		r.viewers--
	}
	r.session.ViewerCount = r.viewers
	return p, nil
}

func (r *Room) markLeft(p *models.Participant, now time.Time) {
	left := now
	p.LeftAt = &left
	p.WatchSeconds = int64(now.Sub(p.JoinedAt) / time.Second)
	if p.WatchSeconds < 0 {
		p.WatchSeconds = 0
	}
}

// active returns the user's active participation.
func (r *Room) active(user uuid.UUID) (*models.Participant, error) {
	p, ok := r.participants[user]
	if !ok || !p.Active() {
		return nil, ErrNotParticipating
	}
	return p, nil
}

func (r *Room) attachedConnections() int {
	n := 0
	for _, c := range r.attached {
		n += c
	}
	return n
}

func (r *Room) evictable() bool {
	return r.session.Status.Terminal() && r.viewers == 0 && r.attachedConnections() == 0
}
