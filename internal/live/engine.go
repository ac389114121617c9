package live

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-learn/backend/internal/models"
)

const (
	roomShards        = 64
	maxLookupAttempts = 3
)

// Options configures an Engine. Every field is optional.
type Options struct {
	// Store is the durable record rooms are written behind to and rehydrated from.
	// Without a store rooms are never evicted.
	Store       Store
	Broadcaster Broadcaster
	Archiver    Archiver
	Scorer      Scorer
	Logger      *zap.Logger

	DefaultCapacity int
	// PersistWorkers bounds concurrent store writes. PersistQueue is the per-session
	// backlog above which a warning is logged; writes are never refused or blocked.
	PersistWorkers int
	PersistQueue   int
	// ReconnectGrace is how long participants restored as active after a restart may stay
	// without reconnecting or acting before the janitor ends their participation.
	ReconnectGrace time.Duration

	Now func() time.Time
}

// Engine owns every live room of the process. All operations are safe for concurrent use.
type Engine struct {
	registry *Registry
	shards   [roomShards]roomShard

	store    Store
	bc       Broadcaster
	archiver Archiver
	scorer   Scorer
	logger   *zap.Logger
	persist  *persister
	now      func() time.Time

	defaultCapacity int
	reconnectGrace  time.Duration
}

type roomShard struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*Room
}

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(Event) {}

// NewEngine creates an engine and starts its persistence workers.
func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Broadcaster == nil {
		opts.Broadcaster = nopBroadcaster{}
	}
	if opts.Scorer == nil {
		opts.Scorer = InteractionScore
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.DefaultCapacity <= 0 {
		opts.DefaultCapacity = 100
	}
	if opts.PersistWorkers <= 0 {
		opts.PersistWorkers = 4
	}
	if opts.PersistQueue <= 0 {
		opts.PersistQueue = 1024
	}
	if opts.ReconnectGrace <= 0 {
		opts.ReconnectGrace = 2 * time.Minute
	}
	e := &Engine{
		registry:        NewRegistry(),
		store:           opts.Store,
		bc:              opts.Broadcaster,
		archiver:        opts.Archiver,
		scorer:          opts.Scorer,
		logger:          opts.Logger,
		now:             opts.Now,
		defaultCapacity: opts.DefaultCapacity,
		reconnectGrace:  opts.ReconnectGrace,
		persist:         newPersister(opts.PersistWorkers, opts.PersistQueue, opts.Logger),
	}
	for i := range e.shards {
		e.shards[i].rooms = make(map[uuid.UUID]*Room)
	}
	return e
}

// Close flushes pending writes and stops the persistence workers.
func (e *Engine) Close() {
	e.persist.close()
}

// Registry exposes the session registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Warm loads every scheduled or live session from the store into the registry.
func (e *Engine) Warm(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	sessions, err := e.store.ListOpenSessions(ctx)
	if err != nil {
		return fmt.Errorf("list open sessions: %w", err)
	}
	for _, s := range sessions {
		e.registry.Put(s)
	}
	e.logger.Info("live sessions warmed", zap.Int("count", len(sessions)))
	return nil
}

func (e *Engine) shard(id uuid.UUID) *roomShard {
	return &e.shards[shardIndex(id, roomShards)]
}

// room returns the session's room, creating and rehydrating it on first use.
func (e *Engine) room(ctx context.Context, id uuid.UUID) (*Room, error) {
	sh := e.shard(id)
	sh.mu.RLock()
	r, ok := sh.rooms[id]
	sh.mu.RUnlock()
	if ok {
		return r, nil
	}

	r, err := e.loadRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.rooms[id]; ok {
		return cur, nil
	}
	sh.rooms[id] = r
	e.registry.Put(r.session)
	return r, nil
}

func (e *Engine) loadRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	s, ok := e.registry.Get(id)
	if e.store == nil {
		if !ok {
			return nil, errorf(CodeNotFound, "stream not found")
		}
		return newRoom(s), nil
	}

	if err := e.persist.barrier(ctx, id); err != nil {
		return nil, err
	}
	if !ok {
		stored, err := e.store.LoadSession(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		if stored == nil {
			return nil, errorf(CodeNotFound, "stream not found")
		}
		s = *stored
	}
	participants, err := e.store.LoadParticipants(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	chat, err := e.store.LoadChatEntries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	questions, err := e.store.LoadQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	r := newRoom(s)
	r.rehydrate(participants, chat, questions)
	r.markRestored(e.now())
	e.logger.Debug("room rehydrated",
		zap.String("session_id", id.String()),
		zap.Int("participants", len(participants)),
		zap.Int("chat", len(chat)),
		zap.Int("questions", len(questions)))
	return r, nil
}

// withRoom runs fn under the session's room lock, looking the room up again if it
// was evicted between lookup and lock.
func (e *Engine) withRoom(ctx context.Context, id uuid.UUID, fn func(r *Room) error) error {
	for attempt := 0; attempt < maxLookupAttempts; attempt++ {
		r, err := e.room(ctx, id)
		if err != nil {
			return err
		}
		evicted, err := r.do(fn)
		if !evicted {
			return err
		}
	}
	return fmt.Errorf("%w: room %s kept being evicted", ErrRoomUnavailable, id)
}

func (e *Engine) emit(ctx context.Context, r *Room, kind EventKind, data any) {
	e.bc.Publish(Event{SessionID: r.session.ID, Kind: kind, Origin: originFrom(ctx), Data: data})
}

func (e *Engine) emitViewers(ctx context.Context, r *Room) {
	e.emit(ctx, r, EventViewerCount, ViewerCountEvent{SessionID: r.session.ID, Count: r.viewers})
}

// The save helpers run under the room lock, so writes reach the persister in mutation order.

func (e *Engine) saveSession(r *Room) {
	s := r.session
	e.registry.Put(s)
	if e.store == nil {
		return
	}
	e.persist.enqueue(s.ID, "session", func(ctx context.Context) error {
		return e.store.SaveSession(ctx, s)
	})
}

func (e *Engine) saveParticipant(p models.Participant) {
	if e.store == nil {
		return
	}
	e.persist.enqueue(p.SessionID, "participant", func(ctx context.Context) error {
		return e.store.SaveParticipant(ctx, p)
	})
}

func (e *Engine) saveChat(c models.ChatEntry) {
	if e.store == nil {
		return
	}
	e.persist.enqueue(c.SessionID, "chat", func(ctx context.Context) error {
		return e.store.SaveChatEntry(ctx, c)
	})
}

func (e *Engine) saveQuestion(q models.Question) {
	if e.store == nil {
		return
	}
	e.persist.enqueue(q.SessionID, "question", func(ctx context.Context) error {
		return e.store.SaveQuestion(ctx, q)
	})
}

func (e *Engine) archive(id uuid.UUID) {
	if e.archiver == nil {
		return
	}
	e.persist.enqueue(id, "archive", func(ctx context.Context) error {
		return e.archiver.EnqueueArchive(ctx, id)
	})
}

// CreateSession schedules a new session owned by instructor.
func (e *Engine) CreateSession(ctx context.Context, instructor uuid.UUID, in CreateInput) (models.StreamSession, error) {
	if err := check(in, in.Title); err != nil {
		return models.StreamSession{}, err
	}
	now := e.now()
	s := models.StreamSession{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		InstructorID: instructor,
		CourseID:     in.CourseID,
		Capacity:     in.Capacity,
		IsPublic:     in.IsPublic,
		IsRecording:  in.IsRecording,
		Status:       models.StatusScheduled,
		ScheduledAt:  in.ScheduledAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if s.Capacity == 0 {
		s.Capacity = e.defaultCapacity
	}
	if e.store != nil {
		if err := e.store.CreateSession(ctx, &s); err != nil {
			return models.StreamSession{}, fmt.Errorf("create session: %w", err)
		}
	}
	e.registry.Put(s)
	e.logger.Info("live session created",
		zap.String("session_id", s.ID.String()),
		zap.String("instructor_id", instructor.String()))
	return s, nil
}

// UpdateSession changes the metadata of a scheduled session.
func (e *Engine) UpdateSession(ctx context.Context, id, actor uuid.UUID, in UpdateInput) (models.StreamSession, error) {
	var texts []string
	if in.Title != nil {
		texts = append(texts, *in.Title)
	}
	if err := check(in, texts...); err != nil {
		return models.StreamSession{}, err
	}
	var out models.StreamSession
	err := e.withRoom(ctx, id, func(r *Room) error {
		if !r.isOwner(actor) {
			return errorf(CodeForbidden, "you can only update your own streams")
		}
		if r.session.Status != models.StatusScheduled {
			return errorf(CodeInvalidState, "only scheduled streams can be updated")
		}
		if in.Capacity != nil && *in.Capacity < r.viewers {
			return errorf(CodeInvalidMessage, "capacity below current viewer count")
		}
		if in.Title != nil {
			r.session.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			r.session.Description = *in.Description
		}
		if in.Capacity != nil {
			r.session.Capacity = *in.Capacity
		}
		if in.IsPublic != nil {
			r.session.IsPublic = *in.IsPublic
		}
		if in.IsRecording != nil {
			r.session.IsRecording = *in.IsRecording
		}
		if in.ScheduledAt != nil {
			at := *in.ScheduledAt
			r.session.ScheduledAt = &at
		}
		r.session.UpdatedAt = e.now()
		e.saveSession(r)
		out = r.session
		return nil
	})
	return out, err
}

// SetStreamKeyHash replaces the stored stream key hash of a session that has not finished.
func (e *Engine) SetStreamKeyHash(ctx context.Context, id, actor uuid.UUID, hash string) error {
	return e.withRoom(ctx, id, func(r *Room) error {
		if !r.isOwner(actor) {
			return errorf(CodeForbidden, "you can only manage keys of your own streams")
		}
		if r.session.Status.Terminal() {
			return errorf(CodeInvalidState, "stream is %s", r.session.Status)
		}
		r.session.StreamKeyHash = hash
		r.session.UpdatedAt = e.now()
		e.saveSession(r)
		return nil
	})
}

// GetSession returns the latest session record.
func (e *Engine) GetSession(ctx context.Context, id uuid.UUID) (models.StreamSession, error) {
	if s, ok := e.registry.Get(id); ok {
		return s, nil
	}
	if e.store == nil {
		return models.StreamSession{}, errorf(CodeNotFound, "stream not found")
	}
	if err := e.persist.barrier(ctx, id); err != nil {
		return models.StreamSession{}, err
	}
	s, err := e.store.LoadSession(ctx, id)
	if err != nil {
		return models.StreamSession{}, fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return models.StreamSession{}, errorf(CodeNotFound, "stream not found")
	}
	return *s, nil
}

// ListActive returns scheduled and live sessions, newest first.
func (e *Engine) ListActive() []models.StreamSession {
	return e.registry.List(func(s models.StreamSession) bool {
		return s.Status.Open()
	})
}

// Start moves a scheduled session to live.
func (e *Engine) Start(ctx context.Context, id, actor uuid.UUID) (models.StreamSession, error) {
	var out models.StreamSession
	err := e.withRoom(ctx, id, func(r *Room) error {
		if err := r.start(actor, e.now()); err != nil {
			return err
		}
		e.saveSession(r)
		e.emit(ctx, r, EventStatus, StatusEvent{SessionID: r.session.ID, Status: r.session.Status})
		out = r.session
		return nil
	})
	if err == nil {
		e.logger.Info("live session started", zap.String("session_id", id.String()))
	}
	return out, err
}

// Stop ends a live session.
func (e *Engine) Stop(ctx context.Context, id, actor uuid.UUID) (models.StreamSession, error) {
	return e.terminate(ctx, id, func(r *Room, now time.Time) ([]*models.Participant, error) {
		return r.stop(actor, now)
	})
}

// Cancel cancels a scheduled or live session.
func (e *Engine) Cancel(ctx context.Context, id, actor uuid.UUID) (models.StreamSession, error) {
	return e.terminate(ctx, id, func(r *Room, now time.Time) ([]*models.Participant, error) {
		return r.cancel(actor, now)
	})
}

func (e *Engine) terminate(ctx context.Context, id uuid.UUID, transition func(*Room, time.Time) ([]*models.Participant, error)) (models.StreamSession, error) {
	var out models.StreamSession
	err := e.withRoom(ctx, id, func(r *Room) error {
		closed, err := transition(r, e.now())
		if err != nil {
			return err
		}
		for _, p := range closed {
			e.saveParticipant(*p)
		}
		e.saveSession(r)
		e.emitViewers(ctx, r)
		e.emit(ctx, r, EventStatus, StatusEvent{SessionID: r.session.ID, Status: r.session.Status})
		e.archive(r.session.ID)
		out = r.session
		return nil
	})
	if err == nil {
		e.logger.Info("live session finished",
			zap.String("session_id", id.String()),
			zap.String("status", string(out.Status)),
			zap.Int64("duration", out.Duration))
	}
	return out, err
}

func (e *Engine) applyJoin(ctx context.Context, r *Room, user uuid.UUID) (*models.Participant, error) {
	p, err := r.join(user, e.now())
	if err != nil {
		return nil, err
	}
	e.saveParticipant(*p)
	e.saveSession(r)
	e.emit(ctx, r, EventJoined, PresenceEvent{
		SessionID:   r.session.ID,
		UserID:      user,
		IsModerator: p.IsModerator,
		ViewerCount: r.viewers,
	})
	e.emitViewers(ctx, r)
	return p, nil
}

func (e *Engine) applyLeave(ctx context.Context, r *Room, user uuid.UUID) (*models.Participant, error) {
	p, err := r.leave(user, e.now())
	if err != nil {
		return nil, err
	}
	r.confirm(user)
	e.saveParticipant(*p)
	e.saveSession(r)
	e.emit(ctx, r, EventLeft, PresenceEvent{
		SessionID:   r.session.ID,
		UserID:      user,
		IsModerator: p.IsModerator,
		ViewerCount: r.viewers,
	})
	e.emitViewers(ctx, r)
	return p, nil
}

// Join admits user to the session.
func (e *Engine) Join(ctx context.Context, id, user uuid.UUID) (models.Participant, error) {
	var out models.Participant
	err := e.withRoom(ctx, id, func(r *Room) error {
		p, err := e.applyJoin(ctx, r, user)
		if err != nil {
			return err
		}
		out = *p
		return nil
	})
	return out, err
}

// Leave ends the user's active participation.
func (e *Engine) Leave(ctx context.Context, id, user uuid.UUID) (models.Participant, error) {
	var out models.Participant
	err := e.withRoom(ctx, id, func(r *Room) error {
		p, err := e.applyLeave(ctx, r, user)
		if err != nil {
			return err
		}
		out = *p
		return nil
	})
	return out, err
}

// Attachment is the outcome of attaching a realtime connection.
type Attachment struct {
	Participant models.Participant
	// Joined reports whether a new participation was created.
	Joined      bool
	ViewerCount int
}

// Attach registers a realtime connection of user, joining the session unless the user is
// already participating.
func (e *Engine) Attach(ctx context.Context, id, user uuid.UUID) (Attachment, error) {
	var out Attachment
	err := e.withRoom(ctx, id, func(r *Room) error {
		cur, ok := r.participants[user]
		if !ok || !cur.Active() {
			np, err := e.applyJoin(ctx, r, user)
			if err != nil {
				return err
			}
			cur, out.Joined = np, true
		}
		r.attached[user]++
		r.confirm(user)
		out.Participant = *cur
		out.ViewerCount = r.viewers
		return nil
	})
	return out, err
}

// Detach unregisters a realtime connection of user. When the user's last connection goes
// away while still participating, exactly one Leave is applied; left reports whether it was.
func (e *Engine) Detach(ctx context.Context, id, user uuid.UUID) (left bool, err error) {
	err = e.withRoom(ctx, id, func(r *Room) error {
		n := r.attached[user]
		if n <= 0 {
			return nil
		}
		if n > 1 {
			r.attached[user] = n - 1
			return nil
		}
		delete(r.attached, user)
		if _, err := r.active(user); err != nil {
			return nil
		}
		if _, err := e.applyLeave(ctx, r, user); err != nil {
			return err
		}
		left = true
		return nil
	})
	return left, err
}

// SetPermissions changes chat and question rights of an active participant.
func (e *Engine) SetPermissions(ctx context.Context, id, actor, user uuid.UUID, in PermissionsInput) (models.Participant, error) {
	var out models.Participant
	err := e.withRoom(ctx, id, func(r *Room) error {
		if !r.isOwner(actor) {
			return errorf(CodeForbidden, "only the instructor can change permissions")
		}
		p, err := r.active(user)
		if err != nil {
			return err
		}
		if in.CanChat != nil {
			p.CanChat = *in.CanChat
		}
		if in.CanAskQuestions != nil {
			p.CanAskQuestions = *in.CanAskQuestions
		}
		e.saveParticipant(*p)
		out = *p
		return nil
	})
	return out, err
}

// Participants returns every participation record of the session in join order.
func (e *Engine) Participants(ctx context.Context, id, actor uuid.UUID) ([]models.Participant, error) {
	var out []models.Participant
	err := e.withRoom(ctx, id, func(r *Room) error {
		if !r.isOwner(actor) {
			return errorf(CodeForbidden, "only the instructor can list participants")
		}
		out = make([]models.Participant, 0, len(r.records))
		for _, p := range r.records {
			out = append(out, *p)
		}
		return nil
	})
	return out, err
}

// PostMessage appends a chat entry and broadcasts it. An empty kind means text.
func (e *Engine) PostMessage(ctx context.Context, id, user uuid.UUID, text string, kind models.ChatKind) (models.ChatEntry, error) {
	if kind == "" {
		kind = models.ChatText
	}
	if err := check(messageInput{Text: text, Kind: kind}, text); err != nil {
		return models.ChatEntry{}, err
	}
	var out models.ChatEntry
	err := e.withRoom(ctx, id, func(r *Room) error {
		c, err := r.post(user, text, kind, e.now())
		if err != nil {
			return err
		}
		r.confirm(user)
		e.saveChat(c)
		e.emit(ctx, r, EventChatPosted, c)
		out = c
		return nil
	})
	return out, err
}

// Messages returns visible chat entries after the given sequence number, ascending.
func (e *Engine) Messages(ctx context.Context, id uuid.UUID, after int64, limit int) ([]models.ChatEntry, error) {
	var out []models.ChatEntry
	err := e.withRoom(ctx, id, func(r *Room) error {
		out = r.messages(after, pageLimit(limit))
		return nil
	})
	return out, err
}

// SetMessageVisibility hides or restores a chat entry.
func (e *Engine) SetMessageVisibility(ctx context.Context, id, actor uuid.UUID, seq int64, visible bool) (models.ChatEntry, error) {
	var out models.ChatEntry
	err := e.withRoom(ctx, id, func(r *Room) error {
		c, err := r.setMessageVisibility(actor, seq, visible)
		if err != nil {
			return err
		}
		e.saveChat(c)
		out = c
		return nil
	})
	return out, err
}

// Ask posts a question and broadcasts it.
func (e *Engine) Ask(ctx context.Context, id, user uuid.UUID, text string) (models.Question, error) {
	if err := check(questionInput{Text: text}, text); err != nil {
		return models.Question{}, err
	}
	var out models.Question
	err := e.withRoom(ctx, id, func(r *Room) error {
		q, err := r.ask(user, text, e.now())
		if err != nil {
			return err
		}
		r.confirm(user)
		e.saveQuestion(q)
		e.emit(ctx, r, EventQuestionAsked, q)
		out = q
		return nil
	})
	return out, err
}

// Upvote adds one vote to a question and broadcasts the new count.
func (e *Engine) Upvote(ctx context.Context, id, questionID uuid.UUID) (models.Question, error) {
	var out models.Question
	err := e.withRoom(ctx, id, func(r *Room) error {
		q, err := r.upvote(questionID)
		if err != nil {
			return err
		}
		e.saveQuestion(q)
		e.emit(ctx, r, EventQuestionUpvoted, UpvoteEvent{QuestionID: q.ID, Upvotes: q.Upvotes})
		out = q
		return nil
	})
	return out, err
}

// Answer records the instructor's answer to a question and broadcasts it.
func (e *Engine) Answer(ctx context.Context, id, actor, questionID uuid.UUID, text string) (models.Question, error) {
	if err := check(answerInput{Text: text}); err != nil {
		return models.Question{}, err
	}
	var out models.Question
	err := e.withRoom(ctx, id, func(r *Room) error {
		q, err := r.answer(actor, questionID, text, e.now())
		if err != nil {
			return err
		}
		e.saveQuestion(q)
		e.emit(ctx, r, EventQuestionAnswered, AnswerEvent{
			QuestionID: q.ID,
			Answer:     q.Answer,
			AnsweredBy: actor,
			AnsweredAt: *q.AnsweredAt,
		})
		out = q
		return nil
	})
	return out, err
}

// SetQuestionVisibility hides or restores a question.
func (e *Engine) SetQuestionVisibility(ctx context.Context, id, actor, questionID uuid.UUID, visible bool) (models.Question, error) {
	var out models.Question
	err := e.withRoom(ctx, id, func(r *Room) error {
		q, err := r.setQuestionVisibility(actor, questionID, visible)
		if err != nil {
			return err
		}
		e.saveQuestion(q)
		out = q
		return nil
	})
	return out, err
}

// Questions returns visible questions in display order.
func (e *Engine) Questions(ctx context.Context, id uuid.UUID, limit int) ([]models.Question, error) {
	var out []models.Question
	err := e.withRoom(ctx, id, func(r *Room) error {
		out = r.board(pageLimit(limit))
		return nil
	})
	return out, err
}

// Stats computes the session's engagement snapshot.
func (e *Engine) Stats(ctx context.Context, id uuid.UUID) (models.EngagementSnapshot, error) {
	var out models.EngagementSnapshot
	err := e.withRoom(ctx, id, func(r *Room) error {
		out = r.snapshot(e.scorer, e.now())
		return nil
	})
	return out, err
}

// RunJanitor evicts idle finished rooms and expires unconfirmed restored participants
// every interval until ctx is done.
func (e *Engine) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := e.Sweep(); n > 0 {
				e.logger.Debug("evicted live rooms", zap.Int("count", n))
			}
		}
	}
}

// Sweep ends restored participations whose reconnect grace ran out, then evicts every room
// whose session is finished and that has no participants and no attached connections.
// Rooms are only evicted when a store can rehydrate them.
func (e *Engine) Sweep() int {
	if e.store == nil {
		return 0
	}
	now := e.now()
	n := 0
	for i := range e.shards {
		sh := &e.shards[i]
		sh.mu.Lock()
		for id, r := range sh.rooms {
			r.mu.Lock()
			if !r.broken {
				e.expireRestored(r, now)
			}
			if r.evictable() {
				r.evicted = true
				delete(sh.rooms, id)
				e.registry.Delete(id)
				n++
			}
			r.mu.Unlock()
		}
		sh.mu.Unlock()
	}
	return n
}

func (e *Engine) expireRestored(r *Room, now time.Time) {
	for _, user := range r.staleRestored(now, e.reconnectGrace) {
		if _, err := e.applyLeave(context.Background(), r, user); err != nil {
			continue
		}
		e.logger.Info("restored participant expired",
			zap.String("session_id", r.session.ID.String()),
			zap.String("user_id", user.String()))
	}
}
