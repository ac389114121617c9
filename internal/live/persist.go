package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const persistTimeout = 10 * time.Second

type writeTask struct {
	sessionID uuid.UUID
	what      string
	run       func(ctx context.Context) error
	done      chan struct{}
}

// lane is the pending write FIFO of one session. At most one goroutine drains a lane.
type lane struct {
	tasks  []writeTask
	warned bool
}

// persister writes room changes behind to the store. Each session has its own unbounded
// FIFO, so enqueue never blocks the caller and tasks of one session are applied in order.
// slots bounds how many store writes run at once across all sessions.
type persister struct {
	mu      sync.Mutex
	closed  bool
	lanes   map[uuid.UUID]*lane
	slots   chan struct{}
	backlog int
	wg      sync.WaitGroup
	logger  *zap.Logger
}

func newPersister(workers, backlog int, logger *zap.Logger) *persister {
	if workers <= 0 {
		workers = 1
	}
	if backlog <= 0 {
		backlog = 1
	}
	return &persister{
		lanes:   make(map[uuid.UUID]*lane),
		slots:   make(chan struct{}, workers),
		backlog: backlog,
		logger:  logger,
	}
}

// enqueue schedules fn behind every earlier task of the same session. It does not block.
func (p *persister) enqueue(sessionID uuid.UUID, what string, fn func(ctx context.Context) error) {
	p.push(writeTask{sessionID: sessionID, what: what, run: fn})
}

func (p *persister) push(t writeTask) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Warn("persist dropped after close",
			zap.String("session_id", t.sessionID.String()), zap.String("what", t.what))
		return false
	}
	l, ok := p.lanes[t.sessionID]
	if !ok {
		l = &lane{}
		p.lanes[t.sessionID] = l
		p.wg.Add(1)
		go p.drain(t.sessionID, l)
	}
	l.tasks = append(l.tasks, t)
	if len(l.tasks) > p.backlog && !l.warned {
		l.warned = true
		p.logger.Warn("persist backlog growing",
			zap.String("session_id", t.sessionID.String()), zap.Int("pending", len(l.tasks)))
	}
	return true
}

func (p *persister) drain(sessionID uuid.UUID, l *lane) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		if len(l.tasks) == 0 {
			delete(p.lanes, sessionID)
			p.mu.Unlock()
			return
		}
		t := l.tasks[0]
		l.tasks[0] = writeTask{}
		l.tasks = l.tasks[1:]
		p.mu.Unlock()
		p.apply(t)
	}
}

func (p *persister) apply(t writeTask) {
	if t.done != nil {
		close(t.done)
		return
	}
	p.slots <- struct{}{}
	defer func() { <-p.slots }()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := t.run(ctx); err != nil {
		p.logger.Error("persist failed",
			zap.String("session_id", t.sessionID.String()),
			zap.String("what", t.what),
			zap.Error(err))
	}
}

// pending reports how many tasks are queued for sessionID, including a barrier.
func (p *persister) pending(sessionID uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.lanes[sessionID]; ok {
		return len(l.tasks)
	}
	return 0
}

// barrier waits until every task enqueued for sessionID before the call has been applied.
func (p *persister) barrier(ctx context.Context, sessionID uuid.UUID) error {
	done := make(chan struct{})
	if !p.push(writeTask{sessionID: sessionID, what: "barrier", done: done}) {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting writes and waits for every lane to drain.
func (p *persister) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
