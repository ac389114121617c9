package realtime

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-learn/backend/internal/live"
)

const hubShards = 32

// Mirror forwards encoded session frames to other instances. Implementations must not block.
type Mirror interface {
	Mirror(sessionID uuid.UUID, frame []byte)
}

// Hub maintains session id -> set of connections and fans engine events out to them.
// It implements live.Broadcaster.
type Hub struct {
	shards [hubShards]hubShard
	mirror Mirror
	logger *zap.Logger
}

type hubShard struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]map[string]*Client
}

// NewHub creates a new WebSocket hub. mirror may be nil.
func NewHub(logger *zap.Logger, mirror Mirror) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{mirror: mirror, logger: logger}
	for i := range h.shards {
		h.shards[i].sessions = make(map[uuid.UUID]map[string]*Client)
	}
	return h
}

func (h *Hub) shard(id uuid.UUID) *hubShard {
	f := fnv.New32a()
	_, _ = f.Write(id[:])
	return &h.shards[f.Sum32()%hubShards]
}

// Register adds a client to its session's connection set.
func (h *Hub) Register(c *Client) {
	sh := h.shard(c.SessionID)
	sh.mu.Lock()
	conns := sh.sessions[c.SessionID]
	if conns == nil {
		conns = make(map[string]*Client)
		sh.sessions[c.SessionID] = conns
	}
	conns[c.ID] = c
	sh.mu.Unlock()
	h.logger.Debug("client registered", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
}

// Unregister removes a client and closes its send queue. It is a no-op for clients
// that were already removed.
func (h *Hub) Unregister(c *Client) {
	sh := h.shard(c.SessionID)
	sh.mu.Lock()
	removed := h.remove(sh, c)
	sh.mu.Unlock()
	if removed {
		h.logger.Debug("client unregistered", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
	}
}

// remove must be called with sh.mu held. A client's send channel is closed only by the
// call that removes it, so it is closed exactly once.
func (h *Hub) remove(sh *hubShard, c *Client) bool {
	conns := sh.sessions[c.SessionID]
	if conns == nil || conns[c.ID] != c {
		return false
	}
	delete(conns, c.ID)
	if len(conns) == 0 {
		delete(sh.sessions, c.SessionID)
	}
	close(c.send)
	return true
}

// Publish encodes an engine event and queues it on every connection of the session.
// A connection whose queue is full is dropped. A terminal status closes every connection
// after its remaining frames are written.
func (h *Hub) Publish(ev live.Event) {
	typ, ok := outboundType(ev.Kind)
	if !ok {
		return
	}
	frame, err := Encode(typ, ev.Data)
	if err != nil {
		h.logger.Error("encode event", zap.String("type", typ), zap.Error(err))
		return
	}
	closing := false
	if st, ok := ev.Data.(live.StatusEvent); ok && st.Status.Terminal() {
		closing = true
	}

	sh := h.shard(ev.SessionID)
	sh.mu.Lock()
	for id, c := range sh.sessions[ev.SessionID] {
		if excludesOrigin(ev.Kind) && id == ev.Origin {
			continue
		}
		select {
		case c.send <- frame:
		default:
			c.dropped.Store(true)
			h.remove(sh, c)
			h.logger.Warn("slow client dropped",
				zap.String("client_id", c.ID),
				zap.String("session_id", ev.SessionID.String()))
			continue
		}
		if closing {
			h.remove(sh, c)
		}
	}
	sh.mu.Unlock()

	if h.mirror != nil {
		h.mirror.Mirror(ev.SessionID, frame)
	}
}

// Send queues a frame on a single client. It reports false if the client is gone or full.
func (h *Hub) Send(c *Client, frame []byte) bool {
	sh := h.shard(c.SessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if conns := sh.sessions[c.SessionID]; conns == nil || conns[c.ID] != c {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.dropped.Store(true)
		h.remove(sh, c)
		return false
	}
}

// ConnectionCount returns the number of connected clients in a session.
func (h *Hub) ConnectionCount(sessionID uuid.UUID) int {
	sh := h.shard(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return len(sh.sessions[sessionID])
}

var _ live.Broadcaster = (*Hub)(nil)
