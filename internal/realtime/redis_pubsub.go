package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix = "live:"
	publishTTL    = 5 * time.Second
	mirrorBacklog = 1024
)

// redisPayload is the message published to Redis for other instances.
type redisPayload struct {
	Frame json.RawMessage `json:"frame"`
	At    int64           `json:"at"`
}

type mirrored struct {
	sessionID uuid.UUID
	frame     []byte
}

// RedisMirror publishes every session frame to the session's Redis channel so other
// services (analytics, instances fronting read-only viewers) can follow the room.
// Publishing happens on a background goroutine; frames are dropped when the backlog is full.
type RedisMirror struct {
	client  *redis.Client
	logger  *zap.Logger
	pending chan mirrored
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
}

// NewRedisMirror creates a mirror and starts its publisher.
func NewRedisMirror(client *redis.Client, logger *zap.Logger) *RedisMirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &RedisMirror{
		client:  client,
		logger:  logger,
		pending: make(chan mirrored, mirrorBacklog),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

// Channel returns the Redis channel a session's frames are published on.
func Channel(sessionID uuid.UUID) string {
	return channelPrefix + sessionID.String()
}

// Mirror queues a frame for publishing.
func (m *RedisMirror) Mirror(sessionID uuid.UUID, frame []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.pending <- mirrored{sessionID: sessionID, frame: frame}:
	default:
		m.logger.Warn("redis mirror backlog full, frame dropped", zap.String("session_id", sessionID.String()))
	}
}

func (m *RedisMirror) run() {
	defer close(m.done)
	for msg := range m.pending {
		body, err := json.Marshal(redisPayload{Frame: msg.frame, At: time.Now().Unix()})
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTTL)
		if err := m.client.Publish(ctx, Channel(msg.sessionID), body).Err(); err != nil {
			m.logger.Warn("redis publish failed", zap.String("session_id", msg.sessionID.String()), zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting frames and waits for the backlog to flush.
func (m *RedisMirror) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.pending)
	}
	m.mu.Unlock()
	<-m.done
}
