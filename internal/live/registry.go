package live

import (
	"hash/fnv"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/aura-learn/backend/internal/models"
)

const registryShards = 32

// Registry maps a session id to its latest lifecycle state and metadata.
// It stores copies; the owning Room publishes a new copy after every change.
type Registry struct {
	shards [registryShards]registryShard
}

type registryShard struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]models.StreamSession
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].sessions = make(map[uuid.UUID]models.StreamSession)
	}
	return r
}

func shardIndex(id uuid.UUID, n int) int {
	h := fnv.New32a()
	_, _ = h.Write(id[:])
	return int(h.Sum32() % uint32(n))
}

func (r *Registry) shard(id uuid.UUID) *registryShard {
	return &r.shards[shardIndex(id, registryShards)]
}

// Put stores a copy of s.
func (r *Registry) Put(s models.StreamSession) {
	sh := r.shard(s.ID)
	sh.mu.Lock()
	sh.sessions[s.ID] = s
	sh.mu.Unlock()
}

// Get returns a copy of the session record.
func (r *Registry) Get(id uuid.UUID) (models.StreamSession, bool) {
	sh := r.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// Delete removes the session record.
func (r *Registry) Delete(id uuid.UUID) {
	sh := r.shard(id)
	sh.mu.Lock()
	delete(sh.sessions, id)
	sh.mu.Unlock()
}

// List returns the sessions matching keep, newest first.
func (r *Registry) List(keep func(models.StreamSession) bool) []models.StreamSession {
	var out []models.StreamSession
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for _, s := range sh.sessions {
			if keep == nil || keep(s) {
				out = append(out, s)
			}
		}
		sh.mu.RUnlock()
	}
	slices.SortFunc(out, func(a, b models.StreamSession) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
