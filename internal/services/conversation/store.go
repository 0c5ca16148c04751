package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/internal/infrastructure/redis"
)

// SnapshotStore keeps the latest conversation state per session. Snapshots
// are replaced whole, never merged.
type SnapshotStore interface {
	Save(ctx context.Context, state formapi.ConversationState) error
	// Load returns nil, nil when no snapshot is held for sessionID
	Load(ctx context.Context, sessionID string) (*formapi.ConversationState, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	redisService *redis.Service
	ttl          time.Duration
}

func NewRedisStore(redisService *redis.Service, ttl time.Duration) *RedisStore {
	return &RedisStore{redisService: redisService, ttl: ttl}
}

func snapshotKey(sessionID string) string {
	return "snapshot:" + sessionID
}

func (rs *RedisStore) Save(ctx context.Context, state formapi.ConversationState) error {
	return rs.redisService.SetJSON(ctx, snapshotKey(state.SessionID), state, rs.ttl)
}

func (rs *RedisStore) Load(ctx context.Context, sessionID string) (*formapi.ConversationState, error) {
	var state formapi.ConversationState
	if err := rs.redisService.GetJSON(ctx, snapshotKey(sessionID), &state); err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, snapshotKey(sessionID))
}

type memoryEntry struct {
	state     formapi.ConversationState
	expiresAt time.Time
}

type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]memoryEntry),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (ms *MemoryStore) Save(_ context.Context, state formapi.ConversationState) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.snapshots[state.SessionID] = memoryEntry{state: state, expiresAt: ms.now().Add(ms.ttl)}
	return nil
}

func (ms *MemoryStore) Load(_ context.Context, sessionID string) (*formapi.ConversationState, error) {
	ms.mu.RLock()
	entry, exists := ms.snapshots[sessionID]
	ms.mu.RUnlock()
	if !exists {
		return nil, nil
	}
	if ms.expired(entry) {
		ms.mu.Lock()
		// A Save may have replaced the entry since the read lock was released
		if current, ok := ms.snapshots[sessionID]; ok && ms.expired(current) {
			delete(ms.snapshots, sessionID)
		}
		ms.mu.Unlock()
		return nil, nil
	}
	state := entry.state
	return &state, nil
}

func (ms *MemoryStore) expired(entry memoryEntry) bool {
	return ms.ttl > 0 && ms.now().After(entry.expiresAt)
}

func (ms *MemoryStore) Delete(_ context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.snapshots, sessionID)
	return nil
}
