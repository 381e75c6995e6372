package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"drainwatch/backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned by a Store when the session id is unknown or expired.
var ErrNoSession = errors.New("session not found")

// Store persists session id → actor id bindings with an absolute TTL.
type Store interface {
	Save(ctx context.Context, sessionID, actorID string, ttl time.Duration) error
	Lookup(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// RedisStore keeps sessions as plain keys with EXPIRE set once at creation.
// Lookups never touch the TTL, so expiry is absolute.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client, Prefix: "session:"}
}

func (s *RedisStore) Save(ctx context.Context, sessionID, actorID string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, config.RedisOpTimeout)
	defer cancel()
	return s.Client.Set(ctx, s.Prefix+sessionID, actorID, ttl).Err()
}

func (s *RedisStore) Lookup(ctx context.Context, sessionID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.RedisOpTimeout)
	defer cancel()
	actorID, err := s.Client.Get(ctx, s.Prefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	return actorID, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, config.RedisOpTimeout)
	defer cancel()
	return s.Client.Del(ctx, s.Prefix+sessionID).Err()
}

type memoryEntry struct {
	actorID   string
	expiresAt time.Time
}

// MemoryStore is a process-local Store for STORAGE_DRIVER=memory.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, sessionID, actorID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sessionID] = memoryEntry{actorID: actorID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[sessionID]
	if !ok {
		return "", ErrNoSession
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.items, sessionID)
		return "", ErrNoSession
	}
	return e.actorID, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
	return nil
}
