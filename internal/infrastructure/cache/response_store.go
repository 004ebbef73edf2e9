package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/schoolfund/backend/internal/domain/shared"
)

const defaultResponsePrefix = "fund:idempotency:response:"

// StoredResponse is a completed response kept for Idempotency-Key replays
type StoredResponse struct {
	Fingerprint string    `json:"fingerprint"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	StoredAt    time.Time `json:"stored_at"`
}

// ResponseStore keeps completed responses by idempotency key.
// Get returns nil without error when nothing is stored.
type ResponseStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Put(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error
}

// RedisResponseStore shares replayable responses across instances
type RedisResponseStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisResponseStore wraps client
func NewRedisResponseStore(client redis.UniversalClient, keyPrefix string) *RedisResponseStore {
	if keyPrefix == "" {
		keyPrefix = defaultResponsePrefix
	}
	return &RedisResponseStore{client: client, keyPrefix: keyPrefix}
}

// Get loads the response stored under key
func (s *RedisResponseStore) Get(ctx context.Context, key string) (*StoredResponse, error) {
	raw, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stored response: %w", err)
	}
	var resp StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode stored response: %w", err)
	}
	return &resp, nil
}

// Put stores resp under key for ttl
func (s *RedisResponseStore) Put(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store response: %w", err)
	}
	return nil
}

// InMemoryResponseStore is the single-instance ResponseStore
type InMemoryResponseStore struct {
	mu      sync.RWMutex
	entries map[string]memoryResponse
	now     func() time.Time
}

type memoryResponse struct {
	resp      StoredResponse
	expiresAt time.Time
}

// NewInMemoryResponseStore creates an empty store
func NewInMemoryResponseStore() *InMemoryResponseStore {
	return &InMemoryResponseStore{
		entries: make(map[string]memoryResponse),
		now:     time.Now,
	}
}

// Get returns a copy of the stored response unless it has expired
func (s *InMemoryResponseStore) Get(_ context.Context, key string) (*StoredResponse, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || !s.now().Before(entry.expiresAt) {
		return nil, nil
	}
	resp := entry.resp
	resp.Body = append([]byte(nil), entry.resp.Body...)
	return &resp, nil
}

// Put stores a copy of resp and drops expired entries
func (s *InMemoryResponseStore) Put(_ context.Context, key string, resp *StoredResponse, ttl time.Duration) error {
	copied := *resp
	copied.Body = append([]byte(nil), resp.Body...)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = memoryResponse{resp: copied, expiresAt: now.Add(ttl)}
	return nil
}

// ResponseStoreFor pairs a response store with the claim store: Redis claims
// get a Redis response store on the same client, anything else stays in memory.
func ResponseStoreFor(claims shared.IdempotencyStore) ResponseStore {
	if rs, ok := claims.(*RedisIdempotencyStore); ok {
		return NewRedisResponseStore(rs.Client(), "")
	}
	return NewInMemoryResponseStore()
}

var (
	_ ResponseStore = (*RedisResponseStore)(nil)
	_ ResponseStore = (*InMemoryResponseStore)(nil)
)
