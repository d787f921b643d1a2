package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedSessionRepository records which checkout sessions already had
// their notifications dispatched, so redelivered webhooks are not emailed twice.
type ProcessedSessionRepository interface {
	// Claim marks sessionID as being processed. It returns false when the
	// session was already claimed.
	Claim(ctx context.Context, sessionID string) (bool, error)
	// Release forgets a claim so a later delivery may process the session.
	Release(ctx context.Context, sessionID string) error
}

const processedKeyPrefix = "checkout:webhook:session:"

type redisProcessedSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProcessedSessionRepository(client *redis.Client, ttl time.Duration) ProcessedSessionRepository {
	return &redisProcessedSessionRepository{client: client, ttl: ttl}
}

func (r *redisProcessedSessionRepository) Claim(ctx context.Context, sessionID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, processedKeyPrefix+sessionID, time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim session %s: %w", sessionID, err)
	}
	return ok, nil
}

func (r *redisProcessedSessionRepository) Release(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, processedKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("release session %s: %w", sessionID, err)
	}
	return nil
}

// memoryProcessedSessionRepository is used when no Redis is configured. Claims
// are lost on restart and are not shared between replicas.
type memoryProcessedSessionRepository struct {
	mu      sync.Mutex
	claimed map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryProcessedSessionRepository(ttl time.Duration) ProcessedSessionRepository {
	return &memoryProcessedSessionRepository{
		claimed: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *memoryProcessedSessionRepository) Claim(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, at := range m.claimed {
		if now.Sub(at) > m.ttl {
			delete(m.claimed, id)
		}
	}

	if _, exists := m.claimed[sessionID]; exists {
		return false, nil
	}
	m.claimed[sessionID] = now
	return true, nil
}

func (m *memoryProcessedSessionRepository) Release(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, sessionID)
	return nil
}
