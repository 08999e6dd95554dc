// Package sessionstore tracks revoked session tokens until they expire.
package sessionstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"billbuddy/pkg/utils"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const keyPrefix = "billbuddy:revoked:"

type Redis struct {
	client *redis.Client
}

// New connects to Redis at url. When url is empty or Redis does not answer,
// it logs a warning and returns an in-memory store instead.
func New(ctx context.Context, url string) Store {
	if url == "" {
		utils.Logger.Warn("REDIS_URL not set, keeping revoked sessions in memory")
		return NewMemory()
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		utils.Logger.WithError(err).Warn("invalid REDIS_URL, keeping revoked sessions in memory")
		return NewMemory()
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		utils.Logger.WithError(err).Warn("Redis not available, keeping revoked sessions in memory")
		client.Close()
		return NewMemory()
	}

	utils.Logger.Info("Redis connected successfully")
	return &Redis{client: client}
}

func (r *Redis) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (r *Redis) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Memory is a process-local Store.
type Memory struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{revoked: map[string]time.Time{}, now: time.Now}
}

func (m *Memory) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, id)
		}
	}
	if expiresAt.After(now) {
		m.revoked[tokenID] = expiresAt
	}
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.revoked[tokenID]
	return ok && exp.After(m.now()), nil
}
