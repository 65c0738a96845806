package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-orchestrator-be/internal/entity"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// SessionCache is the shared fast tier. Entries are JSON and expire after
// ttl without a read; Get slides the expiry with GETEX.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionCache{client: client, ttl: ttl}
}

func redisKey(key entity.SessionKey) string {
	return keyPrefix + key.String()
}

func (c *SessionCache) Get(ctx context.Context, key entity.SessionKey) (*entity.Session, error) {
	raw, err := c.client.GetEx(ctx, redisKey(key), c.ttl).Bytes()
	return decode(raw, err)
}

func (c *SessionCache) Peek(ctx context.Context, key entity.SessionKey) (*entity.Session, error) {
	raw, err := c.client.Get(ctx, redisKey(key)).Bytes()
	return decode(raw, err)
}

func (c *SessionCache) Set(ctx context.Context, session *entity.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return c.client.Set(ctx, redisKey(session.Key), raw, c.ttl).Err()
}

func (c *SessionCache) Delete(ctx context.Context, key entity.SessionKey) error {
	return c.client.Del(ctx, redisKey(key)).Err()
}

func decode(raw []byte, err error) (*entity.Session, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session entity.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if session.Turns == nil {
		session.Turns = []entity.Turn{}
	}
	return &session, nil
}
