package shopapi

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoSession indicates an unknown or expired session id.
var ErrNoSession = errors.New("no such session")

// Sessions tracks signed-in admin sessions by opaque id.
type Sessions interface {
	Create(ctx context.Context, userID string) (string, error)
	Lookup(ctx context.Context, sid string) (string, error)
}

// RedisSessions keeps sessions in Redis under "session:<sid>" with a TTL.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessions creates a session tracker with the given TTL.
func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

// Create registers a new session and returns its id.
func (s *RedisSessions) Create(ctx context.Context, userID string) (string, error) {
	sid := uuid.NewString()
	if err := s.client.Set(ctx, "session:"+sid, userID, s.ttl).Err(); err != nil {
		return "", err
	}
	return sid, nil
}

// Lookup resolves a session id to its user id.
func (s *RedisSessions) Lookup(ctx context.Context, sid string) (string, error) {
	userID, err := s.client.Get(ctx, "session:"+sid).Result()
	if err == redis.Nil {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
