package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix     = "studybud:session:"
	redisUserSessionPrefix = "studybud:user-sessions:"
)

// RedisSessionStore keeps sessions in Redis with a TTL matching their expiry.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore connects to redisURL and verifies the connection.
func NewRedisSessionStore(ctx context.Context, redisURL string) (*RedisSessionStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisSessionStore{client: client}, nil
}

// NewRedisSessionStoreFromClient wraps an existing client.
func NewRedisSessionStoreFromClient(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// Close releases the underlying client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// Save stores the session until it expires.
func (s *RedisSessionStore) Save(ctx context.Context, session Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	userKey := redisUserSessionPrefix + strconv.FormatInt(session.UserID, 10)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisSessionPrefix+session.ID, payload, ttl)
	pipe.SAdd(ctx, userKey, session.ID)
	pipe.Expire(ctx, userKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Find loads a session by id.
func (s *RedisSessionStore) Find(ctx context.Context, id string) (Session, error) {
	payload, err := s.client.Get(ctx, redisSessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// Delete removes a session by id.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, redisSessionPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteByUser removes every session recorded for userID.
func (s *RedisSessionStore) DeleteByUser(ctx context.Context, userID int64) error {
	userKey := redisUserSessionPrefix + strconv.FormatInt(userID, 10)
	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, redisSessionPrefix+id)
	}
	keys = append(keys, userKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}
