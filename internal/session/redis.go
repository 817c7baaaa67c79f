package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/pkg/logger"
	"github.com/lewas-lab/chatbot/pkg/retry"
)

const keyPrefix = "session:"

// RedisStore keeps sessions as JSON documents with a sliding TTL, so several
// server replicas can serve the same browser session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// ConnectRedis opens a client and waits for the server to answer PING.
func ConnectRedis(ctx context.Context, host string, port int, password string, db int) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	cfg := retry.DefaultConfig("redis")
	cfg.Logger = logger.GetLogger()
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", addr))
	return client, nil
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	state.normalize()

	if s.ttl > 0 {
		if err := s.client.Expire(ctx, keyPrefix+id, s.ttl).Err(); err != nil {
			logger.Warn("Failed to refresh session ttl", zap.Error(err))
		}
	}

	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, state *State) error {
	if state == nil || state.ID == "" {
		return errors.New("session id is required")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+state.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	logger.Debug("Session saved", zap.String("session_id", state.ID), zap.Int("messages", len(state.Messages)))
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
