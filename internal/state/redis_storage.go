package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPattern  = "conversation:state:%d"
	sessionScanPattern = "conversation:state:*"
	sessionScanBatch   = 100
)

// RedisStorage persists conversation sessions in Redis.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage initializes a Redis-backed Storage. A zero ttl keeps keys forever.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// Get returns the stored session or ErrStateNotFound when absent.
func (s *RedisStorage) Get(ctx context.Context, conversationID int64) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}

		s.log.Error("failed to get session from redis", "conversation_id", conversationID, "error", err)
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.log.Error("failed to decode session", "conversation_id", conversationID, "error", err)
		return nil, err
	}

	return &session, nil
}

// Set saves the session with the configured TTL.
func (s *RedisStorage) Set(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}

	stored := session.Clone()
	stored.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(stored)
	if err != nil {
		s.log.Error("failed to encode session", "conversation_id", stored.ConversationID, "error", err)
		return err
	}

	if err := s.client.Set(ctx, sessionKey(stored.ConversationID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save session in redis", "conversation_id", stored.ConversationID, "error", err)
		return err
	}

	return nil
}

// Clear removes the stored session.
func (s *RedisStorage) Clear(ctx context.Context, conversationID int64) error {
	if err := s.client.Del(ctx, sessionKey(conversationID)).Err(); err != nil {
		s.log.Error("failed to clear session", "conversation_id", conversationID, "error", err)
		return err
	}

	return nil
}

// List retrieves every stored session by scanning Redis keys.
func (s *RedisStorage) List(ctx context.Context) ([]*Session, error) {
	var (
		cursor uint64
		result []*Session
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, sessionScanPattern, sessionScanBatch).Result()
		if err != nil {
			s.log.Error("failed to scan sessions", "error", err)
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch session", "key", key, "error", err)
				return nil, err
			}

			var session Session
			if err := json.Unmarshal(data, &session); err != nil {
				s.log.Error("failed to decode session", "key", key, "error", err)
				continue
			}

			result = append(result, &session)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

// HealthCheck pings Redis.
func (s *RedisStorage) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return redis.ErrClosed
	}
	return s.client.Ping(ctx).Err()
}

func sessionKey(conversationID int64) string {
	return fmt.Sprintf(sessionKeyPattern, conversationID)
}
