package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/interview"
)

const (
	keyPrefix  = "interview:"
	defaultTTL = 7 * 24 * time.Hour
)

type redisClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisSink pushes transcript entries to a list and stores the final report as a JSON value.
type RedisSink struct {
	client redisClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisSink(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSink {
	return newRedisSink(client, ttl, logger)
}

func newRedisSink(client redisClient, ttl time.Duration, logger *zap.Logger) *RedisSink {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSink{client: client, ttl: ttl, logger: logger}
}

func transcriptKey(sessionID string) string { return keyPrefix + sessionID + ":transcript" }

func reportKey(sessionID string) string { return keyPrefix + sessionID + ":report" }

func (s *RedisSink) Append(ctx context.Context, sessionID string, entry interview.Entry) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	key := transcriptKey(sessionID)
	if err := s.client.RPush(ctx, key, val).Err(); err != nil {
		return fmt.Errorf("push transcript entry: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to refresh transcript ttl", zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

func (s *RedisSink) Write(ctx context.Context, sessionID string, report *interview.Report) error {
	val, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := s.client.Set(ctx, reportKey(sessionID), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
