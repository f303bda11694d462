// File: internal/domain/repository/redis/session_trust_cache.go
package redis

import (
	"context"
	"fmt"

	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/vikaspotluri123/mfa-service/internal/domain/repository"
)

// SessionTrustCache tracks which sessions are still awaiting a second
// factor. Absence of the key means the session is fully trusted.
type SessionTrustCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSessionTrustCache creates a new SessionTrustCache.
func NewSessionTrustCache(client *redis.Client, logger *zap.Logger) *SessionTrustCache {
	return &SessionTrustCache{
		client: client,
		logger: logger,
	}
}

func trustKey(sessionID string) string {
	return fmt.Sprintf("mfa:session:%s:awaiting", sessionID)
}

func (c *SessionTrustCache) RequireSecondFactor(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, trustKey(sessionID), "1", ttl).Err(); err != nil {
		c.logger.Error("Failed to flag session as awaiting second factor", zap.Error(err))
		return fmt.Errorf("failed to flag session: %w", err)
	}
	return nil
}

func (c *SessionTrustCache) AwaitingSecondFactor(ctx context.Context, sessionID string) (bool, error) {
	_, err := c.client.Get(ctx, trustKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		c.logger.Error("Failed to read session trust flag", zap.Error(err))
		return false, fmt.Errorf("failed to read session flag: %w", err)
	}
	return true, nil
}

func (c *SessionTrustCache) MarkVerified(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, trustKey(sessionID)).Err(); err != nil {
		c.logger.Error("Failed to clear session trust flag", zap.Error(err))
		return fmt.Errorf("failed to clear session flag: %w", err)
	}
	return nil
}

var _ repository.SessionTrustStore = (*SessionTrustCache)(nil)
