// File: internal/domain/repository/redis/challenge_cache.go
package redis

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vikaspotluri123/mfa-service/internal/domain/repository"
)

// ChallengeCache holds magic-link challenge digests in Redis, one per
// factor, bounded by the token TTL. Only the digest is stored; the raw
// token exists solely in the emailed link.
type ChallengeCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewChallengeCache creates a new ChallengeCache.
func NewChallengeCache(client *redis.Client, logger *zap.Logger) *ChallengeCache {
	return &ChallengeCache{
		client: client,
		logger: logger,
	}
}

func challengeKey(factorID uuid.UUID) string {
	return fmt.Sprintf("mfa:challenge:%s", factorID.String())
}

// Put stores the challenge digest, replacing any previous challenge for
// the factor. Issuing a new link invalidates the old one.
func (c *ChallengeCache) Put(ctx context.Context, factorID uuid.UUID, tokenDigest string, ttl time.Duration) error {
	if err := c.client.Set(ctx, challengeKey(factorID), tokenDigest, ttl).Err(); err != nil {
		c.logger.Error("Failed to store challenge", zap.Error(err), zap.String("factor_id", factorID.String()))
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Take compares the digest against the stored challenge and deletes it on
// match, so each issued token verifies at most once. A missing or expired
// challenge is not an error, just a failed match.
func (c *ChallengeCache) Take(ctx context.Context, factorID uuid.UUID, tokenDigest string) (bool, error) {
	key := challengeKey(factorID)
	stored, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		c.logger.Error("Failed to read challenge", zap.Error(err), zap.String("factor_id", factorID.String()))
		return false, fmt.Errorf("failed to read challenge: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(tokenDigest)) != 1 {
		return false, nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Failed to consume challenge", zap.Error(err), zap.String("factor_id", factorID.String()))
		return false, fmt.Errorf("failed to consume challenge: %w", err)
	}
	return true, nil
}

var _ repository.ChallengeStore = (*ChallengeCache)(nil)
