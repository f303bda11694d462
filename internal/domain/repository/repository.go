// File: internal/domain/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
)

// FactorRepository is the persistence contract for second factors. A
// single factor row gets atomic read-modify-write semantics from the
// backing store; this service does not serialize per-factor operations
// itself.
type FactorRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*models.Factor, error)
	// FindByID returns ErrFactorNotFound when the factor does not exist
	// or belongs to a different user.
	FindByID(ctx context.Context, id, userID uuid.UUID) (*models.Factor, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	// CountActiveByUser is read fresh per call; callers must not cache it.
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error)
	Create(ctx context.Context, factor *models.Factor) error
	// Save persists name/status/secret changes and reports whether any
	// field actually changed.
	Save(ctx context.Context, factor *models.Factor) (changed bool, err error)
	// Delete removes a factor, refusing with ErrMinimumCountRequired when
	// it is the user's last one.
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// SettingsRepository stores service-level settings, notably the encrypted
// secret-key bundle under the second_factor_secrets key.
type SettingsRepository interface {
	// GetSetting returns ErrNotFound when the key has never been set.
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key string, value string) error
}

// UserRepository is the read-only slice of the CMS user store this
// service consults.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ChallengeStore holds short-lived magic-link challenges. A challenge is
// consumable exactly once.
type ChallengeStore interface {
	// Put stores the challenge digest for a factor, replacing any
	// previous one, bounded by ttl.
	Put(ctx context.Context, factorID uuid.UUID, tokenDigest string, ttl time.Duration) error
	// Take compares the digest against the stored challenge and deletes
	// it on match. Returns false for a missing, expired or non-matching
	// challenge.
	Take(ctx context.Context, factorID uuid.UUID, tokenDigest string) (bool, error)
}

// SessionTrustStore tracks whether an authenticated session is still
// awaiting its second factor.
type SessionTrustStore interface {
	RequireSecondFactor(ctx context.Context, sessionID string, ttl time.Duration) error
	AwaitingSecondFactor(ctx context.Context, sessionID string) (bool, error)
	MarkVerified(ctx context.Context, sessionID string) error
}
