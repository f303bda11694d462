// File: internal/domain/service/session_gate.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vikaspotluri123/mfa-service/internal/domain/repository"
)

// SessionGate tracks whether an authenticated session is fully trusted
// or still awaiting its second factor. Serialization paths take the
// inverse (isTrusted) to decide what sensitive fields to reveal; today
// only the universal pending-context rule gates anything, but the
// contract stays pluggable.
type SessionGate struct {
	store  repository.SessionTrustStore
	logger *zap.Logger
	ttl    time.Duration
}

// NewSessionGate creates a SessionGate. ttl bounds how long a session may
// stay in the awaiting state.
func NewSessionGate(store repository.SessionTrustStore, logger *zap.Logger, ttl time.Duration) *SessionGate {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionGate{
		store:  store,
		logger: logger,
		ttl:    ttl,
	}
}

// RequireSecondFactor flags the session as awaiting a second factor.
// Called by the sign-in collaborator when an MFA-enabled user
// authenticates with their first factor.
func (g *SessionGate) RequireSecondFactor(ctx context.Context, sessionID string) error {
	return g.store.RequireSecondFactor(ctx, sessionID, g.ttl)
}

// AwaitingSecondFactor reports whether the session still has to present
// a second factor. Store failures fail closed: the session is treated as
// awaiting.
func (g *SessionGate) AwaitingSecondFactor(ctx context.Context, sessionID string) bool {
	awaiting, err := g.store.AwaitingSecondFactor(ctx, sessionID)
	if err != nil {
		g.logger.Error("Failed to read session trust state", zap.Error(err))
		return true
	}
	return awaiting
}

// IsTrusted is the serialization-facing view of the flag.
func (g *SessionGate) IsTrusted(ctx context.Context, sessionID string) bool {
	return !g.AwaitingSecondFactor(ctx, sessionID)
}

// MarkVerified clears the awaiting flag after a completed proof.
func (g *SessionGate) MarkVerified(ctx context.Context, sessionID string) error {
	return g.store.MarkVerified(ctx, sessionID)
}
