// File: internal/domain/service/strategy.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
)

// PrepareKind classifies the result of a strategy's Prepare step.
type PrepareKind int

const (
	// PrepareNone means validation can proceed immediately.
	PrepareNone PrepareKind = iota
	// PrepareChallengeSent means a challenge was delivered out-of-band;
	// the caller must resubmit with a follow-up proof.
	PrepareChallengeSent
)

// PrepareResult is what a strategy's Prepare step produced.
type PrepareResult struct {
	Kind    PrepareKind
	Message string
}

// FactorStrategy encapsulates one second-factor variant: how to generate
// a secret, gate proof formats, prepare a challenge and validate a proof.
// Implementations are value types dispatched by the factor's type field.
type FactorStrategy interface {
	Type() models.FactorType

	// Generate produces a new secret (encrypted at rest) and the
	// one-time-revealable context payload for a pending factor.
	Generate(ctx context.Context, userID uuid.UUID) (secret string, shareContext string, err error)

	// CheckProof gates the proof format before Validate runs, so
	// malformed proofs are rejected uniformly as client errors without
	// touching stored state.
	CheckProof(factor *models.Factor, proof string, forActivation bool) error

	// Prepare runs the pre-validation step. Only the magic-link variant
	// ever returns PrepareChallengeSent.
	Prepare(ctx context.Context, factor *models.Factor, proof string) (PrepareResult, error)

	// Validate checks the proof against the stored secret. It never
	// fails on proof format; CheckProof has already run.
	Validate(ctx context.Context, factor *models.Factor, proof string) (bool, error)
}

// StrategyError is a strategy-level failure. UserFacing marks errors
// whose message may be shown to the client; everything else is classified
// as an internal error at the service boundary.
type StrategyError struct {
	Message    string
	UserFacing bool
	cause      error
}

func (e *StrategyError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *StrategyError) Unwrap() error {
	return e.cause
}

func newStrategyError(message string, userFacing bool) *StrategyError {
	return &StrategyError{Message: message, UserFacing: userFacing}
}

func wrapStrategyError(message string, cause error) *StrategyError {
	return &StrategyError{Message: message, cause: cause}
}

// IsUserFacing reports whether err carries a message meant for the
// client. This is the single classification predicate used at the
// service boundary.
func IsUserFacing(err error) bool {
	var strategyErr *StrategyError
	return errors.As(err, &strategyErr) && strategyErr.UserFacing
}

// StrategyRegistry dispatches factor types to their strategy.
type StrategyRegistry struct {
	strategies map[models.FactorType]FactorStrategy
}

// NewStrategyRegistry builds a registry from the given strategies.
func NewStrategyRegistry(strategies ...FactorStrategy) *StrategyRegistry {
	registry := &StrategyRegistry{
		strategies: make(map[models.FactorType]FactorStrategy, len(strategies)),
	}
	for _, strategy := range strategies {
		registry.strategies[strategy.Type()] = strategy
	}
	return registry
}

// StrategyFor returns the strategy for a factor type, failing closed on
// unknown types.
func (r *StrategyRegistry) StrategyFor(factorType models.FactorType) (FactorStrategy, error) {
	strategy, ok := r.strategies[factorType]
	if !ok {
		return nil, newStrategyError(fmt.Sprintf("unknown second factor type %q", factorType), true)
	}
	return strategy, nil
}
