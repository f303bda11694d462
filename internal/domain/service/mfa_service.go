// File: internal/domain/service/mfa_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/vikaspotluri123/mfa-service/internal/domain/errors"
	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
	"github.com/vikaspotluri123/mfa-service/internal/domain/repository"
	"github.com/vikaspotluri123/mfa-service/internal/events/kafka"
	"github.com/vikaspotluri123/mfa-service/internal/utils/metrics"
)

// ValidationOutcome is the result of a proof submission. Complete=false
// with Success=true means a challenge was sent and the caller must
// resubmit with a follow-up proof.
type ValidationOutcome struct {
	Success  bool   `json:"success"`
	Complete bool   `json:"complete"`
	Message  string `json:"message,omitempty"`
	Status   string `json:"status,omitempty"`
}

// MfaService orchestrates the second-factor lifecycle: factor creation,
// activation, proof validation, status transition guarding and
// trust-aware serialization. Construct it explicitly with NewMfaService;
// there is no lazy singleton.
type MfaService struct {
	factors  repository.FactorRepository
	users    repository.UserRepository
	registry *StrategyRegistry
	secrets  *SecretStore
	events   kafka.Publisher
	logger   *zap.Logger
}

// NewMfaService creates a new MfaService.
func NewMfaService(
	factors repository.FactorRepository,
	users repository.UserRepository,
	registry *StrategyRegistry,
	secrets *SecretStore,
	events kafka.Publisher,
	logger *zap.Logger,
) *MfaService {
	return &MfaService{
		factors:  factors,
		users:    users,
		registry: registry,
		secrets:  secrets,
		events:   events,
		logger:   logger,
	}
}

// RegisterFactor creates a new pending factor of the given type,
// enforcing the per-user cap before creation. The returned factor carries
// the one-time-revealable context.
func (s *MfaService) RegisterFactor(ctx context.Context, userID uuid.UUID, factorType models.FactorType, name string) (*models.Factor, error) {
	count, err := s.factors.CountByUser(ctx, userID)
	if err != nil {
		return nil, s.internal(err, "failed to count factors")
	}
	if count >= models.MaxFactorsPerUser {
		return nil, domainErrors.ErrFactorCountReached
	}

	strategy, err := s.registry.StrategyFor(factorType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domainErrors.ErrUnknownFactorType, factorType)
	}

	secret, shareContext, err := strategy.Generate(ctx, userID)
	if err != nil {
		if IsUserFacing(err) {
			return nil, domainErrors.Validation(err.Error())
		}
		return nil, s.internal(err, "factor generation failed")
	}

	factor := &models.Factor{
		ID:      uuid.New(),
		UserID:  userID,
		Name:    strings.TrimSpace(name),
		Type:    factorType,
		Status:  models.FactorStatusPending,
		Secret:  secret,
		Context: shareContext,
	}

	if err := s.factors.Create(ctx, factor); err != nil {
		return nil, s.internal(err, "failed to persist factor")
	}

	// Kick off the initial challenge where the variant needs one (the
	// magic-link activation token is delivered by email); for the other
	// variants this is a no-op.
	if _, err := strategy.Prepare(ctx, factor, ""); err != nil {
		s.logger.Warn("Initial challenge preparation failed",
			zap.Error(err), zap.String("factor_id", factor.ID.String()))
	}

	metrics.FactorsCreatedTotal.WithLabelValues(string(factorType)).Inc()
	s.events.PublishFactorEvent(ctx, kafka.EventFactorCreated, s.eventPayload(factor))

	return factor, nil
}

// ListFactors returns every factor the user has registered.
func (s *MfaService) ListFactors(ctx context.Context, userID uuid.UUID) ([]*models.Factor, error) {
	factors, err := s.factors.FindByUser(ctx, userID)
	if err != nil {
		return nil, s.internal(err, "failed to list factors")
	}
	return factors, nil
}

// GetFactor returns one factor owned by the user.
func (s *MfaService) GetFactor(ctx context.Context, id, userID uuid.UUID) (*models.Factor, error) {
	return s.factors.FindByID(ctx, id, userID)
}

// FactorUpdate carries the editable fields; nil means leave unchanged.
type FactorUpdate struct {
	Name   *string
	Status *models.FactorStatus
}

// UpdateFactor applies a name and/or status edit. Status changes run the
// transition assertion and the lock-out guard before anything is written.
// Returns whether a change was actually persisted.
func (s *MfaService) UpdateFactor(ctx context.Context, id, userID uuid.UUID, update FactorUpdate) (*models.Factor, bool, error) {
	factor, err := s.factors.FindByID(ctx, id, userID)
	if err != nil {
		return nil, false, err
	}

	if update.Status != nil {
		if err := s.AssertStatusTransition(factor, *update.Status); err != nil {
			return nil, false, err
		}
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, false, s.internal(err, "failed to resolve factor owner")
		}
		if err := s.EnsureStatusChangeWillNotCauseLockOut(ctx, user, *update.Status); err != nil {
			return nil, false, err
		}
		factor.Status = *update.Status
	}
	if update.Name != nil {
		factor.Name = strings.TrimSpace(*update.Name)
	}

	changed, err := s.factors.Save(ctx, factor)
	if err != nil {
		return nil, false, s.internal(err, "failed to persist factor edit")
	}

	if changed && update.Status != nil {
		eventType := kafka.EventFactorActivated
		if *update.Status == models.FactorStatusDisabled {
			eventType = kafka.EventFactorDisabled
		}
		s.events.PublishFactorEvent(ctx, eventType, s.eventPayload(factor))
	}

	return factor, changed, nil
}

// AssertStatusTransition checks that moving factor to nextStatus is
// legal. Legal transitions: pending->active, active->disabled,
// disabled->active. Destroying a pending factor is a deletion, not a
// transition.
func (s *MfaService) AssertStatusTransition(factor *models.Factor, nextStatus models.FactorStatus) error {
	if !nextStatus.Valid() {
		return domainErrors.Validation(fmt.Sprintf("unknown status %q", nextStatus))
	}

	allowed := map[models.FactorStatus]models.FactorStatus{
		models.FactorStatusPending:  models.FactorStatusActive,
		models.FactorStatusActive:   models.FactorStatusDisabled,
		models.FactorStatusDisabled: models.FactorStatusActive,
	}
	if allowed[factor.Status] != nextStatus {
		return fmt.Errorf("%w: cannot transition from %s to %s",
			domainErrors.ErrIllegalTransition, factor.Status, nextStatus)
	}
	return nil
}

// ValidateSecondFactor checks a proof against a stored factor. With
// forActivation, the pending status is allowed and failures are client
// errors; in a login context failures are unauthorized errors. The
// in-flight proof is request-scoped; nothing about the handshake is
// persisted.
func (s *MfaService) ValidateSecondFactor(ctx context.Context, factor *models.Factor, proof string, forActivation bool) (*ValidationOutcome, error) {
	strategy, err := s.coerce(factor)
	if err != nil {
		return nil, err
	}

	if !forActivation && factor.Status != models.FactorStatusActive {
		return nil, domainErrors.ErrFactorNotActive
	}

	prepared, err := strategy.Prepare(ctx, factor, proof)
	if err != nil {
		return nil, s.classifyStrategyFailure(err)
	}

	switch prepared.Kind {
	case PrepareChallengeSent:
		metrics.VerificationAttemptsTotal.WithLabelValues(string(factor.Type), "challenge_sent").Inc()
		return &ValidationOutcome{Success: true, Complete: false, Message: prepared.Message}, nil
	case PrepareNone:
		// proceed to validation
	default:
		return nil, s.internal(fmt.Errorf("unknown preparation response %d", prepared.Kind), "unknown preparation response")
	}

	// Format errors return before any stored state is touched.
	if err := strategy.CheckProof(factor, proof, forActivation); err != nil {
		metrics.VerificationAttemptsTotal.WithLabelValues(string(factor.Type), "failure").Inc()
		return nil, domainErrors.BadRequest(userFacingMessage(err, "invalid proof format"))
	}

	secretBefore := factor.Secret
	valid, err := strategy.Validate(ctx, factor, proof)
	if err != nil {
		return nil, s.classifyStrategyFailure(err)
	}

	if !valid {
		metrics.VerificationAttemptsTotal.WithLabelValues(string(factor.Type), "failure").Inc()
		if forActivation {
			// A failed activation proof leaves the factor pending.
			return nil, domainErrors.BadRequest("factor secret is invalid")
		}
		return nil, domainErrors.ErrInvalidProof
	}

	// Consuming validations (backup codes) rewrite the stored secret.
	if factor.Secret != secretBefore {
		if _, err := s.factors.Save(ctx, factor); err != nil {
			return nil, s.internal(err, "failed to persist consumed proof")
		}
	}

	metrics.VerificationAttemptsTotal.WithLabelValues(string(factor.Type), "success").Inc()

	status := "created"
	if forActivation {
		status = "activated"
	}
	return &ValidationOutcome{Success: true, Complete: true, Status: status}, nil
}

// ActivatePendingFactor performs the one-time activation proof check and
// commits the pending->active transition. Returns whether a change was
// written.
func (s *MfaService) ActivatePendingFactor(ctx context.Context, factor *models.Factor, proof string) (bool, error) {
	if _, err := s.coerce(factor); err != nil {
		return false, err
	}

	if factor.Status != models.FactorStatusPending {
		return false, domainErrors.BadRequest(fmt.Sprintf(
			"this second factor is %s, there is no need to provide verification for activation", factor.Status))
	}

	if err := s.AssertStatusTransition(factor, models.FactorStatusActive); err != nil {
		return false, err
	}

	outcome, err := s.ValidateSecondFactor(ctx, factor, proof, true)
	if err != nil {
		return false, err
	}

	if !outcome.Complete {
		// Activation proofs are synchronous; a challenge-send here is an
		// internal inconsistency, not a user mistake.
		return false, s.internal(fmt.Errorf("outcome message: %s", outcome.Message),
			"validation did not error or confirm completion")
	}

	factor.Status = models.FactorStatusActive
	changed, err := s.factors.Save(ctx, factor)
	if err != nil {
		return false, s.internal(err, "failed to persist activation")
	}

	metrics.FactorsActivatedTotal.WithLabelValues(string(factor.Type)).Inc()
	s.events.PublishFactorEvent(ctx, kafka.EventFactorActivated, s.eventPayload(factor))

	return changed, nil
}

// SerializeForAPI maps factors to their public views. Context is revealed
// only while a factor is pending; isTrusted exists for fields that may be
// gated by session trust in the future and never overrides the pending
// rule.
func (s *MfaService) SerializeForAPI(factors []*models.Factor, isTrusted bool) []models.PublicFactor {
	views := make([]models.PublicFactor, len(factors))
	for i, factor := range factors {
		views[i] = models.PublicFactor{
			ID:     factor.ID,
			Name:   factor.Name,
			Type:   factor.Type,
			Status: factor.Status,
		}
		if factor.Status == models.FactorStatusPending {
			views[i].Context = factor.Context
		}
	}
	return views
}

// EnsureStatusChangeWillNotCauseLockOut refuses a status change that
// would leave a user with MFA enabled and no active factor. The active
// count is read fresh on every call; the read-then-write window with a
// concurrent edit is a documented, accepted race.
func (s *MfaService) EnsureStatusChangeWillNotCauseLockOut(ctx context.Context, user *models.User, newStatus models.FactorStatus) error {
	if !user.MFAEnabled || newStatus == models.FactorStatusActive {
		return nil
	}

	activeCount, err := s.factors.CountActiveByUser(ctx, user.ID)
	if err != nil {
		return s.internal(err, "failed to count active factors")
	}

	if activeCount <= 1 {
		metrics.LockoutPreventionsTotal.Inc()
		return domainErrors.ErrLockOut
	}
	return nil
}

// RemoveFactor deletes a factor, blocked when it is the user's last one.
func (s *MfaService) RemoveFactor(ctx context.Context, id, userID uuid.UUID) error {
	factor, err := s.factors.FindByID(ctx, id, userID)
	if err != nil {
		return err
	}

	if factor.Status == models.FactorStatusActive {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return s.internal(err, "failed to resolve factor owner")
		}
		if err := s.EnsureStatusChangeWillNotCauseLockOut(ctx, user, models.FactorStatusDisabled); err != nil {
			return err
		}
	}

	if err := s.factors.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.events.PublishFactorEvent(ctx, kafka.EventFactorRemoved, s.eventPayload(factor))
	return nil
}

// SyncSecrets provisions any missing per-strategy keys and returns the
// serialized bundle. Idempotent; runs at migration/setup time.
func (s *MfaService) SyncSecrets(ctx context.Context) (string, error) {
	return s.secrets.Sync(ctx)
}

// coerce is the deserialization boundary between persisted records and
// typed strategies: it fails closed on unknown shapes.
func (s *MfaService) coerce(factor *models.Factor) (FactorStrategy, error) {
	if factor == nil || factor.ID == uuid.Nil {
		return nil, s.internal(fmt.Errorf("factor record is incomplete"), "stored factor has an unknown shape")
	}
	if !factor.Status.Valid() {
		return nil, s.internal(fmt.Errorf("unknown status %q", factor.Status), "stored factor has an unknown shape")
	}
	strategy, err := s.registry.StrategyFor(factor.Type)
	if err != nil {
		return nil, s.internal(err, "stored factor has an unknown type")
	}
	return strategy, nil
}

// classifyStrategyFailure maps a strategy error to the API taxonomy:
// user-facing messages become client errors, everything else an internal
// error whose detail stays in the logs.
func (s *MfaService) classifyStrategyFailure(err error) error {
	if IsUserFacing(err) {
		return domainErrors.BadRequest(err.Error())
	}
	return s.internal(err, "second factor strategy failed")
}

// internal logs the cause and returns an opaque internal error; the
// original message never reaches the client.
func (s *MfaService) internal(err error, message string) error {
	s.logger.Error(message, zap.Error(err))
	return fmt.Errorf("%w: %s", domainErrors.ErrInternal, message)
}

func userFacingMessage(err error, fallback string) string {
	var strategyErr *StrategyError
	if errors.As(err, &strategyErr) && strategyErr.UserFacing {
		return strategyErr.Message
	}
	return fallback
}

func (s *MfaService) eventPayload(factor *models.Factor) kafka.FactorEventPayload {
	return kafka.FactorEventPayload{
		FactorID:   factor.ID,
		UserID:     factor.UserID,
		FactorType: string(factor.Type),
		Status:     string(factor.Status),
		OccurredAt: time.Now().UTC(),
	}
}
