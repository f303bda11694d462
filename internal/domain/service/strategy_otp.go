// File: internal/domain/service/strategy_otp.go
package service

import (
	"context"
	"regexp"

	"github.com/google/uuid"

	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
	"github.com/vikaspotluri123/mfa-service/internal/domain/repository"
	"github.com/vikaspotluri123/mfa-service/internal/infrastructure/security"
)

var otpProofPattern = regexp.MustCompile(`^\d{6}$`)

// otpStrategy implements the authenticator-app variant. The secret is the
// base32 TOTP seed, encrypted at rest; the pending context is the
// otpauth:// provisioning URL (it embeds the seed, so it is shown once).
type otpStrategy struct {
	totp    security.TOTPService
	enc     security.EncryptionService
	secrets *SecretStore
	users   repository.UserRepository
}

// NewOTPStrategy creates the authenticator-app strategy.
func NewOTPStrategy(
	totp security.TOTPService,
	enc security.EncryptionService,
	secrets *SecretStore,
	users repository.UserRepository,
) FactorStrategy {
	return &otpStrategy{
		totp:    totp,
		enc:     enc,
		secrets: secrets,
		users:   users,
	}
}

func (s *otpStrategy) Type() models.FactorType {
	return models.FactorTypeOTP
}

func (s *otpStrategy) Generate(ctx context.Context, userID uuid.UUID) (string, string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", "", wrapStrategyError("failed to resolve factor owner", err)
	}

	seedBase32, otpAuthURL, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return "", "", wrapStrategyError("failed to generate OTP seed", err)
	}

	key, err := s.secrets.KeyFor(ctx, s.Type())
	if err != nil {
		return "", "", wrapStrategyError("failed to resolve encryption key", err)
	}

	secret, err := s.enc.Encrypt(seedBase32, key)
	if err != nil {
		return "", "", wrapStrategyError("failed to encrypt OTP seed", err)
	}

	return secret, otpAuthURL, nil
}

func (s *otpStrategy) CheckProof(factor *models.Factor, proof string, forActivation bool) error {
	if !otpProofPattern.MatchString(proof) {
		return newStrategyError("proof must be a 6-digit code", true)
	}
	return nil
}

func (s *otpStrategy) Prepare(ctx context.Context, factor *models.Factor, proof string) (PrepareResult, error) {
	return PrepareResult{Kind: PrepareNone}, nil
}

func (s *otpStrategy) Validate(ctx context.Context, factor *models.Factor, proof string) (bool, error) {
	key, err := s.secrets.KeyFor(ctx, s.Type())
	if err != nil {
		return false, wrapStrategyError("failed to resolve encryption key", err)
	}

	seedBase32, err := s.enc.Decrypt(factor.Secret, key)
	if err != nil {
		// Undecryptable secret means a corrupt record or rotated key,
		// never a user mistake.
		return false, wrapStrategyError("stored OTP seed cannot be decrypted", err)
	}

	valid, err := s.totp.ValidateCode(seedBase32, proof)
	if err != nil {
		return false, wrapStrategyError("OTP validation failed", err)
	}
	return valid, nil
}

var _ FactorStrategy = (*otpStrategy)(nil)
