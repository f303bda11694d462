// File: internal/domain/service/strategy_backup_code.go
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
	"github.com/vikaspotluri123/mfa-service/internal/infrastructure/security"
)

// AcknowledgementProof is the fixed activation proof for backup-code
// factors. Backup codes exist for future incidents, not to prove the
// current login, so activation only requires acknowledging receipt.
const AcknowledgementProof = "acknowledged"

const backupCodeDigits = 12

var (
	backupCodePattern = regexp.MustCompile(`^\d{12}$`)
	nonDigitPattern   = regexp.MustCompile(`[^\d]`)
)

// backupCodeStrategy implements single-use recovery codes. The stored
// secret is the encrypted JSON list of unused codes; validation consumes
// the matched code.
type backupCodeStrategy struct {
	enc       security.EncryptionService
	secrets   *SecretStore
	codeCount int
}

// NewBackupCodeStrategy creates the backup-code strategy.
func NewBackupCodeStrategy(enc security.EncryptionService, secrets *SecretStore, codeCount int) FactorStrategy {
	if codeCount <= 0 {
		codeCount = 10
	}
	return &backupCodeStrategy{
		enc:       enc,
		secrets:   secrets,
		codeCount: codeCount,
	}
}

func (s *backupCodeStrategy) Type() models.FactorType {
	return models.FactorTypeBackupCode
}

func (s *backupCodeStrategy) Generate(ctx context.Context, userID uuid.UUID) (string, string, error) {
	codes := make([]string, s.codeCount)
	for i := range codes {
		code, err := generateBackupCode()
		if err != nil {
			return "", "", wrapStrategyError("failed to generate backup code", err)
		}
		codes[i] = code
	}

	secret, err := s.sealCodes(ctx, codes)
	if err != nil {
		return "", "", err
	}

	display := make([]string, len(codes))
	for i, code := range codes {
		display[i] = formatBackupCode(code)
	}
	shareContext, err := json.Marshal(display)
	if err != nil {
		return "", "", wrapStrategyError("failed to serialize backup codes", err)
	}

	return secret, string(shareContext), nil
}

func (s *backupCodeStrategy) CheckProof(factor *models.Factor, proof string, forActivation bool) error {
	if forActivation {
		if proof != AcknowledgementProof {
			return newStrategyError(
				fmt.Sprintf("activation requires the %q acknowledgement", AcknowledgementProof), true)
		}
		return nil
	}
	if !backupCodePattern.MatchString(normalizeBackupCode(proof)) {
		return newStrategyError("proof must be a 12-digit backup code", true)
	}
	return nil
}

func (s *backupCodeStrategy) Prepare(ctx context.Context, factor *models.Factor, proof string) (PrepareResult, error) {
	return PrepareResult{Kind: PrepareNone}, nil
}

// Validate consumes the matched code: the remaining list is re-encrypted
// into factor.Secret and the caller persists it, making each code
// single-use.
func (s *backupCodeStrategy) Validate(ctx context.Context, factor *models.Factor, proof string) (bool, error) {
	if factor.Status == models.FactorStatusPending && proof == AcknowledgementProof {
		return true, nil
	}

	codes, err := s.openCodes(ctx, factor.Secret)
	if err != nil {
		return false, err
	}

	candidate := normalizeBackupCode(proof)
	matched := -1
	for i, code := range codes {
		// Scan the whole list regardless of an earlier match.
		if subtle.ConstantTimeCompare([]byte(code), []byte(candidate)) == 1 && matched < 0 {
			matched = i
		}
	}
	if matched < 0 {
		return false, nil
	}

	remaining := append(codes[:matched], codes[matched+1:]...)
	secret, err := s.sealCodes(ctx, remaining)
	if err != nil {
		return false, err
	}
	factor.Secret = secret

	return true, nil
}

func (s *backupCodeStrategy) sealCodes(ctx context.Context, codes []string) (string, error) {
	payload, err := json.Marshal(codes)
	if err != nil {
		return "", wrapStrategyError("failed to serialize backup codes", err)
	}
	key, err := s.secrets.KeyFor(ctx, s.Type())
	if err != nil {
		return "", wrapStrategyError("failed to resolve encryption key", err)
	}
	secret, err := s.enc.Encrypt(string(payload), key)
	if err != nil {
		return "", wrapStrategyError("failed to encrypt backup codes", err)
	}
	return secret, nil
}

// openCodes is the strict deserialization boundary for the stored
// payload; anything undecodable fails closed as an internal error.
func (s *backupCodeStrategy) openCodes(ctx context.Context, secret string) ([]string, error) {
	key, err := s.secrets.KeyFor(ctx, s.Type())
	if err != nil {
		return nil, wrapStrategyError("failed to resolve encryption key", err)
	}
	payload, err := s.enc.Decrypt(secret, key)
	if err != nil {
		return nil, wrapStrategyError("stored backup codes cannot be decrypted", err)
	}
	var codes []string
	if err := json.Unmarshal([]byte(payload), &codes); err != nil {
		return nil, wrapStrategyError("stored backup codes have an unknown shape", err)
	}
	for _, code := range codes {
		if !backupCodePattern.MatchString(code) {
			return nil, newStrategyError("stored backup codes have an unknown shape", false)
		}
	}
	return codes, nil
}

func generateBackupCode() (string, error) {
	var b strings.Builder
	for i := 0; i < backupCodeDigits; i++ {
		digit, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", digit.Int64())
	}
	return b.String(), nil
}

// formatBackupCode groups the digits for display: 1234-5678-9012.
func formatBackupCode(code string) string {
	return code[0:4] + "-" + code[4:8] + "-" + code[8:12]
}

func normalizeBackupCode(proof string) string {
	return nonDigitPattern.ReplaceAllString(proof, "")
}

var _ FactorStrategy = (*backupCodeStrategy)(nil)
