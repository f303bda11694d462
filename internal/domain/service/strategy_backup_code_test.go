// File: internal/domain/service/strategy_backup_code_test.go
package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
	"github.com/vikaspotluri123/mfa-service/internal/infrastructure/security"
)

func newBackupCodeFixture(t *testing.T, codeCount int) (FactorStrategy, *SecretStore) {
	t.Helper()
	secrets := NewSecretStore(newMemorySettings())
	_, err := secrets.Sync(context.Background())
	require.NoError(t, err)

	return NewBackupCodeStrategy(security.NewAESGCMEncryptionService(), secrets, codeCount), secrets
}

func backupFactorWithCodes(t *testing.T, strategy FactorStrategy, status models.FactorStatus) (*models.Factor, []string) {
	t.Helper()
	secret, shareContext, err := strategy.Generate(context.Background(), uuid.New())
	require.NoError(t, err)

	var display []string
	require.NoError(t, json.Unmarshal([]byte(shareContext), &display))

	return &models.Factor{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Type:    models.FactorTypeBackupCode,
		Status:  status,
		Secret:  secret,
		Context: shareContext,
	}, display
}

func TestBackupCodeStrategy_GenerateFormatsCodes(t *testing.T) {
	strategy, _ := newBackupCodeFixture(t, 5)

	_, display := backupFactorWithCodes(t, strategy, models.FactorStatusPending)
	require.Len(t, display, 5)
	for _, code := range display {
		assert.Regexp(t, `^\d{4}-\d{4}-\d{4}$`, code)
	}
}

func TestBackupCodeStrategy_ActivationRequiresAcknowledgement(t *testing.T) {
	strategy, _ := newBackupCodeFixture(t, 5)
	factor := &models.Factor{Type: models.FactorTypeBackupCode, Status: models.FactorStatusPending}

	assert.NoError(t, strategy.CheckProof(factor, AcknowledgementProof, true))
	assert.Error(t, strategy.CheckProof(factor, "123456789012", true))
	assert.Error(t, strategy.CheckProof(factor, "", true))
}

func TestBackupCodeStrategy_AcknowledgementValidatesWithoutConsuming(t *testing.T) {
	strategy, _ := newBackupCodeFixture(t, 5)
	factor, _ := backupFactorWithCodes(t, strategy, models.FactorStatusPending)
	secretBefore := factor.Secret

	valid, err := strategy.Validate(context.Background(), factor, AcknowledgementProof)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, secretBefore, factor.Secret, "acknowledgement must not touch the stored codes")
}

func TestBackupCodeStrategy_LoginProofFormat(t *testing.T) {
	strategy, _ := newBackupCodeFixture(t, 5)
	factor := &models.Factor{Type: models.FactorTypeBackupCode, Status: models.FactorStatusActive}

	assert.NoError(t, strategy.CheckProof(factor, "123456789012", false))
	// Separators are stripped before the format check.
	assert.NoError(t, strategy.CheckProof(factor, "1234-5678-9012", false))
	assert.NoError(t, strategy.CheckProof(factor, "1234 5678 9012", false))
	assert.Error(t, strategy.CheckProof(factor, "12345678901", false))
	assert.Error(t, strategy.CheckProof(factor, "acknowledged", false))
}

func TestBackupCodeStrategy_CodeIsConsumedOnUse(t *testing.T) {
	strategy, _ := newBackupCodeFixture(t, 5)
	factor, display := backupFactorWithCodes(t, strategy, models.FactorStatusActive)
	secretBefore := factor.Secret

	valid, err := strategy.Validate(context.Background(), factor, display[2])
	require.NoError(t, err)
	assert.True(t, valid)
	assert.NotEqual(t, secretBefore, factor.Secret, "consuming a code must rewrite the stored secret")

	// The same code fails on the rewritten list.
	valid, err = strategy.Validate(context.Background(), factor, display[2])
	require.NoError(t, err)
	assert.False(t, valid)

	// Other codes are still usable.
	valid, err = strategy.Validate(context.Background(), factor, display[0])
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestBackupCodeStrategy_UnknownCodeFails(t *testing.T) {
	strategy, _ := newBackupCodeFixture(t, 5)
	factor, _ := backupFactorWithCodes(t, strategy, models.FactorStatusActive)
	secretBefore := factor.Secret

	valid, err := strategy.Validate(context.Background(), factor, "000000000000")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Equal(t, secretBefore, factor.Secret, "a failed match must not touch the stored codes")
}

func TestBackupCodeStrategy_UndecodableSecretFailsClosed(t *testing.T) {
	strategy, _ := newBackupCodeFixture(t, 5)
	factor := &models.Factor{
		ID:     uuid.New(),
		Type:   models.FactorTypeBackupCode,
		Status: models.FactorStatusActive,
		Secret: "garbage",
	}

	_, err := strategy.Validate(context.Background(), factor, "123456789012")
	require.Error(t, err)
	assert.False(t, IsUserFacing(err))
}
