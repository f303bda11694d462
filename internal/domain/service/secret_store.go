// File: internal/domain/service/secret_store.go
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	domainErrors "github.com/vikaspotluri123/mfa-service/internal/domain/errors"
	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
	"github.com/vikaspotluri123/mfa-service/internal/domain/repository"
)

// SecretSettingKey is where the serialized key bundle lives in the
// settings store.
const SecretSettingKey = "second_factor_secrets"

// SecretStore resolves the per-strategy AES keys used to encrypt factor
// secrets at rest. The bundle is read fresh from the settings store on
// every call; there is no in-process cache to go stale.
type SecretStore struct {
	settings repository.SettingsRepository
}

// NewSecretStore creates a SecretStore over the settings repository.
func NewSecretStore(settings repository.SettingsRepository) *SecretStore {
	return &SecretStore{settings: settings}
}

// KeyFor returns the hex-encoded AES-256 key for a factor type. Sync must
// have provisioned the bundle first.
func (s *SecretStore) KeyFor(ctx context.Context, factorType models.FactorType) (string, error) {
	bundle, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	key, ok := bundle[string(factorType)]
	if !ok {
		return "", fmt.Errorf("no secret key provisioned for factor type %q; run secret sync", factorType)
	}
	return key, nil
}

// Sync makes sure every known factor type has a key, persists the bundle
// when anything was added, and returns the serialized bundle. Re-running
// with unchanged stored material yields identical output.
func (s *SecretStore) Sync(ctx context.Context) (string, error) {
	bundle, err := s.load(ctx)
	if err != nil {
		return "", err
	}

	changed := false
	for _, factorType := range models.KnownFactorTypes {
		if _, ok := bundle[string(factorType)]; ok {
			continue
		}
		key, err := generateKeyHex()
		if err != nil {
			return "", err
		}
		bundle[string(factorType)] = key
		changed = true
	}

	// json.Marshal sorts map keys, so serialization is stable.
	serialized, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("failed to serialize secret key bundle: %w", err)
	}

	if changed {
		if err := s.settings.SetSetting(ctx, SecretSettingKey, string(serialized)); err != nil {
			return "", err
		}
	}

	return string(serialized), nil
}

func (s *SecretStore) load(ctx context.Context) (map[string]string, error) {
	raw, err := s.settings.GetSetting(ctx, SecretSettingKey)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	bundle := map[string]string{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
			return nil, fmt.Errorf("stored secret key bundle is corrupt: %w", err)
		}
	}
	return bundle, nil
}

func generateKeyHex() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate secret key: %w", err)
	}
	return hex.EncodeToString(key), nil
}
