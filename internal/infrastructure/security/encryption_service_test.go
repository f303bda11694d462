// File: internal/infrastructure/security/encryption_service_test.go
package security_test

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikaspotluri123/mfa-service/internal/infrastructure/security"
)

// generateTestHexKey creates a 32-byte AES key and returns its hex encoding.
func generateTestHexKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return hex.EncodeToString(key)
}

func TestEncryptDecrypt_Valid(t *testing.T) {
	service := security.NewAESGCMEncryptionService()
	keyHex := generateTestHexKey(t)
	plaintext := "KZXW6YTBOI======"

	ciphertextBase64, err := service.Encrypt(plaintext, keyHex)
	require.NoError(t, err)
	require.NotEmpty(t, ciphertextBase64)

	_, err = base64.StdEncoding.DecodeString(ciphertextBase64)
	require.NoError(t, err, "ciphertext should be a valid base64 string")

	decrypted, err := service.Decrypt(ciphertextBase64, keyHex)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncrypt_DifferentCiphertextsForSamePlaintext(t *testing.T) {
	service := security.NewAESGCMEncryptionService()
	keyHex := generateTestHexKey(t)
	plaintext := "encrypt this twice"

	ciphertext1, err := service.Encrypt(plaintext, keyHex)
	require.NoError(t, err)
	ciphertext2, err := service.Encrypt(plaintext, keyHex)
	require.NoError(t, err)

	assert.NotEqual(t, ciphertext1, ciphertext2, "random nonce should make ciphertexts differ")
}

func TestEncrypt_InvalidKey_NotHex(t *testing.T) {
	service := security.NewAESGCMEncryptionService()

	_, err := service.Encrypt("test", "this-is-not-hex")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode hex key")
}

func TestEncrypt_InvalidKey_WrongLength(t *testing.T) {
	service := security.NewAESGCMEncryptionService()
	shortKeyHex := hex.EncodeToString(make([]byte, 16))

	_, err := service.Encrypt("test", shortKeyHex)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key length")
}

func TestDecrypt_WrongKey(t *testing.T) {
	service := security.NewAESGCMEncryptionService()
	keyHex := generateTestHexKey(t)
	otherKeyHex := generateTestHexKey(t)

	ciphertext, err := service.Encrypt("secret material", keyHex)
	require.NoError(t, err)

	_, err = service.Decrypt(ciphertext, otherKeyHex)
	assert.Error(t, err, "decryption with the wrong key must fail authentication")
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	service := security.NewAESGCMEncryptionService()
	keyHex := generateTestHexKey(t)

	ciphertext, err := service.Encrypt("secret material", keyHex)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = service.Decrypt(tampered, keyHex)
	assert.Error(t, err)
}

func TestDecrypt_CiphertextTooShort(t *testing.T) {
	service := security.NewAESGCMEncryptionService()
	keyHex := generateTestHexKey(t)

	short := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02})
	_, err := service.Decrypt(short, keyHex)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}
