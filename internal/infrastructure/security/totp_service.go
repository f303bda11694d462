// File: internal/infrastructure/security/totp_service.go
package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPService generates and validates time-based one-time passwords.
type TOTPService interface {
	// GenerateSecret creates a new TOTP secret for the given account.
	// Returns the base32 secret and the otpauth:// provisioning URL.
	GenerateSecret(accountName string) (secretBase32 string, otpAuthURL string, err error)
	// ValidateCode checks a 6-digit code against the secret, tolerating
	// one period of clock drift on either side.
	ValidateCode(secretBase32 string, code string) (bool, error)
}

type pquernaTOTPService struct {
	issuerName string
	now        func() time.Time
}

// NewPquernaTOTPService creates a TOTPService backed by pquerna/otp.
// issuerName is shown in authenticator apps next to the account.
func NewPquernaTOTPService(issuerName string) TOTPService {
	if strings.TrimSpace(issuerName) == "" {
		issuerName = "CMS Admin"
	}
	return &pquernaTOTPService{
		issuerName: issuerName,
		now:        time.Now,
	}
}

func (s *pquernaTOTPService) GenerateSecret(accountName string) (string, string, error) {
	if strings.TrimSpace(accountName) == "" {
		return "", "", fmt.Errorf("accountName cannot be empty for TOTP secret generation")
	}
	if strings.Contains(accountName, ":") || strings.Contains(s.issuerName, ":") {
		// A colon breaks the otpauth label format.
		return "", "", fmt.Errorf("accountName and issuer cannot contain a colon character")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuerName,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  20,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

func (s *pquernaTOTPService) ValidateCode(secretBase32 string, code string) (bool, error) {
	if strings.TrimSpace(secretBase32) == "" {
		return false, fmt.Errorf("secret cannot be empty")
	}

	valid, err := totp.ValidateCustom(code, secretBase32, s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1, // one period of drift on either side
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false, fmt.Errorf("error during TOTP code validation: %w", err)
	}

	return valid, nil
}

var _ TOTPService = (*pquernaTOTPService)(nil)
