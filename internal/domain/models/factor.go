// File: internal/domain/models/factor.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// FactorType identifies which second-factor strategy a factor uses.
// Immutable after creation.
type FactorType string

const (
	FactorTypeOTP        FactorType = "otp"
	FactorTypeBackupCode FactorType = "backup-code"
	FactorTypeMagicLink  FactorType = "magic-link"
)

// KnownFactorTypes lists every supported factor type, in stable order.
var KnownFactorTypes = []FactorType{FactorTypeOTP, FactorTypeBackupCode, FactorTypeMagicLink}

// Valid reports whether t is a supported factor type.
func (t FactorType) Valid() bool {
	switch t {
	case FactorTypeOTP, FactorTypeBackupCode, FactorTypeMagicLink:
		return true
	}
	return false
}

// FactorStatus is the lifecycle state of a factor.
type FactorStatus string

const (
	FactorStatusPending  FactorStatus = "pending"
	FactorStatusActive   FactorStatus = "active"
	FactorStatusDisabled FactorStatus = "disabled"
)

// Valid reports whether s is a known lifecycle state.
func (s FactorStatus) Valid() bool {
	switch s {
	case FactorStatusPending, FactorStatusActive, FactorStatusDisabled:
		return true
	}
	return false
}

// MaxFactorsPerUser is the hard cap on registered factors, enforced
// before creation.
const MaxFactorsPerUser = 15

// Factor is a registered second-authentication method belonging to a user.
type Factor struct {
	ID     uuid.UUID    `json:"id"`
	UserID uuid.UUID    `json:"user_id"`
	Name   string       `json:"name"`
	Type   FactorType   `json:"type"`
	Status FactorStatus `json:"status"`

	// Secret is the strategy-specific payload, encrypted at rest with a
	// per-type key resolved through the secret store. Never serialized.
	Secret string `json:"-"`

	// Context is the one-time-revealable payload produced at generation
	// time (plaintext OTP seed, backup code list). It is exposed to the
	// client only while Status is pending and must be redacted afterwards.
	Context string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicFactor is the API-facing view of a factor. Context carries the
// one-time reveal payload and is only populated while the factor is
// pending, regardless of caller trust level.
type PublicFactor struct {
	ID      uuid.UUID    `json:"id"`
	Name    string       `json:"name"`
	Type    FactorType   `json:"type"`
	Status  FactorStatus `json:"status"`
	Context string       `json:"context,omitempty"`
}

// User is the slice of the CMS user record this service consults:
// identity, where to deliver magic-link challenges, and whether MFA is
// enforced for the account.
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	MFAEnabled bool      `json:"mfa_enabled"`
}
