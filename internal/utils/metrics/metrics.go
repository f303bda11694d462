// File: internal/utils/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VerificationAttemptsTotal counts proof submissions by factor type
	// and outcome (success, failure, challenge_sent).
	VerificationAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mfa_service_verification_attempts_total",
		Help: "The total number of second factor verification attempts",
	}, []string{"type", "outcome"})

	// FactorsCreatedTotal counts factor registrations by type.
	FactorsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mfa_service_factors_created_total",
		Help: "The total number of second factors created",
	}, []string{"type"})

	// FactorsActivatedTotal counts successful pending->active activations.
	FactorsActivatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mfa_service_factors_activated_total",
		Help: "The total number of second factors activated",
	}, []string{"type"})

	// ChallengesSentTotal counts outbound magic-link challenge emails.
	ChallengesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mfa_service_challenges_sent_total",
		Help: "The total number of challenge emails sent",
	})

	// LockoutPreventionsTotal counts refused status changes that would
	// have left a user without an active factor.
	LockoutPreventionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mfa_service_lockout_preventions_total",
		Help: "The total number of status changes refused to prevent lock-out",
	})
)
