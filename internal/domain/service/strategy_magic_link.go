// File: internal/domain/service/strategy_magic_link.go
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
	"github.com/vikaspotluri123/mfa-service/internal/domain/repository"
	"github.com/vikaspotluri123/mfa-service/internal/utils/email"
	"github.com/vikaspotluri123/mfa-service/internal/utils/metrics"
)

// ChallengeSentMessage is returned when a magic-link email has gone out
// and the caller must resubmit with the emailed token.
const ChallengeSentMessage = "An email has been sent, please check your email."

const (
	magicLinkTokenBytes  = 32
	magicLinkMaxProofLen = 128
	mailSendTimeout      = 30 * time.Second
)

// magicLinkStrategy implements the emailed sign-in link variant. Nothing
// is persisted on the factor beyond per-request tokens: each issued token
// lives as a digest in the challenge store until it is consumed or
// expires. The pending context is the masked delivery address.
type magicLinkStrategy struct {
	challenges repository.ChallengeStore
	mailer     email.Mailer
	users      repository.UserRepository
	logger     *zap.Logger
	baseURL    string
	tokenTTL   time.Duration
}

// NewMagicLinkStrategy creates the magic-link strategy. baseURL is where
// the emailed link points; tokenTTL bounds each issued token's lifetime.
func NewMagicLinkStrategy(
	challenges repository.ChallengeStore,
	mailer email.Mailer,
	users repository.UserRepository,
	logger *zap.Logger,
	baseURL string,
	tokenTTL time.Duration,
) FactorStrategy {
	if tokenTTL <= 0 {
		tokenTTL = 10 * time.Minute
	}
	return &magicLinkStrategy{
		challenges: challenges,
		mailer:     mailer,
		users:      users,
		logger:     logger,
		baseURL:    baseURL,
		tokenTTL:   tokenTTL,
	}
}

func (s *magicLinkStrategy) Type() models.FactorType {
	return models.FactorTypeMagicLink
}

func (s *magicLinkStrategy) Generate(ctx context.Context, userID uuid.UUID) (string, string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", "", wrapStrategyError("failed to resolve factor owner", err)
	}
	// No secret at rest; tokens are held server-side per request.
	return "", maskEmail(user.Email), nil
}

func (s *magicLinkStrategy) CheckProof(factor *models.Factor, proof string, forActivation bool) error {
	proof = strings.TrimSpace(proof)
	if proof == "" || len(proof) > magicLinkMaxProofLen {
		return newStrategyError("proof must be the token from the emailed link", true)
	}
	return nil
}

// Prepare issues and emails a new token when no proof was supplied. The
// email send is fire-and-forget relative to the caller's response.
func (s *magicLinkStrategy) Prepare(ctx context.Context, factor *models.Factor, proof string) (PrepareResult, error) {
	if strings.TrimSpace(proof) != "" {
		return PrepareResult{Kind: PrepareNone}, nil
	}

	user, err := s.users.FindByID(ctx, factor.UserID)
	if err != nil {
		return PrepareResult{}, wrapStrategyError("failed to resolve factor owner", err)
	}

	token, err := generateMagicLinkToken()
	if err != nil {
		return PrepareResult{}, wrapStrategyError("failed to generate challenge token", err)
	}

	if err := s.challenges.Put(ctx, factor.ID, digestToken(token), s.tokenTTL); err != nil {
		return PrepareResult{}, wrapStrategyError("failed to store challenge", err)
	}

	link := s.buildLink(factor.ID, token)
	go s.sendChallengeMail(user.Email, link)
	metrics.ChallengesSentTotal.Inc()

	return PrepareResult{Kind: PrepareChallengeSent, Message: ChallengeSentMessage}, nil
}

// Validate consumes the server-held challenge; each issued token
// verifies exactly once.
func (s *magicLinkStrategy) Validate(ctx context.Context, factor *models.Factor, proof string) (bool, error) {
	matched, err := s.challenges.Take(ctx, factor.ID, digestToken(strings.TrimSpace(proof)))
	if err != nil {
		return false, wrapStrategyError("failed to check challenge", err)
	}
	return matched, nil
}

func (s *magicLinkStrategy) buildLink(factorID uuid.UUID, token string) string {
	query := url.Values{}
	query.Set("factor", factorID.String())
	query.Set("token", token)
	separator := "?"
	if strings.Contains(s.baseURL, "?") {
		separator = "&"
	}
	return s.baseURL + separator + query.Encode()
}

func (s *magicLinkStrategy) sendChallengeMail(to, link string) {
	ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
	defer cancel()

	subject := "Your sign-in link"
	htmlBody := fmt.Sprintf(
		`<p>Use the link below to finish signing in. It expires in %s and works once.</p><p><a href=%q>Sign in</a></p>`,
		s.tokenTTL, link)
	textBody := fmt.Sprintf(
		"Use the link below to finish signing in. It expires in %s and works once.\n\n%s\n",
		s.tokenTTL, link)

	if err := s.mailer.SendMail(ctx, to, subject, htmlBody, textBody); err != nil {
		s.logger.Error("Failed to send challenge email", zap.Error(err))
	}
}

func generateMagicLinkToken() (string, error) {
	raw := make([]byte, magicLinkTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// digestToken keeps raw tokens out of the challenge store.
func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// maskEmail hides the local part except its first character:
// j***@example.com.
func maskEmail(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 1 {
		return "***"
	}
	return address[:1] + "***" + address[at:]
}

var _ FactorStrategy = (*magicLinkStrategy)(nil)
