// File: internal/domain/service/strategy_magic_link_test.go
package service

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
)

// memoryChallenges is an in-memory challenge store with exactly-once
// consumption, mirroring the redis-backed implementation.
type memoryChallenges struct {
	mu      sync.Mutex
	digests map[uuid.UUID]string
}

func newMemoryChallenges() *memoryChallenges {
	return &memoryChallenges{digests: map[uuid.UUID]string{}}
}

func (m *memoryChallenges) Put(ctx context.Context, factorID uuid.UUID, tokenDigest string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.digests[factorID] = tokenDigest
	return nil
}

func (m *memoryChallenges) Take(ctx context.Context, factorID uuid.UUID, tokenDigest string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.digests[factorID]
	if !ok || stored != tokenDigest {
		return false, nil
	}
	delete(m.digests, factorID)
	return true, nil
}

func newMagicLinkFixture(t *testing.T) (FactorStrategy, *memoryChallenges, *mockMailer, *mockUserRepository) {
	t.Helper()
	challenges := newMemoryChallenges()
	mailer := new(mockMailer)
	users := new(mockUserRepository)
	strategy := NewMagicLinkStrategy(challenges, mailer, users, zap.NewNop(),
		"https://cms.example.com/signin", 10*time.Minute)
	return strategy, challenges, mailer, users
}

func TestMagicLinkStrategy_GenerateMasksEmail(t *testing.T) {
	strategy, _, _, users := newMagicLinkFixture(t)
	userID := uuid.New()
	users.On("FindByID", mock.Anything, userID).
		Return(&models.User{ID: userID, Email: "jamie@example.com"}, nil)

	secret, shareContext, err := strategy.Generate(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, secret, "magic link keeps no secret at rest")
	assert.Equal(t, "j***@example.com", shareContext)
}

func TestMagicLinkStrategy_PrepareIssuesChallenge(t *testing.T) {
	strategy, challenges, mailer, users := newMagicLinkFixture(t)
	userID := uuid.New()
	factor := &models.Factor{
		ID:     uuid.New(),
		UserID: userID,
		Type:   models.FactorTypeMagicLink,
		Status: models.FactorStatusActive,
	}
	users.On("FindByID", mock.Anything, userID).
		Return(&models.User{ID: userID, Email: "jamie@example.com"}, nil)
	// The email send is fire-and-forget; it may or may not land before
	// the test finishes.
	mailer.On("SendMail", mock.Anything, "jamie@example.com", mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Maybe()

	result, err := strategy.Prepare(context.Background(), factor, "")
	require.NoError(t, err)
	assert.Equal(t, PrepareChallengeSent, result.Kind)
	assert.Equal(t, ChallengeSentMessage, result.Message)

	challenges.mu.Lock()
	_, stored := challenges.digests[factor.ID]
	challenges.mu.Unlock()
	assert.True(t, stored, "a challenge digest must be held server-side")
}

func TestMagicLinkStrategy_PrepareWithProofIsNoop(t *testing.T) {
	strategy, _, _, _ := newMagicLinkFixture(t)
	factor := &models.Factor{ID: uuid.New(), Type: models.FactorTypeMagicLink}

	result, err := strategy.Prepare(context.Background(), factor, "some-token")
	require.NoError(t, err)
	assert.Equal(t, PrepareNone, result.Kind)
}

func TestMagicLinkStrategy_TokenVerifiesExactlyOnce(t *testing.T) {
	strategy, _, mailer, users := newMagicLinkFixture(t)
	userID := uuid.New()
	factor := &models.Factor{
		ID:     uuid.New(),
		UserID: userID,
		Type:   models.FactorTypeMagicLink,
		Status: models.FactorStatusActive,
	}
	users.On("FindByID", mock.Anything, userID).
		Return(&models.User{ID: userID, Email: "jamie@example.com"}, nil)

	sent := make(chan string, 1)
	mailer.On("SendMail", mock.Anything, "jamie@example.com", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent <- args.String(4) }).
		Return(nil)

	_, err := strategy.Prepare(context.Background(), factor, "")
	require.NoError(t, err)

	var body string
	select {
	case body = <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("challenge email was never sent")
	}

	token := tokenFromMailBody(t, body)

	valid, err := strategy.Validate(context.Background(), factor, token)
	require.NoError(t, err)
	assert.True(t, valid)

	// The challenge was consumed; the same token fails.
	valid, err = strategy.Validate(context.Background(), factor, token)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestMagicLinkStrategy_WrongTokenFails(t *testing.T) {
	strategy, _, mailer, users := newMagicLinkFixture(t)
	userID := uuid.New()
	factor := &models.Factor{
		ID:     uuid.New(),
		UserID: userID,
		Type:   models.FactorTypeMagicLink,
		Status: models.FactorStatusActive,
	}
	users.On("FindByID", mock.Anything, userID).
		Return(&models.User{ID: userID, Email: "jamie@example.com"}, nil)
	mailer.On("SendMail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Maybe()

	_, err := strategy.Prepare(context.Background(), factor, "")
	require.NoError(t, err)

	valid, err := strategy.Validate(context.Background(), factor, "not-the-issued-token")
	require.NoError(t, err)
	assert.False(t, valid)
}

// tokenFromMailBody extracts the token query parameter from the link in
// the plain-text challenge email.
func tokenFromMailBody(t *testing.T, body string) string {
	t.Helper()
	for _, field := range strings.Fields(body) {
		if !strings.HasPrefix(field, "https://") {
			continue
		}
		parsed, err := url.Parse(field)
		require.NoError(t, err)
		token := parsed.Query().Get("token")
		require.NotEmpty(t, token)
		return token
	}
	t.Fatal("no link found in mail body")
	return ""
}
