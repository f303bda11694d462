// File: internal/domain/service/mocks_test.go
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	domainErrors "github.com/vikaspotluri123/mfa-service/internal/domain/errors"
	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
	"github.com/vikaspotluri123/mfa-service/internal/events/kafka"
)

type mockFactorRepository struct {
	mock.Mock
}

func (m *mockFactorRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*models.Factor, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Factor), args.Error(1)
}

func (m *mockFactorRepository) FindByID(ctx context.Context, id, userID uuid.UUID) (*models.Factor, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Factor), args.Error(1)
}

func (m *mockFactorRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockFactorRepository) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockFactorRepository) Create(ctx context.Context, factor *models.Factor) error {
	args := m.Called(ctx, factor)
	return args.Error(0)
}

func (m *mockFactorRepository) Save(ctx context.Context, factor *models.Factor) (bool, error) {
	args := m.Called(ctx, factor)
	return args.Bool(0), args.Error(1)
}

func (m *mockFactorRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type mockChallengeStore struct {
	mock.Mock
}

func (m *mockChallengeStore) Put(ctx context.Context, factorID uuid.UUID, tokenDigest string, ttl time.Duration) error {
	args := m.Called(ctx, factorID, tokenDigest, ttl)
	return args.Error(0)
}

func (m *mockChallengeStore) Take(ctx context.Context, factorID uuid.UUID, tokenDigest string) (bool, error) {
	args := m.Called(ctx, factorID, tokenDigest)
	return args.Bool(0), args.Error(1)
}

type mockSessionTrustStore struct {
	mock.Mock
}

func (m *mockSessionTrustStore) RequireSecondFactor(ctx context.Context, sessionID string, ttl time.Duration) error {
	args := m.Called(ctx, sessionID, ttl)
	return args.Error(0)
}

func (m *mockSessionTrustStore) AwaitingSecondFactor(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionTrustStore) MarkVerified(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendMail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	args := m.Called(ctx, to, subject, htmlBody, textBody)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishFactorEvent(ctx context.Context, eventType kafka.EventType, payload kafka.FactorEventPayload) {
	m.Called(ctx, eventType, payload)
}

func (m *mockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// memorySettings is an in-memory settings repository for tests that
// exercise the secret store end to end.
type memorySettings struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

func newMemorySettings() *memorySettings {
	return &memorySettings{values: map[string]string{}}
}

func (m *memorySettings) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", domainErrors.ErrNotFound
	}
	return value, nil
}

func (m *memorySettings) SetSetting(ctx context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.writes++
	return nil
}
