package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-bot/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetActiveSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) HasAnySubscription(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	if args.Bool(0) {
		*(result.(*cachedStatus)) = args.Get(2).(cachedStatus)
	}
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestHasActiveSubscription_CacheMiss(t *testing.T) {
	sub := &models.Subscription{ID: 1, UserID: 42, EndDate: time.Now().Add(24 * time.Hour), IsActive: true}

	repo := new(RepoMock)
	repo.On("GetActiveSubscription", mock.Anything, int64(42)).Return(sub, nil).Once()

	cache := new(CacheMock)
	cache.On("Get", "subscription:active:42", mock.Anything).Return(false, nil, cachedStatus{}).Once()
	cache.On("Set", "subscription:active:42", mock.Anything, statusTTL).Return(nil).Once()

	svc := New(repo, cache, newNoopLogger())
	active, err := svc.HasActiveSubscription(context.Background(), 42)

	require.NoError(t, err)
	assert.True(t, active)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestHasActiveSubscription_CacheHit(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	cache.On("Get", "subscription:active:42", mock.Anything).
		Return(true, nil, cachedStatus{Subscription: nil}).Once()

	svc := New(repo, cache, newNoopLogger())
	active, err := svc.HasActiveSubscription(context.Background(), 42)

	require.NoError(t, err)
	assert.False(t, active)
	repo.AssertNotCalled(t, "GetActiveSubscription", mock.Anything, mock.Anything)
}

func TestHasActiveSubscription_RepoError(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetActiveSubscription", mock.Anything, int64(42)).
		Return(nil, errors.New("db down")).Once()

	cache := new(CacheMock)
	cache.On("Get", "subscription:active:42", mock.Anything).Return(false, nil, cachedStatus{}).Once()

	svc := New(repo, cache, newNoopLogger())
	_, err := svc.HasActiveSubscription(context.Background(), 42)

	require.Error(t, err)
}

func TestInvalidateStatus(t *testing.T) {
	cache := new(CacheMock)
	cache.On("Invalidate", "subscription:active:42").Return(nil).Once()

	svc := New(new(RepoMock), cache, newNoopLogger())
	svc.InvalidateStatus(42)

	cache.AssertExpectations(t)
}
