package promo

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

	"github.com/magabrotheeeer/subscription-bot/internal/storage/repository"
)

type ActivatorMock struct{ mock.Mock }

func (m *ActivatorMock) ActivatePromoCode(ctx context.Context, userID int64, code string) (time.Time, error) {
	args := m.Called(ctx, userID, code)
	return args.Get(0).(time.Time), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestApply(t *testing.T) {
	endDate := time.Date(2026, 9, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		repoErr    error
		wantResult Result
		wantErr    bool
	}{
		{
			name:       "успешная активация",
			repoErr:    nil,
			wantResult: Result{Applied: true, EndDate: endDate},
		},
		{
			name:       "неизвестный код",
			repoErr:    repository.ErrPromoNotFound,
			wantResult: Result{ReasonKey: "promo_not_found"},
		},
		{
			name:       "код уже использован",
			repoErr:    repository.ErrPromoAlreadyUsed,
			wantResult: Result{ReasonKey: "promo_already_used"},
		},
		{
			name:       "лимит активаций исчерпан",
			repoErr:    repository.ErrPromoExhausted,
			wantResult: Result{ReasonKey: "promo_exhausted"},
		},
		{
			name:    "инфраструктурный сбой",
			repoErr: errors.New("db down"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(ActivatorMock)
			ret := time.Time{}
			if tt.repoErr == nil {
				ret = endDate
			}
			repo.On("ActivatePromoCode", mock.Anything, int64(42), "SAVE20").
				Return(ret, tt.repoErr).Once()

			svc := New(repo, newNoopLogger())
			got, err := svc.Apply(context.Background(), 42, "SAVE20")

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, got)
		})
	}
}
