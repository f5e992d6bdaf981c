package channelgate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-bot/internal/config"
	"github.com/magabrotheeeer/subscription-bot/internal/models"
)

type MemberCheckerMock struct{ mock.Mock }

func (m *MemberCheckerMock) GetChatMember(chatID, userID int64) (string, error) {
	args := m.Called(chatID, userID)
	return args.String(0), args.Error(1)
}

type VerificationStoreMock struct{ mock.Mock }

func (m *VerificationStoreMock) UpdateChannelVerification(ctx context.Context, id int64, verified bool, channelID int64, checkedAt time.Time) error {
	args := m.Called(ctx, id, verified, channelID, checkedAt)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const channelID = int64(-1001234567890)

var (
	errNotParticipant = errors.New("Bad Request: user not found")
	errForbidden      = errors.New("Forbidden: bot is not a member of the channel chat")
)

func notParticipant(err error) bool {
	return errors.Is(err, errNotParticipant)
}

func forbidden(err error) bool {
	return errors.Is(err, errForbidden)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		userID       int64
		user         *models.User
		setupChecker func(m *MemberCheckerMock)
		setupStore   func(m *VerificationStoreMock)
		want         Result
	}{
		{
			name:   "гейт отключён",
			cfg:    Config{},
			userID: 42,
			want:   Allowed,
		},
		{
			name:   "администратор проходит без проверки",
			cfg:    Config{RequiredChannelID: channelID, IsAdmin: config.Onboarding{AdminIDs: []int64{42}}.IsAdmin},
			userID: 42,
			want:   Allowed,
		},
		{
			name:   "незарегистрированный пользователь проходит",
			cfg:    Config{RequiredChannelID: channelID},
			userID: 42,
			user:   nil,
			want:   Allowed,
		},
		{
			name:   "сохранённый положительный результат для того же канала",
			cfg:    Config{RequiredChannelID: channelID},
			userID: 42,
			user: &models.User{
				ID:                 42,
				ChannelVerified:    true,
				ChannelVerifiedFor: ptr(channelID),
			},
			want: Allowed,
		},
		{
			name:   "сохранённый результат для другого канала не принимается",
			cfg:    Config{RequiredChannelID: channelID},
			userID: 42,
			user: &models.User{
				ID:                 42,
				ChannelVerified:    true,
				ChannelVerifiedFor: ptr(int64(-100999)),
			},
			setupChecker: func(m *MemberCheckerMock) {
				m.On("GetChatMember", channelID, int64(42)).Return("member", nil)
			},
			setupStore: func(m *VerificationStoreMock) {
				m.On("UpdateChannelVerification", mock.Anything, int64(42), true, channelID, mock.Anything).
					Return(nil)
			},
			want: Allowed,
		},
		{
			name:   "участник канала",
			cfg:    Config{RequiredChannelID: channelID},
			userID: 42,
			user:   &models.User{ID: 42},
			setupChecker: func(m *MemberCheckerMock) {
				m.On("GetChatMember", channelID, int64(42)).Return("member", nil)
			},
			setupStore: func(m *VerificationStoreMock) {
				m.On("UpdateChannelVerification", mock.Anything, int64(42), true, channelID, mock.Anything).
					Return(nil)
			},
			want: Allowed,
		},
		{
			name:   "создатель канала",
			cfg:    Config{RequiredChannelID: channelID},
			userID: 42,
			user:   &models.User{ID: 42},
			setupChecker: func(m *MemberCheckerMock) {
				m.On("GetChatMember", channelID, int64(42)).Return("creator", nil)
			},
			setupStore: func(m *VerificationStoreMock) {
				m.On("UpdateChannelVerification", mock.Anything, int64(42), true, channelID, mock.Anything).
					Return(nil)
			},
			want: Allowed,
		},
		{
			name:   "покинувший канал",
			cfg:    Config{RequiredChannelID: channelID},
			userID: 42,
			user:   &models.User{ID: 42},
			setupChecker: func(m *MemberCheckerMock) {
				m.On("GetChatMember", channelID, int64(42)).Return("left", nil)
			},
			setupStore: func(m *VerificationStoreMock) {
				m.On("UpdateChannelVerification", mock.Anything, int64(42), false, channelID, mock.Anything).
					Return(nil)
			},
			want: Blocked,
		},
		{
			name:   "пользователь не найден в канале",
			cfg:    Config{RequiredChannelID: channelID},
			userID: 42,
			user:   &models.User{ID: 42},
			setupChecker: func(m *MemberCheckerMock) {
				m.On("GetChatMember", channelID, int64(42)).Return("", errNotParticipant)
			},
			setupStore: func(m *VerificationStoreMock) {
				m.On("UpdateChannelVerification", mock.Anything, int64(42), false, channelID, mock.Anything).
					Return(nil)
			},
			want: Blocked,
		},
		{
			name:   "сбой проверки не превращается в отказ",
			cfg:    Config{RequiredChannelID: channelID},
			userID: 42,
			user:   &models.User{ID: 42},
			setupChecker: func(m *MemberCheckerMock) {
				m.On("GetChatMember", channelID, int64(42)).Return("", errors.New("timeout"))
			},
			want: Failed,
		},
		{
			name:   "нет доступа у бота к каналу",
			cfg:    Config{RequiredChannelID: channelID},
			userID: 42,
			user:   &models.User{ID: 42},
			setupChecker: func(m *MemberCheckerMock) {
				m.On("GetChatMember", channelID, int64(42)).Return("", errForbidden)
			},
			want: Failed,
		},
		{
			name:   "сбой записи результата не меняет решение",
			cfg:    Config{RequiredChannelID: channelID},
			userID: 42,
			user:   &models.User{ID: 42},
			setupChecker: func(m *MemberCheckerMock) {
				m.On("GetChatMember", channelID, int64(42)).Return("member", nil)
			},
			setupStore: func(m *VerificationStoreMock) {
				m.On("UpdateChannelVerification", mock.Anything, int64(42), true, channelID, mock.Anything).
					Return(errors.New("db down"))
			},
			want: Allowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := new(MemberCheckerMock)
			store := new(VerificationStoreMock)
			if tt.setupChecker != nil {
				tt.setupChecker(checker)
			}
			if tt.setupStore != nil {
				tt.setupStore(store)
			}

			g := New(checker, store, notParticipant, forbidden, tt.cfg, newNoopLogger())
			got := g.Check(context.Background(), tt.userID, tt.user)

			assert.Equal(t, tt.want, got)
			checker.AssertExpectations(t)
			store.AssertExpectations(t)
		})
	}
}

func ptr[T any](v T) *T { return &v }
