package render

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-bot/internal/telegram"
)

type MessengerMock struct{ mock.Mock }

func (m *MessengerMock) SendMessage(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (telegram.Message, error) {
	args := m.Called(chatID, text, markup)
	return args.Get(0).(telegram.Message), args.Error(1)
}

func (m *MessengerMock) SendPhoto(chatID int64, path, caption string, markup *tgbotapi.InlineKeyboardMarkup) (telegram.Message, error) {
	args := m.Called(chatID, path, caption, markup)
	return args.Get(0).(telegram.Message), args.Error(1)
}

func (m *MessengerMock) EditCaption(chatID int64, messageID int, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	args := m.Called(chatID, messageID, caption, markup)
	return args.Error(0)
}

func (m *MessengerMock) EditText(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	args := m.Called(chatID, messageID, text, markup)
	return args.Error(0)
}

func (m *MessengerMock) EditMedia(chatID int64, messageID int, path, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	args := m.Called(chatID, messageID, path, caption, markup)
	return args.Error(0)
}

func (m *MessengerMock) DeleteMessage(chatID int64, messageID int) error {
	args := m.Called(chatID, messageID)
	return args.Error(0)
}

func (m *MessengerMock) AnswerCallback(callbackID, text string, alert bool) error {
	args := m.Called(callbackID, text, alert)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func tempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "menu.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRenderFreshMessage(t *testing.T) {
	bot := new(MessengerMock)
	bot.On("SendMessage", int64(10), "привет", mock.Anything).
		Return(telegram.Message{ChatID: 10, ID: 1}, nil).Once()

	r := New(bot, newNoopLogger())
	r.Render(telegram.Event{UserID: 42, ChatID: 10}, Surface{Caption: "привет"})

	bot.AssertExpectations(t)
}

func TestRenderFreshPhoto(t *testing.T) {
	img := tempImage(t)
	bot := new(MessengerMock)
	bot.On("SendPhoto", int64(10), img, "меню", mock.Anything).
		Return(telegram.Message{ChatID: 10, ID: 1, HasPhoto: true}, nil).Once()

	r := New(bot, newNoopLogger())
	r.Render(telegram.Event{UserID: 42, ChatID: 10}, Surface{PhotoPath: img, Caption: "меню"})

	bot.AssertExpectations(t)
}

func TestRenderEditCaptionOverPhoto(t *testing.T) {
	img := tempImage(t)
	bot := new(MessengerMock)
	bot.On("EditCaption", int64(10), 7, "меню", mock.Anything).Return(nil).Once()
	bot.On("AnswerCallback", "cb1", "", false).Return(nil).Once()

	r := New(bot, newNoopLogger())
	r.Render(telegram.Event{
		UserID: 42, ChatID: 10, MessageID: 7,
		SurfaceHasPhoto: true, CallbackID: "cb1",
	}, Surface{PhotoPath: img, Caption: "меню"})

	bot.AssertExpectations(t)
}

func TestRenderReplacesTextWithMedia(t *testing.T) {
	img := tempImage(t)
	bot := new(MessengerMock)
	bot.On("EditMedia", int64(10), 7, img, "меню", mock.Anything).Return(nil).Once()
	bot.On("AnswerCallback", "cb1", "", false).Return(nil).Once()

	r := New(bot, newNoopLogger())
	r.Render(telegram.Event{
		UserID: 42, ChatID: 10, MessageID: 7,
		SurfaceHasPhoto: false, CallbackID: "cb1",
	}, Surface{PhotoPath: img, Caption: "меню"})

	bot.AssertExpectations(t)
}

func TestRenderEditTextSurface(t *testing.T) {
	bot := new(MessengerMock)
	bot.On("EditText", int64(10), 7, "выберите язык", mock.Anything).Return(nil).Once()
	bot.On("AnswerCallback", "cb1", "", false).Return(nil).Once()

	r := New(bot, newNoopLogger())
	r.Render(telegram.Event{
		UserID: 42, ChatID: 10, MessageID: 7, CallbackID: "cb1",
	}, Surface{Caption: "выберите язык"})

	bot.AssertExpectations(t)
}

func TestRenderEditFailureSendsNewAndDeletes(t *testing.T) {
	bot := new(MessengerMock)
	bot.On("EditText", int64(10), 7, "меню", mock.Anything).
		Return(errors.New("message to edit not found")).Once()
	bot.On("SendMessage", int64(10), "меню", mock.Anything).
		Return(telegram.Message{ChatID: 10, ID: 8}, nil).Once()
	bot.On("DeleteMessage", int64(10), 7).Return(nil).Once()
	bot.On("AnswerCallback", "cb1", "", false).Return(nil).Once()

	r := New(bot, newNoopLogger())
	r.Render(telegram.Event{
		UserID: 42, ChatID: 10, MessageID: 7, CallbackID: "cb1",
	}, Surface{Caption: "меню"})

	bot.AssertExpectations(t)
}

func TestRenderMissingImageDegradesToText(t *testing.T) {
	bot := new(MessengerMock)
	bot.On("SendMessage", int64(10), "меню", mock.Anything).
		Return(telegram.Message{ChatID: 10, ID: 1}, nil).Once()

	r := New(bot, newNoopLogger())
	r.Render(telegram.Event{UserID: 42, ChatID: 10},
		Surface{PhotoPath: "/nonexistent/menu.png", Caption: "меню"})

	bot.AssertExpectations(t)
}

func TestRenderPhotoSendFailureDegradesToText(t *testing.T) {
	img := tempImage(t)
	bot := new(MessengerMock)
	bot.On("SendPhoto", int64(10), img, "меню", mock.Anything).
		Return(telegram.Message{}, errors.New("file too big")).Once()
	bot.On("SendMessage", int64(10), "меню", mock.Anything).
		Return(telegram.Message{ChatID: 10, ID: 1}, nil).Once()

	r := New(bot, newNoopLogger())
	r.Render(telegram.Event{UserID: 42, ChatID: 10}, Surface{PhotoPath: img, Caption: "меню"})

	bot.AssertExpectations(t)
}

func TestRenderNeverPropagatesFailure(t *testing.T) {
	bot := new(MessengerMock)
	bot.On("SendMessage", int64(10), "меню", mock.Anything).
		Return(telegram.Message{}, errors.New("chat not found")).Once()
	bot.On("SendMessage", int64(42), "меню", mock.MatchedBy(func(m *tgbotapi.InlineKeyboardMarkup) bool {
		return m == nil
	})).Return(telegram.Message{}, errors.New("blocked by user")).Once()

	r := New(bot, newNoopLogger())
	assert.NotPanics(t, func() {
		r.Render(telegram.Event{UserID: 42, ChatID: 10}, Surface{Caption: "меню"})
	})
	bot.AssertExpectations(t)
}

func TestRenderAckAlertPassthrough(t *testing.T) {
	bot := new(MessengerMock)
	bot.On("EditText", int64(10), 7, "подпишитесь на канал", mock.Anything).Return(nil).Once()
	bot.On("AnswerCallback", "cb1", "Вы ещё не подписаны", true).Return(nil).Once()

	r := New(bot, newNoopLogger())
	r.Render(telegram.Event{
		UserID: 42, ChatID: 10, MessageID: 7, CallbackID: "cb1",
	}, Surface{
		Caption:  "подпишитесь на канал",
		AckText:  "Вы ещё не подписаны",
		AckAlert: true,
	})

	bot.AssertExpectations(t)
}
