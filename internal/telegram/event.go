package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Event — единое представление входящего события. Одно и то же действие
// может прийти командой или нажатием inline-кнопки; гейт, онбординг
// и конвейер отрисовки написаны один раз против этой структуры.
type Event struct {
	UserID       int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	ChatID       int64

	// Существующая поверхность, которую можно редактировать.
	// Заполняется только для callback-событий.
	MessageID       int
	SurfaceHasPhoto bool

	// Идентификатор callback для снятия индикатора загрузки.
	// Пуст для обычных сообщений.
	CallbackID string
}

// NewMessageEvent строит событие из входящего сообщения.
func NewMessageEvent(m *tgbotapi.Message) Event {
	ev := Event{ChatID: m.Chat.ID}
	if m.From != nil {
		ev.UserID = m.From.ID
		ev.Username = m.From.UserName
		ev.FirstName = m.From.FirstName
		ev.LastName = m.From.LastName
		ev.LanguageCode = m.From.LanguageCode
	}
	return ev
}

// NewCallbackEvent строит событие из нажатия inline-кнопки.
// Сообщение, под которым была кнопка, становится редактируемой поверхностью.
func NewCallbackEvent(q *tgbotapi.CallbackQuery) Event {
	ev := Event{
		UserID:       q.From.ID,
		Username:     q.From.UserName,
		FirstName:    q.From.FirstName,
		LastName:     q.From.LastName,
		LanguageCode: q.From.LanguageCode,
		ChatID:       q.From.ID,
		CallbackID:   q.ID,
	}
	if q.Message != nil {
		ev.ChatID = q.Message.Chat.ID
		ev.MessageID = q.Message.MessageID
		ev.SurfaceHasPhoto = len(q.Message.Photo) > 0
	}
	return ev
}

// IsCallback сообщает, требуется ли событию подтверждение callback.
func (e Event) IsCallback() bool {
	return e.CallbackID != ""
}

// FullName возвращает отображаемое имя пользователя.
func (e Event) FullName() string {
	name := strings.TrimSpace(e.FirstName + " " + e.LastName)
	if name == "" {
		name = e.Username
	}
	return name
}
