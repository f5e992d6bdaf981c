// Package telegram содержит клиент Bot API, единое представление
// входящего события (сообщение или callback) и сборку inline-клавиатур.
package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Message описывает отправленное или редактируемое сообщение —
// ровно те поля, которые нужны конвейеру отрисовки.
type Message struct {
	ChatID   int64
	ID       int
	HasPhoto bool
}

// Client обёртка над Bot API с узким набором операций,
// которые использует онбординг.
type Client struct {
	api *tgbotapi.BotAPI
	log *slog.Logger
}

// NewClient авторизуется в Bot API по токену.
func NewClient(token string, log *slog.Logger) (*Client, error) {
	const op = "telegram.NewClient"

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("authorized on telegram", slog.String("bot", api.Self.UserName))
	return &Client{api: api, log: log}, nil
}

// UpdatesChan запускает long polling и возвращает канал обновлений.
func (c *Client) UpdatesChan(timeout int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	return c.api.GetUpdatesChan(u)
}

// Stop останавливает получение обновлений.
func (c *Client) Stop() {
	c.api.StopReceivingUpdates()
}

// GetChatMember возвращает статус участника канала.
func (c *Client) GetChatMember(chatID, userID int64) (string, error) {
	const op = "telegram.GetChatMember"

	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return member.Status, nil
}

// SendMessage отправляет текстовое сообщение.
func (c *Client) SendMessage(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (Message, error) {
	const op = "telegram.SendMessage"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return Message{}, fmt.Errorf("%s: %w", op, err)
	}
	return fromAPIMessage(sent), nil
}

// SendPhoto отправляет фото из локального файла с подписью.
func (c *Client) SendPhoto(chatID int64, path, caption string, markup *tgbotapi.InlineKeyboardMarkup) (Message, error) {
	const op = "telegram.SendPhoto"

	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return Message{}, fmt.Errorf("%s: %w", op, err)
	}
	return fromAPIMessage(sent), nil
}

// EditCaption меняет подпись существующего фото-сообщения.
func (c *Client) EditCaption(chatID int64, messageID int, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	const op = "telegram.EditCaption"

	edit := tgbotapi.NewEditMessageCaption(chatID, messageID, caption)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = markup
	if _, err := c.api.Send(edit); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EditText меняет текст существующего текстового сообщения.
func (c *Client) EditText(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	const op = "telegram.EditText"

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = markup
	if _, err := c.api.Send(edit); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EditMedia целиком заменяет содержимое сообщения на фото с подписью.
func (c *Client) EditMedia(chatID int64, messageID int, path, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	const op = "telegram.EditMedia"

	media := tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(path))
	media.Caption = caption
	media.ParseMode = tgbotapi.ModeHTML
	edit := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:      chatID,
			MessageID:   messageID,
			ReplyMarkup: markup,
		},
		Media: media,
	}
	if _, err := c.api.Send(edit); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteMessage удаляет сообщение. Вызывается только best-effort.
func (c *Client) DeleteMessage(chatID int64, messageID int) error {
	const op = "telegram.DeleteMessage"

	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AnswerCallback снимает индикатор загрузки у callback-события,
// опционально показывая текст или алерт.
func (c *Client) AnswerCallback(callbackID, text string, alert bool) error {
	const op = "telegram.AnswerCallback"

	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	if _, err := c.api.Request(cb); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func fromAPIMessage(m tgbotapi.Message) Message {
	return Message{
		ChatID:   m.Chat.ID,
		ID:       m.MessageID,
		HasPhoto: len(m.Photo) > 0,
	}
}

// IsForbidden сообщает, что у бота нет прав на операцию,
// например нет доступа к списку участников канала.
func IsForbidden(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 403
}

// IsNotParticipant распознаёт ответ клиентской ошибки, означающий,
// что пользователь не состоит в канале. Это определённый отрицательный
// результат проверки, а не сбой.
func IsNotParticipant(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 400
}

// IsNotModified распознаёт отказ «message is not modified» при
// редактировании без фактических изменений.
func IsNotModified(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) &&
		strings.Contains(apiErr.Message, "message is not modified")
}
