// Package render реализует конвейер отрисовки поверхностей бота.
// Поверхность описывает, ЧТО показать; конвейер сам решает, КАК:
// редактировать существующее сообщение, заменить медиа, отправить
// новое, ужаться до текста. Наружу ошибки не выходят — каждый сбой
// понижает способ доставки на ступень.
package render

import (
	"log/slog"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/subscription-bot/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-bot/internal/metrics"
	"github.com/magabrotheeeer/subscription-bot/internal/telegram"
)

// Messenger операции Bot API, которые использует конвейер.
type Messenger interface {
	SendMessage(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (telegram.Message, error)
	SendPhoto(chatID int64, path, caption string, markup *tgbotapi.InlineKeyboardMarkup) (telegram.Message, error)
	EditCaption(chatID int64, messageID int, caption string, markup *tgbotapi.InlineKeyboardMarkup) error
	EditText(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error
	EditMedia(chatID int64, messageID int, path, caption string, markup *tgbotapi.InlineKeyboardMarkup) error
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID, text string, alert bool) error
}

// Surface описывает, что должно оказаться на экране у пользователя.
type Surface struct {
	PhotoPath string // Путь к локальному изображению, пусто — текстовая поверхность
	Caption   string
	Markup    *tgbotapi.InlineKeyboardMarkup

	// Подтверждение callback-события. Пустой AckText снимает
	// индикатор загрузки без текста.
	AckText  string
	AckAlert bool
}

// Renderer доставляет поверхности.
type Renderer struct {
	bot Messenger
	log *slog.Logger
}

// New создаёт Renderer.
func New(bot Messenger, log *slog.Logger) *Renderer {
	return &Renderer{bot: bot, log: log}
}

// Render доставляет поверхность пользователю. Для callback-события
// подтверждение отправляется ровно один раз, каким бы путём ни
// завершилась доставка. Ошибки не возвращаются: конвейер исчерпывает
// запасные пути и в худшем случае пишет в журнал.
func (r *Renderer) Render(ev telegram.Event, s Surface) {
	const op = "render.Render"

	if ev.IsCallback() {
		defer func() {
			if err := r.bot.AnswerCallback(ev.CallbackID, s.AckText, s.AckAlert); err != nil {
				r.log.Warn("failed to answer callback",
					slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
			}
		}()
	}

	// Недоступное изображение понижает поверхность до текстовой
	// ещё до первой попытки доставки.
	if s.PhotoPath != "" {
		if _, err := os.Stat(s.PhotoPath); err != nil {
			r.log.Warn("surface image unavailable, degrading to text",
				slog.String("op", op), slog.String("path", s.PhotoPath), sl.Err(err))
			metrics.RenderSteps.WithLabelValues("degrade_text").Inc()
			s.PhotoPath = ""
		}
	}

	if ev.MessageID != 0 {
		if r.edit(ev, s) {
			return
		}
		// Редактирование не удалось: отправляем новое сообщение,
		// старое пытаемся убрать.
		if r.sendNew(ev, s) {
			metrics.RenderSteps.WithLabelValues("send_new").Inc()
			if err := r.bot.DeleteMessage(ev.ChatID, ev.MessageID); err != nil {
				r.log.Debug("failed to delete stale message",
					slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
			}
			return
		}
	} else if r.sendNew(ev, s) {
		return
	}

	// Последняя попытка: простой текст без разметки напрямую пользователю.
	if _, err := r.bot.SendMessage(ev.UserID, s.Caption, nil); err != nil {
		r.log.Error("failed to deliver surface",
			slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
		metrics.RenderSteps.WithLabelValues("give_up").Inc()
		return
	}
	metrics.RenderSteps.WithLabelValues("last_resort").Inc()
}

// Ack подтверждает callback-событие без перерисовки поверхности.
func (r *Renderer) Ack(ev telegram.Event, text string, alert bool) {
	const op = "render.Ack"

	if !ev.IsCallback() {
		return
	}
	if err := r.bot.AnswerCallback(ev.CallbackID, text, alert); err != nil {
		r.log.Warn("failed to answer callback",
			slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
	}
}

// edit пытается отредактировать существующую поверхность.
// «message is not modified» считается успехом.
func (r *Renderer) edit(ev telegram.Event, s Surface) bool {
	const op = "render.edit"

	var err error
	switch {
	case s.PhotoPath != "" && ev.SurfaceHasPhoto:
		err = r.bot.EditCaption(ev.ChatID, ev.MessageID, s.Caption, s.Markup)
		if err == nil || telegram.IsNotModified(err) {
			metrics.RenderSteps.WithLabelValues("edit_caption").Inc()
			return true
		}
	case s.PhotoPath != "":
		// Текстовое сообщение нельзя превратить в фото редактированием
		// текста — заменяем содержимое целиком.
		err = r.bot.EditMedia(ev.ChatID, ev.MessageID, s.PhotoPath, s.Caption, s.Markup)
		if err == nil || telegram.IsNotModified(err) {
			metrics.RenderSteps.WithLabelValues("edit_media").Inc()
			return true
		}
	case ev.SurfaceHasPhoto:
		err = r.bot.EditCaption(ev.ChatID, ev.MessageID, s.Caption, s.Markup)
		if err == nil || telegram.IsNotModified(err) {
			metrics.RenderSteps.WithLabelValues("edit_caption").Inc()
			return true
		}
	default:
		err = r.bot.EditText(ev.ChatID, ev.MessageID, s.Caption, s.Markup)
		if err == nil || telegram.IsNotModified(err) {
			metrics.RenderSteps.WithLabelValues("edit_text").Inc()
			return true
		}
	}

	r.log.Debug("edit failed, falling back to send",
		slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
	return false
}

// sendNew отправляет поверхность новым сообщением. Сбой отправки фото
// понижает поверхность до текстовой с той же разметкой.
func (r *Renderer) sendNew(ev telegram.Event, s Surface) bool {
	const op = "render.sendNew"

	if s.PhotoPath != "" {
		_, err := r.bot.SendPhoto(ev.ChatID, s.PhotoPath, s.Caption, s.Markup)
		if err == nil {
			return true
		}
		r.log.Warn("failed to send photo, degrading to text",
			slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
		metrics.RenderSteps.WithLabelValues("degrade_text").Inc()
	}
	if _, err := r.bot.SendMessage(ev.ChatID, s.Caption, s.Markup); err != nil {
		r.log.Warn("failed to send message",
			slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
		return false
	}
	return true
}
