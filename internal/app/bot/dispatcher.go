package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subscription-bot/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-bot/internal/telegram"
)

// Ограничение частоты на пользователя: защита от зажатой кнопки
// и скриптовых повторов /start.
const (
	userRateLimit = rate.Limit(1)
	userRateBurst = 3

	handleTimeout = 30 * time.Second
)

// OnboardingFlows операции онбординга, которые маршрутизирует диспетчер.
type OnboardingFlows interface {
	Start(ctx context.Context, ev telegram.Event, payload string)
	VerifyChannel(ctx context.Context, ev telegram.Event)
	ShowLanguagePrompt(ctx context.Context, ev telegram.Event)
	SetLanguage(ctx context.Context, ev telegram.Event, lang string)
	BackToMain(ctx context.Context, ev telegram.Event)
}

// CallbackAcker снимает индикатор загрузки у отброшенных callback-событий.
type CallbackAcker interface {
	Ack(ev telegram.Event, text string, alert bool)
}

// Dispatcher разбирает обновления Bot API и направляет их в сценарии.
// Каждое обновление обрабатывается в своей горутине с собственным
// идентификатором события в журнале.
type Dispatcher struct {
	flows OnboardingFlows
	acker CallbackAcker
	log   *slog.Logger

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	wg       sync.WaitGroup
}

// NewDispatcher создаёт Dispatcher.
func NewDispatcher(flows OnboardingFlows, acker CallbackAcker, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		flows:    flows,
		acker:    acker,
		log:      log,
		limiters: make(map[int64]*rate.Limiter),
	}
}

// Dispatch принимает обновление и запускает его обработку.
func (d *Dispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) {
	ev, route, arg, ok := d.route(update)
	if !ok {
		return
	}

	log := d.log.With(
		slog.String("event_id", uuid.New().String()),
		sl.UserID(ev.UserID))

	if !d.limiter(ev.UserID).Allow() {
		log.Debug("update dropped by rate limit")
		// Спиннер на кнопке всё равно надо снять.
		d.acker.Ack(ev, "", false)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic while handling update", slog.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, handleTimeout)
		defer cancel()

		log.Debug("handling update", slog.String("route", route))
		d.handle(ctx, ev, route, arg)
	}()
}

// Wait дожидается завершения всех запущенных обработчиков.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Маршруты диспетчера.
const (
	routeStart          = "start"
	routeVerifyChannel  = "verify_channel"
	routeBackToMain     = "back_to_main"
	routeLanguagePrompt = "language_prompt"
	routeSetLanguage    = "set_language"
	routeUnknown        = "unknown"
)

// route превращает обновление в событие и имя маршрута.
// Обновления без поддерживаемой полезной нагрузки отбрасываются.
func (d *Dispatcher) route(update tgbotapi.Update) (telegram.Event, string, string, bool) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		ev := telegram.NewMessageEvent(update.Message)
		switch update.Message.Command() {
		case "start":
			return ev, routeStart, update.Message.CommandArguments(), true
		case "language":
			return ev, routeLanguagePrompt, "", true
		}
		return ev, routeUnknown, "", true

	case update.CallbackQuery != nil:
		ev := telegram.NewCallbackEvent(update.CallbackQuery)
		data := update.CallbackQuery.Data
		switch {
		case data == telegram.CallbackVerifyChannel:
			return ev, routeVerifyChannel, "", true
		case data == telegram.CallbackBackToMain:
			return ev, routeBackToMain, "", true
		case data == telegram.CallbackLanguage:
			return ev, routeLanguagePrompt, "", true
		case strings.HasPrefix(data, telegram.SetLanguagePrefix):
			return ev, routeSetLanguage, strings.TrimPrefix(data, telegram.SetLanguagePrefix), true
		}
		return ev, routeUnknown, "", true
	}
	return telegram.Event{}, "", "", false
}

func (d *Dispatcher) handle(ctx context.Context, ev telegram.Event, route, arg string) {
	switch route {
	case routeStart:
		d.flows.Start(ctx, ev, arg)
	case routeLanguagePrompt:
		d.flows.ShowLanguagePrompt(ctx, ev)
	case routeVerifyChannel:
		d.flows.VerifyChannel(ctx, ev)
	case routeBackToMain:
		d.flows.BackToMain(ctx, ev)
	case routeSetLanguage:
		d.flows.SetLanguage(ctx, ev, arg)
	default:
		// Неизвестная кнопка из старой клавиатуры: молча снимаем спиннер.
		d.acker.Ack(ev, "", false)
	}
}

func (d *Dispatcher) limiter(userID int64) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	lim, ok := d.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(userRateLimit, userRateBurst)
		d.limiters[userID] = lim
	}
	return lim
}
