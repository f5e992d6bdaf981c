// Package notification публикует события бота в RabbitMQ
// для downstream-сервисов (рассылки, аналитика).
package notification

import (
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-bot/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-bot/internal/lib/sl"
)

// UserRegisteredEvent — полезная нагрузка события о регистрации пользователя.
type UserRegisteredEvent struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	LanguageCode string    `json:"language_code,omitempty"`
	ReferredByID *int64    `json:"referred_by_id,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Service отправляет события в очередь. Публикация best-effort:
// сбой брокера не должен ломать онбординг.
type Service struct {
	ch  *amqp.Channel
	log *slog.Logger
}

// New создает сервис уведомлений. Канал может быть nil, если брокер
// недоступен на старте — тогда события молча пропускаются.
func New(ch *amqp.Channel, log *slog.Logger) *Service {
	return &Service{ch: ch, log: log}
}

// NotifyUserRegistered публикует событие о новом пользователе.
func (s *Service) NotifyUserRegistered(event UserRegisteredEvent) {
	const op = "services.notification.NotifyUserRegistered"

	if s.ch == nil {
		return
	}

	err := rabbitmq.PublishMessage(s.ch, "notifications", "user.registered", event)
	if err != nil {
		s.log.Error("failed to publish user registered event",
			slog.String("op", op),
			sl.UserID(event.UserID),
			sl.Err(err))
	}
}
