// Package subscription отвечает на вопросы о подписке пользователя:
// активна ли, была ли хоть одна, детали действующей. Статус кешируется,
// потому что запрашивается на каждом показе главного меню.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-bot/internal/models"
)

// Repository методы хранилища подписок.
type Repository interface {
	// GetActiveSubscription возвращает действующую подписку либо nil.
	GetActiveSubscription(ctx context.Context, userID int64) (*models.Subscription, error)
	// HasAnySubscription сообщает, была ли у пользователя хоть одна подписка.
	HasAnySubscription(ctx context.Context, userID int64) (bool, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

const statusTTL = 5 * time.Minute

// cachedStatus оборачивает подписку: закешированный nil означает
// «достоверно нет активной», отличимый от промаха кеша.
type cachedStatus struct {
	Subscription *models.Subscription
}

// Service реализует бизнес-логику статуса подписки с кешированием.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создаёт Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func statusKey(userID int64) string {
	return fmt.Sprintf("subscription:active:%d", userID)
}

// ActiveSubscriptionDetails возвращает действующую подписку пользователя
// либо nil, используя кеш или репозиторий.
func (s *Service) ActiveSubscriptionDetails(ctx context.Context, userID int64) (*models.Subscription, error) {
	key := statusKey(userID)

	var cached cachedStatus
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read subscription status from cache",
			slog.String("key", key), slog.Any("err", err))
	}
	if found {
		return cached.Subscription, nil
	}

	sub, err := s.repo.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(key, cachedStatus{Subscription: sub}, statusTTL); err != nil {
		s.log.Warn("failed to cache subscription status",
			slog.String("key", key), slog.Any("err", err))
	}
	return sub, nil
}

// HasActiveSubscription сообщает, действует ли сейчас подписка пользователя.
func (s *Service) HasActiveSubscription(ctx context.Context, userID int64) (bool, error) {
	sub, err := s.ActiveSubscriptionDetails(ctx, userID)
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

// HasHadAnySubscription сообщает, была ли у пользователя хоть одна подписка,
// включая истёкшие. Не кешируется: ответ нужен только для кнопки
// пробного периода.
func (s *Service) HasHadAnySubscription(ctx context.Context, userID int64) (bool, error) {
	return s.repo.HasAnySubscription(ctx, userID)
}

// InvalidateStatus сбрасывает кеш статуса после изменения подписки,
// например после применения промокода.
func (s *Service) InvalidateStatus(userID int64) {
	key := statusKey(userID)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate subscription status",
			slog.String("key", key), slog.Any("err", err))
	}
}
