// Package promo применяет промокоды, пришедшие start-параметром
// или введённые вручную. Бизнес-отказы (неизвестный код, исчерпанный
// лимит) отличаются от инфраструктурных сбоев: первые несут ключ
// локализованной причины, вторые возвращаются ошибкой.
package promo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-bot/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-bot/internal/storage/repository"
)

// Activator выполняет транзакционную активацию промокода в хранилище.
type Activator interface {
	ActivatePromoCode(ctx context.Context, userID int64, code string) (time.Time, error)
}

// Result результат применения промокода.
type Result struct {
	Applied   bool
	EndDate   time.Time // Новая дата окончания подписки при успехе
	ReasonKey string    // Ключ каталога локализации при бизнес-отказе
}

// Service применяет промокоды.
type Service struct {
	repo Activator
	log  *slog.Logger
}

// New создаёт Service.
func New(repo Activator, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Apply применяет код к пользователю. Ошибка возвращается только при
// инфраструктурном сбое; отказ по правилам кода — это Result с причиной.
func (s *Service) Apply(ctx context.Context, userID int64, code string) (Result, error) {
	const op = "promo.Apply"

	endDate, err := s.repo.ActivatePromoCode(ctx, userID, code)
	if err == nil {
		s.log.Info("promo code applied",
			slog.String("op", op), sl.UserID(userID), slog.String("code", code),
			slog.Time("end_date", endDate))
		return Result{Applied: true, EndDate: endDate}, nil
	}

	if key, ok := reasonKey(err); ok {
		s.log.Info("promo code rejected",
			slog.String("op", op), sl.UserID(userID), slog.String("code", code),
			slog.String("reason", key))
		return Result{ReasonKey: key}, nil
	}
	return Result{}, err
}

func reasonKey(err error) (string, bool) {
	switch {
	case errors.Is(err, repository.ErrPromoNotFound):
		return "promo_not_found", true
	case errors.Is(err, repository.ErrPromoInactive):
		return "promo_inactive", true
	case errors.Is(err, repository.ErrPromoExpired):
		return "promo_expired", true
	case errors.Is(err, repository.ErrPromoExhausted):
		return "promo_exhausted", true
	case errors.Is(err, repository.ErrPromoAlreadyUsed):
		return "promo_already_used", true
	}
	return "", false
}
