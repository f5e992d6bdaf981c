package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Ошибки активации промокода. Сервисный слой переводит их
// в локализованные причины отказа.
var (
	ErrPromoNotFound    = errors.New("promo code not found")
	ErrPromoInactive    = errors.New("promo code is inactive")
	ErrPromoExpired     = errors.New("promo code is expired")
	ErrPromoExhausted   = errors.New("promo code activation limit reached")
	ErrPromoAlreadyUsed = errors.New("promo code already used by this user")
)

// ActivatePromoCode применяет промокод к пользователю в одной транзакции:
// проверяет код, фиксирует уникальную активацию и продлевает подписку
// на bonus_days. Возвращает новую дату окончания подписки.
func (s *Storage) ActivatePromoCode(ctx context.Context, userID int64, code string) (time.Time, error) {
	const op = "storage.ActivatePromoCode"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var bonusDays, maxActivations, activations int
	var isActive bool
	var validUntil sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT bonus_days, max_activations, activations, is_active, valid_until
		 FROM promo_codes
		 WHERE code = $1
		 FOR UPDATE`, code).
		Scan(&bonusDays, &maxActivations, &activations, &isActive, &validUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrPromoNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	switch {
	case !isActive:
		return time.Time{}, ErrPromoInactive
	case validUntil.Valid && validUntil.Time.Before(now):
		return time.Time{}, ErrPromoExpired
	case maxActivations > 0 && activations >= maxActivations:
		return time.Time{}, ErrPromoExhausted
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO promo_activations (code, user_id, activated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (code, user_id) DO NOTHING`,
		code, userID, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	} else if affected == 0 {
		return time.Time{}, ErrPromoAlreadyUsed
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE promo_codes SET activations = activations + 1 WHERE code = $1`,
		code); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	// Активная подписка продлевается, отсутствующая — создаётся от текущего момента.
	var newEnd time.Time
	var subID int
	var endDate time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT id, end_date
		 FROM subscriptions
		 WHERE user_id = $1 AND is_active AND end_date > $2
		 ORDER BY end_date DESC
		 LIMIT 1
		 FOR UPDATE`, userID, now).Scan(&subID, &endDate)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		newEnd = now.AddDate(0, 0, bonusDays)
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO subscriptions (user_id, end_date, config_link, is_active)
			 VALUES ($1, $2, '', TRUE)`, userID, newEnd); err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", op, err)
		}
	case err != nil:
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	default:
		newEnd = endDate.AddDate(0, 0, bonusDays)
		if _, err = tx.ExecContext(ctx,
			`UPDATE subscriptions SET end_date = $1 WHERE id = $2`, newEnd, subID); err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return newEnd, nil
}
