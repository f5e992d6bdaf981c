package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-bot/internal/models"
)

// GetActiveSubscription возвращает действующую подписку пользователя
// с самой поздней датой окончания, либо nil.
func (s *Storage) GetActiveSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	const op = "storage.GetActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, end_date, config_link, is_active
			  FROM subscriptions
			  WHERE user_id = $1 AND is_active AND end_date > $2
			  ORDER BY end_date DESC
			  LIMIT 1`
	sub := &models.Subscription{}
	err := s.DB.QueryRowContext(ctx, query, userID, time.Now().UTC()).
		Scan(&sub.ID, &sub.UserID, &sub.EndDate, &sub.ConfigLink, &sub.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// HasAnySubscription сообщает, была ли у пользователя хоть одна подписка,
// включая истёкшие. Используется для показа кнопки пробного периода.
func (s *Storage) HasAnySubscription(ctx context.Context, userID int64) (bool, error) {
	const op = "storage.HasAnySubscription"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM subscriptions WHERE user_id = $1)`, userID).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
