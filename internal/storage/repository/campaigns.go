package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-bot/internal/models"
)

// GetCampaignByStartParam возвращает рекламную кампанию по токену из
// start-параметра, либо nil, если такой кампании нет.
func (s *Storage) GetCampaignByStartParam(ctx context.Context, startParam string) (*models.Campaign, error) {
	const op = "storage.GetCampaignByStartParam"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, start_param, is_active, created_at
			  FROM ad_campaigns
			  WHERE start_param = $1`
	c := &models.Campaign{}
	err := s.DB.QueryRowContext(ctx, query, startParam).
		Scan(&c.ID, &c.Name, &c.StartParam, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// RecordAttribution идемпотентно связывает пользователя с кампанией.
// Повторная запись той же пары не создаёт дубликата и не является ошибкой.
func (s *Storage) RecordAttribution(ctx context.Context, userID int64, campaignID int) error {
	const op = "storage.RecordAttribution"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.ExecContext(ctx,
		`INSERT INTO ad_attributions (user_id, campaign_id, attributed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, campaign_id) DO NOTHING`,
		userID, campaignID, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
