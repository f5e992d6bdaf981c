package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/subscription-bot/internal/models"
)

const userColumns = `user_id, username, first_name, last_name, language_code,
	      referral_code, referred_by_id, registration_date,
	      channel_sub_verified, channel_sub_verified_for, channel_sub_checked_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	u := &models.User{}
	var referredBy, verifiedFor sql.NullInt64
	var checkedAt sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.LanguageCode,
		&u.ReferralCode, &referredBy, &u.RegistrationDate,
		&u.ChannelVerified, &verifiedFor, &checkedAt); err != nil {
		return nil, err
	}
	if referredBy.Valid {
		u.ReferredByID = &referredBy.Int64
	}
	if verifiedFor.Valid {
		u.ChannelVerifiedFor = &verifiedFor.Int64
	}
	if checkedAt.Valid {
		u.ChannelCheckedAt = &checkedAt.Time
	}
	return u, nil
}

// GetUser возвращает пользователя по идентификатору Telegram.
// Отсутствие записи не является ошибкой — возвращается nil.
func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE user_id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByReferralCode возвращает пользователя — владельца реферального кода,
// либо nil, если код никому не принадлежит.
func (s *Storage) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	const op = "storage.GetUserByReferralCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE referral_code = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// CreateUser атомарно создаёт пользователя, если его ещё нет.
// Возвращает актуальную запись и признак created: при гонке двух
// одновременных /start вторая вставка молча превращается в чтение
// уже существующей строки.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, bool, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (user_id, username, first_name, last_name, language_code,
			      referral_code, referred_by_id, registration_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (user_id) DO NOTHING
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query,
		user.ID, user.Username, user.FirstName, user.LastName, user.LanguageCode,
		user.ReferralCode, user.ReferredByID, user.RegistrationDate))
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	// Строка уже существовала — вставка ничего не вернула.
	existing, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if existing == nil {
		return nil, false, fmt.Errorf("%s: user %d neither inserted nor found", op, user.ID)
	}
	return existing, false, nil
}

// UpdateUser применяет частичное обновление профиля. Пустое обновление
// не выполняет запросов. Поле referred_by_id записывается только поверх NULL.
func (s *Storage) UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) error {
	const op = "storage.UpdateUser"
	if upd.Empty() {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.LanguageCode != nil {
		add("language_code", *upd.LanguageCode)
	}
	if upd.ReferredByID != nil {
		args = append(args, *upd.ReferredByID)
		sets = append(sets, "referred_by_id = COALESCE(referred_by_id, $"+strconv.Itoa(len(args))+")")
	}

	args = append(args, id)
	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE user_id = $` + strconv.Itoa(len(args))
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateUserLanguage обновляет язык пользователя.
// Возвращает false, если пользователь не найден.
func (s *Storage) UpdateUserLanguage(ctx context.Context, id int64, lang string) (bool, error) {
	const op = "storage.UpdateUserLanguage"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET language_code = $1 WHERE user_id = $2`, lang, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

// UpdateChannelVerification сохраняет результат проверки подписки на канал.
// Записывается и положительный, и отрицательный результат.
func (s *Storage) UpdateChannelVerification(ctx context.Context, id int64, verified bool, channelID int64, checkedAt time.Time) error {
	const op = "storage.UpdateChannelVerification"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.ExecContext(ctx,
		`UPDATE users
		 SET channel_sub_verified = $1,
		     channel_sub_verified_for = $2,
		     channel_sub_checked_at = $3
		 WHERE user_id = $4`,
		verified, channelID, checkedAt, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
