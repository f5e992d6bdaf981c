// Package channelgate проверяет подписку пользователя на обязательный
// канал. Результат проверки трёхзначный: разрешено, запрещено,
// проверить не удалось — невозможность проверить никогда не выдаётся
// за отказ.
package channelgate

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-bot/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-bot/internal/metrics"
	"github.com/magabrotheeeer/subscription-bot/internal/models"
)

// Result исход проверки гейта.
type Result int

const (
	// Allowed пользователь подписан на канал либо проверка не требуется.
	Allowed Result = iota
	// Blocked пользователь достоверно не подписан на канал.
	Blocked
	// Failed проверку выполнить не удалось.
	Failed
)

// Статусы участника, считающиеся членством.
var memberStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
	"restricted":    true,
}

// MemberChecker запрашивает статус участника канала у Bot API.
type MemberChecker interface {
	GetChatMember(chatID, userID int64) (string, error)
}

// VerificationStore сохраняет результат проверки в профиле пользователя.
type VerificationStore interface {
	UpdateChannelVerification(ctx context.Context, id int64, verified bool, channelID int64, checkedAt time.Time) error
}

// NotParticipantFn распознаёт ошибку Bot API, означающую достоверное
// отсутствие пользователя в канале.
type NotParticipantFn func(error) bool

// ForbiddenFn распознаёт ошибку Bot API об отсутствии у бота доступа
// к каналу. Такая ошибка означает неверную настройку, а не отказ.
type ForbiddenFn func(error) bool

// Config настройки гейта.
type Config struct {
	RequiredChannelID int64
	IsAdmin           func(userID int64) bool
}

// Gate проверяет подписку на обязательный канал.
type Gate struct {
	checker          MemberChecker
	store            VerificationStore
	isNotParticipant NotParticipantFn
	isForbidden      ForbiddenFn
	cfg              Config
	log              *slog.Logger
}

// New создаёт Gate.
func New(checker MemberChecker, store VerificationStore, isNotParticipant NotParticipantFn, isForbidden ForbiddenFn, cfg Config, log *slog.Logger) *Gate {
	return &Gate{
		checker:          checker,
		store:            store,
		isNotParticipant: isNotParticipant,
		isForbidden:      isForbidden,
		cfg:              cfg,
		log:              log,
	}
}

// Check проверяет доступ пользователя. Пустой RequiredChannelID отключает
// гейт, администраторы и не сохранённые ещё пользователи проходят без
// проверки. Положительный сохранённый результат для того же канала
// принимается без обращения к Bot API.
func (g *Gate) Check(ctx context.Context, userID int64, user *models.User) Result {
	const op = "channelgate.Check"

	if g.cfg.RequiredChannelID == 0 {
		return Allowed
	}
	if g.cfg.IsAdmin != nil && g.cfg.IsAdmin(userID) {
		return Allowed
	}
	// Для ещё не сохранённого пользователя проверка откладывается
	// до первого /start, где запись уже существует.
	if user == nil {
		return Allowed
	}

	if user.ChannelVerified &&
		user.ChannelVerifiedFor != nil && *user.ChannelVerifiedFor == g.cfg.RequiredChannelID {
		metrics.GateChecks.WithLabelValues("allowed_cached").Inc()
		return Allowed
	}

	status, err := g.checker.GetChatMember(g.cfg.RequiredChannelID, userID)
	if err != nil {
		if g.isNotParticipant != nil && g.isNotParticipant(err) {
			g.persist(ctx, userID, false)
			metrics.GateChecks.WithLabelValues("blocked").Inc()
			return Blocked
		}
		if g.isForbidden != nil && g.isForbidden(err) {
			g.log.Error("bot has no access to required channel",
				slog.String("op", op),
				slog.Int64("channel_id", g.cfg.RequiredChannelID), sl.Err(err))
		} else {
			g.log.Warn("channel membership check failed",
				slog.String("op", op), sl.UserID(userID), sl.Err(err))
		}
		metrics.GateChecks.WithLabelValues("failed").Inc()
		return Failed
	}

	if memberStatuses[status] {
		g.persist(ctx, userID, true)
		metrics.GateChecks.WithLabelValues("allowed").Inc()
		return Allowed
	}
	g.persist(ctx, userID, false)
	metrics.GateChecks.WithLabelValues("blocked").Inc()
	return Blocked
}

// persist сохраняет определённый результат проверки. Сбой записи
// не меняет решение гейта.
func (g *Gate) persist(ctx context.Context, userID int64, verified bool) {
	const op = "channelgate.persist"

	err := g.store.UpdateChannelVerification(ctx, userID, verified,
		g.cfg.RequiredChannelID, time.Now().UTC())
	if err != nil {
		g.log.Warn("failed to persist channel verification",
			slog.String("op", op), sl.UserID(userID), sl.Err(err))
	}
}
