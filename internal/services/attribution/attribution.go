// Package attribution разбирает start-параметр команды /start
// и превращает его в намерение: реферал, промокод, рекламная кампания
// или ничего. Разбор никогда не прерывает онбординг — нераспознанный
// или недействительный параметр просто сводится к None.
package attribution

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/subscription-bot/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-bot/internal/models"
)

// Kind тип распознанного намерения.
type Kind int

const (
	// None параметр отсутствует или не распознан.
	None Kind = iota
	// Referral параметр указывает на пригласившего пользователя.
	Referral
	// Promo параметр содержит промокод.
	Promo
	// Ad параметр содержит токен рекламной кампании.
	Ad
)

// Intent результат разбора start-параметра.
type Intent struct {
	Kind       Kind
	ReferrerID int64  // Заполнен при Kind == Referral
	PromoCode  string // Заполнен при Kind == Promo
	AdParam    string // Заполнен при Kind == Ad
}

var (
	refRe   = regexp.MustCompile(`^ref_((?:[uU][A-Za-z0-9]{9})|(?:[A-Za-z0-9]{9})|\d+)$`)
	promoRe = regexp.MustCompile(`^promo_(\w+)$`)
	adRe    = regexp.MustCompile(`^[A-Za-z0-9_\-]{2,64}$`)
)

// UserLookup методы хранилища, которые нужны для проверки
// реферальных ссылок.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*models.User, error)
}

// Resolver разбирает start-параметры.
type Resolver struct {
	users      UserLookup
	legacyRefs bool
	log        *slog.Logger
}

// New создаёт Resolver. Флаг legacyRefs разрешает старый числовой
// формат реферальных ссылок ref_<telegram_id>.
func New(users UserLookup, legacyRefs bool, log *slog.Logger) *Resolver {
	return &Resolver{users: users, legacyRefs: legacyRefs, log: log}
}

// Resolve разбирает payload для пользователя actingUserID.
// Самоприглашение и ссылки на несуществующих пользователей сводятся к None.
func (r *Resolver) Resolve(ctx context.Context, payload string, actingUserID int64) Intent {
	const op = "attribution.Resolve"

	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Intent{}
	}

	if m := refRe.FindStringSubmatch(payload); m != nil {
		return r.resolveReferral(ctx, m[1], actingUserID)
	}

	if m := promoRe.FindStringSubmatch(payload); m != nil {
		return Intent{Kind: Promo, PromoCode: m[1]}
	}

	// Сломанная реферальная или промо-ссылка не должна засчитываться
	// как рекламный переход.
	if adRe.MatchString(payload) &&
		!strings.HasPrefix(payload, "ref_") && !strings.HasPrefix(payload, "promo_") {
		return Intent{Kind: Ad, AdParam: payload}
	}

	r.log.Debug("unrecognized start parameter",
		slog.String("op", op), sl.UserID(actingUserID),
		slog.String("payload", payload))
	return Intent{}
}

func (r *Resolver) resolveReferral(ctx context.Context, token string, actingUserID int64) Intent {
	const op = "attribution.resolveReferral"

	if isDigits(token) {
		// Старый формат ref_<telegram_id>: работает только под флагом.
		if !r.legacyRefs {
			return Intent{}
		}
		referrerID, err := strconv.ParseInt(token, 10, 64)
		if err != nil || referrerID == actingUserID {
			return Intent{}
		}
		referrer, err := r.users.GetUser(ctx, referrerID)
		if err != nil {
			r.log.Warn("failed to look up legacy referrer",
				slog.String("op", op), sl.UserID(actingUserID), sl.Err(err))
			return Intent{}
		}
		if referrer == nil {
			return Intent{}
		}
		return Intent{Kind: Referral, ReferrerID: referrer.ID}
	}

	// Код может идти с историческим префиксом u/U перед девятью символами.
	code := token
	if len(code) == 10 && (code[0] == 'u' || code[0] == 'U') {
		code = code[1:]
	}
	referrer, err := r.users.GetUserByReferralCode(ctx, code)
	if err != nil {
		r.log.Warn("failed to look up referral code",
			slog.String("op", op), sl.UserID(actingUserID), sl.Err(err))
		return Intent{}
	}
	if referrer == nil || referrer.ID == actingUserID {
		return Intent{}
	}
	return Intent{Kind: Referral, ReferrerID: referrer.ID}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
