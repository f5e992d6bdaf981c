// Package onboarding реализует сценарий первого контакта с ботом:
// разбор start-параметра, идемпотентную регистрацию, гейт подписки
// на канал, применение промокода и показ главного меню. Побочные
// эффекты атрибуции и уведомлений не блокируют основной поток.
package onboarding

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-bot/internal/config"
	"github.com/magabrotheeeer/subscription-bot/internal/lib/i18n"
	"github.com/magabrotheeeer/subscription-bot/internal/lib/refcode"
	"github.com/magabrotheeeer/subscription-bot/internal/lib/sanitize"
	"github.com/magabrotheeeer/subscription-bot/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-bot/internal/metrics"
	"github.com/magabrotheeeer/subscription-bot/internal/models"
	"github.com/magabrotheeeer/subscription-bot/internal/services/attribution"
	"github.com/magabrotheeeer/subscription-bot/internal/services/channelgate"
	"github.com/magabrotheeeer/subscription-bot/internal/services/notification"
	"github.com/magabrotheeeer/subscription-bot/internal/services/promo"
	"github.com/magabrotheeeer/subscription-bot/internal/services/render"
	"github.com/magabrotheeeer/subscription-bot/internal/telegram"
)

// UserRepository методы хранилища пользователей, которые нужны онбордингу.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) (*models.User, bool, error)
	UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) error
	UpdateUserLanguage(ctx context.Context, id int64, lang string) (bool, error)
}

// CampaignRepository методы хранилища рекламных кампаний.
type CampaignRepository interface {
	GetCampaignByStartParam(ctx context.Context, startParam string) (*models.Campaign, error)
	RecordAttribution(ctx context.Context, userID int64, campaignID int) error
}

// IntentResolver разбирает start-параметр в намерение.
type IntentResolver interface {
	Resolve(ctx context.Context, payload string, actingUserID int64) attribution.Intent
}

// ChannelGate проверяет подписку на обязательный канал.
type ChannelGate interface {
	Check(ctx context.Context, userID int64, user *models.User) channelgate.Result
}

// PromoApplier применяет промокоды.
type PromoApplier interface {
	Apply(ctx context.Context, userID int64, code string) (promo.Result, error)
}

// Subscriptions отвечает на вопросы о подписке пользователя.
type Subscriptions interface {
	ActiveSubscriptionDetails(ctx context.Context, userID int64) (*models.Subscription, error)
	HasActiveSubscription(ctx context.Context, userID int64) (bool, error)
	HasHadAnySubscription(ctx context.Context, userID int64) (bool, error)
	InvalidateStatus(userID int64)
}

// Notifier публикует события о регистрации.
type Notifier interface {
	NotifyUserRegistered(event notification.UserRegisteredEvent)
}

// SurfaceRenderer доставляет поверхности пользователю.
type SurfaceRenderer interface {
	Render(ev telegram.Event, s render.Surface)
	Ack(ev telegram.Event, text string, alert bool)
}

// Deps зависимости сервиса онбординга.
type Deps struct {
	Users     UserRepository
	Campaigns CampaignRepository
	Intents   IntentResolver
	Gate      ChannelGate
	Promo     PromoApplier
	Subs      Subscriptions
	Notifier  Notifier
	Renderer  SurfaceRenderer
	Locales   *i18n.Bundle
	Config    config.Onboarding
	Log       *slog.Logger
}

// Service оркестрирует онбординг.
type Service struct {
	users     UserRepository
	campaigns CampaignRepository
	intents   IntentResolver
	gate      ChannelGate
	promo     PromoApplier
	subs      Subscriptions
	notifier  Notifier
	renderer  SurfaceRenderer
	locales   *i18n.Bundle
	cfg       config.Onboarding
	log       *slog.Logger
}

// New создаёт Service.
func New(d Deps) *Service {
	return &Service{
		users:     d.Users,
		campaigns: d.Campaigns,
		intents:   d.Intents,
		gate:      d.Gate,
		promo:     d.Promo,
		subs:      d.Subs,
		notifier:  d.Notifier,
		renderer:  d.Renderer,
		locales:   d.Locales,
		cfg:       d.Config,
		log:       d.Log,
	}
}

// Start обрабатывает команду /start. Порядок фиксирован: намерение,
// регистрация, обновление профиля, атрибуция, гейт, приветствие,
// промокод, главное меню. Любой ранний выход оставляет пользователя
// зарегистрированным.
func (s *Service) Start(ctx context.Context, ev telegram.Event, payload string) {
	intent := s.intents.Resolve(ctx, payload, ev.UserID)

	user, created, ok := s.ensureUser(ctx, ev, intent)
	if !ok {
		tr := s.locales.ForLanguage(ev.LanguageCode)
		metrics.OnboardingEvents.WithLabelValues("error").Inc()
		s.renderer.Render(ev, render.Surface{Caption: tr.T("error_generic")})
		return
	}
	if !created {
		s.refreshProfile(ctx, ev, user, intent)
	}
	tr := s.locales.ForLanguage(user.LanguageCode)
	if intent.Kind == attribution.Ad {
		s.recordAdAttribution(ctx, ev.UserID, intent.AdParam)
	}

	switch s.gate.Check(ctx, ev.UserID, user) {
	case channelgate.Blocked:
		metrics.OnboardingEvents.WithLabelValues("blocked").Inc()
		s.renderer.Render(ev, s.channelPromptSurface(tr))
		return
	case channelgate.Failed:
		s.renderer.Render(ev, render.Surface{
			Caption: tr.T("channel_check_failed_text"),
			Markup:  telegram.ChannelSubscriptionKeyboard(tr, s.cfg.RequiredChannelLink),
		})
		return
	}

	if created && !s.cfg.DisableWelcomeMessage {
		s.renderer.Render(ev, render.Surface{
			Caption: tr.T("welcome_text", "name", ev.FullName()),
		})
	}

	if intent.Kind == attribution.Promo {
		if s.applyStartPromo(ctx, ev, tr, intent.PromoCode) {
			return
		}
	}

	if created {
		metrics.OnboardingEvents.WithLabelValues("registered").Inc()
	} else {
		metrics.OnboardingEvents.WithLabelValues("updated").Inc()
	}
	s.renderMainMenu(ctx, ev, tr, "")
}

// VerifyChannel обрабатывает кнопку повторной проверки подписки.
func (s *Service) VerifyChannel(ctx context.Context, ev telegram.Event) {
	const op = "onboarding.VerifyChannel"

	user, err := s.users.GetUser(ctx, ev.UserID)
	if err != nil {
		// Без профиля проверка достоверно невыполнима: гейт пропустил бы
		// nil-пользователя без обращения к Bot API.
		s.log.Error("failed to load user for verification",
			slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
		s.renderer.Ack(ev, s.translatorFor(ev, nil).T("channel_check_failed_text"), true)
		return
	}
	tr := s.translatorFor(ev, user)

	switch s.gate.Check(ctx, ev.UserID, user) {
	case channelgate.Allowed:
		if !s.cfg.DisableWelcomeMessage {
			// Приветствие отдельным сообщением, меню правит поверхность
			// гейта. Подтверждение callback остаётся за отрисовкой меню.
			msgEv := ev
			msgEv.CallbackID = ""
			msgEv.MessageID = 0
			s.renderer.Render(msgEv, render.Surface{
				Caption: tr.T("welcome_text", "name", ev.FullName()),
			})
		}
		s.renderMainMenu(ctx, ev, tr, tr.T("channel_verify_success"))
	case channelgate.Blocked:
		s.renderer.Ack(ev, tr.T("channel_verify_still_blocked"), true)
	case channelgate.Failed:
		s.renderer.Ack(ev, tr.T("channel_check_failed_text"), true)
	}
}

// ShowLanguagePrompt показывает выбор языка интерфейса.
func (s *Service) ShowLanguagePrompt(ctx context.Context, ev telegram.Event) {
	user, err := s.users.GetUser(ctx, ev.UserID)
	if err != nil {
		s.log.Error("failed to load user for language prompt",
			slog.String("op", "onboarding.ShowLanguagePrompt"), sl.UserID(ev.UserID), sl.Err(err))
	}
	tr := s.translatorFor(ev, user)

	s.renderer.Render(ev, render.Surface{
		Caption: tr.T("language_prompt_text"),
		Markup:  telegram.LanguageSelectionKeyboard(tr, s.locales.Languages()),
	})
}

// SetLanguage сохраняет выбранный язык и перерисовывает меню на нём.
func (s *Service) SetLanguage(ctx context.Context, ev telegram.Event, lang string) {
	const op = "onboarding.SetLanguage"

	tr := s.locales.ForLanguage(lang)
	updated, err := s.users.UpdateUserLanguage(ctx, ev.UserID, tr.Lang())
	if err != nil {
		s.log.Error("failed to update user language",
			slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
	} else if !updated {
		s.log.Warn("language change for unknown user",
			slog.String("op", op), sl.UserID(ev.UserID))
	}
	s.renderMainMenu(ctx, ev, tr, tr.T("language_changed"))
}

// BackToMain возвращает пользователя в главное меню.
func (s *Service) BackToMain(ctx context.Context, ev telegram.Event) {
	user, err := s.users.GetUser(ctx, ev.UserID)
	if err != nil {
		s.log.Error("failed to load user for main menu",
			slog.String("op", "onboarding.BackToMain"), sl.UserID(ev.UserID), sl.Err(err))
	}
	s.renderMainMenu(ctx, ev, s.translatorFor(ev, user), "")
}

// ensureUser атомарно регистрирует пользователя либо возвращает
// существующую запись. Возвращает ok == false только при сбое,
// после которого онбординг продолжать нельзя.
func (s *Service) ensureUser(ctx context.Context, ev telegram.Event, intent attribution.Intent) (*models.User, bool, bool) {
	const op = "onboarding.ensureUser"

	code, err := refcode.Generate()
	if err != nil {
		s.log.Error("failed to generate referral code",
			slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
		return nil, false, false
	}

	lang := ev.LanguageCode
	if lang == "" {
		lang = s.cfg.DefaultLanguage
	}
	candidate := models.User{
		ID:               ev.UserID,
		Username:         sanitize.Username(ev.Username),
		FirstName:        sanitize.DisplayName(ev.FirstName),
		LastName:         sanitize.DisplayName(ev.LastName),
		LanguageCode:     lang,
		ReferralCode:     code,
		RegistrationDate: time.Now().UTC(),
	}
	if intent.Kind == attribution.Referral {
		candidate.ReferredByID = &intent.ReferrerID
	}

	user, created, err := s.users.CreateUser(ctx, candidate)
	if err != nil {
		s.log.Error("failed to register user",
			slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
		return nil, false, false
	}
	if created {
		s.log.Info("user registered",
			slog.String("op", op), sl.UserID(user.ID),
			slog.Bool("referred", user.ReferredByID != nil))
		s.notifier.NotifyUserRegistered(notification.UserRegisteredEvent{
			UserID:       user.ID,
			Username:     user.Username,
			LanguageCode: user.LanguageCode,
			ReferredByID: user.ReferredByID,
			RegisteredAt: user.RegistrationDate,
		})
	}
	return user, created, true
}

// refreshProfile приводит сохранённый профиль к актуальным данным
// события. Реферал дозаписывается только пустым и только пока у
// пользователя нет действующей подписки. Сбой обновления не
// прерывает онбординг.
func (s *Service) refreshProfile(ctx context.Context, ev telegram.Event, user *models.User, intent attribution.Intent) {
	const op = "onboarding.refreshProfile"

	var upd models.UserUpdate
	if v := sanitize.Username(ev.Username); v != user.Username {
		upd.Username = &v
	}
	if v := sanitize.DisplayName(ev.FirstName); v != user.FirstName {
		upd.FirstName = &v
	}
	if v := sanitize.DisplayName(ev.LastName); v != user.LastName {
		upd.LastName = &v
	}
	// Язык клиента Telegram обновляется так же, как остальные поля
	// профиля. Явный выбор через /language действует до смены языка
	// клиента.
	if ev.LanguageCode != "" && ev.LanguageCode != user.LanguageCode {
		upd.LanguageCode = &ev.LanguageCode
	}

	if intent.Kind == attribution.Referral && user.ReferredByID == nil {
		hasActive, err := s.subs.HasActiveSubscription(ctx, ev.UserID)
		if err != nil {
			s.log.Warn("failed to check subscription before referral backfill",
				slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
		} else if !hasActive {
			upd.ReferredByID = &intent.ReferrerID
		}
	}

	if upd.Empty() {
		return
	}
	if err := s.users.UpdateUser(ctx, ev.UserID, upd); err != nil {
		s.log.Warn("failed to refresh user profile",
			slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
		return
	}
	// Локальная копия нужна дальше по потоку актуальной.
	if upd.Username != nil {
		user.Username = *upd.Username
	}
	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}
	if upd.LanguageCode != nil {
		user.LanguageCode = *upd.LanguageCode
	}
	if upd.ReferredByID != nil {
		user.ReferredByID = upd.ReferredByID
	}
}

// recordAdAttribution связывает пользователя с рекламной кампанией.
// Любой сбой только журналируется.
func (s *Service) recordAdAttribution(ctx context.Context, userID int64, param string) {
	const op = "onboarding.recordAdAttribution"

	campaign, err := s.campaigns.GetCampaignByStartParam(ctx, param)
	if err != nil {
		s.log.Warn("failed to look up ad campaign",
			slog.String("op", op), sl.UserID(userID), sl.Err(err))
		return
	}
	if campaign == nil || !campaign.IsActive {
		s.log.Debug("start parameter matches no active campaign",
			slog.String("op", op), sl.UserID(userID), slog.String("param", param))
		return
	}
	if err := s.campaigns.RecordAttribution(ctx, userID, campaign.ID); err != nil {
		s.log.Warn("failed to record ad attribution",
			slog.String("op", op), sl.UserID(userID), sl.Err(err))
		return
	}
	s.log.Info("ad attribution recorded",
		slog.String("op", op), sl.UserID(userID),
		slog.String("campaign", campaign.Name))
}

// applyStartPromo применяет промокод из глубокой ссылки. Возвращает true,
// если показана поверхность успеха и главное меню не нужно.
func (s *Service) applyStartPromo(ctx context.Context, ev telegram.Event, tr i18n.Translator, code string) bool {
	const op = "onboarding.applyStartPromo"

	// Сбой инфраструктуры не прерывает онбординг: пользователь получает
	// обычное главное меню и может применить код позже.
	res, err := s.promo.Apply(ctx, ev.UserID, code)
	if err != nil {
		s.log.Error("failed to apply promo code",
			slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
		return false
	}
	if !res.Applied {
		s.renderer.Render(ev, render.Surface{Caption: tr.T(res.ReasonKey)})
		return false
	}

	s.subs.InvalidateStatus(ev.UserID)
	metrics.OnboardingEvents.WithLabelValues("promo_applied").Inc()

	var configLink string
	if sub, err := s.subs.ActiveSubscriptionDetails(ctx, ev.UserID); err == nil && sub != nil {
		configLink = sub.ConfigLink
	}
	s.renderer.Render(ev, render.Surface{
		Caption: tr.T("promo_success_text", "end_date", res.EndDate.Format("02.01.2006")),
		Markup:  telegram.ConnectAndMainKeyboard(tr, configLink),
	})
	return true
}

// renderMainMenu показывает главное меню. Кнопка пробного периода
// видна только тем, у кого никогда не было подписки.
func (s *Service) renderMainMenu(ctx context.Context, ev telegram.Event, tr i18n.Translator, ackText string) {
	const op = "onboarding.renderMainMenu"

	sub, err := s.subs.ActiveSubscriptionDetails(ctx, ev.UserID)
	if err != nil {
		s.log.Warn("failed to load subscription status for menu",
			slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
	}

	caption := tr.T("menu_text_inactive")
	if sub != nil {
		caption = tr.T("menu_text_active", "end_date", sub.EndDate.Format("02.01.2006"))
	}

	showTrial := false
	if s.cfg.TrialEnabled && sub == nil {
		had, err := s.subs.HasHadAnySubscription(ctx, ev.UserID)
		if err != nil {
			s.log.Warn("failed to check subscription history",
				slog.String("op", op), sl.UserID(ev.UserID), sl.Err(err))
		}
		showTrial = err == nil && !had
	}

	s.renderer.Render(ev, render.Surface{
		PhotoPath: s.cfg.MenuImagePath,
		Caption:   caption,
		Markup:    telegram.MainMenuKeyboard(tr, showTrial),
		AckText:   ackText,
	})
}

func (s *Service) channelPromptSurface(tr i18n.Translator) render.Surface {
	return render.Surface{
		Caption: tr.T("channel_required_text"),
		Markup:  telegram.ChannelSubscriptionKeyboard(tr, s.cfg.RequiredChannelLink),
	}
}

// translatorFor выбирает язык: сохранённый в профиле, иначе языковой
// код события, иначе язык по умолчанию.
func (s *Service) translatorFor(ev telegram.Event, user *models.User) i18n.Translator {
	if user != nil && user.LanguageCode != "" {
		return s.locales.ForLanguage(user.LanguageCode)
	}
	if ev.LanguageCode != "" {
		return s.locales.ForLanguage(ev.LanguageCode)
	}
	return s.locales.ForLanguage(s.cfg.DefaultLanguage)
}
