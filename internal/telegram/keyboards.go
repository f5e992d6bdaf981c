package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/subscription-bot/internal/lib/i18n"
)

// Данные callback-кнопок. Диспетчер разбирает их по префиксу.
const (
	CallbackVerifyChannel = "channel_subscription:verify"
	CallbackBackToMain    = "main_action:back_to_main"
	CallbackLanguage      = "main_action:language"
	SetLanguagePrefix     = "set_lang_"
)

// MainMenuKeyboard собирает клавиатуру главного меню.
// Кнопка пробного периода показывается только тем, у кого
// ещё не было ни одной подписки.
func MainMenuKeyboard(tr i18n.Translator, showTrial bool) *tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tr.T("menu_subscribe_button"), "main_action:subscribe"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tr.T("menu_my_subscription_button"), "main_action:my_subscription"),
			tgbotapi.NewInlineKeyboardButtonData(tr.T("menu_referral_button"), "main_action:referral"),
		),
	}
	if showTrial {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tr.T("menu_trial_button"), "main_action:request_trial"),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(tr.T("menu_promo_button"), "main_action:apply_promo"),
		tgbotapi.NewInlineKeyboardButtonData(tr.T("menu_language_button"), CallbackLanguage),
	))
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// ChannelSubscriptionKeyboard собирает клавиатуру гейта: ссылка на канал
// и кнопка повторной проверки.
func ChannelSubscriptionKeyboard(tr i18n.Translator, inviteLink string) *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(tr.T("channel_join_button"), inviteLink),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tr.T("channel_verify_button"), CallbackVerifyChannel),
		),
	)
	return &markup
}

// ConnectAndMainKeyboard — клавиатура поверхности успешного промокода:
// ссылка на конфигурацию и возврат в меню.
func ConnectAndMainKeyboard(tr i18n.Translator, configLink string) *tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if configLink != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(tr.T("connect_button"), configLink),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(tr.T("back_to_main_menu_button"), CallbackBackToMain),
	))
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// LanguageSelectionKeyboard — выбор языка, по кнопке на каждый каталог.
func LanguageSelectionKeyboard(tr i18n.Translator, langs []string) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, lang := range langs {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tr.T("language_name_"+lang), SetLanguagePrefix+lang),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(tr.T("back_to_main_menu_button"), CallbackBackToMain),
	))
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
