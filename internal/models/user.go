// Package models содержит доменные структуры бота: пользователя,
// рекламную кампанию и подписку. Структуры используются в бизнес‑логике
// и при работе с хранилищем.
package models

import "time"

// User представляет пользователя бота.
// Поле ReferredByID заполняется не более одного раза и после
// установки никогда не перезаписывается.
type User struct {
	ID                 int64      // Идентификатор аккаунта Telegram, первичный ключ
	Username           string     // Имя пользователя после санитизации
	FirstName          string     // Имя после санитизации
	LastName           string     // Фамилия после санитизации
	LanguageCode       string     // Код языка интерфейса
	ReferralCode       string     // Собственный реферальный код пользователя
	ReferredByID       *int64     // Кто привёл пользователя, nil — никто
	RegistrationDate   time.Time  // Дата первого обращения к боту
	ChannelVerified    bool       // Результат последней проверки подписки на канал
	ChannelVerifiedFor *int64     // Канал, для которого действителен результат
	ChannelCheckedAt   *time.Time // Время последней проверки
}

// UserUpdate описывает частичное обновление профиля пользователя.
// Nil-поле означает «не трогать».
type UserUpdate struct {
	Username     *string
	FirstName    *string
	LastName     *string
	LanguageCode *string
	ReferredByID *int64
}

// Empty сообщает, есть ли в обновлении хотя бы одно изменённое поле.
func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.FirstName == nil && u.LastName == nil &&
		u.LanguageCode == nil && u.ReferredByID == nil
}
