package models

import "time"

// Subscription представляет подписку пользователя на сервис.
// Активной считается подписка с EndDate в будущем.
type Subscription struct {
	ID         int       // Идентификатор записи
	UserID     int64     // Владелец подписки
	EndDate    time.Time // Дата окончания
	ConfigLink string    // Ссылка на конфигурацию для подключения
	IsActive   bool      // Флаг активности, снимается при отмене
}

// PromoCode представляет промокод, продлевающий подписку.
type PromoCode struct {
	Code           string     // Сам код, первичный ключ
	BonusDays      int        // На сколько дней продлевается подписка
	MaxActivations int        // Лимит активаций, 0 — без лимита
	Activations    int        // Сколько раз код уже применён
	IsActive       bool       // Действует ли код
	ValidUntil     *time.Time // Срок годности кода, nil — бессрочный
}
