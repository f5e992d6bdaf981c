package models

import "time"

// Campaign представляет рекламную кампанию, на которую может ссылаться
// start-параметр глубокой ссылки.
type Campaign struct {
	ID         int       // Идентификатор кампании
	Name       string    // Название для отчётов
	StartParam string    // Токен из ссылки t.me/bot?start=<token>, уникален
	IsActive   bool      // Принимает ли кампания новые атрибуции
	CreatedAt  time.Time // Дата создания
}
