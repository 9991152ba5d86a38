// Package models содержит доменную модель пользователя сервиса,
// включающую данные учётной записи, хэш пароля и состояние подписки.
// Структура используется в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Статусы подписки, хранящиеся в поле SubscriptionStatus.
const (
	SubscriptionTrialing  = "trialing"
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

// User представляет зарегистрированного пользователя сервиса.
type User struct {
	UUID                  string     // Уникальный идентификатор пользователя
	Email                 string     // Электронная почта (хранится в нижнем регистре, уникальна)
	Username              string     // Имя пользователя (уникальное)
	PasswordHash          string     // Хэш пароля пользователя
	Role                  string     // Роль пользователя, admin или user
	EmailVerified         bool       // Подтверждена ли почта
	SubscriptionStatus    string     // trialing | active | expired | cancelled
	TrialStartDate        *time.Time // Дата начала пробного периода
	TrialEndDate          *time.Time // Дата истечения пробного периода
	SubscriptionExpiry    *time.Time // Дата истечения оплаченной подписки
	BillingCustomerID     string     // Идентификатор клиента у платёжного провайдера
	BillingSubscriptionID string     // Идентификатор подписки у платёжного провайдера
}

// HasAccess сообщает, даёт ли сохранённый статус доступ к платным функциям.
// Доступ дают ровно два статуса: trialing и active.
func (u *User) HasAccess() bool {
	return u.SubscriptionStatus == SubscriptionTrialing ||
		u.SubscriptionStatus == SubscriptionActive
}

// DummyRegister используется для приёма данных из JSON-запроса регистрации.
type DummyRegister struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,alphanum"`
	Password string `json:"password" validate:"required,min=8"`
}

// DummyLogin используется для приёма данных из JSON-запроса входа.
type DummyLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
