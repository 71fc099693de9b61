// Package models содержит доменные модели сервиса: пользователя, токены,
// премиум-доступ и счётчики использования.
// Структуры используются в бизнес‑логике и при работе с хранилищами.
package models

import (
	"strings"
	"time"
)

// Role роль пользователя.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Status статус учётной записи. Пользователи не удаляются, только меняют статус.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID          string            `json:"id"`                 // Уникальный идентификатор пользователя
	Email         string            `json:"email"`              // Нормализованная электронная почта
	PasswordHash  string            `json:"password_hash"`      // Хэш пароля пользователя
	Role          Role              `json:"role"`               // Роль пользователя, admin или user
	Status        Status            `json:"status"`             // Статус учётной записи
	CreatedAt     time.Time         `json:"created_at"`         // Дата регистрации
	UpdatedAt     time.Time         `json:"updated_at"`         // Дата последнего изменения
	LoginCount    int               `json:"login_count"`        // Количество успешных входов
	FailedLogins  int               `json:"failed_logins"`      // Неудачные попытки входа подряд
	EmailVerified bool              `json:"email_verified"`     // Подтверждена ли почта
	Metadata      map[string]string `json:"metadata,omitempty"` // Произвольные атрибуты
}

// Profile публичное представление пользователя без хэша пароля.
type Profile struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	Role          Role              `json:"role"`
	Status        Status            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	LoginCount    int               `json:"login_count"`
	EmailVerified bool              `json:"email_verified"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Profile возвращает публичное представление пользователя.
func (u *User) Profile() Profile {
	return Profile{
		ID:            u.UUID,
		Email:         u.Email,
		Role:          u.Role,
		Status:        u.Status,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		LoginCount:    u.LoginCount,
		EmailVerified: u.EmailVerified,
		Metadata:      u.Metadata,
	}
}

// NormalizeEmail приводит адрес к виду, по которому проверяется уникальность.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
