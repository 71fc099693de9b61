// Package password реализует функции для безопасного хеширования и проверки паролей,
// а также оценку надёжности пароля и минимальную политику для регистрации.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrHashing ошибка примитива хеширования. Пароль в ошибку не попадает.
var ErrHashing = errors.New("password hashing failed")

// Hasher хеширует пароли bcrypt с заданной стоимостью.
type Hasher struct {
	cost int
}

// NewHasher создаёт Hasher. Стоимость вне допустимого диапазона заменяется на bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// HashPassword принимает пароль пользователя и возвращает его bcrypt‑хэш с солью.
func (h *Hasher) HashPassword(plaintext string) (string, error) {
	const op = "password.HashPassword"
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", op, ErrHashing, err.Error())
	}
	return string(hashed), nil
}

// VerifyPassword сравнивает пароль с хэшем за постоянное время.
//
// Любая внутренняя ошибка (повреждённый хэш, слишком длинный пароль) считается несовпадением.
func (h *Hasher) VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
