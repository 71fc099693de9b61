package models

import "time"

// TokenKind тип токена. Access-токен нельзя использовать вместо refresh и наоборот.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// TokenPair пара токенов, выдаваемая при регистрации, входе и обновлении.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// ExpiresIn оставшееся время жизни access-токена в секундах.
func (p TokenPair) ExpiresIn(now time.Time) int64 {
	left := int64(p.AccessExpiresAt.Sub(now).Seconds())
	if left < 0 {
		return 0
	}
	return left
}
