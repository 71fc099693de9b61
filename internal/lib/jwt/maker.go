// Package jwt реализует выпуск и проверку подписанных JWT токенов доступа и обновления.
//
// Maker подписывает токены HS256 секретом процесса. Тип токена (access или refresh)
// хранится в claims и проверяется при разборе, поэтому refresh-токен нельзя
// предъявить вместо access-токена.
package jwt

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/threadforge/internal/models"
)

var (
	// ErrInvalidToken подпись не сходится, структура повреждена, нет обязательного claim
	// или тип токена не тот, что ожидался.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired токен подписан верно, но срок его действия истёк.
	ErrTokenExpired = errors.New("token expired")
)

// Subject данные пользователя, которые попадают в токен.
type Subject struct {
	UserID string
	Email  string
	Role   models.Role
}

// Options параметры выпуска токенов.
type Options struct {
	Secret      []byte
	Issuer      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	RememberTTL time.Duration
	Now         func() time.Time
}

// MakerImpl выпускает и проверяет токены.
type MakerImpl struct {
	secret      []byte
	issuer      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// NewJWTMaker создаёт Maker. Пустой секрет недопустим, используйте GenerateSecret.
func NewJWTMaker(opts Options) (*MakerImpl, error) {
	const op = "jwt.NewJWTMaker"
	if len(opts.Secret) == 0 {
		return nil, fmt.Errorf("%s: empty signing secret", op)
	}
	if opts.AccessTTL <= 0 || opts.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%s: token ttl must be positive", op)
	}
	if opts.RememberTTL < opts.RefreshTTL {
		opts.RememberTTL = opts.RefreshTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &MakerImpl{
		secret:      opts.Secret,
		issuer:      opts.Issuer,
		accessTTL:   opts.AccessTTL,
		refreshTTL:  opts.RefreshTTL,
		rememberTTL: opts.RememberTTL,
		now:         opts.Now,
	}, nil
}

// GenerateSecret создаёт случайный секрет на время жизни процесса.
// Токены, подписанные им, перестают проверяться после рестарта.
func GenerateSecret() ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("jwt.GenerateSecret: %w", err)
	}
	secret := make([]byte, hex.EncodedLen(len(buf)))
	hex.Encode(secret, buf)
	return secret, nil
}
