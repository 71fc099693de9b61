package cachestore

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/threadforge/internal/cache"
)

// Revocations список отозванных refresh-токенов. Запись живёт до истечения токена.
type Revocations struct {
	cache *cache.Cache
	now   func() time.Time
}

// NewRevocations создаёт список отзыва. now может быть nil.
func NewRevocations(c *cache.Cache, now func() time.Time) *Revocations {
	if now == nil {
		now = time.Now
	}
	return &Revocations{cache: c, now: now}
}

func revokedKey(jti string) string {
	return "revoked:jti:" + jti
}

// Revoke отзывает токен с идентификатором jti до момента until.
// Возвращает true, если запись создал именно этот вызов, и false, если токен уже был отозван.
// Уже истёкший токен не записывается и считается отозванным этим вызовом.
func (r *Revocations) Revoke(ctx context.Context, jti string, until time.Time) (bool, error) {
	const op = "cachestore.Revoke"
	if !r.cache.IsConfigured() {
		return false, fmt.Errorf("%s: %w", op, cache.ErrNotConfigured)
	}
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return true, nil
	}
	ok, err := r.cache.Db.SetNX(ctx, revokedKey(jti), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// IsRevoked сообщает, отозван ли токен.
func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	const op = "cachestore.IsRevoked"
	if !r.cache.IsConfigured() {
		return false, fmt.Errorf("%s: %w", op, cache.ErrNotConfigured)
	}
	ok, err := r.cache.Exists(ctx, revokedKey(jti))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}
