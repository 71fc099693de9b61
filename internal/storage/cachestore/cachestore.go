// Package cachestore реализует хранилище пользователей поверх redis.
//
// Пользователь хранится JSON-значением по ключу user:id:<id>, а индекс
// user:email:<email> указывает на id. Индекс создаётся через SETNX, поэтому
// проверка уникальности email и запись атомарны в пределах redis.
package cachestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/threadforge/internal/cache"
	"github.com/magabrotheeeer/threadforge/internal/models"
	"github.com/magabrotheeeer/threadforge/internal/storage"
)

const maxTxAttempts = 10

// Store хранилище пользователей в redis.
type Store struct {
	cache *cache.Cache
}

// New создаёт Store.
func New(c *cache.Cache) *Store {
	return &Store{cache: c}
}

func idKey(id string) string {
	return "user:id:" + id
}

func emailKey(email string) string {
	return "user:email:" + email
}

// CreateUser сохраняет пользователя. Если запись пользователя не удалась,
// индекс email удаляется, чтобы не оставлять частичных данных.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const op = "cachestore.CreateUser"

	ok, err := s.cache.Db.SetNX(ctx, emailKey(user.Email), user.UUID, 0).Result()
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
	}

	if err = s.cache.Set(ctx, idKey(user.UUID), user, 0); err != nil {
		if delErr := s.cache.Invalidate(context.WithoutCancel(ctx), emailKey(user.Email)); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UserByEmail возвращает пользователя по нормализованному email.
func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "cachestore.UserByEmail"
	id, err := s.cache.Db.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	u, err := s.UserByID(ctx, id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UserByID возвращает пользователя по id.
func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	const op = "cachestore.UserByID"
	var u models.User
	found, err := s.cache.Get(ctx, idKey(id), &u)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return u, nil
}

// UpdateUser перезаписывает существующего пользователя.
func (s *Store) UpdateUser(ctx context.Context, user models.User) error {
	const op = "cachestore.UpdateUser"
	data, err := marshal(user)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ok, err := s.cache.Db.SetXX(ctx, idKey(user.UUID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// IncrementFailedLogins увеличивает счётчик неудачных входов в оптимистичной транзакции.
func (s *Store) IncrementFailedLogins(ctx context.Context, email string) error {
	const op = "cachestore.IncrementFailedLogins"
	u, err := s.UserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	key := idKey(u.UUID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return storage.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		current, err := unmarshal(raw)
		if err != nil {
			return err
		}
		current.FailedLogins++
		data, err := marshal(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for range maxTxAttempts {
		err = s.cache.Db.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
