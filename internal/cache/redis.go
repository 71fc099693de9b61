// Package cache содержит обёртку над redis, которая служит основным (кеш) хранилищем.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/threadforge/internal/config"
)

// ErrNotConfigured кеш-хранилище не сконфигурировано.
var ErrNotConfigured = errors.New("cache store is not configured")

// Cache обёртка над клиентом redis.
type Cache struct {
	Db *redis.Client
}

// New создаёт клиента без проверки соединения. Соединение устанавливается лениво,
// поэтому процесс может стартовать, пока redis недоступен.
// Пустой адрес возвращает nil: кеш-хранилище не используется.
func New(cfg config.RedisConnection) *Cache {
	if cfg.AddressRedis == "" {
		return nil
	}
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})
	return &Cache{Db: db}
}

// IsConfigured сообщает, есть ли у обёртки живой клиент.
func (c *Cache) IsConfigured() bool {
	return c != nil && c.Db != nil
}

// Ping выполняет PING.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	return c.Db.Ping(ctx).Err()
}

// Get читает JSON-значение по ключу. Возвращает false, если ключа нет.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение в JSON. Нулевой expiration означает хранение без TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Exists сообщает, есть ли ключ.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	const op = "cache.Exists"
	n, err := c.Db.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// Invalidate удаляет ключ.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает соединение.
func (c *Cache) Close() error {
	if !c.IsConfigured() {
		return nil
	}
	return c.Db.Close()
}
