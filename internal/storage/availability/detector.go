// Package availability определяет, можно ли в данный момент работать с кеш-хранилищем.
package availability

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
)

// Pinger описывает кеш-хранилище, доступность которого проверяется.
type Pinger interface {
	IsConfigured() bool
	Ping(ctx context.Context) error
}

// Detector проверяет доступность кеш-хранилища на каждую логическую операцию.
// Результат не кешируется, чтобы восстановление или отказ redis замечались сразу.
type Detector struct {
	cache      Pinger
	timeout    time.Duration
	retries    uint64
	retryDelay time.Duration
	log        *slog.Logger
}

// Options параметры проверки.
type Options struct {
	Timeout    time.Duration // общий таймаут одной проверки вместе с повторами
	Retries    uint64        // число повторов PING после первой неудачи
	RetryDelay time.Duration
}

// New создаёт Detector. cache может быть nil или несконфигурированным.
func New(cache Pinger, opts Options, log *slog.Logger) *Detector {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}
	return &Detector{
		cache:      cache,
		timeout:    opts.Timeout,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		log:        log,
	}
}

// IsPrimaryAvailable возвращает true, только если хранилище существует,
// сконфигурировано и отвечает на PING в пределах таймаута.
func (d *Detector) IsPrimaryAvailable(ctx context.Context) bool {
	if d == nil || d.cache == nil || !d.cache.IsConfigured() {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var b backoff.BackOff = backoff.NewConstantBackOff(d.retryDelay)
	b = backoff.WithMaxRetries(b, d.retries)
	err := backoff.Retry(func() error {
		return d.cache.Ping(ctx)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		d.log.Debug("cache store unavailable", sl.Err(err))
		return false
	}
	return true
}
