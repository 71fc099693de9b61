// Package entitlement реализует учёт премиум-доступа и счётчиков использования.
//
// Все записи живут только в кеш-хранилище и истекают по TTL:
//
//	premium:email:<email>                  JSON PremiumGrant, TTL = срок + запас
//	premium:ip:<address>                   то же, запасной ключ поиска
//	usage:daily:<identity>:<2006-01-02>    счётчик, TTL до конца суток
//	usage:monthly:<identity>:<2006-01>     счётчик, TTL до конца месяца
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/threadforge/internal/cache"
	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/lib/window"
	"github.com/magabrotheeeer/threadforge/internal/metrics"
	"github.com/magabrotheeeer/threadforge/internal/models"
	"github.com/magabrotheeeer/threadforge/internal/rabbitmq"
)

// MaxGrantDays наибольший срок одной выдачи доступа в днях.
const MaxGrantDays = 3650

// Publisher публикует события о выдаче доступа.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Limits лимиты использования по тарифам.
type Limits struct {
	FreeDaily      int64
	FreeMonthly    int64
	PremiumDaily   int64
	PremiumMonthly int64
}

// Options параметры учёта.
type Options struct {
	Limits      Limits
	GrantBuffer time.Duration
	OpTimeout   time.Duration
	Now         func() time.Time
}

// Ledger учёт премиум-доступа и использования.
type Ledger struct {
	cache     *cache.Cache
	limits    Limits
	buffer    time.Duration
	opTimeout time.Duration
	now       func() time.Time
	publisher Publisher
	log       *slog.Logger
}

// New создаёт Ledger. Кеш может быть nil: тогда все операции возвращают ошибку недоступности.
func New(c *cache.Cache, opts Options, publisher Publisher, log *slog.Logger) *Ledger {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if publisher == nil {
		publisher = rabbitmq.Noop{}
	}
	return &Ledger{
		cache:     c,
		limits:    opts.Limits,
		buffer:    opts.GrantBuffer,
		opTimeout: opts.OpTimeout,
		now:       opts.Now,
		publisher: publisher,
		log:       log,
	}
}

func premiumEmailKey(email string) string {
	return "premium:email:" + models.NormalizeEmail(email)
}

func premiumIPKey(address string) string {
	return "premium:ip:" + address
}

func dailyKey(identity, day string) string {
	return "usage:daily:" + identity + ":" + day
}

func monthlyKey(identity, month string) string {
	return "usage:monthly:" + identity + ":" + month
}

// GrantRequest параметры выдачи доступа. Нужен хотя бы один из Email и Address.
type GrantRequest struct {
	Email        string
	Address      string
	Plan         string
	DurationDays int
	Metadata     map[string]string
}

// GrantPremium записывает доступ под ключом email и, если указан адрес, под ключом адреса.
// Обе записи пишутся в одной транзакции.
func (l *Ledger) GrantPremium(ctx context.Context, req GrantRequest) (models.PremiumGrant, error) {
	const op = "entitlement.GrantPremium"
	log := l.log.With(slog.String("op", op))

	req.Email = models.NormalizeEmail(req.Email)
	req.Address = strings.TrimSpace(req.Address)
	req.Plan = strings.TrimSpace(req.Plan)
	switch {
	case req.Email == "" && req.Address == "":
		return models.PremiumGrant{}, apperr.New(apperr.KindValidation, "email or address is required")
	case req.Plan == "":
		return models.PremiumGrant{}, apperr.New(apperr.KindValidation, "plan is required")
	case req.DurationDays <= 0:
		return models.PremiumGrant{}, apperr.New(apperr.KindValidation, "duration_days must be positive")
	case req.DurationDays > MaxGrantDays:
		return models.PremiumGrant{}, apperr.New(apperr.KindValidation, fmt.Sprintf("duration_days must not exceed %d", MaxGrantDays))
	}
	if !l.cache.IsConfigured() {
		return models.PremiumGrant{}, apperr.Unavailable(fmt.Errorf("%s: %w", op, cache.ErrNotConfigured))
	}

	now := l.now().UTC()
	duration := time.Duration(req.DurationDays) * 24 * time.Hour
	grant := models.PremiumGrant{
		Plan:         req.Plan,
		GrantedAt:    now,
		ExpiresAt:    now.Add(duration),
		DurationDays: req.DurationDays,
		Metadata:     req.Metadata,
	}
	keys := make([]string, 0, 2)
	if req.Email != "" {
		keys = append(keys, premiumEmailKey(req.Email))
	}
	if req.Address != "" {
		keys = append(keys, premiumIPKey(req.Address))
	}
	grant.Key = keys[0]

	data, err := marshalGrant(grant)
	if err != nil {
		return models.PremiumGrant{}, apperr.Unavailable(fmt.Errorf("%s: %w", op, err))
	}
	ttl := duration + l.buffer

	opCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()
	_, err = l.cache.Db.TxPipelined(opCtx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Set(opCtx, k, data, ttl)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to store premium grant", sl.Err(err))
		return models.PremiumGrant{}, apperr.Unavailable(fmt.Errorf("%s: %w", op, err))
	}
	metrics.PremiumGrant(grant.Plan)

	event := rabbitmq.PremiumGranted{Email: req.Email, Address: req.Address, Plan: grant.Plan, ExpiresAt: grant.ExpiresAt}
	if err := l.publisher.Publish(ctx, rabbitmq.RoutingPremiumGranted, event); err != nil {
		log.Warn("failed to publish premium event", sl.Err(err))
	}
	return grant, nil
}

// CheckPremium ищет доступ сначала по email, затем по адресу.
// Доступ действует, пока не наступил ExpiresAt, даже если запись ещё хранится.
func (l *Ledger) CheckPremium(ctx context.Context, address, email string) (models.PremiumStatus, error) {
	const op = "entitlement.CheckPremium"
	if !l.cache.IsConfigured() {
		return models.PremiumStatus{}, apperr.Unavailable(fmt.Errorf("%s: %w", op, cache.ErrNotConfigured))
	}

	type lookup struct {
		key    string
		source models.PremiumSource
	}
	var lookups []lookup
	if email = models.NormalizeEmail(email); email != "" {
		lookups = append(lookups, lookup{premiumEmailKey(email), models.SourceEmail})
	}
	if address = strings.TrimSpace(address); address != "" {
		lookups = append(lookups, lookup{premiumIPKey(address), models.SourceIP})
	}

	now := l.now()
	for _, lk := range lookups {
		var grant models.PremiumGrant
		opCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
		found, err := l.cache.Get(opCtx, lk.key, &grant)
		cancel()
		if err != nil {
			return models.PremiumStatus{}, apperr.Unavailable(fmt.Errorf("%s: %w", op, err))
		}
		if !found || !grant.ActiveAt(now) {
			continue
		}
		metrics.PremiumCheck(string(lk.source))
		expires := grant.ExpiresAt
		return models.PremiumStatus{
			HasPremium: true,
			Plan:       grant.Plan,
			ExpiresAt:  &expires,
			DaysLeft:   window.DaysLeft(now, expires),
			Source:     lk.source,
		}, nil
	}
	metrics.PremiumCheck(string(models.SourceNone))
	return models.PremiumStatus{Source: models.SourceNone}, nil
}

func (l *Ledger) limitsFor(premium bool) (int64, int64) {
	if premium {
		return l.limits.PremiumDaily, l.limits.PremiumMonthly
	}
	return l.limits.FreeDaily, l.limits.FreeMonthly
}

// IncrementUsage атомарно увеличивает дневной и месячный счётчики identity
// и возвращает значения после увеличения. Решение об отказе принимает вызывающий.
// Вызов не повторяется при ошибке.
func (l *Ledger) IncrementUsage(ctx context.Context, identity string, premium bool) (models.Usage, error) {
	const op = "entitlement.IncrementUsage"
	if identity == "" {
		return models.Usage{}, apperr.New(apperr.KindValidation, "identity is required")
	}
	if !l.cache.IsConfigured() {
		return models.Usage{}, apperr.Unavailable(fmt.Errorf("%s: %w", op, cache.ErrNotConfigured))
	}

	now := l.now()
	day, dayEnd := window.Day(now)
	month, monthEnd := window.Month(now)
	dKey, mKey := dailyKey(identity, day), monthlyKey(identity, month)

	opCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	var daily, monthly *redis.IntCmd
	_, err := l.cache.Db.TxPipelined(opCtx, func(pipe redis.Pipeliner) error {
		daily = pipe.Incr(opCtx, dKey)
		pipe.PExpire(opCtx, dKey, dayEnd.Sub(now))
		monthly = pipe.Incr(opCtx, mKey)
		pipe.PExpire(opCtx, mKey, monthEnd.Sub(now))
		return nil
	})
	if err != nil {
		return models.Usage{}, apperr.Unavailable(fmt.Errorf("%s: %w", op, err))
	}

	dailyLimit, monthlyLimit := l.limitsFor(premium)
	return models.Usage{
		DailyUsed:    daily.Val(),
		DailyLimit:   dailyLimit,
		MonthlyUsed:  monthly.Val(),
		MonthlyLimit: monthlyLimit,
	}, nil
}

// Usage возвращает текущие счётчики identity без изменения.
func (l *Ledger) Usage(ctx context.Context, identity string, premium bool) (models.Usage, error) {
	const op = "entitlement.Usage"
	if identity == "" {
		return models.Usage{}, apperr.New(apperr.KindValidation, "identity is required")
	}
	if !l.cache.IsConfigured() {
		return models.Usage{}, apperr.Unavailable(fmt.Errorf("%s: %w", op, cache.ErrNotConfigured))
	}

	now := l.now()
	day, _ := window.Day(now)
	month, _ := window.Month(now)

	opCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()
	vals, err := l.cache.Db.MGet(opCtx, dailyKey(identity, day), monthlyKey(identity, month)).Result()
	if err != nil {
		return models.Usage{}, apperr.Unavailable(fmt.Errorf("%s: %w", op, err))
	}
	counts := make([]int64, len(vals))
	for i, v := range vals {
		if counts[i], err = parseCount(v); err != nil {
			return models.Usage{}, apperr.Unavailable(fmt.Errorf("%s: %w", op, err))
		}
	}

	dailyLimit, monthlyLimit := l.limitsFor(premium)
	return models.Usage{
		DailyUsed:    counts[0],
		DailyLimit:   dailyLimit,
		MonthlyUsed:  counts[1],
		MonthlyLimit: monthlyLimit,
	}, nil
}

var errBadCounter = errors.New("counter is not an integer")
