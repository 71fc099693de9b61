// Package registry реализует реестр пользователей поверх двух хранилищ.
//
// Каждая операция сначала спрашивает Detector, доступно ли кеш-хранилище, и
// выбирает варианты хранилищ в порядке: кеш, затем надёжное. Запись нового
// пользователя попадает ровно в одно хранилище. Пользователь, созданный в
// надёжном хранилище во время отказа кеша, остаётся там и после восстановления
// кеша: поиск всегда проверяет оба хранилища.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/metrics"
	"github.com/magabrotheeeer/threadforge/internal/models"
	"github.com/magabrotheeeer/threadforge/internal/storage"
)

var (
	// ErrDuplicateEmail пользователь с таким email уже существует.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrNotFound пользователь не найден ни в одном доступном хранилище.
	ErrNotFound = errors.New("user not found")
	// ErrStorageUnavailable ни одно хранилище не ответило.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrAccountCreation запись не удалась ни в одно хранилище.
	ErrAccountCreation = errors.New("account creation failed")
)

// Store операции с пользователями, которые реализует каждое хранилище.
type Store interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
	UpdateUser(ctx context.Context, user models.User) error
	IncrementFailedLogins(ctx context.Context, email string) error
}

// Detector сообщает, доступно ли кеш-хранилище.
type Detector interface {
	IsPrimaryAvailable(ctx context.Context) bool
}

// Backend вид хранилища.
type Backend string

const (
	BackendCache   Backend = "cache"
	BackendDurable Backend = "durable"
)

type variant struct {
	backend Backend
	store   Store
}

// Registry реестр пользователей.
type Registry struct {
	primary   Store
	durable   Store
	detector  Detector
	opTimeout time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// Options параметры реестра.
type Options struct {
	OpTimeout time.Duration
	Now       func() time.Time
}

// New создаёт реестр. primary может быть nil, если кеш-хранилище не используется.
func New(primary, durable Store, detector Detector, opts Options, log *slog.Logger) *Registry {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		primary:   primary,
		durable:   durable,
		detector:  detector,
		opTimeout: opts.OpTimeout,
		now:       opts.Now,
		log:       log,
	}
}

// variants возвращает хранилища в порядке обращения для текущей операции.
func (r *Registry) variants(ctx context.Context) []variant {
	vs := make([]variant, 0, 2)
	if r.primary != nil && r.detector.IsPrimaryAvailable(ctx) {
		vs = append(vs, variant{backend: BackendCache, store: r.primary})
	}
	if r.durable != nil {
		vs = append(vs, variant{backend: BackendDurable, store: r.durable})
	}
	return vs
}

func (r *Registry) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opTimeout)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, storage.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, storage.ErrUserExists):
		return "exists"
	default:
		return "error"
	}
}

// CreateUser создаёт пользователя с нормализованным email.
//
// Сначала во всех доступных хранилищах проверяется, что email свободен, затем
// выполняется запись в первое хранилище, а при её отказе в следующее.
// Уникальность внутри одного хранилища гарантирует само хранилище.
func (r *Registry) CreateUser(ctx context.Context, email, passwordHash string, metadata map[string]string) (models.User, error) {
	const op = "registry.CreateUser"
	log := r.log.With(slog.String("op", op))

	now := r.now().UTC()
	user := models.User{
		UUID:         uuid.NewString(),
		Email:        models.NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     metadata,
	}

	var reachable []variant
	var errs []error
	for _, v := range r.variants(ctx) {
		opCtx, cancel := r.withTimeout(ctx)
		_, err := v.store.UserByEmail(opCtx, user.Email)
		cancel()
		switch {
		case err == nil:
			return models.User{}, fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
		case errors.Is(err, storage.ErrUserNotFound):
			reachable = append(reachable, v)
		default:
			// Хранилище не ответило: email, записанный только в нём, здесь не виден,
			// и запись в оставшееся хранилище может его продублировать.
			log.Warn("existence check failed", slog.String("backend", string(v.backend)), sl.Err(err))
			errs = append(errs, err)
		}
	}
	if len(reachable) == 0 {
		return models.User{}, fmt.Errorf("%s: %w: %w", op, ErrAccountCreation, errors.Join(append(errs, ErrStorageUnavailable)...))
	}

	for i, v := range reachable {
		opCtx, cancel := r.withTimeout(ctx)
		created, err := v.store.CreateUser(opCtx, user)
		cancel()
		metrics.StoreOp(string(v.backend), "create_user", outcome(err))
		if err == nil {
			if v.backend == BackendDurable && r.primary != nil {
				metrics.StoreFallback("create_user")
				log.Warn("user stored in durable store", slog.String("user_id", created.UUID))
			}
			return created, nil
		}
		if errors.Is(err, storage.ErrUserExists) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
		}
		errs = append(errs, err)
		if i+1 < len(reachable) {
			log.Warn("create failed, falling through", slog.String("backend", string(v.backend)), sl.Err(err))
		}
	}
	return models.User{}, fmt.Errorf("%s: %w: %w", op, ErrAccountCreation, errors.Join(errs...))
}

// FindByEmail ищет пользователя по email во всех доступных хранилищах.
func (r *Registry) FindByEmail(ctx context.Context, email string) (models.User, error) {
	email = models.NormalizeEmail(email)
	return r.find(ctx, "registry.FindByEmail", func(ctx context.Context, s Store) (models.User, error) {
		return s.UserByEmail(ctx, email)
	})
}

// FindByID ищет пользователя по id во всех доступных хранилищах.
func (r *Registry) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.find(ctx, "registry.FindByID", func(ctx context.Context, s Store) (models.User, error) {
		return s.UserByID(ctx, id)
	})
}

// find возвращает ErrNotFound, если пользователя нет ни в одном ответившем хранилище,
// и ErrStorageUnavailable, только если не ответило ни одно.
func (r *Registry) find(ctx context.Context, op string, lookup func(context.Context, Store) (models.User, error)) (models.User, error) {
	var errs []error
	answered := false
	for _, v := range r.variants(ctx) {
		opCtx, cancel := r.withTimeout(ctx)
		u, err := lookup(opCtx, v.store)
		cancel()
		metrics.StoreOp(string(v.backend), op, outcome(err))
		if err == nil {
			return u, nil
		}
		if errors.Is(err, storage.ErrUserNotFound) {
			answered = true
			continue
		}
		r.log.Warn("lookup failed", slog.String("op", op), slog.String("backend", string(v.backend)), sl.Err(err))
		errs = append(errs, err)
	}
	if !answered {
		return models.User{}, unavailable(op, errs)
	}
	return models.User{}, fmt.Errorf("%s: %w", op, ErrNotFound)
}

// RecordLogin увеличивает счётчик входов и сбрасывает счётчик неудачных попыток.
// Вызывающий должен передавать свежую копию пользователя.
func (r *Registry) RecordLogin(ctx context.Context, user models.User) (models.User, error) {
	const op = "registry.RecordLogin"
	updated := user
	updated.LoginCount++
	updated.FailedLogins = 0
	updated.UpdatedAt = r.now().UTC()

	err := r.apply(ctx, op, func(ctx context.Context, s Store) error {
		return s.UpdateUser(ctx, updated)
	})
	if err != nil {
		return models.User{}, err
	}
	return updated, nil
}

// RecordFailedLogin увеличивает счётчик неудачных входов. Отсутствие пользователя
// не является ошибкой, чтобы ответ не зависел от существования email.
func (r *Registry) RecordFailedLogin(ctx context.Context, email string) error {
	const op = "registry.RecordFailedLogin"
	email = models.NormalizeEmail(email)
	err := r.apply(ctx, op, func(ctx context.Context, s Store) error {
		return s.IncrementFailedLogins(ctx, email)
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// apply выполняет изменение в первом хранилище, где есть пользователь.
func (r *Registry) apply(ctx context.Context, op string, mutate func(context.Context, Store) error) error {
	var errs []error
	answered := false
	for _, v := range r.variants(ctx) {
		opCtx, cancel := r.withTimeout(ctx)
		err := mutate(opCtx, v.store)
		cancel()
		metrics.StoreOp(string(v.backend), op, outcome(err))
		if err == nil {
			return nil
		}
		if errors.Is(err, storage.ErrUserNotFound) {
			answered = true
			continue
		}
		r.log.Warn("update failed", slog.String("op", op), slog.String("backend", string(v.backend)), sl.Err(err))
		errs = append(errs, err)
	}
	if !answered {
		return unavailable(op, errs)
	}
	return fmt.Errorf("%s: %w", op, ErrNotFound)
}

func unavailable(op string, errs []error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(append([]error{ErrStorageUnavailable}, errs...)...))
}
