package threadforge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"

	"github.com/magabrotheeeer/threadforge/internal/cache"
	"github.com/magabrotheeeer/threadforge/internal/config"
	"github.com/magabrotheeeer/threadforge/internal/grpc/health"
	"github.com/magabrotheeeer/threadforge/internal/lib/jwt"
	"github.com/magabrotheeeer/threadforge/internal/lib/password"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/migrations"
	"github.com/magabrotheeeer/threadforge/internal/rabbitmq"
	"github.com/magabrotheeeer/threadforge/internal/services/auth"
	"github.com/magabrotheeeer/threadforge/internal/services/entitlement"
	"github.com/magabrotheeeer/threadforge/internal/storage/availability"
	"github.com/magabrotheeeer/threadforge/internal/storage/cachestore"
	"github.com/magabrotheeeer/threadforge/internal/storage/registry"
	"github.com/magabrotheeeer/threadforge/internal/storage/repository"
)

const (
	shutdownTimeout  = 15 * time.Second
	brokerRetries    = 5
	brokerRetryDelay = 2 * time.Second
)

// App процесс сервиса: HTTP API и gRPC health.
type App struct {
	server     *http.Server
	grpcServer *grpc.Server
	grpcAddr   string
	prober     *health.Prober
	logger     *slog.Logger
	db         *repository.Storage
	cache      *cache.Cache
	publisher  *rabbitmq.Publisher
	broker     *amqp.Connection
}

// New собирает зависимости по конфигу. Недоступный redis не мешает старту,
// недоступная база останавливает его: без неё не применить миграции.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "threadforge.New"

	secret := []byte(cfg.JWTSecretKey)
	if len(secret) == 0 {
		generated, err := jwt.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		secret = generated
		logger.Warn("jwt secret is not configured, using a random one; tokens will not survive a restart")
	}
	tokens, err := jwt.NewJWTMaker(jwt.Options{
		Secret:      secret,
		Issuer:      cfg.Issuer,
		AccessTTL:   cfg.AccessTTL(),
		RefreshTTL:  cfg.RefreshTTL(),
		RememberTTL: cfg.RememberTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = repository.CheckDatabaseReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis := cache.New(cfg.RedisConnection)
	if !cacheRedis.IsConfigured() {
		logger.Warn("cache store is not configured, entitlement endpoints will answer 503")
	} else if err := cacheRedis.Ping(ctx); err != nil {
		logger.Warn("cache store is unreachable at startup", sl.Err(err))
	}

	detector := availability.New(cacheRedis, availability.Options{
		Timeout:    cfg.OpTimeout,
		Retries:    cfg.PingRetries,
		RetryDelay: cfg.PingRetryDelay,
	}, logger)

	var primary registry.Store
	if cacheRedis.IsConfigured() {
		primary = cachestore.New(cacheRedis)
	}
	users := registry.New(primary, db, detector, registry.Options{OpTimeout: cfg.OpTimeout}, logger)

	var publisher *rabbitmq.Publisher
	var broker *amqp.Connection
	var events auth.Publisher = rabbitmq.Noop{}
	if cfg.RabbitMQ.URL != "" {
		broker, publisher, err = connectPublisher(cfg.RabbitMQ)
		if err != nil {
			logger.Warn("account events are disabled", sl.Err(err))
		} else {
			events = publisher
		}
	}

	authService := auth.NewAuthService(
		users,
		tokens,
		password.NewHasher(cfg.BcryptCost),
		cachestore.NewRevocations(cacheRedis, time.Now),
		events,
		logger,
	)
	ledger := entitlement.New(cacheRedis, entitlement.Options{
		Limits: entitlement.Limits{
			FreeDaily:      int64(cfg.FreeDailyLimit),
			FreeMonthly:    int64(cfg.FreeMonthlyLimit),
			PremiumDaily:   int64(cfg.PremiumDailyLimit),
			PremiumMonthly: int64(cfg.PremiumMonthlyLimit),
		},
		GrantBuffer: time.Duration(cfg.GrantBufferDays) * 24 * time.Hour,
		OpTimeout:   cfg.OpTimeout,
	}, events, logger)

	grpcServer, healthServer := health.NewServer()
	prober := health.NewProber(healthServer, detector, db, cfg.ProbeInterval, logger)

	router := chi.NewRouter()
	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
	RegisterRoutes(router, logger, authService, ledger, prober, limiter)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		grpcServer: grpcServer,
		grpcAddr:   cfg.AddressGRPC,
		prober:     prober,
		logger:     logger,
		db:         db,
		cache:      cacheRedis,
		publisher:  publisher,
		broker:     broker,
	}, nil
}

func connectPublisher(cfg config.RabbitMQ) (*amqp.Connection, *rabbitmq.Publisher, error) {
	conn, err := rabbitmq.Connect(cfg.URL, brokerRetries, brokerRetryDelay)
	if err != nil {
		return nil, nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, rabbitmq.NewPublisher(ch, cfg.Exchange), nil
}

// Run запускает серверы и блокируется до отмены ctx или ошибки одного из них.
func (a *App) Run(ctx context.Context) error {
	const op = "threadforge.Run"

	var lis net.Listener
	if a.grpcAddr != "" {
		var err error
		if lis, err = net.Listen("tcp", a.grpcAddr); err != nil {
			a.close()
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.prober.Run(ctx)
		return nil
	})

	if lis != nil {
		g.Go(func() error {
			return health.Serve(ctx, a.grpcServer, lis, a.logger)
		})
	}

	g.Go(func() error {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	})

	err := g.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close publisher", sl.Err(err))
		}
	}
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.logger.Warn("failed to close broker connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close cache", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", sl.Err(err))
	}
}
