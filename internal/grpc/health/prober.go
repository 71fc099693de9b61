// Package health публикует доступность хранилищ через стандартный gRPC health-сервис.
//
// Сервисы "cache" и "durable" отражают состояние каждого хранилища, пустое имя
// означает весь процесс: он обслуживает запросы, пока отвечает хотя бы одно хранилище.
package health

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/threadforge/internal/metrics"
)

// Имена сервисов в health-ответах.
const (
	ServiceCache   = "cache"
	ServiceDurable = "durable"
	ServiceOverall = ""
)

// CacheDetector сообщает доступность кеш-хранилища.
type CacheDetector interface {
	IsPrimaryAvailable(ctx context.Context) bool
}

// Pinger надёжное хранилище.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status результат одной проверки.
type Status struct {
	Cache   bool `json:"cache"`
	Durable bool `json:"durable"`
}

// Serving сообщает, может ли процесс обслуживать запросы.
func (s Status) Serving() bool {
	return s.Cache || s.Durable
}

// Prober периодически проверяет хранилища и обновляет health-сервер.
type Prober struct {
	srv      *grpchealth.Server
	cache    CacheDetector
	durable  Pinger
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	mu   sync.RWMutex
	last Status
}

// NewProber создаёт Prober. До первой проверки все сервисы NOT_SERVING.
func NewProber(srv *grpchealth.Server, cache CacheDetector, durable Pinger, interval time.Duration, log *slog.Logger) *Prober {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	for _, name := range []string{ServiceOverall, ServiceCache, ServiceDurable} {
		srv.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return &Prober{
		srv:      srv,
		cache:    cache,
		durable:  durable,
		interval: interval,
		timeout:  interval / 2,
		log:      log,
	}
}

// Check проверяет оба хранилища и обновляет статусы.
func (p *Prober) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var st Status
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		st.Cache = p.cache != nil && p.cache.IsPrimaryAvailable(ctx)
	}()
	go func() {
		defer wg.Done()
		st.Durable = p.durable != nil && p.durable.Ping(ctx) == nil
	}()
	wg.Wait()

	p.mu.Lock()
	prev := p.last
	p.last = st
	p.mu.Unlock()

	p.set(ServiceCache, st.Cache)
	p.set(ServiceDurable, st.Durable)
	p.set(ServiceOverall, st.Serving())
	metrics.BackendUp(ServiceCache, st.Cache)
	metrics.BackendUp(ServiceDurable, st.Durable)

	if prev != st {
		p.log.Info("storage availability changed",
			slog.Bool("cache", st.Cache),
			slog.Bool("durable", st.Durable),
		)
	}
	return st
}

// Last возвращает результат последней проверки.
func (p *Prober) Last() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Run проверяет хранилища сразу и затем раз в interval, пока не отменён ctx.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

func (p *Prober) set(name string, up bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if up {
		status = healthpb.HealthCheckResponse_SERVING
	}
	p.srv.SetServingStatus(name, status)
}

// NewServer создаёт gRPC-сервер с зарегистрированным health-сервисом.
func NewServer() (*grpc.Server, *grpchealth.Server) {
	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// Serve запускает сервер на lis и останавливает его при отмене ctx.
func Serve(ctx context.Context, srv *grpc.Server, lis net.Listener, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("gRPC health service listening", slog.String("address", lis.Addr().String()))
		errCh <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		srv.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
