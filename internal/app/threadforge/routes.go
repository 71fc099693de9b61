// Package threadforge собирает зависимости сервиса и запускает серверы.
package threadforge

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	// Регистрация swagger-документа.
	_ "github.com/magabrotheeeer/threadforge/docs"
	"github.com/magabrotheeeer/threadforge/internal/grpc/health"
	"github.com/magabrotheeeer/threadforge/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/threadforge/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/threadforge/internal/http/handlers/auth/refresh"
	"github.com/magabrotheeeer/threadforge/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/threadforge/internal/http/handlers/auth/strength"
	"github.com/magabrotheeeer/threadforge/internal/http/handlers/entitlement/grant"
	"github.com/magabrotheeeer/threadforge/internal/http/handlers/entitlement/premium"
	"github.com/magabrotheeeer/threadforge/internal/http/handlers/entitlement/usage"
	healthhandler "github.com/magabrotheeeer/threadforge/internal/http/handlers/health"
	"github.com/magabrotheeeer/threadforge/internal/http/middlewarectx"
	"github.com/magabrotheeeer/threadforge/internal/models"
	"github.com/magabrotheeeer/threadforge/internal/services/auth"
	"github.com/magabrotheeeer/threadforge/internal/services/entitlement"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authService *auth.AuthService, ledger *entitlement.Ledger, prober *health.Prober, limiter *rate.Limiter) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(limiter, logger))
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Post("/refresh", refresh.New(logger, authService).ServeHTTP)
		r.Post("/logout", refresh.NewLogout(logger, authService).ServeHTTP)
		r.Post("/password/strength", strength.ServeHTTP)
		r.With(middlewarectx.JWTMiddleware(authService, logger)).Get("/me", me.ServeHTTP)
	})

	r.Route("/entitlement", func(r chi.Router) {
		// Токен необязателен: без него учёт идёт по адресу клиента.
		r.Use(middlewarectx.OptionalJWTMiddleware(authService, logger))
		r.Get("/premium", premium.New(logger, ledger).ServeHTTP)
		r.Get("/usage", usage.New(logger, ledger).ServeHTTP)
		r.With(middlewarectx.UsageGate(ledger, logger)).Post("/usage/consume", usage.Consume)

		r.With(middlewarectx.RequireRole(models.RoleAdmin, logger)).
			Post("/premium/grant", grant.New(logger, ledger).ServeHTTP)
	})

	r.Get("/healthz", healthhandler.New(logger, prober).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
