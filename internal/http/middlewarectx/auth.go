package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/threadforge/internal/http/response"
	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/models"
)

// Authenticator проверяет access-токен и возвращает пользователя.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return token, token != ""
}

// JWTMiddleware требует валидный access-токен в заголовке Authorization
// и кладёт пользователя в контекст. Иначе отвечает 401.
func JWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return jwtMiddleware(auth, log, true)
}

// OptionalJWTMiddleware как JWTMiddleware, но пропускает запрос без заголовка
// Authorization. Предъявленный, но невалидный токен всё равно даёт 401.
func OptionalJWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return jwtMiddleware(auth, log, false)
}

func jwtMiddleware(auth Authenticator, log *slog.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := bearer(r)
			if !ok {
				if !required && r.Header.Get("Authorization") == "" {
					next.ServeHTTP(w, r)
					return
				}
				log.Info("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(apperr.KindInvalidToken, "missing or invalid authorization header"))
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindStorageUnavailable {
					log.Error("authentication failed", sl.Err(err))
				} else {
					log.Info("token rejected", slog.String("reason", apperr.KindOf(err).String()))
				}
				response.FromError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireRole пропускает только пользователей с ролью role. Ставится после JWTMiddleware.
func RequireRole(role models.Role, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFrom(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(apperr.KindInvalidToken, "user identification missing"))
				return
			}
			if user.Role != role {
				log.Warn("access denied",
					slog.String("op", "middlewarectx.RequireRole"),
					slog.String("user_id", user.UUID),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(apperr.KindForbidden, "insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
