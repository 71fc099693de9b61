// Package middlewarectx содержит HTTP middleware: проверку JWT, проверку роли,
// ограничение частоты запросов и учёт использования.
package middlewarectx

import (
	"context"
	"net"
	"net/http"

	"github.com/magabrotheeeer/threadforge/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserKey ключ для аутентифицированного пользователя в контексте.
	UserKey Key = "user"
	// UsageKey ключ для счётчиков использования после списания.
	UsageKey Key = "usage"
)

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// UserFrom достаёт пользователя из контекста.
func UserFrom(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(UserKey).(models.User)
	return u, ok
}

// UsageFrom достаёт счётчики использования из контекста.
func UsageFrom(ctx context.Context) (models.Usage, bool) {
	u, ok := ctx.Value(UsageKey).(models.Usage)
	return u, ok
}

// ClientAddress адрес клиента без порта. После chi middleware.RealIP это адрес
// из X-Forwarded-For или X-Real-IP.
func ClientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Identity ключ учёта использования: user:<email> для аутентифицированного
// запроса, иначе ip:<адрес>.
func Identity(r *http.Request) string {
	if u, ok := UserFrom(r.Context()); ok {
		return "user:" + u.Email
	}
	return "ip:" + ClientAddress(r)
}
