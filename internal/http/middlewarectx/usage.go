package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/threadforge/internal/http/response"
	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/metrics"
	"github.com/magabrotheeeer/threadforge/internal/models"
)

// Ledger учёт премиум-доступа и использования.
type Ledger interface {
	CheckPremium(ctx context.Context, address, email string) (models.PremiumStatus, error)
	IncrementUsage(ctx context.Context, identity string, premium bool) (models.Usage, error)
}

// UsageGate списывает одно использование за запрос и отвечает 429, если
// после списания превышен дневной или месячный лимит. Ставится после
// OptionalJWTMiddleware, чтобы учёт шёл по пользователю, когда он известен.
func UsageGate(ledger Ledger, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.UsageGate"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			var email string
			if u, ok := UserFrom(r.Context()); ok {
				email = u.Email
			}
			premium, err := ledger.CheckPremium(r.Context(), ClientAddress(r), email)
			if err != nil {
				log.Error("premium check failed", sl.Err(err))
				response.FromError(w, r, err)
				return
			}

			tier := "free"
			if premium.HasPremium {
				tier = "premium"
			}
			usage, err := ledger.IncrementUsage(r.Context(), Identity(r), premium.HasPremium)
			if err != nil {
				log.Error("usage increment failed", sl.Err(err))
				response.FromError(w, r, err)
				return
			}

			if usage.Exceeded() {
				metrics.UsageIncrement(tier, "rejected")
				log.Info("usage limit exceeded", slog.String("tier", tier))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Response{
					Status: response.StatusError,
					Error:  "usage limit exceeded",
					Code:   apperr.KindUsageExceeded.String(),
					Data:   usage,
				})
				return
			}
			metrics.UsageIncrement(tier, "allowed")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UsageKey, usage)))
		})
	}
}
