// Package premium реализует HTTP-обработчик проверки премиум-доступа.
package premium

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/threadforge/internal/http/middlewarectx"
	"github.com/magabrotheeeer/threadforge/internal/http/response"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/models"
)

// Checker описывает проверку премиум-доступа.
type Checker interface {
	CheckPremium(ctx context.Context, address, email string) (models.PremiumStatus, error)
}

// Handler обрабатывает запросы проверки премиум-доступа.
type Handler struct {
	log     *slog.Logger
	checker Checker
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, checker Checker) *Handler {
	return &Handler{log: log, checker: checker}
}

// ServeHTTP godoc
// @Summary Проверка премиум-доступа
// @Description Проверяет доступ по email (параметр или email вошедшего пользователя), затем по адресу клиента.
// @Tags Entitlement
// @Produce json
// @Param email query string false "Email для проверки"
// @Success 200 {object} response.Response{data=models.PremiumStatus}
// @Failure 401 {object} response.ErrorResponse "Токен невалиден"
// @Failure 503 {object} response.ErrorResponse "Кеш недоступен"
// @Router /entitlement/premium [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.premium"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	email := r.URL.Query().Get("email")
	if email == "" {
		if u, ok := middlewarectx.UserFrom(r.Context()); ok {
			email = u.Email
		}
	}

	status, err := h.checker.CheckPremium(r.Context(), middlewarectx.ClientAddress(r), email)
	if err != nil {
		log.Error("premium check failed", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(status))
}
