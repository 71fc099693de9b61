// Package usage реализует HTTP-обработчики чтения и списания использования.
package usage

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/threadforge/internal/http/middlewarectx"
	"github.com/magabrotheeeer/threadforge/internal/http/response"
	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/models"
)

var errNoUsage = errors.New("usage is missing from request context")

// Reader описывает чтение счётчиков без инкремента.
type Reader interface {
	CheckPremium(ctx context.Context, address, email string) (models.PremiumStatus, error)
	Usage(ctx context.Context, identity string, premium bool) (models.Usage, error)
}

// Report ответ с уровнем доступа и счётчиками.
type Report struct {
	Identity string               `json:"identity"`
	Premium  models.PremiumStatus `json:"premium"`
	Usage    models.Usage         `json:"usage"`
}

// Handler обрабатывает чтение счётчиков использования.
type Handler struct {
	log    *slog.Logger
	reader Reader
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, reader Reader) *Handler {
	return &Handler{log: log, reader: reader}
}

// ServeHTTP godoc
// @Summary Текущее использование
// @Description Возвращает счётчики за текущие сутки и месяц и лимиты уровня доступа. Счётчики не меняются.
// @Tags Entitlement
// @Produce json
// @Success 200 {object} response.Response{data=Report}
// @Failure 401 {object} response.ErrorResponse "Токен невалиден"
// @Failure 503 {object} response.ErrorResponse "Кеш недоступен"
// @Router /entitlement/usage [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.usage"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var email string
	if u, ok := middlewarectx.UserFrom(r.Context()); ok {
		email = u.Email
	}
	premium, err := h.reader.CheckPremium(r.Context(), middlewarectx.ClientAddress(r), email)
	if err != nil {
		log.Error("premium check failed", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	identity := middlewarectx.Identity(r)
	usage, err := h.reader.Usage(r.Context(), identity, premium.HasPremium)
	if err != nil {
		log.Error("usage read failed", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(Report{Identity: identity, Premium: premium, Usage: usage}))
}

// Consume godoc
// @Summary Списание использования
// @Description Списывает одно использование. При превышении лимита отвечает 429 со счётчиками.
// @Tags Entitlement
// @Produce json
// @Success 200 {object} response.Response{data=models.Usage}
// @Failure 401 {object} response.ErrorResponse "Токен невалиден"
// @Failure 429 {object} response.Response{data=models.Usage} "Лимит превышен"
// @Failure 503 {object} response.ErrorResponse "Кеш недоступен"
// @Router /entitlement/usage/consume [post]
func Consume(w http.ResponseWriter, r *http.Request) {
	usage, ok := middlewarectx.UsageFrom(r.Context())
	if !ok {
		response.FromError(w, r, apperr.Unavailable(errNoUsage))
		return
	}
	render.JSON(w, r, response.OKWithData(usage))
}
