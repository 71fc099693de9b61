// Package refresh реализует HTTP-обработчики обновления токенов и выхода.
package refresh

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/threadforge/internal/http/response"
	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/models"
)

// Request тело запроса с refresh-токеном.
type Request struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Service описывает обновление токенов.
type Service interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// Handler обрабатывает запросы на обновление токенов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Обновление токенов
// @Description Выдаёт новую пару токенов. Предъявленный refresh-токен отзывается.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Refresh-токен"
// @Success 200 {object} response.Response{data=response.Session}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Токен невалиден, отозван или истёк"
// @Router /auth/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.refresh"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		log.Info("refresh rejected", slog.String("code", apperr.KindOf(err).String()))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(response.NewSession(nil, pair, time.Now())))
}
