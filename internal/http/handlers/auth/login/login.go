// Package login реализует HTTP-обработчик входа пользователя.
//
// При успешной аутентификации возвращается пара токенов; неизвестный email и
// неверный пароль дают одинаковый ответ 401.
package login

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/threadforge/internal/http/middlewarectx"
	"github.com/magabrotheeeer/threadforge/internal/http/response"
	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/models"
	"github.com/magabrotheeeer/threadforge/internal/services/auth"
)

// Request — структура входных данных для авторизации.
type Request struct {
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// Service описывает вход в сервисе аутентификации.
type Service interface {
	Login(ctx context.Context, in auth.LoginInput) (models.User, models.TokenPair, error)
}

// Handler обрабатывает HTTP-запросы для авторизации.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Авторизация пользователя
// @Description Аутентифицирует пользователя по email и паролю. Возвращает access и refresh токены.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Учетные данные пользователя"
// @Success 200 {object} response.Response{data=response.Session}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 503 {object} response.ErrorResponse "Хранилища недоступны"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"
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
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	user, pair, err := h.service.Login(r.Context(), auth.LoginInput{
		Email:         req.Email,
		Password:      req.Password,
		RememberMe:    req.RememberMe,
		ClientAddress: middlewarectx.ClientAddress(r),
	})
	if err != nil {
		log.Info("login rejected", slog.String("code", apperr.KindOf(err).String()))
		response.FromError(w, r, err)
		return
	}

	log.Info("login success", slog.String("user_id", user.UUID))
	render.JSON(w, r, response.OKWithData(response.NewSession(&user, pair, time.Now())))
}
