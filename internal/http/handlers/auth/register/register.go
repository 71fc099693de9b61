// Package register реализует HTTP-обработчик регистрации пользователя.
package register

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

// Request — структура входных данных для регистрации.
type Request struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// Service описывает регистрацию в сервисе аутентификации.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) (models.User, models.TokenPair, error)
}

// Handler обрабатывает HTTP-запросы для регистрации.
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
// @Summary Регистрация пользователя
// @Description Создаёт пользователя и возвращает пару токенов.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Данные для регистрации"
// @Success 201 {object} response.Response{data=response.Session}
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации или пароли не совпадают"
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Failure 503 {object} response.ErrorResponse "Хранилища недоступны"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"
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

	user, pair, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		ClientAddress:   middlewarectx.ClientAddress(r),
	})
	if err != nil {
		log.Info("registration rejected", slog.String("code", apperr.KindOf(err).String()))
		response.FromError(w, r, err)
		return
	}

	log.Info("user registered", slog.String("user_id", user.UUID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(response.NewSession(&user, pair, time.Now())))
}
