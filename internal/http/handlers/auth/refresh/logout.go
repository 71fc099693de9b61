package refresh

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/threadforge/internal/http/response"
	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
)

// LogoutService описывает отзыв refresh-токена.
type LogoutService interface {
	Logout(ctx context.Context, refreshToken string) error
}

// LogoutHandler обрабатывает выход пользователя.
type LogoutHandler struct {
	log      *slog.Logger
	service  LogoutService
	validate *validator.Validate
}

// NewLogout создает новый экземпляр LogoutHandler.
func NewLogout(log *slog.Logger, service LogoutService) *LogoutHandler {
	return &LogoutHandler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Выход
// @Description Отзывает refresh-токен.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Refresh-токен"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Токен невалиден"
// @Router /auth/logout [post]
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"
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

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		log.Info("logout rejected", slog.String("code", apperr.KindOf(err).String()))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(nil))
}
