// Package grant реализует HTTP-обработчик выдачи премиум-доступа.
package grant

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/threadforge/internal/http/response"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/models"
	"github.com/magabrotheeeer/threadforge/internal/services/entitlement"
)

// Request тело запроса на выдачу доступа. Нужен email или ip_address.
type Request struct {
	Email        string            `json:"email" validate:"omitempty,email"`
	IPAddress    string            `json:"ip_address" validate:"omitempty,ip"`
	Plan         string            `json:"plan" validate:"required"`
	DurationDays int               `json:"duration_days" validate:"required,gt=0,max=3650"`
	Metadata     map[string]string `json:"metadata"`
}

// Granter описывает выдачу премиум-доступа.
type Granter interface {
	GrantPremium(ctx context.Context, req entitlement.GrantRequest) (models.PremiumGrant, error)
}

// Handler обрабатывает запросы выдачи доступа.
type Handler struct {
	log      *slog.Logger
	granter  Granter
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, granter Granter) *Handler {
	return &Handler{log: log, granter: granter, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Выдача премиум-доступа
// @Description Записывает доступ по email и/или IP-адресу на указанное число дней. Только для администраторов.
// @Tags Entitlement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Request true "Параметры доступа"
// @Success 201 {object} response.Response{data=models.PremiumGrant}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 503 {object} response.ErrorResponse "Кеш недоступен"
// @Router /entitlement/premium/grant [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.grant"
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

	grant, err := h.granter.GrantPremium(r.Context(), entitlement.GrantRequest{
		Email:        req.Email,
		Address:      req.IPAddress,
		Plan:         req.Plan,
		DurationDays: req.DurationDays,
		Metadata:     req.Metadata,
	})
	if err != nil {
		log.Error("grant failed", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	log.Info("premium granted", slog.String("plan", grant.Plan), slog.Time("expires_at", grant.ExpiresAt))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(grant))
}
