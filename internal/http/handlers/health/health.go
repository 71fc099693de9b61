// Package health реализует HTTP-обработчик проверки готовности.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	storehealth "github.com/magabrotheeeer/threadforge/internal/grpc/health"
	"github.com/magabrotheeeer/threadforge/internal/http/response"
	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
)

// Checker проверяет хранилища.
type Checker interface {
	Check(ctx context.Context) storehealth.Status
}

// Handler отвечает состоянием хранилищ.
type Handler struct {
	log     *slog.Logger
	checker Checker
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, checker Checker) *Handler {
	return &Handler{log: log, checker: checker}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Description Доступен, если отвечает хотя бы одно хранилище.
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response{data=health.Status}
// @Failure 503 {object} response.Response{data=health.Status}
// @Router /healthz [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	status := h.checker.Check(r.Context())
	if !status.Serving() {
		h.log.Warn("no store is available", slog.String("op", op))
		w.Header().Set("Retry-After", response.RetryAfterSeconds)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Error:  apperr.MsgUnavailable,
			Code:   apperr.KindStorageUnavailable.String(),
			Data:   status,
		})
		return
	}
	render.JSON(w, r, response.OKWithData(status))
}
