// Package me реализует HTTP-обработчик профиля текущего пользователя.
package me

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/threadforge/internal/http/middlewarectx"
	"github.com/magabrotheeeer/threadforge/internal/http/response"
	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
)

// ServeHTTP godoc
// @Summary Профиль пользователя
// @Description Возвращает профиль пользователя по access-токену.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.Profile}
// @Failure 401 {object} response.ErrorResponse "Токен невалиден или истёк"
// @Router /auth/me [get]
func ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(apperr.KindInvalidToken, apperr.MsgInvalidToken))
		return
	}
	render.JSON(w, r, response.OKWithData(user.Profile()))
}
