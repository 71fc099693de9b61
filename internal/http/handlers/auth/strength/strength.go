// Package strength реализует HTTP-обработчик оценки надёжности пароля.
package strength

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/threadforge/internal/http/response"
	"github.com/magabrotheeeer/threadforge/internal/lib/password"
)

// Request пароль для оценки.
type Request struct {
	Password string `json:"password"`
}

// Result оценка пароля и нарушения политики регистрации.
type Result struct {
	password.Strength
	MeetsPolicy bool     `json:"meets_policy"`
	Violations  []string `json:"violations,omitempty"`
}

// ServeHTTP godoc
// @Summary Надёжность пароля
// @Description Оценивает пароль по шкале 0..6 и проверяет требования регистрации. Пароль не сохраняется.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Пароль"
// @Success 200 {object} response.Response{data=Result}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Router /auth/password/strength [post]
func ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Invalid(w, r, err)
		return
	}
	violations := password.CheckPolicy(req.Password)
	render.JSON(w, r, response.OKWithData(Result{
		Strength:    password.ScoreStrength(req.Password),
		MeetsPolicy: len(violations) == 0,
		Violations:  violations,
	}))
}
