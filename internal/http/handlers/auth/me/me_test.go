package me

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/threadforge/internal/http/middlewarectx"
	"github.com/magabrotheeeer/threadforge/internal/models"
)

func TestMe(t *testing.T) {
	rec := httptest.NewRecorder()
	ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user := models.User{UUID: "u-1", Email: "alice@example.com", PasswordHash: "hash", Role: models.RoleUser}
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middlewarectx.WithUser(req.Context(), user))
	rec = httptest.NewRecorder()
	ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Data models.Profile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "alice@example.com", got.Data.Email)
	assert.NotContains(t, rec.Body.String(), "hash")
}
