package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
	"github.com/magabrotheeeer/threadforge/internal/models"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
		retryAfter bool
	}{
		{"validation", apperr.New(apperr.KindValidation, "bad email"), http.StatusBadRequest, "validation_error", "bad email", false},
		{"mismatch", apperr.New(apperr.KindPasswordMismatch, "passwords do not match"), http.StatusBadRequest, "password_mismatch", "passwords do not match", false},
		{"duplicate", apperr.New(apperr.KindDuplicateEmail, "exists"), http.StatusConflict, "duplicate_email", "exists", false},
		{"expired", apperr.New(apperr.KindTokenExpired, apperr.MsgTokenExpired), http.StatusUnauthorized, "token_expired", apperr.MsgTokenExpired, false},
		{"usage", apperr.New(apperr.KindUsageExceeded, "limit"), http.StatusTooManyRequests, "usage_exceeded", "limit", false},
		{"unavailable hides cause", apperr.Unavailable(errors.New("dial tcp 10.0.0.5:5432")), http.StatusServiceUnavailable, "service_unavailable", apperr.MsgUnavailable, true},
		{"unclassified", errors.New("boom"), http.StatusServiceUnavailable, "service_unavailable", apperr.MsgUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			FromError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, StatusError, resp.Status)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Error)
			assert.NotContains(t, rec.Body.String(), "10.0.0.5")
			if tt.retryAfter {
				assert.Equal(t, RetryAfterSeconds, rec.Header().Get("Retry-After"))
			} else {
				assert.Empty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestInvalid(t *testing.T) {
	type req struct {
		Email string `json:"email" validate:"required,email"`
	}
	err := validator.New().Struct(req{Email: "nope"})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	Invalid(rec, httptest.NewRequest(http.MethodPost, "/", nil), err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "field Email must be a valid email address")

	rec = httptest.NewRecorder()
	Invalid(rec, httptest.NewRequest(http.MethodPost, "/", nil), errors.New("unexpected EOF"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestOKWithData(t *testing.T) {
	resp := OKWithData(map[string]int{"a": 1})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Code)
}

func TestNewSession(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pair := models.TokenPair{AccessToken: "a", RefreshToken: "r", AccessExpiresAt: now.Add(30 * time.Minute)}
	user := &models.User{UUID: "u-1", Email: "a@example.com", PasswordHash: "secret-hash"}

	s := NewSession(user, pair, now)
	assert.Equal(t, int64(1800), s.ExpiresIn)
	assert.Equal(t, "bearer", s.TokenType)
	require.NotNil(t, s.User)
	assert.Equal(t, "u-1", s.User.ID)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-hash")

	assert.Nil(t, NewSession(nil, pair, now).User)
}
