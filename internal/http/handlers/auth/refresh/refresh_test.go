package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Refresh(ctx context.Context, token string) (models.TokenPair, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.TokenPair), args.Error(1)
}

func (m *ServiceMock) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func serve(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRefreshHandler(t *testing.T) {
	pair := models.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh", AccessExpiresAt: time.Now().Add(time.Minute)}

	tests := []struct {
		name       string
		body       string
		token      string
		mockErr    error
		wantStatus int
		wantCode   string
	}{
		{"success", `{"refresh_token":"r1"}`, "r1", nil, http.StatusOK, ""},
		{"expired", `{"refresh_token":"r2"}`, "r2", apperr.New(apperr.KindTokenExpired, apperr.MsgTokenExpired), http.StatusUnauthorized, "token_expired"},
		{"access token presented", `{"refresh_token":"a1"}`, "a1", apperr.New(apperr.KindInvalidToken, apperr.MsgInvalidToken), http.StatusUnauthorized, "invalid_token"},
		{"missing token", `{}`, "", nil, http.StatusBadRequest, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.token != "" {
				svc.On("Refresh", mock.Anything, tt.token).Return(pair, tt.mockErr).Once()
			}
			rec := serve(New(sl.NewDiscardLogger(), svc), tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, got["code"])
			} else {
				data := got["data"].(map[string]any)
				assert.Equal(t, "new-refresh", data["refresh_token"])
				assert.NotContains(t, data, "user")
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Logout", mock.Anything, "r1").Return(nil).Once()
	svc.On("Logout", mock.Anything, "bad").Return(apperr.New(apperr.KindInvalidToken, apperr.MsgInvalidToken)).Once()
	h := NewLogout(sl.NewDiscardLogger(), svc)

	assert.Equal(t, http.StatusOK, serve(h, `{"refresh_token":"r1"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, `{"refresh_token":"bad"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(h, `nope`).Code)
	svc.AssertExpectations(t)
}
