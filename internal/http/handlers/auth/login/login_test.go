package login

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
	"github.com/magabrotheeeer/threadforge/internal/services/auth"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Login(ctx context.Context, in auth.LoginInput) (models.User, models.TokenPair, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.User), args.Get(1).(models.TokenPair), args.Error(2)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	user := models.User{UUID: "u-1", Email: "alice@example.com"}
	pair := models.TokenPair{AccessToken: "access", RefreshToken: "refresh", AccessExpiresAt: time.Now().Add(time.Hour)}

	tests := []struct {
		name       string
		body       string
		mockIn     *auth.LoginInput
		mockErr    error
		wantStatus int
		wantError  string
	}{
		{
			name:       "success with remember me",
			body:       `{"email":"alice@example.com","password":"P@ssw0rd1","remember_me":true}`,
			mockIn:     &auth.LoginInput{Email: "alice@example.com", Password: "P@ssw0rd1", RememberMe: true, ClientAddress: "192.0.2.1"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			body:       `{"email":"alice@example.com","password":"nope"}`,
			mockIn:     &auth.LoginInput{Email: "alice@example.com", Password: "nope", ClientAddress: "192.0.2.1"},
			mockErr:    apperr.New(apperr.KindInvalidCredentials, apperr.MsgInvalidCredentials),
			wantStatus: http.StatusUnauthorized,
			wantError:  apperr.MsgInvalidCredentials,
		},
		{
			name:       "missing fields",
			body:       `{"email":"alice@example.com"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "field Password is a required field",
		},
		{
			name:       "broken json",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.mockIn != nil {
				svc.On("Login", mock.Anything, *tt.mockIn).Return(user, pair, tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(tt.body))
			req.RemoteAddr = "192.0.2.1:1234"
			rec := httptest.NewRecorder()
			New(sl.NewDiscardLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				data := got["data"].(map[string]any)
				assert.Equal(t, "access", data["access_token"])
				assert.Equal(t, "bearer", data["token_type"])
			}
			svc.AssertExpectations(t)
		})
	}
}
