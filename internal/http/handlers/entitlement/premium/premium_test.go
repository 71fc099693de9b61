package premium

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/threadforge/internal/http/middlewarectx"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/models"
)

type CheckerMock struct {
	mock.Mock
}

func (m *CheckerMock) CheckPremium(ctx context.Context, address, email string) (models.PremiumStatus, error) {
	args := m.Called(ctx, address, email)
	return args.Get(0).(models.PremiumStatus), args.Error(1)
}

func TestHandler(t *testing.T) {
	expires := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	active := models.PremiumStatus{HasPremium: true, Plan: "pro", ExpiresAt: &expires, Source: models.SourceEmail}

	tests := []struct {
		name       string
		target     string
		user       *models.User
		wantEmail  string
		status     models.PremiumStatus
		err        error
		wantStatus int
	}{
		{"query email", "/entitlement/premium?email=a@b.com", nil, "a@b.com", active, nil, http.StatusOK},
		{"user email", "/entitlement/premium", &models.User{Email: "me@b.com"}, "me@b.com", active, nil, http.StatusOK},
		{"query wins over user", "/entitlement/premium?email=x@b.com", &models.User{Email: "me@b.com"}, "x@b.com", active, nil, http.StatusOK},
		{"anonymous", "/entitlement/premium", nil, "", models.PremiumStatus{Source: models.SourceNone}, nil, http.StatusOK},
		{"cache down", "/entitlement/premium", nil, "", models.PremiumStatus{}, errors.New("dial tcp: refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := new(CheckerMock)
			checker.On("CheckPremium", mock.Anything, "192.0.2.1", tt.wantEmail).Return(tt.status, tt.err).Once()

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.user != nil {
				req = req.WithContext(middlewarectx.WithUser(req.Context(), *tt.user))
			}
			rec := httptest.NewRecorder()
			New(sl.NewDiscardLogger(), checker).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.err == nil {
				var got struct {
					Data models.PremiumStatus `json:"data"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, tt.status.HasPremium, got.Data.HasPremium)
				assert.Equal(t, tt.status.Source, got.Data.Source)
			} else {
				assert.Equal(t, "5", rec.Header().Get("Retry-After"))
			}
			checker.AssertExpectations(t)
		})
	}
}
