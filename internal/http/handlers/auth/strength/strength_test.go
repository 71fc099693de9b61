package strength

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantPolicy bool
	}{
		{"strong password", `{"password":"Correct-Horse-9-Battery"}`, http.StatusOK, true},
		{"short password", `{"password":"abc"}`, http.StatusOK, false},
		{"empty password", `{"password":""}`, http.StatusOK, false},
		{"broken body", `{"password":`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/password/strength", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got struct {
				Data struct {
					Score       int      `json:"score"`
					MaxScore    int      `json:"max_score"`
					Tier        string   `json:"tier"`
					MeetsPolicy bool     `json:"meets_policy"`
					Violations  []string `json:"violations"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, 6, got.Data.MaxScore)
			assert.NotEmpty(t, got.Data.Tier)
			assert.Equal(t, tt.wantPolicy, got.Data.MeetsPolicy)
			assert.Equal(t, tt.wantPolicy, len(got.Data.Violations) == 0)
		})
	}
}
