package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestUser_ProfileHidesHash(t *testing.T) {
	u := User{UUID: "id-1", Email: "a@b.com", PasswordHash: "$2a$10$secret", Role: RoleUser, Status: StatusActive}
	raw, err := json.Marshal(u.Profile())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.Contains(t, string(raw), `"id":"id-1"`)
}

func TestPremiumGrant_ActiveAt(t *testing.T) {
	expires := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	g := PremiumGrant{ExpiresAt: expires}

	assert.True(t, g.ActiveAt(expires.Add(-time.Nanosecond)))
	assert.False(t, g.ActiveAt(expires))
	assert.False(t, g.ActiveAt(expires.Add(time.Hour)))
}

func TestUsage_Exceeded(t *testing.T) {
	tests := []struct {
		name  string
		usage Usage
		want  bool
	}{
		{"under limits", Usage{DailyUsed: 1, DailyLimit: 5, MonthlyUsed: 1, MonthlyLimit: 50}, false},
		{"at daily limit", Usage{DailyUsed: 5, DailyLimit: 5, MonthlyUsed: 5, MonthlyLimit: 50}, false},
		{"over daily", Usage{DailyUsed: 6, DailyLimit: 5, MonthlyUsed: 6, MonthlyLimit: 50}, true},
		{"over monthly", Usage{DailyUsed: 1, DailyLimit: 5, MonthlyUsed: 51, MonthlyLimit: 50}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.usage.Exceeded())
		})
	}
}

func TestTokenPair_ExpiresIn(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := TokenPair{AccessExpiresAt: now.Add(15 * time.Minute)}

	assert.Equal(t, int64(900), p.ExpiresIn(now))
	assert.Equal(t, int64(0), p.ExpiresIn(now.Add(time.Hour)))
}
