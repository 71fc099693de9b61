package models

import "time"

// PremiumGrant запись о выданном премиум-доступе.
type PremiumGrant struct {
	Key          string            `json:"key"`
	Plan         string            `json:"plan"`
	GrantedAt    time.Time         `json:"granted_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
	DurationDays int               `json:"duration_days"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ActiveAt сообщает, действует ли доступ в момент now.
// Запись может жить в кеше дольше ExpiresAt, поэтому наличие ключа ничего не значит.
func (g PremiumGrant) ActiveAt(now time.Time) bool {
	return now.Before(g.ExpiresAt)
}

// PremiumSource откуда была получена запись о премиум-доступе.
type PremiumSource string

const (
	SourceNone  PremiumSource = "none"
	SourceEmail PremiumSource = "email"
	SourceIP    PremiumSource = "ip"
)

// PremiumStatus результат проверки премиум-доступа.
type PremiumStatus struct {
	HasPremium bool          `json:"has_premium"`
	Plan       string        `json:"plan,omitempty"`
	ExpiresAt  *time.Time    `json:"expires_at,omitempty"`
	DaysLeft   int           `json:"days_left,omitempty"`
	Source     PremiumSource `json:"source"`
}

// Usage счётчики использования после инкремента или при чтении.
type Usage struct {
	DailyUsed    int64 `json:"daily_used"`
	DailyLimit   int64 `json:"daily_limit"`
	MonthlyUsed  int64 `json:"monthly_used"`
	MonthlyLimit int64 `json:"monthly_limit"`
}

// Exceeded сообщает, превышен ли хотя бы один из лимитов.
func (u Usage) Exceeded() bool {
	return u.DailyUsed > u.DailyLimit || u.MonthlyUsed > u.MonthlyLimit
}
