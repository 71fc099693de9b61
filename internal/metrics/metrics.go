// Package metrics содержит prometheus-метрики сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "User store operations by backend, operation and outcome",
		},
		[]string{"backend", "op", "outcome"},
	)

	storeFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_fallbacks_total",
			Help: "Operations that fell through from the cache store to the durable store",
		},
		[]string{"op"},
	)

	authRegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	authLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	tokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_refreshes_total",
			Help: "Token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	usageIncrementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_usage_increments_total",
			Help: "Billable usage increments by tier and decision",
		},
		[]string{"tier", "decision"},
	)

	premiumChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_premium_checks_total",
			Help: "Premium checks by lookup source",
		},
		[]string{"source"},
	)

	premiumGrantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_premium_grants_total",
			Help: "Premium grants by plan",
		},
		[]string{"plan"},
	)

	backendUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_backend_up",
			Help: "1 if the storage backend answered the last probe",
		},
		[]string{"backend"},
	)
)

// StoreOp учитывает операцию с хранилищем пользователей.
func StoreOp(backend, op, outcome string) {
	storeOpsTotal.WithLabelValues(backend, op, outcome).Inc()
}

// StoreFallback учитывает переход с кеш-хранилища на надёжное.
func StoreFallback(op string) {
	storeFallbacksTotal.WithLabelValues(op).Inc()
}

// Registration учитывает попытку регистрации.
func Registration(outcome string) {
	authRegistrationsTotal.WithLabelValues(outcome).Inc()
}

// Login учитывает попытку входа.
func Login(outcome string) {
	authLoginsTotal.WithLabelValues(outcome).Inc()
}

// Refresh учитывает попытку обновления токенов.
func Refresh(outcome string) {
	tokenRefreshesTotal.WithLabelValues(outcome).Inc()
}

// UsageIncrement учитывает списание использования.
func UsageIncrement(tier, decision string) {
	usageIncrementsTotal.WithLabelValues(tier, decision).Inc()
}

// PremiumCheck учитывает проверку премиум-доступа.
func PremiumCheck(source string) {
	premiumChecksTotal.WithLabelValues(source).Inc()
}

// PremiumGrant учитывает выдачу премиум-доступа.
func PremiumGrant(plan string) {
	premiumGrantsTotal.WithLabelValues(plan).Inc()
}

// BackendUp выставляет состояние хранилища по результату проверки.
func BackendUp(backend string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	backendUp.WithLabelValues(backend).Set(v)
}
