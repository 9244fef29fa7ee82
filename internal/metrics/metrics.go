package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
)

// Метрики аутентификации. Регистрируются в реестре по умолчанию
// и отдаются через GET /metrics.
var (
	// AuthFlows считает завершения сценариев по результату (ok или код ошибки).
	AuthFlows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_flow_total",
		Help: "Total number of authentication flow executions by outcome",
	}, []string{"flow", "outcome"})

	OTPIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_issued_total",
		Help: "Total number of issued one-time codes",
	}, []string{"purpose", "channel"})

	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_verifications_total",
		Help: "Total number of one-time code verification attempts by result",
	}, []string{"purpose", "result"})

	OTPDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_deliveries_total",
		Help: "Total number of one-time code deliveries by channel and result",
	}, []string{"channel", "result"})
)

// Результаты проверки и доставки кодов.
const (
	ResultOK       = "ok"
	ResultMissing  = "missing"
	ResultMismatch = "mismatch"
	ResultRace     = "already_consumed"
	ResultError    = "error"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
)

// ObserveFlow фиксирует итог сценария: "ok" при err == nil, иначе код ошибки.
func ObserveFlow(flow string, err error) {
	outcome := ResultOK
	if err != nil {
		outcome = string(apperror.KindOf(err))
	}
	AuthFlows.WithLabelValues(flow, outcome).Inc()
}
