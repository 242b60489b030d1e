package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 守卫层的 Prometheus 指标。
var (
	breakerStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bastion_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
	}, []string{"name"})

	rateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bastion_rate_limiter_rejections_total",
		Help: "Number of calls rejected by the rate limiter.",
	}, []string{"name"})

	retryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bastion_retry_attempts_total",
		Help: "Number of retry attempts after a failed first attempt.",
	}, []string{"name"})

	timeoutCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bastion_time_limiter_timeouts_total",
		Help: "Number of calls cancelled by the time limiter.",
	}, []string{"name"})
)
