package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolbot_api_calls_total",
		Help: "Backend API calls by endpoint, method and status code",
	}, []string{"endpoint", "method", "code"})

	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "toolbot_api_latency_seconds",
		Help:    "Backend API call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method"})

	BotUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolbot_updates_total",
		Help: "Telegram updates handled by kind",
	}, []string{"kind"})

	ActiveToasts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "toolbot_active_toasts",
		Help: "Notifications currently shown",
	})

	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolbot_submissions_total",
		Help: "Request submissions by outcome",
	}, []string{"outcome"})

	Reviews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolbot_reviews_total",
		Help: "Admin review actions by action and outcome",
	}, []string{"action", "outcome"})
)

// ObserveAPI records one backend call; code is "error" for transport failures.
func ObserveAPI(endpoint, method, code string, start time.Time) {
	APICalls.WithLabelValues(endpoint, method, code).Inc()
	APILatency.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
