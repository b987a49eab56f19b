// file: internal/metrics/metrics.go
// version: 1.0.0
// guid: 7c2e9f14-6b3a-48d0-9e1f-5a8c4d72b093

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchwell",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by route and status class",
	}, []string{"route", "status"})
	authFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchwell",
		Name:      "auth_failures_total",
		Help:      "Total number of authorization failures by kind (invalid_session, status_mismatch)",
	}, []string{"kind"})
	rateLimitRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchwell",
		Name:      "rate_limit_rejections_total",
		Help:      "Total number of requests rejected by a rate-limit rule",
	}, []string{"rule"})
	searchClassifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchwell",
		Name:      "search_classifications_total",
		Help:      "Total number of search requests by classification (cached, uncached)",
	}, []string{"classification"})
	otpIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchwell",
		Name:      "otp_issued_total",
		Help:      "Total number of one-time passcodes issued",
	})
	storeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchwell",
		Name:      "store_errors_total",
		Help:      "Total number of store operation failures by operation",
	}, []string{"op"})

	sessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "matchwell",
		Name:      "active_sessions",
		Help:      "Current number of live sessions",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestsTotal, authFailures, rateLimitRejections,
			searchClassifications, otpIssued, storeErrors, sessionsGauge)
	})
}

func IncRequest(route, status string)   { requestsTotal.WithLabelValues(route, status).Inc() }
func IncAuthFailure(kind string)        { authFailures.WithLabelValues(kind).Inc() }
func IncRateLimitRejection(rule string) { rateLimitRejections.WithLabelValues(rule).Inc() }

func IncSearchClassification(tag string) {
	searchClassifications.WithLabelValues(tag).Inc()
}

func IncOTPIssued()           { otpIssued.Inc() }
func IncStoreError(op string) { storeErrors.WithLabelValues(op).Inc() }
func SetActiveSessions(n int) { sessionsGauge.Set(float64(n)) }
