// Package metrics defines the Prometheus collectors of the flag service.
//
// All recording methods are safe on a nil *Metrics, so components accept an
// optional collector set and tests can leave it out.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flagkit"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	EvaluationErrors   prometheus.Counter

	CacheRequestsTotal *prometheus.CounterVec
	CacheErrorsTotal   *prometheus.CounterVec

	PromotionsTotal       *prometheus.CounterVec
	PromotionChangesTotal *prometheus.CounterVec

	QuotaRejectionsTotal prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		EvaluationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "total",
			Help:      "Number of flag evaluations by environment and reason",
		}, []string{"env", "reason"}),
		EvaluationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "duration_seconds",
			Help:      "Histogram of evaluation durations",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		EvaluationErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "errors_total",
			Help:      "Evaluations answered with a disabled result because of an infrastructure error",
		}),
		CacheRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by entry kind and result",
		}, []string{"kind", "result"}),
		CacheErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Cache backend failures by operation",
		}, []string{"op"}),
		PromotionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "promotion",
			Name:      "total",
			Help:      "Promotions by outcome",
		}, []string{"dry_run", "outcome"}),
		PromotionChangesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "promotion",
			Name:      "changes_total",
			Help:      "Planned promotion changes by action",
		}, []string{"action"}),
		QuotaRejectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "rejections_total",
			Help:      "Requests rejected by tenant quotas",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveEvaluation(env, reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(env, reason).Inc()
	m.EvaluationDuration.Observe(d.Seconds())
}

func (m *Metrics) EvaluationFailed() {
	if m == nil {
		return
	}
	m.EvaluationErrors.Inc()
}

// CacheLookup records a hit or miss for kind ("flag" or "features").
func (m *Metrics) CacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) CacheError(op string) {
	if m == nil {
		return
	}
	m.CacheErrorsTotal.WithLabelValues(op).Inc()
}

// Promotion records a finished promotion and its planned changes.
func (m *Metrics) Promotion(dryRun bool, failed bool, actions map[string]int) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.PromotionsTotal.WithLabelValues(strconv.FormatBool(dryRun), outcome).Inc()
	for action, n := range actions {
		m.PromotionChangesTotal.WithLabelValues(action).Add(float64(n))
	}
}

func (m *Metrics) QuotaRejected() {
	if m == nil {
		return
	}
	m.QuotaRejectionsTotal.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
