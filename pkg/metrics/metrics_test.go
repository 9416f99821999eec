package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/flagkit/pkg/metrics"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveEvaluation("PROD", "boolean", time.Millisecond)
		m.EvaluationFailed()
		m.CacheLookup("flag", true)
		m.CacheError("get")
		m.Promotion(true, false, map[string]int{"CREATE": 1})
		m.QuotaRejected()
		m.ObserveHTTP(http.MethodGet, "/features", 200, time.Millisecond)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())

	m.ObserveEvaluation("PROD", "boolean", time.Millisecond)
	m.ObserveEvaluation("PROD", "boolean", time.Millisecond)
	m.CacheLookup("flag", false)
	m.CacheLookup("flag", true)
	m.CacheLookup("flag", true)
	m.Promotion(false, false, map[string]int{"CREATE": 2, "SKIP": 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("PROD", "boolean")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("flag", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("flag", "miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PromotionChangesTotal.WithLabelValues("CREATE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PromotionsTotal.WithLabelValues("false", "ok")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flagkit_evaluation_total")
}

func TestNew_SeparateRegistries(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		metrics.New(nil)
		metrics.New(nil)
	})
}
