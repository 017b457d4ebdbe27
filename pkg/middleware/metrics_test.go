package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findMetric returns the series of c whose labels include all of labels.
func findMetric(t *testing.T, c prometheus.Collector, labels map[string]string) *dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 256)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		require.NoError(t, m.Write(d))
		got := map[string]string{}
		for _, lp := range d.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range labels {
			if got[k] != v {
				match = false
				break
			}
		}
		if match {
			return d
		}
	}
	return nil
}

func counterValue(t *testing.T, c *prometheus.CounterVec, labels map[string]string) float64 {
	t.Helper()
	if m := findMetric(t, c, labels); m != nil {
		return m.GetCounter().GetValue()
	}
	return 0
}

func metricsRouter(service string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(service))
	r.Get("/api/review/product/{productId}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	r.Post("/api/review/create", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	return r
}

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := metricsRouter("metrics-route")
	labels := map[string]string{
		"service": "metrics-route",
		"method":  http.MethodGet,
		"route":   "/api/review/product/{productId}",
		"status":  "200",
	}
	before := counterValue(t, httpRequestsTotal, labels)

	for _, id := range []string{"1001", "1002", "1003"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/review/product/"+id, nil))
	}

	assert.Equal(t, before+3, counterValue(t, httpRequestsTotal, labels))

	size := findMetric(t, httpResponseSize, map[string]string{"service": "metrics-route", "route": "/api/review/product/{productId}"})
	require.NotNil(t, size)
	assert.GreaterOrEqual(t, size.GetHistogram().GetSampleCount(), uint64(3))
}

func TestPrometheusMetrics_RecordsStatus(t *testing.T) {
	r := metricsRouter("metrics-status")

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/review/create", nil))

	assert.Equal(t, 1.0, counterValue(t, httpRequestsTotal, map[string]string{
		"service": "metrics-status",
		"route":   "/api/review/create",
		"status":  "429",
	}))
	hist := findMetric(t, httpRequestDuration, map[string]string{"service": "metrics-status", "route": "/api/review/create"})
	require.NotNil(t, hist)
	assert.Equal(t, uint64(1), hist.GetHistogram().GetSampleCount())
}

func TestPrometheusMetrics_UnmatchedRoute(t *testing.T) {
	r := metricsRouter("metrics-unmatched")

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin/"+"x", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/path", nil))

	assert.Equal(t, 2.0, counterValue(t, httpRequestsTotal, map[string]string{
		"service": "metrics-unmatched",
		"route":   unmatchedRoute,
		"status":  "404",
	}))
}

func TestPrometheusMetrics_InFlightReturnsToZero(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-inflight"))
	var during float64
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		during = findMetric(t, httpRequestsInFlight, map[string]string{"service": "metrics-inflight"}).GetGauge().GetValue()
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, 1.0, during)
	after := findMetric(t, httpRequestsInFlight, map[string]string{"service": "metrics-inflight"})
	assert.Equal(t, 0.0, after.GetGauge().GetValue())
}

func TestStatusWriter_SharedAcrossMiddleware(t *testing.T) {
	rec := httptest.NewRecorder()
	outer := wrapWriter(rec)
	inner := wrapWriter(outer)

	inner.WriteHeader(http.StatusCreated)
	inner.WriteHeader(http.StatusInternalServerError)
	_, _ = inner.Write([]byte("hello"))

	assert.Same(t, outer, inner)
	assert.Equal(t, http.StatusCreated, outer.status)
	assert.Equal(t, 5, outer.bytes)
	assert.Equal(t, rec, outer.Unwrap())
}
