package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findMetric returns the metric family with the given name from the registry.
func findMetric(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestNewMetrics_DefaultNamespace(t *testing.T) {
	m := NewMetrics("")
	require.NotNil(t, m)
	assert.NotNil(t, findMetric(t, m, "relay_start_time_seconds"))
}

func TestMetrics_RecordRequest(t *testing.T) {
	m := NewMetrics("test")

	m.RecordRequest(http.MethodPost, "/api/proxy", http.StatusOK, 20*time.Millisecond)
	m.RecordRequest(http.MethodPost, "/api/proxy", http.StatusOK, 30*time.Millisecond)

	mf := findMetric(t, m, "test_requests_total")
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)

	metric := mf.GetMetric()[0]
	assert.Equal(t, 2.0, metric.GetCounter().GetValue())
	assert.Equal(t, "/api/proxy", labelValue(metric, "route"))
	assert.Equal(t, "200", labelValue(metric, "status"))
}

func TestMetrics_ActiveRequests(t *testing.T) {
	m := NewMetrics("test")

	m.IncrementActiveRequests()
	m.IncrementActiveRequests()
	m.DecrementActiveRequests()

	mf := findMetric(t, m, "test_active_requests")
	require.NotNil(t, mf)
	assert.Equal(t, 1.0, mf.GetMetric()[0].GetGauge().GetValue())
}

func TestMetrics_RecordUpstream(t *testing.T) {
	m := NewMetrics("test")

	m.RecordUpstream("weather", OutcomeSuccess, 10*time.Millisecond)
	m.RecordUpstream("weather", OutcomeUnreachable, time.Second)

	mf := findMetric(t, m, "test_upstream_requests_total")
	require.NotNil(t, mf)
	assert.Len(t, mf.GetMetric(), 2)

	hist := findMetric(t, m, "test_upstream_request_duration_seconds")
	require.NotNil(t, hist)
	assert.Equal(t, uint64(2), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestMetrics_RecordUpstreamRejected(t *testing.T) {
	m := NewMetrics("test")

	m.RecordUpstream("weather", OutcomeSuccess, 200*time.Millisecond)
	m.RecordUpstreamRejected("weather")
	m.RecordUpstreamRejected("weather")

	mf := findMetric(t, m, "test_upstream_requests_total")
	require.NotNil(t, mf)
	counts := map[string]float64{}
	for _, metric := range mf.GetMetric() {
		counts[labelValue(metric, "outcome")] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, counts[OutcomeRejected])
	assert.Equal(t, 1.0, counts[OutcomeSuccess])

	hist := findMetric(t, m, "test_upstream_request_duration_seconds")
	require.NotNil(t, hist)
	assert.Equal(t, uint64(1), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestMetrics_CircuitBreakerAndBuildInfo(t *testing.T) {
	m := NewMetrics("test")

	m.SetCircuitBreakerState("weather", 2)
	m.SetBuildInfo("1.0.0", "abc", "now")

	cb := findMetric(t, m, "test_circuit_breaker_state")
	require.NotNil(t, cb)
	assert.Equal(t, 2.0, cb.GetMetric()[0].GetGauge().GetValue())

	info := findMetric(t, m, "test_build_info")
	require.NotNil(t, info)
	assert.Equal(t, "1.0.0", labelValue(info.GetMetric()[0], "version"))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("test")
	m.RecordRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_requests_total")
}
