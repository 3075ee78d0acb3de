package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.Observe(StageFetch, ResultOK)
	m.Observe(StageFetch, ResultOK)
	m.Observe(StageSubmit, ResultError)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "swagger2dcat_stage_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			var stage, result string
			for _, l := range metric.GetLabel() {
				switch l.GetName() {
				case "stage":
					stage = l.GetValue()
				case "result":
					result = l.GetValue()
				}
			}
			counts[stage+"/"+result] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"fetch/ok": 2, "submit/error": 1}, counts)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe(StageFetch, ResultOK)
	m.ObserveRequest("/start", http.MethodGet, 200, time.Millisecond)
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe(StageParse, ResultOK)
	m.ObserveRequest("/start", http.MethodPost, 303, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `swagger2dcat_stage_total{result="ok",stage="parse"} 1`)
	assert.Contains(t, body, `swagger2dcat_http_request_duration_seconds_count{method="POST",route="/start",status="303"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
