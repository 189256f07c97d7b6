package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.ObserveAnalysis(OutcomeOK, "python", 10*time.Millisecond)
	r.ObserveAnalysis(OutcomeFailed, "", time.Millisecond)
	r.ObserveComparison(OutcomeOK)
	r.ObserveAICall("refine", "stub", time.Millisecond, true)
	r.ObserveAICall("detect", "stub", time.Millisecond, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.languages.WithLabelValues("python")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.comparisons.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.aiFallbacks.WithLabelValues("refine")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.aiFallbacks.WithLabelValues("detect")))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveAnalysis(OutcomeOK, "c", time.Second)
		r.ObserveComparison(OutcomeFailed)
		r.ObserveAICall("x", "y", time.Second, true)
	})
	assert.Nil(t, r.Registry())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	r := New()
	r.ObserveComparison(OutcomeOK)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `codeq_comparisons_total{outcome="ok"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
