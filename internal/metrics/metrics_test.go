package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

func TestRegistry_Counters(t *testing.T) {
	r := New()
	r.ObserveClassification(model.RegimeHealthy, 20*time.Millisecond)
	r.ObserveClassification(model.RegimeHealthy, 30*time.Millisecond)
	r.ObserveClassification(model.RegimeBroken, time.Second)
	r.ObserveError("data_unavailable")
	r.ObserveFetch("yahoo", "ok")
	r.ObserveFetch("yahoo", "error")
	r.ObserveFetch("yahoo", "error")
	r.ObserveCache("result", true)
	r.ObserveCache("result", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Classifications.WithLabelValues("HEALTHY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Classifications.WithLabelValues("BROKEN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Errors.WithLabelValues("data_unavailable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.FetchAttempts.WithLabelValues("yahoo", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheRequests.WithLabelValues("result", "miss")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.Duration))
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.ObserveClassification(model.RegimeCorrective, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `watchdog_classifications_total{regime="CORRECTIVE"} 1`)
	assert.Contains(t, string(body), "watchdog_classification_duration_seconds_count 1")
}
