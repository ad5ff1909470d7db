package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveCollectionDuration(150*time.Millisecond, ResultSuccess)
	pr.AddRecordsCollected(7)
	pr.AddRecordsCollected(0)
	pr.IncJobOutcome(OutcomeCompleted)
	pr.IncJobOutcome(OutcomeRetrying)
	pr.IncJobOutcome(OutcomeRetrying)
	pr.IncRetry("collect-data")
	pr.IncRetryExhausted("collect-data")
	pr.IncSyncResult(ResultFailed)
	pr.SetQueueDepth("waiting", 3)

	assert.Equal(t, 7.0, testutil.ToFloat64(pr.records))
	assert.Equal(t, 2.0, testutil.ToFloat64(pr.jobOutcomes.WithLabelValues("retrying")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.retriesExhausted.WithLabelValues("collect-data")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pr.queueDepth.WithLabelValues("waiting")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncJobOutcome(OutcomeFailed)
	pr.SetQueueDepth("active", 1)
	pr.ObserveCollectionDuration(time.Second, ResultFailed)
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncRetry("x")
	r = NewPrometheusRecorder(nil)
	r.AddRecordsCollected(1)
}

func TestResultOf(t *testing.T) {
	assert.Equal(t, ResultSuccess, ResultOf(nil))
	assert.Equal(t, ResultFailed, ResultOf(errors.New("x")))
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).AddRecordsCollected(3)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tccollector_records_collected_total 3")
}

func TestRegistryServesRuntimeAndCollectionMetrics(t *testing.T) {
	r := NewRegistry()
	r.Recorder().IncJobOutcome(OutcomeCompleted)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, `tccollector_job_outcomes_total{outcome="completed"} 1`)
}
