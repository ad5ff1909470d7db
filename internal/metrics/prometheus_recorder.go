package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "tccollector"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	collectionDuration *prom.HistogramVec
	records            prom.Counter
	jobOutcomes        *prom.CounterVec
	retries            *prom.CounterVec
	retriesExhausted   *prom.CounterVec
	syncResults        *prom.CounterVec
	queueDepth         *prom.GaugeVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		collectionDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_duration_seconds",
			Help:      "Duration of collection runs",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		records: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "records_collected_total",
			Help:      "Test case records collected and pushed",
		}),
		jobOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "job_outcomes_total",
			Help:      "Queue job lifecycle outcomes",
		}, []string{"outcome"}),
		retries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "job_retries_total",
			Help:      "Job attempts rescheduled after a retryable failure",
		}, []string{"job"}),
		retriesExhausted: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "job_retry_exhausted_total",
			Help:      "Jobs that failed after their last attempt",
		}, []string{"job"}),
		syncResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sync_results_total",
			Help:      "Pushes to the ingestion boundary by result",
		}, []string{"result"}),
		queueDepth: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_jobs",
			Help:      "Jobs currently held by the queue per state",
		}, []string{"state"}),
	}
	reg.MustRegister(pr.collectionDuration, pr.records, pr.jobOutcomes, pr.retries, pr.retriesExhausted, pr.syncResults, pr.queueDepth)
	return pr
}

func (p *PrometheusRecorder) ObserveCollectionDuration(d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.collectionDuration.WithLabelValues(string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddRecordsCollected(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.records.Add(float64(n))
}

func (p *PrometheusRecorder) IncJobOutcome(outcome JobOutcome) {
	if p == nil {
		return
	}
	p.jobOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncRetry(jobName string) {
	if p == nil {
		return
	}
	p.retries.WithLabelValues(jobName).Inc()
}

func (p *PrometheusRecorder) IncRetryExhausted(jobName string) {
	if p == nil {
		return
	}
	p.retriesExhausted.WithLabelValues(jobName).Inc()
}

func (p *PrometheusRecorder) IncSyncResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.syncResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetQueueDepth(state string, n int) {
	if p == nil {
		return
	}
	p.queueDepth.WithLabelValues(state).Set(float64(n))
}
