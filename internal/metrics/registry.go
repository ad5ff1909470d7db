package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles a private Prometheus registry with the collection
// recorder registered on it.
type Registry struct {
	reg      *prom.Registry
	recorder *PrometheusRecorder
}

// NewRegistry creates a registry carrying Go runtime, process and
// collection metrics.
func NewRegistry() *Registry {
	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Registry{reg: reg, recorder: NewPrometheusRecorder(reg)}
}

// Recorder returns the collection recorder bound to the registry.
func (r *Registry) Recorder() Recorder { return r.recorder }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler { return HTTPHandler(r.reg) }

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
