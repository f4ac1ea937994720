// Package metrics exposes Prometheus counters for scheduling, invitation and
// e-mail activity together with HTTP request instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "conference"

// Recorder owns a private registry so several instances can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry

	conflicts       *prometheus.CounterVec
	responses       *prometheus.CounterVec
	emails          *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the conference collectors plus the Go and process collectors.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_detected_total",
			Help:      "Scheduling conflicts detected, by conflicting resource.",
		}, []string{"type"}),
		responses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invitation_responses_total",
			Help:      "Faculty responses recorded, by action.",
		}, []string{"action"}),
		emails: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Session e-mails attempted, by template and outcome.",
		}, []string{"template", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (r *Recorder) ConflictsDetected(conflictType string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.conflicts.WithLabelValues(conflictType).Add(float64(count))
}

func (r *Recorder) InvitationResponded(action string) {
	if r == nil {
		return
	}
	r.responses.WithLabelValues(action).Inc()
}

func (r *Recorder) EmailDispatched(template, status string) {
	if r == nil {
		return
	}
	r.emails.WithLabelValues(template, status).Inc()
}

// ObserveRequest records the duration of one HTTP request.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and custom collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
