// Package metrics expone métricas Prometheus del flujo de solicitudes y de la API HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appsolicitud "github.com/jhoicas/spm-api/internal/application/solicitud"
)

var _ appsolicitud.TransitionRecorder = (*Metrics)(nil)

const namespace = "spm"

// Metrics agrupa los collectors en un registry propio.
type Metrics struct {
	registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	retries         *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	idempotencyHits prometheus.Counter
}

// New registra los collectors. withRuntime agrega métricas de proceso y del runtime de Go.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transitions_total",
			Help:      "Transiciones solicitadas por acción y resultado.",
		}, []string{"trigger", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_conflict_retries_total",
			Help:      "Reintentos por conflicto de versión.",
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Peticiones HTTP por método, ruta y código.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		idempotencyHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotency_duplicates_total",
			Help:      "Peticiones rechazadas por Idempotency-Key repetida.",
		}),
	}
	m.registry.MustRegister(m.transitions, m.retries, m.httpRequests, m.httpDuration, m.idempotencyHits)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// RecordTransition cuenta una transición por acción y resultado (ok, noop, forbidden, conflict...).
func (m *Metrics) RecordTransition(trigger, outcome string) {
	m.transitions.WithLabelValues(trigger, outcome).Inc()
}

// RecordRetry cuenta un reintento por conflicto de versión.
func (m *Metrics) RecordRetry(op string) {
	m.retries.WithLabelValues(op).Inc()
}

// ObserveHTTP registra una petición. route es el patrón de la ruta, no la URL, para acotar la cardinalidad.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordDuplicate cuenta una Idempotency-Key repetida.
func (m *Metrics) RecordDuplicate() {
	m.idempotencyHits.Inc()
}

// Handler sirve el registry en formato de exposición de Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
