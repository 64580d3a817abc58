// Package metrics exposes Prometheus metrics for the persistence gateway, the
// HTTP surface and the draft sync streams.
package metrics

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store operation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Manager owns a registry and every collector registered on it. A nil
// *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	storeOps         *prometheus.CounterVec
	storeOpDuration  *prometheus.HistogramVec
	batchesRejected  prometheus.Counter
	teamsCreated     prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	syncWrites       *prometheus.CounterVec
	syncEditsApplied *prometheus.CounterVec
}

// NewManager creates a Manager on its own registry unless WithRegistry says
// otherwise.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "relaypace",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.storeOps = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Persistence gateway operations by operation and outcome",
	}, []string{"op", "outcome"})

	m.storeOpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Persistence gateway operation latency",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})

	m.batchesRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "finish_time_batches_rejected_total",
		Help:      "Finish time replacements rejected for referencing another team",
	})

	m.teamsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "teams_created_total",
		Help:      "Teams created with the default seed",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})

	m.syncWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "writes_total",
		Help:      "Debounced draft writes by stream and outcome",
	}, []string{"stream", "outcome"})

	m.syncEditsApplied = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "edits_total",
		Help:      "Draft edits applied by stream",
	}, []string{"stream"})
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStoreOp records one gateway call.
func (m *Manager) ObserveStoreOp(op, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(op, outcome).Inc()
	m.storeOpDuration.WithLabelValues(op).Observe(took.Seconds())
}

// RecordBatchRejected counts a finish time batch refused as a whole.
func (m *Manager) RecordBatchRejected() {
	if m == nil {
		return
	}
	m.batchesRejected.Inc()
}

// RecordTeamCreated counts a newly seeded team.
func (m *Manager) RecordTeamCreated() {
	if m == nil {
		return
	}
	m.teamsCreated.Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Manager) ObserveHTTPRequest(route, method, statusCode string, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(took.Seconds())
}

// RecordSyncWrite records the outcome of one debounced write.
func (m *Manager) RecordSyncWrite(stream, outcome string) {
	if m == nil {
		return
	}
	m.syncWrites.WithLabelValues(stream, outcome).Inc()
}

// RecordSyncEdit counts one draft edit.
func (m *Manager) RecordSyncEdit(stream string) {
	if m == nil {
		return
	}
	m.syncEditsApplied.WithLabelValues(stream).Inc()
}

// CounterValues gathers every counter whose name starts with prefix. Keys are
// the metric name followed by its label pairs, e.g.
// relaypace_sync_writes_total{outcome=ok,stream=team}.
func (m *Manager) CounterValues(prefix string) (map[string]float64, error) {
	if m == nil {
		return nil, nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			pairs := make([]string, 0, len(metric.GetLabel()))
			for _, l := range metric.GetLabel() {
				pairs = append(pairs, l.GetName()+"="+l.GetValue())
			}
			sort.Strings(pairs)
			key := mf.GetName()
			if len(pairs) > 0 {
				key += "{" + strings.Join(pairs, ",") + "}"
			}
			out[key] = metric.GetCounter().GetValue()
		}
	}
	return out, nil
}
