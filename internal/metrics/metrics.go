package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application's collectors under one registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ledgerOps       *prometheus.CounterVec
	notifierResults *prometheus.CounterVec
	notifierQueue   prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billbuddy",
			Name:      "ledger_operations_total",
			Help:      "Ledger mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		notifierResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billbuddy",
			Name:      "notifier_deliveries_total",
			Help:      "Email deliveries by kind and result.",
		}, []string{"kind", "result"}),
		notifierQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "billbuddy",
			Name:      "notifier_queue_depth",
			Help:      "Emails waiting in the in-process queue.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billbuddy",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billbuddy",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ledgerOps,
		m.notifierResults,
		m.notifierQueue,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// LedgerOp records one ledger mutation; outcome is "ok" or "error".
func (m *Metrics) LedgerOp(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ledgerOps.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) NotifierResult(kind, result string) {
	if m == nil {
		return
	}
	m.notifierResults.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) NotifierQueueDepth(n int) {
	if m == nil {
		return
	}
	m.notifierQueue.Set(float64(n))
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
