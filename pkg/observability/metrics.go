package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	StorageOperationsTotal *prometheus.CounterVec
	StorageErrorsTotal     *prometheus.CounterVec

	LoginsTotal          *prometheus.CounterVec
	QuotaRejectionsTotal *prometheus.CounterVec
	SharedChatsWritten   prometheus.Counter
	SharedChatsDeleted   prometheus.Counter
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharegate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sharegate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharegate_storage_operations_total",
				Help: "Total number of object store operations",
			},
			[]string{"operation"},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharegate_storage_errors_total",
				Help: "Total number of failed object store operations",
			},
			[]string{"operation"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharegate_logins_total",
				Help: "Total number of completed login attempts",
			},
			[]string{"outcome"},
		),
		QuotaRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharegate_quota_rejections_total",
				Help: "Total number of writes rejected by quota checks",
			},
			[]string{"limit"},
		),
		SharedChatsWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sharegate_shared_chats_written_total",
				Help: "Total number of shared chats created or overwritten",
			},
		),
		SharedChatsDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sharegate_shared_chats_deleted_total",
				Help: "Total number of shared chats deleted",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StorageOperationsTotal,
		m.StorageErrorsTotal,
		m.LoginsTotal,
		m.QuotaRejectionsTotal,
		m.SharedChatsWritten,
		m.SharedChatsDeleted,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
