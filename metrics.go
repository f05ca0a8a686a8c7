package medy

import (
	"github.com/piperia-salata-create/Medy-App-sub001/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// NewPrometheusMetrics creates a MetricsCollector backed by Prometheus.
//
// Collectors are registered lazily on first use.
//
// Parameters:
//   - reg: Registerer to use (nil = prometheus.DefaultRegisterer)
//   - namespace: Metric namespace ("" = "medy")
//
// Returns:
//   - MetricsCollector: Collector suitable for WithMetrics
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}
