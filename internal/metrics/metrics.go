// Package metrics exposes prometheus collectors for storage operations.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rossigee/todostore/internal/storage"
)

// Collector records storage operation counts and latencies. It satisfies
// storage.Recorder.
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	backups    *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todostore",
			Name:      "storage_operations_total",
			Help:      "Storage operations by operation and result.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "todostore",
			Name:      "storage_operation_duration_seconds",
			Help:      "Storage operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todostore",
			Name:      "backups_total",
			Help:      "Backup uploads by result.",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		c.operations,
		c.duration,
		c.backups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveOperation implements storage.Recorder
func (c *Collector) ObserveOperation(op string, duration time.Duration, err error) {
	c.operations.WithLabelValues(op, resultLabel(err)).Inc()
	c.duration.WithLabelValues(op).Observe(duration.Seconds())
}

// ObserveBackup counts a backup attempt
func (c *Collector) ObserveBackup(err error) {
	if err != nil {
		c.backups.WithLabelValues("error").Inc()
		return
	}
	c.backups.WithLabelValues("ok").Inc()
}

// Handler serves the collector's registry in the prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func resultLabel(err error) string {
	var (
		connErr  *storage.ConnectionError
		readErr  *storage.ReadError
		writeErr *storage.WriteError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &connErr):
		return "connection_error"
	case errors.As(err, &readErr):
		return "read_error"
	case errors.As(err, &writeErr):
		return "write_error"
	default:
		return "error"
	}
}
