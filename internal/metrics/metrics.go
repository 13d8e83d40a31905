// Package metrics exposes goredisd's operational counters as
// Prometheus metrics, following the Collector-registration pattern
// runZeroInc's exporter package uses for its own connection metrics,
// scaled down to the gauges and counters this server needs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the metrics the dispatcher and connection handler
// feed during normal operation.
type Collector struct {
	registry           *prometheus.Registry
	ActiveConnections  prometheus.Gauge
	CommandsTotal      prometheus.Counter
	ExpiredKeysTotal   prometheus.Counter
	SnapshotSaveErrors prometheus.Counter
}

// New builds a Collector registered against its own private registry,
// so goredisd's metrics never collide with the default global registry
// another imported package might also publish to.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "goredisd",
			Name:      "active_connections",
			Help:      "Number of currently open client connections.",
		}),
		CommandsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "goredisd",
			Name:      "commands_total",
			Help:      "Total number of commands dispatched.",
		}),
		ExpiredKeysTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "goredisd",
			Name:      "expired_keys_total",
			Help:      "Total number of keys lazily removed on expiration.",
		}),
		SnapshotSaveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "goredisd",
			Name:      "snapshot_save_errors_total",
			Help:      "Total number of failed SAVE operations.",
		}),
	}
}

// Handler returns the HTTP handler that serves this Collector's
// metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
