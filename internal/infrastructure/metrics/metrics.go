// Package metrics publica la telemetría de comandos en Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "custody"

// Metrics registro propio con los contadores de comandos y del ledger.
type Metrics struct {
	registry    *prometheus.Registry
	commands    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	failures    *prometheus.CounterVec
	transferred *prometheus.CounterVec
}

// New registra las métricas de proceso, de Go y las del dominio.
func New() *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: r,
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Comandos ejecutados por resultado.",
		}, []string{"command", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Duración de los comandos, reintentos incluidos.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_failures_total",
			Help:      "Comandos fallidos por tipo de error.",
		}, []string{"command", "kind"}),
		transferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_coins_transferred_total",
			Help:      "Monedas movidas en transacciones confirmadas.",
		}, []string{"reason"}),
	}
	r.MustRegister(m.commands, m.duration, m.failures, m.transferred)
	return m
}

// ObserveCommand cuenta el comando y su duración.
func (m *Metrics) ObserveCommand(command, outcome string, elapsed time.Duration) {
	m.commands.WithLabelValues(command, outcome).Inc()
	m.duration.WithLabelValues(command, outcome).Observe(elapsed.Seconds())
}

// CommandFailed cuenta un fallo por su código estable.
func (m *Metrics) CommandFailed(command, kind string) {
	m.failures.WithLabelValues(command, kind).Inc()
}

// CoinsTransferred suma monedas movidas por razón.
func (m *Metrics) CoinsTransferred(reason string, amount int64) {
	m.transferred.WithLabelValues(reason).Add(float64(amount))
}

// Registry expone el registro (tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
