// Package metrics defines the optional instrumentation hook the consumer
// accepts, and a Prometheus-backed implementation grounded on the pack's
// jordigilh-kubernaut metrics stack (github.com/prometheus/client_golang).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sink is the minimal instrumentation surface the consumer reports to. A
// nil Sink is valid and treated as a no-op by the consumer.
type Sink interface {
	Inc(name string)
	Observe(name string, seconds float64)
}

// Prometheus implements Sink over client_golang counters/histograms,
// registered under the busrpc_consumer_* namespace.
type Prometheus struct {
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheus constructs and registers the consumer's metrics with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "busrpc_consumer_deliveries_total",
		Help: "Total deliveries processed by the consumer, by outcome.",
	}, []string{"outcome"})

	handleSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "busrpc_consumer_handle_seconds",
		Help: "Time spent routing and handling one delivery.",
	}, []string{"outcome"})

	reg.MustRegister(deliveries, handleSeconds)

	return &Prometheus{
		counters:   map[string]*prometheus.CounterVec{"busrpc_consumer_deliveries_total": deliveries},
		histograms: map[string]*prometheus.HistogramVec{"busrpc_consumer_handle_seconds": handleSeconds},
	}
}

// Inc implements Sink by incrementing busrpc_consumer_deliveries_total under
// the given outcome label.
func (p *Prometheus) Inc(outcome string) {
	if c, ok := p.counters["busrpc_consumer_deliveries_total"]; ok {
		c.WithLabelValues(outcome).Inc()
	}
}

// Observe implements Sink by recording seconds in
// busrpc_consumer_handle_seconds under the given outcome label.
func (p *Prometheus) Observe(outcome string, seconds float64) {
	if h, ok := p.histograms["busrpc_consumer_handle_seconds"]; ok {
		h.WithLabelValues(outcome).Observe(seconds)
	}
}
