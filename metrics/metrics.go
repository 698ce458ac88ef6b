// Package metrics exposes the coordinator's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "semsynopsis"

// Metrics holds the coordinator collectors.
type Metrics struct {
	registry *prometheus.Registry

	FetchFailures   *prometheus.CounterVec
	MessagesIn      *prometheus.CounterVec
	MessagesOut     *prometheus.CounterVec
	DroppedMessages *prometheus.CounterVec
	Unrecognized    prometheus.Counter
	RuleFires       *prometheus.CounterVec
	Views           prometheus.Gauge
	Panels          prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		FetchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Retrievals that failed and resolved to an empty value.",
		}, []string{"kind"}),
		MessagesIn: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Messages received from views, by event.",
		}, []string{"event"}),
		MessagesOut: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages posted to views and panels, by event.",
		}, []string{"event"}),
		DroppedMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_messages_total",
			Help:      "Messages dropped because a peer's send buffer was full.",
		}, []string{"transport"}),
		Unrecognized: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unrecognized_messages_total",
			Help:      "Inbound messages with an unknown or undecodable event.",
		}),
		RuleFires: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_fires_total",
			Help:      "Reactive rule executions, by rule.",
		}, []string{"rule"}),
		Views: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "views",
			Help:      "Currently mounted text views.",
		}),
		Panels: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "panels",
			Help:      "Currently attached annotation panels.",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FetchFailed counts a failed retrieval of the given kind.
func (m *Metrics) FetchFailed(kind string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(kind).Inc()
}

// Received counts an inbound message.
func (m *Metrics) Received(event string) {
	if m == nil {
		return
	}
	m.MessagesIn.WithLabelValues(event).Inc()
}

// Sent counts an outbound message.
func (m *Metrics) Sent(event string) {
	if m == nil {
		return
	}
	m.MessagesOut.WithLabelValues(event).Inc()
}

// Dropped counts a message dropped by a transport.
func (m *Metrics) Dropped(transport string) {
	if m == nil {
		return
	}
	m.DroppedMessages.WithLabelValues(transport).Inc()
}

// UnrecognizedMessage counts an ignored inbound message.
func (m *Metrics) UnrecognizedMessage() {
	if m == nil {
		return
	}
	m.Unrecognized.Inc()
}

// RuleFired counts a reactive rule execution.
func (m *Metrics) RuleFired(rule string) {
	if m == nil {
		return
	}
	m.RuleFires.WithLabelValues(rule).Inc()
}

// SetViews records the number of mounted views.
func (m *Metrics) SetViews(n int) {
	if m == nil {
		return
	}
	m.Views.Set(float64(n))
}

// SetPanels records the number of attached panels.
func (m *Metrics) SetPanels(n int) {
	if m == nil {
		return
	}
	m.Panels.Set(float64(n))
}
