// Package metrics exposes prometheus collectors for the browser bridge.
//
// A nil *Collector is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcomes recorded by ObserveCall.
const (
	OutcomeSuccess      = "success"
	OutcomePeerError    = "peer_error"
	OutcomeTimeout      = "timeout"
	OutcomeNotConnected = "not_connected"
	OutcomeClosing      = "server_closing"
	OutcomeDisconnected = "peer_disconnected"
	OutcomeSendFailed   = "send_failed"
)

// Collector holds the bridge metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	callsTotal        *prometheus.CounterVec
	callDuration      *prometheus.HistogramVec
	pendingCalls      prometheus.Gauge
	peerConnected     prometheus.Gauge
	peerAttachTotal   prometheus.Counter
	malformedTotal    prometheus.Counter
	unmatchedTotal    prometheus.Counter
	connectWaitsTotal *prometheus.CounterVec
}

// New creates a Collector with all bridge metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_calls_total",
			Help: "Calls sent to the browser extension, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_call_duration_seconds",
			Help:    "Time from send to resolution of a call.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		pendingCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_pending_calls",
			Help: "Calls waiting for a reply.",
		}),
		peerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_peer_connected",
			Help: "1 while a browser extension is attached.",
		}),
		peerAttachTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_peer_attach_total",
			Help: "Browser extension connections accepted.",
		}),
		malformedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_malformed_messages_total",
			Help: "Inbound messages dropped because they were not valid replies.",
		}),
		unmatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_unmatched_replies_total",
			Help: "Replies dropped because no pending call had their id.",
		}),
		connectWaitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_connection_waits_total",
			Help: "Waits for the browser extension to attach, by result.",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		c.callsTotal,
		c.callDuration,
		c.pendingCalls,
		c.peerConnected,
		c.peerAttachTotal,
		c.malformedTotal,
		c.unmatchedTotal,
		c.connectWaitsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}

	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveCall records the outcome and latency of a resolved call.
func (c *Collector) ObserveCall(operation, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}

	c.callsTotal.WithLabelValues(operation, outcome).Inc()

	if outcome != OutcomeNotConnected {
		c.callDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}

// SetPending records the size of the pending-call table.
func (c *Collector) SetPending(n int) {
	if c == nil {
		return
	}

	c.pendingCalls.Set(float64(n))
}

// PeerAttached records a newly adopted extension connection.
func (c *Collector) PeerAttached() {
	if c == nil {
		return
	}

	c.peerAttachTotal.Inc()
	c.peerConnected.Set(1)
}

// PeerDetached records that no extension is attached.
func (c *Collector) PeerDetached() {
	if c == nil {
		return
	}

	c.peerConnected.Set(0)
}

// MalformedMessage records a dropped inbound message.
func (c *Collector) MalformedMessage() {
	if c == nil {
		return
	}

	c.malformedTotal.Inc()
}

// UnmatchedReply records a reply that matched no pending call.
func (c *Collector) UnmatchedReply() {
	if c == nil {
		return
	}

	c.unmatchedTotal.Inc()
}

// ConnectionWait records the result of a wait for the extension ("attached" or "timeout").
func (c *Collector) ConnectionWait(result string) {
	if c == nil {
		return
	}

	c.connectWaitsTotal.WithLabelValues(result).Inc()
}
