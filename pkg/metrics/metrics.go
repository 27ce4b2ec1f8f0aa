// Package metrics exposes signal distribution counters to Prometheus.
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vsd"

// Collector holds the metrics of one signal context.
type Collector struct {
	registry *prometheus.Registry

	published      *prometheus.CounterVec // by kind
	received       *prometheus.CounterVec // by kind
	applied        prometheus.Counter
	rejected       *prometheus.CounterVec // by reason
	callbackErrors prometheus.Counter
	dropped        prometheus.Counter

	processDuration prometheus.Histogram

	signals       prometheus.Gauge
	subscriptions *prometheus.GaugeVec // by scope (local/remote)
	peers         prometheus.Gauge
}

// New creates a collector on its own registry. Process and Go runtime
// collectors are included when withRuntime is set.
func New(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "messages_sent_total",
			Help:      "Messages sent to peers.",
		}, []string{"kind"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "messages_received_total",
			Help:      "Messages received from peers.",
		}, []string{"kind"}),
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "updates_applied_total",
			Help:      "Inbound updates written to the signal tree.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "updates_rejected_total",
			Help:      "Inbound updates that could not be applied.",
		}, []string{"reason"}),
		callbackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "callback_errors_total",
			Help:      "Update callbacks that returned an error or panicked.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "frames_dropped_total",
			Help:      "Frames discarded because the receive queue was full.",
		}),
		processDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "batch_duration_seconds",
			Help:      "Time spent handling one batch of received frames.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		signals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "signals",
			Help:      "Signals in the loaded catalog.",
		}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "subscriptions",
			Help:      "Active subscriptions.",
		}, []string{"scope"}),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "peers",
			Help:      "Peers currently known to the processor.",
		}),
	}

	c.registry.MustRegister(
		c.published, c.received, c.applied, c.rejected, c.callbackErrors, c.dropped,
		c.processDuration, c.signals, c.subscriptions, c.peers,
	)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// MessageSent counts an outbound message of the given kind.
func (c *Collector) MessageSent(kind string) {
	if c != nil {
		c.published.WithLabelValues(kind).Inc()
	}
}

// MessageReceived counts an inbound message of the given kind.
func (c *Collector) MessageReceived(kind string) {
	if c != nil {
		c.received.WithLabelValues(kind).Inc()
	}
}

// UpdateApplied counts an inbound update written to the tree.
func (c *Collector) UpdateApplied() {
	if c != nil {
		c.applied.Inc()
	}
}

// UpdateRejected counts an inbound update that failed.
func (c *Collector) UpdateRejected(reason string) {
	if c != nil {
		c.rejected.WithLabelValues(reason).Inc()
	}
}

// CallbackFailed counts a failed update callback.
func (c *Collector) CallbackFailed() {
	if c != nil {
		c.callbackErrors.Inc()
	}
}

// FramesDropped adds n to the dropped frame count.
func (c *Collector) FramesDropped(n uint64) {
	if c != nil && n > 0 {
		c.dropped.Add(float64(n))
	}
}

// ObserveBatch records how long a processing batch took.
func (c *Collector) ObserveBatch(d time.Duration) {
	if c != nil {
		c.processDuration.Observe(d.Seconds())
	}
}

// SetSignals sets the signal count gauge.
func (c *Collector) SetSignals(n int) {
	if c != nil {
		c.signals.Set(float64(n))
	}
}

// SetSubscriptions sets the subscription gauges.
func (c *Collector) SetSubscriptions(local, remote int) {
	if c != nil {
		c.subscriptions.WithLabelValues("local").Set(float64(local))
		c.subscriptions.WithLabelValues("remote").Set(float64(remote))
	}
}

// SetPeers sets the peer gauge.
func (c *Collector) SetPeers(n int) {
	if c != nil {
		c.peers.Set(float64(n))
	}
}
