package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the relay.
type Metrics struct {
	HeadersReceived prometheus.Counter
	ParseErrors     prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Alert handling metrics.
	AlertsReceived   *prometheus.CounterVec // labels: significance
	AlertsSuppressed *prometheus.CounterVec // labels: reason={duplicate,test_disabled,location_filter}
	AlertsDelivered  *prometheus.CounterVec // labels: outcome={delivered,partial,failed}
	LocationMisses   prometheus.Counter

	// Delivery metrics.
	FragmentsSent prometheus.Counter
	SendAttempts  prometheus.Counter
	SendRetries   prometheus.Counter
	SendFailures  prometheus.Counter
	RateLimitWait prometheus.Histogram
}

// NewMetrics creates and registers all relay metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.HeadersReceived,
		m.ParseErrors,
		m.PipelineRunning,
		m.AlertsReceived,
		m.AlertsSuppressed,
		m.AlertsDelivered,
		m.LocationMisses,
		m.FragmentsSent,
		m.SendAttempts,
		m.SendRetries,
		m.SendFailures,
		m.RateLimitWait,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		HeadersReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eas_relay",
			Name:      "headers_received_total",
			Help:      "Total lines pulled from the alert source.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eas_relay",
			Name:      "parse_errors_total",
			Help:      "Total SAME headers that could not be parsed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eas_relay",
			Name:      "pipeline_running",
			Help:      "1 while the relay is monitoring for alerts, 0 otherwise.",
		}),
		AlertsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eas_relay",
			Name:      "alerts_received_total",
			Help:      "Alert starts by significance tier.",
		}, []string{"significance"}),
		AlertsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eas_relay",
			Name:      "alerts_suppressed_total",
			Help:      "Alerts dropped before delivery, by reason.",
		}, []string{"reason"}),
		AlertsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eas_relay",
			Name:      "alerts_delivered_total",
			Help:      "Alerts handed to the mesh, by outcome.",
		}, []string{"outcome"}),
		LocationMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eas_relay",
			Name:      "location_misses_total",
			Help:      "Location codes not present in the location table.",
		}),
		FragmentsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eas_relay",
			Name:      "fragments_sent_total",
			Help:      "Fragments accepted by the mesh sink.",
		}),
		SendAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eas_relay",
			Name:      "send_attempts_total",
			Help:      "Calls made to the mesh sink.",
		}),
		SendRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eas_relay",
			Name:      "send_retries_total",
			Help:      "Retries scheduled after a failed send attempt.",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eas_relay",
			Name:      "send_failures_total",
			Help:      "Fragments that failed on every attempt.",
		}),
		RateLimitWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eas_relay",
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting for the minimum send interval.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 15, 20, 30, 60},
		}),
	}
}
