package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, path, and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scramble_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})

	// EnhanceDuration tracks provider latency per provider.
	EnhanceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scramble_enhance_duration_seconds",
		Help:    "Time spent waiting on the provider for an enhancement.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"provider"})

	// EnhanceFailures counts failed enhancements by error kind.
	EnhanceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scramble_enhance_failures_total",
		Help: "Enhancements that ended in an error, by error kind.",
	}, []string{"provider", "kind"})

	// InputChars tracks the distribution of input text lengths.
	InputChars = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scramble_input_chars",
		Help:    "Number of characters in enhancement input text.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	// QueueDepth is the number of requests waiting for admission.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scramble_queue_depth",
		Help: "Requests waiting in the rate-limited queue.",
	})

	// QueueWait tracks time from enqueue to admission.
	QueueWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scramble_queue_wait_seconds",
		Help:    "Time a request spent queued before admission.",
		Buckets: []float64{0, 1, 3, 6, 15, 30, 60, 120},
	})

	// ProviderAvailable tracks whether each provider passed its last check.
	ProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scramble_provider_available",
		Help: "Whether a provider is available (1) or not (0).",
	}, []string{"provider"})
)
