package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matiasleandrokruk/smartdraw/internal/infra/llm"
)

const namespace = "smartdraw"

// Collector holds all Prometheus metrics for the application. Each Collector
// owns its registry, so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	StreamFragments *prometheus.CounterVec
	FramesSkipped   *prometheus.CounterVec

	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	RepairOutcomes     *prometheus.CounterVec
}

// NewCollector creates and registers every metric, plus the Go runtime and
// process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		StreamFragments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_stream_fragments_total",
			Help:      "Text fragments decoded from provider streams",
		}, []string{"provider"}),
		FramesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_stream_frames_skipped_total",
			Help:      "Malformed provider stream frames that were skipped",
		}, []string{"provider"}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Finished generations by kind and outcome",
		}, []string{"kind", "outcome"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall time of a generation, including the provider stream",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"kind"}),
		RepairOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "json_repair_total",
			Help:      "Structured output parse attempts by outcome",
		}, []string{"outcome"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.StreamFragments, c.FramesSkipped,
		c.Generations, c.GenerationDuration, c.RepairOutcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// FragmentDecoded implements llm.StreamMetrics.
func (c *Collector) FragmentDecoded(kind llm.ProviderKind) {
	c.StreamFragments.WithLabelValues(string(kind)).Inc()
}

// FrameSkipped implements llm.StreamMetrics.
func (c *Collector) FrameSkipped(kind llm.ProviderKind) {
	c.FramesSkipped.WithLabelValues(string(kind)).Inc()
}

// GenerationFinished records the outcome of one generation.
func (c *Collector) GenerationFinished(kind, outcome string, d time.Duration) {
	c.Generations.WithLabelValues(kind, outcome).Inc()
	c.GenerationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RepairAttempted records the outcome of parsing model output.
func (c *Collector) RepairAttempted(outcome string) {
	c.RepairOutcomes.WithLabelValues(outcome).Inc()
}

var _ llm.StreamMetrics = (*Collector)(nil)
