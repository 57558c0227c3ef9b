package vm

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/arloliu/keel/types"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "keel"
//
// Parameters:
//   - prefix: The prefix to use for all metric names
//
// Returns:
//   - Option: A configuration option
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector registers metrics with this set instead of
// creating a new one. The caller is responsible for exposing this set
// (e.g. via metrics.WritePrometheus or a custom handler).
//
// Parameters:
//   - set: The metrics set to use
//
// Returns:
//   - Option: A configuration option
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// Collector implements types.MetricsCollector using VictoriaMetrics.
//
// Thread-safe for concurrent use.
type Collector struct {
	set    *metrics.Set
	prefix string

	requestsTotal   *metrics.Counter
	requestErrors   *metrics.Counter
	requestDuration *metrics.Histogram
	retriesTotal    *metrics.Counter
	redirectsTotal  *metrics.Counter
	leaderChanges   *metrics.Counter

	activeHostIndex atomic.Int64
	leaderHostIndex atomic.Int64
}

// Compile-time assertion that Collector implements types.MetricsCollector.
var _ types.MetricsCollector = (*Collector)(nil)

// New creates a new VictoriaMetrics-based metrics collector.
//
// When no set is provided, the collector creates its own metrics.Set and
// registers it globally. All metrics are pre-created at initialization.
//
// Parameters:
//   - opts: Configuration options (e.g. WithPrefix)
//
// Returns:
//   - *Collector: A new metrics collector ready for use
//
// Example:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//	client, _ := keel.NewClient(hosts, keel.WithMetrics(collector))
func New(opts ...Option) *Collector {
	c := &Collector{
		prefix: "keel",
	}

	for _, opt := range opts {
		opt(c)
	}

	// If no set is provided, create a new one and register it globally.
	// If a set is provided, we assume the caller manages it.
	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	c.initMetrics()

	return c
}

// initMetrics pre-creates all metrics with the configured prefix.
func (c *Collector) initMetrics() {
	p := c.prefix

	c.requestsTotal = c.set.NewCounter(fmt.Sprintf("%s_requests_total", p))
	c.requestErrors = c.set.NewCounter(fmt.Sprintf("%s_request_errors_total", p))
	c.requestDuration = c.set.NewHistogram(fmt.Sprintf("%s_request_duration_seconds", p))
	c.retriesTotal = c.set.NewCounter(fmt.Sprintf("%s_retries_total", p))
	c.redirectsTotal = c.set.NewCounter(fmt.Sprintf("%s_redirects_total", p))
	c.leaderChanges = c.set.NewCounter(fmt.Sprintf("%s_leader_changes_total", p))

	c.set.NewGauge(fmt.Sprintf("%s_active_host_index", p), func() float64 {
		return float64(c.activeHostIndex.Load())
	})
	c.set.NewGauge(fmt.Sprintf("%s_leader_host_index", p), func() float64 {
		return float64(c.leaderHostIndex.Load())
	})
}

// Set returns the underlying metrics set.
func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
//
// Example:
//
//	http.HandleFunc("/metrics", collector.Handler)
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to the given writer.
//
// Parameters:
//   - w: The writer to write metrics to
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// IncRequestTotal increments the logical request counter.
func (c *Collector) IncRequestTotal() {
	c.requestsTotal.Inc()
}

// IncRequestError increments the failed request counter.
func (c *Collector) IncRequestError() {
	c.requestErrors.Inc()
}

// ObserveRequestDuration records a logical request duration in seconds.
func (c *Collector) ObserveRequestDuration(seconds float64) {
	c.requestDuration.Update(seconds)
}

// IncRetry increments the retry counter.
func (c *Collector) IncRetry() {
	c.retriesTotal.Inc()
}

// IncRedirect increments the redirect counter.
func (c *Collector) IncRedirect() {
	c.redirectsTotal.Inc()
}

// IncLeaderChange increments the leader change counter.
func (c *Collector) IncLeaderChange() {
	c.leaderChanges.Inc()
}

// SetActiveHostIndex sets the round-robin cursor gauge.
func (c *Collector) SetActiveHostIndex(index int) {
	c.activeHostIndex.Store(int64(index))
}

// SetLeaderHostIndex sets the known-leader cursor gauge.
func (c *Collector) SetLeaderHostIndex(index int) {
	c.leaderHostIndex.Store(int64(index))
}
