// Package metrics provides internal metrics utilities for keel.
package metrics

import "github.com/arloliu/keel/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is used as the default metrics collector when no collector is
// configured, avoiding nil checks throughout the codebase.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNopMetrics creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A collector that discards all metrics
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// IncRequestTotal discards the metric.
func (m *NopMetrics) IncRequestTotal() {}

// IncRequestError discards the metric.
func (m *NopMetrics) IncRequestError() {}

// ObserveRequestDuration discards the metric.
func (m *NopMetrics) ObserveRequestDuration(_ float64) {}

// IncRetry discards the metric.
func (m *NopMetrics) IncRetry() {}

// IncRedirect discards the metric.
func (m *NopMetrics) IncRedirect() {}

// IncLeaderChange discards the metric.
func (m *NopMetrics) IncLeaderChange() {}

// SetActiveHostIndex discards the metric.
func (m *NopMetrics) SetActiveHostIndex(_ int) {}

// SetLeaderHostIndex discards the metric.
func (m *NopMetrics) SetLeaderHostIndex(_ int) {}
