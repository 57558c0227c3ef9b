// Package types provides shared types and error definitions for the keel library.
//
// This is a leaf package with zero keel imports to prevent import cycles.
// All packages in keel can safely import this package.
//
// # Errors
//
// Sentinel errors are provided for common failure scenarios:
//
//   - ErrNoHosts: No cluster hosts were configured
//   - ErrMaxRedirects: A request exhausted its leader-redirect budget
//
// Structured errors wrap the underlying cause and support errors.Is/As:
//
//   - MaxRedirectsError: Redirect budget exhausted, carries the last Location
//   - TransportError: Network-level failure against a specific host
//   - HTTPStatusError: Terminal non-2xx response from the cluster
//
// # Interfaces
//
// Logger is a minimal structured logging interface compatible with
// zap.SugaredLogger. MetricsCollector receives operational counters and
// timings from the request engine. Both have no-op defaults so callers
// never need nil checks.
package types
