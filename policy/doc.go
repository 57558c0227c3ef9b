// Package policy provides the retry decision logic for the keel request engine.
//
// RetryPolicy is pure and stateless: it answers whether a given combination
// of HTTP method, status code and transport error is worth another attempt,
// and how long to back off before that attempt. It performs no I/O and holds
// no mutable state, so a single policy value can be shared by any number of
// concurrent requests.
//
// # Method gating
//
// A method outside the retryable-method set is never retried, regardless of
// the status or error. This protects non-idempotent methods from being
// silently replayed on ambiguous transport failures. Callers that know a
// POST endpoint is safe to replay (for example a deduplicated execute
// endpoint) opt in explicitly:
//
//	p := policy.NewRetryPolicy(
//	    policy.WithRetryableMethods("GET", "POST"),
//	)
//
// # Backoff
//
// WaitTime grows exponentially and is deliberately unbounded; bound the
// number of retries, not the wait, by capping the retry budget.
package policy
