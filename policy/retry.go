package policy

import (
	"math"
	"strings"
	"time"
)

// Default retry classification sets. These mirror the transient failure
// modes of a leader-based cluster: nodes restarting, leader elections in
// progress, and connections dropped mid-flight.
var (
	// DefaultRetryableStatusCodes are HTTP statuses worth another attempt.
	DefaultRetryableStatusCodes = []int{502, 503, 504}

	// DefaultRetryableErrorCodes are transport error codes worth another
	// attempt. See ErrorCode for how Go errors map onto these.
	DefaultRetryableErrorCodes = []string{
		"ECONNREFUSED",
		"ECONNRESET",
		"EHOSTUNREACH",
		"ENOTFOUND",
		"EPIPE",
		"ETIMEDOUT",
	}

	// DefaultRetryableMethods are HTTP methods eligible for retry.
	// Only GET is retried by default; everything else must be opted in.
	DefaultRetryableMethods = []string{"GET"}
)

const (
	// DefaultBackoffBase is the base wait duration for the first retry.
	DefaultBackoffBase = 100 * time.Millisecond

	// DefaultBackoffExponent is the growth factor between retries.
	DefaultBackoffExponent = 2
)

// RetryPolicy decides whether a failed attempt is retryable and how long
// to wait before retrying.
//
// The zero value is not usable; construct with NewRetryPolicy. A policy is
// immutable after construction and safe for concurrent use.
type RetryPolicy struct {
	statusCodes map[int]struct{}
	errorCodes  map[string]struct{}
	methods     map[string]struct{}
	base        time.Duration
	exponent    int
}

// RetryOption configures a RetryPolicy.
type RetryOption func(*RetryPolicy)

// WithRetryableStatusCodes replaces the retryable HTTP status set.
//
// Parameters:
//   - codes: HTTP status codes that should trigger a retry
//
// Returns:
//   - RetryOption: Configuration option
func WithRetryableStatusCodes(codes ...int) RetryOption {
	return func(p *RetryPolicy) {
		p.statusCodes = make(map[int]struct{}, len(codes))
		for _, c := range codes {
			p.statusCodes[c] = struct{}{}
		}
	}
}

// WithRetryableErrorCodes replaces the retryable transport error code set.
//
// Parameters:
//   - codes: Error codes (e.g. "ECONNRESET") that should trigger a retry
//
// Returns:
//   - RetryOption: Configuration option
func WithRetryableErrorCodes(codes ...string) RetryOption {
	return func(p *RetryPolicy) {
		p.errorCodes = make(map[string]struct{}, len(codes))
		for _, c := range codes {
			p.errorCodes[strings.ToUpper(c)] = struct{}{}
		}
	}
}

// WithRetryableMethods replaces the retryable HTTP method set.
//
// Methods outside this set are never retried, regardless of status or
// error code.
//
// Parameters:
//   - methods: HTTP methods (e.g. "GET", "POST") eligible for retry
//
// Returns:
//   - RetryOption: Configuration option
func WithRetryableMethods(methods ...string) RetryOption {
	return func(p *RetryPolicy) {
		p.methods = make(map[string]struct{}, len(methods))
		for _, m := range methods {
			p.methods[strings.ToUpper(m)] = struct{}{}
		}
	}
}

// WithBackoffBase sets the base wait duration for the first retry.
//
// Parameters:
//   - base: Base duration multiplied by the exponential factor
//
// Returns:
//   - RetryOption: Configuration option
func WithBackoffBase(base time.Duration) RetryOption {
	return func(p *RetryPolicy) {
		p.base = base
	}
}

// WithBackoffExponent sets the growth factor between retries.
//
// Parameters:
//   - exponent: Exponential growth factor, e.g. 2 doubles the wait each retry
//
// Returns:
//   - RetryOption: Configuration option
func WithBackoffExponent(exponent int) RetryOption {
	return func(p *RetryPolicy) {
		p.exponent = exponent
	}
}

// NewRetryPolicy creates a RetryPolicy.
//
// Defaults: statuses {502, 503, 504}, methods {GET}, error codes
// DefaultRetryableErrorCodes, backoff base 100ms, exponent 2.
//
// Parameters:
//   - opts: Optional configuration options
//
// Returns:
//   - *RetryPolicy: A new immutable retry policy
func NewRetryPolicy(opts ...RetryOption) *RetryPolicy {
	p := &RetryPolicy{
		base:     DefaultBackoffBase,
		exponent: DefaultBackoffExponent,
	}

	WithRetryableStatusCodes(DefaultRetryableStatusCodes...)(p)
	WithRetryableErrorCodes(DefaultRetryableErrorCodes...)(p)
	WithRetryableMethods(DefaultRetryableMethods...)(p)

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// IsRetryable reports whether a failed attempt should be retried.
//
// The method gate is evaluated first: a method outside the retryable set
// short-circuits to false no matter what the status or error says. After
// that, either a retryable status code or a retryable transport error
// code qualifies the attempt.
//
// Parameters:
//   - method: The HTTP method of the attempt
//   - statusCode: The HTTP status code, or 0 when no response was received
//   - err: The transport error, or nil when a response was received
//
// Returns:
//   - bool: true if the attempt should be retried
func (p *RetryPolicy) IsRetryable(method string, statusCode int, err error) bool {
	if _, ok := p.methods[strings.ToUpper(method)]; !ok {
		return false
	}

	if _, ok := p.statusCodes[statusCode]; ok {
		return true
	}

	if err != nil {
		if _, ok := p.errorCodes[ErrorCode(err)]; ok {
			return true
		}
	}

	return false
}

// WaitTime returns the backoff duration before the given retry attempt.
//
// The first retry (retryAttempt 0) waits zero; afterwards the wait is
// exponent^retryAttempt times the base. Growth is monotonic and unbounded
// with no jitter; callers wanting a ceiling must cap the retry budget
// instead of the wait time.
//
// Parameters:
//   - retryAttempt: The zero-based retry counter for this request
//
// Returns:
//   - time.Duration: How long to wait before dispatching the retry
func (p *RetryPolicy) WaitTime(retryAttempt int) time.Duration {
	if retryAttempt <= 0 {
		return 0
	}

	return time.Duration(math.Pow(float64(p.exponent), float64(retryAttempt))) * p.base
}
