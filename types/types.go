package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrNoHosts indicates that no cluster hosts were configured.
	// Returned at construction time; the client is unusable without hosts.
	ErrNoHosts = errors.New("keel: no hosts configured")

	// ErrMaxRedirects indicates a request followed more leader redirects
	// than its redirect budget allows.
	ErrMaxRedirects = errors.New("keel: maximum redirects exceeded")
)

// MaxRedirectsError reports an exhausted redirect budget.
//
// It wraps ErrMaxRedirects so callers can match with
// errors.Is(err, types.ErrMaxRedirects).
type MaxRedirectsError struct {
	// Location is the Location header of the redirect that exceeded the budget.
	Location string

	// Redirects is the number of redirects followed before giving up.
	Redirects int
}

// Error implements the error interface.
func (e *MaxRedirectsError) Error() string {
	return "keel: exceeded " + strconv.Itoa(e.Redirects) + " redirects, last location " + e.Location
}

// Unwrap returns ErrMaxRedirects for errors.Is compatibility.
func (e *MaxRedirectsError) Unwrap() error {
	return ErrMaxRedirects
}

// TransportError wraps a network-level failure against a specific host.
//
// The request engine classifies the Cause to decide whether the attempt
// is retryable; if not, the TransportError surfaces to the caller.
type TransportError struct {
	// Host is the host URL the attempt was dispatched to.
	Host string

	// Op describes the operation that failed, e.g. "GET /db/query".
	Op string

	// Cause is the underlying error from the transport.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return "keel: " + e.Op + " against " + e.Host + " failed: " + e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// HTTPStatusError reports a terminal non-2xx response from the cluster.
//
// The request engine only produces this error after redirect handling and
// retry classification have both declined the response.
type HTTPStatusError struct {
	// StatusCode is the HTTP status code, e.g. 400.
	StatusCode int

	// Status is the HTTP status line, e.g. "400 Bad Request".
	Status string

	// Body is the raw response body, useful for surfacing server-side
	// error messages. May be empty for streamed requests.
	Body []byte
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("keel: request failed with status %s", e.Status)
}

// Logger is a minimal structured logging interface.
//
// The variadic arguments are alternating keys and values, making the
// interface compatible with zap.SugaredLogger. Implementations MUST be
// safe for concurrent use.
type Logger interface {
	// Debug logs a message at debug level with alternating key/value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at info level with alternating key/value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at warn level with alternating key/value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at error level with alternating key/value pairs.
	Error(msg string, keysAndValues ...any)
}
