package keel

import (
	"net/http"
	"time"

	"github.com/arloliu/keel/internal/logging"
	"github.com/arloliu/keel/internal/metrics"
	"github.com/arloliu/keel/policy"
	"github.com/arloliu/keel/types"
)

const (
	// DefaultMaxRedirects is the default leader-redirect budget per request.
	DefaultMaxRedirects = 10

	// DefaultTimeout is the default per-attempt timeout.
	DefaultTimeout = 30 * time.Second

	// defaultRetriesPerHost scales the default retry budget by cluster size.
	// With N hosts the engine may rotate a failing request through the whole
	// cluster a few times before giving up.
	defaultRetriesPerHost = 3
)

// ClientConfig holds configuration for a keel Client.
//
// Field-level override precedence, lowest to highest:
// built-in defaults, ClientConfig fields set via options, per-request
// fields on Request. A per-request field only overrides when explicitly
// set (see Request for the inherit sentinels).
type ClientConfig struct {
	// HTTPClient is the transport used for all attempts. Redirect following
	// is disabled on a copy of this client; the original is not mutated.
	HTTPClient *http.Client

	// RetryPolicy classifies failures and computes backoff waits.
	RetryPolicy *policy.RetryPolicy

	// Logger receives structured engine events (retries, redirects,
	// leader changes).
	Logger types.Logger

	// Metrics receives operational counters and timings.
	Metrics types.MetricsCollector

	// MaxRetries bounds transient-failure retries per request.
	// Zero means "host count x 3".
	MaxRetries int

	// MaxRedirects bounds leader redirects per request.
	MaxRedirects int

	// Timeout bounds each individual attempt. The engine imposes no
	// call-wide deadline beyond this; use the context for that.
	Timeout time.Duration

	// RoundRobin enables rotating the active host after each successful
	// non-leader request.
	RoundRobin bool

	// Username and Password, when both non-empty, are sent as HTTP basic
	// auth on every attempt.
	Username string
	Password string
}

// DefaultConfig returns a ClientConfig with sensible defaults.
//
// Defaults: shared http.DefaultClient transport, default retry policy,
// no-op logger and metrics, 10 redirects, 30s per-attempt timeout,
// round-robin enabled.
//
// Returns:
//   - *ClientConfig: Configuration with default settings
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		HTTPClient:   http.DefaultClient,
		RetryPolicy:  policy.NewRetryPolicy(),
		Logger:       logging.NewNopLogger(),
		Metrics:      metrics.NewNopMetrics(),
		MaxRedirects: DefaultMaxRedirects,
		Timeout:      DefaultTimeout,
		RoundRobin:   true,
	}
}

// Option configures a ClientConfig.
type Option func(*ClientConfig)

// WithHTTPClient sets the HTTP transport for all attempts.
//
// TLS and connection-pool tuning belong on this client; keel only
// disables its redirect following (on a copy).
//
// Parameters:
//   - hc: The HTTP client to use
//
// Returns:
//   - Option: Configuration option
func WithHTTPClient(hc *http.Client) Option {
	return func(c *ClientConfig) {
		c.HTTPClient = hc
	}
}

// WithRetryPolicy sets the retry classification policy.
//
// Parameters:
//   - p: The retry policy to use
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	client, _ := keel.NewClient(hosts,
//	    keel.WithRetryPolicy(policy.NewRetryPolicy(
//	        policy.WithRetryableMethods("GET", "POST"),
//	    )),
//	)
func WithRetryPolicy(p *policy.RetryPolicy) Option {
	return func(c *ClientConfig) {
		c.RetryPolicy = p
	}
}

// WithLogger sets the structured logger.
//
// If not set, a no-op logger is used that discards all messages.
// The logger interface is compatible with zap.SugaredLogger.
//
// Parameters:
//   - logger: The logger implementation
//
// Returns:
//   - Option: Configuration option
func WithLogger(logger types.Logger) Option {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}

// WithMetrics sets the metrics collector.
//
// If not set, a no-op collector is used that discards all metrics.
// Use contrib/metrics/vm.New() for VictoriaMetrics integration.
//
// Parameters:
//   - collector: The metrics collector implementation
//
// Returns:
//   - Option: Configuration option
func WithMetrics(collector types.MetricsCollector) Option {
	return func(c *ClientConfig) {
		c.Metrics = collector
	}
}

// WithMaxRetries sets the per-request retry budget.
//
// Parameters:
//   - n: Maximum retries; zero restores the "host count x 3" default
//
// Returns:
//   - Option: Configuration option
func WithMaxRetries(n int) Option {
	return func(c *ClientConfig) {
		c.MaxRetries = n
	}
}

// WithMaxRedirects sets the per-request leader-redirect budget.
//
// Parameters:
//   - n: Maximum redirects followed before MaxRedirectsError
//
// Returns:
//   - Option: Configuration option
func WithMaxRedirects(n int) Option {
	return func(c *ClientConfig) {
		c.MaxRedirects = n
	}
}

// WithTimeout sets the per-attempt timeout.
//
// Parameters:
//   - d: Timeout applied to each individual attempt
//
// Returns:
//   - Option: Configuration option
func WithTimeout(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.Timeout = d
	}
}

// WithRoundRobin enables or disables round-robin read distribution.
//
// Parameters:
//   - enabled: false to pin reads to one host until a failover moves them
//
// Returns:
//   - Option: Configuration option
func WithRoundRobin(enabled bool) Option {
	return func(c *ClientConfig) {
		c.RoundRobin = enabled
	}
}

// WithBasicAuth sets HTTP basic auth credentials for every attempt.
//
// Parameters:
//   - username: Basic auth user
//   - password: Basic auth password
//
// Returns:
//   - Option: Configuration option
func WithBasicAuth(username, password string) Option {
	return func(c *ClientConfig) {
		c.Username = username
		c.Password = password
	}
}
