package keel

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/keel/types"
)

// inherit marks a per-request budget field as "use the client default".
const inherit = -1

// absoluteURLRe matches URIs that already carry a scheme. Such URIs are
// dispatched verbatim; this is how a redirect Location header, which is
// absolute, is targeted on the next attempt.
var absoluteURLRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// Request describes one logical call to the cluster.
//
// Construct with NewRequest so the budget override fields default to
// "inherit from client"; a zero-valued Request would read as "zero budget".
// A Request is single-use attempt state and must not be shared between
// concurrent Do calls.
type Request struct {
	// Method is the HTTP method for every attempt of this request.
	Method string

	// Path is the target path, or an absolute URL that bypasses host
	// resolution entirely.
	Path string

	// Headers are merged over the client's auth headers per attempt.
	Headers http.Header

	// Query values are applied to the target URL on every attempt.
	Query url.Values

	// Body is the request payload. Held as bytes so redirects and retries
	// can repost it.
	Body []byte

	// UseLeader routes the request to the known leader instead of the
	// round-robin active host.
	UseLeader bool

	// Stream returns the response body as an unread stream instead of
	// buffering it. Streamed requests are not bounded by the per-attempt
	// timeout once the response headers have arrived.
	Stream bool

	// Timeout overrides the client's per-attempt timeout when positive.
	Timeout time.Duration

	// MaxRetries overrides the client's retry budget when >= 0.
	MaxRetries int

	// MaxRedirects overrides the client's redirect budget when >= 0.
	MaxRedirects int
}

// NewRequest creates a Request with budget overrides set to inherit from
// the client configuration.
//
// Parameters:
//   - method: The HTTP method
//   - path: Target path (e.g. "/db/query") or absolute URL
//
// Returns:
//   - *Request: A new request
func NewRequest(method, path string) *Request {
	return &Request{
		Method:       method,
		Path:         path,
		Headers:      make(http.Header),
		Query:        make(url.Values),
		MaxRetries:   inherit,
		MaxRedirects: inherit,
	}
}

// RequestOption mutates a Request before dispatch.
type RequestOption func(*Request)

// WithRequestTimeout overrides the per-attempt timeout for one request.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(r *Request) {
		r.Timeout = d
	}
}

// WithRequestMaxRetries overrides the retry budget for one request.
// Zero disables retries entirely.
func WithRequestMaxRetries(n int) RequestOption {
	return func(r *Request) {
		r.MaxRetries = n
	}
}

// WithRequestMaxRedirects overrides the redirect budget for one request.
// Zero fails the request on the first redirect.
func WithRequestMaxRedirects(n int) RequestOption {
	return func(r *Request) {
		r.MaxRedirects = n
	}
}

// WithRequestHeader adds a header to one request.
func WithRequestHeader(key, value string) RequestOption {
	return func(r *Request) {
		r.Headers.Add(key, value)
	}
}

// WithRequestQuery sets a query parameter on one request.
func WithRequestQuery(key, value string) RequestOption {
	return func(r *Request) {
		r.Query.Set(key, value)
	}
}

// WithLeader overrides leader routing for one request.
func WithLeader(useLeader bool) RequestOption {
	return func(r *Request) {
		r.UseLeader = useLeader
	}
}

// Response is the terminal outcome of a successful logical request.
type Response struct {
	// StatusCode is the HTTP status code of the final attempt.
	StatusCode int

	// Header holds the response headers of the final attempt.
	Header http.Header

	// Body is the buffered response payload. Nil for streamed requests.
	Body []byte

	// Stream is the unread response body for streamed requests.
	// The caller owns closing it. Nil for buffered requests.
	Stream io.ReadCloser
}

// attemptState is the mutable record threaded through the failover loop.
//
// The loop is an explicit rendering of a bounded recursion: every redirect
// or retry mutates this state and loops back to host resolution, and the
// two counters exhaust independently.
type attemptState struct {
	attempt         int
	retryAttempt    int
	redirectAttempt int

	// hostIndex pins the next attempt to a specific host, bypassing the
	// pool cursors for exactly one attempt. Advanced modulo the host count
	// between attempts so a failing host is not retried against itself.
	// inherit (-1) means "resolve from the pool".
	hostIndex int

	// uri, when non-empty, replaces the request path for the next attempt.
	// Carries the absolute Location of a followed redirect.
	uri string
}

// Do executes one logical request against the cluster.
//
// The engine resolves a host, dispatches a single HTTP call with transport
// redirects disabled, and inspects the outcome. Leader redirects (301/302)
// are followed up to the redirect budget, learning the new leader when the
// Location matches a pool host. Retryable failures are re-issued after an
// exponential backoff up to the retry budget, rotating to the next host.
// Redirect and retry handling are mutually exclusive per attempt, and
// their budgets exhaust independently.
//
// Intermediate failures are invisible to the caller: only budget
// exhaustion or a non-retryable failure surfaces.
//
// Do does not advance the round-robin cursor; the endpoint wrappers own
// that post-success side effect.
//
// Parameters:
//   - ctx: Context bounding the whole call, including backoff waits
//   - req: The request to execute; not reusable across calls
//
// Returns:
//   - *Response: The terminal response on success
//   - error: types.MaxRedirectsError, types.TransportError,
//     types.HTTPStatusError, or a context error
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	c.cfg.Metrics.IncRequestTotal()

	resp, err := c.do(ctx, req)

	c.cfg.Metrics.ObserveRequestDuration(time.Since(start).Seconds())
	if err != nil {
		c.cfg.Metrics.IncRequestError()
	}

	return resp, err
}

func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	maxRetries := req.MaxRetries
	if maxRetries < 0 {
		maxRetries = c.cfg.MaxRetries
		if maxRetries <= 0 {
			maxRetries = c.pool.Len() * defaultRetriesPerHost
		}
	}

	maxRedirects := req.MaxRedirects
	if maxRedirects < 0 {
		maxRedirects = c.cfg.MaxRedirects
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}

	requestID := uuid.NewString()
	st := attemptState{hostIndex: inherit}

	for {
		host, hostIdx := c.resolveHost(req, &st)
		target, err := c.buildTarget(req, &st, host)
		if err != nil {
			return nil, err
		}

		out := c.dispatch(ctx, req, target, timeout)

		// The rotation target is computed for every failure kind, so both
		// redirect-following and retry-following move off the failing host.
		nextIdx := c.pool.NextIndex(hostIdx)

		switch {
		case out.err == nil && isRedirect(out.status):
			if st.redirectAttempt >= maxRedirects {
				c.cfg.Logger.Warn("redirect budget exhausted",
					"request_id", requestID,
					"redirects", st.redirectAttempt,
					"location", out.location,
				)
				return nil, &types.MaxRedirectsError{
					Location:  out.location,
					Redirects: st.redirectAttempt,
				}
			}

			if req.UseLeader {
				if idx, ok := c.pool.FindHostIndex(out.location); ok {
					c.pool.SetLeaderIndex(idx)
					c.cfg.Metrics.IncLeaderChange()
					c.cfg.Metrics.SetLeaderHostIndex(idx)
					c.cfg.Logger.Info("learned new leader from redirect",
						"request_id", requestID,
						"leader_index", idx,
						"location", out.location,
					)
				}
			}

			c.cfg.Metrics.IncRedirect()
			c.cfg.Logger.Debug("following redirect",
				"request_id", requestID,
				"attempt", st.attempt,
				"status", out.status,
				"location", out.location,
			)

			st.attempt++
			st.redirectAttempt++
			st.hostIndex = nextIdx
			st.uri = out.location

		case out.err == nil && out.resp != nil:
			return out.resp, nil

		default:
			// Failed attempt: transport error or terminal status.
			if c.cfg.RetryPolicy.IsRetryable(req.Method, out.status, out.cause) && st.retryAttempt < maxRetries {
				wait := c.cfg.RetryPolicy.WaitTime(st.retryAttempt)

				c.cfg.Metrics.IncRetry()
				c.cfg.Logger.Debug("retrying after failure",
					"request_id", requestID,
					"attempt", st.attempt,
					"retry_attempt", st.retryAttempt,
					"wait", wait,
					"host", host.String(),
					"error", out.err,
				)

				if err := sleepContext(ctx, wait); err != nil {
					return nil, err
				}

				st.attempt++
				st.retryAttempt++
				st.hostIndex = nextIdx

				continue
			}

			c.cfg.Logger.Error("request failed",
				"request_id", requestID,
				"attempt", st.attempt,
				"retry_attempt", st.retryAttempt,
				"host", host.String(),
				"error", out.err,
			)

			return nil, out.err
		}
	}
}

// resolveHost picks the host for this attempt. A pinned attempt index wins
// for exactly one attempt; otherwise the pool cursors decide.
func (c *Client) resolveHost(req *Request, st *attemptState) (*url.URL, int) {
	if st.hostIndex >= 0 {
		return c.pool.Host(st.hostIndex), st.hostIndex
	}

	return c.pool.Resolve(req.UseLeader)
}

// buildTarget assembles the absolute URL for this attempt and applies the
// request's query values.
func (c *Client) buildTarget(req *Request, st *attemptState, host *url.URL) (string, error) {
	uri := req.Path
	if st.uri != "" {
		uri = st.uri
	}

	if !absoluteURLRe.MatchString(uri) {
		uri = strings.TrimSuffix(host.String(), "/") + "/" + strings.TrimPrefix(uri, "/")
	}

	if len(req.Query) == 0 {
		return uri, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for key, values := range req.Query {
		q[key] = values
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// outcome is the result of a single dispatched attempt.
type outcome struct {
	// resp is non-nil for a 2xx response.
	resp *Response

	// status is the HTTP status code when a response was received, 0 on a
	// transport-level failure.
	status int

	// location is the Location header of a redirect response.
	location string

	// err is the failure to surface if this attempt turns out to be
	// terminal. cause is the unwrapped transport error used for retry
	// classification; nil when a response was received.
	err   error
	cause error
}

// dispatch performs exactly one HTTP attempt.
func (c *Client) dispatch(ctx context.Context, req *Request, target string, timeout time.Duration) outcome {
	op := req.Method + " " + req.Path

	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	// A streamed response outlives the attempt, so it cannot be bounded by
	// the per-attempt timeout without killing the caller's read.
	if timeout > 0 && !req.Stream {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, target, body)
	if err != nil {
		cancel()
		return outcome{err: err}
	}

	for key, values := range req.Headers {
		httpReq.Header[key] = values
	}
	if c.cfg.Username != "" && c.cfg.Password != "" {
		httpReq.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		cancel()
		return outcome{
			err:   &types.TransportError{Host: target, Op: op, Cause: err},
			cause: err,
		}
	}

	if isRedirect(httpResp.StatusCode) {
		location := httpResp.Header.Get("Location")
		drain(httpResp.Body)
		cancel()

		return outcome{status: httpResp.StatusCode, location: location}
	}

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		if req.Stream {
			cancel()
			return outcome{
				status: httpResp.StatusCode,
				resp: &Response{
					StatusCode: httpResp.StatusCode,
					Header:     httpResp.Header,
					Stream:     httpResp.Body,
				},
			}
		}

		payload, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		cancel()
		if err != nil {
			return outcome{
				err:   &types.TransportError{Host: target, Op: op, Cause: err},
				cause: err,
			}
		}

		return outcome{
			status: httpResp.StatusCode,
			resp: &Response{
				StatusCode: httpResp.StatusCode,
				Header:     httpResp.Header,
				Body:       payload,
			},
		}
	}

	// Terminal-looking status. Capture a bounded slice of the body so the
	// server's error message survives into the error.
	payload, _ := io.ReadAll(io.LimitReader(httpResp.Body, 8<<10))
	drain(httpResp.Body)
	cancel()

	return outcome{
		status: httpResp.StatusCode,
		err: &types.HTTPStatusError{
			StatusCode: httpResp.StatusCode,
			Status:     httpResp.Status,
			Body:       payload,
		},
	}
}

// isRedirect reports whether the status is a leader redirect.
func isRedirect(status int) bool {
	return status == http.StatusMovedPermanently || status == http.StatusFound
}

// sleepContext waits out a backoff duration, aborting early when the
// caller's context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// drain consumes any remaining body bytes so the transport can reuse the
// connection.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 32<<10))
	body.Close()
}
