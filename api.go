package keel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// Read consistency levels accepted by the query endpoint.
const (
	ConsistencyNone   = "none"
	ConsistencyWeak   = "weak"
	ConsistencyStrong = "strong"
)

// WithConsistency sets the read consistency level query parameter.
//
// Parameters:
//   - level: One of ConsistencyNone, ConsistencyWeak, ConsistencyStrong
//
// Returns:
//   - RequestOption: Per-request option
func WithConsistency(level string) RequestOption {
	return WithRequestQuery("level", level)
}

// WithTransaction wraps the statements of an execute call in a single
// transaction on the server.
//
// Returns:
//   - RequestOption: Per-request option
func WithTransaction() RequestOption {
	return WithRequestQuery("transaction", "true")
}

// Query runs one or more read statements against the cluster.
//
// A single statement is sent as a GET with the statement in the query
// string; multiple statements are posted as a JSON array. Queries route to
// the round-robin active host, and a successful call advances the cursor
// so subsequent reads spread across the cluster.
//
// The response body is returned raw; deserialization is the caller's
// concern.
//
// Parameters:
//   - ctx: Context bounding the call
//   - stmts: SQL statements to run
//   - opts: Per-request options (e.g. WithConsistency)
//
// Returns:
//   - *Response: Raw query response
//   - error: Engine error after retries/redirects are exhausted
func (c *Client) Query(ctx context.Context, stmts []string, opts ...RequestOption) (*Response, error) {
	var req *Request

	if len(stmts) == 1 {
		req = NewRequest(http.MethodGet, "/db/query")
		req.Query.Set("q", stmts[0])
	} else {
		body, err := json.Marshal(stmts)
		if err != nil {
			return nil, err
		}

		req = NewRequest(http.MethodPost, "/db/query")
		req.Headers.Set("Content-Type", "application/json")
		req.Body = body
	}

	return c.call(ctx, req, opts)
}

// Execute runs one or more write statements against the cluster leader.
//
// Statements are posted as a JSON array to the leader; a redirect from a
// follower teaches the client the new leader location. POST is not retried
// unless the client's retry policy explicitly allows it.
//
// Parameters:
//   - ctx: Context bounding the call
//   - stmts: SQL statements to run
//   - opts: Per-request options (e.g. WithTransaction)
//
// Returns:
//   - *Response: Raw execute response
//   - error: Engine error after retries/redirects are exhausted
func (c *Client) Execute(ctx context.Context, stmts []string, opts ...RequestOption) (*Response, error) {
	body, err := json.Marshal(stmts)
	if err != nil {
		return nil, err
	}

	req := NewRequest(http.MethodPost, "/db/execute")
	req.Headers.Set("Content-Type", "application/json")
	req.Body = body
	req.UseLeader = true

	return c.call(ctx, req, opts)
}

// Status fetches diagnostic information from a cluster node.
//
// Parameters:
//   - ctx: Context bounding the call
//   - opts: Per-request options
//
// Returns:
//   - *Response: Raw status payload from the contacted node
//   - error: Engine error after retries/redirects are exhausted
func (c *Client) Status(ctx context.Context, opts ...RequestOption) (*Response, error) {
	return c.call(ctx, NewRequest(http.MethodGet, "/status"), opts)
}

// Backup streams a backup of the database from the leader into w.
//
// Parameters:
//   - ctx: Context bounding the call; cancelling it aborts the copy
//   - w: Destination for the backup bytes
//   - opts: Per-request options
//
// Returns:
//   - int64: Bytes written to w
//   - error: Engine error, or a copy error mid-stream
func (c *Client) Backup(ctx context.Context, w io.Writer, opts ...RequestOption) (int64, error) {
	req := NewRequest(http.MethodGet, "/db/backup")
	req.UseLeader = true
	req.Stream = true

	resp, err := c.call(ctx, req, opts)
	if err != nil {
		return 0, err
	}
	defer resp.Stream.Close()

	return io.Copy(w, resp.Stream)
}

// Load posts a previously backed-up database to the leader.
//
// The reader is buffered in memory so the payload can be reposted across
// leader redirects.
//
// Parameters:
//   - ctx: Context bounding the call
//   - r: Source of the database image
//   - opts: Per-request options
//
// Returns:
//   - *Response: Raw load response
//   - error: Engine error after retries/redirects are exhausted
func (c *Client) Load(ctx context.Context, r io.Reader, opts ...RequestOption) (*Response, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	req := NewRequest(http.MethodPost, "/db/load")
	req.Headers.Set("Content-Type", "application/octet-stream")
	req.Body = body
	req.UseLeader = true

	return c.call(ctx, req, opts)
}

// call applies per-request options, runs the engine, and performs the
// post-success round-robin advance for non-leader requests.
func (c *Client) call(ctx context.Context, req *Request, opts []RequestOption) (*Response, error) {
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.Do(ctx, req)
	if err == nil && !req.UseLeader {
		idx := c.pool.AdvanceRoundRobin()
		c.cfg.Metrics.SetActiveHostIndex(idx)
	}

	return resp, err
}
