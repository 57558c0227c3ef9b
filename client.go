package keel

import (
	"net/http"
	"strings"

	"github.com/arloliu/keel/cluster"
)

// Client is a failover-aware HTTP client for a leader-based database cluster.
//
// The client owns a HostPool of cluster addresses and dispatches every
// logical request through the failover engine in Do: leader redirects are
// followed and remembered, transient failures are retried with exponential
// backoff, and both recovery paths rotate through the cluster hosts.
//
// A Client is safe for concurrent use from multiple goroutines.
type Client struct {
	cfg  *ClientConfig
	pool *cluster.HostPool
	http *http.Client
}

// NewClient creates a Client from a comma-delimited host string.
//
// Hosts are normalized the same way as cluster.NewFromString: whitespace
// trimmed, one trailing slash stripped, empty entries dropped. Host order
// defines the round-robin sequence; the first host is the initial leader
// assumption.
//
// Parameters:
//   - hosts: Comma-delimited addresses, e.g. "http://db1:4001,http://db2:4001"
//   - opts: Optional configuration options
//
// Returns:
//   - *Client: A new client
//   - error: types.ErrNoHosts when no usable hosts remain after normalization
//
// Example:
//
//	client, err := keel.NewClient("http://db1:4001,http://db2:4001",
//	    keel.WithLogger(logger),
//	    keel.WithTimeout(5*time.Second),
//	)
func NewClient(hosts string, opts ...Option) (*Client, error) {
	return NewClientWithHosts(strings.Split(hosts, ","), opts...)
}

// NewClientWithHosts creates a Client from a pre-split ordered host list.
//
// Parameters:
//   - hosts: Ordered host addresses
//   - opts: Optional configuration options
//
// Returns:
//   - *Client: A new client
//   - error: types.ErrNoHosts when no usable hosts remain after normalization
func NewClientWithHosts(hosts []string, opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := cluster.New(hosts, cluster.WithRoundRobin(cfg.RoundRobin))
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:  cfg,
		pool: pool,
		http: noRedirectClient(cfg.HTTPClient),
	}, nil
}

// Pool returns the client's host pool.
//
// Exposed for observability and tests; mutating the cursors directly
// bypasses the engine's leader discovery.
func (c *Client) Pool() *cluster.HostPool {
	return c.pool
}

// noRedirectClient returns a shallow copy of hc with redirect following
// disabled. Redirects must be handled by the engine, not the transport: a
// leader redirect may need to repost the original body rather than being
// silently downgraded to GET.
func noRedirectClient(hc *http.Client) *http.Client {
	cp := *hc
	cp.CheckRedirect = func(_ *http.Request, _ []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &cp
}
