package keel

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/keel/policy"
	"github.com/arloliu/keel/types"
)

func newTestClient(t *testing.T, hosts []string, opts ...Option) *Client {
	t.Helper()

	client, err := NewClientWithHosts(hosts, opts...)
	require.NoError(t, err)

	return client
}

func TestDoReturnsResponseUnchanged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL})

	resp, err := client.Do(context.Background(), NewRequest(http.MethodGet, "/db/query"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []byte(`{"results":[]}`), resp.Body)
}

func TestDoFollowsLeaderRedirect(t *testing.T) {
	var leaderCalls atomic.Int32
	var gotMethod, gotBody atomic.Value

	leader := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		leaderCalls.Add(1)
		gotMethod.Store(r.Method)

		payload, _ := io.ReadAll(r.Body)
		gotBody.Store(string(payload))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer leader.Close()

	follower := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", leader.URL+"/db/execute")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer follower.Close()

	middle := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer middle.Close()

	// Host order makes the follower the assumed leader (index 0); the real
	// leader sits at index 2.
	client := newTestClient(t, []string{follower.URL, middle.URL, leader.URL})

	req := NewRequest(http.MethodPost, "/db/execute")
	req.Body = []byte(`["INSERT INTO foo(name) VALUES('fiona')"]`)
	req.UseLeader = true

	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []byte("ok"), resp.Body)

	// The redirect taught the pool the real leader.
	require.Equal(t, 2, client.Pool().LeaderIndex())
	require.Equal(t, int32(1), leaderCalls.Load())

	// The redirect reposted the original method and body instead of
	// downgrading to GET.
	require.Equal(t, http.MethodPost, gotMethod.Load())
	require.Equal(t, `["INSERT INTO foo(name) VALUES('fiona')"]`, gotBody.Load())

	// The learned leader serves the next leader request directly,
	// without another redirect.
	next := NewRequest(http.MethodPost, "/db/execute")
	next.UseLeader = true

	resp, err = client.Do(context.Background(), next)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(2), leaderCalls.Load())
}

func TestDoRetriesTransportFailureOnce(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Kill the connection mid-request so the client sees a reset.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL})

	resp, err := client.Do(context.Background(), NewRequest(http.MethodGet, "/db/query"))
	require.NoError(t, err)
	require.Equal(t, []byte("recovered"), resp.Body)
	require.Equal(t, int32(2), calls.Load())
}

func TestDoMaxRedirectsZeroFailsImmediately(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Location", "http://elsewhere:4001/db/query")
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL})

	req := NewRequest(http.MethodGet, "/db/query")
	req.MaxRedirects = 0

	_, err := client.Do(context.Background(), req)
	require.ErrorIs(t, err, types.ErrMaxRedirects)
	require.Equal(t, int32(1), calls.Load())

	var redirectErr *types.MaxRedirectsError
	require.ErrorAs(t, err, &redirectErr)
	require.Equal(t, "http://elsewhere:4001/db/query", redirectErr.Location)
}

func TestDoDoesNotRetryUnlistedMethod(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL})

	_, err := client.Do(context.Background(), NewRequest(http.MethodPost, "/db/execute"))

	var statusErr *types.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	require.Equal(t, int32(1), calls.Load())
}

func TestDoRetriesAllowListedPost(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL},
		WithRetryPolicy(policy.NewRetryPolicy(
			policy.WithRetryableMethods(http.MethodGet, http.MethodPost),
			policy.WithBackoffBase(time.Millisecond),
		)),
	)

	resp, err := client.Do(context.Background(), NewRequest(http.MethodPost, "/db/execute"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(2), calls.Load())
}

func TestDoExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL},
		WithRetryPolicy(policy.NewRetryPolicy(policy.WithBackoffBase(time.Millisecond))),
	)

	req := NewRequest(http.MethodGet, "/db/query")
	req.MaxRetries = 2

	_, err := client.Do(context.Background(), req)

	var statusErr *types.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)

	// Initial attempt plus two retries.
	require.Equal(t, int32(3), calls.Load())
}

func TestDoRotatesHostsBetweenRetries(t *testing.T) {
	var badCalls, goodCalls atomic.Int32

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		badCalls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		goodCalls.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("from good host"))
	}))
	defer good.Close()

	client := newTestClient(t, []string{bad.URL, good.URL},
		WithRetryPolicy(policy.NewRetryPolicy(policy.WithBackoffBase(time.Millisecond))),
	)

	resp, err := client.Do(context.Background(), NewRequest(http.MethodGet, "/db/query"))
	require.NoError(t, err)
	require.Equal(t, []byte("from good host"), resp.Body)
	require.Equal(t, int32(1), badCalls.Load())
	require.Equal(t, int32(1), goodCalls.Load())
}

func TestDoAbsoluteURLBypassesHostResolution(t *testing.T) {
	inPool := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer inPool.Close()

	outside := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("outside"))
	}))
	defer outside.Close()

	client := newTestClient(t, []string{inPool.URL})

	resp, err := client.Do(context.Background(), NewRequest(http.MethodGet, outside.URL+"/status"))
	require.NoError(t, err)
	require.Equal(t, []byte("outside"), resp.Body)
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL},
		WithRetryPolicy(policy.NewRetryPolicy(policy.WithBackoffBase(time.Minute))),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Do(ctx, NewRequest(http.MethodGet, "/db/query"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoSurfacesTransportErrorWhenExhausted(t *testing.T) {
	// A host nobody listens on; connection refused on every attempt.
	client := newTestClient(t, []string{"http://127.0.0.1:1"},
		WithRetryPolicy(policy.NewRetryPolicy(policy.WithBackoffBase(time.Millisecond))),
	)

	req := NewRequest(http.MethodGet, "/db/query")
	req.MaxRetries = 1

	_, err := client.Do(context.Background(), req)

	var transportErr *types.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, "GET /db/query", transportErr.Op)
}

func TestNewClientRejectsEmptyHosts(t *testing.T) {
	_, err := NewClient(" , ")
	require.ErrorIs(t, err, types.ErrNoHosts)
}

func TestSleepContextZeroWait(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, sleepContext(ctx, 0))
}

func TestBuildTargetJoinsPathVariants(t *testing.T) {
	client := newTestClient(t, []string{"http://db1:4001"})

	st := attemptState{hostIndex: inherit}
	host, _ := client.pool.Resolve(false)

	req := NewRequest(http.MethodGet, "/db/query")
	target, err := client.buildTarget(req, &st, host)
	require.NoError(t, err)
	require.Equal(t, "http://db1:4001/db/query", target)

	req = NewRequest(http.MethodGet, "db/query")
	target, err = client.buildTarget(req, &st, host)
	require.NoError(t, err)
	require.Equal(t, "http://db1:4001/db/query", target)

	req = NewRequest(http.MethodGet, "/db/query")
	req.Query.Set("q", "SELECT 1")
	target, err = client.buildTarget(req, &st, host)
	require.NoError(t, err)
	require.Equal(t, "http://db1:4001/db/query?q=SELECT+1", target)

	// A redirect Location overrides the request path verbatim.
	st.uri = "http://db2:4001/db/query"
	req = NewRequest(http.MethodGet, "/db/query")
	target, err = client.buildTarget(req, &st, host)
	require.NoError(t, err)
	require.Equal(t, "http://db2:4001/db/query", target)
}
