package keel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuerySingleStatementUsesGet(t *testing.T) {
	var gotMethod, gotQuery, gotLevel atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod.Store(r.Method)
		gotQuery.Store(r.URL.Query().Get("q"))
		gotLevel.Store(r.URL.Query().Get("level"))
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL})

	resp, err := client.Query(context.Background(),
		[]string{"SELECT * FROM foo"},
		WithConsistency(ConsistencyStrong),
	)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, http.MethodGet, gotMethod.Load())
	require.Equal(t, "SELECT * FROM foo", gotQuery.Load())
	require.Equal(t, "strong", gotLevel.Load())
}

func TestQueryMultipleStatementsUsesPost(t *testing.T) {
	var gotMethod atomic.Value
	var gotStmts []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod.Store(r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotStmts))
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL})

	stmts := []string{"SELECT * FROM foo", "SELECT * FROM bar"}
	_, err := client.Query(context.Background(), stmts)
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod.Load())
	require.Equal(t, stmts, gotStmts)
}

func TestQueryAdvancesRoundRobin(t *testing.T) {
	var firstCalls, secondCalls atomic.Int32

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		firstCalls.Add(1)
		_, _ = w.Write([]byte("{}"))
	}))
	defer first.Close()

	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		secondCalls.Add(1)
		_, _ = w.Write([]byte("{}"))
	}))
	defer second.Close()

	client := newTestClient(t, []string{first.URL, second.URL})

	for i := 0; i < 2; i++ {
		_, err := client.Query(context.Background(), []string{"SELECT 1"})
		require.NoError(t, err)
	}

	require.Equal(t, int32(1), firstCalls.Load())
	require.Equal(t, int32(1), secondCalls.Load())
}

func TestExecutePostsToLeader(t *testing.T) {
	var gotPath, gotContentType atomic.Value
	var gotStmts []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		gotContentType.Store(r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotStmts))
		_, _ = w.Write([]byte(`{"results":[{"last_insert_id":1}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL})

	stmts := []string{"INSERT INTO foo(name) VALUES('fiona')"}
	resp, err := client.Execute(context.Background(), stmts, WithTransaction())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/db/execute", gotPath.Load())
	require.Equal(t, "application/json", gotContentType.Load())
	require.Equal(t, stmts, gotStmts)

	// Leader requests must not advance the round-robin cursor.
	require.Equal(t, 0, client.Pool().ActiveIndex())
}

func TestStatusHitsStatusEndpoint(t *testing.T) {
	var gotPath atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		_, _ = w.Write([]byte(`{"store":{}}`))
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL})

	resp, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, `{"store":{}}`, string(resp.Body))
	require.Equal(t, "/status", gotPath.Load())
}

func TestBackupStreamsToWriter(t *testing.T) {
	payload := bytes.Repeat([]byte("sqlite"), 1024)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/db/backup", r.URL.Path)
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL})

	var buf bytes.Buffer
	n, err := client.Backup(context.Background(), &buf)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), n)
	require.Equal(t, payload, buf.Bytes())
}

func TestLoadPostsBackupImage(t *testing.T) {
	image := []byte("PRAGMA foreign_keys=OFF; BEGIN TRANSACTION; COMMIT;")

	var gotBody atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/db/load", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		payload, _ := io.ReadAll(r.Body)
		gotBody.Store(string(payload))
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL})

	_, err := client.Load(context.Background(), bytes.NewReader(image))
	require.NoError(t, err)
	require.Equal(t, string(image), gotBody.Load())
}

func TestBasicAuthHeaderApplied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "mary", user)
		require.Equal(t, "secret2", pass)
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := newTestClient(t, []string{server.URL}, WithBasicAuth("mary", "secret2"))

	_, err := client.Status(context.Background())
	require.NoError(t, err)
}
