// Package keel provides a failover-aware HTTP client for leader-based
// database clusters.
//
// A cluster of this kind has one node authoritative for writes (the
// leader) and any number of followers serving reads. The leader may change
// at any moment, and individual nodes may be transiently unreachable. Keel
// owns the problem of getting one logical request through anyway: it keeps
// the ordered host list, follows and remembers leader redirects, classifies
// failures as retryable, and re-issues requests with exponential backoff,
// rotating through hosts on both the redirect and the retry path.
//
// # Key Features
//
//   - Leader Discovery: 301/302 redirects are followed with the original
//     method and body, and the new leader location is remembered
//   - Bounded Failover: independent redirect and retry budgets per request
//   - Round-Robin Reads: non-leader requests rotate across hosts
//   - Method-Gated Retries: non-idempotent methods are never retried unless
//     explicitly allow-listed
//   - Raw Pass-Through: responses are returned as raw payloads or streams;
//     deserialization stays with the caller
//
// # Basic Usage
//
//	client, err := keel.NewClient("http://db1:4001,http://db2:4001,http://db3:4001")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Reads rotate across hosts.
//	resp, err := client.Query(ctx, []string{"SELECT * FROM foo"})
//
//	// Writes go to the leader; a redirect teaches the client where the
//	// leader moved.
//	resp, err = client.Execute(ctx, []string{"INSERT INTO foo(name) VALUES('fiona')"})
//
// Lower-level callers can drive the engine directly with Do and a Request.
package keel
