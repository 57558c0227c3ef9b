// Package cluster owns the ordered list of database cluster hosts and the
// two mutable cursors the request engine steers by: the active host used
// for round-robin read distribution, and the last known leader host
// remembered across redirects.
//
// The pool performs no I/O. It normalizes caller-supplied host addresses at
// construction time (whitespace trimmed, one trailing slash stripped, empty
// entries dropped) so that later comparisons against redirect Location
// headers can be done field-wise rather than by string equality.
//
// Both cursors are guarded by a single mutex; independent requests mutate
// them concurrently and the pool guarantees they always stay within range.
//
// # Basic Usage
//
//	pool, err := cluster.NewFromString("http://db1:4001, http://db2:4001/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	host, idx := pool.Resolve(true) // leader host for a write
package cluster
