// Package vm implements types.MetricsCollector using VictoriaMetrics.
//
// All metrics are pre-created at initialization time, so the hot path is
// a plain counter increment with no map lookups or label formatting.
//
// # Usage
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//	client, _ := keel.NewClient(hosts, keel.WithMetrics(collector))
//
//	http.HandleFunc("/metrics", collector.Handler)
package vm
