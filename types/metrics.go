package types

// MetricsCollector defines methods for collecting operational metrics from
// the request engine.
//
// Implementations should be thread-safe as methods may be called concurrently
// from independent requests.
//
// Example usage with VictoriaMetrics (via contrib/metrics/vm):
//
//	import vmmetrics "github.com/arloliu/keel/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	client, _ := keel.NewClient("http://db1:4001,http://db2:4001",
//	    keel.WithMetrics(collector),
//	)
//
//	// Expose metrics via HTTP
//	http.HandleFunc("/metrics", collector.Handler)
type MetricsCollector interface {
	// IncRequestTotal increments the logical request counter.
	// Called once per Do invocation, not once per attempt.
	IncRequestTotal()

	// IncRequestError increments the failed request counter.
	// Called when a request surfaces an error to the caller.
	IncRequestError()

	// ObserveRequestDuration records the total duration of a logical
	// request in seconds, including all retries and redirects.
	ObserveRequestDuration(seconds float64)

	// IncRetry increments the retry counter.
	// Called each time a retryable failure triggers another attempt.
	IncRetry()

	// IncRedirect increments the redirect counter.
	// Called each time a leader redirect is followed.
	IncRedirect()

	// IncLeaderChange increments the leader change counter.
	// Called when a redirect teaches the pool a new leader index.
	IncLeaderChange()

	// SetActiveHostIndex sets the current round-robin cursor gauge.
	SetActiveHostIndex(index int)

	// SetLeaderHostIndex sets the current known-leader cursor gauge.
	SetLeaderHostIndex(index int)
}
