package cluster

import (
	"net/url"
	"strings"
	"sync"

	"github.com/arloliu/keel/types"
)

// HostPool tracks the cluster hosts and the two routing cursors.
//
// The host list is ordered and fixed after construction; position defines
// the round-robin sequence and index 0 is the default leader assumption.
// The active and leader cursors mutate for the lifetime of the client as a
// side effect of request outcomes.
//
// All methods are safe for concurrent use.
type HostPool struct {
	mu         sync.Mutex
	hosts      []*url.URL
	active     int
	leader     int
	roundRobin bool
}

// Option configures a HostPool.
type Option func(*HostPool)

// WithRoundRobin enables or disables round-robin advancement of the
// active host cursor.
//
// Default: enabled.
//
// Parameters:
//   - enabled: false to pin the active cursor in place
//
// Returns:
//   - Option: Configuration option
func WithRoundRobin(enabled bool) Option {
	return func(p *HostPool) {
		p.roundRobin = enabled
	}
}

// New creates a HostPool from an ordered list of host addresses.
//
// Each entry is trimmed of surrounding whitespace and one trailing path
// separator; empty entries are dropped. Entries are not required to be
// unique. The leader cursor starts at index 0.
//
// Parameters:
//   - hosts: Ordered host addresses, e.g. []string{"http://db1:4001"}
//   - opts: Optional configuration options
//
// Returns:
//   - *HostPool: A new pool
//   - error: types.ErrNoHosts if no usable hosts remain after normalization,
//     or a URL parse error for a malformed entry
func New(hosts []string, opts ...Option) (*HostPool, error) {
	p := &HostPool{roundRobin: true}

	for _, opt := range opts {
		opt(p)
	}

	for _, raw := range hosts {
		h := strings.TrimSpace(raw)
		h = strings.TrimSuffix(h, "/")
		if h == "" {
			continue
		}

		u, err := url.Parse(h)
		if err != nil {
			return nil, err
		}
		p.hosts = append(p.hosts, u)
	}

	if len(p.hosts) == 0 {
		return nil, types.ErrNoHosts
	}

	return p, nil
}

// NewFromString creates a HostPool from a comma-delimited host string.
//
// Equivalent to New with the string split on commas; the same
// normalization applies to each entry.
//
// Parameters:
//   - hosts: Comma-delimited host addresses, e.g. "http://db1:4001,http://db2:4001"
//   - opts: Optional configuration options
//
// Returns:
//   - *HostPool: A new pool
//   - error: types.ErrNoHosts if no usable hosts remain after normalization
func NewFromString(hosts string, opts ...Option) (*HostPool, error) {
	return New(strings.Split(hosts, ","), opts...)
}

// Len returns the number of hosts in the pool.
func (p *HostPool) Len() int {
	return len(p.hosts)
}

// Hosts returns a copy of the normalized host URLs in pool order.
//
// Returns:
//   - []*url.URL: The pool's hosts; mutating the slice does not affect the pool
func (p *HostPool) Hosts() []*url.URL {
	hosts := make([]*url.URL, len(p.hosts))
	copy(hosts, p.hosts)
	return hosts
}

// Resolve returns the host for the next attempt along with its index.
//
// Parameters:
//   - useLeader: true to resolve the known leader, false for the active host
//
// Returns:
//   - *url.URL: The resolved host
//   - int: The index of the resolved host
func (p *HostPool) Resolve(useLeader bool) (*url.URL, int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if useLeader {
		return p.hosts[p.leader], p.leader
	}
	return p.hosts[p.active], p.active
}

// Host returns the host at the given index, clamped into range.
//
// Parameters:
//   - i: Host index
//
// Returns:
//   - *url.URL: The host at the clamped index
func (p *HostPool) Host(i int) *url.URL {
	return p.hosts[p.clamp(i)]
}

// ActiveIndex returns the current round-robin cursor.
func (p *HostPool) ActiveIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// LeaderIndex returns the last host observed to accept a leader-only
// request without redirecting.
func (p *HostPool) LeaderIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leader
}

// SetActiveIndex sets the round-robin cursor, clamping into [0, Len()-1].
//
// Parameters:
//   - i: The new active index; out-of-range values are clamped
func (p *HostPool) SetActiveIndex(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = p.clamp(i)
}

// SetLeaderIndex sets the known-leader cursor, clamping into [0, Len()-1].
//
// Parameters:
//   - i: The new leader index; out-of-range values are clamped
func (p *HostPool) SetLeaderIndex(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leader = p.clamp(i)
}

// AdvanceRoundRobin advances the active cursor to the next host.
//
// No-op when round-robin is disabled or the pool has a single host.
// Called by the client once per successful non-leader request to spread
// subsequent reads across hosts.
//
// Returns:
//   - int: The active index after advancement
func (p *HostPool) AdvanceRoundRobin() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.roundRobin || len(p.hosts) <= 1 {
		return p.active
	}

	p.active = (p.active + 1) % len(p.hosts)
	return p.active
}

// NextIndex returns the index after i, wrapping around the pool.
//
// The request engine uses this to rotate a failing request onto the next
// host instead of hammering the same one.
//
// Parameters:
//   - i: The index the last attempt targeted
//
// Returns:
//   - int: (i+1) modulo the host count
func (p *HostPool) NextIndex(i int) int {
	return (p.clamp(i) + 1) % len(p.hosts)
}

// FindHostIndex looks up the pool index matching a candidate URL.
//
// The comparison is field-wise, never plain string equality: scheme
// (case-insensitive), hostname and effective port (scheme defaults
// applied) must always match. Path and query are compared, one trailing
// slash stripped, only when the pool entry carries them; pool entries are
// typically bare origins, and a redirect Location carries the full request
// path, which must not prevent its origin from matching.
//
// Parameters:
//   - candidate: An absolute URL, typically a redirect Location header
//
// Returns:
//   - int: The matching pool index
//   - bool: false if the candidate matches no pool entry or is unparseable
func (p *HostPool) FindHostIndex(candidate string) (int, bool) {
	u, err := url.Parse(strings.TrimSpace(candidate))
	if err != nil {
		return 0, false
	}

	for i, h := range p.hosts {
		if matchesEntry(h, u) {
			return i, true
		}
	}

	return 0, false
}

// clamp bounds i into [0, len(hosts)-1]. Callers must hold no assumptions
// about i; indices learned from outside the pool may be stale or negative.
func (p *HostPool) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(p.hosts) {
		return len(p.hosts) - 1
	}
	return i
}

// matchesEntry compares a pool entry against a candidate URL
// component-wise. Path and query participate only when the entry has them.
func matchesEntry(entry, candidate *url.URL) bool {
	if !strings.EqualFold(entry.Scheme, candidate.Scheme) {
		return false
	}
	if !strings.EqualFold(entry.Hostname(), candidate.Hostname()) {
		return false
	}
	if effectivePort(entry) != effectivePort(candidate) {
		return false
	}
	if entry.Path != "" &&
		strings.TrimSuffix(entry.Path, "/") != strings.TrimSuffix(candidate.Path, "/") {
		return false
	}

	return entry.RawQuery == "" || entry.RawQuery == candidate.RawQuery
}

// effectivePort returns the URL's port with scheme defaults applied.
func effectivePort(u *url.URL) string {
	if port := u.Port(); port != "" {
		return port
	}

	switch strings.ToLower(u.Scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}
