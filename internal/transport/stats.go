package transport

import "sync/atomic"

// Stats holds request counters for a Transport
type Stats struct {
	requests atomic.Uint64
	failures atomic.Uint64
	inFlight atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats
type StatsSnapshot struct {
	Requests uint64
	Failures uint64
	InFlight int64
}

func (s *Stats) begin() {
	s.requests.Add(1)
	s.inFlight.Add(1)
}

func (s *Stats) end(failed bool) {
	if failed {
		s.failures.Add(1)
	}
	s.inFlight.Add(-1)
}

// InFlight returns the number of operations sent but not yet released
func (s *Stats) InFlight() int64 {
	return s.inFlight.Load()
}

// Snapshot returns the current counters
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Requests: s.requests.Load(),
		Failures: s.failures.Load(),
		InFlight: s.inFlight.Load(),
	}
}
