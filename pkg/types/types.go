package types

import "time"

// Server is one game server as reported by the panel's application API.
// Servers are re-read on every refresh cycle and never persisted.
type Server struct {
	// Identifier is the short, stable panel identifier (e.g. "1a7ce997").
	// It is the primary label on every per-server series.
	Identifier string
	Name       string
	// Node is the hosting node identifier, as a string.
	Node   string
	Limits Limits
	// Egg is the workload-type name; empty when the panel did not include it.
	Egg string
}

// Limits holds the resource limits configured for a server. Memory and disk
// are in MiB, CPU is in percent of one core (100 = one core). The panel uses
// 0 to mean "unlimited".
type Limits struct {
	CPU    float64
	Memory float64
	Disk   float64
}

// ResourceSample is a point-in-time resource reading for one server.
type ResourceSample struct {
	CPUAbsolute    float64
	MemoryBytes    float64
	DiskBytes      float64
	NetworkRxBytes float64
	NetworkTxBytes float64
}

// ServerPage is one page of the paginated server listing.
type ServerPage struct {
	Servers    []Server
	Page       int
	TotalPages int
}

// Outcome is the result of fetching resources for a single server.
type Outcome struct {
	Server Server
	Err    error
}

// CycleSummary describes one completed (or aborted) refresh cycle.
type CycleSummary struct {
	ID        string
	Started   time.Time
	Duration  time.Duration
	Pages     int
	Servers   int
	Succeeded int
	Failed    int
	FailedIDs []string
	// Err is set when the cycle was aborted by a listing failure.
	Err error
}

// Record adds o to the summary counters.
func (s *CycleSummary) Record(o Outcome) {
	s.Servers++
	if o.Err != nil {
		s.Failed++
		s.FailedIDs = append(s.FailedIDs, o.Server.Identifier)
		return
	}
	s.Succeeded++
}
