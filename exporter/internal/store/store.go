package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"

	"github.com/pteroexporter/pteroexporter/exporter/internal/compute"
	"github.com/pteroexporter/pteroexporter/pkg/types"
)

const namespace = "pterodactyl_exporter"

// Label names attached to every per-server series.
const (
	LabelServerID   = "server_id"
	LabelServerName = "server_name"
	LabelNode       = "node"
	LabelEgg        = "egg_name"
)

// Labels identifies one server's series.
type Labels struct {
	ServerID   string
	ServerName string
	Node       string
	Egg        string
}

// Opts configures a Store.
type Opts struct {
	// IncludeEgg adds the egg_name label to every per-server series.
	// Fixed for the lifetime of the Store.
	IncludeEgg bool

	// StaleAfter evicts series not updated within this window. 0 disables eviction.
	StaleAfter time.Duration

	// RuntimeMetrics registers the Go runtime and process collectors.
	RuntimeMetrics bool
}

// Store is the thread-safe Metric Store.
type Store struct {
	mu         sync.Mutex
	reg        *prometheus.Registry
	includeEgg bool
	ttl        time.Duration
	seen       map[Labels]time.Time
	now        func() time.Time // injectable for deterministic tests

	cpu       *prometheus.GaugeVec
	ram       *prometheus.GaugeVec
	disk      *prometheus.GaugeVec
	ramBytes  *prometheus.GaugeVec
	diskBytes *prometheus.GaugeVec
	rx        *prometheus.GaugeVec
	tx        *prometheus.GaugeVec

	cycleDuration prometheus.Gauge
	cycleServers  *prometheus.GaugeVec
	cyclePages    prometheus.Gauge
	lastSuccess   prometheus.Gauge
	cycleErrors   prometheus.Counter
	evicted       prometheus.Counter
	upstream      *prometheus.CounterVec
}

// New creates a Store and registers all of its metrics.
func New(opts Opts) *Store {
	labels := []string{LabelServerID, LabelServerName, LabelNode}
	if opts.IncludeEgg {
		labels = append(labels, LabelEgg)
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
	}

	s := &Store{
		reg:        prometheus.NewRegistry(),
		includeEgg: opts.IncludeEgg,
		ttl:        opts.StaleAfter,
		seen:       make(map[Labels]time.Time),
		now:        time.Now,

		cpu:       gauge("server_cpu_usage", "CPU usage of the server in percent of its CPU limit (100 per core). Absent when the limit is unlimited."),
		ram:       gauge("server_ram_usage", "RAM usage of the server in percent of its memory limit. Absent when the limit is unlimited."),
		disk:      gauge("server_disk_usage", "Disk usage of the server in percent of its disk limit. Absent when the limit is unlimited."),
		ramBytes:  gauge("server_ram_bytes", "RAM used by the server in bytes."),
		diskBytes: gauge("server_disk_bytes", "Disk space used by the server in bytes."),
		rx:        gauge("server_network_rx", "Network received by the server in bytes."),
		tx:        gauge("server_network_tx", "Network transmitted by the server in bytes."),

		cycleDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cycle_duration_seconds",
			Help: "Duration of the last refresh cycle in seconds.",
		}),
		cycleServers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cycle_servers",
			Help: "Servers processed in the last refresh cycle, by resource fetch outcome.",
		}, []string{"outcome"}),
		cyclePages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cycle_pages",
			Help: "Listing pages fetched in the last refresh cycle.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Unix time the last refresh cycle without a listing failure finished.",
		}),
		cycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cycle_errors_total",
			Help: "Refresh cycles aborted by a listing failure.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "evicted_series_total",
			Help: "Server label sets evicted for not being refreshed within the stale-after window.",
		}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "upstream_requests_total",
			Help: "Requests sent to the panel API, by status code and method.",
		}, []string{"code", "method"}),
	}

	s.reg.MustRegister(
		s.cpu, s.ram, s.disk, s.ramBytes, s.diskBytes, s.rx, s.tx,
		s.cycleDuration, s.cycleServers, s.cyclePages, s.lastSuccess,
		s.cycleErrors, s.evicted, s.upstream,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "series",
			Help: "Server label sets currently held in the store.",
		}, func() float64 { return float64(s.Series()) }),
	)
	if opts.RuntimeMetrics {
		s.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return s
}

// values returns the label values in registration order.
func (s *Store) values(l Labels) []string {
	if s.includeEgg {
		return []string{l.ServerID, l.ServerName, l.Node, l.Egg}
	}
	return []string{l.ServerID, l.ServerName, l.Node}
}

// Update writes the derived values for one server. Percentages the usage
// marks as unavailable are removed rather than left at a previous value.
func (s *Store) Update(l Labels, u compute.Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lv := s.values(l)
	setOrDelete(s.cpu, lv, u.CPUPercent, u.HasCPU)
	setOrDelete(s.ram, lv, u.MemoryPercent, u.HasMemory)
	setOrDelete(s.disk, lv, u.DiskPercent, u.HasDisk)
	s.ramBytes.WithLabelValues(lv...).Set(u.MemoryBytes)
	s.diskBytes.WithLabelValues(lv...).Set(u.DiskBytes)
	s.rx.WithLabelValues(lv...).Set(u.NetworkRxBytes)
	s.tx.WithLabelValues(lv...).Set(u.NetworkTxBytes)

	s.seen[l] = s.now()
}

func setOrDelete(vec *prometheus.GaugeVec, lv []string, v float64, ok bool) {
	if !ok {
		vec.DeleteLabelValues(lv...)
		return
	}
	vec.WithLabelValues(lv...).Set(v)
}

// RecordCycle publishes the cycle-health metrics for a finished cycle.
func (s *Store) RecordCycle(sum *types.CycleSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycleDuration.Set(sum.Duration.Seconds())
	s.cyclePages.Set(float64(sum.Pages))
	s.cycleServers.WithLabelValues("success").Set(float64(sum.Succeeded))
	s.cycleServers.WithLabelValues("failure").Set(float64(sum.Failed))

	if sum.Err != nil {
		s.cycleErrors.Inc()
		return
	}
	s.lastSuccess.Set(float64(sum.Started.Add(sum.Duration).UnixNano()) / 1e9)
}

// UpstreamRequests returns the counter the panel client instruments its
// transport with.
func (s *Store) UpstreamRequests() *prometheus.CounterVec {
	return s.upstream
}

// Gather implements prometheus.Gatherer.
func (s *Store) Gather() ([]*dto.MetricFamily, error) {
	return s.reg.Gather()
}

// Series returns the number of server label sets currently held.
func (s *Store) Series() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Evict removes every series whose last update is not after now minus the
// stale-after window. It returns the number of label sets removed and is a
// no-op when eviction is disabled.
func (s *Store) Evict(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.ttl)
	removed := 0
	for l, updated := range s.seen {
		if updated.After(cutoff) {
			continue
		}
		lv := s.values(l)
		for _, vec := range []*prometheus.GaugeVec{s.cpu, s.ram, s.disk, s.ramBytes, s.diskBytes, s.rx, s.tx} {
			vec.DeleteLabelValues(lv...)
		}
		delete(s.seen, l)
		removed++
	}
	s.evicted.Add(float64(removed))
	return removed
}

// Run starts the background eviction loop. It ticks at half the stale-after
// window (minimum 1 second) and blocks until ctx is cancelled. With eviction
// disabled it returns immediately.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Info("store: evicted stale series", "count", n)
			}
		}
	}
}
