package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/pteroexporter/pteroexporter/exporter/internal/compute"
	"github.com/pteroexporter/pteroexporter/pkg/types"
)

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func labels(id string) Labels {
	return Labels{ServerID: id, ServerName: "srv-" + id, Node: "1", Egg: "Paper"}
}

func fullUsage() compute.Usage {
	return compute.Usage{
		CPUPercent: 25, HasCPU: true,
		MemoryPercent: 50, HasMemory: true,
		DiskPercent: 10, HasDisk: true,
		MemoryBytes: 1 << 30, DiskBytes: 2 << 30,
		NetworkRxBytes: 100, NetworkTxBytes: 200,
	}
}

// findMetric returns the metric in family name whose server_id label is id.
func findMetric(t *testing.T, st *Store, name, id string) *dto.Metric {
	t.Helper()
	mfs, err := st.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == LabelServerID && lp.GetValue() == id {
					return m
				}
			}
		}
	}
	return nil
}

func gaugeValue(t *testing.T, st *Store, name, id string) (float64, bool) {
	t.Helper()
	m := findMetric(t, st, name, id)
	if m == nil {
		return 0, false
	}
	return m.GetGauge().GetValue(), true
}

func TestUpdate_WritesAllSeries(t *testing.T) {
	st := New(Opts{IncludeEgg: true})
	st.Update(labels("a"), fullUsage())

	want := map[string]float64{
		"server_cpu_usage":  25,
		"server_ram_usage":  50,
		"server_disk_usage": 10,
		"server_ram_bytes":  1 << 30,
		"server_disk_bytes": 2 << 30,
		"server_network_rx": 100,
		"server_network_tx": 200,
	}
	for name, v := range want {
		got, ok := gaugeValue(t, st, name, "a")
		if !ok {
			t.Errorf("%s: series missing", name)
			continue
		}
		if got != v {
			t.Errorf("%s: got %v, want %v", name, got, v)
		}
	}
	if st.Series() != 1 {
		t.Errorf("Series: got %d, want 1", st.Series())
	}
}

func TestUpdate_LabelSets(t *testing.T) {
	tests := []struct {
		name       string
		includeEgg bool
		wantLabels []string
	}{
		{"with egg", true, []string{LabelEgg, LabelNode, LabelServerID, LabelServerName}},
		{"without egg", false, []string{LabelNode, LabelServerID, LabelServerName}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := New(Opts{IncludeEgg: tc.includeEgg})
			st.Update(labels("a"), fullUsage())

			m := findMetric(t, st, "server_cpu_usage", "a")
			if m == nil {
				t.Fatal("series missing")
			}
			got := m.GetLabel()
			if len(got) != len(tc.wantLabels) {
				t.Fatalf("labels: got %d, want %d", len(got), len(tc.wantLabels))
			}
			// Gathered label pairs are sorted by name.
			for i, lp := range got {
				if lp.GetName() != tc.wantLabels[i] {
					t.Errorf("label[%d]: got %q, want %q", i, lp.GetName(), tc.wantLabels[i])
				}
			}
		})
	}
}

func TestUpdate_Overwrites(t *testing.T) {
	st := New(Opts{})
	st.Update(labels("a"), fullUsage())

	u := fullUsage()
	u.CPUPercent = 75
	st.Update(labels("a"), u)

	if got, _ := gaugeValue(t, st, "server_cpu_usage", "a"); got != 75 {
		t.Errorf("cpu after overwrite: got %v, want 75", got)
	}
}

func TestUpdate_UnavailablePercentageRemoved(t *testing.T) {
	st := New(Opts{})
	st.Update(labels("a"), fullUsage())

	// Limit switched to unlimited: the stale percentage must not linger.
	u := fullUsage()
	u.HasCPU = false
	u.CPUPercent = 0
	st.Update(labels("a"), u)

	if _, ok := gaugeValue(t, st, "server_cpu_usage", "a"); ok {
		t.Error("server_cpu_usage: series present after limit became unlimited")
	}
	if _, ok := gaugeValue(t, st, "server_ram_usage", "a"); !ok {
		t.Error("server_ram_usage: series should still be present")
	}
}

func TestRecordCycle(t *testing.T) {
	st := New(Opts{})
	started := time.Unix(1_700_000_000, 0)

	st.RecordCycle(&types.CycleSummary{
		Started:   started,
		Duration:  1500 * time.Millisecond,
		Pages:     2,
		Succeeded: 9,
		Failed:    1,
	})

	if got := testutil.ToFloat64(st.cycleDuration); got != 1.5 {
		t.Errorf("cycle_duration_seconds: got %v, want 1.5", got)
	}
	if got := testutil.ToFloat64(st.cycleServers.WithLabelValues("success")); got != 9 {
		t.Errorf("cycle_servers{success}: got %v, want 9", got)
	}
	if got := testutil.ToFloat64(st.cycleServers.WithLabelValues("failure")); got != 1 {
		t.Errorf("cycle_servers{failure}: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(st.lastSuccess); got != 1_700_000_001.5 {
		t.Errorf("last_success_timestamp_seconds: got %v", got)
	}

	st.RecordCycle(&types.CycleSummary{Started: started.Add(time.Minute), Err: errors.New("listing failed")})
	if got := testutil.ToFloat64(st.cycleErrors); got != 1 {
		t.Errorf("cycle_errors_total: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(st.lastSuccess); got != 1_700_000_001.5 {
		t.Errorf("last_success_timestamp_seconds moved on a failed cycle: got %v", got)
	}
}

func TestEvict_Disabled(t *testing.T) {
	st := New(Opts{})
	st.now = fixedClock(time.Now().Add(-24 * time.Hour))
	st.Update(labels("a"), fullUsage())

	if n := st.Evict(time.Now()); n != 0 {
		t.Errorf("Evict with eviction disabled: removed %d, want 0", n)
	}
	if _, ok := gaugeValue(t, st, "server_cpu_usage", "a"); !ok {
		t.Error("series must persist until restart when eviction is disabled")
	}
}

func TestEvict_RemovesStale(t *testing.T) {
	base := time.Now()
	st := New(Opts{StaleAfter: 5 * time.Minute})

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Update(labels("old"), fullUsage())

	st.now = fixedClock(base)
	st.Update(labels("live"), fullUsage())

	if removed := st.Evict(base); removed != 1 {
		t.Errorf("Evict: removed %d, want 1", removed)
	}
	if st.Series() != 1 {
		t.Errorf("Series after evict: got %d, want 1", st.Series())
	}
	if _, ok := gaugeValue(t, st, "server_network_rx", "old"); ok {
		t.Error("stale series still gathered after eviction")
	}
	if _, ok := gaugeValue(t, st, "server_network_rx", "live"); !ok {
		t.Error("live series evicted")
	}
	if got := testutil.ToFloat64(st.evicted); got != 1 {
		t.Errorf("evicted_series_total: got %v, want 1", got)
	}
}

func TestRun_ReturnsWhenDisabled(t *testing.T) {
	st := New(Opts{})
	done := make(chan struct{})
	go func() {
		st.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return with eviction disabled")
	}
}

func TestRuntimeMetrics(t *testing.T) {
	st := New(Opts{RuntimeMetrics: true})
	mfs, err := st.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "go_goroutines" {
			return
		}
	}
	t.Error("go_goroutines not gathered with RuntimeMetrics enabled")
}

func TestConcurrentUpdates(t *testing.T) {
	st := New(Opts{IncludeEgg: true})
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			st.Update(labels(string(rune('a'+n%26))), fullUsage())
		}(i)
		go func() {
			defer wg.Done()
			_, _ = st.Gather()
		}()
	}
	wg.Wait()

	if st.Series() != 26 {
		t.Errorf("Series after concurrent updates: got %d, want 26", st.Series())
	}
}
