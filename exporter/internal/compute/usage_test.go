package compute

import (
	"math"
	"testing"

	"github.com/pteroexporter/pteroexporter/pkg/types"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestDerive_CPUExact(t *testing.T) {
	u := Derive(types.Limits{CPU: 200, Memory: 1024, Disk: 1024}, types.ResourceSample{CPUAbsolute: 50})
	if !u.HasCPU {
		t.Fatal("HasCPU: got false, want true")
	}
	if u.CPUPercent != 25.0 {
		t.Errorf("CPUPercent: got %v, want exactly 25", u.CPUPercent)
	}
}

func TestDerive_Percentages(t *testing.T) {
	tests := []struct {
		name     string
		limits   types.Limits
		sample   types.ResourceSample
		wantCPU  float64
		wantMem  float64
		wantDisk float64
	}{
		{
			name:   "half of every limit",
			limits: types.Limits{CPU: 100, Memory: 2048, Disk: 10240},
			sample: types.ResourceSample{
				CPUAbsolute: 50,
				MemoryBytes: 1024 * bytesPerMiB,
				DiskBytes:   5120 * bytesPerMiB,
			},
			wantCPU: 50, wantMem: 50, wantDisk: 50,
		},
		{
			name:    "multi-core cpu limit",
			limits:  types.Limits{CPU: 400, Memory: 4096, Disk: 4096},
			sample:  types.ResourceSample{CPUAbsolute: 300, MemoryBytes: 1024 * bytesPerMiB},
			wantCPU: 75, wantMem: 25, wantDisk: 0,
		},
		{
			name:    "cpu overshoot is reported as-is",
			limits:  types.Limits{CPU: 100, Memory: 1024, Disk: 1024},
			sample:  types.ResourceSample{CPUAbsolute: 104.5},
			wantCPU: 104.5, wantMem: 0, wantDisk: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := Derive(tc.limits, tc.sample)
			if !u.HasCPU || !u.HasMemory || !u.HasDisk {
				t.Fatalf("Has flags: got cpu=%v mem=%v disk=%v, want all true", u.HasCPU, u.HasMemory, u.HasDisk)
			}
			if !almostEqual(u.CPUPercent, tc.wantCPU, 1e-9) {
				t.Errorf("CPUPercent: got %v, want %v", u.CPUPercent, tc.wantCPU)
			}
			if !almostEqual(u.MemoryPercent, tc.wantMem, 1e-9) {
				t.Errorf("MemoryPercent: got %v, want %v", u.MemoryPercent, tc.wantMem)
			}
			if !almostEqual(u.DiskPercent, tc.wantDisk, 1e-9) {
				t.Errorf("DiskPercent: got %v, want %v", u.DiskPercent, tc.wantDisk)
			}
		})
	}
}

func TestDerive_ZeroLimitSkipsPercentage(t *testing.T) {
	u := Derive(types.Limits{CPU: 0, Memory: 0, Disk: 2048}, types.ResourceSample{
		CPUAbsolute:    80,
		MemoryBytes:    512 * bytesPerMiB,
		DiskBytes:      1024 * bytesPerMiB,
		NetworkRxBytes: 10,
		NetworkTxBytes: 20,
	})

	if u.HasCPU {
		t.Errorf("HasCPU with zero limit: got true, want false")
	}
	if u.HasMemory {
		t.Errorf("HasMemory with zero limit: got true, want false")
	}
	if !u.HasDisk || u.DiskPercent != 50 {
		t.Errorf("disk: got has=%v value=%v, want has=true value=50", u.HasDisk, u.DiskPercent)
	}
	// Raw values are still carried.
	if u.MemoryBytes != 512*bytesPerMiB {
		t.Errorf("MemoryBytes: got %v", u.MemoryBytes)
	}
	if u.NetworkRxBytes != 10 || u.NetworkTxBytes != 20 {
		t.Errorf("network: got rx=%v tx=%v, want 10/20", u.NetworkRxBytes, u.NetworkTxBytes)
	}
}

func TestDerive_NegativeLimitOrSample(t *testing.T) {
	u := Derive(types.Limits{CPU: -1, Memory: 1024, Disk: 1024}, types.ResourceSample{CPUAbsolute: 10, MemoryBytes: -5})
	if u.HasCPU {
		t.Error("negative cpu limit must not produce a percentage")
	}
	if u.HasMemory {
		t.Error("negative memory sample must not produce a percentage")
	}
}

func TestPercent_NaN(t *testing.T) {
	if _, ok := percent(math.NaN(), 100); ok {
		t.Error("percent(NaN, 100): got ok=true, want false")
	}
	if _, ok := percent(10, math.NaN()); ok {
		t.Error("percent(10, NaN): got ok=true, want false")
	}
}
