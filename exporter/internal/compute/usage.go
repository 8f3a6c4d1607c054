package compute

import (
	"math"

	"github.com/pteroexporter/pteroexporter/pkg/types"
)

// bytesPerMiB converts panel memory/disk limits (MiB) to bytes.
const bytesPerMiB = 1024 * 1024

// Usage holds the derived values for one server.
type Usage struct {
	// CPUPercent is cpu_absolute / cpu_limit * 100. Can exceed 100 briefly
	// when the panel's sampling overshoots the limit.
	CPUPercent float64
	HasCPU     bool

	// MemoryPercent is memory_bytes as a percentage of the memory limit.
	MemoryPercent float64
	HasMemory     bool

	// DiskPercent is disk_bytes as a percentage of the disk limit.
	DiskPercent float64
	HasDisk     bool

	MemoryBytes    float64
	DiskBytes      float64
	NetworkRxBytes float64
	NetworkTxBytes float64
}

// Derive computes the usage values for a sample taken against the given limits.
func Derive(limits types.Limits, s types.ResourceSample) Usage {
	u := Usage{
		MemoryBytes:    s.MemoryBytes,
		DiskBytes:      s.DiskBytes,
		NetworkRxBytes: s.NetworkRxBytes,
		NetworkTxBytes: s.NetworkTxBytes,
	}

	u.CPUPercent, u.HasCPU = percent(s.CPUAbsolute, limits.CPU)
	u.MemoryPercent, u.HasMemory = percent(s.MemoryBytes/bytesPerMiB, limits.Memory)
	u.DiskPercent, u.HasDisk = percent(s.DiskBytes/bytesPerMiB, limits.Disk)

	return u
}

// percent returns value/limit*100. ok is false when limit is not positive or
// the result is not a finite, non-negative number.
func percent(value, limit float64) (float64, bool) {
	if !(limit > 0) {
		return 0, false
	}
	p := value / limit * 100
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0, false
	}
	return p, true
}
