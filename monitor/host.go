package monitor

import (
	"emperror.dev/errors"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"
)

// HostStats holds host-wide memory and disk usage.
type HostStats struct {
	MemoryPercent    float64
	DiskUsagePercent float64
	DiskTotal        uint64
	DiskUsed         uint64
	DiskFree         uint64
}

// ReadHostStats reads host memory usage and the usage of the filesystem holding path.
func ReadHostStats(path string) (HostStats, error) {
	var stats HostStats

	vmem, err := mem.VirtualMemory()
	if err != nil {
		return stats, errors.Wrap(err, "failed to read virtual memory")
	}
	stats.MemoryPercent = vmem.UsedPercent

	usage, err := disk.Usage(path)
	if err != nil {
		return stats, errors.Wrapf(err, "failed to read disk usage of %s", path)
	}
	stats.DiskUsagePercent = usage.UsedPercent
	stats.DiskTotal = usage.Total
	stats.DiskUsed = usage.Used
	stats.DiskFree = usage.Free
	return stats, nil
}
