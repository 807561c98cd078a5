package monitor

import (
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/shirou/gopsutil/process"
)

var (
	ErrProcessNotFound   = errors.NewPlain("process not found")
	ErrProcessInspection = errors.NewPlain("process inspection failed")
)

// Provider resolves a process identifier into an Inspector.
type Provider interface {
	Inspect(pid int32) (Inspector, error)
}

// Inspector reads resource usage snapshots of one process.
type Inspector interface {
	Snapshot() (Snapshot, error)
}

// ProcessProvider inspects local processes through gopsutil.
type ProcessProvider struct{}

var _ Provider = ProcessProvider{}

func (ProcessProvider) Inspect(pid int32) (Inspector, error) {
	if pid <= 0 {
		return nil, errors.WithDetails(ErrProcessNotFound, "pid", pid)
	}
	exists, err := process.PidExists(pid)
	if err != nil {
		return nil, errors.Wrapf(ErrProcessInspection, "pid %d: %v", pid, err)
	}
	if !exists {
		return nil, errors.WithDetails(ErrProcessNotFound, "pid", pid)
	}
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, errors.WithDetails(ErrProcessNotFound, "pid", pid)
	}

	inspector := &ProcessInspector{proc: proc}
	if err := inspector.prime(); err != nil {
		return nil, err
	}
	return inspector, nil
}

// ProcessInspector reads snapshots from a gopsutil process handle.
//
// CPUPercent is delta based: the CPU time consumed since the previous snapshot
// divided by the wall time elapsed, as a percentage of one core. The baseline is
// taken when the inspector is created and the sampler reads one interval later,
// so the first snapshot is already an interval average.
type ProcessInspector struct {
	proc *process.Process

	lock     sync.Mutex
	lastCPU  float64
	lastTime time.Time
}

var _ Inspector = (*ProcessInspector)(nil)

func (pi *ProcessInspector) prime() error {
	cpu, err := pi.cpuSeconds()
	if err != nil {
		return err
	}
	pi.lastCPU = cpu
	pi.lastTime = time.Now()
	return nil
}

func (pi *ProcessInspector) cpuSeconds() (float64, error) {
	times, err := pi.proc.Times()
	if err != nil {
		return 0, errors.Wrapf(ErrProcessInspection, "failed to get CPU times: %v", err)
	}
	return times.User + times.System, nil
}

func (pi *ProcessInspector) Snapshot() (Snapshot, error) {
	pi.lock.Lock()
	defer pi.lock.Unlock()

	cpu, err := pi.cpuSeconds()
	if err != nil {
		return Snapshot{}, err
	}
	now := time.Now()

	mem, err := pi.proc.MemoryInfo()
	if err != nil {
		return Snapshot{}, errors.Wrapf(ErrProcessInspection, "failed to get memory info: %v", err)
	}
	io, err := pi.proc.IOCounters()
	if err != nil {
		return Snapshot{}, errors.Wrapf(ErrProcessInspection, "failed to get io counters: %v", err)
	}
	fds, err := pi.proc.NumFDs()
	if err != nil {
		return Snapshot{}, errors.Wrapf(ErrProcessInspection, "failed to get open files: %v", err)
	}

	snapshot := Snapshot{
		Time:       now,
		CPUPercent: cpuPercent(pi.lastCPU, cpu, pi.lastTime, now),
		RSS:        mem.RSS,
		ReadBytes:  io.ReadBytes,
		WriteBytes: io.WriteBytes,
		OpenFiles:  fds,
	}
	pi.lastCPU = cpu
	pi.lastTime = now
	return snapshot, nil
}

func cpuPercent(prevCPU, cpu float64, prev, now time.Time) float64 {
	wall := now.Sub(prev).Seconds()
	if wall <= 0 || cpu < prevCPU {
		return 0
	}
	return (cpu - prevCPU) / wall * 100.0
}
