package monitor

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is a single point-in-time reading of a process's resource usage.
type Snapshot struct {
	Time       time.Time `json:"time"`
	CPUPercent float64   `json:"cpu_percent"`
	RSS        uint64    `json:"rss_bytes"`
	ReadBytes  uint64    `json:"read_bytes"`
	WriteBytes uint64    `json:"write_bytes"`
	OpenFiles  int32     `json:"open_files"`
}

// Session is the state shared between a Runner and the Sampler it starts.
// Snapshots are only ever appended.
type Session struct {
	PID int32

	lock      sync.RWMutex
	snapshots []Snapshot
	err       error
	running   atomic.Bool
}

func NewSession(pid int32) *Session {
	return &Session{
		PID:       pid,
		snapshots: make([]Snapshot, 0),
	}
}

func (s *Session) append(snapshot Snapshot) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.snapshots = append(s.snapshots, snapshot)
}

func (s *Session) fail(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.err = err
}

// Snapshots returns a copy of the snapshots collected so far.
func (s *Session) Snapshots() []Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	result := make([]Snapshot, len(s.snapshots))
	copy(result, s.snapshots)
	return result
}

// Len returns the number of snapshots collected so far.
func (s *Session) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.snapshots)
}

// Err returns the inspection error that stopped sampling, if any.
func (s *Session) Err() error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.err
}

// Running reports whether a sampling loop is currently executing for this session.
func (s *Session) Running() bool {
	return s.running.Load()
}
