package monitor

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultInterval = time.Second

// Sampler periodically records snapshots of a process into a Session.
type Sampler struct {
	interval time.Duration
}

func NewSampler(interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{interval: interval}
}

func (s *Sampler) Interval() time.Duration {
	return s.interval
}

// Run samples until ctx is done or the inspector fails. The first snapshot is
// taken one interval after start so that every CPU reading spans a full interval.
// An inspection failure is recorded on the session and ends the loop; the
// snapshots taken so far remain.
func (s *Sampler) Run(ctx context.Context, inspector Inspector, session *Session) {
	session.running.Store(true)
	defer session.running.Store(false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snapshot, err := inspector.Snapshot()
		if err != nil {
			log.WithField("pid", session.PID).Warnf("sampling stopped: %v", err)
			session.fail(err)
			return
		}

		// stop was requested while reading; the snapshot would be stale
		if ctx.Err() != nil {
			return
		}
		session.append(snapshot)
	}
}
