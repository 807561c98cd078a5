package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
)

// State is the lifecycle state of a single Measure call.
type State int

const (
	StateIdle State = iota
	StateSamplingAndRunning
	StateStopping
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSamplingAndRunning:
		return "sampling_and_running"
	case StateStopping:
		return "stopping"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Operation is the blocking unit of work timed by a Runner.
type Operation func(ctx context.Context) error

// OperationError reports a failed operation together with its time to failure.
type OperationError struct {
	Elapsed time.Duration
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation failed after %v: %v", e.Elapsed, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one timed operation.
type Result struct {
	PID     int32
	Start   time.Time
	End     time.Time
	Elapsed time.Duration
	State   State

	// Final is nil when the target could not be inspected after the operation.
	Final         *Snapshot
	Series        []Snapshot
	Err           error
	InspectionErr error

	session *Session
}

func (r *Result) Succeeded() bool {
	return r.State == StateDone
}

// Runner executes one operation while sampling a target process in the background.
type Runner struct {
	provider    Provider
	sampler     *Sampler
	joinTimeout time.Duration
}

type RunnerOption func(*Runner)

func WithProvider(provider Provider) RunnerOption {
	return func(r *Runner) {
		r.provider = provider
	}
}

func WithInterval(interval time.Duration) RunnerOption {
	return func(r *Runner) {
		r.sampler = NewSampler(interval)
	}
}

// WithJoinTimeout bounds how long Measure waits for the sampler to stop.
func WithJoinTimeout(timeout time.Duration) RunnerOption {
	return func(r *Runner) {
		r.joinTimeout = timeout
	}
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		provider: ProcessProvider{},
		sampler:  NewSampler(DefaultInterval),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.joinTimeout <= 0 {
		r.joinTimeout = 3 * r.sampler.Interval()
	}
	return r
}

type measurement struct {
	pid   int32
	state State
}

func (m *measurement) transition(to State) {
	log.WithFields(log.Fields{
		"pid":  m.pid,
		"from": m.state,
		"to":   to,
	}).Debug("measurement state changed")
	m.state = to
}

// Measure runs op while sampling pid and returns the assembled Result. If op fails,
// the returned error is an *OperationError and the Result is in StateFailed. The
// sampler is always stopped and joined before Measure returns.
func (r *Runner) Measure(ctx context.Context, pid int32, op Operation) (*Result, error) {
	m := &measurement{pid: pid, state: StateIdle}
	session := NewSession(pid)
	result := &Result{PID: pid, session: session}

	samplerCtx, stop := context.WithCancel(context.Background())
	defer stop()
	done := make(chan struct{})

	inspector, inspectErr := r.provider.Inspect(pid)
	if inspectErr != nil {
		log.WithField("pid", pid).Warnf("target process cannot be sampled: %v", inspectErr)
		session.fail(inspectErr)
		close(done)
	} else {
		session.running.Store(true)
		go func() {
			defer close(done)
			r.sampler.Run(samplerCtx, inspector, session)
		}()
	}

	// stop and join once; deferred as well so that an operation leaving through
	// runtime.Goexit cannot leave the sampler behind
	joined := false
	var joinOnce sync.Once
	join := func() {
		joinOnce.Do(func() {
			stop()
			select {
			case <-done:
				joined = true
			case <-time.After(r.joinTimeout):
				log.WithField("pid", pid).Warnf("sampler did not stop within %v", r.joinTimeout)
			}
		})
	}
	defer join()

	m.transition(StateSamplingAndRunning)

	result.Start = time.Now()
	opErr := invoke(ctx, op)
	result.End = time.Now()
	result.Elapsed = result.End.Sub(result.Start)

	if opErr != nil {
		m.transition(StateFailed)
	}
	m.transition(StateStopping)
	join()

	result.Series = session.Snapshots()
	result.InspectionErr = session.Err()
	// a sampler that missed the join may still be blocked on the inspector
	if inspector != nil && joined {
		final, err := inspector.Snapshot()
		if err != nil {
			log.WithField("pid", pid).Warnf("failed to take final snapshot: %v", err)
			if result.InspectionErr == nil {
				result.InspectionErr = err
			}
		} else {
			result.Final = &final
		}
	}

	if opErr != nil {
		m.transition(StateFailed)
		result.State = StateFailed
		result.Err = &OperationError{Elapsed: result.Elapsed, Err: opErr}
		return result, result.Err
	}
	m.transition(StateDone)
	result.State = StateDone
	return result, nil
}

func invoke(ctx context.Context, op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx)
}
