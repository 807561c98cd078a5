package monitor

import (
	"context"
	"os"
	"runtime"
	"sync"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	lock      sync.Mutex
	calls     int
	failAfter int
	block     chan struct{}
}

func (f *fakeInspector) Snapshot() (Snapshot, error) {
	f.lock.Lock()
	f.calls++
	calls := f.calls
	block := f.block
	f.lock.Unlock()

	if block != nil && calls > 1 {
		<-block
	}
	if f.failAfter > 0 && calls > f.failAfter {
		return Snapshot{}, errors.Wrap(ErrProcessInspection, "process exited")
	}
	return Snapshot{
		Time:       time.Now(),
		CPUPercent: float64(calls),
		RSS:        uint64(calls * 1024),
		OpenFiles:  int32(calls),
	}, nil
}

func (f *fakeInspector) Calls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls
}

type fakeProvider struct {
	inspector Inspector
	err       error
}

func (p fakeProvider) Inspect(pid int32) (Inspector, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.inspector, nil
}

func TestRunner_Measure_SleepingOperation(t *testing.T) {
	inspector := &fakeInspector{}
	runner := NewRunner(WithProvider(fakeProvider{inspector: inspector}), WithInterval(time.Second))

	result, err := runner.Measure(context.Background(), 42, func(ctx context.Context) error {
		time.Sleep(3 * time.Second)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.True(t, result.Succeeded())
	assert.GreaterOrEqual(t, result.Elapsed, 3*time.Second)
	assert.Less(t, result.Elapsed, 3300*time.Millisecond)
	assert.Equal(t, result.End.Sub(result.Start), result.Elapsed)
	assert.GreaterOrEqual(t, len(result.Series), 2)
	assert.LessOrEqual(t, len(result.Series), 3)
	require.NotNil(t, result.Final)
	assert.NoError(t, result.InspectionErr)
	assert.False(t, result.session.Running())
}

func TestRunner_Measure_ImmediateFailure(t *testing.T) {
	inspector := &fakeInspector{}
	runner := NewRunner(WithProvider(fakeProvider{inspector: inspector}), WithInterval(time.Second))
	cause := errors.New("syntax error")

	result, err := runner.Measure(context.Background(), 42, func(ctx context.Context) error {
		return cause
	})
	require.Error(t, err)

	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, result.Elapsed, opErr.Elapsed)

	assert.Equal(t, StateFailed, result.State)
	assert.False(t, result.Succeeded())
	assert.Equal(t, err, result.Err)
	assert.Empty(t, result.Series)
	assert.False(t, result.session.Running())
}

func TestRunner_Measure_PanickingOperation(t *testing.T) {
	runner := NewRunner(WithProvider(fakeProvider{inspector: &fakeInspector{}}), WithInterval(10*time.Millisecond))

	result, err := runner.Measure(context.Background(), 42, func(ctx context.Context) error {
		panic("driver exploded")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver exploded")
	assert.Equal(t, StateFailed, result.State)
	assert.False(t, result.session.Running())
}

func TestRunner_Measure_UnresolvableProcess(t *testing.T) {
	runner := NewRunner(WithInterval(10 * time.Millisecond))

	result, err := runner.Measure(context.Background(), -1, func(ctx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Empty(t, result.Series)
	assert.Nil(t, result.Final)
	assert.True(t, errors.Is(result.InspectionErr, ErrProcessNotFound))
	assert.False(t, result.session.Running())
}

func TestRunner_Measure_ProcessVanishes(t *testing.T) {
	inspector := &fakeInspector{failAfter: 2}
	runner := NewRunner(WithProvider(fakeProvider{inspector: inspector}), WithInterval(10*time.Millisecond))

	result, err := runner.Measure(context.Background(), 42, func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Len(t, result.Series, 2)
	assert.True(t, errors.Is(result.InspectionErr, ErrProcessInspection))
	assert.Nil(t, result.Final)
}

func TestRunner_Measure_NoSamplesAfterStop(t *testing.T) {
	interval := 10 * time.Millisecond
	inspector := &fakeInspector{}
	runner := NewRunner(WithProvider(fakeProvider{inspector: inspector}), WithInterval(interval))

	result, err := runner.Measure(context.Background(), 42, func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	// sampler calls, at most one discarded in-flight read, and the final snapshot
	calls := inspector.Calls()
	assert.GreaterOrEqual(t, calls, len(result.Series)+1)
	assert.LessOrEqual(t, calls, len(result.Series)+2)

	time.Sleep(5 * interval)
	assert.Equal(t, calls, inspector.Calls())
	assert.False(t, result.session.Running())
}

func TestRunner_Measure_SeriesIsOrdered(t *testing.T) {
	runner := NewRunner(WithProvider(fakeProvider{inspector: &fakeInspector{}}), WithInterval(5*time.Millisecond))

	result, err := runner.Measure(context.Background(), 42, func(ctx context.Context) error {
		time.Sleep(60 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Series)

	for i := 1; i < len(result.Series); i++ {
		assert.False(t, result.Series[i].Time.Before(result.Series[i-1].Time))
		assert.Equal(t, result.Series[i-1].CPUPercent+1, result.Series[i].CPUPercent)
	}
}

func TestRunner_Measure_JoinTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	inspector := &fakeInspector{block: release}
	runner := NewRunner(
		WithProvider(fakeProvider{inspector: inspector}),
		WithInterval(5*time.Millisecond),
		WithJoinTimeout(50*time.Millisecond),
	)

	start := time.Now()
	result, err := runner.Measure(context.Background(), 42, func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StateDone, result.State)
	assert.Len(t, result.Series, 1)
	assert.Nil(t, result.Final)
}

func TestRunner_Measure_CurrentProcess(t *testing.T) {
	runner := NewRunner(WithInterval(20 * time.Millisecond))

	result, err := runner.Measure(context.Background(), int32(os.Getpid()), func(ctx context.Context) error {
		deadline := time.Now().Add(100 * time.Millisecond)
		for time.Now().Before(deadline) {
		}
		return nil
	})
	require.NoError(t, err)
	if result.InspectionErr != nil {
		t.Skipf("process inspection unavailable: %v", result.InspectionErr)
	}

	assert.NotEmpty(t, result.Series)
	require.NotNil(t, result.Final)
	assert.Greater(t, result.Final.RSS, uint64(0))
	assert.Greater(t, result.Final.OpenFiles, int32(0))
}

func TestRunner_Measure_BusyProcessFirstSample(t *testing.T) {
	runner := NewRunner(WithInterval(200 * time.Millisecond))

	result, err := runner.Measure(context.Background(), int32(os.Getpid()), func(ctx context.Context) error {
		deadline := time.Now().Add(500 * time.Millisecond)
		for time.Now().Before(deadline) {
		}
		return nil
	})
	require.NoError(t, err)
	if result.InspectionErr != nil {
		t.Skipf("process inspection unavailable: %v", result.InspectionErr)
	}

	require.NotEmpty(t, result.Series)
	assert.Greater(t, result.Series[0].CPUPercent, 0.0)
	assert.Greater(t, result.Summary().CPUPercentAvg, 0.0)
}

func TestRunner_Measure_GoexitStillJoins(t *testing.T) {
	inspector := &fakeInspector{}
	runner := NewRunner(WithProvider(fakeProvider{inspector: inspector}), WithInterval(5*time.Millisecond))

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_, _ = runner.Measure(context.Background(), 42, func(ctx context.Context) error {
			time.Sleep(30 * time.Millisecond)
			runtime.Goexit()
			return nil
		})
	}()
	<-finished

	calls := inspector.Calls()
	assert.Greater(t, calls, 0)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, inspector.Calls())
}

func TestSampler_Run_FirstReadAfterOneInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inspector := &fakeInspector{}
	session := NewSession(42)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	NewSampler(time.Second).Run(ctx, inspector, session)

	assert.Equal(t, 0, inspector.Calls())
	assert.Equal(t, 0, session.Len())
}

func TestSampler_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inspector := &fakeInspector{}
	session := NewSession(42)
	NewSampler(time.Millisecond).Run(ctx, inspector, session)

	assert.Equal(t, 0, session.Len())
	assert.Equal(t, 0, inspector.Calls())
	assert.False(t, session.Running())
}

func TestSession_SnapshotsIsCopy(t *testing.T) {
	session := NewSession(42)
	session.append(Snapshot{RSS: 1})
	session.append(Snapshot{RSS: 2})

	snapshots := session.Snapshots()
	snapshots[0].RSS = 100

	assert.Equal(t, uint64(1), session.Snapshots()[0].RSS)
	assert.Equal(t, 2, session.Len())
}

func TestCPUPercent(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		prevCPU  float64
		cpu      float64
		elapsed  time.Duration
		expected float64
	}{
		{name: "one full core", prevCPU: 1, cpu: 2, elapsed: time.Second, expected: 100},
		{name: "half a core", prevCPU: 0, cpu: 1, elapsed: 2 * time.Second, expected: 50},
		{name: "two cores", prevCPU: 0, cpu: 2, elapsed: time.Second, expected: 200},
		{name: "no wall time", prevCPU: 0, cpu: 1, elapsed: 0, expected: 0},
		{name: "counter went backwards", prevCPU: 3, cpu: 1, elapsed: time.Second, expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cpuPercent(tt.prevCPU, tt.cpu, now, now.Add(tt.elapsed))
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "sampling_and_running", StateSamplingAndRunning.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(99)", State(99).String())
}

func TestResult_Summary(t *testing.T) {
	result := &Result{
		Series: []Snapshot{
			{CPUPercent: 10, RSS: 100},
			{CPUPercent: 30, RSS: 300},
			{CPUPercent: 20, RSS: 200},
		},
	}
	s := result.Summary()
	assert.Equal(t, 3, s.Samples)
	assert.InDelta(t, 20.0, s.CPUPercentAvg, 1e-9)
	assert.Equal(t, uint64(300), s.RSSPeak)
	require.NotNil(t, s.Last)
	assert.Equal(t, uint64(200), s.Last.RSS)

	result.Final = &Snapshot{CPUPercent: 5, RSS: 400}
	s = result.Summary()
	assert.Equal(t, uint64(400), s.RSSPeak)
	assert.Equal(t, uint64(400), s.Last.RSS)

	empty := (&Result{}).Summary()
	assert.Nil(t, empty.Last)
	assert.Zero(t, empty.CPUPercentAvg)
}

func TestReadPIDFile(t *testing.T) {
	dir := t.TempDir()
	valid := dir + "/valid.pid"
	require.NoError(t, os.WriteFile(valid, []byte("4242\n"), 0644))
	pid, err := ReadPIDFile(valid)
	require.NoError(t, err)
	assert.Equal(t, int32(4242), pid)

	invalid := dir + "/invalid.pid"
	require.NoError(t, os.WriteFile(invalid, []byte("mysqld"), 0644))
	_, err = ReadPIDFile(invalid)
	assert.Error(t, err)

	_, err = ReadPIDFile(dir + "/missing.pid")
	assert.Error(t, err)
}

func TestFindProcessByName_Unknown(t *testing.T) {
	_, err := FindProcessByName("no-such-process-name-for-tests")
	assert.Error(t, err)
}
