package common

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"

	"github.com/JustFiesta/DB-engine-comparison/monitor"
	"github.com/JustFiesta/DB-engine-comparison/workload"
)

// CUT is a database engine under test.
type CUT interface {
	Name() string
	Open(ctx context.Context, dataset *workload.Dataset) error
	Close() error
	// TargetPID returns the process whose resource usage represents the engine.
	TargetPID(ctx context.Context) (int32, error)
	// Execute runs the query to completion and returns the number of rows or documents read.
	Execute(ctx context.Context, query workload.Query) (int64, error)
	// Size returns the on-disk size of the database, or 0 when it cannot be observed.
	Size() uint64
}

// Sink receives every measured trial.
type Sink struct {
	Results *ResultWriter
	Series  *SeriesWriter
}

func (s *Sink) write(record Record, result *monitor.Result) error {
	if s == nil {
		return nil
	}
	if s.Results != nil {
		if err := s.Results.Append(record); err != nil {
			return err
		}
	}
	if s.Series != nil {
		if err := s.Series.Append(NewSeriesEntry(record, result)); err != nil {
			return err
		}
	}
	return nil
}

// Summary is the outcome of one dataset on one engine.
type Summary struct {
	Trials   int
	Failures int
	Stats    *Stats
}

// MaxCV is the largest stddev/mean over all queries, NaN when nothing succeeded.
func (s *Summary) MaxCV() float64 {
	return s.Stats.MaxRelative()
}

// クエリ性能のベンチマーク
func Benchmark(
	ctx context.Context,
	config *Config,
	dataset *workload.Dataset,
	cut CUT,
	runner *monitor.Runner,
	sink *Sink,
) (*Summary, error) {
	fmt.Println(time.Now().Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("=== Query Benchmark (%s / %s) ===\n", dataset.Name, cut.Name())

	logger := log.WithFields(log.Fields{"dataset": dataset.Name, "database": cut.Name()})

	if err := cut.Open(ctx, dataset); err != nil {
		return nil, errors.WrapIfWithDetails(err, "failed to open database", "database", cut.Name())
	}
	defer func() {
		if err := cut.Close(); err != nil {
			logger.Warnf("failed to close database: %v", err)
		}
	}()

	pid, err := cut.TargetPID(ctx)
	if err != nil {
		logger.Warnf("target process is not available, resource usage will be empty: %v", err)
		pid = 0
	} else {
		logger.Infof("profiling process %d", pid)
	}

	queries := dataset.Filter(config.Queries)
	if len(queries) == 0 {
		logger.Warn("no query selected")
	}

	summary := &Summary{Stats: NewStats()}
	timeComplexity := summary.Stats
	first := true
	for _, query := range queries {
		timer := NewExpirationTimer(config.Timeout, 10, config.MaxTrials, 10)
		if first {
			timer.HeadingMS()
			first = false
		}

		var peakRSS uint64
		for i := 0; i < config.MaxTrials; i++ {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			runtime.GC()
			var rows int64
			result, err := runner.Measure(ctx, pid, func(ctx context.Context) error {
				n, err := cut.Execute(ctx, query)
				rows = n
				return err
			})

			host, hostErr := monitor.ReadHostStats(config.DiskPath)
			if hostErr != nil {
				logger.Debugf("host statistics unavailable: %v", hostErr)
			}
			record := NewRecord(config.SessionID, dataset.Name, cut.Name(), query, i+1, rows, result, host, cut.Size())
			if err := sink.write(record, result); err != nil {
				return summary, err
			}
			timer.CarriedOut(1)
			if s := result.Summary(); s.RSSPeak > peakRSS {
				peakRSS = s.RSSPeak
			}

			if err != nil {
				summary.Failures++
				logger.WithField("query", query.ID).Errorf("query failed: %v", err)
				break
			}
			if result.InspectionErr != nil {
				logger.WithField("query", query.ID).Warnf("sampling stopped early: %v", result.InspectionErr)
			}
			timeComplexity.Add(query.ID, float64(result.Elapsed.Nanoseconds())/1000.0/1000.0)

			if timeComplexity.Count(query.ID) >= config.MinTrials && timeComplexity.IsCVSufficient(query.ID, config.CVThreshold) {
				break
			}
			if timer.Expired() {
				fmt.Println("** TIMED OUT **")
				break
			}
		}

		summary.Trials += timer.Trials()
		mean, stddev, _ := timeComplexity.Calculate(query.ID)
		timer.SummaryMS(query.ID, mean, stddev, peakRSS)
	}

	if err := timeComplexity.Save(config.ResultFile(dataset.Key+"-"+cut.Name()), "QUERY", "MILLISECONDS"); err != nil {
		return summary, err
	}
	return summary, nil
}

// システム情報の表示
func PrintSystemInfo(title string, config *Config) {
	fmt.Printf("=== %s ===\n", title)
	fmt.Printf("Engines: %v\n", config.Engines)
	fmt.Printf("Working directory: %s\n", config.WorkDir)
	fmt.Printf("Result directory: %s\n", config.ResultDir)
	fmt.Printf("Session ID: %s\n", config.SessionID)
	fmt.Printf("Max trials: %d\n", config.MaxTrials)
	fmt.Printf("Min trials: %d\n", config.MinTrials)
	fmt.Printf("Timeout per query: %v\n", config.Timeout)
	fmt.Printf("StdDev threshold: %.1f%%\n", config.CVThreshold*100)
	fmt.Printf("Sampling interval: %v\n", config.Interval)
	fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
	fmt.Println()
}
