package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/JustFiesta/DB-engine-comparison/common"
	"github.com/JustFiesta/DB-engine-comparison/monitor"
	"github.com/JustFiesta/DB-engine-comparison/workload"
)

var runFlags configFlags

var runCmd = &cobra.Command{
	Use:   "run [dataset...]",
	Short: "Run the query benchmark",
	Long:  "Run every query of the given datasets (default all) on every selected engine.",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := runFlags.load(cmd.Flags())
		if err != nil {
			return err
		}
		datasets, err := selectDatasets(args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		common.PrintSystemInfo("DB Engine Comparison Benchmark", config)
		runner := monitor.NewRunner(
			monitor.WithInterval(config.Interval),
			monitor.WithJoinTimeout(config.JoinTimeout),
		)
		sink := &common.Sink{
			Results: common.NewResultWriter(filepath.Join(config.ResultDir, common.DefaultResultFile+".csv")),
		}
		if config.Series {
			sink.Series = common.NewSeriesWriter(config.SeriesFile())
		}

		failed := 0
		for _, dataset := range datasets {
			for _, engine := range config.Engines {
				cut, err := newCUT(engine, config)
				if err != nil {
					return err
				}
				summary, err := common.Benchmark(ctx, config, dataset, cut, runner, sink)
				if ctx.Err() != nil {
					return errors.Wrap(ctx.Err(), "benchmark interrupted")
				}
				if err != nil {
					failed++
					log.WithFields(log.Fields{"dataset": dataset.Name, "database": engine}).Errorf("benchmark failed: %v", err)
					continue
				}
				fields := log.Fields{
					"dataset":  dataset.Name,
					"database": engine,
					"trials":   summary.Trials,
					"failures": summary.Failures,
				}
				if maxCV := summary.MaxCV(); !math.IsNaN(maxCV) {
					fields["max_cv"] = fmt.Sprintf("%.1f%%", maxCV*100)
				}
				log.WithFields(fields).Info("benchmark finished")
				fmt.Println()
			}
		}

		fmt.Printf("Results: %s\n", sink.Results.Path())
		if failed > 0 {
			return errors.Errorf("%d of %d benchmarks could not run", failed, len(datasets)*len(config.Engines))
		}
		return nil
	},
}

func selectDatasets(names []string) ([]*workload.Dataset, error) {
	if len(names) == 0 {
		return workload.All()
	}
	datasets := make([]*workload.Dataset, 0, len(names))
	for _, name := range names {
		ds, err := workload.Load(name)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

func init() {
	runFlags.register(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}
