package cmd

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/JustFiesta/DB-engine-comparison/common"
	"github.com/JustFiesta/DB-engine-comparison/environ"
)

// configFlags are the flags shared by the commands that need a Config.
type configFlags struct {
	file        string
	workDir     string
	resultDir   string
	sessionID   string
	timeout     time.Duration
	interval    time.Duration
	joinTimeout time.Duration
	minTrials   int
	maxTrials   int
	cvThreshold float64
	engines     []string
	queries     []string
}

func (f *configFlags) register(flags *pflag.FlagSet) {
	defaults := common.DefaultConfig()
	flags.StringVarP(&f.file, "config", "c", environ.GetString("DBBENCH_CONFIG", ""), "TOML configuration file")
	flags.StringVarP(&f.workDir, "dir", "d", defaults.WorkDir, "Database directory used by the embedded engines")
	flags.StringVarP(&f.resultDir, "output", "o", defaults.ResultDir, "Directory to save result CSV files")
	flags.StringVarP(&f.sessionID, "session", "s", defaults.SessionID, "Session name for result file naming")
	flags.DurationVar(&f.timeout, "timeout", defaults.Timeout, "Time budget per query (e.g., 30s, 5m)")
	flags.DurationVar(&f.interval, "interval", defaults.Interval, "Resource sampling interval")
	flags.DurationVar(&f.joinTimeout, "join-timeout", 0, "How long to wait for the sampler to stop (default 3x interval)")
	flags.IntVar(&f.minTrials, "min-trials", defaults.MinTrials, "Minimum number of trials per query")
	flags.IntVar(&f.maxTrials, "max-trials", defaults.MaxTrials, "Maximum number of trials per query")
	flags.Float64Var(&f.cvThreshold, "cv", defaults.CVThreshold, "Stop once stddev/mean of the query time is below this value")
	flags.StringSliceVar(&f.engines, "engines", defaults.Engines, "Engines to benchmark: mariadb, mongodb, dolt, sqlite")
	flags.StringSliceVar(&f.queries, "queries", nil, "Query ids to run (default all)")
}

// load builds the Config: defaults, then the TOML file, then the environment,
// then every flag given explicitly on the command line.
func (f *configFlags) load(flags *pflag.FlagSet) (*common.Config, error) {
	config := common.DefaultConfig()
	if f.file != "" {
		if err := config.LoadFile(f.file); err != nil {
			return nil, err
		}
	}

	config.MariaDB.Password = environ.GetString("DBBENCH_MARIADB_PASSWORD", config.MariaDB.Password)
	config.MongoDB.URI = environ.GetString("DBBENCH_MONGODB_URI", config.MongoDB.URI)
	config.Engines = environ.GetStrings("DBBENCH_ENGINES", config.Engines)
	config.Interval = environ.GetDuration("DBBENCH_INTERVAL", config.Interval)
	config.MaxTrials = environ.GetInt("DBBENCH_MAX_TRIALS", config.MaxTrials)
	config.Series = environ.GetBool("DBBENCH_SERIES", config.Series)

	if flags.Changed("dir") {
		config.WorkDir = f.workDir
	}
	if flags.Changed("output") {
		config.ResultDir = f.resultDir
	}
	if flags.Changed("session") {
		config.SessionID = f.sessionID
	}
	if flags.Changed("timeout") {
		config.Timeout = f.timeout
	}
	if flags.Changed("interval") {
		config.Interval = f.interval
	}
	if flags.Changed("join-timeout") {
		config.JoinTimeout = f.joinTimeout
	}
	if flags.Changed("min-trials") {
		config.MinTrials = f.minTrials
	}
	if flags.Changed("max-trials") {
		config.MaxTrials = f.maxTrials
	}
	if flags.Changed("cv") {
		config.CVThreshold = f.cvThreshold
	}
	if flags.Changed("engines") {
		config.Engines = f.engines
	}
	if flags.Changed("queries") {
		config.Queries = f.queries
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	var err error
	if config.WorkDir, err = common.CreateDirectory(config.WorkDir); err != nil {
		return nil, err
	}
	if config.ResultDir, err = common.CreateDirectory(config.ResultDir); err != nil {
		return nil, err
	}
	return config, nil
}
