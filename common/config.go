package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/BurntSushi/toml"
)

// ベンチマーク設定
const (
	DefaultMinTrials   = 3    // 最小試行回数
	DefaultMaxTrials   = 10   // 最大試行回数
	DefaultCVThreshold = 0.05 // 標準偏差/平均値のしきい値 (5%)
	DefaultTimeout     = 10 * time.Minute
	DefaultResultDir   = "." // デフォルトの結果出力ディレクトリ
	DefaultResultFile  = "system_stats"
)

// EngineConfig holds the connection settings of one database engine.
type EngineConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	URI      string `toml:"uri"`

	// Target selects the process to profile: "self", "server" or a numeric pid.
	Target       string   `toml:"target"`
	ProcessNames []string `toml:"process_names"`
}

// コマンドライン引数
type Config struct {
	WorkDir     string        `toml:"work_dir"`
	ResultDir   string        `toml:"result_dir"`
	SessionID   string        `toml:"session"`
	Timeout     time.Duration `toml:"timeout"`
	Interval    time.Duration `toml:"interval"`
	JoinTimeout time.Duration `toml:"join_timeout"`
	MinTrials   int           `toml:"min_trials"`
	MaxTrials   int           `toml:"max_trials"`
	CVThreshold float64       `toml:"cv_threshold"`
	DiskPath    string        `toml:"disk_path"`
	Engines     []string      `toml:"engines"`
	Queries     []string      `toml:"queries"`
	// Series enables the JSON-lines log of every sample.
	Series bool `toml:"series"`

	MariaDB EngineConfig `toml:"mariadb"`
	MongoDB EngineConfig `toml:"mongodb"`
	Dolt    EngineConfig `toml:"dolt"`
	SQLite  EngineConfig `toml:"sqlite"`
}

func DefaultConfig() *Config {
	return &Config{
		WorkDir:     os.TempDir(),
		ResultDir:   DefaultResultDir,
		SessionID:   time.Now().Format("20060102150405"),
		Timeout:     DefaultTimeout,
		Interval:    time.Second,
		MinTrials:   DefaultMinTrials,
		MaxTrials:   DefaultMaxTrials,
		CVThreshold: DefaultCVThreshold,
		DiskPath:    "/",
		Engines:     []string{"mariadb", "mongodb"},
		Series:      true,
		MariaDB: EngineConfig{
			Host:         "localhost",
			Port:         3306,
			User:         "mariadb",
			Target:       "server",
			ProcessNames: []string{"mariadbd", "mysqld"},
		},
		MongoDB: EngineConfig{
			URI:          "mongodb://localhost:27017/",
			Target:       "server",
			ProcessNames: []string{"mongod"},
		},
		Dolt:   EngineConfig{Target: "self"},
		SQLite: EngineConfig{Target: "self"},
	}
}

// LoadFile overlays the settings of a TOML file on the config.
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return errors.Wrapf(err, "failed to load config file %s", path)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.MinTrials < 1 {
		return errors.Errorf("min trials must be positive: %d", c.MinTrials)
	}
	if c.MaxTrials < c.MinTrials {
		return errors.Errorf("max trials (%d) must not be less than min trials (%d)", c.MaxTrials, c.MinTrials)
	}
	if c.CVThreshold <= 0 {
		return errors.Errorf("cv threshold must be positive: %v", c.CVThreshold)
	}
	if c.Interval <= 0 {
		return errors.Errorf("sampling interval must be positive: %v", c.Interval)
	}
	if len(c.Engines) == 0 {
		return errors.New("no engine selected")
	}
	return nil
}

func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.WorkDir, fmt.Sprintf("db_benchmark-%s.db", name))
}

func (c *Config) RemoveDatabase(name string) error {
	return os.RemoveAll(c.DatabasePath(name))
}

func (c *Config) ResultFile(id string) string {
	return filepath.Join(c.ResultDir, fmt.Sprintf("%s-%s.csv", c.SessionID, id))
}

func (c *Config) SeriesFile() string {
	return filepath.Join(c.ResultDir, fmt.Sprintf("%s-series.jsonl", c.SessionID))
}

type TargetMode int

const (
	TargetSelf TargetMode = iota
	TargetServer
	TargetPID
)

// Target identifies the process whose resource usage is sampled.
type Target struct {
	Mode TargetMode
	PID  int32
}

func ParseTarget(value string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "self":
		return Target{Mode: TargetSelf}, nil
	case "server":
		return Target{Mode: TargetServer}, nil
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	if err != nil || pid <= 0 {
		return Target{}, errors.Errorf("invalid target %q: expected self, server or a pid", value)
	}
	return Target{Mode: TargetPID, PID: int32(pid)}, nil
}

func CreateDirectory(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to get absolute path for '%s'", path)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create directory '%s'", absPath)
	}
	return absPath, nil
}
