// Package sqldb runs the SQL form of the workload through database/sql.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"emperror.dev/errors"
	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/JustFiesta/DB-engine-comparison/common"
	"github.com/JustFiesta/DB-engine-comparison/monitor"
	"github.com/JustFiesta/DB-engine-comparison/workload"
)

type Engine string

const (
	EngineMariaDB Engine = "mariadb"
	EngineDolt    Engine = "dolt"
	EngineSQLite  Engine = "sqlite"
)

var ErrUnsupportedEngine = errors.NewPlain("unsupported sql engine")

type Options struct {
	Engine   Engine
	Host     string
	Port     int
	User     string
	Password string

	// Path is the data directory of the embedded engines. An empty path
	// opens SQLite in memory.
	Path         string
	Target       common.Target
	ProcessNames []string

	CommitName  string
	CommitEmail string
}

// OptionsFrom maps an engine section of the configuration to Options.
func OptionsFrom(engine Engine, config common.EngineConfig, path string) (Options, error) {
	target, err := common.ParseTarget(config.Target)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Engine:       engine,
		Host:         config.Host,
		Port:         config.Port,
		User:         config.User,
		Password:     config.Password,
		Path:         path,
		Target:       target,
		ProcessNames: config.ProcessNames,
		CommitName:   "DB Benchmark",
		CommitEmail:  "benchmark@localhost",
	}, nil
}

type SQLCUT struct {
	opts    Options
	db      *sql.DB
	dataset *workload.Dataset
}

var _ common.CUT = (*SQLCUT)(nil)

func New(opts Options) *SQLCUT {
	return &SQLCUT{opts: opts}
}

func (c *SQLCUT) Name() string {
	return string(c.opts.Engine)
}

func (c *SQLCUT) Open(ctx context.Context, dataset *workload.Dataset) error {
	if c.db != nil {
		return nil
	}
	driver, dsn, err := c.dataSource(dataset)
	if err != nil {
		return err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return errors.WrapWithDetails(err, "failed to open database", "engine", c.opts.Engine)
	}
	// 計測対象のクエリを常に同じ接続で実行する
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if c.opts.Engine == EngineDolt {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dataset.SQLDatabase)); err != nil {
			log.WithField("database", dataset.SQLDatabase).Debugf("create database: %v", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.WrapWithDetails(err, "failed to connect to database", "engine", c.opts.Engine)
	}
	c.db = db
	c.dataset = dataset
	return nil
}

func (c *SQLCUT) dataSource(dataset *workload.Dataset) (string, string, error) {
	switch c.opts.Engine {
	case EngineMariaDB:
		cfg := mysql.NewConfig()
		cfg.User = c.opts.User
		cfg.Passwd = c.opts.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.opts.Host, strconv.Itoa(c.opts.Port))
		cfg.DBName = dataset.SQLDatabase
		cfg.Timeout = 60 * time.Second
		cfg.ReadTimeout = 90 * time.Second
		cfg.WriteTimeout = 90 * time.Second
		return "mysql", cfg.FormatDSN(), nil
	case EngineDolt:
		path, err := common.CreateDirectory(c.opts.Path)
		if err != nil {
			return "", "", err
		}
		dsn := fmt.Sprintf("file://%s?commitname=%s&commitemail=%s&database=%s",
			path,
			url.QueryEscape(c.opts.CommitName),
			url.QueryEscape(c.opts.CommitEmail),
			url.QueryEscape(dataset.SQLDatabase),
		)
		return "dolt", dsn, nil
	case EngineSQLite:
		if c.opts.Path == "" {
			return "sqlite3", ":memory:", nil
		}
		path, err := common.CreateDirectory(c.opts.Path)
		if err != nil {
			return "", "", err
		}
		return "sqlite3", filepath.Join(path, dataset.SQLDatabase+".db"), nil
	}
	return "", "", errors.WithDetails(ErrUnsupportedEngine, "engine", c.opts.Engine)
}

func (c *SQLCUT) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return errors.Wrap(err, "failed to close database")
}

// Execute runs the query and drains every row.
func (c *SQLCUT) Execute(ctx context.Context, query workload.Query) (int64, error) {
	if c.db == nil {
		return 0, errors.New("database is not open")
	}
	rows, err := c.db.QueryContext(ctx, query.SQL)
	if err != nil {
		return 0, errors.WrapWithDetails(err, "query failed", "query", query.ID)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		count++
	}
	if err := rows.Err(); err != nil {
		return count, errors.WrapWithDetails(err, "failed to read rows", "query", query.ID)
	}
	return count, nil
}

func (c *SQLCUT) TargetPID(ctx context.Context) (int32, error) {
	switch c.opts.Target.Mode {
	case common.TargetPID:
		return c.opts.Target.PID, nil
	case common.TargetSelf:
		return int32(os.Getpid()), nil
	}
	if c.opts.Engine != EngineMariaDB {
		return 0, errors.Errorf("%s runs in-process and has no server to profile", c.opts.Engine)
	}

	if c.db != nil {
		var pidFile sql.NullString
		err := c.db.QueryRowContext(ctx, "SELECT @@pid_file").Scan(&pidFile)
		if err == nil && pidFile.Valid {
			pid, err := monitor.ReadPIDFile(pidFile.String)
			if err == nil {
				return pid, nil
			}
			log.Debugf("pid file is not readable, looking up process by name: %v", err)
		} else if err != nil {
			log.Debugf("cannot query pid file: %v", err)
		}
	}
	return monitor.FindProcessByName(c.opts.ProcessNames...)
}

func (c *SQLCUT) Size() uint64 {
	switch c.opts.Engine {
	case EngineMariaDB:
		if c.db == nil || c.dataset == nil {
			return 0
		}
		var size sql.NullInt64
		err := c.db.QueryRow(
			`SELECT SUM(data_length + index_length) FROM information_schema.tables WHERE table_schema = ?`,
			c.dataset.SQLDatabase).Scan(&size)
		if err != nil || !size.Valid || size.Int64 < 0 {
			return 0
		}
		return uint64(size.Int64)
	case EngineDolt, EngineSQLite:
		if c.opts.Path == "" {
			return 0
		}
		return uint64(common.FileOrDirectorySize(c.opts.Path))
	}
	return 0
}
