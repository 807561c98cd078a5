package common

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/goccy/go-json"

	"github.com/JustFiesta/DB-engine-comparison/monitor"
	"github.com/JustFiesta/DB-engine-comparison/workload"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Header lists the columns of the per-trial result file.
var Header = []string{
	"timestamp", "session", "dataset", "database", "query", "category", "trial", "status",
	"query_time", "rows",
	"cpu_percent", "cpu_percent_avg", "rss_bytes", "rss_peak_bytes", "read_bytes", "write_bytes", "open_files", "samples",
	"memory_percent", "disk_usage_percent", "disk_total", "disk_used", "disk_free",
	"db_size", "error",
}

// Record is one row of the result file: a single trial of a query.
type Record struct {
	Timestamp time.Time
	Session   string
	Dataset   string
	Database  string
	Query     string
	Category  workload.Category
	Trial     int
	Status    string
	QueryTime time.Duration
	Rows      int64
	Process   monitor.Summary
	Host      monitor.HostStats
	DBSize    uint64
	Error     string
}

func NewRecord(session, dataset, database string, query workload.Query, trial int, rows int64,
	result *monitor.Result, host monitor.HostStats, dbSize uint64) Record {
	record := Record{
		Timestamp: result.End,
		Session:   session,
		Dataset:   dataset,
		Database:  database,
		Query:     query.ID,
		Category:  query.Category,
		Trial:     trial,
		Status:    StatusOK,
		QueryTime: result.Elapsed,
		Rows:      rows,
		Process:   result.Summary(),
		Host:      host,
		DBSize:    dbSize,
	}
	if !result.Succeeded() {
		record.Status = StatusFailed
		if result.Err != nil {
			record.Error = result.Err.Error()
		}
	}
	return record
}

func (r Record) Fields() []string {
	var cpu, rss, readBytes, writeBytes, openFiles string
	if last := r.Process.Last; last != nil {
		cpu = formatFloat(last.CPUPercent)
		rss = strconv.FormatUint(last.RSS, 10)
		readBytes = strconv.FormatUint(last.ReadBytes, 10)
		writeBytes = strconv.FormatUint(last.WriteBytes, 10)
		openFiles = strconv.FormatInt(int64(last.OpenFiles), 10)
	}
	return []string{
		r.Timestamp.Format(time.RFC3339Nano),
		r.Session,
		r.Dataset,
		r.Database,
		r.Query,
		string(r.Category),
		strconv.Itoa(r.Trial),
		r.Status,
		formatFloat(r.QueryTime.Seconds()),
		strconv.FormatInt(r.Rows, 10),
		cpu,
		formatFloat(r.Process.CPUPercentAvg),
		rss,
		strconv.FormatUint(r.Process.RSSPeak, 10),
		readBytes,
		writeBytes,
		openFiles,
		strconv.Itoa(r.Process.Samples),
		formatFloat(r.Host.MemoryPercent),
		formatFloat(r.Host.DiskUsagePercent),
		strconv.FormatUint(r.Host.DiskTotal, 10),
		strconv.FormatUint(r.Host.DiskUsed, 10),
		strconv.FormatUint(r.Host.DiskFree, 10),
		strconv.FormatUint(r.DBSize, 10),
		r.Error,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ResultWriter appends records to a CSV file. The header is written only
// when the file is empty, so several sessions can share one file.
type ResultWriter struct {
	lock sync.Mutex
	path string
}

func NewResultWriter(path string) *ResultWriter {
	return &ResultWriter{path: path}
}

func (w *ResultWriter) Path() string {
	return w.path
}

func (w *ResultWriter) Append(records ...Record) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to open result file %s", w.path)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return errors.Wrapf(err, "failed to stat result file %s", w.path)
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(Header); err != nil {
			return errors.Wrap(err, "failed to save header")
		}
	}
	for _, record := range records {
		if err := writer.Write(record.Fields()); err != nil {
			return errors.Wrap(err, "failed to save record")
		}
	}
	writer.Flush()
	return errors.Wrapf(writer.Error(), "failed to write result file %s", w.path)
}

// SeriesEntry is one line of the JSON-lines sample log.
type SeriesEntry struct {
	Session  string             `json:"session"`
	Dataset  string             `json:"dataset"`
	Database string             `json:"database"`
	Query    string             `json:"query"`
	Trial    int                `json:"trial"`
	Status   string             `json:"status"`
	Elapsed  float64            `json:"elapsed_seconds"`
	Series   []monitor.Snapshot `json:"series"`
	Final    *monitor.Snapshot  `json:"final,omitempty"`
}

func NewSeriesEntry(record Record, result *monitor.Result) SeriesEntry {
	return SeriesEntry{
		Session:  record.Session,
		Dataset:  record.Dataset,
		Database: record.Database,
		Query:    record.Query,
		Trial:    record.Trial,
		Status:   record.Status,
		Elapsed:  result.Elapsed.Seconds(),
		Series:   result.Series,
		Final:    result.Final,
	}
}

// SeriesWriter appends the full sample series of every trial as JSON lines.
type SeriesWriter struct {
	lock sync.Mutex
	path string
}

func NewSeriesWriter(path string) *SeriesWriter {
	return &SeriesWriter{path: path}
}

func (w *SeriesWriter) Append(entry SeriesEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to encode series")
	}
	data = append(data, '\n')

	w.lock.Lock()
	defer w.lock.Unlock()
	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to open series file %s", w.path)
	}
	defer file.Close()
	if _, err := file.Write(data); err != nil {
		return errors.Wrapf(err, "failed to write series file %s", w.path)
	}
	return nil
}
