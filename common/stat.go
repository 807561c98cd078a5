package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
)

// ExpirationTimer tracks the trials of one query against a time budget.
type ExpirationTimer struct {
	start          time.Time
	deadline       time.Duration
	lastNoticed    time.Time
	noticeInterval time.Duration
	maxTrials      int
	current        int
	interval       int
}

func NewExpirationTimer(deadline time.Duration, minutes int, maxTrials int, div int) *ExpirationTimer {
	start := time.Now()
	interval := maxTrials / div
	if interval < 1 {
		interval = 1
	}
	return &ExpirationTimer{
		start:          start,
		deadline:       deadline,
		lastNoticed:    start,
		noticeInterval: time.Duration(minutes) * time.Minute,
		maxTrials:      maxTrials,
		current:        0,
		interval:       interval,
	}
}

func (et *ExpirationTimer) Expired() bool {
	return et.deadline > 0 && time.Since(et.start) >= et.deadline
}

func (et *ExpirationTimer) Elapsed() time.Duration {
	return time.Since(et.start)
}

func (et *ExpirationTimer) Trials() int {
	return et.current
}

// EstimatedEndTime extrapolates the mean trial time to the maximum number of trials.
func (et *ExpirationTimer) EstimatedEndTime() time.Time {
	if et.current == 0 {
		return et.start.Add(et.deadline)
	}

	avgPerTrial := et.Elapsed() / time.Duration(et.current)
	totalEstimate := avgPerTrial * time.Duration(et.maxTrials)
	if et.deadline > 0 && totalEstimate > et.deadline {
		totalEstimate = et.deadline
	}
	return et.start.Add(totalEstimate)
}

func (et *ExpirationTimer) ETA() string {
	estimatedEnd := et.EstimatedEndTime()
	now := time.Now()
	diff := estimatedEnd.Sub(now)

	var format string
	if estimatedEnd.Format("2006-01-02") != now.Format("2006-01-02") {
		format = "01-02 15:04"
	} else if diff.Hours() >= 1 {
		format = "15:04"
	} else {
		format = "15:04:05"
	}

	eta := estimatedEnd.Format(format)
	return fmt.Sprintf("%s (%s)", eta, remaining(diff))
}

func remaining(diff time.Duration) string {
	totalSeconds := int(diff.Seconds())
	if totalSeconds < 0 {
		totalSeconds = 0
	}

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm%02ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// CarriedOut records finished trials and reports whether progress should be printed.
func (et *ExpirationTimer) CarriedOut(amount int) bool {
	current := et.current
	et.current += amount

	shouldNotify := (time.Since(et.lastNoticed) >= et.noticeInterval) ||
		et.current >= et.maxTrials ||
		(current != 0 && (et.current/et.interval != current/et.interval))

	if shouldNotify {
		et.lastNoticed = time.Now()
		return true
	}

	return false
}

func (et *ExpirationTimer) HeadingMS() {
	columns := []Column{
		{Type: Query},
		{Type: MeanMS},
		{Type: StdDevMS},
		{Type: CV},
		{Type: Trials},
		{Type: PeakRSS},
		{Type: ETA},
	}
	et.printHeading(columns)
}

func (et *ExpirationTimer) SummaryMS(query string, mean, stdDev float64, peakRSS uint64) {
	cv := 0.0
	if mean > 0 {
		cv = stdDev / mean * 100.0
	}
	columns := []Column{
		{Type: Query, StringVal: query},
		{Type: MeanMS, Float64Val: mean},
		{Type: StdDevMS, Float64Val: stdDev},
		{Type: CV, Float64Val: cv},
		{Type: Trials, IntVal: et.current},
		{Type: PeakRSS, UInt64Val: peakRSS},
		{Type: ETA, StringVal: et.ETA()},
	}
	et.printSummary(columns)
}

func (et *ExpirationTimer) printHeading(columns []Column) {
	headings := make([]string, len(columns))
	lines := make([]string, len(columns))

	for i, col := range columns {
		headings[i] = col.Heading()
		lines[i] = col.Line()
	}

	fmt.Println(strings.Join(headings, " "))
	fmt.Println(strings.Join(lines, " "))
}

func (et *ExpirationTimer) printSummary(columns []Column) {
	formatted := make([]string, len(columns))

	for i, col := range columns {
		formatted[i] = col.Format()
	}

	fmt.Println(strings.Join(formatted, " "))
}

type ColumnType int

const (
	Query ColumnType = iota
	MeanMS
	StdDevMS
	CV
	Trials
	PeakRSS
	ETA
)

// Column is a fixed-width cell of the progress table.
type Column struct {
	Type       ColumnType
	UInt64Val  uint64
	Float64Val float64
	IntVal     int
	StringVal  string
}

func (c *Column) Label() string {
	switch c.Type {
	case Query:
		return "Query"
	case MeanMS:
		return "Mean[ms]"
	case StdDevMS:
		return "StdDev[ms]"
	case CV:
		return "CV[%]"
	case Trials:
		return "Trials"
	case PeakRSS:
		return "PeakRSS"
	case ETA:
		return "ETA"
	default:
		return ""
	}
}

func (c *Column) Width() int {
	labelLen := len(c.Label())
	var minWidth int

	switch c.Type {
	case Query:
		minWidth = 30
	case MeanMS:
		minWidth = 11
	case StdDevMS:
		minWidth = 10
	case CV:
		minWidth = 6
	case Trials:
		minWidth = 6
	case PeakRSS:
		minWidth = 10
	case ETA:
		minWidth = 18
	default:
		minWidth = labelLen
	}

	if labelLen > minWidth {
		return labelLen
	}
	return minWidth
}

// Heading returns the label centered in the column width.
func (c *Column) Heading() string {
	label := c.Label()
	width := c.Width()

	padding := width - len(label)
	leftPad := padding / 2
	rightPad := padding - leftPad

	return strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad)
}

func (c *Column) Line() string {
	return strings.Repeat("-", c.Width())
}

func (c *Column) Format() string {
	width := c.Width()

	switch c.Type {
	case Query:
		value := c.StringVal
		if len(value) > width {
			value = value[:width-1] + "~"
		}
		return fmt.Sprintf("%-*s", width, value)
	case MeanMS, StdDevMS:
		return fmt.Sprintf("%*.3f", width, c.Float64Val)
	case CV:
		return fmt.Sprintf("%*.1f", width, c.Float64Val)
	case Trials:
		return fmt.Sprintf("%*d", width, c.IntVal)
	case PeakRSS:
		return fmt.Sprintf("%*s", width, datasize.ByteSize(c.UInt64Val).HumanReadable())
	case ETA:
		return fmt.Sprintf("%-*s", width, c.StringVal)
	default:
		return fmt.Sprintf("%*s", width, "")
	}
}
