package common

import (
	"encoding/csv"
	"math"
	"os"
	"sort"
	"strconv"

	"emperror.dev/errors"
)

// 統計情報
type Stats struct {
	trials map[string][]float64
}

func NewStats() *Stats {
	return &Stats{
		trials: make(map[string][]float64),
	}
}

func (s *Stats) Add(key string, value float64) {
	s.trials[key] = append(s.trials[key], value)
}

func (s *Stats) Count(key string) int {
	return len(s.trials[key])
}

// Calculate returns the mean, the sample standard deviation and the number of trials.
func (s *Stats) Calculate(key string) (float64, float64, int) {
	trials, ok := s.trials[key]
	if !ok || len(trials) == 0 {
		return 0, 0, len(trials)
	}
	sum := 0.0
	for _, v := range trials {
		sum += v
	}
	mean := sum / float64(len(trials))
	sumSquaredDiff := 0.0
	for _, v := range trials {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	stddev := 0.0
	if len(trials)-1 >= 1 {
		variance := sumSquaredDiff / float64(len(trials)-1)
		stddev = math.Sqrt(variance)
	}
	return mean, stddev, len(trials)
}

func (s *Stats) IsCVSufficient(key string, cv float64) bool {
	mean, stddev, count := s.Calculate(key)
	if count <= 2 || mean == 0 {
		return false
	}
	return stddev/mean < cv
}

func (s *Stats) MaxRelative() float64 {
	relative := math.NaN()
	for key := range s.trials {
		mean, stddev, _ := s.Calculate(key)
		if mean == 0 {
			continue
		}
		r := stddev / mean
		if math.IsNaN(relative) || r > relative {
			relative = r
		}
	}
	return relative
}

// Save writes one row per key: the key followed by every recorded trial.
func (s *Stats) Save(path, column1, column2 string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to save statistics")
	}
	defer file.Close()
	writer := csv.NewWriter(file)

	if err := writer.Write([]string{column1, column2}); err != nil {
		return errors.Wrap(err, "failed to save header")
	}

	keys := make([]string, 0, len(s.trials))
	for key := range s.trials {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		values := s.trials[key]
		record := make([]string, len(values)+1)
		record[0] = key
		for i, value := range values {
			record[i+1] = strconv.FormatFloat(value, 'f', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "failed to save data")
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "failed to flush statistics")
}
