// Package workload holds the hand-written benchmark queries. Every query is given
// both as SQL for the relational engines and as a find filter or aggregation
// pipeline for the document engine, over the same logical dataset.
package workload

import (
	"embed"
	"path"
	"sort"
	"strings"

	"emperror.dev/errors"
	"gopkg.in/yaml.v3"
)

//go:embed datasets/*.yaml
var datasets embed.FS

var ErrUnknownDataset = errors.NewPlain("unknown dataset")

type Category string

const (
	CategorySelect   Category = "select"
	CategoryGroup    Category = "group"
	CategoryJoin     Category = "join"
	CategorySubquery Category = "subquery"
)

// MongoQuery is the document-database form of a query. Filter, Projection and
// Pipeline are relaxed extended JSON; Pipeline takes precedence over Filter.
type MongoQuery struct {
	Collection string `yaml:"collection"`
	Filter     string `yaml:"filter"`
	Projection string `yaml:"projection"`
	Pipeline   string `yaml:"pipeline"`
}

func (m MongoQuery) IsAggregation() bool {
	return strings.TrimSpace(m.Pipeline) != ""
}

type Query struct {
	ID       string     `yaml:"id"`
	Category Category   `yaml:"category"`
	SQL      string     `yaml:"sql"`
	Mongo    MongoQuery `yaml:"mongo"`
}

type Dataset struct {
	// Key is the file name the dataset was loaded from, without extension.
	Key           string  `yaml:"-"`
	Name          string  `yaml:"name"`
	SQLDatabase   string  `yaml:"sql_database"`
	MongoDatabase string  `yaml:"mongo_database"`
	Queries       []Query `yaml:"queries"`
}

// Names returns the keys of all embedded datasets in lexical order.
func Names() []string {
	entries, err := datasets.ReadDir("datasets")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	sort.Strings(names)
	return names
}

// Load returns the dataset whose key or name matches, ignoring case.
func Load(name string) (*Dataset, error) {
	for _, key := range Names() {
		ds, err := parse(key)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(key, name) || strings.EqualFold(ds.Name, name) {
			return ds, nil
		}
	}
	return nil, errors.WithDetails(ErrUnknownDataset, "dataset", name)
}

// All loads every embedded dataset.
func All() ([]*Dataset, error) {
	var result []*Dataset
	for _, key := range Names() {
		ds, err := parse(key)
		if err != nil {
			return nil, err
		}
		result = append(result, ds)
	}
	return result, nil
}

func parse(key string) (*Dataset, error) {
	data, err := datasets.ReadFile(path.Join("datasets", key+".yaml"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dataset %s", key)
	}
	ds := &Dataset{Key: key}
	if err := yaml.Unmarshal(data, ds); err != nil {
		return nil, errors.Wrapf(err, "failed to parse dataset %s", key)
	}
	if err := ds.validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func (d *Dataset) validate() error {
	seen := make(map[string]bool)
	for i, q := range d.Queries {
		if q.ID == "" {
			return errors.Errorf("dataset %s: query #%d has no id", d.Key, i)
		}
		if seen[q.ID] {
			return errors.Errorf("dataset %s: duplicate query id %s", d.Key, q.ID)
		}
		seen[q.ID] = true
		if strings.TrimSpace(q.SQL) == "" {
			return errors.Errorf("dataset %s: query %s has no sql", d.Key, q.ID)
		}
		if q.Mongo.Collection == "" {
			return errors.Errorf("dataset %s: query %s has no mongo collection", d.Key, q.ID)
		}
	}
	return nil
}

// Filter returns the queries whose ids are listed. An empty list selects every query.
func (d *Dataset) Filter(ids []string) []Query {
	if len(ids) == 0 {
		return d.Queries
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var result []Query
	for _, q := range d.Queries {
		if wanted[q.ID] {
			result = append(result, q)
		}
	}
	return result
}
