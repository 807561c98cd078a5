package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustFiesta/DB-engine-comparison/common"
	"github.com/JustFiesta/DB-engine-comparison/sqldb"
	"github.com/JustFiesta/DB-engine-comparison/workload"
)

func parseFlags(t *testing.T, args ...string) (*configFlags, *pflag.FlagSet) {
	t.Helper()
	f := &configFlags{}
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(flags)
	require.NoError(t, flags.Parse(args))
	return f, flags
}

func TestConfigFlags_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bench.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
max_trials = 7
interval = "2s"
engines = ["mariadb"]
`), 0644))

	f, flags := parseFlags(t,
		"--config", file,
		"--output", filepath.Join(dir, "results"),
		"--dir", filepath.Join(dir, "work"),
		"--interval", "500ms",
		"--session", "s1",
	)
	config, err := f.load(flags)
	require.NoError(t, err)

	assert.Equal(t, 7, config.MaxTrials, "from file")
	assert.Equal(t, []string{"mariadb"}, config.Engines, "from file")
	assert.Equal(t, 500*time.Millisecond, config.Interval, "flag wins over file")
	assert.Equal(t, "s1", config.SessionID)
	assert.Equal(t, common.DefaultMinTrials, config.MinTrials, "default")
	assert.True(t, config.Series, "default")
	assert.DirExists(t, config.ResultDir)
	assert.DirExists(t, config.WorkDir)
}

func TestConfigFlags_Environment(t *testing.T) {
	t.Setenv("DBBENCH_MONGODB_URI", "mongodb://env:27017/")
	t.Setenv("DBBENCH_ENGINES", "sqlite,dolt")
	t.Setenv("DBBENCH_SERIES", "false")

	dir := t.TempDir()
	f, flags := parseFlags(t, "--output", dir, "--dir", dir)
	config, err := f.load(flags)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://env:27017/", config.MongoDB.URI)
	assert.Equal(t, []string{"sqlite", "dolt"}, config.Engines)
	assert.False(t, config.Series)

	f, flags = parseFlags(t, "--output", dir, "--dir", dir, "--engines", "mongodb")
	config, err = f.load(flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"mongodb"}, config.Engines)
}

func TestConfigFlags_Invalid(t *testing.T) {
	dir := t.TempDir()
	f, flags := parseFlags(t, "--output", dir, "--dir", dir, "--min-trials", "5", "--max-trials", "2")
	_, err := f.load(flags)
	assert.Error(t, err)

	f, flags = parseFlags(t, "--config", filepath.Join(dir, "missing.toml"))
	_, err = f.load(flags)
	assert.Error(t, err)
}

func TestNewCUT(t *testing.T) {
	config := common.DefaultConfig()
	config.WorkDir = t.TempDir()

	for _, engine := range []string{"mariadb", "mongodb", "dolt", "sqlite"} {
		cut, err := newCUT(engine, config)
		require.NoError(t, err, engine)
		assert.Equal(t, engine, cut.Name())
	}

	_, err := newCUT("oracle", config)
	assert.True(t, errors.Is(err, sqldb.ErrUnsupportedEngine))

	config.MariaDB.Target = "not-a-pid"
	_, err = newCUT("mariadb", config)
	assert.Error(t, err)
}

func TestSelectDatasets(t *testing.T) {
	all, err := selectDatasets(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(workload.Names()))

	some, err := selectDatasets([]string{"bikes"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "Bikes", some[0].Name)

	_, err = selectDatasets([]string{"weather"})
	assert.True(t, errors.Is(err, workload.ErrUnknownDataset))
}
