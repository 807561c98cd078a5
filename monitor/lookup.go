package monitor

import (
	"os"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/shirou/gopsutil/process"
)

// FindProcessByName returns the pid of the first running process whose name
// matches one of names. Names are tried in order.
func FindProcessByName(names ...string) (int32, error) {
	processes, err := process.Processes()
	if err != nil {
		return 0, errors.Wrap(err, "failed to list processes")
	}

	byName := make(map[string]int32)
	for _, proc := range processes {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		if _, ok := byName[name]; !ok {
			byName[name] = proc.Pid
		}
	}
	for _, name := range names {
		if pid, ok := byName[name]; ok {
			return pid, nil
		}
	}
	return 0, errors.WithDetails(ErrProcessNotFound, "names", strings.Join(names, ","))
}

// ReadPIDFile reads a pid from a file such as the one a database server writes on startup.
func ReadPIDFile(path string) (int32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read pid file %s", path)
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil || pid <= 0 {
		return 0, errors.Errorf("invalid pid file %s: %q", path, strings.TrimSpace(string(data)))
	}
	return int32(pid), nil
}
