package common

import (
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// FileOrDirectorySize returns the size of a file, or the total size of the
// regular files below a directory. Unreadable entries are skipped.
func FileOrDirectorySize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		log.Warnf("cannot access to path: '%s': %v", path, err)
		return 0
	}

	if !info.IsDir() {
		return info.Size()
	}

	var totalSize int64
	_ = filepath.WalkDir(path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warnf("cannot access to path: '%s': %v", path, err)
			return nil
		} else if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				log.Warnf("cannot access to path: '%s': %v", path, err)
			} else {
				totalSize += info.Size()
			}
		}
		return nil
	})
	return totalSize
}
