package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsageBytes returns the combined on-disk size of the index directory and
// the catalog database, including the SQLite WAL and shared-memory sidecars.
// Paths that do not exist yet contribute 0.
func DiskUsageBytes(indexDir, catalogPath string) (int64, error) {
	total, err := treeSize(indexDir)
	if err != nil {
		return 0, err
	}
	if catalogPath == "" {
		return total, nil
	}
	for _, p := range []string{catalogPath, catalogPath + "-wal", catalogPath + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

func treeSize(dir string) (int64, error) {
	if dir == "" {
		return 0, nil
	}
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return 0, nil
	}
	return total, err
}
