package lockfile

import (
	"fmt"
	"os"
)

const backupSuffix = ".bak"

// BackupPath returns the backup file path for a lockfile path.
func BackupPath(path string) string {
	return path + backupSuffix
}

// CreateBackup copies the current vx.lock to vx.lock.bak atomically, before
// the installer rewrites it. A missing lockfile is not an error.
func CreateBackup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read lockfile for backup: %w", err)
	}

	bakPath := BackupPath(path)
	tmp := bakPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write lockfile backup: %w", err)
	}
	if err := os.Rename(tmp, bakPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename lockfile backup: %w", err)
	}
	return nil
}

// LoadBackup reads vx.lock.bak, if present.
func LoadBackup(path string) (*File, error) {
	bakPath := BackupPath(path)
	if _, err := os.Stat(bakPath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return Load(bakPath)
}
