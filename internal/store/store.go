// Package store implements the content-addressed store layout under
// ${VX_HOME}/store/<ecosystem>/<runtime>/<version>/ and the per-(runtime,
// version) install lock that serializes concurrent `vx` invocations
// installing the same store entry.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	vxerrors "github.com/loonghao/vx/internal/errors"
)

// Marker is the install manifest recorded at the root of a StoreEntry by
// `.vx-install-marker`, per spec §3.
type Marker struct {
	URL         string    `json:"url"`
	Checksum    string    `json:"checksum,omitempty"`
	InstalledAt time.Time `json:"installedAt"`
}

const (
	markerFileName          = ".vx-install-marker"
	componentAttemptedMarker = ".component-install-attempted"
)

// Store manages StoreEntry directories under a root data directory
// (typically ${VX_HOME}/store).
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &Store{root: dir}, nil
}

// EntryDir returns the directory for a (ecosystem, runtime, version)
// StoreEntry, whether or not it has been installed yet.
func (s *Store) EntryDir(ecosystem, runtime, version string) string {
	return filepath.Join(s.root, ecosystem, runtime, version)
}

// Installed reports whether a StoreEntry has a completed install marker.
func (s *Store) Installed(ecosystem, runtime, version string) bool {
	_, err := os.Stat(filepath.Join(s.EntryDir(ecosystem, runtime, version), markerFileName))
	return err == nil
}

// ReadMarker loads the install marker for a StoreEntry, if present.
func (s *Store) ReadMarker(ecosystem, runtime, version string) (*Marker, error) {
	data, err := os.ReadFile(filepath.Join(s.EntryDir(ecosystem, runtime, version), markerFileName))
	if err != nil {
		return nil, err
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse install marker: %w", err)
	}
	return &m, nil
}

// WriteMarker records a completed install. It is the final step of an
// install and must run only after the extracted distribution is fully in
// place, since Installed() uses the marker's presence as the sole
// completion signal.
func (s *Store) WriteMarker(ecosystem, runtime, version string, m Marker) error {
	dir := s.EntryDir(ecosystem, runtime, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store entry dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal install marker: %w", err)
	}
	tmp := filepath.Join(dir, markerFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write install marker: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, markerFileName))
}

// MarkComponentInstallAttempted records that a post_install component-install
// retry has already run for this entry, preventing an infinite retry loop
// if the retry itself triggers another attempt.
func (s *Store) MarkComponentInstallAttempted(ecosystem, runtime, version string) error {
	path := filepath.Join(s.EntryDir(ecosystem, runtime, version), componentAttemptedMarker)
	return os.WriteFile(path, []byte(time.Now().UTC().Format(time.RFC3339)), 0o644)
}

// ComponentInstallAttempted reports whether MarkComponentInstallAttempted
// has already run for this entry.
func (s *Store) ComponentInstallAttempted(ecosystem, runtime, version string) bool {
	_, err := os.Stat(filepath.Join(s.EntryDir(ecosystem, runtime, version), componentAttemptedMarker))
	return err == nil
}

// InstalledVersions lists the versions of runtime with a completed install
// marker, for the resolver's "latest installed" fallback step. Unreadable
// or nonexistent runtime directories yield an empty list, not an error.
func (s *Store) InstalledVersions(ecosystem, runtime string) []string {
	dir := filepath.Join(s.root, ecosystem, runtime)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var versions []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if s.Installed(ecosystem, runtime, e.Name()) {
			versions = append(versions, e.Name())
		}
	}
	return versions
}

// Remove deletes a StoreEntry atomically: rename-to-temp, then remove the
// temp directory, so a crash mid-delete never leaves a half-visible entry
// at the original path.
func (s *Store) Remove(ecosystem, runtime, version string) error {
	dir := s.EntryDir(ecosystem, runtime, version)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	tmp := dir + ".removing-" + strconv.Itoa(os.Getpid())
	if err := os.Rename(dir, tmp); err != nil {
		return fmt.Errorf("stage store entry for removal: %w", err)
	}
	return os.RemoveAll(tmp)
}

// Lock returns a per-(runtime, version) install lock. Callers must call
// Unlock (or rely on process exit) to release it; TryLock returns a
// descriptive *errors.StateError identifying the contending PID when the
// lock is already held, built by errors.NewLockError.
type Lock struct {
	path string
	fl   *flock.Flock
}

// NewLock creates (but does not acquire) the install lock for a
// (runtime, version) pair, stored alongside its StoreEntry.
func (s *Store) NewLock(ecosystem, runtime, version string) (*Lock, error) {
	dir := s.EntryDir(ecosystem, runtime, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store entry dir: %w", err)
	}
	path := filepath.Join(dir, ".install.lock")
	return &Lock{path: path, fl: flock.New(path)}, nil
}

// TryLock attempts to acquire the install lock without blocking.
func (l *Lock) TryLock() error {
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire install lock: %w", err)
	}
	if !ok {
		pid, _ := readLockPID(l.path)
		return vxerrors.NewLockError(l.path, pid)
	}
	return writeLockPID(l.path)
}

// Unlock releases the install lock.
func (l *Lock) Unlock() error {
	return l.fl.Unlock()
}

func readLockPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

func writeLockPID(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}
