// Package cache manages the per-user update cache: downloaded bundles keyed by
// version and the self-copy used to run apply mode.
//
// Layout under the cache root:
//
//	<root>/<version>/<asset-name>    downloaded bundles
//	<root>/helper/<helper-binary>    apply-mode helper copy
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/mod/semver"
)

// HelperDirName is the reserved directory holding the helper binary.
const HelperDirName = "helper"

// appDirName is the per-user application directory under os.UserCacheDir.
const appDirName = "TwitchDesk"

// Entry describes one cached version directory.
type Entry struct {
	Version   string    `json:"version" yaml:"version"`
	Path      string    `json:"path" yaml:"path"`
	Size      int64     `json:"size" yaml:"size"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Manager handles the update cache directory.
type Manager struct {
	root string
}

// NewManager creates a manager rooted at the default per-user location.
func NewManager() (*Manager, error) {
	root, err := DefaultRoot()
	if err != nil {
		return nil, err
	}
	return &Manager{root: root}, nil
}

// NewManagerWithDir creates a manager with a custom root (for testing).
func NewManagerWithDir(root string) *Manager {
	return &Manager{root: root}
}

// DefaultRoot returns <user cache dir>/TwitchDesk/updates.
func DefaultRoot() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine cache directory: %w", err)
	}
	return filepath.Join(dir, appDirName, "updates"), nil
}

// Root returns the cache root.
func (m *Manager) Root() string {
	return m.root
}

// BundlePath returns where the bundle for version is stored. Concurrent
// downloads of the same version converge on the same path.
func (m *Manager) BundlePath(version, assetName string) string {
	return filepath.Join(m.root, version, assetName)
}

// HelperDir returns the directory holding the helper binary.
func (m *Manager) HelperDir() string {
	return filepath.Join(m.root, HelperDirName)
}

// HelperPath returns the helper binary path for the given base name, with the
// platform executable suffix.
func (m *Manager) HelperPath(baseName string) string {
	if runtime.GOOS == "windows" {
		baseName += ".exe"
	}
	return filepath.Join(m.HelperDir(), baseName)
}

// List returns cached versions sorted newest first. Directories whose name is
// not a version are ignored.
func (m *Manager) List() ([]Entry, error) {
	dirs, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	entries := []Entry{}
	for _, d := range dirs {
		if !d.IsDir() || d.Name() == HelperDirName {
			continue
		}
		if !semver.IsValid(canonical(d.Name())) {
			continue
		}

		info, err := d.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(m.root, d.Name())
		entries = append(entries, Entry{
			Version:   d.Name(),
			Path:      path,
			Size:      dirSize(path),
			UpdatedAt: info.ModTime(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return semver.Compare(canonical(entries[i].Version), canonical(entries[j].Version)) > 0
	})

	return entries, nil
}

// Delete removes the cached bundle directory for version.
func (m *Manager) Delete(version string) error {
	if version == HelperDirName || !semver.IsValid(canonical(version)) {
		return fmt.Errorf("not a cached version: %s", version)
	}

	path := filepath.Join(m.root, version)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("cached version not found: %s", version)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete cached version: %w", err)
	}

	return nil
}

// canonical adds the "v" prefix golang.org/x/mod/semver expects.
func canonical(v string) string {
	if len(v) > 0 && v[0] == 'v' {
		return v
	}
	return "v" + v
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && info.Mode().IsRegular() {
			size += info.Size()
		}
		return nil
	})
	return size
}
