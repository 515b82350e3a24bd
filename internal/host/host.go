// Package host holds the narrow surface voicepatch consumes from its
// environment: a filesystem accessor and the artifact registry the Talon
// host reads personalization overrides from. Both are interfaces so the
// engine can be driven against temp directories in tests.
package host

import (
	"os"
	"path/filepath"
	"time"
)

// FS is the filesystem slice the engine needs. Reads are always of live
// content; nothing is cached across calls.
type FS interface {
	ReadFile(path string) ([]byte, error)
	ModTime(path string) (time.Time, error)
	WriteFile(path string, data []byte) error
	Remove(path string) error
	RemoveAll(path string) error
	MkdirAll(path string) error
}

// OSFS is the os-backed FS used outside tests.
type OSFS struct{}

func (OSFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (OSFS) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (OSFS) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (OSFS) Remove(path string) error    { return os.Remove(path) }
func (OSFS) RemoveAll(path string) error { return os.RemoveAll(path) }
func (OSFS) MkdirAll(path string) error  { return os.MkdirAll(path, 0o755) }

// Registry installs synthesized artifacts where the host's matcher will find
// them, and removes them again when personalization is disabled. Precedence
// itself is the host's own most-specific-wins rule; the registry only has to
// put the files in the watched tree.
type Registry interface {
	// Install writes an artifact for the given domain at rel (the source
	// file's path relative to the user root) and returns the absolute path
	// written.
	Install(domain, rel string, content []byte) (string, error)
	// Purge removes every artifact previously installed for the domain.
	Purge(domain string) error
}

// DirRegistry is the file-backed Registry. Artifacts land under
// <outDir>/<domain>/<rel>, mirroring the source tree, which keeps them inside
// the Talon user directory where the host picks them up.
type DirRegistry struct {
	FS     FS
	OutDir string
}

// NewDirRegistry returns a registry rooted at outDir.
func NewDirRegistry(fs FS, outDir string) *DirRegistry {
	return &DirRegistry{FS: fs, OutDir: outDir}
}

func (r *DirRegistry) Install(domain, rel string, content []byte) (string, error) {
	path := filepath.Join(r.OutDir, domain, filepath.FromSlash(rel))
	if err := r.FS.WriteFile(path, content); err != nil {
		return "", err
	}
	return path, nil
}

func (r *DirRegistry) Purge(domain string) error {
	return r.FS.RemoveAll(filepath.Join(r.OutDir, domain))
}
