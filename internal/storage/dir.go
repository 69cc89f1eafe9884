package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dir stores artifacts as files in a single directory.
type Dir struct {
	path string
}

// NewDir returns a Dir for path, creating the directory if needed.
func NewDir(path string) (*Dir, error) {
	if path == "" {
		return nil, errors.New("output directory is empty")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Dir{path: path}, nil
}

func (d *Dir) Path() string {
	return d.path
}

// List ignores dot files, which includes Write's temporary files.
func (d *Dir) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasPrefix(name, prefix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (d *Dir) Read(name string) ([]byte, error) {
	return os.ReadFile(d.join(name))
}

// Write replaces name atomically via a temp file + rename in the same directory,
// so readers polling the directory never see a half written calendar.
func (d *Dir) Write(name string, data []byte) error {
	tmp, err := os.CreateTemp(d.path, ".icsbuild-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Published calendars are served to others; make them world readable.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpName, d.join(name))
}

func (d *Dir) Rename(from, to string) error {
	return os.Rename(d.join(from), d.join(to))
}

func (d *Dir) Delete(name string) error {
	return os.Remove(d.join(name))
}

func (d *Dir) join(name string) string {
	return filepath.Join(d.path, filepath.Base(name))
}
