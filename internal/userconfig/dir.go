package userconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	appLog "icsbuild/internal/log"
)

// Dir reads recipient configurations from a flat directory of *.json files.
type Dir struct {
	Path string
}

func NewDir(path string) *Dir {
	return &Dir{Path: path}
}

// Load reads one configuration by file name.
func (d *Dir) Load(filename string) (File, error) {
	data, err := os.ReadFile(filepath.Join(d.Path, filename))
	if err != nil {
		return File{}, fmt.Errorf("failed to read userconfig %s: %w", filename, err)
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("failed to parse userconfig %s: %w", filename, err)
	}
	return f, nil
}

// Exists reports whether filename is still present.
func (d *Dir) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(d.Path, filename))
	return err == nil
}

// LoadAll reads every configuration in file name order. Files that cannot be
// read or parsed are logged and skipped; only an unreadable directory fails.
func (d *Dir) LoadAll() ([]File, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read userconfig dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	files := make([]File, 0, len(names))
	for _, name := range names {
		f, err := d.Load(name)
		if err != nil {
			appLog.Error("skip userconfig", err, "file", name)
			continue
		}
		files = append(files, f)
	}
	return files, nil
}
