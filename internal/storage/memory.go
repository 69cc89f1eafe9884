package storage

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Store. It records every mutating call in Ops so
// tests can assert which file operations a build performed.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte

	Ops []string
	// Fail makes the named operation ("write", "rename", "delete", "list", "read") return an error.
	Fail map[string]error
}

func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte), Fail: make(map[string]error)}
}

// Put seeds a file without recording an operation.
func (m *Memory) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
}

// Get returns a file's content and whether it exists.
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return data, ok
}

func (m *Memory) List(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["list"]; err != nil {
		return nil, err
	}

	names := make([]string, 0, len(m.files))
	for name := range m.files {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Read(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["read"]; err != nil {
		return nil, err
	}

	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["write"]; err != nil {
		return err
	}

	m.files[name] = append([]byte(nil), data...)
	m.Ops = append(m.Ops, "write "+name)
	return nil
}

func (m *Memory) Rename(from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["rename"]; err != nil {
		return err
	}

	data, ok := m.files[from]
	if !ok {
		return &fs.PathError{Op: "rename", Path: from, Err: fs.ErrNotExist}
	}
	delete(m.files, from)
	m.files[to] = data
	m.Ops = append(m.Ops, fmt.Sprintf("rename %s %s", from, to))
	return nil
}

func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["delete"]; err != nil {
		return err
	}

	if _, ok := m.files[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(m.files, name)
	m.Ops = append(m.Ops, "delete "+name)
	return nil
}
