package build

import (
	"fmt"
	"io/fs"

	"icsbuild/internal/model"
)

// StubSource is an in-memory EventSource. Groups missing from Groups fail like a missing file.
type StubSource struct {
	Groups map[string][]model.Event
	Loads  []string
}

func NewStubSource() *StubSource {
	return &StubSource{Groups: make(map[string][]model.Event)}
}

func (s *StubSource) Load(group string) ([]model.Event, error) {
	s.Loads = append(s.Loads, group)
	events, ok := s.Groups[group]
	if !ok {
		return nil, fmt.Errorf("failed to read event file %s: %w", group, fs.ErrNotExist)
	}
	// Callers patch the result; hand out a copy.
	return append([]model.Event(nil), events...), nil
}
