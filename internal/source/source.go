package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "icsbuild/internal/log"
	"icsbuild/internal/model"
)

// Entry is one record of an event group file.
type Entry struct {
	Name        string `json:"Name"`
	Location    string `json:"Location"`
	Description string `json:"Description"`
	StartTime   string `json:"StartTime"`
	EndTime     string `json:"EndTime"`

	// RRule optionally repeats the entry (RFC 5545 RRULE value, e.g. "FREQ=WEEKLY;COUNT=12").
	RRule string `json:"RRule,omitempty"`
	// ExDates are RFC 3339 start instants skipped by RRule.
	ExDates []string `json:"ExDates,omitempty"`
}

// Dir reads event groups from <Path>/<group>.json.
type Dir struct {
	Path string
	// Horizon bounds RRULE expansion for rules without COUNT or UNTIL.
	Horizon time.Duration
	// Location is the zone events are converted into.
	Location *time.Location
}

func NewDir(path string, horizon time.Duration, loc *time.Location) *Dir {
	if loc == nil {
		loc = time.Local
	}
	return &Dir{Path: path, Horizon: horizon, Location: loc}
}

// Filename maps a group name to its file name. Group names may contain "/".
func Filename(group string) string {
	return strings.ReplaceAll(group, "/", "-") + ".json"
}

// Load reads and converts all events of one group.
func (d *Dir) Load(group string) ([]model.Event, error) {
	entries, err := d.Read(group)
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(entries))
	for i, entry := range entries {
		converted, err := d.convert(entry)
		if err != nil {
			return nil, fmt.Errorf("event group %s entry %d (%s): %w", group, i, entry.Name, err)
		}
		events = append(events, converted...)
	}

	appLog.Debug("event group loaded", "group", group, "entries", len(entries), "events", len(events))
	return events, nil
}

// Read returns the raw entries of one group.
func (d *Dir) Read(group string) ([]Entry, error) {
	path := filepath.Join(d.Path, Filename(group))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file %s: %w", group, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse event file %s: %w", group, err)
	}
	return entries, nil
}

func (d *Dir) convert(entry Entry) ([]model.Event, error) {
	start, err := parseInstant(entry.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseInstant(entry.EndTime)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, errors.New("end time is not after start time")
	}

	base := model.Event{
		Name:        entry.Name,
		DisplayName: entry.Name,
		Status:      model.StatusConfirmed,
		Start:       start.In(d.Location),
		End:         end.In(d.Location),
		Description: entry.Description,
		Location:    entry.Location,
	}

	if entry.RRule == "" {
		return []model.Event{base}, nil
	}
	return d.expand(base, entry)
}

func parseInstant(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed instant %q: %w", raw, err)
	}
	return t, nil
}
