package changes

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"icsbuild/internal/model"
)

// AddedDescription marks events that only exist because of an addition change.
const AddedDescription = "This is an additional event which was manually added by you."

// RemovedPrefix is prepended to the display name under model.RemovalEmoji.
const RemovedPrefix = "🚫 "

// Report lists what Apply could not act on. A change without a matching event
// is not an error, callers decide how to surface it.
type Report struct {
	Unmatched []model.Change
}

// Apply folds list over events in order and returns the patched events.
//
// Change dates are interpreted as UTC and moved into loc; time-of-day
// overrides are combined with the change date's calendar day in loc.
// Any malformed date or time, or an addition without an end time, fails the
// whole call. The input slice may be modified.
func Apply(events []model.Event, list []model.Change, policy model.RemovalPolicy, loc *time.Location) ([]model.Event, Report, error) {
	var report Report
	for i, change := range list {
		var (
			matched bool
			err     error
		)
		events, matched, err = apply(events, change, policy, loc)
		if err != nil {
			return events, report, fmt.Errorf("change %d (%s %s): %w", i, change.Name, change.Date, err)
		}
		if !matched {
			report.Unmatched = append(report.Unmatched, change)
		}
	}
	return events, report, nil
}

func apply(events []model.Event, change model.Change, policy model.RemovalPolicy, loc *time.Location) ([]model.Event, bool, error) {
	date, err := ParseDate(change.Date, loc)
	if err != nil {
		return events, false, err
	}

	if change.Add {
		if change.EndTime == nil {
			return events, false, errors.New("change add has no end time specified")
		}
		end, err := onDay(date, *change.EndTime)
		if err != nil {
			return events, false, err
		}

		event := model.Event{
			Name:        change.Name,
			DisplayName: withSuffix(change.Name, change.NameSuffix),
			Status:      model.StatusConfirmed,
			Start:       date,
			End:         end,
			Description: AddedDescription,
		}
		if change.Room != nil {
			event.Location = *change.Room
		}
		return append(events, event), true, nil
	}

	// Overrides are validated even when nothing matches.
	var start, end *time.Time
	if change.StartTime != nil {
		t, err := onDay(date, *change.StartTime)
		if err != nil {
			return events, false, err
		}
		start = &t
	}
	if change.EndTime != nil {
		t, err := onDay(date, *change.EndTime)
		if err != nil {
			return events, false, err
		}
		end = &t
	}

	i := slices.IndexFunc(events, func(e model.Event) bool {
		return e.Matches(change.Name, date)
	})
	if i < 0 {
		return events, false, nil
	}

	event := &events[i]
	if change.Remove {
		switch policy {
		case model.RemovalCancelled:
			event.Status = model.StatusCancelled
		case model.RemovalEmoji:
			event.DisplayName = RemovedPrefix + event.DisplayName
		case model.RemovalRemoved:
			return slices.Delete(events, i, i+1), true, nil
		default:
			return events, false, fmt.Errorf("unknown removal policy %v", policy)
		}
	}

	event.DisplayName = withSuffix(event.DisplayName, change.NameSuffix)
	if change.Room != nil {
		event.Location = *change.Room
	}
	if start != nil {
		event.Start = *start
	}
	if end != nil {
		event.End = *end
	}

	return events, true, nil
}

func withSuffix(name string, suffix *string) string {
	if suffix == nil {
		return name
	}
	return name + " " + *suffix
}

var dateLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02 15:04"}

// ParseDate parses a change date given in UTC and returns it in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed change date %q", raw)
}

var clockLayouts = []string{"15:04", "15:04:05"}

// onDay combines the calendar day of date with the time of day raw, keeping date's location.
// A time inside a daylight saving gap is normalised by time.Date onto the same day.
func onDay(date time.Time, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), 0, date.Location()), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed time of day %q", raw)
}
