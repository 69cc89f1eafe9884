package source

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "icsbuild/internal/log"
	"icsbuild/internal/model"
)

const (
	defaultHorizon                = 365 * 24 * time.Hour
	defaultMaxOccurrencesPerEntry = 5000
)

// expand repeats base according to entry.RRule, minus entry.ExDates.
// Every occurrence keeps the duration of the first one.
func (d *Dir) expand(base model.Event, entry Entry) ([]model.Event, error) {
	r, err := rrule.StrToRRule(entry.RRule)
	if err != nil {
		return nil, fmt.Errorf("malformed RRule %q: %w", entry.RRule, err)
	}
	// Ensure Dtstart is set to the entry's start.
	r.DTStart(base.Start)

	var set rrule.Set
	set.RRule(r)
	for _, raw := range entry.ExDates {
		ex, err := parseInstant(raw)
		if err != nil {
			return nil, err
		}
		set.ExDate(ex.In(base.Start.Location()))
	}

	horizon := d.Horizon
	if horizon <= 0 {
		horizon = defaultHorizon
	}
	occTimes := set.Between(base.Start, base.Start.Add(horizon), true)
	if len(occTimes) > defaultMaxOccurrencesPerEntry {
		appLog.Warn("recurrence truncated", "name", entry.Name, "rrule", entry.RRule, "cap", defaultMaxOccurrencesPerEntry)
		occTimes = occTimes[:defaultMaxOccurrencesPerEntry]
	}

	dur := base.End.Sub(base.Start)
	out := make([]model.Event, 0, len(occTimes))
	for _, occStart := range occTimes {
		occ := base
		occ.Start = occStart
		occ.End = occStart.Add(dur)
		out = append(out, occ)
	}
	return out, nil
}
