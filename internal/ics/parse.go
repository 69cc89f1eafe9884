package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "icsbuild/internal/log"
)

// ArtifactEvent is a VEVENT read back from a published artifact.
type ArtifactEvent struct {
	UID         string
	Status      string
	Summary     string
	Location    string
	Description string

	Start time.Time
	End   time.Time

	// Alarm is the raw TRIGGER value of the first VALARM, if any.
	Alarm string
}

// ParseArtifact parses a rendered calendar document.
//
// It is the read side of Render: `icsbuild inspect` uses it to list what a
// recipient currently sees, and it guards that rendered output stays a
// calendar other tools can parse.
func ParseArtifact(body []byte) ([]ArtifactEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]ArtifactEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ArtifactEvent, error) {
	var out ArtifactEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Status = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	// DTSTART/DTEND carry TZID=Europe/Berlin; parse them against Location
	// rather than relying on the library's TZID lookup.
	start, err := parseLocalTime(ve.GetProperty(ical.ComponentPropertyDtStart))
	if err != nil {
		return out, err
	}
	end, err := parseLocalTime(ve.GetProperty(ical.ComponentPropertyDtEnd))
	if err != nil {
		return out, err
	}
	out.Start = start
	out.End = end

	for _, alarm := range ve.Alarms() {
		if p := alarm.GetProperty(ical.ComponentPropertyTrigger); p != nil {
			out.Alarm = p.Value
			break
		}
	}

	return out, nil
}

func parseLocalTime(p *ical.IANAProperty) (time.Time, error) {
	if p == nil {
		return time.Time{}, errors.New("missing date-time")
	}
	v := strings.TrimSpace(p.Value)
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	return time.ParseInLocation("20060102T150405", v, Location)
}
