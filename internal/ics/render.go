package ics

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"icsbuild/internal/model"
)

// TZID is the only timezone artifacts are written in; its rules are embedded in every document.
const TZID = "Europe/Berlin"

// Location is TZID as a *time.Location. Event times are converted into it before formatting.
var Location = mustLoadLocation(TZID)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("ics: load %s: %v", name, err))
	}
	return loc
}

const timezoneBlock = `BEGIN:VTIMEZONE
TZID:Europe/Berlin
BEGIN:DAYLIGHT
TZOFFSETFROM:+0100
RRULE:FREQ=YEARLY;BYMONTH=3;BYDAY=-1SU
DTSTART:19810329T020000
TZNAME:CEST
TZOFFSETTO:+0200
END:DAYLIGHT
BEGIN:STANDARD
TZOFFSETFROM:+0200
RRULE:FREQ=YEARLY;BYMONTH=10;BYDAY=-1SU
DTSTART:19961027T030000
TZNAME:CET
TZOFFSETTO:+0100
END:STANDARD
END:VTIMEZONE
`

// Renderer holds the fixed branding written into every artifact.
type Renderer struct {
	// ProductID is written as PRODID.
	ProductID string
	// CalendarName is a format string; %s is replaced by the recipient's display name.
	CalendarName string
	// OrganizerURL is written as the URL of every event.
	OrganizerURL string
	// UIDDomain follows the "@" of every event UID.
	UIDDomain string
}

func DefaultRenderer() Renderer {
	return Renderer{
		ProductID:    "https://calendarbot.hawhh.de",
		CalendarName: "@HAWHHCalendarBot (%s)",
		OrganizerURL: "https://telegram.me/HAWHHCalendarBot",
		UIDDomain:    "calendarbot.hawhh.de",
	}
}

// Render produces the complete CRLF terminated document for one recipient.
// events are written in the given order; callers sort them.
func (r Renderer) Render(displayName string, events []model.Event) string {
	var b strings.Builder

	b.WriteString("BEGIN:VCALENDAR\nVERSION:2.0\nMETHOD:PUBLISH\n")
	fmt.Fprintf(&b, "PRODID:%s\n", r.ProductID)
	fmt.Fprintf(&b, "X-WR-CALNAME:%s\n", calendarName(r.CalendarName, displayName))
	b.WriteString(timezoneBlock)

	for _, event := range events {
		r.writeEvent(&b, event)
	}

	b.WriteString("END:VCALENDAR\n")

	return strings.ReplaceAll(b.String(), "\n", "\r\n")
}

func calendarName(format, displayName string) string {
	if !strings.Contains(format, "%s") {
		return format
	}
	return strings.Replace(format, "%s", displayName, 1)
}

func (r Renderer) writeEvent(b *strings.Builder, event model.Event) {
	b.WriteString("BEGIN:VEVENT\n")
	b.WriteString("TRANSP:OPAQUE\n")
	fmt.Fprintf(b, "STATUS:%s\n", statusText(event.Status))
	fmt.Fprintf(b, "SUMMARY:%s\n", EscapeText(event.DisplayName))
	fmt.Fprintf(b, "DTSTART;TZID=%s:%s\n", TZID, FormatTime(event.Start))
	fmt.Fprintf(b, "DTEND;TZID=%s:%s\n", TZID, FormatTime(event.End))

	if event.Location != "" {
		fmt.Fprintf(b, "LOCATION:%s\n", EscapeText(event.Location))
	}
	if event.Description != "" {
		fmt.Fprintf(b, "DESCRIPTION:%s\n", EscapeText(event.Description))
	}

	fmt.Fprintf(b, "URL;VALUE=URI:%s\n", r.OrganizerURL)
	fmt.Fprintf(b, "UID:%s@%s\n", StableID(event), r.UIDDomain)

	if event.ReminderMinutes != nil {
		writeAlarm(b, *event.ReminderMinutes)
	}

	b.WriteString("END:VEVENT\n")
}

func statusText(s model.Status) string {
	switch s {
	case model.StatusConfirmed:
		return "CONFIRMED"
	case model.StatusCancelled:
		return "CANCELLED"
	}
	panic(fmt.Sprintf("ics: unhandled event status %d", int(s)))
}

// EscapeText escapes a TEXT value. Backslashes go first so later escapes are not doubled.
func EscapeText(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, ",", `\,`)
	text = strings.ReplaceAll(text, ";", `\;`)
	return strings.ReplaceAll(text, "\n", `\n`)
}

// FormatTime formats t as a local DATE-TIME in Location.
func FormatTime(t time.Time) string {
	return t.In(Location).Format("20060102T150405")
}

func writeAlarm(b *strings.Builder, minutesBefore int) {
	fmt.Fprintf(b, "BEGIN:VALARM\nTRIGGER:-PT%s\nACTION:AUDIO\nEND:VALARM\n", Duration(minutesBefore))
}

// Duration renders a lead time as the hour/minute part of an RFC 5545 duration.
func Duration(minutes int) string {
	hours := minutes / 60
	minutes %= 60
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%02dH%02dM", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%02dH", hours)
	default:
		return fmt.Sprintf("%02dM", minutes)
	}
}
