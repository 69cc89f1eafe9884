package model

import (
	"fmt"
	"time"
)

// Status is the publication state of a single event.
type Status int

const (
	StatusConfirmed Status = iota
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Event is one occurrence as it will end up in a recipient's calendar.
//
// Events are built fresh on every build pass from the event groups and the
// recipient's additions; nothing about them is persisted except the rendered
// artifact. Matching for change instructions uses (Name, Start) only.
type Event struct {
	// Name is the stable key shared with the event group. Not for display.
	Name string
	// DisplayName is the human label, possibly prefixed or suffixed by changes.
	DisplayName string

	Status Status

	Start time.Time
	End   time.Time

	// ReminderMinutes is the alarm lead time; nil means no alarm.
	ReminderMinutes *int

	Description string
	// Location is free text; empty means unset.
	Location string
}

// Matches reports whether e is the occurrence addressed by name and start.
func (e Event) Matches(name string, start time.Time) bool {
	return e.Name == name && e.Start.Equal(start)
}

// Change is a recipient specific instruction applied on top of event group data.
//
// Date and the time-of-day overrides are kept in their raw form; they are
// parsed when the change is applied so a malformed value fails that
// recipient's build instead of the whole configuration load.
type Change struct {
	Add    bool   `json:"add,omitempty"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Remove bool   `json:"remove,omitempty"`

	NameSuffix *string `json:"namesuffix,omitempty"`
	StartTime  *string `json:"starttime,omitempty"`
	EndTime    *string `json:"endtime,omitempty"`
	Room       *string `json:"room,omitempty"`
}

// EventDetails holds the per event name customization of a recipient.
type EventDetails struct {
	AlertMinutesBefore *int    `json:"alertMinutesBefore,omitempty"`
	Notes              *string `json:"notes,omitempty"`
}
