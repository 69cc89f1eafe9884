package changes

import "icsbuild/internal/model"

// Enrich merges a recipient's per event details into event.
// The reminder is always taken from details, notes are only ever appended.
func Enrich(event *model.Event, details model.EventDetails) {
	event.ReminderMinutes = details.AlertMinutesBefore

	if details.Notes == nil || *details.Notes == "" {
		return
	}
	if event.Description == "" {
		event.Description = *details.Notes
	} else {
		event.Description += "\n\n" + *details.Notes
	}
}
