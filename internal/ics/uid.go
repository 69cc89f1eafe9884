package ics

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"strconv"

	"icsbuild/internal/model"
)

// StableID derives an event's UID from every one of its fields.
//
// Identical events always get the same id, so unchanged calendars re-render
// byte for byte. Any change to status, times, texts, location or reminder
// yields a new id, which calendar clients treat as a different occurrence.
func StableID(event model.Event) string {
	h := sha256.New()
	writeField(h, event.Name)
	writeField(h, event.DisplayName)
	writeField(h, strconv.Itoa(int(event.Status)))
	writeField(h, FormatTime(event.Start))
	writeField(h, FormatTime(event.End))
	if event.ReminderMinutes != nil {
		writeField(h, "alarm:"+strconv.Itoa(*event.ReminderMinutes))
	} else {
		writeField(h, "")
	}
	writeField(h, event.Description)
	writeField(h, event.Location)

	sum := h.Sum(nil)
	// First 16 hex chars are plenty for uniqueness within a calendar.
	return hex.EncodeToString(sum[:8])
}

// writeField length-prefixes value so adjacent fields cannot run into each other.
func writeField(h hash.Hash, value string) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(value)))
	h.Write(size[:])
	h.Write([]byte(value))
}
