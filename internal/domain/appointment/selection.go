package appointment

import (
	"strconv"
	"strings"
	"time"
)

// ParseSlotTime parses a slot label of the form "HH:MM" or "HH:MM:SS".
// Anything that does not yield at least an hour and a minute is rejected.
func ParseSlotTime(label string) (hour, minute int, ok bool) {
	parts := strings.Split(strings.TrimSpace(label), ":")
	if len(parts) < 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// FilterAvailable returns, preserving input order, the slots that are open
// and whose hour falls inside the window. A label that does not parse is
// treated as unavailable, never as an error.
func FilterAvailable(slots []Slot, w Window) []Slot {
	var out []Slot
	for _, s := range slots {
		if !s.Status {
			continue
		}
		hour, _, ok := ParseSlotTime(s.Name)
		if !ok {
			continue
		}
		if w.Contains(hour) {
			out = append(out, s)
		}
	}
	return out
}

// NewRequest builds the reservation payload for a slot on the target date.
// The appointment timestamp is the local slot time expressed in UTC, the
// format the service hands back from its own booking UI.
func NewRequest(date time.Time, slot Slot, locationID int) Request {
	hour, minute, _ := ParseSlotTime(slot.Name)
	local := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
	return Request{
		ID:              "null",
		AppointmentDate: local.UTC().Format("2006-01-02T15:04:05.000Z"),
		TimeSlot:        slot.Name,
		LocationID:      locationID,
		IsVip:           false,
	}
}
