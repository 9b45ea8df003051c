package appointment

import "time"

// Slot is one entry of the timeslots response. Produced fresh on every poll,
// never persisted.
type Slot struct {
	Name        string `json:"name"` // "HH:MM"
	Status      bool   `json:"status"`
	Capacity    int    `json:"capacity"`
	VipCapacity int    `json:"vipCapacity"`
}

// Request is the create-appointment payload. Immutable once sent: retries
// must reuse it byte for byte.
type Request struct {
	// The service expects the literal string "null" for a not-yet-created
	// appointment.
	ID              string `json:"id"`
	AppointmentDate string `json:"appointmentDate"`
	TimeSlot        string `json:"timeSlot"`
	LocationID      int    `json:"locationId"`
	IsVip           bool   `json:"isVip"`
}

// Result is the reservation echoed back by the service, carrying the id it
// assigned. Threaded unchanged into the form submission stage.
type Result struct {
	ID              int64  `json:"id"`
	AppointmentDate string `json:"appointmentDate"`
	TimeSlot        string `json:"timeSlot"`
	LocationID      int    `json:"locationId"`
	IsVip           bool   `json:"isVip"`
}

// Window is an inclusive hour range, e.g. 9-18 for business hours.
type Window struct {
	FromHour int
	ToHour   int
}

func (w Window) Contains(hour int) bool {
	return hour >= w.FromHour && hour <= w.ToHour
}

// Calendar is the published availability summary for a location.
type Calendar struct {
	MinDate  string   `json:"minDate"`
	MaxDate  string   `json:"maxDate"`
	OffDates []string `json:"offDates"`
}

// Excludes reports whether the calendar rules out the given date: outside
// the published range or listed as an off date. A malformed calendar never
// excludes anything; the per-slot query stays authoritative.
func (c Calendar) Excludes(date time.Time) (bool, string) {
	day := date.Format("2006-01-02")
	min, errMin := time.Parse("2006-01-02", c.MinDate)
	max, errMax := time.Parse("2006-01-02", c.MaxDate)
	if errMin == nil && errMax == nil {
		if date.Before(min) || date.After(max) {
			return true, "outside published range " + c.MinDate + ".." + c.MaxDate
		}
	}
	for _, off := range c.OffDates {
		if off == day {
			return true, "listed as an off date"
		}
	}
	return false, ""
}
