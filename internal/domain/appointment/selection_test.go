package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSlotTime(t *testing.T) {
	for _, tc := range []struct {
		label  string
		hour   int
		minute int
		ok     bool
	}{
		{"09:15", 9, 15, true},
		{"18:00", 18, 0, true},
		{"11:00:00", 11, 0, true},
		{" 10:30 ", 10, 30, true},
		{"24:00", 0, 0, false},
		{"10:60", 0, 0, false},
		{"morning", 0, 0, false},
		{"", 0, 0, false},
		{"10", 0, 0, false},
	} {
		hour, minute, ok := ParseSlotTime(tc.label)
		require.Equal(t, tc.ok, ok, "label %q", tc.label)
		if ok {
			require.Equal(t, tc.hour, hour, "label %q", tc.label)
			require.Equal(t, tc.minute, minute, "label %q", tc.label)
		}
	}
}

func TestFilterAvailable(t *testing.T) {
	window := Window{FromHour: 9, ToHour: 18}
	slots := []Slot{
		{Name: "08:30", Status: true, Capacity: 5},  // before the window
		{Name: "11:00", Status: true, Capacity: 3},  // in window, open
		{Name: "11:00", Status: false, Capacity: 0}, // in window, closed
		{Name: "14:15", Status: true, Capacity: 1},  // in window, open
		{Name: "18:45", Status: true, Capacity: 2},  // hour 18 is inside, inclusive
		{Name: "19:00", Status: true, Capacity: 2},  // past the window
		{Name: "bogus", Status: true, Capacity: 9},  // unparseable, skipped
	}

	open := FilterAvailable(slots, window)
	require.Len(t, open, 3)
	require.Equal(t, "11:00", open[0].Name)
	require.Equal(t, "14:15", open[1].Name)
	require.Equal(t, "18:45", open[2].Name)
}

func TestFilterAvailableEmpty(t *testing.T) {
	require.Empty(t, FilterAvailable(nil, Window{FromHour: 9, ToHour: 18}))
	require.Empty(t, FilterAvailable([]Slot{{Name: "07:00", Status: true}}, Window{FromHour: 9, ToHour: 18}))
}

func TestWindowContains(t *testing.T) {
	w := Window{FromHour: 9, ToHour: 18}
	require.False(t, w.Contains(8))
	require.True(t, w.Contains(9))
	require.True(t, w.Contains(18))
	require.False(t, w.Contains(19))
}

func TestNewRequest(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kathmandu")
	require.NoError(t, err)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	req := NewRequest(date, Slot{Name: "11:00", Status: true}, 79)
	require.Equal(t, "null", req.ID)
	require.Equal(t, "11:00", req.TimeSlot)
	require.Equal(t, 79, req.LocationID)
	require.False(t, req.IsVip)
	// 11:00 Kathmandu (UTC+5:45) is 05:15 UTC
	require.Equal(t, "2026-03-10T05:15:00.000Z", req.AppointmentDate)
}

func TestCalendarExcludes(t *testing.T) {
	cal := Calendar{
		MinDate:  "2026-03-01",
		MaxDate:  "2026-03-31",
		OffDates: []string{"2026-03-15"},
	}

	day := func(d string) time.Time {
		parsed, err := time.Parse("2006-01-02", d)
		require.NoError(t, err)
		return parsed
	}

	excluded, _ := cal.Excludes(day("2026-03-10"))
	require.False(t, excluded)

	excluded, reason := cal.Excludes(day("2026-02-28"))
	require.True(t, excluded)
	require.Contains(t, reason, "outside published range")

	excluded, reason = cal.Excludes(day("2026-03-15"))
	require.True(t, excluded)
	require.Contains(t, reason, "off date")

	// a calendar that does not parse never excludes
	excluded, _ = Calendar{MinDate: "soon", MaxDate: "later"}.Excludes(day("2026-03-10"))
	require.False(t, excluded)
}
