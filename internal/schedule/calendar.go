package schedule

import (
	"fmt"
	"time"

	"github.com/spec-kit/govdesk/internal/domain"
)

// DefaultSlotMinutes is the default booking granularity.
const DefaultSlotMinutes = 15

const (
	lunchStartMinute = 12 * 60
	lunchEndMinute   = 13 * 60
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
	slotLayout = dateLayout + " " + timeLayout
)

// Slots enumerates the bookable start times ("HH:MM") for one day at the
// department, independent of current bookings. The first slot opens at
// OpenHour:00 and the last one starts a single granule before CloseHour:00.
func Slots(dept *domain.Department, granularity int) []string {
	if granularity <= 0 {
		granularity = DefaultSlotMinutes
	}
	var out []string
	for m := dept.OpenHour * 60; m <= dept.CloseHour*60-granularity; m += granularity {
		if dept.LunchBreak && m >= lunchStartMinute && m < lunchEndMinute {
			continue
		}
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}

// ParseSlot combines a calendar date and a time of day into the absolute
// appointment instant in the given location.
func ParseSlot(date, timeOfDay string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(slotLayout, date+" "+timeOfDay, loc)
}

// ParseDate parses a bare calendar date in the given location.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, date, loc)
}

// FormatDate renders an instant as the calendar-date source field.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FormatTime renders an instant as the time-of-day source field.
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}
